package serenio

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeServer mimics the Serenio API closely enough for the stores.
type fakeServer struct {
	mu        sync.Mutex
	anonymous bool
	token     string
	messages  []Message
	failChat  bool
	loggedOut bool
	nextID    int64
}

func newFakeServer(t *testing.T, anonymous bool) (*fakeServer, *Client) {
	t.Helper()
	f := &fakeServer{anonymous: anonymous, token: "good-token"}
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, NewClient(srv.URL)
}

func (f *fakeServer) setFailChat(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failChat = v
}

func (f *fakeServer) wasLoggedOut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedOut
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": true, "message": msg})
}

func (f *fakeServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if f.anonymous && strings.HasPrefix(r.URL.Path, "/api/chat") {
		return true
	}
	h := r.Header.Get("Authorization")
	if h == "" {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return false
	}
	if strings.TrimPrefix(h, "Bearer ") != f.token {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return false
	}
	return true
}

func (f *fakeServer) routes() http.Handler {
	mux := http.NewServeMux()
	user := User{ID: 7, Name: "Ana", Email: "ana@example.com"}

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "s3cret" {
			writeError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, AuthResponse{Token: f.token, User: user})
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] == "taken@example.com" {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		writeJSON(w, http.StatusCreated, AuthResponse{Token: f.token, User: user})
	})
	mux.HandleFunc("GET /api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]User{"user": user})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		f.loggedOut = true
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/chat/messages", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string][]Message{"messages": f.messages})
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(w, r) {
			return
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failChat {
			writeError(w, http.StatusInternalServerError, "Failed to process message")
			return
		}
		now := time.Now().UTC()
		f.nextID++
		userMsg := Message{ID: f.nextID, Content: req["message"], Timestamp: now}
		f.nextID++
		botMsg := Message{ID: f.nextID, Content: "echo: " + req["message"], IsBot: true, Timestamp: now.Add(time.Millisecond)}
		f.messages = append([]Message{botMsg, userMsg}, f.messages...)

		resp := ChatResponse{UserMessage: &userMsg, BotMessage: &botMsg}
		if f.anonymous {
			resp.Response = botMsg.Content
		}
		writeJSON(w, http.StatusOK, resp)
	})
	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		mode := "authenticated"
		if f.anonymous {
			mode = "anonymous"
		}
		writeJSON(w, http.StatusOK, Info{Name: "Serenio", Version: "test", Mode: mode})
	})
	return mux
}
