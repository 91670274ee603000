package serenio

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// Routes the session store navigates to.
const (
	RouteChat  = "/chat"
	RouteLogin = "/login"
)

// Navigator moves the front end to a route. It may be nil.
type Navigator func(route string)

// SessionStore holds the signed-in user and keeps the token in Storage.
type SessionStore struct {
	client   *Client
	storage  Storage
	navigate Navigator

	mu      sync.RWMutex
	user    *User
	userID  string
	loading bool
	err     string
}

// NewSessionStore restores any persisted token into client.
func NewSessionStore(client *Client, storage Storage, navigate Navigator) *SessionStore {
	s := &SessionStore{client: client, storage: storage, navigate: navigate}
	if token, ok := storage.Get(KeyToken); ok {
		client.SetToken(token)
	}
	s.userID, _ = storage.Get(KeyUserID)
	return s
}

// User is the signed-in user once Login, Register or CheckAuth succeeded.
func (s *SessionStore) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// UserID is the persisted id of the signed-in user.
func (s *SessionStore) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Loading reports whether a login or registration is in flight.
func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message of the last failed login or registration.
func (s *SessionStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// IsAuthenticated reports whether a token is held.
func (s *SessionStore) IsAuthenticated() bool {
	return s.client.Token() != ""
}

// Login signs in and navigates to the chat.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	return s.authenticate(func() (*AuthResponse, error) {
		return s.client.Login(ctx, email, password)
	}, "Login failed")
}

// Register creates an account, signs in and navigates to the chat.
func (s *SessionStore) Register(ctx context.Context, name, email, password string) error {
	return s.authenticate(func() (*AuthResponse, error) {
		return s.client.Register(ctx, name, email, password)
	}, "Registration failed")
}

func (s *SessionStore) authenticate(call func() (*AuthResponse, error), fallback string) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	resp, err := call()

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = errorMessage(err, fallback)
		s.mu.Unlock()
		return err
	}
	s.client.SetToken(resp.Token)
	s.user = &resp.User
	s.userID = strconv.FormatInt(resp.User.ID, 10)
	s.mu.Unlock()

	if err := s.storage.Set(KeyToken, resp.Token); err != nil {
		return err
	}
	if err := s.storage.Set(KeyUserID, s.userID); err != nil {
		return err
	}

	s.navigateTo(RouteChat)
	return nil
}

// Logout forgets the session and navigates to the login page. The server is
// asked to revoke the token; failures there do not keep the session alive.
func (s *SessionStore) Logout(ctx context.Context) {
	if s.IsAuthenticated() {
		_ = s.client.Logout(ctx)
	}
	s.clear()
	s.navigateTo(RouteLogin)
}

func (s *SessionStore) clear() {
	s.mu.Lock()
	s.client.SetToken("")
	s.user = nil
	s.userID = ""
	s.mu.Unlock()

	_ = s.storage.Delete(KeyToken)
	_ = s.storage.Delete(KeyUserID)
}

// CheckAuth confirms the held token with the server. A rejected token logs
// the session out.
func (s *SessionStore) CheckAuth(ctx context.Context) bool {
	if !s.IsAuthenticated() {
		return false
	}

	user, err := s.client.Verify(ctx)
	if err != nil {
		s.clear()
		s.navigateTo(RouteLogin)
		return false
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return true
}

func (s *SessionStore) navigateTo(route string) {
	if s.navigate != nil {
		s.navigate(route)
	}
}

// errorMessage prefers the server's message over a generic fallback.
func errorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
