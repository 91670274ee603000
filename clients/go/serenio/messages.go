package serenio

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNoToken is returned when an authenticated chat is used signed out.
var ErrNoToken = errors.New("no authentication token")

// MessageStore holds the conversation shown to the user.
type MessageStore struct {
	client    *Client
	anonymous bool

	mu       sync.RWMutex
	messages []Message
	loading  bool
	err      string
}

// NewMessageStore creates an empty store. anonymous selects the shared,
// unauthenticated chat, which needs no token.
func NewMessageStore(client *Client, anonymous bool) *MessageStore {
	return &MessageStore{client: client, anonymous: anonymous}
}

// Messages returns the held messages in insertion order.
func (s *MessageStore) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Sorted returns the held messages newest first.
func (s *MessageStore) Sorted() []Message {
	out := s.Messages()
	slices.SortStableFunc(out, func(a, b Message) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

// Loading reports whether a request is in flight.
func (s *MessageStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message of the last failed request.
func (s *MessageStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// LoadMessages replaces the held messages with the server's history.
func (s *MessageStore) LoadMessages(ctx context.Context) error {
	s.begin()
	if err := s.requireToken(); err != nil {
		return s.fail(err, "")
	}

	msgs, err := s.client.Messages(ctx)
	if err != nil {
		return s.fail(err, "Failed to load messages")
	}

	s.mu.Lock()
	s.messages = msgs
	s.loading = false
	s.mu.Unlock()
	return nil
}

// SendMessage posts content and returns the reply text. The anonymous chat
// shows the user's message at once and drops it again if the send fails.
func (s *MessageStore) SendMessage(ctx context.Context, content string) (string, error) {
	s.begin()
	if err := s.requireToken(); err != nil {
		return "", s.fail(err, "")
	}

	var localID string
	if s.anonymous {
		localID = ulid.Make().String()
		s.mu.Lock()
		s.messages = append([]Message{{Content: content, Timestamp: time.Now(), LocalID: localID}}, s.messages...)
		s.mu.Unlock()
	}

	resp, err := s.client.Send(ctx, content)
	if err == nil && (resp.UserMessage == nil || resp.BotMessage == nil) {
		err = errors.New("incomplete chat response")
	}
	if err != nil {
		s.removeLocal(localID)
		return "", s.fail(err, "Failed to send message")
	}

	s.mu.Lock()
	s.removeLocalLocked(localID)
	s.messages = append([]Message{*resp.BotMessage, *resp.UserMessage}, s.messages...)
	s.loading = false
	s.mu.Unlock()

	return resp.BotMessage.Content, nil
}

// ClearMessages drops every held message and the last error.
func (s *MessageStore) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.err = ""
}

func (s *MessageStore) requireToken() error {
	if !s.anonymous && s.client.Token() == "" {
		return ErrNoToken
	}
	return nil
}

func (s *MessageStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// fail records err and returns it. fallback replaces messages that are not
// the server's own.
func (s *MessageStore) fail(err error, fallback string) error {
	msg := err.Error()
	if fallback != "" {
		msg = errorMessage(err, fallback)
	}

	s.mu.Lock()
	s.loading = false
	s.err = msg
	s.mu.Unlock()
	return err
}

func (s *MessageStore) removeLocal(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocalLocked(localID)
}

func (s *MessageStore) removeLocalLocked(localID string) {
	if localID == "" {
		return
	}
	s.messages = slices.DeleteFunc(s.messages, func(m Message) bool {
		return m.LocalID == localID
	})
}
