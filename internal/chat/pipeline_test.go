package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dave817/sereniowebapp/internal/models"
)

const persona = "You are a compassionate mental health AI assistant. Respond with empathy and understanding."

// memStore keeps messages in insertion order.
type memStore struct {
	mu        sync.Mutex
	messages  []models.Message
	failWrite int // fail the nth CreateMessage call (1-based), 0 never
	writes    int
	readErr   error
}

func sameScope(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memStore) CreateMessage(ctx context.Context, userID *int64, content string, isBot bool) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writes == m.failWrite {
		return nil, errors.New("insert failed")
	}
	msg := models.Message{
		ID:        int64(len(m.messages) + 1),
		UserID:    userID,
		Content:   content,
		IsBot:     isBot,
		Timestamp: time.Now(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *memStore) RecentMessages(ctx context.Context, userID *int64, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	var out []models.Message
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if sameScope(m.messages[i].UserID, userID) {
			out = append(out, m.messages[i])
		}
	}
	return out, nil
}

func (m *memStore) scoped(userID *int64) []models.Message {
	var out []models.Message
	for _, msg := range m.messages {
		if sameScope(msg.UserID, userID) {
			out = append(out, msg)
		}
	}
	return out
}

type fakeCompleter struct {
	reply    string
	err      error
	requests []CompletionRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func newPipeline(s *memStore, c *fakeCompleter) *Pipeline {
	return NewPipeline(s, c, DefaultConfig(persona, "gpt-4"), zerolog.Nop())
}

func TestPostMessageFirstTurn(t *testing.T) {
	s := &memStore{}
	c := &fakeCompleter{reply: "That sounds hard. What's on your mind?"}
	p := newPipeline(s, c)

	ex, err := p.PostMessage(context.Background(), ForUser(1), "I feel anxious")
	require.NoError(t, err)

	assert.Equal(t, "I feel anxious", ex.UserMessage.Content)
	assert.False(t, ex.UserMessage.IsBot)
	assert.True(t, ex.BotMessage.IsBot)
	assert.Equal(t, "That sounds hard. What's on your mind?", ex.Response())

	require.Len(t, c.requests, 1)
	req := c.requests[0]
	assert.Equal(t, "gpt-4", req.Model)
	assert.Equal(t, float32(0.7), req.Temperature)
	assert.Equal(t, 500, req.MaxTokens)
	assert.Equal(t, []Turn{
		{Role: RoleSystem, Content: persona},
		{Role: RoleUser, Content: "I feel anxious"},
	}, req.Turns)

	assert.Len(t, s.scoped(ex.UserMessage.UserID), 2)
}

func TestPostMessageWindowIsBounded(t *testing.T) {
	s := &memStore{}
	c := &fakeCompleter{reply: "ok"}
	p := newPipeline(s, c)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, err := p.PostMessage(ctx, ForUser(3), fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	// 15 rows exist when the last prompt is built; it holds the persona and the 10 newest.
	last := c.requests[len(c.requests)-1]
	require.Len(t, last.Turns, 11)
	assert.Equal(t, RoleSystem, last.Turns[0].Role)
	assert.Equal(t, "msg 7", last.Turns[10].Content)
	assert.Equal(t, RoleUser, last.Turns[10].Role)

	// chronological, alternating
	for i := 1; i < len(last.Turns)-1; i++ {
		assert.NotEqual(t, last.Turns[i].Role, last.Turns[i+1].Role)
	}
}

func TestPostMessageAlternatesPersistedRows(t *testing.T) {
	s := &memStore{}
	p := newPipeline(s, &fakeCompleter{reply: "reply"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.PostMessage(ctx, Anonymous(), "hi")
		require.NoError(t, err)
	}

	rows := s.scoped(nil)
	require.Len(t, rows, 6)
	for i, row := range rows {
		assert.Equal(t, i%2 == 1, row.IsBot, "row %d", i)
	}
}

func TestPostMessageScopesArePartitioned(t *testing.T) {
	s := &memStore{}
	c := &fakeCompleter{reply: "ok"}
	p := newPipeline(s, c)
	ctx := context.Background()

	_, err := p.PostMessage(ctx, ForUser(1), "from one")
	require.NoError(t, err)
	_, err = p.PostMessage(ctx, ForUser(2), "from two")
	require.NoError(t, err)

	for _, turn := range c.requests[1].Turns {
		assert.NotEqual(t, "from one", turn.Content)
	}
}

func TestPostMessageEmptyText(t *testing.T) {
	s := &memStore{}
	c := &fakeCompleter{reply: "ok"}
	p := newPipeline(s, c)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := p.PostMessage(context.Background(), ForUser(1), text)
		assert.ErrorIs(t, err, ErrEmptyMessage)
		assert.ErrorIs(t, err, ErrInvalidMessage)
	}
	assert.Empty(t, s.messages)
	assert.Empty(t, c.requests)
}

func TestPostMessageTooLong(t *testing.T) {
	s := &memStore{}
	p := newPipeline(s, &fakeCompleter{reply: "ok"})

	_, err := p.PostMessage(context.Background(), ForUser(1), strings.Repeat("a", 4001))
	assert.ErrorIs(t, err, ErrMessageTooLong)
	assert.Empty(t, s.messages)
}

func TestPostMessageEmptyCompletion(t *testing.T) {
	for _, reply := range []string{"", "  \n"} {
		s := &memStore{}
		p := newPipeline(s, &fakeCompleter{reply: reply})

		_, err := p.PostMessage(context.Background(), ForUser(1), "hello")
		assert.ErrorIs(t, err, ErrUpstreamEmptyResponse)
		assert.ErrorIs(t, err, ErrUpstream)

		// user message kept, no bot row
		require.Len(t, s.messages, 1)
		assert.False(t, s.messages[0].IsBot)
	}
}

func TestPostMessageUpstreamError(t *testing.T) {
	s := &memStore{}
	p := newPipeline(s, &fakeCompleter{err: errors.New("503 service unavailable")})

	_, err := p.PostMessage(context.Background(), ForUser(1), "hello")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "503")
	require.Len(t, s.messages, 1)
}

// blockingCompleter waits until its context ends.
type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPostMessageCompletionTimeout(t *testing.T) {
	s := &memStore{}
	cfg := DefaultConfig(persona, "gpt-4")
	assert.Equal(t, 60*time.Second, cfg.CompletionTimeout)
	cfg.CompletionTimeout = 20 * time.Millisecond
	p := NewPipeline(s, blockingCompleter{}, cfg, zerolog.Nop())

	_, err := p.PostMessage(context.Background(), ForUser(1), "hello")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, s.messages, 1)
}

func TestPostMessageStoreFailures(t *testing.T) {
	t.Run("user insert", func(t *testing.T) {
		c := &fakeCompleter{reply: "ok"}
		p := newPipeline(&memStore{failWrite: 1}, c)

		_, err := p.PostMessage(context.Background(), ForUser(1), "hello")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUpstream)
		assert.Empty(t, c.requests)
	})

	t.Run("history read", func(t *testing.T) {
		c := &fakeCompleter{reply: "ok"}
		s := &memStore{readErr: errors.New("timeout")}
		p := newPipeline(s, c)

		_, err := p.PostMessage(context.Background(), ForUser(1), "hello")
		require.Error(t, err)
		assert.Empty(t, c.requests)
		assert.Len(t, s.messages, 1)
	})

	t.Run("bot insert", func(t *testing.T) {
		s := &memStore{failWrite: 2}
		p := newPipeline(s, &fakeCompleter{reply: "ok"})

		_, err := p.PostMessage(context.Background(), ForUser(1), "hello")
		require.Error(t, err)
		assert.Len(t, s.messages, 1)
	})
}

func TestBuildPrompt(t *testing.T) {
	recent := []models.Message{
		{ID: 4, Content: "newest bot", IsBot: true},
		{ID: 3, Content: "user again"},
		{ID: 2, Content: "bot", IsBot: true},
		{ID: 1, Content: "first"},
	}

	assert.Equal(t, []Turn{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "bot"},
		{Role: RoleUser, Content: "user again"},
		{Role: RoleAssistant, Content: "newest bot"},
	}, BuildPrompt("persona", recent))
}

func TestHistory(t *testing.T) {
	s := &memStore{}
	p := newPipeline(s, &fakeCompleter{reply: "ok"})
	ctx := context.Background()

	empty, err := p.History(ctx, ForUser(9), 50)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = p.PostMessage(ctx, ForUser(9), "hello")
	require.NoError(t, err)

	msgs, err := p.History(ctx, ForUser(9), 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsBot)

	s.readErr = errors.New("down")
	_, err = p.History(ctx, ForUser(9), 50)
	assert.Error(t, err)
}
