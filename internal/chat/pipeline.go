// Package chat runs one conversational turn: persist the user's message,
// assemble recent history, ask the model and persist its reply.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dave817/sereniowebapp/internal/metrics"
	"github.com/dave817/sereniowebapp/internal/models"
)

// MessageStore is the slice of persistence the pipeline needs.
type MessageStore interface {
	CreateMessage(ctx context.Context, userID *int64, content string, isBot bool) (*models.Message, error)
	RecentMessages(ctx context.Context, userID *int64, limit int) ([]models.Message, error)
}

// Scope selects whose conversation a turn belongs to.
type Scope struct {
	UserID *int64
}

// Anonymous is the single shared conversation.
func Anonymous() Scope { return Scope{} }

// ForUser is the private conversation of one user.
func ForUser(id int64) Scope { return Scope{UserID: &id} }

// IsAnonymous reports whether the scope addresses the shared log.
func (s Scope) IsAnonymous() bool { return s.UserID == nil }

// Config tunes the pipeline.
type Config struct {
	Persona           string
	Model             string
	Temperature       float32
	MaxTokens         int
	HistoryWindow     int
	MaxMessageLength  int
	CompletionTimeout time.Duration
}

// DefaultConfig returns the production settings with the given persona and model.
func DefaultConfig(persona, model string) Config {
	return Config{
		Persona:           persona,
		Model:             model,
		Temperature:       0.7,
		MaxTokens:         500,
		HistoryWindow:     10,
		MaxMessageLength:  4000,
		CompletionTimeout: 60 * time.Second,
	}
}

// Exchange is the outcome of a successful turn.
type Exchange struct {
	UserMessage *models.Message
	BotMessage  *models.Message
}

// Response is the assistant's text.
func (e *Exchange) Response() string {
	return e.BotMessage.Content
}

// Pipeline is the conversation pipeline.
type Pipeline struct {
	store     MessageStore
	completer Completer
	cfg       Config
	logger    zerolog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(store MessageStore, completer Completer, cfg Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{store: store, completer: completer, cfg: cfg, logger: logger}
}

// PostMessage runs one turn. The user message is committed before the model
// is called and survives any later failure.
func (p *Pipeline) PostMessage(ctx context.Context, scope Scope, text string) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if p.cfg.MaxMessageLength > 0 && utf8.RuneCountInString(text) > p.cfg.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	log := p.logger.With().Bool("anonymous", scope.IsAnonymous()).Logger()
	if scope.UserID != nil {
		log = log.With().Int64("user_id", *scope.UserID).Logger()
	}

	userMsg, err := p.store.CreateMessage(ctx, scope.UserID, text, false)
	if err != nil {
		metrics.ChatTurns.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("store user message: %w", err)
	}

	recent, err := p.store.RecentMessages(ctx, scope.UserID, p.cfg.HistoryWindow)
	if err != nil {
		metrics.ChatTurns.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("load history: %w", err)
	}

	reply, err := p.complete(ctx, BuildPrompt(p.cfg.Persona, recent))
	if err != nil {
		log.Error().Err(err).Int64("message_id", userMsg.ID).Msg("completion failed")
		return nil, err
	}

	botMsg, err := p.store.CreateMessage(ctx, scope.UserID, reply, true)
	if err != nil {
		metrics.ChatTurns.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("store bot message: %w", err)
	}

	metrics.ChatTurns.WithLabelValues("success").Inc()
	log.Debug().
		Int64("user_message_id", userMsg.ID).
		Int64("bot_message_id", botMsg.ID).
		Int("history", len(recent)).
		Msg("chat turn completed")

	return &Exchange{UserMessage: userMsg, BotMessage: botMsg}, nil
}

func (p *Pipeline) complete(ctx context.Context, turns []Turn) (string, error) {
	if p.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CompletionTimeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := p.completer.Complete(ctx, CompletionRequest{
		Model:       p.cfg.Model,
		Turns:       turns,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ChatTurns.WithLabelValues("upstream_error").Inc()
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if strings.TrimSpace(reply) == "" {
		metrics.ChatTurns.WithLabelValues("empty_response").Inc()
		return "", ErrUpstreamEmptyResponse
	}
	return reply, nil
}

// BuildPrompt turns recent messages, newest first, into a chronological
// prompt led by the persona.
func BuildPrompt(persona string, recent []models.Message) []Turn {
	turns := make([]Turn, 0, len(recent)+1)
	turns = append(turns, Turn{Role: RoleSystem, Content: persona})
	for i := len(recent) - 1; i >= 0; i-- {
		role := RoleUser
		if recent[i].IsBot {
			role = RoleAssistant
		}
		turns = append(turns, Turn{Role: role, Content: recent[i].Content})
	}
	return turns
}

// History returns up to limit messages of a conversation, newest first.
func (p *Pipeline) History(ctx context.Context, scope Scope, limit int) ([]models.Message, error) {
	msgs, err := p.store.RecentMessages(ctx, scope.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}
