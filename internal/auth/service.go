// Package auth registers users, checks their passwords and issues the
// signed session tokens that identify them on later requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dave817/sereniowebapp/internal/metrics"
	"github.com/dave817/sereniowebapp/internal/models"
)

// UserStore is the slice of persistence the credential service needs.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Revoker tracks session tokens ended by logout.
type Revoker interface {
	IsRevoked(ctx context.Context, tokenID string) bool
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Session is a freshly issued token and the user it belongs to.
type Session struct {
	Token string
	User  *models.User
}

// Service is the credential service.
type Service struct {
	users   UserStore
	hasher  Hasher
	tokens  *TokenIssuer
	revoker Revoker
	logger  zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires a credential service. revoker may be nil, in which case
// logout is client-side only.
func NewService(users UserStore, hasher Hasher, tokens *TokenIssuer, revoker Revoker, logger zerolog.Logger) *Service {
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		revoker: revoker,
		logger:  logger,
	}
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = sanitizeName(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// The unique constraint still guards a concurrent registration.
	user, err := s.users.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.UsersRegistered.Inc()
	s.logger.Info().Int64("user_id", user.ID).Msg("user registered")

	return &Session{Token: token, User: user}, nil
}

// Login checks credentials. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		// Pay the same hashing cost as a wrong password.
		s.compareDummy(password)
		s.loginFailed("unknown_email")
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		s.loginFailed("bad_password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.Logins.WithLabelValues("success").Inc()
	return &Session{Token: token, User: user}, nil
}

func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("serenio-unknown-account")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Compare(s.dummyHash, password)
	}
}

func (s *Service) loginFailed(reason string) {
	metrics.Logins.WithLabelValues("failure").Inc()
	s.logger.Warn().
		Str("type", "security").
		Str("event", "login_failed").
		Str("reason", reason).
		Msg("login rejected")
}

// Verify resolves a bearer token to the identity it was issued for.
func (s *Service) Verify(ctx context.Context, token string) (Identity, error) {
	if strings.TrimSpace(token) == "" {
		return Identity{}, ErrMissingToken
	}

	id, err := s.tokens.Parse(token)
	if err != nil {
		return Identity{}, err
	}

	if s.revoker != nil && id.TokenID != "" && s.revoker.IsRevoked(ctx, id.TokenID) {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}

// CurrentUser loads the user behind a verified identity. A user that no
// longer exists invalidates the token.
func (s *Service) CurrentUser(ctx context.Context, id Identity) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Logout revokes the token for the rest of its lifetime when a revoker is
// configured.
func (s *Service) Logout(ctx context.Context, id Identity) error {
	if s.revoker == nil || id.TokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, id.TokenID, time.Until(id.ExpiresAt))
}
