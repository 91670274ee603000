package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dave817/sereniowebapp/internal/models"
)

// ErrDuplicateEmail is returned when an insert collides with an existing email.
var ErrDuplicateEmail = errors.New("email already registered")

// DataStore defines the interface for persistent storage of users and messages.
// Both PostgresStore and SQLiteStore implement this interface.
//
// A nil userID on message operations addresses the shared anonymous log.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// Message operations
	CreateMessage(ctx context.Context, userID *int64, content string, isBot bool) (*models.Message, error)
	RecentMessages(ctx context.Context, userID *int64, limit int) ([]models.Message, error)
}

// SQLitePrefix marks a DATABASE_URL that points at a local SQLite file.
const SQLitePrefix = "sqlite://"

// Open connects to the backend named by databaseURL and prepares its schema.
// Postgres schemas are migrated separately with RunMigrations.
func Open(ctx context.Context, databaseURL string) (DataStore, error) {
	if strings.HasPrefix(databaseURL, SQLitePrefix) {
		return NewSQLiteStore(ctx, strings.TrimPrefix(databaseURL, SQLitePrefix))
	}
	return NewPostgresStore(ctx, databaseURL)
}

// ConnectFunc opens a DataStore.
type ConnectFunc func(ctx context.Context) (DataStore, error)

// ConnectWithRetry calls connect up to attempts times, sleeping backoff between
// failures. The last error is returned when every attempt fails.
func ConnectWithRetry(ctx context.Context, logger zerolog.Logger, attempts int, backoff time.Duration, connect ConnectFunc) (DataStore, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		ds, err := connect(ctx)
		if err == nil {
			return ds, nil
		}
		lastErr = err

		logger.Warn().
			Err(err).
			Int("attempt", i).
			Int("retries_left", attempts-i).
			Msg("database connection failed")

		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}
