package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dave817/sereniowebapp/internal/metrics"
	"github.com/dave817/sereniowebapp/internal/models"
)

const pgUniqueViolation = "23505"

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func observe(start time.Time) {
	metrics.DatabaseLatency.Observe(time.Since(start).Seconds())
}

// CreateUser inserts a user. A taken email yields ErrDuplicateEmail.
func (s *PostgresStore) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	defer observe(time.Now())

	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, password_hash, created_at
	`, name, email, passwordHash).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer observe(time.Now())

	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	defer observe(time.Now())

	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE id = $1
	`, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// CreateMessage appends a message to a user's conversation, or to the shared
// log when userID is nil.
func (s *PostgresStore) CreateMessage(ctx context.Context, userID *int64, content string, isBot bool) (*models.Message, error) {
	defer observe(time.Now())

	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (user_id, content, is_bot)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, content, is_bot, timestamp
	`, userID, content, isBot).Scan(
		&msg.ID,
		&msg.UserID,
		&msg.Content,
		&msg.IsBot,
		&msg.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *PostgresStore) RecentMessages(ctx context.Context, userID *int64, limit int) ([]models.Message, error) {
	defer observe(time.Now())

	var (
		rows pgx.Rows
		err  error
	)
	if userID == nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, user_id, content, is_bot, timestamp
			FROM messages
			WHERE user_id IS NULL
			ORDER BY timestamp DESC, id DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, user_id, content, is_bot, timestamp
			FROM messages
			WHERE user_id = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2
		`, *userID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.Content,
			&msg.IsBot,
			&msg.Timestamp,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
