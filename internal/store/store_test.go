package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	want := &SQLiteStore{}

	ds, err := ConnectWithRetry(context.Background(), zerolog.Nop(), 5, time.Millisecond, func(ctx context.Context) (DataStore, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return want, nil
	})

	require.NoError(t, err)
	assert.Same(t, want, ds)
	assert.Equal(t, 3, calls)
}

func TestConnectWithRetryExhausted(t *testing.T) {
	calls := 0
	_, err := ConnectWithRetry(context.Background(), zerolog.Nop(), 5, time.Millisecond, func(ctx context.Context) (DataStore, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, 5, calls)
}

func TestConnectWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := ConnectWithRetry(ctx, zerolog.Nop(), 5, time.Hour, func(ctx context.Context) (DataStore, error) {
		calls++
		cancel()
		return nil, errors.New("connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestOpenSQLiteURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "serenio.db")

	ds, err := Open(context.Background(), SQLitePrefix+path)
	require.NoError(t, err)
	defer ds.Close()

	_, ok := ds.(*SQLiteStore)
	assert.True(t, ok)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/000001_create_users.up.sql",
		"migrations/000002_create_messages.up.sql",
	}, files)
}
