package auth

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherLongPassword(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	long := strings.Repeat("p", 80)

	hash, err := h.Hash(long)
	require.NoError(t, err)

	ok, err := h.Compare(hash, long)
	require.NoError(t, err)
	assert.True(t, ok)

	// bytes past 72 still matter
	ok, err = h.Compare(hash, strings.Repeat("p", 79)+"q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasherShortPasswordUnchanged(t *testing.T) {
	// hashes made by other bcrypt implementations keep verifying
	raw, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := NewBcryptHasher().Compare(string(raw), "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterAndLoginWithLongPassword(t *testing.T) {
	svc := newTestService(&memUsers{}, nil)
	ctx := context.Background()
	long := strings.Repeat("p", 80)

	_, err := svc.Register(ctx, "Ana", "ana@example.com", long)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ana@example.com", long)
	assert.NoError(t, err)
}

// countingHasher records how often passwords are compared.
type countingHasher struct {
	BcryptHasher
	compares atomic.Int32
}

func (h *countingHasher) Compare(hash, password string) (bool, error) {
	h.compares.Add(1)
	return h.BcryptHasher.Compare(hash, password)
}

func TestLoginUnknownEmailStillCompares(t *testing.T) {
	hasher := &countingHasher{BcryptHasher: BcryptHasher{Cost: bcrypt.MinCost}}
	svc := NewService(&memUsers{}, hasher, NewTokenIssuer("test-secret", time.Hour), nil, zerolog.Nop())

	_, err := svc.Login(context.Background(), "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, int32(1), hasher.compares.Load())
}

func TestIsValidEmail(t *testing.T) {
	for _, email := range []string{"ana@example.com", "ana@localhost", "a.b+tag@sub.example.org"} {
		assert.True(t, isValidEmail(email), email)
	}
	for _, email := range []string{"not-an-email", "@example.com", "ana@", "a na@example.com", strings.Repeat("a", 250) + "@x.io"} {
		assert.False(t, isValidEmail(email), email)
	}
}
