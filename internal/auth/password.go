package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxLen is the longest input bcrypt accepts.
const bcryptMaxLen = 72

// Hasher derives and checks password hashes.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// BcryptHasher is a salted bcrypt Hasher.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher at cost 10.
func NewBcryptHasher() BcryptHasher {
	return BcryptHasher{Cost: 10}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare returns false without error on a mismatch.
func (h BcryptHasher) Compare(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// bcryptInput passes short passwords through unchanged and folds longer ones
// into a SHA-256 digest so every byte counts and bcrypt's limit is never hit.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxLen {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
