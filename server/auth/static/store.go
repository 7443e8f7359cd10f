// Package static holds an in-memory token table implementing auth.Verifier,
// used for tests and local development.
package static

import (
	"context"
	"crypto/subtle"
	"sync"

	"almanac/server/auth"
)

// Store maps opaque tokens to user IDs.
type Store struct {
	mu     sync.RWMutex
	tokens map[string]string // map[token]uid
}

// New creates a static token store.
func New() *Store {
	return &Store{tokens: make(map[string]string)}
}

// Add registers a token for uid, replacing any previous assignment.
func (s *Store) Add(token, uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = uid
}

// Verify implements auth.Verifier.
func (s *Store) Verify(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Constant-time scan so lookup timing leaks nothing about stored tokens.
	var uid string
	found := false
	for t, u := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			uid = u
			found = true
		}
	}
	if !found {
		return "", &auth.Error{
			Type:    auth.ErrInvalidToken,
			Message: "unknown token",
		}
	}
	return uid, nil
}
