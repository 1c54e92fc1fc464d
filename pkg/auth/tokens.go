package auth

import "sync"

// TokenStore is the secure side channel the transport consults for bearer
// tokens. It mirrors the session that the backend keeps in an httpOnly
// cookie; tokens never travel through request descriptors or client-readable
// storage.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewTokenStore creates an empty store (no session).
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Token implements httpx.TokenSource.
func (s *TokenStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false
	}
	return s.token, true
}

// Set replaces the stored session token.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear drops the session.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
