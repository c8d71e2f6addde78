package session

import (
	"context"
	"sync"
)

// Well-known storage keys for the credential pair. They are deliberately
// namespaced apart from UI preference keys (theme, sidebar state) which are
// owned by a different component.
const (
	StorageKeyAccessToken  = "auth.access_token"
	StorageKeyRefreshToken = "auth.refresh_token"
)

// sweepHalfPair applies the pairing invariant to a freshly loaded pair:
// a complete pair passes through, an empty pair reads as "no credentials",
// and a half-pair is corruption that must be cleared by the caller.
func sweepHalfPair(pair TokenPair) (*TokenPair, bool) {
	switch {
	case pair.Complete():
		return &pair, false
	case pair.Zero():
		return nil, false
	default:
		return nil, true
	}
}

// MemoryStore is a process-local CredentialStore. It backs tests and
// short-lived tools that have no reason to persist credentials.
type MemoryStore struct {
	mu   sync.Mutex
	pair TokenPair
	set  bool
}

var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.set = true
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return nil, nil
	}

	pair, corrupt := sweepHalfPair(s.pair)
	if corrupt {
		s.pair = TokenPair{}
		s.set = false
		return nil, nil
	}
	return pair, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = TokenPair{}
	s.set = false
	return nil
}

// Seed places a possibly incomplete pair in the store without invariant
// checks. Only tests use it to simulate corruption.
func (s *MemoryStore) Seed(pair TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.set = true
}
