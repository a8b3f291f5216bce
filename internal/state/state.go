// Package state stores in-flight authorization attempts between the
// start redirect and the provider callback. Records are short-lived,
// consumed exactly once, and keyed twice for OAuth 1.0a flows (by the
// generated state id and by the provider-issued request token) because
// some providers drop the state parameter on redirect.
package state

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/charo360/nevis-connect/internal/cache"
)

// DefaultTTL bounds how long a user has to finish authorizing.
const DefaultTTL = 10 * time.Minute

const (
	statePrefix = "connect:state:"
	tokenPrefix = "connect:rtkn:"
)

// ErrNotFound is returned when a state id or request token does not
// resolve to a live record.
var ErrNotFound = errors.New("state: not found")

// AuthState is one in-flight authorization attempt.
type AuthState struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// OAuth 1.0a only.
	RequestToken       string `json:"request_token,omitempty"`
	RequestTokenSecret string `json:"request_token_secret,omitempty"`

	// OAuth 2.0 only.
	CodeVerifier string `json:"code_verifier,omitempty"`
	AccountType  string `json:"account_type,omitempty"`
}

// Store persists AuthState records in a keyed TTL cache. Writes are
// atomic per key in every backend; there is no whole-keyspace rewrite.
type Store struct {
	c   cache.Cache
	ttl time.Duration
	now func() time.Time
}

// New creates a Store. A zero ttl falls back to DefaultTTL.
func New(c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: c, ttl: ttl, now: time.Now}
}

// TTL reports the configured lifetime for new records.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores a record under its state id, stamping CreatedAt/ExpiresAt.
func (s *Store) Put(st *AuthState) error {
	if st.ID == "" {
		return errors.New("state: empty id")
	}
	now := s.now().UTC()
	st.CreatedAt = now
	st.ExpiresAt = now.Add(s.ttl)

	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	s.c.Set(statePrefix+st.ID, b, s.ttl)
	if st.RequestToken != "" {
		s.c.Set(tokenPrefix+st.RequestToken, []byte(st.ID), s.ttl)
	}
	return nil
}

// AliasRequestToken indexes an existing record by its provider-issued
// request token so a state-less callback can still be correlated.
func (s *Store) AliasRequestToken(requestToken, stateID string) {
	if requestToken == "" || stateID == "" {
		return
	}
	s.c.Set(tokenPrefix+requestToken, []byte(stateID), s.ttl)
}

// Get resolves a record by state id. Records past their ExpiresAt are
// treated as absent even when the backend still holds them, and are
// dropped opportunistically.
func (s *Store) Get(id string) (*AuthState, error) {
	b, ok := s.c.Get(statePrefix + id)
	if !ok {
		return nil, ErrNotFound
	}
	var st AuthState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, ErrNotFound
	}
	if !st.ExpiresAt.IsZero() && s.now().After(st.ExpiresAt) {
		s.Delete(&st)
		return nil, ErrNotFound
	}
	return &st, nil
}

// GetByRequestToken resolves a record through its request-token alias.
func (s *Store) GetByRequestToken(requestToken string) (*AuthState, error) {
	b, ok := s.c.Get(tokenPrefix + requestToken)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(string(b))
}

// Delete removes a record and its request-token alias. Called exactly
// once per successful callback; a second lookup then fails.
func (s *Store) Delete(st *AuthState) {
	if st == nil {
		return
	}
	s.c.Delete(statePrefix + st.ID)
	if st.RequestToken != "" {
		s.c.Delete(tokenPrefix + st.RequestToken)
	}
}
