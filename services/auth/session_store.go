package auth

import (
	"sync"
	"time"

	"genbiapi/models"
	"genbiapi/utils"
)

// session binds a token to an authenticated principal with an expiry.
type session struct {
	principal *models.Principal
	expiresAt time.Time
}

// SessionStore is an in-memory bearer-token session table. Safe for
// concurrent use. Expired sessions are dropped lazily on resolve.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
}

// NewSessionStore creates a session store with the given token lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: map[string]session{},
		ttl:      ttl,
	}
}

// Open issues a fresh token bound to the principal.
func (st *SessionStore) Open(principal *models.Principal) (string, error) {
	token, err := utils.GenerateToken()
	if err != nil {
		return "", err
	}
	st.mu.Lock()
	st.sessions[token] = session{principal: principal, expiresAt: time.Now().Add(st.ttl)}
	st.mu.Unlock()
	return token, nil
}

// Resolve returns the principal for a live token.
func (st *SessionStore) Resolve(token string) (*models.Principal, bool) {
	st.mu.RLock()
	sess, ok := st.sessions[token]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(sess.expiresAt) {
		st.Close(token)
		return nil, false
	}
	return sess.principal, true
}

// Close drops the session for the token.
func (st *SessionStore) Close(token string) {
	st.mu.Lock()
	delete(st.sessions, token)
	st.mu.Unlock()
}
