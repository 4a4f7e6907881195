package importer

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("import session not found or expired")
	ErrAlreadySubmitted = errors.New("import already submitted")
)

// Store keeps in-flight import sessions in memory with a TTL. Expired
// sessions are dropped lazily on access. Reads hand out copies; every
// mutation goes through Update so concurrent requests on the same session
// serialize on the store mutex.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[uuid.UUID]*Session
}

func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, sessions: make(map[uuid.UUID]*Session)}
}

func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ExpiresAt = time.Now().Add(st.ttl)
	st.sessions[s.ID] = s
	st.sweepLocked()
}

// Get returns a copy of a live session owned by the company; expired or
// foreign sessions read as not found.
func (st *Store) Get(id, companyID uuid.UUID) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.lookupLocked(id, companyID)
	if err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

// Update applies fn to the stored session under the store mutex and
// returns a copy of the result. When fn errors the session is untouched.
func (st *Store) Update(id, companyID uuid.UUID, fn func(s *Session) error) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, err := st.lookupLocked(id, companyID)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.ExpiresAt = time.Now().Add(st.ttl)
	cp := *s
	return &cp, nil
}

func (st *Store) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) lookupLocked(id, companyID uuid.UUID) (*Session, error) {
	s, ok := st.sessions[id]
	if !ok || s.CompanyID != companyID {
		return nil, ErrSessionNotFound
	}
	if time.Now().After(s.ExpiresAt) {
		delete(st.sessions, id)
		return nil, ErrSessionNotFound
	}
	s.ExpiresAt = time.Now().Add(st.ttl)
	return s, nil
}

func (st *Store) sweepLocked() {
	now := time.Now()
	for id, s := range st.sessions {
		if now.After(s.ExpiresAt) {
			delete(st.sessions, id)
		}
	}
}
