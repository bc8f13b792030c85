package memory

import (
	"context"
	"sync"
	"time"

	"github.com/teaqnet/access-api/internal/core/domain"
	"github.com/teaqnet/access-api/internal/core/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in a map. Expired entries are dropped lazily
// on read and on Save.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]domain.Session
	byAccount map[string]map[string]struct{}
	now       func() time.Time
}

type SessionStoreOption func(*SessionStore)

// WithSessionClock overrides the clock used for expiry.
func WithSessionClock(now func() time.Time) SessionStoreOption {
	return func(s *SessionStore) { s.now = now }
}

func NewSessionStore(opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{
		sessions:  make(map[string]domain.Session),
		byAccount: make(map[string]map[string]struct{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) Save(_ context.Context, sess domain.Session) error {
	if sess.ID == "" || sess.AccountID == "" {
		return domain.Invalid("session", "session id and account id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.sessions[sess.ID] = sess
	set, ok := s.byAccount[sess.AccountID]
	if !ok {
		set = make(map[string]struct{})
		s.byAccount[sess.AccountID] = set
	}
	set[sess.ID] = struct{}{}
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if sess.Expired(s.now()) {
		s.removeLocked(sess)
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		s.removeLocked(sess)
	}
	return nil
}

func (s *SessionStore) DeleteByAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.byAccount[accountID] {
		delete(s.sessions, id)
	}
	delete(s.byAccount, accountID)
	return nil
}

func (s *SessionStore) removeLocked(sess domain.Session) {
	delete(s.sessions, sess.ID)
	if set, ok := s.byAccount[sess.AccountID]; ok {
		delete(set, sess.ID)
		if len(set) == 0 {
			delete(s.byAccount, sess.AccountID)
		}
	}
}

func (s *SessionStore) sweepLocked() {
	now := s.now()
	for _, sess := range s.sessions {
		if sess.Expired(now) {
			s.removeLocked(sess)
		}
	}
}
