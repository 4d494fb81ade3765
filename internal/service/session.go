package service

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// DefaultSessionID is used when a request names no session.
const DefaultSessionID = "default"

// SessionStore keeps the transcript of each chat session in memory.
// Sessions idle for longer than the TTL are evicted; a TTL <= 0 keeps them
// for the lifetime of the process.
type SessionStore struct {
	mu       sync.Mutex // guards creation
	cache    *cache.Cache
	maxTurns int
	now      func() time.Time
}

type session struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// NewSessionStore creates a store. maxTurns <= 0 keeps every turn. When
// trimming, whole exchanges are dropped so history always opens with a user turn.
func NewSessionStore(ttl time.Duration, maxTurns int) *SessionStore {
	expiration := ttl
	cleanup := ttl / 2
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}
	if cleanup > 0 && cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &SessionStore{
		cache:    cache.New(expiration, cleanup),
		maxTurns: maxTurns,
		now:      time.Now,
	}
}

func (s *SessionStore) lookup(id string, create bool) *session {
	if v, ok := s.cache.Get(id); ok {
		return v.(*session)
	}
	if !create {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(id); ok {
		return v.(*session)
	}
	sess := &session{}
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess
}

// Append adds one turn to the session, creating it on first use, and
// refreshes its idle timer.
func (s *SessionStore) Append(sessionID, role, content string) {
	sess := s.lookup(sessionID, true)

	sess.mu.Lock()
	sess.turns = append(sess.turns, domain.Turn{Role: role, Content: content, At: s.now()})
	if s.maxTurns > 0 && len(sess.turns) > s.maxTurns {
		// Keep history starting at a user turn so an odd limit never
		// leaves an assistant reply without its question.
		drop := len(sess.turns) - s.maxTurns
		for drop < len(sess.turns) && sess.turns[drop].Role != domain.RoleUser {
			drop++
		}
		sess.turns = append([]domain.Turn(nil), sess.turns[drop:]...)
	}
	sess.mu.Unlock()

	s.cache.Set(sessionID, sess, cache.DefaultExpiration)
}

// Get returns a copy of the session transcript in append order.
func (s *SessionStore) Get(sessionID string) []domain.Turn {
	sess := s.lookup(sessionID, false)
	if sess == nil {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]domain.Turn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	return s.cache.ItemCount()
}
