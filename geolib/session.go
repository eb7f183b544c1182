package geolib

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionLocationManaged is a session flag which is set when visitor
// location of this session was already processed.
const SessionLocationManaged = "location_managed"

// Session is a per-visitor storage: it memoizes results of location
// resolving and keeps flags.
type Session struct {
	ID string

	mutex  sync.Mutex
	values map[string]interface{}
}

func (s *Session) Load(key string) (interface{}, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	value, ok := s.values[key]

	return value, ok
}

func (s *Session) Store(key string, value interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.values[key] = value
}

// MarkOnce sets a flag and reports if it was set by this call.
func (s *Session) MarkOnce(key string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.values[key]; ok {
		return false
	}

	s.values[key] = true

	return true
}

func NewSession(id string) *Session {
	return &Session{
		ID:     id,
		values: map[string]interface{}{},
	}
}

// SessionRegistry keeps sessions in memory and expires them after
// inactivity.
type SessionRegistry struct {
	sessions *cache.Cache
	ttl      time.Duration
}

// Get returns a session with given id creating it if necessary. Each
// access prolongs a session.
func (s *SessionRegistry) Get(id string) *Session {
	if value, ok := s.sessions.Get(id); ok {
		s.sessions.Set(id, value, s.ttl)

		return value.(*Session)
	}

	session := NewSession(id)

	if err := s.sessions.Add(id, session, s.ttl); err != nil {
		if value, ok := s.sessions.Get(id); ok {
			return value.(*Session)
		}
	}

	return session
}

func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions: cache.New(ttl, ttl),
		ttl:      ttl,
	}
}
