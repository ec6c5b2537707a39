package redis

import (
	"context"
	"sync"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Sessions themselves stay in a local map: a live session owns a
//     timer and a lock and cannot be serialized mid-run.
//   - Redis marks session liveness keyed by session ID (and could be
//     extended to route cross-instance pub/sub).
//   - The liveness marker is dropped when the session ends.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
	players  map[string]string
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
		players:  make(map[string]string),
	}
}

// PutIfUnderCap inserts the session unless the quiz already has max
// non-ended sessions. The count and the insert share one critical
// section so concurrent creates cannot breach the cap; the liveness
// marker is written after the lock is released.
func (s *SessionStore) PutIfUnderCap(session *app.Session, max int) error {
	s.mu.Lock()
	count := 0
	for _, existing := range s.sessions {
		if existing.QuizID() == session.QuizID() && existing.Phase() != domain.PhaseEnd {
			count++
		}
	}
	if count >= max {
		s.mu.Unlock()
		return domain.ErrTooManySessions
	}
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.QuizID(), s.ttl).Err()
	return nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) ByPlayer(playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) BindPlayer(playerID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[playerID] = sessionID
}

// ActiveCount counts non-ended sessions for a quiz, clearing liveness
// markers for sessions found ended along the way. The network deletes
// happen after the lock is released so readers are never held up by
// Redis round trips.
func (s *SessionStore) ActiveCount(quizID string) int {
	s.mu.RLock()
	count := 0
	var ended []string
	for id, session := range s.sessions {
		if session.QuizID() != quizID {
			continue
		}
		if session.Phase() == domain.PhaseEnd {
			ended = append(ended, id)
			continue
		}
		count++
	}
	s.mu.RUnlock()

	for _, id := range ended {
		_ = s.client.Del(context.Background(), s.key(id)).Err()
	}
	return count
}

// Clear drops all local sessions and their liveness markers. Test
// harnesses only.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sessions {
		_ = s.client.Del(context.Background(), s.key(id)).Err()
	}
	s.sessions = make(map[string]*app.Session)
	s.players = make(map[string]string)
}

func (s *SessionStore) key(sessionID string) string {
	return "session:live:" + sessionID
}
