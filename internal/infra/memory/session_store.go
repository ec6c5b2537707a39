package memory

import (
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// SessionStore is the in-memory implementation of app.SessionRegistry.
// Sessions are retained after END for result and export queries; Clear
// is only for test harnesses.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	players  map[string]string // playerID -> sessionID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		players:  make(map[string]string),
	}
}

// PutIfUnderCap inserts the session unless the quiz already has max
// non-ended sessions. The count and the insert share one critical
// section so concurrent creates cannot breach the cap.
func (s *SessionStore) PutIfUnderCap(session *app.Session, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeCountLocked(session.QuizID()) >= max {
		return domain.ErrTooManySessions
	}
	s.sessions[session.ID()] = session
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

// ActiveCount counts sessions for a quiz that have not reached END.
func (s *SessionStore) ActiveCount(quizID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeCountLocked(quizID)
}

func (s *SessionStore) activeCountLocked(quizID string) int {
	count := 0
	for _, session := range s.sessions {
		if session.QuizID() == quizID && session.Phase() != domain.PhaseEnd {
			count++
		}
	}
	return count
}

// Clear drops every session and player binding. Test harnesses only.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*app.Session)
	s.players = make(map[string]string)
}
