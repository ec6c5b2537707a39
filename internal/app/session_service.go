package app

import (
	"context"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/ident"
)

const (
	// maxAutoStart caps the auto-start threshold at session creation.
	maxAutoStart = 50
	// maxActiveSessionsPerQuiz caps concurrently non-ended sessions
	// per quiz.
	maxActiveSessionsPerQuiz = 10
)

// SessionRegistry abstracts how live sessions are stored (in-memory,
// Redis-backed, etc). Sessions are never removed; Clear is the explicit
// reset used only by test harnesses. PutIfUnderCap must count non-ended
// sessions for the quiz and insert in one critical section, so two
// concurrent creates cannot both slip under the cap.
type SessionRegistry interface {
	PutIfUnderCap(session *Session, max int) error
	Get(sessionID string) (*Session, bool)
	ByPlayer(playerID string) (*Session, bool)
	BindPlayer(playerID, sessionID string)
	Clear()
}

// QuizRepository loads quiz content (from cache/backing store). It is
// consulted at session creation only; a running session works off its
// immutable snapshot.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SessionService contains the live session use cases.
type SessionService struct {
	registry SessionRegistry
	quizzes  QuizRepository
	ids      *ident.Pool
	names    *ident.NameGenerator
	cfg      Config
	now      func() time.Time
}

func NewSessionService(registry SessionRegistry, quizzes QuizRepository, cfg Config) *SessionService {
	return NewSessionServiceWithClock(registry, quizzes, cfg, time.Now)
}

// NewSessionServiceWithClock is test-only for deterministic timestamps.
func NewSessionServiceWithClock(registry SessionRegistry, quizzes QuizRepository, cfg Config, now func() time.Time) *SessionService {
	return &SessionService{
		registry: registry,
		quizzes:  quizzes,
		ids:      ident.NewPool(nil),
		names:    ident.NewNameGenerator(),
		cfg:      cfg.withDefaults(),
		now:      now,
	}
}

// CreateSession freezes the quiz's current content into a snapshot and
// inserts a new LOBBY session.
func (s *SessionService) CreateSession(ctx context.Context, quizID string, autoStartNum int) (string, error) {
	if autoStartNum > maxAutoStart {
		return "", domain.ErrAutoStartTooHigh
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	if len(quiz.Questions) == 0 {
		return "", domain.ErrQuizHasNoQuestions
	}

	session := newSession(s.ids.Next(), quizID, autoStartNum, domain.NewQuizSnapshot(quiz), s.cfg, s.now)
	if err := s.registry.PutIfUnderCap(session, maxActiveSessionsPerQuiz); err != nil {
		return "", err
	}
	return session.ID(), nil
}

// ApplyAction forwards a host action to the session's state machine.
func (s *SessionService) ApplyAction(_ context.Context, sessionID string, action domain.Action) error {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.Apply(action)
}

// JoinPlayer registers a player in a LOBBY session and returns the
// allocated player identifier.
func (s *SessionService) JoinPlayer(_ context.Context, sessionID, name string) (string, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	playerID := s.ids.Next()
	if _, err := session.Join(playerID, name, s.names.Next); err != nil {
		return "", err
	}
	s.registry.BindPlayer(playerID, sessionID)
	return playerID, nil
}

// SubmitAnswer records a player's answer for the open question.
func (s *SessionService) SubmitAnswer(_ context.Context, playerID string, position int, answerIDs []string) error {
	session, ok := s.registry.ByPlayer(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	return session.SubmitAnswer(playerID, position, answerIDs)
}

// GetStatus returns the always-readable session projection.
func (s *SessionService) GetStatus(_ context.Context, sessionID string) (domain.SessionStatus, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return domain.SessionStatus{}, domain.ErrSessionNotFound
	}
	return session.Status(), nil
}

// GetResults returns the leaderboard and per-question statistics once
// the session has reached FINAL_RESULTS.
func (s *SessionService) GetResults(_ context.Context, sessionID string) (domain.SessionResults, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return domain.SessionResults{}, domain.ErrSessionNotFound
	}
	return session.Results()
}

// GetCSVRows returns per-player score/rank rows for external export.
func (s *SessionService) GetCSVRows(_ context.Context, sessionID string) ([]domain.CSVRow, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.CSVRows()
}

// PostChatMessage appends to the chat log of the player's session.
func (s *SessionService) PostChatMessage(_ context.Context, playerID, body string) (domain.ChatMessage, error) {
	session, ok := s.registry.ByPlayer(playerID)
	if !ok {
		return domain.ChatMessage{}, domain.ErrPlayerNotFound
	}
	return session.PostChat(playerID, body)
}

// ChatMessages returns a session's chat log.
func (s *SessionService) ChatMessages(_ context.Context, sessionID string) ([]domain.ChatMessage, error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.ChatLog(), nil
}

// Subscribe returns a channel receiving session updates. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(_ context.Context, sessionID string) (<-chan domain.SessionUpdate, func(), error) {
	session, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}
