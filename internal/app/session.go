package app

import (
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"live-quiz-service/internal/domain"
)

// Config controls session timing. The zero value gets the production
// defaults; tests shrink both fields to drive timers in milliseconds.
type Config struct {
	// Countdown is the delay between entering QUESTION_COUNTDOWN and
	// the question opening.
	Countdown time.Duration
	// QuestionTimeUnit scales a question's DurationSeconds into the
	// open-question timer.
	QuestionTimeUnit time.Duration
}

func (c Config) withDefaults() Config {
	if c.Countdown <= 0 {
		c.Countdown = 3 * time.Second
	}
	if c.QuestionTimeUnit <= 0 {
		c.QuestionTimeUnit = time.Second
	}
	return c
}

type player struct {
	id   string
	name string
}

// answerRecord is one player's latest submission for the current
// question. seq breaks ties between identical submission timestamps.
type answerRecord struct {
	answerIDs map[string]struct{}
	at        time.Time
	seq       int
}

func (r *answerRecord) matches(correct map[string]struct{}) bool {
	if len(r.answerIDs) != len(correct) {
		return false
	}
	for id := range r.answerIDs {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return true
}

// csvRecord accumulates one player's per-question score/rank pairs.
type csvRecord struct {
	name   string
	scores []domain.QuestionScore
}

// Session is a live quiz run. All state is guarded by mu; timer
// callbacks re-acquire it, so a timer firing and a host action can
// never interleave destructively. A session is never deleted, only
// moved to the terminal END phase.
type Session struct {
	id        string
	quizID    string
	autoStart int
	createdAt time.Time
	now       func() time.Time
	cfg       Config

	mu              sync.Mutex
	phase           domain.Phase
	questionIndex   int // 1-based, 0 = not on a question
	snapshot        domain.QuizSnapshot
	players         []*player // join order
	answers         map[string]*answerRecord
	answerSeq       int
	openedAt        time.Time
	scheduledOpenAt time.Time
	totals          map[string]float64
	leaderboard     []domain.ScoreEntry
	results         []domain.QuestionResult
	csv             map[string]*csvRecord
	chat            []domain.ChatMessage
	subscribers     map[chan domain.SessionUpdate]struct{}

	// Exactly one pending timer per session. Arming bumps the
	// generation; a fired callback with a stale generation is a no-op.
	timer    *time.Timer
	timerGen uint64
}

// NewSession builds a LOBBY session around an immutable quiz snapshot.
func NewSession(id, quizID string, autoStart int, snapshot domain.QuizSnapshot, cfg Config) *Session {
	return newSession(id, quizID, autoStart, snapshot, cfg, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, quizID string, autoStart int, snapshot domain.QuizSnapshot, cfg Config, now func() time.Time) *Session {
	return newSession(id, quizID, autoStart, snapshot, cfg, now)
}

func newSession(id, quizID string, autoStart int, snapshot domain.QuizSnapshot, cfg Config, now func() time.Time) *Session {
	return &Session{
		id:          id,
		quizID:      quizID,
		autoStart:   autoStart,
		createdAt:   now(),
		now:         now,
		cfg:         cfg.withDefaults(),
		phase:       domain.PhaseLobby,
		snapshot:    snapshot,
		totals:      make(map[string]float64),
		csv:         make(map[string]*csvRecord),
		subscribers: make(map[chan domain.SessionUpdate]struct{}),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) QuizID() string { return s.quizID }

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Ended reports whether the session reached the terminal phase.
func (s *Session) Ended() bool {
	return s.Phase() == domain.PhaseEnd
}

// TimerPending reports whether a delayed transition is armed.
func (s *Session) TimerPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Join adds a player during LOBBY. A blank name is replaced with a
// generated one (retried until unique in this session); a non-blank
// name must not collide case-sensitively with an existing player.
// Joining the autoStart-th player triggers NEXT_QUESTION.
func (s *Session) Join(playerID, name string, autoName func() string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseLobby {
		return "", domain.ErrSessionNotInLobby
	}
	if name == "" {
		for {
			name = autoName()
			if !s.nameTakenLocked(name) {
				break
			}
		}
	} else if s.nameTakenLocked(name) {
		return "", domain.ErrNameTaken
	}

	s.players = append(s.players, &player{id: playerID, name: name})
	s.broadcastLocked()
	if s.autoStart > 0 && len(s.players) == s.autoStart {
		_ = s.applyLocked(domain.ActionNextQuestion)
	}
	return name, nil
}

// SubmitAnswer records a player's answer set for the currently open
// question. A resubmission replaces the earlier one with a fresh
// timestamp and sequence number.
func (s *Session) SubmitAnswer(playerID string, position int, answerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.playerLocked(playerID) == nil {
		return domain.ErrPlayerNotFound
	}
	if s.phase != domain.PhaseQuestionOpen {
		return domain.ErrQuestionNotOpen
	}
	if position != s.questionIndex {
		return domain.ErrWrongQuestionPosition
	}
	if len(answerIDs) == 0 {
		return domain.ErrEmptyAnswerSet
	}

	question := s.currentQuestionLocked()
	set := make(map[string]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		if _, dup := set[id]; dup {
			return domain.ErrDuplicateAnswerIDs
		}
		if !question.HasAnswer(id) {
			return domain.ErrUnknownAnswerID
		}
		set[id] = struct{}{}
	}

	s.answerSeq++
	s.answers[playerID] = &answerRecord{answerIDs: set, at: s.now(), seq: s.answerSeq}
	return nil
}

// PostChat appends a message to the session chat log.
func (s *Session) PostChat(playerID, body string) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.playerLocked(playerID)
	if p == nil {
		return domain.ChatMessage{}, domain.ErrPlayerNotFound
	}
	if n := utf8.RuneCountInString(body); n < 1 || n > 100 {
		return domain.ChatMessage{}, domain.ErrChatMessageLength
	}
	msg := domain.ChatMessage{
		PlayerID:   p.id,
		PlayerName: p.name,
		Body:       body,
		SentAt:     s.now(),
	}
	s.chat = append(s.chat, msg)
	return msg, nil
}

// ChatLog returns a copy of the chat log in send order.
func (s *Session) ChatLog() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.chat...)
}

// Status is always readable, in any phase.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionStatus{
		Phase:          s.phase,
		QuestionIndex:  s.questionIndex,
		PlayerNames:    s.sortedNamesLocked(),
		QuestionsTotal: len(s.snapshot.Questions),
		AutoStartNum:   s.autoStart,
	}
}

// Results returns the final leaderboard and per-question statistics.
// It is gated until the session reaches FINAL_RESULTS or END.
func (s *Session) Results() (domain.SessionResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseFinalResults && s.phase != domain.PhaseEnd {
		return domain.SessionResults{}, domain.ErrResultsNotReady
	}
	return domain.SessionResults{
		Leaderboard:     append([]domain.ScoreEntry(nil), s.leaderboard...),
		QuestionResults: append([]domain.QuestionResult(nil), s.results...),
	}, nil
}

// CSVRows returns one row per player, sorted by player name, with a
// score/rank pair per question in question order. Gated like Results.
func (s *Session) CSVRows() ([]domain.CSVRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseFinalResults && s.phase != domain.PhaseEnd {
		return nil, domain.ErrResultsNotReady
	}

	rows := make([]domain.CSVRow, 0, len(s.csv))
	for _, rec := range s.csv {
		rows = append(rows, domain.CSVRow{
			PlayerName: rec.name,
			Scores:     append([]domain.QuestionScore(nil), rec.scores...),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PlayerName < rows[j].PlayerName })
	return rows, nil
}

// Subscribe returns a channel that receives session updates. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionUpdate, func()) {
	ch := make(chan domain.SessionUpdate, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.updateLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) playerLocked(playerID string) *player {
	for _, p := range s.players {
		if p.id == playerID {
			return p
		}
	}
	return nil
}

func (s *Session) nameTakenLocked(name string) bool {
	for _, p := range s.players {
		if p.name == name {
			return true
		}
	}
	return false
}

func (s *Session) sortedNamesLocked() []string {
	names := make([]string, 0, len(s.players))
	for _, p := range s.players {
		names = append(names, p.name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) currentQuestionLocked() domain.QuestionSnapshot {
	return s.snapshot.Questions[s.questionIndex-1]
}

func (s *Session) updateLocked() domain.SessionUpdate {
	return domain.SessionUpdate{
		Phase:         s.phase,
		QuestionIndex: s.questionIndex,
		PlayerNames:   s.sortedNamesLocked(),
		Leaderboard:   append([]domain.ScoreEntry(nil), s.leaderboard...),
	}
}

func (s *Session) broadcastLocked() {
	update := s.updateLocked()
	for ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			// Drop the oldest update so a slow client never blocks
			// the session.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}
