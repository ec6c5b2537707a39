package app

import (
	"time"

	"live-quiz-service/internal/domain"
)

// transitions is the full (phase, action) table. Absent entries are
// illegal combinations; END has no row because it accepts nothing.
// A step may still reject with its own precondition (NEXT_QUESTION past
// the last question) before mutating anything.
var transitions = map[domain.Phase]map[domain.Action]func(*Session) error{
	domain.PhaseLobby: {
		domain.ActionNextQuestion: (*Session).enterCountdownLocked,
		domain.ActionEnd:          (*Session).endLocked,
	},
	domain.PhaseQuestionCountdown: {
		domain.ActionSkipCountdown: (*Session).openQuestionLocked,
		domain.ActionEnd:           (*Session).endLocked,
	},
	domain.PhaseQuestionOpen: {
		domain.ActionGoToAnswer: (*Session).showAnswerLocked,
		domain.ActionEnd:        (*Session).endLocked,
	},
	domain.PhaseQuestionClose: {
		domain.ActionNextQuestion:     (*Session).enterCountdownLocked,
		domain.ActionGoToAnswer:       (*Session).showAnswerLocked,
		domain.ActionGoToFinalResults: (*Session).finalResultsLocked,
		domain.ActionEnd:              (*Session).endLocked,
	},
	domain.PhaseAnswerShow: {
		domain.ActionNextQuestion:     (*Session).enterCountdownLocked,
		domain.ActionGoToFinalResults: (*Session).finalResultsLocked,
		domain.ActionEnd:              (*Session).endLocked,
	},
	domain.PhaseFinalResults: {
		domain.ActionEnd: (*Session).endLocked,
	},
}

// Apply validates a host action against the current phase and runs the
// transition. Timer-fired auto-advances re-enter the same machine
// internally, so a timer and a manual action racing for the same
// transition cannot both succeed.
func (s *Session) Apply(action domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(action)
}

func (s *Session) applyLocked(action domain.Action) error {
	byAction, ok := transitions[s.phase]
	if !ok {
		return domain.ErrActionNotAllowed
	}
	step, ok := byAction[action]
	if !ok {
		return domain.ErrActionNotAllowed
	}
	if err := step(s); err != nil {
		return err
	}
	s.broadcastLocked()
	return nil
}

// enterCountdownLocked advances to the next question: bumps the index,
// seeds leaderboard and export rows for the roster, and arms the
// countdown timer that opens the question. Rejected when the session is
// already on the last question; nothing is mutated on rejection.
func (s *Session) enterCountdownLocked() error {
	if s.questionIndex >= len(s.snapshot.Questions) {
		return domain.ErrActionNotAllowed
	}
	s.closeScoringLocked()
	s.questionIndex++
	s.seedRosterLocked()
	s.phase = domain.PhaseQuestionCountdown
	s.scheduledOpenAt = s.now().Add(s.cfg.Countdown)
	s.armTimerLocked(s.cfg.Countdown, func(s *Session) {
		s.openQuestionLocked()
		s.broadcastLocked()
	})
	return nil
}

// openQuestionLocked opens the current question: records the open time
// used as the zero point for answer latency, resets the answer log, and
// arms the question-duration timer that auto-closes it.
func (s *Session) openQuestionLocked() error {
	question := s.currentQuestionLocked()
	s.phase = domain.PhaseQuestionOpen
	s.openedAt = s.now()
	s.answers = make(map[string]*answerRecord)
	s.answerSeq = 0
	s.armTimerLocked(time.Duration(question.DurationSeconds)*s.cfg.QuestionTimeUnit, func(s *Session) {
		s.closeScoringLocked()
		s.phase = domain.PhaseQuestionClose
		s.broadcastLocked()
	})
	return nil
}

func (s *Session) showAnswerLocked() error {
	s.cancelTimerLocked()
	s.closeScoringLocked()
	s.phase = domain.PhaseAnswerShow
	return nil
}

func (s *Session) finalResultsLocked() error {
	s.cancelTimerLocked()
	s.closeScoringLocked()
	s.phase = domain.PhaseFinalResults
	return nil
}

func (s *Session) endLocked() error {
	s.cancelTimerLocked()
	s.closeScoringLocked()
	s.questionIndex = 0
	s.phase = domain.PhaseEnd
	return nil
}

// seedRosterLocked makes sure every joined player has a cumulative
// total and an export record before a question runs. Players only join
// in LOBBY, so after the first question this is a no-op.
func (s *Session) seedRosterLocked() {
	for _, p := range s.players {
		if _, ok := s.totals[p.id]; !ok {
			s.totals[p.id] = 0
		}
		if _, ok := s.csv[p.id]; !ok {
			s.csv[p.id] = &csvRecord{name: p.name}
		}
	}
	s.rebuildLeaderboardLocked()
}

// armTimerLocked schedules the only pending delayed transition for this
// session, implicitly cancelling a previous one. The callback
// re-acquires the session lock and drops itself if the generation moved
// on, which tolerates a cancel racing a concurrent fire.
func (s *Session) armTimerLocked(d time.Duration, fire func(*Session)) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.timerGen {
			return // stale fire, the session already left this state
		}
		s.timer = nil
		fire(s)
	})
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}
