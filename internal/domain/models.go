package domain

import "time"

// Phase is a session's stage in the fixed lifecycle.
type Phase string

const (
	PhaseLobby             Phase = "LOBBY"
	PhaseQuestionCountdown Phase = "QUESTION_COUNTDOWN"
	PhaseQuestionOpen      Phase = "QUESTION_OPEN"
	PhaseQuestionClose     Phase = "QUESTION_CLOSE"
	PhaseAnswerShow        Phase = "ANSWER_SHOW"
	PhaseFinalResults      Phase = "FINAL_RESULTS"
	PhaseEnd               Phase = "END"
)

// Action is a host-issued command against a session.
type Action string

const (
	ActionNextQuestion     Action = "NEXT_QUESTION"
	ActionSkipCountdown    Action = "SKIP_COUNTDOWN"
	ActionGoToAnswer       Action = "GO_TO_ANSWER"
	ActionGoToFinalResults Action = "GO_TO_FINAL_RESULTS"
	ActionEnd              Action = "END"
)

// ParseAction maps a wire string to an Action.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionNextQuestion, ActionSkipCountdown, ActionGoToAnswer, ActionGoToFinalResults, ActionEnd:
		return Action(raw), nil
	}
	return "", ErrUnknownAction
}

// Answer represents a possible answer for a question.
type Answer struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models a timed question worth a fixed number of points.
// Multiple answers may be flagged correct; a submission must match the
// correct set exactly.
type Question struct {
	ID              string   `json:"id"`
	Prompt          string   `json:"prompt"`
	DurationSeconds int      `json:"durationSeconds"`
	Points          int      `json:"points"` // defaults to 1 if zero
	Answers         []Answer `json:"answers"`
}

// Quiz is a collection of questions as served by the content provider.
type Quiz struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// ScoreEntry is one leaderboard row. Rank is a competition rank:
// tied scores share a rank and the next distinct score resumes at its
// 1-based sorted position.
type ScoreEntry struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// QuestionResult captures per-question statistics computed at close.
type QuestionResult struct {
	Position             int      `json:"position"`
	CorrectPlayerNames   []string `json:"correctPlayerNames"`
	PercentCorrect       int      `json:"percentCorrect"`
	AverageAnswerSeconds float64  `json:"averageAnswerSeconds"`
}

// QuestionScore is one score/rank pair in a player's export row.
type QuestionScore struct {
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// CSVRow is one player's export row: a score/rank pair per question, in
// question order. Formatting into actual CSV is the consumer's concern.
type CSVRow struct {
	PlayerName string          `json:"playerName"`
	Scores     []QuestionScore `json:"scores"`
}

// SessionStatus is the always-readable projection of a session.
type SessionStatus struct {
	Phase          Phase    `json:"phase"`
	QuestionIndex  int      `json:"questionIndex"` // 1-based, 0 = not on a question
	PlayerNames    []string `json:"playerNames"`   // sorted by name
	QuestionsTotal int      `json:"questionsTotal"`
	AutoStartNum   int      `json:"autoStartNum"`
}

// SessionUpdate is pushed to subscribers on joins and phase changes.
type SessionUpdate struct {
	Phase         Phase        `json:"phase"`
	QuestionIndex int          `json:"questionIndex"`
	PlayerNames   []string     `json:"playerNames"`
	Leaderboard   []ScoreEntry `json:"leaderboard"`
}

// SessionResults is readable once the session has reached FINAL_RESULTS.
type SessionResults struct {
	Leaderboard     []ScoreEntry     `json:"leaderboard"`
	QuestionResults []QuestionResult `json:"questionResults"`
}

// ChatMessage is one entry in a session's chat log.
type ChatMessage struct {
	PlayerID   string    `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sentAt"`
}
