package domain

import "errors"

// ErrorKind classifies failures so transports can map them without
// inspecting messages. No error in the core is transient or retried.
type ErrorKind int

const (
	// KindValidation marks malformed input: bad action names, invalid
	// answer sets, out-of-range thresholds.
	KindValidation ErrorKind = iota
	// KindConflict marks actions that are legal in general but illegal
	// for the current phase, plus capacity limits.
	KindConflict
	// KindNotFound marks unknown sessions, players, quizzes, or
	// question positions.
	KindNotFound
)

// Error is a kind-classified error with a fixed message.
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func validation(msg string) *Error { return &Error{Kind: KindValidation, msg: msg} }
func conflict(msg string) *Error   { return &Error{Kind: KindConflict, msg: msg} }
func notFound(msg string) *Error   { return &Error{Kind: KindNotFound, msg: msg} }

// KindOf extracts the kind of err, defaulting to KindValidation for
// foreign errors.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindValidation, false
}

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = notFound("quiz not found")
	// ErrQuizHasNoQuestions rejects session creation for empty quizzes.
	ErrQuizHasNoQuestions = validation("quiz has no questions")
	// ErrAutoStartTooHigh rejects auto-start thresholds above 50.
	ErrAutoStartTooHigh = validation("auto-start threshold cannot exceed 50")
	// ErrTooManySessions is returned when a quiz already has the
	// maximum number of non-ended sessions.
	ErrTooManySessions = conflict("too many active sessions for this quiz")
	// ErrSessionNotFound is returned for unknown session identifiers.
	ErrSessionNotFound = notFound("session not found")
	// ErrPlayerNotFound is returned for unknown player identifiers.
	ErrPlayerNotFound = notFound("player not found")
	// ErrSessionNotInLobby rejects joins after the session has started.
	ErrSessionNotInLobby = conflict("session is no longer accepting players")
	// ErrNameTaken rejects a display name already used in the session.
	ErrNameTaken = conflict("name already taken in this session")
	// ErrUnknownAction is returned for unrecognized action strings.
	ErrUnknownAction = validation("unknown action")
	// ErrActionNotAllowed is returned when the action is not legal for
	// the session's current phase.
	ErrActionNotAllowed = conflict("action not allowed in current phase")
	// ErrQuestionNotOpen rejects submissions outside QUESTION_OPEN.
	ErrQuestionNotOpen = conflict("question is not open for answers")
	// ErrWrongQuestionPosition rejects submissions against a question
	// other than the current one.
	ErrWrongQuestionPosition = notFound("question position does not match the current question")
	// ErrEmptyAnswerSet rejects submissions with no answer identifiers.
	ErrEmptyAnswerSet = validation("answer set is empty")
	// ErrDuplicateAnswerIDs rejects submissions with repeated identifiers.
	ErrDuplicateAnswerIDs = validation("answer set contains duplicate identifiers")
	// ErrUnknownAnswerID rejects identifiers not belonging to the question.
	ErrUnknownAnswerID = validation("answer set contains unknown identifiers")
	// ErrResultsNotReady gates results until FINAL_RESULTS is reached.
	ErrResultsNotReady = conflict("results are not available yet")
	// ErrChatMessageLength rejects chat bodies outside 1..100 characters.
	ErrChatMessageLength = validation("chat message must be between 1 and 100 characters")
)
