package domain

// AnswerSnapshot is an immutable copy of one answer. The correctness
// flag is never sent to players before the reveal; views strip it.
type AnswerSnapshot struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"-"`
}

// QuestionSnapshot is an immutable copy of one question.
type QuestionSnapshot struct {
	ID              string           `json:"id"`
	Prompt          string           `json:"prompt"`
	DurationSeconds int              `json:"durationSeconds"`
	Points          int              `json:"points"`
	Answers         []AnswerSnapshot `json:"answers"`
}

// QuizSnapshot freezes a quiz's content for one session. It is built
// once at session creation so later edits to the source quiz cannot
// affect a running session.
type QuizSnapshot struct {
	QuizID    string             `json:"quizId"`
	Questions []QuestionSnapshot `json:"questions"`
}

// NewQuizSnapshot deep-copies quiz content into a snapshot. No slice or
// nested structure is shared with the source quiz.
func NewQuizSnapshot(quiz Quiz) QuizSnapshot {
	snap := QuizSnapshot{
		QuizID:    quiz.ID,
		Questions: make([]QuestionSnapshot, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		points := q.Points
		if points == 0 {
			points = 1
		}
		qs := QuestionSnapshot{
			ID:              q.ID,
			Prompt:          q.Prompt,
			DurationSeconds: q.DurationSeconds,
			Points:          points,
			Answers:         make([]AnswerSnapshot, 0, len(q.Answers)),
		}
		for _, a := range q.Answers {
			qs.Answers = append(qs.Answers, AnswerSnapshot{
				ID:      a.ID,
				Text:    a.Text,
				Correct: a.Correct,
			})
		}
		snap.Questions = append(snap.Questions, qs)
	}
	return snap
}

// CorrectAnswerIDs returns the set of correct answer identifiers.
func (q QuestionSnapshot) CorrectAnswerIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, a := range q.Answers {
		if a.Correct {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

// HasAnswer reports whether id belongs to the question.
func (q QuestionSnapshot) HasAnswer(id string) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}
