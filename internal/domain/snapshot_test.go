package domain

import "testing"

func TestSnapshotIsDeepCopy(t *testing.T) {
	quiz := Quiz{
		ID: "quiz-1",
		Questions: []Question{
			{
				ID:              "q1",
				Prompt:          "Pick one",
				DurationSeconds: 30,
				Points:          10,
				Answers: []Answer{
					{ID: "a1", Text: "yes", Correct: true},
					{ID: "a2", Text: "no"},
				},
			},
		},
	}

	snap := NewQuizSnapshot(quiz)

	quiz.Questions[0].Prompt = "edited"
	quiz.Questions[0].Answers[0].Correct = false
	quiz.Questions[0].Answers[1].Correct = true

	if snap.Questions[0].Prompt != "Pick one" {
		t.Fatalf("snapshot prompt mutated: %q", snap.Questions[0].Prompt)
	}
	ids := snap.Questions[0].CorrectAnswerIDs()
	if len(ids) != 1 {
		t.Fatalf("expected 1 correct answer, got %d", len(ids))
	}
	if _, ok := ids["a1"]; !ok {
		t.Fatalf("snapshot correct set mutated: %v", ids)
	}
}

func TestSnapshotDefaultsZeroPoints(t *testing.T) {
	snap := NewQuizSnapshot(Quiz{
		ID:        "quiz-1",
		Questions: []Question{{ID: "q1"}},
	})
	if snap.Questions[0].Points != 1 {
		t.Fatalf("expected zero points to default to 1, got %d", snap.Questions[0].Points)
	}
}

func TestHasAnswer(t *testing.T) {
	q := QuestionSnapshot{Answers: []AnswerSnapshot{{ID: "a1"}, {ID: "a2"}}}
	if !q.HasAnswer("a2") {
		t.Fatalf("expected a2 to be known")
	}
	if q.HasAnswer("a9") {
		t.Fatalf("expected a9 to be unknown")
	}
}

func TestParseAction(t *testing.T) {
	for _, raw := range []string{"NEXT_QUESTION", "SKIP_COUNTDOWN", "GO_TO_ANSWER", "GO_TO_FINAL_RESULTS", "END"} {
		if _, err := ParseAction(raw); err != nil {
			t.Fatalf("expected %q to parse, got %v", raw, err)
		}
	}
	if _, err := ParseAction("RESTART"); err != ErrUnknownAction {
		t.Fatalf("expected unknown action error, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{ErrEmptyAnswerSet, KindValidation},
		{ErrActionNotAllowed, KindConflict},
		{ErrSessionNotFound, KindNotFound},
	}
	for _, c := range cases {
		kind, ok := KindOf(c.err)
		if !ok || kind != c.kind {
			t.Fatalf("error %v: expected kind %d, got %d (ok=%v)", c.err, c.kind, kind, ok)
		}
	}
}
