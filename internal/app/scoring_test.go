package app_test

import (
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, so latencies are exact.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// manualSession uses a frozen config so no timer ever fires; the test
// walks the phases by hand.
func manualSession(t *testing.T, clk *fakeClock, autoStart int, questions ...domain.Question) *app.Session {
	t.Helper()
	return app.NewSessionWithClock("s1", "quiz-1", autoStart, testSnapshot(questions...), frozenConfig(), clk.Now)
}

func openQuestion(t *testing.T, s *app.Session) {
	t.Helper()
	require.NoError(t, s.Apply(domain.ActionNextQuestion))
	require.NoError(t, s.Apply(domain.ActionSkipCountdown))
}

func TestSpeedRankScoring(t *testing.T) {
	clk := newFakeClock()
	s := manualSession(t, clk, 0)
	join(t, s, "p1", "Alice")
	join(t, s, "p2", "Bob")
	openQuestion(t, s)

	clk.Advance(2 * time.Second)
	require.NoError(t, s.SubmitAnswer("p1", 1, []string{"a2"}))
	clk.Advance(3 * time.Second)
	require.NoError(t, s.SubmitAnswer("p2", 1, []string{"a2"}))

	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	results, err := s.Results()
	require.NoError(t, err)

	// Fastest correct answer gets full points, second gets half.
	require.Equal(t, []domain.ScoreEntry{
		{PlayerID: "p1", Name: "Alice", Score: 10.0, Rank: 1},
		{PlayerID: "p2", Name: "Bob", Score: 5.0, Rank: 2},
	}, results.Leaderboard)

	require.Len(t, results.QuestionResults, 1)
	stats := results.QuestionResults[0]
	require.Equal(t, 1, stats.Position)
	require.Equal(t, 100, stats.PercentCorrect)
	require.InDelta(t, 3.5, stats.AverageAnswerSeconds, 0.001)
	require.Equal(t, []string{"Alice", "Bob"}, stats.CorrectPlayerNames)
}

func TestIncorrectAndMissingScoreZero(t *testing.T) {
	clk := newFakeClock()
	s := manualSession(t, clk, 0)
	join(t, s, "p1", "Alice")
	join(t, s, "p2", "Bob")
	join(t, s, "p3", "Carol")
	openQuestion(t, s)

	clk.Advance(time.Second)
	require.NoError(t, s.SubmitAnswer("p1", 1, []string{"a2"})) // correct
	require.NoError(t, s.SubmitAnswer("p2", 1, []string{"a1"})) // wrong
	// Carol never answers.

	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	results, err := s.Results()
	require.NoError(t, err)
	require.Equal(t, 10.0, results.Leaderboard[0].Score)
	require.Equal(t, "Alice", results.Leaderboard[0].Name)
	require.Equal(t, 0.0, results.Leaderboard[1].Score)
	require.Equal(t, 0.0, results.Leaderboard[2].Score)

	stats := results.QuestionResults[0]
	require.Equal(t, 33, stats.PercentCorrect) // 1 of 3, rounded
	require.InDelta(t, 1.0, stats.AverageAnswerSeconds, 0.001)
	require.Equal(t, []string{"Alice"}, stats.CorrectPlayerNames)
}

func TestExactSetMatchRequired(t *testing.T) {
	multi := domain.Question{
		ID:              "q1",
		Prompt:          "Which are prime?",
		DurationSeconds: 30,
		Points:          10,
		Answers: []domain.Answer{
			{ID: "a1", Text: "2", Correct: true},
			{ID: "a2", Text: "4"},
			{ID: "a3", Text: "7", Correct: true},
		},
	}
	clk := newFakeClock()
	s := manualSession(t, clk, 0, multi)
	join(t, s, "p1", "Alice")
	join(t, s, "p2", "Bob")
	join(t, s, "p3", "Carol")
	openQuestion(t, s)

	clk.Advance(time.Second)
	require.NoError(t, s.SubmitAnswer("p1", 1, []string{"a3", "a1"})) // exact set, order free
	require.NoError(t, s.SubmitAnswer("p2", 1, []string{"a1"}))       // subset, wrong
	require.NoError(t, s.SubmitAnswer("p3", 1, []string{"a1", "a2", "a3"})) // superset, wrong

	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	results, err := s.Results()
	require.NoError(t, err)
	require.Equal(t, []string{"Alice"}, results.QuestionResults[0].CorrectPlayerNames)
	require.Equal(t, 10.0, results.Leaderboard[0].Score)
}

func TestSameTimestampTieBreaksBySubmissionOrder(t *testing.T) {
	clk := newFakeClock()
	s := manualSession(t, clk, 0)
	join(t, s, "p1", "Alice")
	join(t, s, "p2", "Bob")
	openQuestion(t, s)

	clk.Advance(time.Second)
	// Same clock reading for both; the earlier accepted submission
	// must take speed rank 1.
	require.NoError(t, s.SubmitAnswer("p2", 1, []string{"a2"}))
	require.NoError(t, s.SubmitAnswer("p1", 1, []string{"a2"}))

	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	results, err := s.Results()
	require.NoError(t, err)
	require.Equal(t, "Bob", results.Leaderboard[0].Name)
	require.Equal(t, 10.0, results.Leaderboard[0].Score)
	require.Equal(t, "Alice", results.Leaderboard[1].Name)
	require.Equal(t, 5.0, results.Leaderboard[1].Score)
}

func TestResubmissionReplacesEarlierAnswer(t *testing.T) {
	clk := newFakeClock()
	s := manualSession(t, clk, 0)
	join(t, s, "p1", "Alice")
	join(t, s, "p2", "Bob")
	openQuestion(t, s)

	clk.Advance(time.Second)
	require.NoError(t, s.SubmitAnswer("p1", 1, []string{"a2"}))
	clk.Advance(time.Second)
	require.NoError(t, s.SubmitAnswer("p2", 1, []string{"a1"}))
	// Bob corrects himself, but his new submission is now the later one.
	clk.Advance(time.Second)
	require.NoError(t, s.SubmitAnswer("p2", 1, []string{"a2"}))

	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	results, err := s.Results()
	require.NoError(t, err)
	require.Equal(t, "Alice", results.Leaderboard[0].Name)
	require.Equal(t, 10.0, results.Leaderboard[0].Score)
	require.Equal(t, 5.0, results.Leaderboard[1].Score)
}

func TestCompetitionRankingAcrossQuestions(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", DurationSeconds: 30, Points: 50, Answers: []domain.Answer{
			{ID: "a1", Text: "yes", Correct: true}, {ID: "a2", Text: "no"},
		}},
		{ID: "q2", DurationSeconds: 30, Points: 50, Answers: []domain.Answer{
			{ID: "a1", Text: "yes", Correct: true}, {ID: "a2", Text: "no"},
		}},
		{ID: "q3", DurationSeconds: 30, Points: 30, Answers: []domain.Answer{
			{ID: "a1", Text: "yes", Correct: true}, {ID: "a2", Text: "no"},
		}},
	}
	clk := newFakeClock()
	s := manualSession(t, clk, 0, questions...)
	join(t, s, "p1", "Alice")
	join(t, s, "p2", "Bob")
	join(t, s, "p3", "Carol")

	// Q1: only Alice answers (50). Q2: only Bob (50). Q3: only Carol (30).
	answers := []struct{ player string }{{"p1"}, {"p2"}, {"p3"}}
	for i, a := range answers {
		if i == 0 {
			openQuestion(t, s)
		} else {
			require.NoError(t, s.Apply(domain.ActionNextQuestion))
			require.NoError(t, s.Apply(domain.ActionSkipCountdown))
		}
		clk.Advance(time.Second)
		require.NoError(t, s.SubmitAnswer(a.player, i+1, []string{"a1"}))
		require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	}
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	results, err := s.Results()
	require.NoError(t, err)

	ranks := make([]int, 0, 3)
	scores := make([]float64, 0, 3)
	for _, e := range results.Leaderboard {
		ranks = append(ranks, e.Rank)
		scores = append(scores, e.Score)
	}
	require.Equal(t, []float64{50, 50, 30}, scores)
	// Standard competition ranking: ties share a rank, the next
	// distinct score resumes at its 1-based position.
	require.Equal(t, []int{1, 1, 3}, ranks)
}

func TestScoringIdempotentAfterAutoClose(t *testing.T) {
	s := app.NewSession("s1", "quiz-1", 0, testSnapshot(), app.Config{
		Countdown:        10 * time.Millisecond,
		QuestionTimeUnit: 100 * time.Millisecond, // question closes at ~200ms
	})
	join(t, s, "p1", "Alice")

	require.NoError(t, s.Apply(domain.ActionNextQuestion))
	require.Eventually(t, phaseIs(s, domain.PhaseQuestionOpen), time.Second, time.Millisecond)
	require.NoError(t, s.SubmitAnswer("p1", 1, []string{"a2"}))
	require.Eventually(t, phaseIs(s, domain.PhaseQuestionClose), 2*time.Second, time.Millisecond)

	// The auto-close already scored the question; these closing
	// transitions must not add points again.
	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	results, err := s.Results()
	require.NoError(t, err)
	require.Len(t, results.QuestionResults, 1)
	require.Equal(t, 10.0, results.Leaderboard[0].Score)
}

func TestCSVRowsOrderedByNameAndQuestion(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", DurationSeconds: 30, Points: 10, Answers: []domain.Answer{
			{ID: "a1", Text: "yes", Correct: true}, {ID: "a2", Text: "no"},
		}},
		{ID: "q2", DurationSeconds: 30, Points: 20, Answers: []domain.Answer{
			{ID: "a1", Text: "yes", Correct: true}, {ID: "a2", Text: "no"},
		}},
	}
	clk := newFakeClock()
	s := manualSession(t, clk, 0, questions...)
	join(t, s, "p1", "Zoe")
	join(t, s, "p2", "Ann")

	openQuestion(t, s)
	clk.Advance(time.Second)
	require.NoError(t, s.SubmitAnswer("p1", 1, []string{"a1"}))
	require.NoError(t, s.Apply(domain.ActionGoToAnswer))

	require.NoError(t, s.Apply(domain.ActionNextQuestion))
	require.NoError(t, s.Apply(domain.ActionSkipCountdown))
	clk.Advance(time.Second)
	require.NoError(t, s.SubmitAnswer("p2", 2, []string{"a1"}))
	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))

	rows, err := s.CSVRows()
	require.NoError(t, err)
	require.Equal(t, []domain.CSVRow{
		{PlayerName: "Ann", Scores: []domain.QuestionScore{{Score: 0, Rank: 2}, {Score: 20, Rank: 1}}},
		{PlayerName: "Zoe", Scores: []domain.QuestionScore{{Score: 10, Rank: 1}, {Score: 0, Rank: 2}}},
	}, rows)
}

func TestResultsGatedUntilFinalResults(t *testing.T) {
	clk := newFakeClock()
	s := manualSession(t, clk, 0)
	join(t, s, "p1", "Alice")
	openQuestion(t, s)

	_, err := s.Results()
	require.ErrorIs(t, err, domain.ErrResultsNotReady)
	_, err = s.CSVRows()
	require.ErrorIs(t, err, domain.ErrResultsNotReady)

	require.NoError(t, s.Apply(domain.ActionGoToAnswer))
	require.NoError(t, s.Apply(domain.ActionGoToFinalResults))
	_, err = s.Results()
	require.NoError(t, err)

	// Results stay readable after END.
	require.NoError(t, s.Apply(domain.ActionEnd))
	_, err = s.Results()
	require.NoError(t, err)
}
