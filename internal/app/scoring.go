package app

import (
	"math"
	"sort"

	"live-quiz-service/internal/domain"
)

// closeScoringLocked runs the scoring pass for the current question.
// The phase guard makes it idempotent: it only executes while the
// question is still QUESTION_OPEN, so a question is scored exactly once
// no matter how many closing transitions touch it.
func (s *Session) closeScoringLocked() {
	if s.phase != domain.PhaseQuestionOpen {
		return
	}

	question := s.currentQuestionLocked()
	correct := question.CorrectAnswerIDs()

	type submission struct {
		playerID string
		rec      *answerRecord
		correct  bool
	}
	subs := make([]submission, 0, len(s.answers))
	for id, rec := range s.answers {
		subs = append(subs, submission{playerID: id, rec: rec, correct: rec.matches(correct)})
	}
	// Earliest submission first. The per-question sequence number is
	// the tie break for identical timestamps: the earlier accepted
	// submission wins.
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].rec.at.Equal(subs[j].rec.at) {
			return subs[i].rec.at.Before(subs[j].rec.at)
		}
		return subs[i].rec.seq < subs[j].rec.seq
	})

	// Among correct submissions, the N-th fastest earns
	// round(points/N * 10) / 10. Incorrect or missing submissions
	// score 0 for the question.
	questionScores := make(map[string]float64, len(subs))
	var correctNames []string
	var latencySum float64
	speedRank := 0
	for _, sub := range subs {
		latencySum += sub.rec.at.Sub(s.openedAt).Seconds()
		if !sub.correct {
			continue
		}
		speedRank++
		score := math.Round(float64(question.Points)*(1.0/float64(speedRank))*10) / 10
		questionScores[sub.playerID] = score
		if p := s.playerLocked(sub.playerID); p != nil {
			correctNames = append(correctNames, p.name)
		}
	}

	for id, score := range questionScores {
		s.totals[id] += score
	}
	s.rebuildLeaderboardLocked()

	rankByPlayer := make(map[string]int, len(s.leaderboard))
	for _, entry := range s.leaderboard {
		rankByPlayer[entry.PlayerID] = entry.Rank
	}
	for _, p := range s.players {
		rec, ok := s.csv[p.id]
		if !ok {
			continue
		}
		rec.scores = append(rec.scores, domain.QuestionScore{
			Score: questionScores[p.id],
			Rank:  rankByPlayer[p.id],
		})
	}

	percent := 0
	if len(s.players) > 0 {
		percent = int(math.Round(float64(len(correctNames)) / float64(len(s.players)) * 100))
	}
	average := 0.0
	if len(subs) > 0 {
		average = math.Round(latencySum/float64(len(subs))*10) / 10
	}
	sort.Strings(correctNames)
	s.results = append(s.results, domain.QuestionResult{
		Position:             s.questionIndex,
		CorrectPlayerNames:   correctNames,
		PercentCorrect:       percent,
		AverageAnswerSeconds: average,
	})

	// The transient answer log only lives between open and scoring.
	s.answers = nil
}

// rebuildLeaderboardLocked re-sorts cumulative totals and assigns
// competition ranks: tied scores share a rank, the next distinct score
// resumes at its 1-based position.
func (s *Session) rebuildLeaderboardLocked() {
	entries := make([]domain.ScoreEntry, 0, len(s.totals))
	for id, total := range s.totals {
		name := ""
		if p := s.playerLocked(id); p != nil {
			name = p.name
		}
		entries = append(entries, domain.ScoreEntry{PlayerID: id, Name: name, Score: total})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	s.leaderboard = entries
}
