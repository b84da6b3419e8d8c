package domain

import "math"

// Score grades a submitted answer map against a quiz's question set. Every
// question contributes its point value to the total, answered or not; an
// answer counts only on an exact match with the question's correct answer.
// The function is deterministic and side-effect-free.
func Score(questions []Question, answers map[string]string) (score, totalScore int) {
	for _, q := range questions {
		points := q.PointValue()
		totalScore += points
		submitted, ok := answers[q.ID]
		if !ok {
			continue
		}
		if answerMatches(q, submitted) {
			score += points
		}
	}
	return score, totalScore
}

// answerMatches compares a submitted value against the correct answer.
// All three question types reduce to an exact, case-sensitive string compare:
// the option key for multiple-choice, "true"/"false" for true-false, and the
// literal text for short-answer.
func answerMatches(q Question, submitted string) bool {
	return submitted == q.CorrectAnswer
}

// Percentage converts a score pair into a rounded whole percentage.
func Percentage(score, totalScore int) int {
	if totalScore <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(totalScore)))
}

// Result bundles a scored pair with its percentage.
func Result(score, totalScore int) AttemptResult {
	return AttemptResult{
		Score:      score,
		TotalScore: totalScore,
		Percentage: Percentage(score, totalScore),
	}
}
