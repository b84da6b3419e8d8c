package memory

import (
	"context"
	"sort"
	"sync"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
)

type attemptKey struct {
	quizID string
	userID string
}

// AttemptLedger keeps one attempt per (quiz, user) pair in memory with the
// same conditional-upsert semantics as the Postgres ledger.
type AttemptLedger struct {
	quizzes app.QuizRepository
	users   app.UserDirectory

	mu       sync.RWMutex
	attempts map[attemptKey]domain.Attempt
}

func NewAttemptLedger(quizzes app.QuizRepository, users app.UserDirectory) *AttemptLedger {
	return &AttemptLedger{
		quizzes:  quizzes,
		users:    users,
		attempts: make(map[attemptKey]domain.Attempt),
	}
}

func (l *AttemptLedger) Upsert(_ context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := attemptKey{quizID: attempt.QuizID, userID: attempt.UserID}
	if existing, ok := l.attempts[key]; ok {
		if existing.Completed {
			// A completed attempt is never overwritten.
			return existing, false, nil
		}
		attempt.ID = existing.ID
	}
	l.attempts[key] = attempt
	return attempt, true, nil
}

func (l *AttemptLedger) GetByQuizAndUser(_ context.Context, quizID, userID string) (domain.Attempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	attempt, ok := l.attempts[attemptKey{quizID: quizID, userID: userID}]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

func (l *AttemptLedger) ListCompletedByUser(ctx context.Context, userID string) ([]domain.AttemptSummary, error) {
	l.mu.RLock()
	var completed []domain.Attempt
	for key, attempt := range l.attempts {
		if key.userID == userID && attempt.Completed {
			completed = append(completed, attempt)
		}
	}
	l.mu.RUnlock()

	var summaries []domain.AttemptSummary
	for _, attempt := range completed {
		summary := domain.AttemptSummary{
			AttemptID:   attempt.ID,
			QuizID:      attempt.QuizID,
			Score:       attempt.Score,
			TotalScore:  attempt.TotalScore,
			CompletedAt: attempt.CompletedAt,
		}
		if quiz, _, err := l.quizzes.GetByID(ctx, attempt.QuizID); err == nil {
			summary.QuizTitle = quiz.Title
			summary.QuizDescription = quiz.Description
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CompletedAt.After(summaries[j].CompletedAt)
	})
	return summaries, nil
}

func (l *AttemptLedger) RankingsByQuiz(ctx context.Context, quizID string) ([]domain.RankingEntry, error) {
	l.mu.RLock()
	var completed []domain.Attempt
	for key, attempt := range l.attempts {
		if key.quizID == quizID && attempt.Completed {
			completed = append(completed, attempt)
		}
	}
	l.mu.RUnlock()

	var entries []domain.RankingEntry
	for _, attempt := range completed {
		entry := domain.RankingEntry{
			UserID:      attempt.UserID,
			Name:        attempt.UserID,
			Score:       attempt.Score,
			TotalScore:  attempt.TotalScore,
			CompletedAt: attempt.CompletedAt,
		}
		if user, err := l.users.Get(ctx, attempt.UserID); err == nil {
			if name := user.DisplayName(); name != "" {
				entry.Name = name
			}
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		// Equal scores: whoever completed earlier ranks higher.
		if !entries[i].CompletedAt.Equal(entries[j].CompletedAt) {
			return entries[i].CompletedAt.Before(entries[j].CompletedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}
