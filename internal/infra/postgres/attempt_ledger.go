package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizarena-service/internal/domain"
)

// AttemptLedger stores one attempt per (quiz, user) pair in Postgres, backed
// by a uniqueness constraint on (quiz_id, user_id).
type AttemptLedger struct {
	pool *pgxpool.Pool
}

func NewAttemptLedger(pool *pgxpool.Pool) *AttemptLedger {
	return &AttemptLedger{pool: pool}
}

// Upsert is a single conditional write: insert the attempt, or update the
// existing row in place unless it is already completed. A completed row is
// never overwritten; in that case the existing record is re-read and returned
// so concurrent duplicate submissions converge on one scored outcome.
func (l *AttemptLedger) Upsert(ctx context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	rawAnswers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("marshal answers: %w", err)
	}

	stored := attempt
	err = l.pool.QueryRow(ctx, `
		INSERT INTO attempts (id, quiz_id, user_id, answers, score, total_score, completed, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (quiz_id, user_id) DO UPDATE
		SET answers      = EXCLUDED.answers,
		    score        = EXCLUDED.score,
		    total_score  = EXCLUDED.total_score,
		    completed    = EXCLUDED.completed,
		    completed_at = EXCLUDED.completed_at
		WHERE NOT attempts.completed
		RETURNING id, completed_at`,
		attempt.ID, attempt.QuizID, attempt.UserID, rawAnswers,
		attempt.Score, attempt.TotalScore, attempt.Completed, attempt.CompletedAt).
		Scan(&stored.ID, &stored.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// The slot is held by a completed attempt; someone else already wrote
		// this record. Return their result instead of erroring.
		existing, err := l.GetByQuizAndUser(ctx, attempt.QuizID, attempt.UserID)
		if err != nil {
			return domain.Attempt{}, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("upsert attempt: %w", err)
	}
	return stored, true, nil
}

func (l *AttemptLedger) GetByQuizAndUser(ctx context.Context, quizID, userID string) (domain.Attempt, error) {
	var (
		attempt    = domain.Attempt{QuizID: quizID, UserID: userID}
		rawAnswers []byte
	)
	err := l.pool.QueryRow(ctx, `
		SELECT id, answers, score, total_score, completed, completed_at
		FROM attempts
		WHERE quiz_id = $1 AND user_id = $2`, quizID, userID).
		Scan(&attempt.ID, &rawAnswers, &attempt.Score, &attempt.TotalScore, &attempt.Completed, &attempt.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	if len(rawAnswers) > 0 {
		if err := json.Unmarshal(rawAnswers, &attempt.Answers); err != nil {
			return domain.Attempt{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	return attempt, nil
}

func (l *AttemptLedger) ListCompletedByUser(ctx context.Context, userID string) ([]domain.AttemptSummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.id, a.quiz_id, q.title, COALESCE(q.description, ''),
		       a.score, a.total_score, a.completed_at
		FROM attempts a
		JOIN quizzes q ON q.id = a.quiz_id
		WHERE a.user_id = $1 AND a.completed
		ORDER BY a.completed_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var summaries []domain.AttemptSummary
	for rows.Next() {
		var s domain.AttemptSummary
		if err := rows.Scan(&s.AttemptID, &s.QuizID, &s.QuizTitle, &s.QuizDescription,
			&s.Score, &s.TotalScore, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// RankingsByQuiz orders completed attempts by score descending; equal scores
// rank the earlier completion first. The user mirror supplies display names
// and may lag identity sync, hence the left join.
func (l *AttemptLedger) RankingsByQuiz(ctx context.Context, quizID string) ([]domain.RankingEntry, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.user_id, COALESCE(u.email, ''), COALESCE(u.first_name, ''), COALESCE(u.last_name, ''),
		       a.score, a.total_score, a.completed_at
		FROM attempts a
		LEFT JOIN users u ON u.id = a.user_id
		WHERE a.quiz_id = $1 AND a.completed
		ORDER BY a.score DESC, a.completed_at ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load rankings: %w", err)
	}
	defer rows.Close()

	var entries []domain.RankingEntry
	for rows.Next() {
		var (
			entry domain.RankingEntry
			user  domain.User
		)
		if err := rows.Scan(&entry.UserID, &user.Email, &user.FirstName, &user.LastName,
			&entry.Score, &entry.TotalScore, &entry.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		entry.Name = user.DisplayName()
		if entry.Name == "" {
			entry.Name = entry.UserID
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
