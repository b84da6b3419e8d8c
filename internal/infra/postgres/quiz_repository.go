package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizarena-service/internal/domain"
)

// QuizRepository stores quizzes and their questions in Postgres.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const quizColumns = `id, title, COALESCE(description, ''), created_by, duration,
	scheduled_start, scheduled_end, active, total_questions, created_at`

func (r *QuizRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Quiz, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+quizColumns+`
		FROM quizzes
		WHERE active
		  AND (scheduled_end IS NULL OR scheduled_end > $1)
		  AND (scheduled_start IS NULL OR scheduled_start < $1)
		ORDER BY created_at DESC`, now)
	if err != nil {
		return nil, fmt.Errorf("list active quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (r *QuizRepository) GetByID(ctx context.Context, id string) (domain.Quiz, []domain.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id)
	quiz, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, nil, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, prompt, type, options, correct_answer, points, position
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position`, id)
	if err != nil {
		return domain.Quiz{}, nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q := domain.Question{QuizID: id}
		var rawOptions []byte
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Type, &rawOptions, &q.CorrectAnswer, &q.Points, &q.Position); err != nil {
			return domain.Quiz{}, nil, fmt.Errorf("scan question: %w", err)
		}
		if len(rawOptions) > 0 {
			if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
				return domain.Quiz{}, nil, fmt.Errorf("unmarshal options: %w", err)
			}
		}
		questions = append(questions, q)
	}
	return quiz, questions, rows.Err()
}

// Create writes the quiz and all of its questions in one transaction, so a
// failed question insert never leaves an orphaned quiz visible to readers.
func (r *QuizRepository) Create(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO quizzes (id, title, description, created_by, duration,
			scheduled_start, scheduled_end, active, total_questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		quiz.ID, quiz.Title, quiz.Description, quiz.CreatedBy, quiz.Duration,
		quiz.ScheduledStart, quiz.ScheduledEnd, quiz.Active, quiz.TotalQuestions, quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		var rawOptions []byte
		if q.Options != nil {
			rawOptions, err = json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
		}
		batch.Queue(`
			INSERT INTO questions (id, quiz_id, prompt, type, options, correct_answer, points, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ID, q.QuizID, q.Prompt, q.Type, rawOptions, q.CorrectAnswer, q.Points, q.Position)
	}
	results := tx.SendBatch(ctx, batch)
	for range questions {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert question: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.CreatedBy, &quiz.Duration,
		&quiz.ScheduledStart, &quiz.ScheduledEnd, &quiz.Active, &quiz.TotalQuestions, &quiz.CreatedAt)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}
