package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizarena-service/internal/domain"
)

// QuizRepository is an in-memory quiz store, used for tests and for running
// the service without a database.
type QuizRepository struct {
	mu        sync.RWMutex
	quizzes   map[string]domain.Quiz
	questions map[string][]domain.Question
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		quizzes:   make(map[string]domain.Quiz),
		questions: make(map[string][]domain.Question),
	}
}

func (r *QuizRepository) ListActive(_ context.Context, now time.Time) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var visible []domain.Quiz
	for _, quiz := range r.quizzes {
		if domain.VisibleAt(quiz, now) {
			visible = append(visible, quiz)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		return visible[i].CreatedAt.After(visible[j].CreatedAt)
	})
	return visible, nil
}

func (r *QuizRepository) GetByID(_ context.Context, id string) (domain.Quiz, []domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, nil, domain.ErrQuizNotFound
	}
	questions := make([]domain.Question, len(r.questions[id]))
	copy(questions, r.questions[id])
	return quiz, questions, nil
}

func (r *QuizRepository) Create(_ context.Context, quiz domain.Quiz, questions []domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := make([]domain.Question, len(questions))
	copy(stored, questions)
	r.quizzes[quiz.ID] = quiz
	r.questions[quiz.ID] = stored
	return nil
}
