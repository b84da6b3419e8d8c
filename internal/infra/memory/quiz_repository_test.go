package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizarena-service/internal/domain"
)

func TestListActiveOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	older := domain.Quiz{ID: "q-old", Title: "Old", Active: true, CreatedAt: now.Add(-time.Hour)}
	newer := domain.Quiz{ID: "q-new", Title: "New", Active: true, CreatedAt: now}
	hidden := domain.Quiz{ID: "q-off", Title: "Off", Active: false, CreatedAt: now}

	for _, quiz := range []domain.Quiz{older, newer, hidden} {
		if err := repo.Create(ctx, quiz, []domain.Question{{ID: quiz.ID + "-q1", QuizID: quiz.ID}}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	active, err := repo.ListActive(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active quizzes, got %d", len(active))
	}
	if active[0].ID != "q-new" || active[1].ID != "q-old" {
		t.Fatalf("expected newest first, got %s then %s", active[0].ID, active[1].ID)
	}
}

func TestGetByIDReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewQuizRepository()

	quiz := domain.Quiz{ID: "quiz-1", Title: "Quiz", Active: true}
	questions := []domain.Question{{ID: "q1", QuizID: "quiz-1", Prompt: "?"}}
	if err := repo.Create(ctx, quiz, questions); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, got, err := repo.GetByID(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got[0].Prompt = "mutated"

	_, again, _ := repo.GetByID(ctx, "quiz-1")
	if again[0].Prompt != "?" {
		t.Fatalf("stored questions were mutated through a returned slice")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewQuizRepository()
	_, _, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}
