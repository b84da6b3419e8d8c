package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCheckAttemptable(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name  string
		quiz  Quiz
		prior *Attempt
		want  error
	}{
		{
			name: "open window, no prior attempt",
			quiz: Quiz{Active: true, ScheduledStart: &past, ScheduledEnd: &future},
		},
		{
			name: "unbounded window",
			quiz: Quiz{Active: true},
		},
		{
			name: "inactive quiz reads as not found",
			quiz: Quiz{Active: false},
			want: ErrQuizNotFound,
		},
		{
			name: "before scheduled start",
			quiz: Quiz{Active: true, ScheduledStart: &future},
			want: ErrQuizNotStarted,
		},
		{
			name: "after scheduled end",
			quiz: Quiz{Active: true, ScheduledEnd: &past},
			want: ErrQuizExpired,
		},
		{
			name:  "completed prior attempt",
			quiz:  Quiz{Active: true},
			prior: &Attempt{Completed: true},
			want:  ErrAlreadyCompleted,
		},
		{
			name:  "incomplete prior attempt may resubmit",
			quiz:  Quiz{Active: true},
			prior: &Attempt{Completed: false},
		},
		{
			name: "submission exactly at scheduled end is allowed",
			quiz: Quiz{Active: true, ScheduledEnd: &now},
		},
		{
			name: "submission exactly at scheduled start is allowed",
			quiz: Quiz{Active: true, ScheduledStart: &now},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAttemptable(tc.quiz, tc.prior, now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVisibleAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	if !VisibleAt(Quiz{Active: true, ScheduledStart: &past, ScheduledEnd: &future}, now) {
		t.Fatalf("quiz inside window should be visible")
	}
	if !VisibleAt(Quiz{Active: true}, now) {
		t.Fatalf("unbounded quiz should be visible")
	}
	if VisibleAt(Quiz{Active: false}, now) {
		t.Fatalf("inactive quiz should be hidden")
	}
	if VisibleAt(Quiz{Active: true, ScheduledStart: &future}, now) {
		t.Fatalf("quiz before its start should be hidden")
	}
	if VisibleAt(Quiz{Active: true, ScheduledEnd: &past}, now) {
		t.Fatalf("quiz past its end should be hidden")
	}
}
