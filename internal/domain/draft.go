package domain

import (
	"fmt"
	"time"
)

// QuizDraft is an administrator's request to create a quiz together with its
// questions. A quiz with zero questions is invalid for publication, so the
// two are only ever persisted as one unit.
type QuizDraft struct {
	Title          string
	Description    string
	Duration       int // minutes
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	Questions      []QuestionDraft
}

// QuestionDraft is one question inside a QuizDraft.
type QuestionDraft struct {
	Prompt        string
	Type          QuestionType
	Options       map[string]string
	CorrectAnswer string
	Points        int
}

// Validate checks the draft field by field and returns every problem found.
func (d QuizDraft) Validate() error {
	var errs ValidationErrors
	if d.Title == "" {
		errs.add("title", "is required")
	}
	if d.Duration <= 0 {
		errs.add("duration", "must be greater than zero")
	}
	if d.ScheduledStart != nil && d.ScheduledEnd != nil && !d.ScheduledStart.Before(*d.ScheduledEnd) {
		errs.add("scheduledStart", "must be before scheduledEnd")
	}
	if len(d.Questions) == 0 {
		errs.add("questions", "at least one question is required")
	}
	for i, q := range d.Questions {
		q.validate(&errs, fmt.Sprintf("questions[%d]", i))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (q QuestionDraft) validate(errs *ValidationErrors, field string) {
	if q.Prompt == "" {
		errs.add(field+".prompt", "is required")
	}
	if q.Points < 0 {
		errs.add(field+".points", "must not be negative")
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Options) < 2 {
			errs.add(field+".options", "multiple-choice needs at least two options")
		}
		if _, ok := q.Options[q.CorrectAnswer]; !ok {
			errs.add(field+".correctAnswer", "%q is not an option key", q.CorrectAnswer)
		}
	case TrueFalse:
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			errs.add(field+".correctAnswer", `must be "true" or "false"`)
		}
	case ShortAnswer:
		if q.CorrectAnswer == "" {
			errs.add(field+".correctAnswer", "is required")
		}
	default:
		errs.add(field+".type", "unknown question type %q", q.Type)
	}
}
