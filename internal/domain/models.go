package domain

import "time"

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	ShortAnswer    QuestionType = "short-answer"
)

// Quiz is the catalog entry for one scheduled quiz. ScheduledStart and
// ScheduledEnd are optional; a nil bound leaves the window open on that side.
type Quiz struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	CreatedBy      string     `json:"createdBy"`
	Duration       int        `json:"duration"` // minutes
	ScheduledStart *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduledEnd,omitempty"`
	Active         bool       `json:"active"`
	TotalQuestions int        `json:"totalQuestions"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Question belongs to exactly one quiz. Options is populated only for
// multiple-choice questions and maps option key to option text.
type Question struct {
	ID            string            `json:"id"`
	QuizID        string            `json:"quizId"`
	Prompt        string            `json:"prompt"`
	Type          QuestionType      `json:"type"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer string            `json:"correctAnswer"`
	Points        int               `json:"points"` // defaults to 1 if zero
	Position      int               `json:"position"`
}

// PointValue returns the question's score weight.
func (q Question) PointValue() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Attempt is the single ledger record for one (quiz, user) pair.
type Attempt struct {
	ID          string            `json:"id"`
	QuizID      string            `json:"quizId"`
	UserID      string            `json:"userId"`
	Answers     map[string]string `json:"answers"`
	Score       int               `json:"score"`
	TotalScore  int               `json:"totalScore"`
	Completed   bool              `json:"completed"`
	CompletedAt time.Time         `json:"completedAt"`
}

// AttemptResult is what a submitter gets back.
type AttemptResult struct {
	Score      int `json:"score"`
	TotalScore int `json:"totalScore"`
	Percentage int `json:"percentage"`
}

// AttemptSummary is one row of a user's attempt history, joined with the quiz.
type AttemptSummary struct {
	AttemptID       string    `json:"attemptId"`
	QuizID          string    `json:"quizId"`
	QuizTitle       string    `json:"quizTitle"`
	QuizDescription string    `json:"quizDescription,omitempty"`
	Score           int       `json:"score"`
	TotalScore      int       `json:"totalScore"`
	CompletedAt     time.Time `json:"completedAt"`
}

// RankingEntry is one leaderboard row, joined with the user mirror for display.
type RankingEntry struct {
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	TotalScore  int       `json:"totalScore"`
	CompletedAt time.Time `json:"completedAt"`
}

// Leaderboard captures the ordered ranking snapshot for a quiz.
type Leaderboard struct {
	QuizID    string         `json:"quizId"`
	Entries   []RankingEntry `json:"entries"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// User is the local mirror of an external identity record. The service does
// not own identity; it only keeps names and emails for display.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// DisplayName renders "First Last", falling back to the email when the
// external directory never supplied names.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}
