package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"quizarena-service/internal/domain"
)

// QuizRepository abstracts how quizzes and their questions are stored
// (Postgres, in-memory, Redis-cached).
type QuizRepository interface {
	// ListActive returns quizzes visible at now, newest-created first.
	ListActive(ctx context.Context, now time.Time) ([]domain.Quiz, error)
	// GetByID returns a quiz with its questions in position order, or
	// domain.ErrQuizNotFound.
	GetByID(ctx context.Context, id string) (domain.Quiz, []domain.Question, error)
	// Create persists the quiz and its questions as one atomic unit; a
	// failed question write must not leave the quiz visible to readers.
	Create(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error
}

// AttemptRepository is the attempt ledger.
type AttemptRepository interface {
	// Upsert writes the attempt keyed on (quizID, userID) as a single
	// conditional write: insert if absent, update if present and not yet
	// completed. It returns the stored attempt and whether this write was
	// applied; when a completed record already won the slot, the existing
	// record comes back with applied=false and is never overwritten.
	Upsert(ctx context.Context, attempt domain.Attempt) (stored domain.Attempt, applied bool, err error)
	// GetByQuizAndUser returns the attempt or domain.ErrAttemptNotFound.
	GetByQuizAndUser(ctx context.Context, quizID, userID string) (domain.Attempt, error)
	// ListCompletedByUser returns the user's completed attempts joined with
	// quiz titles, newest completion first.
	ListCompletedByUser(ctx context.Context, userID string) ([]domain.AttemptSummary, error)
	// RankingsByQuiz returns completed attempts joined with the user mirror,
	// ordered by score descending, ties broken by earlier completion.
	RankingsByQuiz(ctx context.Context, quizID string) ([]domain.RankingEntry, error)
}

// UserDirectory is the local mirror of the external identity store.
type UserDirectory interface {
	Get(ctx context.Context, id string) (domain.User, error)
	Upsert(ctx context.Context, user domain.User) error
}

// AdminDirectory answers whether a user may call administrator operations.
// Admin policy lives outside the core; this is the only capability it consumes.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// QuizService contains the quiz attempt lifecycle use cases.
type QuizService struct {
	quizzes  QuizRepository
	attempts AttemptRepository
	users    UserDirectory
	admins   AdminDirectory
	feed     *RankingsFeed
	now      func() time.Time
}

func NewQuizService(quizzes QuizRepository, attempts AttemptRepository, users UserDirectory, admins AdminDirectory) *QuizService {
	return &QuizService{
		quizzes:  quizzes,
		attempts: attempts,
		users:    users,
		admins:   admins,
		feed:     NewRankingsFeed(),
		now:      time.Now,
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// ListActive returns the quizzes currently open for attempts.
func (s *QuizService) ListActive(ctx context.Context) ([]domain.Quiz, error) {
	return s.quizzes.ListActive(ctx, s.now())
}

// GetQuiz returns a quiz with its questions after an advisory availability
// check for the calling user. The authoritative check runs again at
// submission time; this one only exists so clients can show a precise
// message before the user starts answering.
func (s *QuizService) GetQuiz(ctx context.Context, quizID, userID string) (domain.Quiz, []domain.Question, error) {
	quiz, questions, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}

	prior, err := s.priorAttempt(ctx, quizID, userID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	if err := domain.CheckAttemptable(quiz, prior, s.now()); err != nil {
		return domain.Quiz{}, nil, err
	}
	return quiz, questions, nil
}

// Submit scores the submitted answers against the quiz's current question set
// and records the attempt. The availability gate runs authoritatively here;
// on failure nothing is written. The write itself is an atomic conditional
// upsert, so two near-simultaneous submissions converge on a single stored
// attempt and both callers receive that attempt's result.
func (s *QuizService) Submit(ctx context.Context, quizID, userID string, answers map[string]string) (domain.AttemptResult, error) {
	quiz, questions, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return domain.AttemptResult{}, err
	}

	now := s.now()
	prior, err := s.priorAttempt(ctx, quizID, userID)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if err := domain.CheckAttemptable(quiz, prior, now); err != nil {
		return domain.AttemptResult{}, err
	}

	score, totalScore := domain.Score(questions, answers)
	attempt := domain.Attempt{
		ID:          uuid.NewString(),
		QuizID:      quizID,
		UserID:      userID,
		Answers:     answers,
		Score:       score,
		TotalScore:  totalScore,
		Completed:   true,
		CompletedAt: now,
	}

	stored, applied, err := s.attempts.Upsert(ctx, attempt)
	if err != nil {
		return domain.AttemptResult{}, fmt.Errorf("record attempt: %w", err)
	}
	if applied {
		s.publishRankings(ctx, quizID)
	}
	// When the write lost a race against a concurrent completion, the stored
	// record carries the result that actually counts.
	return domain.Result(stored.Score, stored.TotalScore), nil
}

// GetAttempt returns the caller's attempt for a quiz, if any.
func (s *QuizService) GetAttempt(ctx context.Context, quizID, userID string) (domain.Attempt, error) {
	return s.attempts.GetByQuizAndUser(ctx, quizID, userID)
}

// UserAttempts lists the caller's completed attempts, newest first.
func (s *QuizService) UserAttempts(ctx context.Context, userID string) ([]domain.AttemptSummary, error) {
	return s.attempts.ListCompletedByUser(ctx, userID)
}

// Rankings returns the leaderboard for a quiz.
func (s *QuizService) Rankings(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	if _, _, err := s.quizzes.GetByID(ctx, quizID); err != nil {
		return domain.Leaderboard{}, err
	}
	entries, err := s.attempts.RankingsByQuiz(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{QuizID: quizID, Entries: entries, UpdatedAt: s.now()}, nil
}

// SubscribeRankings returns a channel of leaderboard snapshots for a quiz,
// starting with the current one. The caller must invoke cancel to avoid leaks.
func (s *QuizService) SubscribeRankings(ctx context.Context, quizID string) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Rankings(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(quizID, initial)
	return ch, cancel, nil
}

// CreateQuiz validates the draft and persists the quiz together with its
// questions. Only administrators may call it.
func (s *QuizService) CreateQuiz(ctx context.Context, callerID string, draft domain.QuizDraft) (domain.Quiz, error) {
	ok, err := s.admins.IsAdmin(ctx, callerID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("admin lookup: %w", err)
	}
	if !ok {
		return domain.Quiz{}, domain.ErrForbidden
	}
	if err := draft.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	quiz := domain.Quiz{
		ID:             uuid.NewString(),
		Title:          draft.Title,
		Description:    draft.Description,
		CreatedBy:      callerID,
		Duration:       draft.Duration,
		ScheduledStart: draft.ScheduledStart,
		ScheduledEnd:   draft.ScheduledEnd,
		Active:         true,
		TotalQuestions: len(draft.Questions),
		CreatedAt:      now,
	}
	questions := make([]domain.Question, len(draft.Questions))
	for i, qd := range draft.Questions {
		points := qd.Points
		if points == 0 {
			points = 1
		}
		questions[i] = domain.Question{
			ID:            uuid.NewString(),
			QuizID:        quiz.ID,
			Prompt:        qd.Prompt,
			Type:          qd.Type,
			Options:       qd.Options,
			CorrectAnswer: qd.CorrectAnswer,
			Points:        points,
			Position:      i,
		}
	}

	if err := s.quizzes.Create(ctx, quiz, questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// SyncUser upserts the local mirror of an external identity record.
func (s *QuizService) SyncUser(ctx context.Context, user domain.User) error {
	return s.users.Upsert(ctx, user)
}

// GetUser reads the user mirror.
func (s *QuizService) GetUser(ctx context.Context, id string) (domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *QuizService) priorAttempt(ctx context.Context, quizID, userID string) (*domain.Attempt, error) {
	attempt, err := s.attempts.GetByQuizAndUser(ctx, quizID, userID)
	switch {
	case err == nil:
		return &attempt, nil
	case err == domain.ErrAttemptNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("load prior attempt: %w", err)
	}
}

func (s *QuizService) publishRankings(ctx context.Context, quizID string) {
	entries, err := s.attempts.RankingsByQuiz(ctx, quizID)
	if err != nil {
		log.Printf("rankings refresh for %s failed: %v", quizID, err)
		return
	}
	s.feed.Publish(quizID, domain.Leaderboard{QuizID: quizID, Entries: entries, UpdatedAt: s.now()})
}
