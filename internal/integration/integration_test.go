package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/memory"
	pgstore "quizarena-service/internal/infra/postgres"
	pgmigrations "quizarena-service/internal/infra/postgres/migrations"
	redcache "quizarena-service/internal/infra/redis"
)

func TestAttemptLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	var quizRepo app.QuizRepository = pgstore.NewQuizRepository(pool)
	quizRepo = redcache.NewQuizCache(redisClient, quizRepo, 5*time.Minute)
	attempts := pgstore.NewAttemptLedger(pool)
	users := pgstore.NewUserDirectory(pool)
	admins := memory.NewStaticAdminDirectory([]string{"admin-1"})
	service := app.NewQuizService(quizRepo, attempts, users, admins)

	if err := service.SyncUser(ctx, domain.User{ID: "u1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}); err != nil {
		t.Fatalf("sync user: %v", err)
	}

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	quiz, err := service.CreateQuiz(ctx, "admin-1", domain.QuizDraft{
		Title:          "Integration",
		Duration:       10,
		ScheduledStart: &start,
		ScheduledEnd:   &end,
		Questions: []domain.QuestionDraft{
			{
				Prompt:        "What is 2 + 2?",
				Type:          domain.MultipleChoice,
				Options:       map[string]string{"a": "3", "b": "4"},
				CorrectAnswer: "b",
			},
			{
				Prompt:        "The sky is green.",
				Type:          domain.TrueFalse,
				CorrectAnswer: "false",
			},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	_, questions, err := service.GetQuiz(ctx, quiz.ID, "u1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	result, err := service.Submit(ctx, quiz.ID, "u1", map[string]string{
		questions[0].ID: "b",
		questions[1].ID: "true",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.TotalScore != 2 || result.Percentage != 50 {
		t.Fatalf("expected {1 2 50}, got %+v", result)
	}

	// Duplicate submission is rejected and leaves one row behind.
	if _, err := service.Submit(ctx, quiz.ID, "u1", map[string]string{}); !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM attempts WHERE quiz_id=$1 AND user_id=$2`, quiz.ID, "u1").Scan(&count); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one attempt row, got %d", count)
	}

	lb, err := service.Rankings(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("rankings: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Name != "Ada Lovelace" || lb.Entries[0].Score != 1 {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}

	history, err := service.UserAttempts(ctx, "u1")
	if err != nil {
		t.Fatalf("user attempts: %v", err)
	}
	if len(history) != 1 || history[0].QuizTitle != "Integration" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestConditionalUpsertUnderConflict(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()
	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	quizzes := pgstore.NewQuizRepository(pool)
	quiz := domain.Quiz{ID: "11111111-1111-1111-1111-111111111111", Title: "Race", CreatedBy: "admin", Duration: 5, Active: true, TotalQuestions: 1, CreatedAt: time.Now()}
	question := domain.Question{ID: "22222222-2222-2222-2222-222222222222", QuizID: quiz.ID, Prompt: "?", Type: domain.TrueFalse, CorrectAnswer: "true", Points: 1}
	if err := quizzes.Create(ctx, quiz, []domain.Question{question}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	ledger := pgstore.NewAttemptLedger(pool)
	now := time.Now()

	winner := domain.Attempt{
		ID: "33333333-3333-3333-3333-333333333333", QuizID: quiz.ID, UserID: "u1",
		Answers: map[string]string{question.ID: "true"}, Score: 1, TotalScore: 1,
		Completed: true, CompletedAt: now,
	}
	stored, applied, err := ledger.Upsert(ctx, winner)
	if err != nil || !applied {
		t.Fatalf("expected first write applied, got applied=%v err=%v", applied, err)
	}
	if stored.Score != 1 {
		t.Fatalf("unexpected stored attempt: %+v", stored)
	}

	// A second completed write for the same slot must not overwrite; it
	// converges on the winner's record.
	loser := domain.Attempt{
		ID: "44444444-4444-4444-4444-444444444444", QuizID: quiz.ID, UserID: "u1",
		Answers: map[string]string{}, Score: 0, TotalScore: 1,
		Completed: true, CompletedAt: now.Add(time.Second),
	}
	stored, applied, err = ledger.Upsert(ctx, loser)
	if err != nil {
		t.Fatalf("upsert loser: %v", err)
	}
	if applied {
		t.Fatalf("completed attempt was overwritten")
	}
	if stored.ID != winner.ID || stored.Score != 1 {
		t.Fatalf("expected winner's record back, got %+v", stored)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
