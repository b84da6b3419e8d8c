package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizarena-service/internal/app"
	"quizarena-service/internal/config"
	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/memory"
	pgstore "quizarena-service/internal/infra/postgres"
	redcache "quizarena-service/internal/infra/redis"
	transport "quizarena-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz platform server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var (
		quizRepo app.QuizRepository
		attempts app.AttemptRepository
		users    app.UserDirectory
	)
	if pool != nil {
		quizRepo = pgstore.NewQuizRepository(pool)
		attempts = pgstore.NewAttemptLedger(pool)
		users = pgstore.NewUserDirectory(pool)
	} else {
		log.Printf("no postgres configured, serving demo fixtures from memory")
		memQuizzes := memory.NewQuizRepository()
		seedDemoQuiz(ctx, memQuizzes)
		memUsers := memory.NewUserDirectory()
		quizRepo = memQuizzes
		attempts = memory.NewAttemptLedger(memQuizzes, memUsers)
		users = memUsers
	}

	if redisClient != nil {
		cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
		quizRepo = redcache.NewQuizCache(redisClient, quizRepo, cacheTTL)
	}

	admins := memory.NewStaticAdminDirectory(cfg.Admins)
	service := app.NewQuizService(quizRepo, attempts, users, admins)
	handler := transport.NewHandler(service)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz platform on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedDemoQuiz loads a minimal quiz so the service is usable without a database.
func seedDemoQuiz(ctx context.Context, repo *memory.QuizRepository) {
	quiz := domain.Quiz{
		ID:             "quiz-demo",
		Title:          "General Knowledge Warm-up",
		Description:    "Two quick questions to try the platform.",
		CreatedBy:      "system",
		Duration:       5,
		Active:         true,
		TotalQuestions: 2,
		CreatedAt:      time.Now(),
	}
	questions := []domain.Question{
		{
			ID:     "q1",
			QuizID: quiz.ID,
			Prompt: "What is 2 + 2?",
			Type:   domain.MultipleChoice,
			Options: map[string]string{
				"a": "3",
				"b": "4",
				"c": "5",
			},
			CorrectAnswer: "b",
			Points:        1,
			Position:      0,
		},
		{
			ID:            "q2",
			QuizID:        quiz.ID,
			Prompt:        "The Go gopher is blue.",
			Type:          domain.TrueFalse,
			CorrectAnswer: "true",
			Points:        1,
			Position:      1,
		},
	}
	if err := repo.Create(ctx, quiz, questions); err != nil {
		log.Printf("seed demo quiz: %v", err)
	}
}
