package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
)

// QuizCache decorates a QuizRepository with a Redis cache for quiz-by-id
// lookups, the hot path of every attempt submission. Listings depend on the
// current time and stay uncached; creation writes through and invalidates.
type QuizCache struct {
	client *redis.Client
	inner  app.QuizRepository
	ttl    time.Duration
	sf     singleflight.Group
}

type cachedQuiz struct {
	Quiz      domain.Quiz       `json:"quiz"`
	Questions []domain.Question `json:"questions"`
}

func NewQuizCache(client *redis.Client, inner app.QuizRepository, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
	}
}

func (c *QuizCache) ListActive(ctx context.Context, now time.Time) ([]domain.Quiz, error) {
	return c.inner.ListActive(ctx, now)
}

func (c *QuizCache) GetByID(ctx context.Context, id string) (domain.Quiz, []domain.Question, error) {
	key := c.key(id)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var entry cachedQuiz
		if err := json.Unmarshal(raw, &entry); err == nil {
			return entry.Quiz, entry.Questions, nil
		}
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var entry cachedQuiz
			if err := json.Unmarshal(raw, &entry); err == nil {
				return entry, nil
			}
		}

		quiz, questions, err := c.inner.GetByID(ctx, id)
		if err != nil {
			return cachedQuiz{}, err
		}
		entry := cachedQuiz{Quiz: quiz, Questions: questions}
		if raw, err := json.Marshal(entry); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return entry, nil
	})
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	entry := result.(cachedQuiz)
	return entry.Quiz, entry.Questions, nil
}

func (c *QuizCache) Create(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error {
	if err := c.inner.Create(ctx, quiz, questions); err != nil {
		return err
	}
	_ = c.client.Del(ctx, c.key(quiz.ID)).Err()
	return nil
}

func (c *QuizCache) key(id string) string {
	return "quiz:" + id
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations; the top-level rand
	// functions are safe for concurrent fills
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
