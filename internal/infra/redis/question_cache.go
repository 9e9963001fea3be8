package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"timed-quiz-service/internal/domain"
)

// QuestionLoader fetches a quiz's question set from a backing store.
type QuestionLoader interface {
	Questions(ctx context.Context, quizID int64) ([]domain.Question, error)
}

// QuestionCache caches question sets in Redis (one JSON value per quiz) and
// falls back to the loader on a miss. Correct options are part of the cached
// payload, so the keys must never be exposed to clients directly.
// Layout: SET quiz:{quizID}:questions {json} EX ttl
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type cachedPayload struct {
	Questions []cachedQuestion `json:"questions"`
}

// cachedQuestion carries the correct option, which domain.Question withholds
// from its own JSON form.
type cachedQuestion struct {
	domain.Question
	CorrectOption string `json:"correct_option"`
}

func (c *QuestionCache) Questions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	key := c.key(quizID)

	if questions, ok := c.fromCache(ctx, key); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if questions, ok := c.fromCache(ctx, key); ok {
			return questions, nil
		}

		questions, err := c.loader.Questions(ctx, quizID)
		if err != nil {
			return nil, err
		}

		payload := cachedPayload{Questions: make([]cachedQuestion, 0, len(questions))}
		for _, q := range questions {
			payload.Questions = append(payload.Questions, cachedQuestion{Question: q, CorrectOption: q.CorrectOption})
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal questions: %w", err)
		}
		_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached set for a quiz, for use after question edits.
func (c *QuestionCache) Invalidate(ctx context.Context, quizID int64) {
	_ = c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *QuestionCache) fromCache(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var payload cachedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	questions := make([]domain.Question, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		question := q.Question
		question.CorrectOption = q.CorrectOption
		questions = append(questions, question)
	}
	return questions, true
}

func (c *QuestionCache) key(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":questions"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
