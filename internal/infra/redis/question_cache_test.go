package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"timed-quiz-service/internal/domain"
)

type countingLoader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (l *countingLoader) Questions(_ context.Context, quizID int64) ([]domain.Question, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return []domain.Question{
		{ID: 1, QuizID: quizID, Text: "q1", OptionA: "a", OptionB: "b", CorrectOption: "A", TimeLimit: 10},
		{ID: 2, QuizID: quizID, Text: "q2", OptionA: "a", OptionB: "b", CorrectOption: "B", TimeLimit: 20},
	}, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func newTestCache(t *testing.T, loader QuestionLoader, ttl time.Duration) (*QuestionCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQuestionCache(client, loader, ttl), mr
}

func TestQuestionCacheRoundTripsCorrectOption(t *testing.T) {
	loader := &countingLoader{}
	cache, mr := newTestCache(t, loader, time.Minute)
	ctx := context.Background()

	first, err := cache.Questions(ctx, 7)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	second, err := cache.Questions(ctx, 7)
	if err != nil {
		t.Fatalf("cached questions: %v", err)
	}

	if loader.count() != 1 {
		t.Fatalf("expected the second read to hit redis, got %d loads", loader.count())
	}
	if len(second) != len(first) {
		t.Fatalf("cached set differs: %d vs %d", len(second), len(first))
	}
	for i := range first {
		if second[i] != first[i] {
			t.Fatalf("question %d changed through the cache: %+v vs %+v", i, second[i], first[i])
		}
	}
	// The scoring path depends on the correct option surviving the trip.
	if second[0].CorrectOption != "A" || second[1].CorrectOption != "B" {
		t.Fatalf("correct options lost in cache: %+v", second)
	}

	if !mr.Exists("quiz:7:questions") {
		t.Fatal("expected the questions key in redis")
	}
}

func TestCachedPayloadCarriesCorrectOptionExplicitly(t *testing.T) {
	loader := &countingLoader{}
	cache, mr := newTestCache(t, loader, time.Minute)

	if _, err := cache.Questions(context.Background(), 7); err != nil {
		t.Fatalf("questions: %v", err)
	}

	raw, err := mr.Get("quiz:7:questions")
	if err != nil {
		t.Fatalf("read raw key: %v", err)
	}
	var payload struct {
		Questions []map[string]json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Questions) != 2 {
		t.Fatalf("expected 2 cached questions, got %d", len(payload.Questions))
	}
	if _, ok := payload.Questions[0]["correct_option"]; !ok {
		t.Fatal("cached payload must embed correct_option")
	}
}

func TestQuestionCacheExpires(t *testing.T) {
	loader := &countingLoader{}
	cache, mr := newTestCache(t, loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.Questions(ctx, 7); err != nil {
		t.Fatalf("questions: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := cache.Questions(ctx, 7); err != nil {
		t.Fatalf("questions after expiry: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after TTL, got %d loads", loader.count())
	}
}

func TestQuestionCacheInvalidate(t *testing.T) {
	loader := &countingLoader{}
	cache, mr := newTestCache(t, loader, time.Minute)
	ctx := context.Background()

	if _, err := cache.Questions(ctx, 7); err != nil {
		t.Fatalf("questions: %v", err)
	}
	cache.Invalidate(ctx, 7)
	if mr.Exists("quiz:7:questions") {
		t.Fatal("expected the key dropped after invalidate")
	}
	if _, err := cache.Questions(ctx, 7); err != nil {
		t.Fatalf("questions after invalidate: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", loader.count())
	}
}

func TestQuestionCacheSurfacesLoaderErrors(t *testing.T) {
	loader := &countingLoader{err: errors.New("boom")}
	cache, _ := newTestCache(t, loader, time.Minute)

	if _, err := cache.Questions(context.Background(), 7); err == nil {
		t.Fatal("expected the loader error to surface")
	}
}
