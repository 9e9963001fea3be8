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
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	infrapg "timed-quiz-service/internal/infra/postgres"
	pgmigrations "timed-quiz-service/internal/infra/postgres/migrations"
	infraredis "timed-quiz-service/internal/infra/redis"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := infrapg.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	cache := infraredis.NewQuestionCache(redisClient, store, 5*time.Minute)

	service := app.NewQuizService(store, cache)

	now := time.Now()
	quiz, err := service.CreateQuiz(ctx, "integration", "end to end", now.Add(-time.Minute), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	q1, err := service.AddQuestion(ctx, quiz.ID, domain.Question{
		Text: "What is 2 + 2?", OptionA: "3", OptionB: "4", CorrectOption: "B", TimeLimit: 10,
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	q2, err := service.AddQuestion(ctx, quiz.ID, domain.Question{
		Text: "What is 3 + 3?", OptionA: "6", OptionB: "7", CorrectOption: "A", TimeLimit: 10,
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	gotQuiz, questions, err := service.QuestionsForAttempt(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("questions for attempt: %v", err)
	}
	if gotQuiz.ID != quiz.ID || len(questions) != 2 {
		t.Fatalf("expected 2 questions for quiz %d, got %d", quiz.ID, len(questions))
	}
	if questions[0].ID != q1.ID || questions[1].ID != q2.ID {
		t.Fatalf("questions out of order: %+v", questions)
	}

	// Second read must come from redis, not postgres.
	if _, _, err := service.QuestionsForAttempt(ctx, quiz.ID); err != nil {
		t.Fatalf("cached attempt: %v", err)
	}
	keys, err := redisClient.Keys(ctx, "quiz:*:questions").Result()
	if err != nil || len(keys) != 1 {
		t.Fatalf("expected one cached question set, got %v %v", keys, err)
	}

	result, err := service.Submit(ctx, quiz.ID, []domain.Answer{
		{QuestionID: q1.ID, SelectedOption: "B"},
		{QuestionID: q2.ID, SelectedOption: "B"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.Total != 2 || result.Percentage != 50 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := service.Submit(ctx, quiz.ID, []domain.Answer{{QuestionID: q1.ID, SelectedOption: "B"}}); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	lb, err := service.Leaderboard(ctx, quiz.ID, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].Score != 1 || lb.Entries[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}

	if err := service.DeleteQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}
	if _, err := service.QuizByID(ctx, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz gone, got %v", err)
	}
	entries, err := store.Leaderboard(ctx, quiz.ID, 10)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected leaderboard rows cascaded away, got %v %v", entries, err)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
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
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
