package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"timed-quiz-service/internal/domain"
)

// Store implements app.QuizStore on top of a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quizzes (title, description, start_time, end_time)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		quiz.Title, quiz.Description, quiz.StartTime, quiz.EndTime,
	).Scan(&quiz.ID)
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

func (s *Store) AddQuestion(ctx context.Context, question *domain.Question) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO questions (quiz_id, question_text, option_a, option_b, option_c, option_d, correct_option, time_limit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		question.QuizID, question.Text,
		question.OptionA, question.OptionB, question.OptionC, question.OptionD,
		question.CorrectOption, question.TimeLimit,
	).Scan(&question.ID)
	if err != nil {
		return fmt.Errorf("add question: %w", err)
	}
	return nil
}

func (s *Store) DeleteQuiz(ctx context.Context, quizID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx,
		`SELECT id, title, description, start_time, end_time FROM quizzes
		 ORDER BY start_time DESC`)
}

func (s *Store) ActiveQuizzes(ctx context.Context, now time.Time) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx,
		`SELECT id, title, description, start_time, end_time FROM quizzes
		 WHERE start_time <= $1 AND end_time >= $1
		 ORDER BY start_time DESC`, now)
}

func (s *Store) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, description, start_time, end_time FROM quizzes WHERE id=$1`,
		quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.StartTime, &quiz.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) QuestionCount(ctx context.Context, quizID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE quiz_id=$1`, quizID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// Questions returns the full question set, correct options included,
// ordered by ascending id. The ordering fixes the session's question
// sequence for its whole lifetime.
func (s *Store) Questions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, question_text,
		        COALESCE(option_a, ''), COALESCE(option_b, ''), COALESCE(option_c, ''), COALESCE(option_d, ''),
		        correct_option, time_limit
		 FROM questions
		 WHERE quiz_id=$1
		 ORDER BY id ASC`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption, &q.TimeLimit); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) RecordScore(ctx context.Context, quizID int64, score int, submittedAt time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO leaderboard (quiz_id, score, submitted_at) VALUES ($1, $2, $3) RETURNING id`,
		quizID, score, submittedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record score: %w", err)
	}
	return id, nil
}

func (s *Store) Leaderboard(ctx context.Context, quizID int64, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, score, submitted_at FROM leaderboard
		 WHERE quiz_id=$1
		 ORDER BY score DESC, submitted_at ASC
		 LIMIT $2`, quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.ID, &entry.Score, &entry.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) queryQuizzes(ctx context.Context, sql string, args ...interface{}) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var quiz domain.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.StartTime, &quiz.EndTime); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}
