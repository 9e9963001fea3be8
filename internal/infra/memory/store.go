package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"timed-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.QuizStore, used when no
// Postgres URL is configured and throughout the unit tests.
type Store struct {
	mu             sync.RWMutex
	nextQuizID     int64
	nextQuestionID int64
	nextEntryID    int64
	quizzes        map[int64]domain.Quiz
	questions      map[int64][]domain.Question
	scores         map[int64][]scoreRow
}

type scoreRow struct {
	id          int64
	score       int
	submittedAt time.Time
}

func NewStore() *Store {
	return &Store{
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64][]domain.Question),
		scores:    make(map[int64][]scoreRow),
	}
}

func (s *Store) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuizID++
	quiz.ID = s.nextQuizID
	s.quizzes[quiz.ID] = *quiz
	return nil
}

func (s *Store) AddQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.nextQuestionID++
	question.ID = s.nextQuestionID
	s.questions[question.QuizID] = append(s.questions[question.QuizID], *question)
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	delete(s.questions, quizID)
	delete(s.scores, quizID)
	return nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortByStartDesc(s.quizzes, func(domain.Quiz) bool { return true }), nil
}

func (s *Store) ActiveQuizzes(_ context.Context, now time.Time) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortByStartDesc(s.quizzes, func(q domain.Quiz) bool { return q.Active(now) }), nil
}

func (s *Store) GetQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) QuestionCount(_ context.Context, quizID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions[quizID]), nil
}

// Questions returns the question set ordered by ascending id, making the
// store usable directly as an app.QuestionSource.
func (s *Store) Questions(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, len(s.questions[quizID]))
	copy(questions, s.questions[quizID])
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (s *Store) RecordScore(_ context.Context, quizID int64, score int, submittedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return 0, domain.ErrQuizNotFound
	}
	s.nextEntryID++
	s.scores[quizID] = append(s.scores[quizID], scoreRow{id: s.nextEntryID, score: score, submittedAt: submittedAt})
	return s.nextEntryID, nil
}

func (s *Store) Leaderboard(_ context.Context, quizID int64, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]scoreRow, len(s.scores[quizID]))
	copy(rows, s.scores[quizID])
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].submittedAt.Before(rows[j].submittedAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, domain.LeaderboardEntry{ID: row.id, Score: row.score, SubmittedAt: row.submittedAt})
	}
	return entries, nil
}

func sortByStartDesc(quizzes map[int64]domain.Quiz, keep func(domain.Quiz) bool) []domain.Quiz {
	out := make([]domain.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		if keep(quiz) {
			out = append(out, quiz)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
