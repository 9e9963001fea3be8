package app

import (
	"context"
	"math"
	"strings"
	"time"

	"timed-quiz-service/internal/domain"
)

const defaultTimeLimit = 30 // seconds per question when none is given

// QuizStore abstracts how quizzes, questions and leaderboard rows are
// persisted (Postgres, in-memory).
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	AddQuestion(ctx context.Context, question *domain.Question) error
	DeleteQuiz(ctx context.Context, quizID int64) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	ActiveQuizzes(ctx context.Context, now time.Time) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	QuestionCount(ctx context.Context, quizID int64) (int, error)
	RecordScore(ctx context.Context, quizID int64, score int, submittedAt time.Time) (int64, error)
	Leaderboard(ctx context.Context, quizID int64, limit int) ([]domain.LeaderboardEntry, error)
}

// QuestionSource loads the full question set of a quiz, correct options
// included. Reads go through a cache in front of the store.
type QuestionSource interface {
	Questions(ctx context.Context, quizID int64) ([]domain.Question, error)
}

// QuizService contains the server-side quiz use cases.
type QuizService struct {
	store     QuizStore
	questions QuestionSource
	now       func() time.Time
	hub       *leaderboardHub
}

func NewQuizService(store QuizStore, questions QuestionSource) *QuizService {
	return NewQuizServiceWithClock(store, questions, time.Now)
}

// NewQuizServiceWithClock allows deterministic timestamps in tests.
func NewQuizServiceWithClock(store QuizStore, questions QuestionSource, now func() time.Time) *QuizService {
	return &QuizService{store: store, questions: questions, now: now, hub: newLeaderboardHub()}
}

// CreateQuiz validates and stores a new quiz. A missing start time defaults
// to now and a missing end time to one hour after the start.
func (s *QuizService) CreateQuiz(ctx context.Context, title, description string, start, end time.Time) (domain.Quiz, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Quiz{}, domain.ErrTitleRequired
	}
	if start.IsZero() {
		start = s.now()
	}
	if end.IsZero() {
		end = start.Add(time.Hour)
	}
	if !end.After(start) {
		return domain.Quiz{}, domain.ErrInvalidWindow
	}

	quiz := domain.Quiz{Title: title, Description: description, StartTime: start, EndTime: end}
	if err := s.store.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// AddQuestion attaches a question to an existing quiz.
func (s *QuizService) AddQuestion(ctx context.Context, quizID int64, question domain.Question) (domain.Question, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return domain.Question{}, err
	}
	if strings.TrimSpace(question.Text) == "" || !validLabel(question.CorrectOption) {
		return domain.Question{}, domain.ErrInvalidQuestion
	}
	if question.TimeLimit <= 0 {
		question.TimeLimit = defaultTimeLimit
	}
	question.QuizID = quizID
	if err := s.store.AddQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	return question, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID int64) error {
	return s.store.DeleteQuiz(ctx, quizID)
}

func (s *QuizService) AllQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

func (s *QuizService) ActiveQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ActiveQuizzes(ctx, s.now())
}

// QuizByID returns quiz details together with its question count.
func (s *QuizService) QuizByID(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	count, err := s.store.QuestionCount(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.QuestionCount = count
	return quiz, nil
}

// QuestionsForAttempt returns the quiz and its questions for an attempt.
// Outside the active window it fails with a typed window error carrying the
// boundary timestamp. Correct options are present in the returned questions;
// the transport layer withholds them.
func (s *QuizService) QuestionsForAttempt(ctx context.Context, quizID int64) (domain.Quiz, []domain.Question, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}

	now := s.now()
	if now.Before(quiz.StartTime) {
		return domain.Quiz{}, nil, &domain.NotStartedError{StartTime: quiz.StartTime}
	}
	if now.After(quiz.EndTime) {
		return domain.Quiz{}, nil, &domain.EndedError{EndTime: quiz.EndTime}
	}

	questions, err := s.questions.Questions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	return quiz, questions, nil
}

// Submit scores an attempt against every question of the quiz. Unanswered
// questions count as wrong and carry a nil user answer in the results. The
// score is recorded on the leaderboard and subscribers receive a fresh
// snapshot. Submissions carry no idempotency key, so a client retry after an
// ambiguous failure can insert a duplicate row.
func (s *QuizService) Submit(ctx context.Context, quizID int64, answers []domain.Answer) (domain.SubmissionResult, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	now := s.now()
	if now.After(quiz.EndTime) {
		return domain.SubmissionResult{}, &domain.EndedError{EndTime: quiz.EndTime}
	}

	questions, err := s.questions.Questions(ctx, quizID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if len(questions) == 0 {
		return domain.SubmissionResult{}, domain.ErrNoQuestions
	}

	selected := make(map[int64]string, len(answers))
	for _, answer := range answers {
		selected[answer.QuestionID] = answer.SelectedOption
	}

	score := 0
	results := make([]domain.QuestionResult, 0, len(questions))
	for _, question := range questions {
		answer, answered := selected[question.ID]
		correct := answered && answer == question.CorrectOption
		if correct {
			score++
		}
		var userAnswer *string
		if answered {
			value := answer
			userAnswer = &value
		}
		results = append(results, domain.QuestionResult{
			QuestionID:    question.ID,
			Correct:       correct,
			UserAnswer:    userAnswer,
			CorrectOption: question.CorrectOption,
		})
	}

	entryID, err := s.store.RecordScore(ctx, quizID, score, now)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	s.broadcastLeaderboard(ctx, quizID)

	return domain.SubmissionResult{
		Score:         score,
		Total:         len(questions),
		Percentage:    percentage(score, len(questions)),
		Results:       results,
		LeaderboardID: entryID,
	}, nil
}

// Leaderboard returns the ranked top entries for a quiz. A non-positive
// limit falls back to 10.
func (s *QuizService) Leaderboard(ctx context.Context, quizID int64, limit int) (domain.Leaderboard, error) {
	if _, err := s.store.GetQuiz(ctx, quizID); err != nil {
		return domain.Leaderboard{}, err
	}
	if limit <= 0 {
		limit = 10
	}
	entries, err := s.store.Leaderboard(ctx, quizID, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return domain.Leaderboard{QuizID: quizID, Entries: entries}, nil
}

// Subscribe returns a channel receiving leaderboard snapshots for a quiz
// whenever a submission lands. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, quizID int64) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Leaderboard(ctx, quizID, 10)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.subscribe(quizID, initial)
	return ch, cancel, nil
}

func (s *QuizService) broadcastLeaderboard(ctx context.Context, quizID int64) {
	if !s.hub.hasSubscribers(quizID) {
		return
	}
	snapshot, err := s.Leaderboard(ctx, quizID, 10)
	if err != nil {
		return
	}
	s.hub.broadcast(quizID, snapshot)
}

func validLabel(label string) bool {
	for _, l := range domain.OptionLabels {
		if label == l {
			return true
		}
	}
	return false
}

func percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*10000) / 100
}
