package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/domain"
	infrapg "timed-quiz-service/internal/infra/postgres"
)

// NewSeedCmd inserts a set of demo quizzes with questions, each active for
// the next seven days.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample quizzes and questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrations(cmd.Context(), cfg); err != nil {
				return err
			}
			return seed(cmd.Context(), cfg)
		},
	}
}

func seed(ctx context.Context, cfg config.Config) error {
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := infrapg.NewStore(pool)
	service := app.NewQuizService(store, store)

	now := time.Now()
	end := now.Add(7 * 24 * time.Hour)

	for _, sample := range sampleQuizzes() {
		quiz, err := service.CreateQuiz(ctx, sample.title, sample.description, now, end)
		if err != nil {
			return err
		}
		for _, question := range sample.questions {
			if _, err := service.AddQuestion(ctx, quiz.ID, question); err != nil {
				return err
			}
		}
		slog.Info("seeded quiz", "id", quiz.ID, "title", quiz.Title, "questions", len(sample.questions))
	}
	return nil
}

type sampleQuiz struct {
	title       string
	description string
	questions   []domain.Question
}

func sampleQuizzes() []sampleQuiz {
	return []sampleQuiz{
		{
			title:       "General Knowledge Quiz",
			description: "Test your general knowledge",
			questions: []domain.Question{
				{Text: "What is the capital of India?", OptionA: "Delhi", OptionB: "Mumbai", OptionC: "Kolkata", OptionD: "Chennai", CorrectOption: "A", TimeLimit: 20},
				{Text: "Which planet is known as the Red Planet?", OptionA: "Earth", OptionB: "Mars", OptionC: "Jupiter", OptionD: "Venus", CorrectOption: "B", TimeLimit: 20},
				{Text: "Who wrote 'Romeo and Juliet'?", OptionA: "Charles Dickens", OptionB: "William Shakespeare", OptionC: "Mark Twain", OptionD: "Jane Austen", CorrectOption: "B", TimeLimit: 25},
				{Text: "What is the largest ocean on Earth?", OptionA: "Atlantic Ocean", OptionB: "Indian Ocean", OptionC: "Pacific Ocean", OptionD: "Arctic Ocean", CorrectOption: "C", TimeLimit: 20},
				{Text: "How many continents are there?", OptionA: "5", OptionB: "6", OptionC: "7", OptionD: "8", CorrectOption: "C", TimeLimit: 15},
			},
		},
		{
			title:       "Math Quiz",
			description: "Basic math problems",
			questions: []domain.Question{
				{Text: "What is 12 x 8?", OptionA: "88", OptionB: "96", OptionC: "104", OptionD: "112", CorrectOption: "B", TimeLimit: 15},
				{Text: "What is the square root of 144?", OptionA: "10", OptionB: "11", OptionC: "12", OptionD: "14", CorrectOption: "C", TimeLimit: 15},
				{Text: "What is 15% of 200?", OptionA: "25", OptionB: "30", OptionC: "35", OptionD: "40", CorrectOption: "B", TimeLimit: 20},
			},
		},
		{
			title:       "Science Quiz",
			description: "Science questions for all",
			questions: []domain.Question{
				{Text: "What is the chemical symbol for gold?", OptionA: "Go", OptionB: "Gd", OptionC: "Au", OptionD: "Ag", CorrectOption: "C", TimeLimit: 20},
				{Text: "How many bones are in the adult human body?", OptionA: "196", OptionB: "206", OptionC: "216", OptionD: "226", CorrectOption: "B", TimeLimit: 20},
				{Text: "What gas do plants absorb from the atmosphere?", OptionA: "Oxygen", OptionB: "Nitrogen", OptionC: "Carbon dioxide", OptionD: "Hydrogen", CorrectOption: "C", TimeLimit: 15},
			},
		},
	}
}
