package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"timed-quiz-service/internal/app"
)

// NewRouter wires the REST API and the live leaderboard feed.
func NewRouter(service *app.QuizService, logger *slog.Logger, allowedOrigins []string) http.Handler {
	handler := NewHandler(service, logger)
	wsHandler := NewWSHandler(service, logger)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api/quiz", func(r chi.Router) {
		// admin
		r.Post("/add", handler.HandleAddQuiz)
		r.Post("/{quiz_id}/question", handler.HandleAddQuestion)
		r.Get("/all", handler.HandleAllQuizzes)
		r.Delete("/{quiz_id}", handler.HandleDeleteQuiz)

		// user
		r.Get("/active", handler.HandleActiveQuizzes)
		r.Get("/{quiz_id}", handler.HandleQuizByID)
		r.Get("/{quiz_id}/questions", handler.HandleQuizQuestions)
		r.Post("/submit", handler.HandleSubmit)
		r.Get("/{quiz_id}/leaderboard", handler.HandleLeaderboard)
	})

	r.Get("/ws/quiz/{quiz_id}/leaderboard", wsHandler.ServeLeaderboard)

	return r
}
