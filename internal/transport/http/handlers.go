package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// Handler exposes the quiz service REST API.
type Handler struct {
	service *app.QuizService
	logger  *slog.Logger
}

func NewHandler(service *app.QuizService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

type errorResponse struct {
	Error     string     `json:"error"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

type quizListResponse struct {
	Success bool          `json:"success"`
	Count   int           `json:"count"`
	Quizzes []domain.Quiz `json:"quizzes"`
}

type addQuizRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type addQuestionRequest struct {
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"correct_option"`
	TimeLimit     int    `json:"time_limit"`
}

type submitRequest struct {
	QuizID  int64            `json:"quiz_id"`
	Answers *[]domain.Answer `json:"answers"`
}

// HandleAddQuiz creates a quiz. Start defaults to now and end to an hour
// later when omitted.
func (h *Handler) HandleAddQuiz(w http.ResponseWriter, r *http.Request) {
	var req addQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	start, ok := parseTime(w, req.StartTime, "start_time")
	if !ok {
		return
	}
	end, ok := parseTime(w, req.EndTime, "end_time")
	if !ok {
		return
	}

	quiz, err := h.service.CreateQuiz(r.Context(), req.Title, req.Description, start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string      `json:"message"`
		QuizID  int64       `json:"quiz_id"`
		Quiz    domain.Quiz `json:"quiz"`
	}{Message: "Quiz added successfully", QuizID: quiz.ID, Quiz: quiz})
}

func (h *Handler) HandleAddQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	var req addQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	question, err := h.service.AddQuestion(r.Context(), quizID, domain.Question{
		Text:          req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		CorrectOption: req.CorrectOption,
		TimeLimit:     req.TimeLimit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message    string `json:"message"`
		QuestionID int64  `json:"question_id"`
	}{Message: "Question added successfully", QuestionID: question.ID})
}

func (h *Handler) HandleAllQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.AllQuizzes(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizListResponse{Success: true, Count: len(quizzes), Quizzes: quizzes})
}

func (h *Handler) HandleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteQuiz(r.Context(), quizID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		DeletedID int64  `json:"deleted_id"`
	}{Success: true, Message: "Quiz deleted successfully", DeletedID: quizID})
}

func (h *Handler) HandleActiveQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ActiveQuizzes(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizListResponse{Success: true, Count: len(quizzes), Quizzes: quizzes})
}

func (h *Handler) HandleQuizByID(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	quiz, err := h.service.QuizByID(r.Context(), quizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool        `json:"success"`
		Quiz    domain.Quiz `json:"quiz"`
	}{Success: true, Quiz: quiz})
}

// HandleQuizQuestions starts an attempt: quiz metadata plus its questions.
// Correct options are withheld by domain.Question's JSON form.
func (h *Handler) HandleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	quiz, questions, err := h.service.QuestionsForAttempt(r.Context(), quizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success   bool              `json:"success"`
		Quiz      domain.Quiz       `json:"quiz"`
		Questions []domain.Question `json:"questions"`
	}{Success: true, Quiz: quiz, Questions: questions})
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == 0 || req.Answers == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid submission format. Required: quiz_id and answers array"})
		return
	}

	result, err := h.service.Submit(r.Context(), req.QuizID, *req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		domain.SubmissionResult
	}{Success: true, SubmissionResult: result})
}

func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	quizID, ok := quizIDParam(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be an integer"})
			return
		}
		limit = parsed
	}

	leaderboard, err := h.service.Leaderboard(r.Context(), quizID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if leaderboard.Entries == nil {
		leaderboard.Entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		domain.Leaderboard
	}{Success: true, Leaderboard: leaderboard})
}

// writeError maps the domain error taxonomy onto the API's status codes.
// Window errors carry the boundary timestamp in the body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var notStarted *domain.NotStartedError
	var ended *domain.EndedError

	switch {
	case errors.As(err, &notStarted):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Quiz has not started yet", StartTime: &notStarted.StartTime})
	case errors.As(err, &ended):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "Quiz has ended", EndTime: &ended.EndTime})
	case errors.Is(err, domain.ErrQuizNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Quiz not found"})
	case errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrInvalidSubmission),
		errors.Is(err, domain.ErrNoQuestions):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func quizIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	quizID, err := strconv.ParseInt(chi.URLParam(r, "quiz_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "quiz id must be an integer"})
		return 0, false
	}
	return quizID, true
}

func parseTime(w http.ResponseWriter, raw, field string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: field + " must be an ISO-8601 timestamp"})
		return time.Time{}, false
	}
	return parsed, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
