package domain

import (
	"strings"
	"time"
)

// Quiz is an administered quiz with an active time window. end_time is
// always after start_time; the service enforces that on creation.
type Quiz struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	QuestionCount int       `json:"question_count,omitempty"`
}

// Active reports whether the quiz window contains now.
func (q Quiz) Active(now time.Time) bool {
	return !now.Before(q.StartTime) && !now.After(q.EndTime)
}

// OptionLabels are the labels a question option or an answer may carry.
var OptionLabels = []string{"A", "B", "C", "D"}

// Question is a multiple-choice question with up to four labeled options.
// Blank options are skipped when rendering. CorrectOption never leaves the
// server before submission.
type Question struct {
	ID            int64  `json:"id"`
	QuizID        int64  `json:"quiz_id"`
	Text          string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"-"`
	TimeLimit     int    `json:"time_limit"`
}

// Option returns the text for a label, or "" if the label is unknown.
func (q Question) Option(label string) string {
	switch label {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// HasOption reports whether the label maps to a non-blank option.
func (q Question) HasOption(label string) bool {
	return strings.TrimSpace(q.Option(label)) != ""
}

// Answer pairs a question with the option the user selected.
type Answer struct {
	QuestionID     int64  `json:"question_id"`
	SelectedOption string `json:"selected_option"`
}

// QuestionResult is the per-question verdict returned after scoring.
// UserAnswer is nil when the question was left unanswered.
type QuestionResult struct {
	QuestionID    int64   `json:"question_id"`
	Correct       bool    `json:"correct"`
	UserAnswer    *string `json:"user_answer"`
	CorrectOption string  `json:"correct_option"`
}

// SubmissionResult is the scored outcome of one quiz attempt.
type SubmissionResult struct {
	Score         int              `json:"score"`
	Total         int              `json:"total"`
	Percentage    float64          `json:"percentage"`
	Results       []QuestionResult `json:"results"`
	LeaderboardID int64            `json:"leaderboard_id"`
}

// CorrectCount derives the number of correct verdicts from the result list.
func (r SubmissionResult) CorrectCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Correct {
			n++
		}
	}
	return n
}

// LeaderboardEntry is one ranked row of a quiz leaderboard, ordered by
// score descending with earlier submissions breaking ties.
type LeaderboardEntry struct {
	ID          int64     `json:"id"`
	Rank        int       `json:"rank"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Leaderboard is a ranked snapshot for one quiz.
type Leaderboard struct {
	QuizID  int64              `json:"quiz_id"`
	Entries []LeaderboardEntry `json:"leaderboard"`
}
