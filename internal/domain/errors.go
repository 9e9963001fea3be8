package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions indicates a quiz has an empty question set.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrTitleRequired is returned when creating a quiz without a title.
	ErrTitleRequired = errors.New("title is required")
	// ErrInvalidWindow is returned when end_time is not after start_time.
	ErrInvalidWindow = errors.New("end_time must be after start_time")
	// ErrInvalidQuestion is returned for questions missing text or a
	// correct option, or whose correct option is not one of A-D.
	ErrInvalidQuestion = errors.New("question text and a correct option (A-D) are required")
	// ErrInvalidSubmission is returned for malformed submit payloads.
	ErrInvalidSubmission = errors.New("invalid submission format")
)

// NotStartedError is returned when questions are requested before the quiz
// window opens. StartTime is echoed so clients can show when it opens.
type NotStartedError struct {
	StartTime time.Time
}

func (e *NotStartedError) Error() string {
	return fmt.Sprintf("quiz has not started yet (starts %s)", e.StartTime.Format(time.RFC3339))
}

// EndedError is returned when questions are requested or answers submitted
// after the quiz window closed.
type EndedError struct {
	EndTime time.Time
}

func (e *EndedError) Error() string {
	return fmt.Sprintf("quiz has ended (ended %s)", e.EndTime.Format(time.RFC3339))
}
