// Package client is the HTTP consumer of the quiz service API, used by the
// session state machine for its load, submit and leaderboard calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"timed-quiz-service/internal/domain"
)

// Client talks to the quiz service REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for a service rooted at baseURL (scheme://host:port).
// A nil httpClient falls back to http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// APIError is a non-2xx response with the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("quiz service returned status %d", e.StatusCode)
	}
	return e.Message
}

type questionsResponse struct {
	Success   bool              `json:"success"`
	Quiz      domain.Quiz       `json:"quiz"`
	Questions []domain.Question `json:"questions"`
}

type submitRequest struct {
	QuizID  int64           `json:"quiz_id"`
	Answers []domain.Answer `json:"answers"`
}

type submitResponse struct {
	Success bool `json:"success"`
	domain.SubmissionResult
}

type leaderboardResponse struct {
	Success bool `json:"success"`
	domain.Leaderboard
}

// QuizQuestions fetches the quiz and its question set in one call. Correct
// options are never part of this response.
func (c *Client) QuizQuestions(ctx context.Context, quizID int64) (domain.Quiz, []domain.Question, error) {
	var payload questionsResponse
	url := fmt.Sprintf("%s/api/quiz/%d/questions", c.baseURL, quizID)
	if err := c.get(ctx, url, &payload); err != nil {
		return domain.Quiz{}, nil, err
	}
	if !payload.Success {
		return domain.Quiz{}, nil, fmt.Errorf("quiz service reported failure loading quiz %d", quizID)
	}
	return payload.Quiz, payload.Questions, nil
}

// Submit sends the collected answers. The call carries no idempotency key:
// retrying after an ambiguous failure that actually landed server-side will
// create a duplicate leaderboard entry.
func (c *Client) Submit(ctx context.Context, quizID int64, answers []domain.Answer) (domain.SubmissionResult, error) {
	body, err := json.Marshal(submitRequest{QuizID: quizID, Answers: answers})
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	url := c.baseURL + "/api/quiz/submit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var payload submitResponse
	if err := c.do(req, &payload); err != nil {
		return domain.SubmissionResult{}, err
	}
	if !payload.Success {
		return domain.SubmissionResult{}, fmt.Errorf("quiz service rejected submission for quiz %d", quizID)
	}
	return payload.SubmissionResult, nil
}

// Leaderboard fetches the ranked top entries for a quiz.
func (c *Client) Leaderboard(ctx context.Context, quizID int64, limit int) (domain.Leaderboard, error) {
	var payload leaderboardResponse
	url := fmt.Sprintf("%s/api/quiz/%d/leaderboard?limit=%d", c.baseURL, quizID, limit)
	if err := c.get(ctx, url, &payload); err != nil {
		return domain.Leaderboard{}, err
	}
	if !payload.Success {
		return domain.Leaderboard{}, fmt.Errorf("quiz service reported failure loading leaderboard for quiz %d", quizID)
	}
	return payload.Leaderboard, nil
}

func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
