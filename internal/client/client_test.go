package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"timed-quiz-service/internal/domain"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubClient(fn roundTripperFunc) *Client {
	return New("http://quiz.test", &http.Client{Transport: fn})
}

func jsonResponse(status int, payload interface{}) *http.Response {
	raw, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

func TestQuizQuestions(t *testing.T) {
	var gotURL string
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return jsonResponse(http.StatusOK, map[string]interface{}{
			"success": true,
			"quiz":    domain.Quiz{ID: 7, Title: "sample"},
			"questions": []map[string]interface{}{
				{"id": 1, "question_text": "q1", "option_a": "a", "time_limit": 10},
			},
		}), nil
	})

	quiz, questions, err := c.QuizQuestions(context.Background(), 7)
	if err != nil {
		t.Fatalf("quiz questions: %v", err)
	}
	if gotURL != "http://quiz.test/api/quiz/7/questions" {
		t.Fatalf("unexpected URL %s", gotURL)
	}
	if quiz.ID != 7 || len(questions) != 1 || questions[0].Text != "q1" {
		t.Fatalf("unexpected payload: %+v %+v", quiz, questions)
	}
}

func TestQuizQuestionsForbidden(t *testing.T) {
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, map[string]interface{}{
			"error":      "Quiz has ended",
			"end_time":   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		}), nil
	})

	_, _, err := c.QuizQuestions(context.Background(), 7)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "Quiz has ended" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestSubmitSendsAnswers(t *testing.T) {
	var got submitRequest
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/quiz/submit" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(http.StatusOK, map[string]interface{}{
			"success":        true,
			"score":          1,
			"total":          2,
			"percentage":     50,
			"leaderboard_id": 11,
		}), nil
	})

	answers := []domain.Answer{{QuestionID: 3, SelectedOption: "A"}}
	result, err := c.Submit(context.Background(), 7, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.QuizID != 7 || len(got.Answers) != 1 || got.Answers[0] != answers[0] {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if result.Score != 1 || result.Total != 2 || result.Percentage != 50 || result.LeaderboardID != 11 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSubmitSurfacesTransportError(t *testing.T) {
	transportErr := errors.New("connection refused")
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		return nil, transportErr
	})

	if _, err := c.Submit(context.Background(), 7, nil); !errors.Is(err, transportErr) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestLeaderboardPassesLimit(t *testing.T) {
	var gotURL string
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return jsonResponse(http.StatusOK, map[string]interface{}{
			"success": true,
			"quiz_id": 7,
			"leaderboard": []map[string]interface{}{
				{"id": 1, "rank": 1, "score": 2},
			},
		}), nil
	})

	lb, err := c.Leaderboard(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if gotURL != "http://quiz.test/api/quiz/7/leaderboard?limit=5" {
		t.Fatalf("unexpected URL %s", gotURL)
	}
	if lb.QuizID != 7 || len(lb.Entries) != 1 || lb.Entries[0].Rank != 1 {
		t.Fatalf("unexpected leaderboard: %+v", lb)
	}
}

func TestNotFoundWithoutBody(t *testing.T) {
	c := stubClient(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewReader(nil)),
		}, nil
	})

	_, err := c.Leaderboard(context.Background(), 99, 10)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Error() != "quiz service returned status 404" {
		t.Fatalf("unexpected error %v", apiErr)
	}
}
