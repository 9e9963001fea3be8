package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

func wsURL(server *httptest.Server, path string) string {
	return strings.Replace(server.URL, "http", "ws", 1) + path
}

func readSnapshot(t *testing.T, conn *websocket.Conn) domain.Leaderboard {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg outboundMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %q", msg.Type)
	}
	return msg.Payload
}

func TestLeaderboardFeedPushesOnSubmit(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	service := app.NewQuizServiceWithClock(store, store, func() time.Time { return now })

	server := httptest.NewServer(NewRouter(service, nil, nil))
	defer server.Close()

	quiz, err := service.CreateQuiz(context.Background(), "live", "", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	question, err := service.AddQuestion(context.Background(), quiz.ID, domain.Question{
		Text: "q", OptionA: "a", OptionB: "b", CorrectOption: "A",
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, fmt.Sprintf("/ws/quiz/%d/leaderboard", quiz.ID)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readSnapshot(t, conn)
	if initial.QuizID != quiz.ID || len(initial.Entries) != 0 {
		t.Fatalf("unexpected initial snapshot: %+v", initial)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"quiz_id": quiz.ID,
		"answers": []domain.Answer{{QuestionID: question.ID, SelectedOption: "A"}},
	})
	resp, err := http.Post(server.URL+"/api/quiz/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit returned %d", resp.StatusCode)
	}

	update := readSnapshot(t, conn)
	if len(update.Entries) != 1 || update.Entries[0].Score != 1 || update.Entries[0].Rank != 1 {
		t.Fatalf("unexpected pushed snapshot: %+v", update)
	}
}

func TestLeaderboardFeedRejectsUnknownQuiz(t *testing.T) {
	store := memory.NewStore()
	service := app.NewQuizService(store, store)

	server := httptest.NewServer(NewRouter(service, nil, nil))
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/ws/quiz/999/leaderboard"), nil)
	if err == nil {
		t.Fatal("expected the dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before upgrade, got %+v", resp)
	}
}
