package session

import "timed-quiz-service/internal/domain"

// EventType enumerates everything that can happen to a session: user
// commands, timer ticks and the outcomes of async network calls.
type EventType int

const (
	EventLoadSucceeded EventType = iota
	EventLoadFailed
	EventSelectOption
	EventNext
	EventPrev
	EventSubmit
	EventQuestionTick
	EventAdvanceDelay
	EventOverallTick
	EventSubmitSucceeded
	EventSubmitFailed
	EventLeaderboardLoaded
	EventLeaderboardFailed
)

// Event is processed by Session.Dispatch. Only the fields relevant to the
// type are set. Gen fences tick and delay events against timers that were
// cancelled after the event was queued.
type Event struct {
	Type EventType

	Option string // EventSelectOption
	Auto   bool   // EventSubmit: true when triggered by overall-timer expiry
	Gen    int    // EventQuestionTick, EventAdvanceDelay, EventOverallTick

	Quiz      domain.Quiz       // EventLoadSucceeded
	Questions []domain.Question // EventLoadSucceeded

	Result      domain.SubmissionResult // EventSubmitSucceeded
	Leaderboard domain.Leaderboard      // EventLeaderboardLoaded
	Err         error                   // EventLoadFailed, EventSubmitFailed, EventLeaderboardFailed
}
