package app

import (
	"sync"

	"timed-quiz-service/internal/domain"
)

// leaderboardHub fans leaderboard snapshots out to per-quiz subscribers.
type leaderboardHub struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan domain.Leaderboard]struct{}
}

func newLeaderboardHub() *leaderboardHub {
	return &leaderboardHub{subscribers: make(map[int64]map[chan domain.Leaderboard]struct{})}
}

func (h *leaderboardHub) subscribe(quizID int64, initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	set, ok := h.subscribers[quizID]
	if !ok {
		set = make(map[chan domain.Leaderboard]struct{})
		h.subscribers[quizID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	ch <- initial

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subscribers[quizID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subscribers, quizID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *leaderboardHub) hasSubscribers(quizID int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[quizID]) > 0
}

func (h *leaderboardHub) broadcast(quizID int64, snapshot domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[quizID] {
		select {
		case ch <- snapshot:
		default:
			// Drop the oldest snapshot so slow readers never block a submit.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
