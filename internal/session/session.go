// Package session holds the quiz-taking state machine: the current
// question, per-question remaining time that survives navigation, collected
// answers, and the two countdown timers that drive auto-advance and
// auto-submit. It is single-writer: every mutation goes through Dispatch,
// and timers and network calls feed their outcomes back in as events.
package session

import (
	"context"
	"sort"
	"time"

	"timed-quiz-service/internal/domain"
)

const (
	tickPeriod       = time.Second
	advanceDelay     = 500 * time.Millisecond
	overallWarnBelow = 5 * time.Minute
	leaderboardLimit = 10
)

// Service is what the session needs from the quiz service. Implemented by
// internal/client over HTTP.
type Service interface {
	QuizQuestions(ctx context.Context, quizID int64) (domain.Quiz, []domain.Question, error)
	Submit(ctx context.Context, quizID int64, answers []domain.Answer) (domain.SubmissionResult, error)
	Leaderboard(ctx context.Context, quizID int64, limit int) (domain.Leaderboard, error)
}

// Phase is the session lifecycle stage.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseActive
	PhaseSubmitting
	PhaseResults
	PhaseFailed
)

// Session is the in-memory state of one quiz attempt. It must only be
// touched from the goroutine running its event loop.
type Session struct {
	svc     Service
	sched   Scheduler
	now     func() time.Time
	confirm func(unanswered int) bool

	events chan Event

	phase     Phase
	quiz      domain.Quiz
	questions []domain.Question
	current   int
	remaining map[int64]int
	visited   map[int64]bool
	answers   map[int64]string

	// Timer handles with generation fences. Stopping a timer bumps its
	// generation, so a tick already queued from the old timer is ignored
	// by Dispatch and can never re-fire into the state machine.
	overallTask      Task
	overallGen       int
	overallRemaining time.Duration
	overallExpired   bool

	questionTask Task
	questionGen  int

	submitCue bool

	loadErr          error
	submitErr        error
	result           domain.SubmissionResult
	leaderboard      domain.Leaderboard
	leaderboardErr   error
	leaderboardReady bool
}

// Option configures a Session.
type Option func(*Session)

// WithScheduler swaps the timer backend, used by tests for determinism.
func WithScheduler(sched Scheduler) Option {
	return func(s *Session) { s.sched = sched }
}

// WithClock swaps the wall clock, used by tests for determinism.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithConfirm installs the callback consulted before a manual submit that
// still has unanswered questions. Without one the submit proceeds.
func WithConfirm(confirm func(unanswered int) bool) Option {
	return func(s *Session) { s.confirm = confirm }
}

func New(svc Service, opts ...Option) *Session {
	s := &Session{
		svc:       svc,
		sched:     TickerScheduler{},
		now:       time.Now,
		events:    make(chan Event, 32),
		phase:     PhaseLoading,
		remaining: make(map[int64]int),
		visited:   make(map[int64]bool),
		answers:   make(map[int64]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events is the queue timers and async calls post into. The owner of the
// session receives from it and feeds each event to Dispatch.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done reports whether the session reached a terminal phase.
func (s *Session) Done() bool {
	return s.phase == PhaseResults || s.phase == PhaseFailed
}

// Start fetches the quiz and its questions. Exactly one fetch per session,
// no retries; failure is terminal.
func (s *Session) Start(ctx context.Context, quizID int64) {
	go func() {
		quiz, questions, err := s.svc.QuizQuestions(ctx, quizID)
		if err != nil {
			s.events <- Event{Type: EventLoadFailed, Err: err}
			return
		}
		if len(questions) == 0 {
			s.events <- Event{Type: EventLoadFailed, Err: domain.ErrNoQuestions}
			return
		}
		s.events <- Event{Type: EventLoadSucceeded, Quiz: quiz, Questions: questions}
	}()
}

// Dispatch applies one event to the session. It is the only mutation path.
func (s *Session) Dispatch(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventLoadSucceeded:
		s.handleLoaded(ctx, ev)
	case EventLoadFailed:
		s.stopTimers()
		s.loadErr = ev.Err
		s.phase = PhaseFailed
	case EventSelectOption:
		s.handleSelect(ev.Option)
	case EventNext:
		if s.phase == PhaseActive && s.current < len(s.questions)-1 {
			s.display(s.current + 1)
		}
	case EventPrev:
		if s.phase == PhaseActive && s.current > 0 {
			s.display(s.current - 1)
		}
	case EventSubmit:
		s.handleSubmit(ctx, ev.Auto)
	case EventQuestionTick:
		s.handleQuestionTick(ev.Gen)
	case EventAdvanceDelay:
		if s.phase == PhaseActive && ev.Gen == s.questionGen {
			s.autoAdvance()
		}
	case EventOverallTick:
		s.handleOverallTick(ctx, ev.Gen)
	case EventSubmitSucceeded:
		s.handleSubmitted(ctx, ev.Result)
	case EventSubmitFailed:
		s.handleSubmitFailed(ctx, ev.Err)
	case EventLeaderboardLoaded:
		s.leaderboard = ev.Leaderboard
		s.leaderboardReady = true
	case EventLeaderboardFailed:
		s.leaderboardErr = ev.Err
		s.leaderboardReady = true
	}
}

func (s *Session) handleLoaded(ctx context.Context, ev Event) {
	if s.phase != PhaseLoading {
		return
	}
	s.quiz = ev.Quiz
	s.questions = append([]domain.Question(nil), ev.Questions...)
	// Question order is ascending id, fixed for the session lifetime.
	sort.Slice(s.questions, func(i, j int) bool { return s.questions[i].ID < s.questions[j].ID })

	for _, q := range s.questions {
		s.remaining[q.ID] = q.TimeLimit
		s.visited[q.ID] = false
	}

	s.phase = PhaseActive
	s.startOverallTimer(ctx)
	if s.phase == PhaseActive {
		s.display(0)
	}
}

func (s *Session) handleSelect(option string) {
	if s.phase != PhaseActive {
		return
	}
	q := s.questions[s.current]
	if !q.HasOption(option) {
		return
	}
	s.answers[q.ID] = option
}

// display shows the question at index: cancels the running question timer,
// then resumes the countdown from the stored remaining value, never from
// the question's original time limit.
func (s *Session) display(index int) {
	if index < 0 || index >= len(s.questions) {
		return
	}
	s.stopQuestionTimer()
	s.current = index
	s.submitCue = false

	q := s.questions[index]
	s.visited[q.ID] = true

	if s.remaining[q.ID] <= 0 {
		s.remaining[q.ID] = 0
		s.scheduleAdvance()
		return
	}

	gen := s.questionGen
	s.questionTask = s.sched.Every(tickPeriod, func() {
		s.events <- Event{Type: EventQuestionTick, Gen: gen}
	})
}

func (s *Session) handleQuestionTick(gen int) {
	if s.phase != PhaseActive || gen != s.questionGen {
		return
	}
	q := s.questions[s.current]
	rem := s.remaining[q.ID] - 1
	if rem < 0 {
		rem = 0
	}
	s.remaining[q.ID] = rem
	if rem == 0 {
		s.stopQuestionTimer()
		s.scheduleAdvance()
	}
}

// scheduleAdvance queues the auto-advance after the short post-expiry
// delay. The delay task shares the question generation fence, so
// navigating away cancels the pending advance.
func (s *Session) scheduleAdvance() {
	gen := s.questionGen
	s.questionTask = s.sched.After(advanceDelay, func() {
		s.events <- Event{Type: EventAdvanceDelay, Gen: gen}
	})
}

// autoAdvance moves on after a question-timer expiry. At the last question
// it only cues the submit action; per-question expiry never submits.
func (s *Session) autoAdvance() {
	if s.current < len(s.questions)-1 {
		s.display(s.current + 1)
		return
	}
	s.stopQuestionTimer()
	s.submitCue = true
}

func (s *Session) startOverallTimer(ctx context.Context) {
	s.stopOverallTimer()
	s.overallExpired = false

	// Remaining time is recomputed from the absolute end time on every
	// tick, so the display stays correct across suspended ticks.
	if s.updateOverallRemaining() {
		s.expireOverall(ctx)
		return
	}

	gen := s.overallGen
	s.overallTask = s.sched.Every(tickPeriod, func() {
		s.events <- Event{Type: EventOverallTick, Gen: gen}
	})
}

func (s *Session) handleOverallTick(ctx context.Context, gen int) {
	if s.phase != PhaseActive || gen != s.overallGen {
		return
	}
	if s.updateOverallRemaining() {
		s.expireOverall(ctx)
	}
}

// updateOverallRemaining refreshes the wall-clock countdown and reports
// whether the quiz end time has passed.
func (s *Session) updateOverallRemaining() bool {
	distance := s.quiz.EndTime.Sub(s.now())
	if distance < 0 {
		s.overallRemaining = 0
		return true
	}
	s.overallRemaining = distance
	return false
}

// expireOverall fires auto-submit exactly once: stopping the timer bumps
// its generation, so no second expiry can reach here.
func (s *Session) expireOverall(ctx context.Context) {
	s.stopOverallTimer()
	s.overallExpired = true
	s.handleSubmit(ctx, true)
}

// handleSubmit assembles the recorded answers and sends them. Manual
// submits with unanswered questions go through the confirm callback first;
// auto-submit from overall-timer expiry never asks.
func (s *Session) handleSubmit(ctx context.Context, auto bool) {
	if s.phase != PhaseActive {
		return
	}

	unanswered := len(s.questions) - len(s.answers)
	if !auto && unanswered > 0 && s.confirm != nil && !s.confirm(unanswered) {
		return
	}

	// Both timers are cancelled before the call goes out, so a pending
	// expiry cannot double-submit while the request is in flight.
	s.stopQuestionTimer()
	s.stopOverallTimer()
	s.phase = PhaseSubmitting
	s.submitErr = nil

	// Unanswered questions are simply absent from the payload.
	answers := make([]domain.Answer, 0, len(s.answers))
	for questionID, option := range s.answers {
		answers = append(answers, domain.Answer{QuestionID: questionID, SelectedOption: option})
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })

	go func() {
		result, err := s.svc.Submit(ctx, s.quiz.ID, answers)
		if err != nil {
			s.events <- Event{Type: EventSubmitFailed, Err: err}
			return
		}
		s.events <- Event{Type: EventSubmitSucceeded, Result: result}
	}()
}

func (s *Session) handleSubmitted(ctx context.Context, result domain.SubmissionResult) {
	if s.phase != PhaseSubmitting {
		return
	}
	s.result = result
	s.phase = PhaseResults

	go func() {
		lb, err := s.svc.Leaderboard(ctx, s.quiz.ID, leaderboardLimit)
		if err != nil {
			s.events <- Event{Type: EventLeaderboardFailed, Err: err}
			return
		}
		s.events <- Event{Type: EventLeaderboardLoaded, Leaderboard: lb}
	}()
}

// handleSubmitFailed keeps the session usable: both timers resume, the
// overall one from the wall clock and the question one from the stored
// remaining value of the current question.
func (s *Session) handleSubmitFailed(ctx context.Context, err error) {
	if s.phase != PhaseSubmitting {
		return
	}
	s.submitErr = err
	s.phase = PhaseActive
	s.startOverallTimer(ctx)
	if s.phase == PhaseActive {
		s.display(s.current)
	}
}

func (s *Session) stopTimers() {
	s.stopQuestionTimer()
	s.stopOverallTimer()
}

// stopQuestionTimer cancels the active question tick (or pending advance
// delay) without touching the stored remaining values.
func (s *Session) stopQuestionTimer() {
	if s.questionTask != nil {
		s.questionTask.Stop()
		s.questionTask = nil
	}
	s.questionGen++
}

func (s *Session) stopOverallTimer() {
	if s.overallTask != nil {
		s.overallTask.Stop()
		s.overallTask = nil
	}
	s.overallGen++
}
