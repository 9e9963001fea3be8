package session

import (
	"sync"
	"time"
)

// Scheduler starts the repeating and one-shot timer tasks a session owns.
// The production implementation is TickerScheduler; tests drive a manual one.
type Scheduler interface {
	Every(period time.Duration, fn func()) Task
	After(delay time.Duration, fn func()) Task
}

// Task is a cancellable scheduled task. Stop is idempotent; stopping twice
// is a no-op.
type Task interface {
	Stop()
}

// TickerScheduler runs tasks on runtime timers.
type TickerScheduler struct{}

func (TickerScheduler) Every(period time.Duration, fn func()) Task {
	task := &tickerTask{stop: make(chan struct{})}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-task.stop:
				return
			}
		}
	}()
	return task
}

func (TickerScheduler) After(delay time.Duration, fn func()) Task {
	timer := time.AfterFunc(delay, fn)
	return timerTask{timer}
}

type tickerTask struct {
	once sync.Once
	stop chan struct{}
}

func (t *tickerTask) Stop() {
	t.once.Do(func() { close(t.stop) })
}

type timerTask struct {
	timer *time.Timer
}

func (t timerTask) Stop() {
	t.timer.Stop()
}
