package session

import (
	"fmt"
	"time"

	"timed-quiz-service/internal/domain"
)

// TimerState is the visual urgency of a countdown.
type TimerState int

const (
	TimerNormal TimerState = iota
	TimerWarning
	TimerCritical
	TimerExpired
)

// OptionView is one renderable answer option; blank options of the
// underlying question are never included.
type OptionView struct {
	Label    string
	Text     string
	Selected bool
}

// View is a render-ready snapshot of the session. It carries no live
// references, so renderers may keep it across dispatches.
type View struct {
	Phase Phase

	Title       string
	Description string

	Index        int
	Total        int
	QuestionText string
	Options      []OptionView

	Remaining     int
	QuestionState TimerState

	OverallClock   string
	OverallWarning bool
	OverallExpired bool

	Answered  int
	CanPrev   bool
	CanNext   bool
	CanSubmit bool
	SubmitCue bool

	LoadErr   error
	SubmitErr error

	Result           domain.SubmissionResult
	Leaderboard      domain.Leaderboard
	LeaderboardErr   error
	LeaderboardReady bool
}

// View snapshots the current session state.
func (s *Session) View() View {
	v := View{
		Phase:            s.phase,
		Title:            s.quiz.Title,
		Description:      s.quiz.Description,
		Total:            len(s.questions),
		Answered:         len(s.answers),
		OverallClock:     formatClock(s.overallRemaining),
		OverallWarning:   s.overallRemaining < overallWarnBelow,
		OverallExpired:   s.overallExpired,
		SubmitCue:        s.submitCue,
		LoadErr:          s.loadErr,
		SubmitErr:        s.submitErr,
		Result:           s.result,
		Leaderboard:      s.leaderboard,
		LeaderboardErr:   s.leaderboardErr,
		LeaderboardReady: s.leaderboardReady,
	}

	if len(s.questions) == 0 || s.current >= len(s.questions) {
		return v
	}

	q := s.questions[s.current]
	v.Index = s.current
	v.QuestionText = q.Text
	v.Remaining = s.remaining[q.ID]
	v.QuestionState = questionState(v.Remaining)

	selected := s.answers[q.ID]
	for _, label := range domain.OptionLabels {
		if !q.HasOption(label) {
			continue
		}
		v.Options = append(v.Options, OptionView{
			Label:    label,
			Text:     q.Option(label),
			Selected: selected == label,
		})
	}

	// Navigation visibility is derived purely from the index: previous is
	// hidden at the first question, submit replaces next at the last one.
	v.CanPrev = s.current > 0
	v.CanNext = s.current < len(s.questions)-1
	v.CanSubmit = s.current == len(s.questions)-1

	return v
}

func questionState(remaining int) TimerState {
	switch {
	case remaining <= 0:
		return TimerExpired
	case remaining <= 3:
		return TimerCritical
	case remaining <= 5:
		return TimerWarning
	default:
		return TimerNormal
	}
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
