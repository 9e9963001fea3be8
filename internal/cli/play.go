package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"timed-quiz-service/internal/client"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/session"
)

// NewPlayCmd runs a quiz attempt in the terminal against a running service.
func NewPlayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "play <quiz-id>",
		Short: "Take a quiz interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quizID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quiz id %q", args[0])
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return play(cmd, cfg, quizID)
		},
	}
}

func play(cmd *cobra.Command, cfg config.Config, quizID int64) error {
	ctx := cmd.Context()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	// The confirm prompt reads from the same stdin channel as the command
	// loop. Dispatch blocks here until the user answers, which is exactly
	// the window.confirm behaviour a browser quiz would have.
	confirm := func(unanswered int) bool {
		fmt.Printf("You have %d unanswered question(s). Submit anyway? [y/N] ", unanswered)
		line, ok := <-lines
		if !ok {
			return false
		}
		line = strings.ToLower(line)
		return line == "y" || line == "yes"
	}

	sess := session.New(client.New(cfg.Client.BaseURL, nil), session.WithConfirm(confirm))
	sess.Start(ctx, quizID)

	fmt.Println("Loading quiz...")

	var last session.View
	for {
		view := sess.View()
		render(view, last)
		last = view

		switch view.Phase {
		case session.PhaseFailed:
			return view.LoadErr
		case session.PhaseResults:
			if view.LeaderboardReady {
				return nil
			}
		}

		select {
		case ev := <-sess.Events():
			sess.Dispatch(ctx, ev)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "q" {
				fmt.Println("Quiz abandoned.")
				return nil
			}
			if ev, handled := command(line); handled {
				sess.Dispatch(ctx, ev)
			}
		}
	}
}

// command maps one line of input to a session event.
func command(line string) (session.Event, bool) {
	switch strings.ToLower(line) {
	case "a", "b", "c", "d":
		return session.Event{Type: session.EventSelectOption, Option: strings.ToUpper(line)}, true
	case "n":
		return session.Event{Type: session.EventNext}, true
	case "p":
		return session.Event{Type: session.EventPrev}, true
	case "s":
		return session.Event{Type: session.EventSubmit}, true
	default:
		return session.Event{}, false
	}
}

// render prints the parts of the view that changed since the last frame.
// Ticks only redraw the countdown lines; the question block is reprinted
// when the phase, question or selection changes.
func render(view, last session.View) {
	switch view.Phase {
	case session.PhaseLoading, session.PhaseFailed:
		return
	case session.PhaseSubmitting:
		if last.Phase != session.PhaseSubmitting {
			fmt.Println("Submitting answers...")
		}
		return
	case session.PhaseResults:
		renderResults(view, last)
		return
	}

	frameChanged := last.Phase != session.PhaseActive ||
		last.Index != view.Index ||
		optionsChanged(last.Options, view.Options) ||
		last.SubmitCue != view.SubmitCue

	if frameChanged {
		fmt.Printf("\n=== %s ===\n", view.Title)
		fmt.Printf("Question %d of %d (answered %d)\n\n", view.Index+1, view.Total, view.Answered)
		fmt.Println(view.QuestionText)
		for _, opt := range view.Options {
			marker := " "
			if opt.Selected {
				marker = "*"
			}
			fmt.Printf("  [%s] %s. %s\n", marker, opt.Label, opt.Text)
		}
		fmt.Println()
		fmt.Println(navHint(view))
	}

	if frameChanged || last.Remaining != view.Remaining || last.OverallClock != view.OverallClock {
		renderTimers(view)
	}
}

func navHint(view session.View) string {
	parts := []string{"a-d select"}
	if view.CanPrev {
		parts = append(parts, "p previous")
	}
	if view.CanNext {
		parts = append(parts, "n next")
	}
	if view.CanSubmit {
		parts = append(parts, "s submit")
	}
	parts = append(parts, "q quit")
	return strings.Join(parts, " | ")
}

func renderTimers(view session.View) {
	question := fmt.Sprintf("%ds", view.Remaining)
	switch view.QuestionState {
	case session.TimerExpired:
		question = "time up"
	case session.TimerCritical:
		question = question + " !!"
	case session.TimerWarning:
		question = question + " !"
	}

	overall := view.OverallClock
	if view.OverallWarning {
		overall = overall + " (ending soon)"
	}
	fmt.Printf("question: %s | quiz: %s\n", question, overall)

	if view.SubmitCue {
		fmt.Println("Last question done. Press s to submit.")
	}
}

func renderResults(view, last session.View) {
	if last.Phase != session.PhaseResults {
		fmt.Printf("\n=== Results: %s ===\n", view.Title)
		fmt.Printf("Score: %d/%d (%.2f%%)\n\n", view.Result.Score, view.Result.Total, view.Result.Percentage)
		for i, r := range view.Result.Results {
			status := "wrong"
			if r.Correct {
				status = "correct"
			}
			answer := "-"
			if r.UserAnswer != nil {
				answer = *r.UserAnswer
			}
			fmt.Printf("  Q%d: %s (you: %s, answer: %s)\n", i+1, status, answer, r.CorrectOption)
		}
	}

	if view.LeaderboardReady && !last.LeaderboardReady {
		if view.LeaderboardErr != nil {
			fmt.Printf("\nLeaderboard unavailable: %v\n", view.LeaderboardErr)
			return
		}
		fmt.Println("\n--- Leaderboard ---")
		for _, entry := range view.Leaderboard.Entries {
			you := ""
			if entry.ID == view.Result.LeaderboardID {
				you = "  <- you"
			}
			fmt.Printf("  #%d  score %d  %s%s\n", entry.Rank, entry.Score, entry.SubmittedAt.Format("15:04:05"), you)
		}
	}
}

func optionsChanged(a, b []session.OptionView) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}
