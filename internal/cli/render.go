package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/claude/liftlog/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	exerciseStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// renderSession formats a session for the terminal. now drives the rest
// countdown.
func renderSession(s *models.ActiveSession, now time.Time) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(s.WorkoutName))
	meta := []string{strings.ReplaceAll(s.Status, "_", " ")}
	if started, err := time.Parse(time.RFC3339, s.StartedAt); err == nil {
		meta = append(meta, "started "+started.Local().Format("15:04"))
	}
	if left := restRemaining(s, now); left > 0 {
		meta = append(meta, "rest "+left.Round(time.Second).String())
	}
	b.WriteString(" " + metaStyle.Render(strings.Join(meta, " · ")) + "\n")

	for i, ex := range s.Exercises {
		header := fmt.Sprintf("%d. %s", i+1, ex.Name)
		if ex.Equipment != "" {
			header += " (" + ex.Equipment + ")"
		}
		b.WriteString(exerciseStyle.Render(header) + "\n")

		for j, set := range ex.Sets {
			line := fmt.Sprintf("   %d  %s", j+1, formatLoad(set.TargetReps, set.TargetWeight, set.WeightUnit))
			if set.Warmup {
				line += " warm-up"
			}
			if set.Completed() {
				reps, weight := set.TargetReps, set.TargetWeight
				if set.ActualReps != nil {
					reps = *set.ActualReps
				}
				if set.ActualWeight != nil {
					weight = *set.ActualWeight
				}
				done := "done " + formatLoad(reps, weight, set.WeightUnit)
				if set.RIR != nil {
					done += " @ RIR " + strconv.FormatFloat(*set.RIR, 'f', -1, 64)
				}
				b.WriteString(line + "  " + doneStyle.Render(done) + "\n")
				continue
			}
			b.WriteString(pendingStyle.Render(line) + "\n")
		}
	}
	return b.String()
}

func formatLoad(reps int, weight float64, unit string) string {
	if weight == 0 {
		return fmt.Sprintf("%d reps", reps)
	}
	if unit == "" {
		unit = models.UnitKg
	}
	return fmt.Sprintf("%d × %s %s", reps, strconv.FormatFloat(weight, 'f', -1, 64), unit)
}

func restRemaining(s *models.ActiveSession, now time.Time) time.Duration {
	if s.RestEndsAt == "" {
		return 0
	}
	ends, err := time.Parse(time.RFC3339, s.RestEndsAt)
	if err != nil {
		return 0
	}
	return ends.Sub(now)
}
