package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

func (a *app) showCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the workout in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.tracker.Session()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			if s == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No workout in progress.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSession(s, time.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the stored session record without changing it",
		Long: `check reads the stored record and reports whether it can be resumed.
A record that fails here is removed the next time any other command runs.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationRaw: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, ok, err := a.store.Raw(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: empty\n", a.store.Key())
				return nil
			}
			s, err := session.Validate([]byte(raw))
			if err != nil {
				return fmt.Errorf("%s: %w", a.store.Key(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d exercises)\n", a.store.Key(), s.WorkoutName, len(s.Exercises))
			return nil
		},
	}
}

func (a *app) startCmd() *cobra.Command {
	var (
		name      string
		kind      string
		exercises []string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a workout",
		Example: `  liftlog-session start --name "Leg Day" \
    --exercise "Squat:5x5@100kg" --exercise "Leg Press:3x10@180kg" --exercise "Plank:3x1"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := models.WorkoutConfig{Name: name, Type: kind}
			for _, arg := range exercises {
				ex, err := parseExercise(arg)
				if err != nil {
					return err
				}
				cfg.Exercises = append(cfg.Exercises, ex)
			}
			s, err := a.tracker.StartWorkout(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSession(s, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "workout name")
	cmd.Flags().StringVar(&kind, "type", "strength", "workout type")
	cmd.Flags().StringArrayVarP(&exercises, "exercise", "e", nil, `exercise as "Name:SETSxREPS[@WEIGHT[kg|lb]]"; repeatable`)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("exercise")
	return cmd
}

func (a *app) completeCmd() *cobra.Command {
	var (
		reps   int
		weight float64
		rir    float64
	)
	cmd := &cobra.Command{
		Use:   "complete <exercise> <set>",
		Short: "Record a set as done; reps and weight default to the targets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, set, err := positions(args[0], args[1])
			if err != nil {
				return err
			}

			result := models.SetResult{Reps: reps, Weight: weight}
			if cur := a.tracker.Session(); cur != nil && ex < len(cur.Exercises) && set < len(cur.Exercises[ex].Sets) {
				target := cur.Exercises[ex].Sets[set]
				if !cmd.Flags().Changed("reps") {
					result.Reps = target.TargetReps
				}
				if !cmd.Flags().Changed("weight") {
					result.Weight = target.TargetWeight
				}
			}
			if cmd.Flags().Changed("rir") {
				result.RIR = &rir
			}

			s, err := a.tracker.CompleteSet(cmd.Context(), ex, set, result)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSession(s, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&reps, "reps", "r", 0, "reps performed")
	cmd.Flags().Float64VarP(&weight, "weight", "w", 0, "weight used, in the set's unit")
	cmd.Flags().Float64Var(&rir, "rir", 0, "reps in reserve")
	return cmd
}

func (a *app) addSetCmd() *cobra.Command {
	var target models.SetTarget
	cmd := &cobra.Command{
		Use:   "add-set <exercise>",
		Short: "Append a set to an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := position(args[0], "exercise")
			if err != nil {
				return err
			}
			s, err := a.tracker.AddSet(cmd.Context(), ex, target)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSession(s, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&target.TargetReps, "reps", "r", 0, "target reps")
	cmd.Flags().Float64VarP(&target.TargetWeight, "weight", "w", 0, "target weight")
	cmd.Flags().StringVar(&target.WeightUnit, "unit", models.UnitKg, "weight unit (kg or lb)")
	cmd.Flags().BoolVar(&target.Warmup, "warmup", false, "mark as a warm-up set")
	return cmd
}

func (a *app) restCmd() *cobra.Command {
	var stop bool
	cmd := &cobra.Command{
		Use:   "rest [seconds]",
		Short: "Start the rest timer, or clear it with --clear",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s   *models.ActiveSession
				err error
			)
			switch {
			case stop:
				s, err = a.tracker.ClearRest(cmd.Context())
			case len(args) == 1:
				secs, convErr := strconv.Atoi(args[0])
				if convErr != nil {
					return fmt.Errorf("invalid seconds %q", args[0])
				}
				d, restErr := session.RestSeconds(secs)
				if restErr != nil {
					return restErr
				}
				s, err = a.tracker.StartRest(cmd.Context(), d)
			default:
				return errors.New("give a rest length in seconds or --clear")
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSession(s, time.Now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&stop, "clear", false, "stop the rest timer")
	return cmd
}

func (a *app) pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the workout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.tracker.Pause(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSession(s, time.Now()))
			return nil
		},
	}
}

func (a *app) resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused workout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.tracker.Resume(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSession(s, time.Now()))
			return nil
		},
	}
}

func (a *app) discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop the workout in progress without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tracker.Discard(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Workout discarded.")
			return nil
		},
	}
}

func (a *app) finishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish",
		Short: "Record completed sets to history and end the workout (needs --config)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := a.tracker.Finish(cmd.Context(), a.userID)
			if errors.Is(err, session.ErrNoRecorder) {
				return fmt.Errorf("%w: pass --config to record to the history database", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s (%s) as %s.\n",
				w.Name, time.Duration(w.DurationSec*float64(time.Second)).Round(time.Minute), w.ID)
			return nil
		},
	}
}

// position converts a 1-based command-line position to an index.
func position(arg, what string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s position %q: positions start at 1", what, arg)
	}
	return n - 1, nil
}

func positions(exArg, setArg string) (int, int, error) {
	ex, err := position(exArg, "exercise")
	if err != nil {
		return 0, 0, err
	}
	set, err := position(setArg, "set")
	if err != nil {
		return 0, 0, err
	}
	return ex, set, nil
}
