package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
)

var (
	ErrNoSession        = errors.New("no active session")
	ErrSessionActive    = errors.New("a session is already active")
	ErrInvalidConfig    = errors.New("invalid workout config")
	ErrExerciseIndex    = errors.New("exercise index out of range")
	ErrSetIndex         = errors.New("set index out of range")
	ErrLastExercise     = errors.New("cannot remove the last exercise")
	ErrNothingCompleted = errors.New("no completed sets to record")
	ErrNoRecorder       = errors.New("no workout recorder configured")
)

// Tracker owns the single active-session slot. Every mutation is applied to a
// copy, written to storage in full, and only then made current, so memory and
// storage never disagree.
type Tracker struct {
	mu       sync.Mutex
	store    *Storage
	recorder Recorder
	log      *slog.Logger
	now      func() time.Time

	current *models.ActiveSession
}

// NewTracker creates a Tracker. recorder may be nil when finished workouts
// have nowhere to go (Finish then fails with ErrNoRecorder).
func NewTracker(store *Storage, recorder Recorder, log *slog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// Restore loads the persisted session into memory.
func (t *Tracker) Restore(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.store.Load(ctx)
	if err != nil {
		return err
	}
	t.current = s
	if s != nil {
		t.log.Info("restored active session", "workout", s.WorkoutName, "started_at", s.StartedAt)
	}
	return nil
}

// Session returns a copy of the active session, or nil.
func (t *Tracker) Session() *models.ActiveSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.Clone()
}

// StartWorkout creates a new in-progress session from cfg.
func (t *Tracker) StartWorkout(ctx context.Context, cfg models.WorkoutConfig) (*models.ActiveSession, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != nil {
		return nil, ErrSessionActive
	}

	s := &models.ActiveSession{
		Status:      models.StatusInProgress,
		WorkoutName: strings.TrimSpace(cfg.Name),
		WorkoutType: cfg.Type,
		TemplateID:  cfg.TemplateID,
		StartedAt:   t.timestamp(),
		Exercises:   make([]models.ExerciseProgress, 0, len(cfg.Exercises)),
	}
	for _, ex := range cfg.Exercises {
		s.Exercises = append(s.Exercises, newExercise(ex))
	}

	if err := t.store.Save(ctx, s); err != nil {
		return nil, err
	}
	t.current = s
	t.log.Info("workout started", "workout", s.WorkoutName, "exercises", len(s.Exercises))
	return s.Clone(), nil
}

// CompleteSet records what was performed for a set.
func (t *Tracker) CompleteSet(ctx context.Context, exercise, set int, result models.SetResult) (*models.ActiveSession, error) {
	if result.Reps < 0 || result.Weight < 0 {
		return nil, fmt.Errorf("%w: reps and weight must not be negative", ErrInvalidConfig)
	}
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		rec, err := setAt(s, exercise, set)
		if err != nil {
			return err
		}
		reps, weight := result.Reps, result.Weight
		rec.ActualReps = &reps
		rec.ActualWeight = &weight
		rec.RIR = result.RIR
		rec.CompletedAt = t.timestamp()
		return nil
	})
}

// UpdateSet replaces the targets of a set, keeping any recorded actuals.
func (t *Tracker) UpdateSet(ctx context.Context, exercise, set int, target models.SetTarget) (*models.ActiveSession, error) {
	if err := validateTarget(&target); err != nil {
		return nil, err
	}
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		rec, err := setAt(s, exercise, set)
		if err != nil {
			return err
		}
		rec.TargetReps = target.TargetReps
		rec.TargetWeight = target.TargetWeight
		rec.WeightUnit = target.WeightUnit
		rec.Warmup = target.Warmup
		return nil
	})
}

// AddSet appends a set to an exercise.
func (t *Tracker) AddSet(ctx context.Context, exercise int, target models.SetTarget) (*models.ActiveSession, error) {
	if err := validateTarget(&target); err != nil {
		return nil, err
	}
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		if exercise < 0 || exercise >= len(s.Exercises) {
			return ErrExerciseIndex
		}
		s.Exercises[exercise].Sets = append(s.Exercises[exercise].Sets, newSet(target))
		return nil
	})
}

// RemoveSet deletes a set from an exercise.
func (t *Tracker) RemoveSet(ctx context.Context, exercise, set int) (*models.ActiveSession, error) {
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		if _, err := setAt(s, exercise, set); err != nil {
			return err
		}
		sets := s.Exercises[exercise].Sets
		s.Exercises[exercise].Sets = append(sets[:set:set], sets[set+1:]...)
		return nil
	})
}

// AddExercise appends an exercise to the session.
func (t *Tracker) AddExercise(ctx context.Context, ex models.ExerciseConfig) (*models.ActiveSession, error) {
	if err := validateExercise(&ex); err != nil {
		return nil, err
	}
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		s.Exercises = append(s.Exercises, newExercise(ex))
		return nil
	})
}

// RemoveExercise deletes an exercise. The last exercise cannot be removed.
func (t *Tracker) RemoveExercise(ctx context.Context, exercise int) (*models.ActiveSession, error) {
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		if exercise < 0 || exercise >= len(s.Exercises) {
			return ErrExerciseIndex
		}
		if len(s.Exercises) == 1 {
			return ErrLastExercise
		}
		s.Exercises = append(s.Exercises[:exercise:exercise], s.Exercises[exercise+1:]...)
		return nil
	})
}

// Pause marks the session paused.
func (t *Tracker) Pause(ctx context.Context) (*models.ActiveSession, error) {
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		s.Status = models.StatusPaused
		s.RestEndsAt = ""
		return nil
	})
}

// Resume marks the session in progress again.
func (t *Tracker) Resume(ctx context.Context) (*models.ActiveSession, error) {
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		s.Status = models.StatusInProgress
		return nil
	})
}

// MaxRest is the longest rest timer accepted.
const MaxRest = 24 * time.Hour

// RestSeconds converts a rest length given in seconds, rejecting values
// outside 1s..MaxRest before they can overflow a Duration.
func RestSeconds(seconds int) (time.Duration, error) {
	if seconds < 1 || seconds > int(MaxRest/time.Second) {
		return 0, fmt.Errorf("%w: rest must be between 1 and %d seconds", ErrInvalidConfig, int(MaxRest/time.Second))
	}
	return time.Duration(seconds) * time.Second, nil
}

// StartRest starts a rest timer ending d from now.
func (t *Tracker) StartRest(ctx context.Context, d time.Duration) (*models.ActiveSession, error) {
	if d <= 0 || d > MaxRest {
		return nil, fmt.Errorf("%w: rest duration must be positive and at most %s", ErrInvalidConfig, MaxRest)
	}
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		s.RestEndsAt = t.now().UTC().Add(d).Format(time.RFC3339)
		return nil
	})
}

// ClearRest stops the rest timer.
func (t *Tracker) ClearRest(ctx context.Context) (*models.ActiveSession, error) {
	return t.mutate(ctx, func(s *models.ActiveSession) error {
		s.RestEndsAt = ""
		return nil
	})
}

// Finish records the session's completed sets to history and clears the slot.
func (t *Tracker) Finish(ctx context.Context, userID int) (*models.WorkoutRow, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return nil, ErrNoSession
	}
	if t.recorder == nil {
		return nil, ErrNoRecorder
	}
	if t.current.CompletedSets() == 0 {
		return nil, ErrNothingCompleted
	}

	workout, sets := BuildHistory(t.current, userID, t.now())
	if err := t.recorder.RecordWorkout(ctx, workout, sets); err != nil {
		return nil, fmt.Errorf("recording workout: %w", err)
	}
	if err := t.store.Save(ctx, nil); err != nil {
		return nil, err
	}
	t.current = nil
	t.log.Info("workout finished", "workout", workout.Name, "id", workout.ID, "sets", len(sets))
	return &workout, nil
}

// Discard drops the active session without recording it.
func (t *Tracker) Discard(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return ErrNoSession
	}
	if err := t.store.Save(ctx, nil); err != nil {
		return err
	}
	t.log.Info("workout discarded", "workout", t.current.WorkoutName)
	t.current = nil
	return nil
}

func (t *Tracker) mutate(ctx context.Context, fn func(*models.ActiveSession) error) (*models.ActiveSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return nil, ErrNoSession
	}
	next := t.current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := t.store.Save(ctx, next); err != nil {
		return nil, err
	}
	t.current = next
	return next.Clone(), nil
}

func (t *Tracker) timestamp() string {
	return t.now().UTC().Format(time.RFC3339)
}

func setAt(s *models.ActiveSession, exercise, set int) (*models.SetRecord, error) {
	if exercise < 0 || exercise >= len(s.Exercises) {
		return nil, ErrExerciseIndex
	}
	sets := s.Exercises[exercise].Sets
	if set < 0 || set >= len(sets) {
		return nil, ErrSetIndex
	}
	return &sets[set], nil
}

func newExercise(cfg models.ExerciseConfig) models.ExerciseProgress {
	ex := models.ExerciseProgress{
		Name:      strings.TrimSpace(cfg.Name),
		Equipment: cfg.Equipment,
		Sets:      make([]models.SetRecord, 0, len(cfg.Sets)),
	}
	for _, target := range cfg.Sets {
		ex.Sets = append(ex.Sets, newSet(target))
	}
	return ex
}

func newSet(target models.SetTarget) models.SetRecord {
	return models.SetRecord{
		TargetReps:   target.TargetReps,
		TargetWeight: target.TargetWeight,
		WeightUnit:   target.WeightUnit,
		Warmup:       target.Warmup,
	}
}

// ValidateConfig checks that cfg can start a session: a name and at least one
// named exercise with non-negative targets. Empty weight units on the config's
// sets are set to kg in place.
func ValidateConfig(cfg models.WorkoutConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if len(cfg.Exercises) == 0 {
		return fmt.Errorf("%w: at least one exercise is required", ErrInvalidConfig)
	}
	for i := range cfg.Exercises {
		if err := validateExercise(&cfg.Exercises[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateExercise(ex *models.ExerciseConfig) error {
	if strings.TrimSpace(ex.Name) == "" {
		return fmt.Errorf("%w: exercise name is required", ErrInvalidConfig)
	}
	for i := range ex.Sets {
		if err := validateTarget(&ex.Sets[i]); err != nil {
			return fmt.Errorf("%s set %d: %w", ex.Name, i+1, err)
		}
	}
	return nil
}

func validateTarget(target *models.SetTarget) error {
	if target.TargetReps < 0 || target.TargetWeight < 0 {
		return fmt.Errorf("%w: targets must not be negative", ErrInvalidConfig)
	}
	switch target.WeightUnit {
	case "":
		target.WeightUnit = models.UnitKg
	case models.UnitKg, models.UnitLb:
	default:
		return fmt.Errorf("%w: unknown weight unit %q", ErrInvalidConfig, target.WeightUnit)
	}
	return nil
}
