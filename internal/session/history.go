package session

import (
	"context"
	"strconv"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// Recorder persists finished workouts to durable history.
type Recorder interface {
	RecordWorkout(ctx context.Context, workout models.WorkoutRow, sets []models.WorkoutSetRow) error
}

// workoutNamespace seeds deterministic workout IDs so that retrying a finish
// cannot record the same session twice.
var workoutNamespace = uuid.MustParse("6f1c3f4e-2b8a-4c3d-9a51-3e0d7c1b52aa")

// WorkoutID derives the history ID for a user's session from its start time
// and name.
func WorkoutID(s *models.ActiveSession, userID int) uuid.UUID {
	key := strconv.Itoa(userID) + "\x00" + s.StartedAt + "\x00" + s.WorkoutName
	return uuid.NewSHA1(workoutNamespace, []byte(key))
}

// BuildHistory converts a session into history rows. Only completed sets are
// included. Targets fill in for actuals that were not recorded.
func BuildHistory(s *models.ActiveSession, userID int, finishedAt time.Time) (models.WorkoutRow, []models.WorkoutSetRow) {
	finishedAt = finishedAt.UTC()
	start, err := time.Parse(time.RFC3339, s.StartedAt)
	if err != nil {
		start = earliestCompletion(s, finishedAt)
	}

	duration := finishedAt.Sub(start).Seconds()
	if duration < 0 {
		duration = 0
	}

	workout := models.WorkoutRow{
		ID:          WorkoutID(s, userID),
		UserID:      userID,
		Name:        s.WorkoutName,
		Type:        s.WorkoutType,
		StartTime:   start,
		EndTime:     finishedAt,
		DurationSec: duration,
	}
	if id, err := uuid.Parse(s.TemplateID); err == nil {
		workout.TemplateID = &id
	}

	var sets []models.WorkoutSetRow
	for i, ex := range s.Exercises {
		for j, set := range ex.Sets {
			if !set.Completed() {
				continue
			}
			performedAt, err := time.Parse(time.RFC3339, set.CompletedAt)
			if err != nil {
				performedAt = finishedAt
			}
			unit := set.WeightUnit
			if unit == "" {
				unit = models.UnitKg
			}
			reps := set.TargetReps
			if set.ActualReps != nil {
				reps = *set.ActualReps
			}
			weight := set.TargetWeight
			if set.ActualWeight != nil {
				weight = *set.ActualWeight
			}

			sets = append(sets, models.WorkoutSetRow{
				WorkoutID:      workout.ID,
				UserID:         userID,
				PerformedAt:    performedAt,
				ExerciseNumber: i + 1,
				ExerciseName:   ex.Name,
				Equipment:      ex.Equipment,
				SetNumber:      j + 1,
				IsWarmup:       set.Warmup,
				TargetReps:     set.TargetReps,
				TargetWeight:   set.TargetWeight,
				Reps:           reps,
				Weight:         weight,
				WeightUnit:     unit,
				WeightKg:       models.ToKg(weight, unit),
				RIR:            set.RIR,
			})
		}
	}
	return workout, sets
}

func earliestCompletion(s *models.ActiveSession, fallback time.Time) time.Time {
	earliest := fallback
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if t, err := time.Parse(time.RFC3339, set.CompletedAt); err == nil && t.Before(earliest) {
				earliest = t
			}
		}
	}
	return earliest
}
