package models

import (
	"time"

	"github.com/google/uuid"
)

// KgPerLb converts pounds to kilograms.
const KgPerLb = 0.45359237

// WorkoutRow is a row for the workouts table.
type WorkoutRow struct {
	ID          uuid.UUID  `json:"id"`
	UserID      int        `json:"user_id"`
	Name        string     `json:"name"`
	Type        string     `json:"type,omitempty"`
	TemplateID  *uuid.UUID `json:"template_id,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	DurationSec float64    `json:"duration_sec"`
}

// WorkoutSetRow is a row for the workout_sets table. One row per performed set.
type WorkoutSetRow struct {
	WorkoutID      uuid.UUID `json:"workout_id"`
	UserID         int       `json:"user_id"`
	PerformedAt    time.Time `json:"performed_at"`
	ExerciseNumber int       `json:"exercise_number"`
	ExerciseName   string    `json:"exercise_name"`
	Equipment      string    `json:"equipment,omitempty"`
	SetNumber      int       `json:"set_number"`
	IsWarmup       bool      `json:"is_warmup"`
	TargetReps     int       `json:"target_reps"`
	TargetWeight   float64   `json:"target_weight"`
	Reps           int       `json:"reps"`
	Weight         float64   `json:"weight"`
	WeightUnit     string    `json:"weight_unit"`
	WeightKg       float64   `json:"weight_kg"`
	RIR            *float64  `json:"rir,omitempty"`
}

// Template is a reusable workout plan.
type Template struct {
	ID        uuid.UUID        `json:"id"`
	UserID    int              `json:"user_id"`
	Name      string           `json:"name"`
	Type      string           `json:"type,omitempty"`
	Exercises []ExerciseConfig `json:"exercises"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// WorkoutConfig returns the config for starting a session from the template.
func (t Template) WorkoutConfig() WorkoutConfig {
	return WorkoutConfig{
		Name:       t.Name,
		Type:       t.Type,
		TemplateID: t.ID.String(),
		Exercises:  t.Exercises,
	}
}

// ToKg converts a weight in the given unit to kilograms.
func ToKg(weight float64, unit string) float64 {
	if unit == UnitLb {
		return weight * KgPerLb
	}
	return weight
}
