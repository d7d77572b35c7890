package session

import (
	"encoding/json"
	"math"

	"github.com/claude/liftlog/internal/models"
)

// Beyond the top-level checks in Validate, stored records are read field by
// field: a nested value of the wrong type is dropped and the rest of the
// session is kept.

type object = map[string]json.RawMessage

func decodeSession(fields object, exercises []json.RawMessage) *models.ActiveSession {
	s := &models.ActiveSession{Exercises: make([]models.ExerciseProgress, len(exercises))}
	s.Status, _ = field[string](fields, "status")
	s.WorkoutName, _ = field[string](fields, "workoutName")
	s.StartedAt, _ = field[string](fields, "startedAt")
	s.WorkoutType, _ = field[string](fields, "workoutType")
	s.TemplateID, _ = field[string](fields, "templateId")
	s.RestEndsAt, _ = field[string](fields, "restEndsAt")
	for i, raw := range exercises {
		s.Exercises[i] = decodeExercise(raw)
	}
	return s
}

func decodeExercise(raw json.RawMessage) models.ExerciseProgress {
	var ex models.ExerciseProgress
	var fields object
	if json.Unmarshal(raw, &fields) != nil {
		return ex
	}
	ex.Name, _ = field[string](fields, "name")
	ex.Equipment, _ = field[string](fields, "equipment")
	if sets, ok := field[[]json.RawMessage](fields, "sets"); ok {
		ex.Sets = make([]models.SetRecord, len(sets))
		for i, set := range sets {
			ex.Sets[i] = decodeSet(set)
		}
	}
	return ex
}

func decodeSet(raw json.RawMessage) models.SetRecord {
	var set models.SetRecord
	var fields object
	if json.Unmarshal(raw, &fields) != nil {
		return set
	}
	set.TargetReps, _ = count(fields, "targetReps")
	set.TargetWeight, _ = field[float64](fields, "targetWeight")
	set.WeightUnit, _ = field[string](fields, "weightUnit")
	set.Warmup, _ = field[bool](fields, "warmup")
	set.CompletedAt, _ = field[string](fields, "completedAt")
	if reps, ok := count(fields, "actualReps"); ok {
		set.ActualReps = &reps
	}
	if weight, ok := field[float64](fields, "actualWeight"); ok {
		set.ActualWeight = &weight
	}
	if rir, ok := field[float64](fields, "rir"); ok {
		set.RIR = &rir
	}
	return set
}

// field decodes fields[name] as T. It reports false when the field is
// missing, null or of another type.
func field[T any](fields object, name string) (T, bool) {
	var v T
	raw, ok := fields[name]
	if !ok || kind(raw) == 'n' {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, false
	}
	return v, true
}

// count reads a whole-number field. Fractional values are truncated.
func count(fields object, name string) (int, bool) {
	f, ok := field[float64](fields, name)
	if !ok || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
