package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/claude/liftlog/internal/models"
)

// maxSets bounds the sets one exercise argument can create.
const maxSets = 100

// exercisePattern matches "Name:SETSxREPS" with an optional "@WEIGHT" and unit.
var exercisePattern = regexp.MustCompile(`^(.+?):\s*(\d+)\s*[xX]\s*(\d+)\s*(?:@\s*(\d+(?:\.\d+)?)\s*(kg|lb|lbs)?)?$`)

// parseExercise turns "Squat:5x5@100kg" into five identical 5-rep sets at
// 100 kg. The weight defaults to 0 and the unit to kg.
func parseExercise(arg string) (models.ExerciseConfig, error) {
	m := exercisePattern.FindStringSubmatch(strings.TrimSpace(arg))
	if m == nil {
		return models.ExerciseConfig{}, fmt.Errorf("invalid exercise %q: want Name:SETSxREPS[@WEIGHT[kg|lb]]", arg)
	}

	name := strings.TrimSpace(m[1])
	sets, err := strconv.Atoi(m[2])
	if err != nil || sets < 1 || sets > maxSets {
		return models.ExerciseConfig{}, fmt.Errorf("invalid exercise %q: sets must be between 1 and %d", arg, maxSets)
	}
	reps, err := strconv.Atoi(m[3])
	if err != nil {
		return models.ExerciseConfig{}, fmt.Errorf("invalid exercise %q: reps: %w", arg, err)
	}

	var weight float64
	if m[4] != "" {
		if weight, err = strconv.ParseFloat(m[4], 64); err != nil {
			return models.ExerciseConfig{}, fmt.Errorf("invalid exercise %q: weight: %w", arg, err)
		}
	}
	unit := models.UnitKg
	if strings.HasPrefix(m[5], "lb") {
		unit = models.UnitLb
	}

	ex := models.ExerciseConfig{Name: name, Sets: make([]models.SetTarget, sets)}
	for i := range ex.Sets {
		ex.Sets[i] = models.SetTarget{TargetReps: reps, TargetWeight: weight, WeightUnit: unit}
	}
	return ex, nil
}
