package models

// Session status tags. Validation of stored sessions does not restrict the
// status to these values.
const (
	StatusInProgress = "in_progress"
	StatusPaused     = "paused"
)

// Weight units accepted on set targets.
const (
	UnitKg = "kg"
	UnitLb = "lb"
)

// ActiveSession is the workout currently being performed. At most one exists
// at a time; it lives in a single storage slot.
type ActiveSession struct {
	Status      string             `json:"status"`
	WorkoutName string             `json:"workoutName"`
	WorkoutType string             `json:"workoutType,omitempty"`
	TemplateID  string             `json:"templateId,omitempty"`
	StartedAt   string             `json:"startedAt"`
	RestEndsAt  string             `json:"restEndsAt,omitempty"`
	Exercises   []ExerciseProgress `json:"exercises"`
}

// ExerciseProgress is one exercise within an active session.
type ExerciseProgress struct {
	Name      string      `json:"name"`
	Equipment string      `json:"equipment,omitempty"`
	Sets      []SetRecord `json:"sets"`
}

// SetRecord holds a set's targets and, once performed, its actuals.
type SetRecord struct {
	TargetReps   int      `json:"targetReps"`
	TargetWeight float64  `json:"targetWeight"`
	WeightUnit   string   `json:"weightUnit"`
	Warmup       bool     `json:"warmup,omitempty"`
	ActualReps   *int     `json:"actualReps,omitempty"`
	ActualWeight *float64 `json:"actualWeight,omitempty"`
	RIR          *float64 `json:"rir,omitempty"`
	CompletedAt  string   `json:"completedAt,omitempty"`
}

// Completed reports whether actuals have been recorded for the set.
func (s SetRecord) Completed() bool {
	return s.CompletedAt != ""
}

// Clone returns a deep copy of the session.
func (s *ActiveSession) Clone() *ActiveSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Exercises = make([]ExerciseProgress, len(s.Exercises))
	for i, ex := range s.Exercises {
		c.Exercises[i] = ex.clone()
	}
	return &c
}

func (e ExerciseProgress) clone() ExerciseProgress {
	c := e
	if e.Sets != nil {
		c.Sets = make([]SetRecord, len(e.Sets))
		for i, set := range e.Sets {
			c.Sets[i] = set.clone()
		}
	}
	return c
}

func (s SetRecord) clone() SetRecord {
	c := s
	if s.ActualReps != nil {
		v := *s.ActualReps
		c.ActualReps = &v
	}
	if s.ActualWeight != nil {
		v := *s.ActualWeight
		c.ActualWeight = &v
	}
	if s.RIR != nil {
		v := *s.RIR
		c.RIR = &v
	}
	return c
}

// CompletedSets counts sets with recorded actuals across all exercises.
func (s *ActiveSession) CompletedSets() int {
	n := 0
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if set.Completed() {
				n++
			}
		}
	}
	return n
}

// WorkoutConfig describes a workout to start.
type WorkoutConfig struct {
	Name       string           `json:"name" yaml:"name"`
	Type       string           `json:"type,omitempty" yaml:"type"`
	TemplateID string           `json:"template_id,omitempty" yaml:"template_id"`
	Exercises  []ExerciseConfig `json:"exercises" yaml:"exercises"`
}

// ExerciseConfig is an exercise with its planned sets.
type ExerciseConfig struct {
	Name      string      `json:"name" yaml:"name"`
	Equipment string      `json:"equipment,omitempty" yaml:"equipment"`
	Sets      []SetTarget `json:"sets" yaml:"sets"`
}

// SetTarget is the planned load for a set.
type SetTarget struct {
	TargetReps   int     `json:"target_reps" yaml:"target_reps"`
	TargetWeight float64 `json:"target_weight" yaml:"target_weight"`
	WeightUnit   string  `json:"weight_unit" yaml:"weight_unit"`
	Warmup       bool    `json:"warmup,omitempty" yaml:"warmup"`
}

// SetResult is what was actually performed for a set.
type SetResult struct {
	Reps   int      `json:"reps"`
	Weight float64  `json:"weight"`
	RIR    *float64 `json:"rir,omitempty"`
}
