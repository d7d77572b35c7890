package storage

import (
	"context"
	"fmt"
	"time"
)

// WorkoutTypePeriodSummary holds aggregated workout stats for one type within a period.
type WorkoutTypePeriodSummary struct {
	Type        string  `json:"type"`
	Count       int     `json:"count"`
	AvgDuration float64 `json:"avg_duration_sec"`
}

// StrengthVolumeSummary holds aggregated strength training stats for a period.
type StrengthVolumeSummary struct {
	WorkingSets       int     `json:"working_sets"`
	TotalReps         int     `json:"total_reps"`
	TonnageKg         float64 `json:"tonnage_kg"`
	Sessions          int     `json:"sessions"`
	AvgSetsPerSession float64 `json:"avg_sets_per_session"`
}

// TrainingSummaryPeriod holds combined workout + strength data for one time period.
type TrainingSummaryPeriod struct {
	Period   string                     `json:"period"`
	Workouts []WorkoutTypePeriodSummary `json:"workouts"`
	Strength *StrengthVolumeSummary     `json:"strength,omitempty"`
}

// GetTrainingSummary returns aggregated workout and strength volume stats per period.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	interval := truncInterval(bucket)

	workoutRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, start_time)::date AS period,
		        COALESCE(NULLIF(type, ''), 'other'),
		        COUNT(*)::int,
		        AVG(duration_sec)
		 FROM workouts
		 WHERE start_time >= $2 AND start_time < $3 AND user_id = $4
		 GROUP BY period, 2
		 ORDER BY period DESC, COUNT(*) DESC`,
		interval, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout summary: %w", err)
	}
	defer workoutRows.Close()

	periods := newPeriodIndex()
	for workoutRows.Next() {
		var periodTime time.Time
		var ws WorkoutTypePeriodSummary
		if err := workoutRows.Scan(&periodTime, &ws.Type, &ws.Count, &ws.AvgDuration); err != nil {
			return nil, fmt.Errorf("scanning workout summary: %w", err)
		}
		p := periods.get(periodTime)
		p.Workouts = append(p.Workouts, ws)
	}
	if err := workoutRows.Err(); err != nil {
		return nil, err
	}

	strengthRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, performed_at)::date AS period,
		        COUNT(*) FILTER (WHERE NOT is_warmup)::int AS working_sets,
		        COALESCE(SUM(reps) FILTER (WHERE NOT is_warmup), 0)::int AS total_reps,
		        COALESCE(SUM(weight_kg * reps) FILTER (WHERE NOT is_warmup), 0) AS tonnage,
		        COUNT(DISTINCT workout_id)::int AS sessions
		 FROM workout_sets
		 WHERE performed_at >= $2 AND performed_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		interval, start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying strength summary: %w", err)
	}
	defer strengthRows.Close()

	for strengthRows.Next() {
		var periodTime time.Time
		var sv StrengthVolumeSummary
		if err := strengthRows.Scan(&periodTime, &sv.WorkingSets, &sv.TotalReps, &sv.TonnageKg, &sv.Sessions); err != nil {
			return nil, fmt.Errorf("scanning strength summary: %w", err)
		}
		if sv.Sessions > 0 {
			sv.AvgSetsPerSession = float64(sv.WorkingSets) / float64(sv.Sessions)
		}
		periods.get(periodTime).Strength = &sv
	}
	if err := strengthRows.Err(); err != nil {
		return nil, err
	}

	return periods.ordered(), nil
}

// periodIndex collects summaries keyed by period, remembering first-seen order.
type periodIndex struct {
	byKey map[string]*TrainingSummaryPeriod
	order []string
}

func newPeriodIndex() *periodIndex {
	return &periodIndex{byKey: make(map[string]*TrainingSummaryPeriod)}
}

func (pi *periodIndex) get(t time.Time) *TrainingSummaryPeriod {
	key := t.Format("2006-01-02")
	p, ok := pi.byKey[key]
	if !ok {
		p = &TrainingSummaryPeriod{Period: key}
		pi.byKey[key] = p
		pi.order = append(pi.order, key)
	}
	return p
}

func (pi *periodIndex) ordered() []TrainingSummaryPeriod {
	result := make([]TrainingSummaryPeriod, 0, len(pi.order))
	for _, key := range pi.order {
		result = append(result, *pi.byKey[key])
	}
	return result
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "month"
	}
}
