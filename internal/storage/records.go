package storage

import (
	"context"
	"fmt"
	"time"
)

// PersonalRecord is the best performance logged for one exercise.
type PersonalRecord struct {
	Exercise     string    `json:"exercise"`
	MaxWeightKg  float64   `json:"max_weight_kg"`
	RepsAtMax    int       `json:"reps_at_max"`
	AchievedAt   time.Time `json:"achieved_at"`
	Estimated1RM float64   `json:"estimated_1rm_kg"`
	TotalSets    int       `json:"total_sets"`
}

// GetPersonalRecords returns the heaviest working set per exercise and the
// best Epley-estimated one-rep max across all of that exercise's sets.
func (db *DB) GetPersonalRecords(ctx context.Context, userID int, exerciseFilter string) ([]PersonalRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT ON (exercise_name)
		        exercise_name, weight_kg, reps, performed_at,
		        MAX(weight_kg * (1 + reps / 30.0)) OVER (PARTITION BY exercise_name),
		        COUNT(*) OVER (PARTITION BY exercise_name)::int
		 FROM workout_sets
		 WHERE user_id = $1 AND NOT is_warmup AND reps > 0
		   AND ($2 = '' OR exercise_name ILIKE '%' || $2 || '%')
		 ORDER BY exercise_name, weight_kg DESC, reps DESC, performed_at ASC`,
		userID, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()

	var result []PersonalRecord
	for rows.Next() {
		var pr PersonalRecord
		if err := rows.Scan(&pr.Exercise, &pr.MaxWeightKg, &pr.RepsAtMax, &pr.AchievedAt,
			&pr.Estimated1RM, &pr.TotalSets); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		result = append(result, pr)
	}
	return result, rows.Err()
}
