package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
)

const setColumns = `workout_id, user_id, performed_at, exercise_number, exercise_name, equipment,
		 set_number, is_warmup, target_reps, target_weight, reps, weight, weight_unit, weight_kg, rir`

// InsertWorkoutSets batch-inserts performed sets. Returns count inserted.
func (db *DB) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	return insertWorkoutSets(ctx, db.Pool, rows)
}

func insertWorkoutSets(ctx context.Context, q execer, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	const cols = 15
	query := `INSERT INTO workout_sets (` + setColumns + `) VALUES `
	args := make([]any, 0, len(rows)*cols)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		valueStrings = append(valueStrings, placeholders(i*cols, cols))
		args = append(args, r.WorkoutID, r.UserID, r.PerformedAt, r.ExerciseNumber, r.ExerciseName,
			r.Equipment, r.SetNumber, r.IsWarmup, r.TargetReps, r.TargetWeight,
			r.Reps, r.Weight, r.WeightUnit, r.WeightKg, r.RIR)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// placeholders renders "($base+1,...,$base+n)".
func placeholders(base, n int) string {
	var b strings.Builder
	b.WriteByte('(')
	for j := 1; j <= n; j++ {
		if j > 1 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "$%d", base+j)
	}
	b.WriteByte(')')
	return b.String()
}

// QueryWorkoutSets retrieves performed sets in a date range.
// exerciseFilter, when set, is a case-insensitive substring match on the exercise name.
func (db *DB) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE performed_at >= $1 AND performed_at < $2 AND user_id = $3
		   AND ($4 = '' OR exercise_name ILIKE '%' || $4 || '%')
		 ORDER BY performed_at DESC, exercise_number ASC, set_number ASC`,
		start, end, userID, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	return scanSetRows(rows)
}

func scanSetRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.WorkoutSetRow, error) {
	var result []models.WorkoutSetRow
	for rows.Next() {
		var r models.WorkoutSetRow
		if err := rows.Scan(&r.WorkoutID, &r.UserID, &r.PerformedAt, &r.ExerciseNumber, &r.ExerciseName,
			&r.Equipment, &r.SetNumber, &r.IsWarmup, &r.TargetReps, &r.TargetWeight,
			&r.Reps, &r.Weight, &r.WeightUnit, &r.WeightKg, &r.RIR); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
