package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RecordWorkout stores a finished workout and its sets in one transaction.
// Re-recording the same workout ID inserts nothing.
func (db *DB) RecordWorkout(ctx context.Context, workout models.WorkoutRow, sets []models.WorkoutSetRow) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		inserted, err := insertWorkout(ctx, tx, workout)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		_, err = insertWorkoutSets(ctx, tx, sets)
		return err
	})
}

// InsertWorkout inserts a workout row. Returns true if inserted, false if duplicate.
func (db *DB) InsertWorkout(ctx context.Context, row models.WorkoutRow) (bool, error) {
	return insertWorkout(ctx, db.Pool, row)
}

// insertWorkoutSQL links the template only while it still exists and belongs
// to the same user; otherwise template_id is stored as NULL.
const insertWorkoutSQL = `INSERT INTO workouts (id, user_id, name, type, template_id, start_time, end_time, duration_sec)
	VALUES ($1,$2,$3,$4,
		(SELECT t.id FROM workout_templates t WHERE t.id = $5::uuid AND t.user_id = $2),
		$6,$7,$8)
	ON CONFLICT DO NOTHING`

func insertWorkout(ctx context.Context, q execer, row models.WorkoutRow) (bool, error) {
	tag, err := q.Exec(ctx, insertWorkoutSQL,
		row.ID, row.UserID, row.Name, row.Type, row.TemplateID, row.StartTime, row.EndTime, row.DurationSec)
	if err != nil {
		return false, fmt.Errorf("inserting workout: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// WorkoutDetail is a workout with its performed sets.
type WorkoutDetail struct {
	models.WorkoutRow
	Sets []models.WorkoutSetRow `json:"sets"`
}

// QueryWorkouts retrieves workouts in a time range, newest first.
// typeFilter, when set, matches the workout type exactly.
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time, userID int, typeFilter string) ([]models.WorkoutRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, type, template_id, start_time, end_time, duration_sec
		 FROM workouts
		 WHERE start_time >= $1 AND start_time < $2 AND user_id = $3
		   AND ($4 = '' OR type = $4)
		 ORDER BY start_time DESC`,
		start, end, userID, typeFilter)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutRow
	for rows.Next() {
		var w models.WorkoutRow
		if err := rows.Scan(&w.ID, &w.UserID, &w.Name, &w.Type, &w.TemplateID,
			&w.StartTime, &w.EndTime, &w.DurationSec); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkout retrieves a single workout by ID with its sets.
func (db *DB) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*WorkoutDetail, error) {
	var w models.WorkoutRow
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, type, template_id, start_time, end_time, duration_sec
		 FROM workouts
		 WHERE id = $1 AND user_id = $2`,
		workoutID, userID).Scan(&w.ID, &w.UserID, &w.Name, &w.Type, &w.TemplateID,
		&w.StartTime, &w.EndTime, &w.DurationSec)
	if err != nil {
		return nil, notFound(err, "workout")
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT `+setColumns+`
		 FROM workout_sets
		 WHERE workout_id = $1 AND user_id = $2
		 ORDER BY exercise_number ASC, set_number ASC`,
		workoutID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()

	sets, err := scanSetRows(rows)
	if err != nil {
		return nil, err
	}
	return &WorkoutDetail{WorkoutRow: w, Sets: sets}, nil
}

// DeleteWorkout removes a workout and its sets.
func (db *DB) DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2`, workoutID, userID)
	if err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workout %s: %w", workoutID, ErrNotFound)
	}
	return nil
}
