package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

const templateColumns = `id, user_id, name, type, exercises, created_at, updated_at`

// CreateTemplate inserts a new template and fills in its ID and timestamps.
func (db *DB) CreateTemplate(ctx context.Context, t *models.Template) error {
	exercises, err := json.Marshal(t.Exercises)
	if err != nil {
		return fmt.Errorf("marshal exercises: %w", err)
	}
	t.ID = uuid.New()
	err = db.Pool.QueryRow(ctx,
		`INSERT INTO workout_templates (id, user_id, name, type, exercises)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.Name, t.Type, exercises,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

// ListTemplates returns a user's templates ordered by name.
func (db *DB) ListTemplates(ctx context.Context, userID int) ([]models.Template, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+templateColumns+` FROM workout_templates WHERE user_id = $1 ORDER BY name`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

// GetTemplate retrieves one template.
func (db *DB) GetTemplate(ctx context.Context, id uuid.UUID, userID int) (*models.Template, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM workout_templates WHERE id = $1 AND user_id = $2`,
		id, userID)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, notFound(err, "template")
	}
	return t, nil
}

// UpdateTemplate replaces a template's name, type and exercises.
func (db *DB) UpdateTemplate(ctx context.Context, t *models.Template) error {
	exercises, err := json.Marshal(t.Exercises)
	if err != nil {
		return fmt.Errorf("marshal exercises: %w", err)
	}
	err = db.Pool.QueryRow(ctx,
		`UPDATE workout_templates SET name = $3, type = $4, exercises = $5, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.Name, t.Type, exercises,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return notFound(err, "template")
	}
	return nil
}

// DeleteTemplate removes a template. Workouts started from it keep a NULL reference.
func (db *DB) DeleteTemplate(ctx context.Context, id uuid.UUID, userID int) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanTemplate(row interface{ Scan(dest ...any) error }) (*models.Template, error) {
	var t models.Template
	var exercises []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Type, &exercises, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(exercises, &t.Exercises); err != nil {
		return nil, fmt.Errorf("unmarshal template exercises: %w", err)
	}
	return &t, nil
}
