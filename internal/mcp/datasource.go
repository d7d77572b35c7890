package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Local (in-process) and
// HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ActiveSession(ctx context.Context) (*models.ActiveSession, error)
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int, typeFilter string) ([]models.WorkoutRow, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error)
	ListTemplates(ctx context.Context, userID int) ([]models.Template, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetPersonalRecords(ctx context.Context, userID int, exerciseFilter string) ([]storage.PersonalRecord, error)
}

// Local serves history from the database and the session from the
// in-process tracker.
type Local struct {
	*storage.DB
	Tracker *session.Tracker
}

var _ DataSource = (*Local)(nil)

// ActiveSession returns the tracker's current session, or nil.
func (l *Local) ActiveSession(context.Context) (*models.ActiveSession, error) {
	return l.Tracker.Session(), nil
}
