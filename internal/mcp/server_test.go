package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// fakeSource is a canned DataSource that records the user and filters it was
// queried with.
type fakeSource struct {
	session  *models.ActiveSession
	err      error
	gotUser  int
	gotFilt  string
	gotBuck  string
	workouts []models.WorkoutRow
}

func (f *fakeSource) ActiveSession(context.Context) (*models.ActiveSession, error) {
	return f.session, f.err
}

func (f *fakeSource) QueryWorkouts(_ context.Context, _, _ time.Time, userID int, typeFilter string) ([]models.WorkoutRow, error) {
	f.gotUser, f.gotFilt = userID, typeFilter
	return f.workouts, f.err
}

func (f *fakeSource) QueryWorkoutSets(_ context.Context, _, _ time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	f.gotUser, f.gotFilt = userID, exerciseFilter
	return []models.WorkoutSetRow{}, f.err
}

func (f *fakeSource) ListTemplates(_ context.Context, userID int) ([]models.Template, error) {
	f.gotUser = userID
	return []models.Template{}, f.err
}

func (f *fakeSource) GetTrainingSummary(_ context.Context, _, _ time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error) {
	f.gotUser, f.gotBuck = userID, bucket
	return []storage.TrainingSummaryPeriod{}, f.err
}

func (f *fakeSource) GetPersonalRecords(_ context.Context, userID int, exerciseFilter string) ([]storage.PersonalRecord, error) {
	f.gotUser, f.gotFilt = userID, exerciseFilter
	return []storage.PersonalRecord{{Exercise: "Deadlift", MaxWeightKg: 180}}, f.err
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText returns the first text content of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("content is %T, want text", res.Content[0])
	return ""
}

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestDefaultTimeRange verifies time range defaults and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to the last 7 days
	start, end, err := defaultTimeRange("", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 { // ~168 hours = 7 days
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	// Explicit dates
	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2024 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2024-01-01", start)
	}
	if end.Year() != 2024 || end.Month() != 1 || end.Day() != 31 {
		t.Errorf("end = %v, want 2024-01-31", end)
	}

	// RFC3339
	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Invalid
	_, _, err = defaultTimeRange("not-a-date", "", 7)
	if err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestGetActiveSessionTool verifies the tool returns the session as JSON, and
// null when nothing is in progress.
func TestGetActiveSessionTool(t *testing.T) {
	ds := &fakeSource{}
	h := newHandlers(ds)

	res, err := h.getActiveSession(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "null" {
		t.Errorf("no session: text = %q, want null", got)
	}

	ds.session = &models.ActiveSession{Status: models.StatusPaused, WorkoutName: "Legs", StartedAt: "2026-01-01T10:00:00Z",
		Exercises: []models.ExerciseProgress{{Name: "Squat"}}}
	res, err = h.getActiveSession(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	var got models.ActiveSession
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != models.StatusPaused || got.WorkoutName != "Legs" {
		t.Errorf("session = %+v", got)
	}
}

// TestToolsScopeToUser verifies tools query with the user from the context
// and forward filters.
func TestToolsScopeToUser(t *testing.T) {
	ds := &fakeSource{}
	h := newHandlers(ds)
	ctx := WithUserID(context.Background(), 7)

	if _, err := h.getWorkouts(ctx, callRequest(map[string]any{"type": "strength"})); err != nil {
		t.Fatal(err)
	}
	if ds.gotUser != 7 || ds.gotFilt != "strength" {
		t.Errorf("get_workouts queried user=%d filter=%q", ds.gotUser, ds.gotFilt)
	}

	res, err := h.getPersonalRecords(ctx, callRequest(map[string]any{"exercise": "dead"}))
	if err != nil {
		t.Fatal(err)
	}
	if ds.gotFilt != "dead" {
		t.Errorf("get_personal_records filter = %q, want dead", ds.gotFilt)
	}
	if !strings.Contains(resultText(t, res), "Deadlift") {
		t.Errorf("records result missing exercise: %s", resultText(t, res))
	}

	if _, err := h.getTrainingSummary(ctx, callRequest(nil)); err != nil {
		t.Fatal(err)
	}
	if ds.gotBuck != "1 month" {
		t.Errorf("default bucket = %q, want '1 month'", ds.gotBuck)
	}

	if _, err := h.listTemplates(WithUserID(context.Background(), 9), callRequest(nil)); err != nil {
		t.Fatal(err)
	}
	if ds.gotUser != 9 {
		t.Errorf("list_templates user = %d, want 9", ds.gotUser)
	}
}

// TestToolErrors verifies bad input and data failures come back as tool
// errors rather than protocol errors.
func TestToolErrors(t *testing.T) {
	h := newHandlers(&fakeSource{})
	res, err := h.getWorkoutSets(context.Background(), callRequest(map[string]any{"start": "last week"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("invalid date should be a tool error")
	}

	h = newHandlers(&fakeSource{err: errors.New("db down")})
	res, err = h.getWorkouts(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("query failure should be a tool error")
	}
}

// TestResources verifies resources return JSON text under their URI.
func TestResources(t *testing.T) {
	ds := &fakeSource{workouts: []models.WorkoutRow{{Name: "Push"}}}
	h := newHandlers(ds)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "liftlog://recent_workouts"
	contents, err := h.recentWorkouts(WithUserID(context.Background(), 3), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T", contents[0])
	}
	if text.URI != "liftlog://recent_workouts" || !strings.Contains(text.Text, "Push") {
		t.Errorf("contents = %+v", text)
	}
	if ds.gotUser != 3 {
		t.Errorf("user = %d, want 3", ds.gotUser)
	}

	req.Params.URI = "liftlog://active_session"
	contents, err = h.activeSession(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got := contents[0].(mcp.TextResourceContents).Text; got != "null" {
		t.Errorf("no session resource = %q, want null", got)
	}
}

// TestNewRegistersEverything verifies the server builds with all tools.
func TestNewRegistersEverything(t *testing.T) {
	if s := New(&fakeSource{}, "test", slog.Default()); s == nil {
		t.Fatal("New returned nil")
	}
}
