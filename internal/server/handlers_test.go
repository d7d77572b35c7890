package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
)

const testAPIKey = "test-key"

// fakeStore is an in-memory Store and session.Recorder.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]int
	templates map[uuid.UUID]models.Template
	workouts  map[uuid.UUID]storage.WorkoutDetail
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]int{},
		templates: map[uuid.UUID]models.Template{},
		workouts:  map[uuid.UUID]storage.WorkoutDetail{},
	}
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.users[login]; ok {
		return id, nil
	}
	id := len(f.users) + 2
	f.users[login] = id
	return id, nil
}

func (f *fakeStore) RecordWorkout(_ context.Context, w models.WorkoutRow, sets []models.WorkoutSetRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.workouts[w.ID]; !ok {
		f.workouts[w.ID] = storage.WorkoutDetail{WorkoutRow: w, Sets: sets}
	}
	return nil
}

func (f *fakeStore) QueryWorkouts(_ context.Context, _, _ time.Time, userID int, _ string) ([]models.WorkoutRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WorkoutRow
	for _, w := range f.workouts {
		if w.UserID == userID {
			out = append(out, w.WorkoutRow)
		}
	}
	return out, nil
}

func (f *fakeStore) GetWorkout(_ context.Context, id uuid.UUID, userID int) (*storage.WorkoutDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workouts[id]
	if !ok || w.UserID != userID {
		return nil, fmt.Errorf("workout %s: %w", id, storage.ErrNotFound)
	}
	return &w, nil
}

func (f *fakeStore) DeleteWorkout(_ context.Context, id uuid.UUID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workouts[id]
	if !ok || w.UserID != userID {
		return fmt.Errorf("workout %s: %w", id, storage.ErrNotFound)
	}
	delete(f.workouts, id)
	return nil
}

func (f *fakeStore) QueryWorkoutSets(context.Context, time.Time, time.Time, int, string) ([]models.WorkoutSetRow, error) {
	return nil, nil
}

func (f *fakeStore) CreateTemplate(_ context.Context, t *models.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	f.templates[t.ID] = *t
	return nil
}

func (f *fakeStore) ListTemplates(_ context.Context, userID int) ([]models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Template
	for _, t := range f.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTemplate(_ context.Context, id uuid.UUID, userID int) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok || t.UserID != userID {
		return nil, fmt.Errorf("template %s: %w", id, storage.ErrNotFound)
	}
	return &t, nil
}

func (f *fakeStore) UpdateTemplate(_ context.Context, t *models.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.templates[t.ID]; !ok {
		return fmt.Errorf("template %s: %w", t.ID, storage.ErrNotFound)
	}
	f.templates[t.ID] = *t
	return nil
}

func (f *fakeStore) DeleteTemplate(_ context.Context, id uuid.UUID, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.templates, id)
	return nil
}

func (f *fakeStore) GetTrainingSummary(context.Context, time.Time, time.Time, string, int) ([]storage.TrainingSummaryPeriod, error) {
	return []storage.TrainingSummaryPeriod{}, nil
}

func (f *fakeStore) GetPersonalRecords(context.Context, int, string) ([]storage.PersonalRecord, error) {
	return []storage.PersonalRecord{}, nil
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := newFakeStore()
	store := session.NewStorage(session.NewMemoryKV(), "", log)
	return New(db, session.NewTracker(store, db, log), testAPIKey, log), db
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) models.ActiveSession {
	t.Helper()
	var got models.ActiveSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	return got
}

var pushDay = models.WorkoutConfig{
	Name: "Push Day",
	Type: "strength",
	Exercises: []models.ExerciseConfig{
		{Name: "Bench Press", Equipment: "Barbell", Sets: []models.SetTarget{
			{TargetReps: 5, TargetWeight: 80},
			{TargetReps: 5, TargetWeight: 80},
		}},
		{Name: "Dips", Sets: []models.SetTarget{{TargetReps: 10}}},
	},
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

// TestSessionLifecycle walks a workout from start to finish over HTTP and
// checks the finished workout lands in history.
func TestSessionLifecycle(t *testing.T) {
	s, db := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no session yet")

	rec = do(t, s, http.MethodPost, "/api/v1/session", pushDay)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decodeSession(t, rec)
	assert.Equal(t, models.StatusInProgress, started.Status)
	assert.Len(t, started.Exercises, 2)

	rec = do(t, s, http.MethodPost, "/api/v1/session", pushDay)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/session/exercises/0/sets/0/complete",
		models.SetResult{Reps: 5, Weight: 82.5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeSession(t, rec)
	require.NotNil(t, updated.Exercises[0].Sets[0].ActualReps)
	assert.Equal(t, 82.5, *updated.Exercises[0].Sets[0].ActualWeight)

	rec = do(t, s, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, updated, decodeSession(t, rec))

	rec = do(t, s, http.MethodPost, "/api/v1/session/finish", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var workout models.WorkoutRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&workout))
	assert.Equal(t, "Push Day", workout.Name)
	assert.Equal(t, 1, workout.UserID)

	require.Contains(t, db.workouts, workout.ID)
	assert.Len(t, db.workouts[workout.ID].Sets, 1)

	rec = do(t, s, http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "finish clears the slot")
}

// TestSessionEditing covers the exercise and set editing routes.
func TestSessionEditing(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/session", pushDay).Code)

	rec := do(t, s, http.MethodPost, "/api/v1/session/exercises",
		models.ExerciseConfig{Name: "Overhead Press", Sets: []models.SetTarget{{TargetReps: 8, TargetWeight: 40}}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeSession(t, rec).Exercises, 3)

	rec = do(t, s, http.MethodPost, "/api/v1/session/exercises/2/sets",
		models.SetTarget{TargetReps: 8, TargetWeight: 100, WeightUnit: "lb"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeSession(t, rec)
	require.Len(t, got.Exercises[2].Sets, 2)
	assert.Equal(t, "lb", got.Exercises[2].Sets[1].WeightUnit)

	rec = do(t, s, http.MethodPut, "/api/v1/session/exercises/2/sets/1",
		models.SetTarget{TargetReps: 6, TargetWeight: 45})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeSession(t, rec)
	assert.Equal(t, 6, got.Exercises[2].Sets[1].TargetReps)
	assert.Equal(t, "kg", got.Exercises[2].Sets[1].WeightUnit)

	rec = do(t, s, http.MethodDelete, "/api/v1/session/exercises/2/sets/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeSession(t, rec).Exercises[2].Sets, 1)

	rec = do(t, s, http.MethodDelete, "/api/v1/session/exercises/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Overhead Press", decodeSession(t, rec).Exercises[1].Name)
}

// TestSessionPauseAndRest covers status and rest timer routes.
func TestSessionPauseAndRest(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/session", pushDay).Code)

	rec := do(t, s, http.MethodPost, "/api/v1/session/rest", map[string]int{"seconds": 90})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeSession(t, rec).RestEndsAt)

	rec = do(t, s, http.MethodDelete, "/api/v1/session/rest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSession(t, rec).RestEndsAt)

	rec = do(t, s, http.MethodPost, "/api/v1/session/rest", map[string]int{"seconds": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/session/rest", map[string]int64{"seconds": 1 << 62})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "rest longer than a day")
	rec = do(t, s, http.MethodGet, "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSession(t, rec).RestEndsAt)

	rec = do(t, s, http.MethodPost, "/api/v1/session/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusPaused, decodeSession(t, rec).Status)

	rec = do(t, s, http.MethodPost, "/api/v1/session/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusInProgress, decodeSession(t, rec).Status)

	rec = do(t, s, http.MethodDelete, "/api/v1/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, s, http.MethodDelete, "/api/v1/session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestSessionErrorStatuses verifies tracker errors map to client statuses.
func TestSessionErrorStatuses(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/session/pause", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "mutating without a session")

	rec = do(t, s, http.MethodPost, "/api/v1/session", models.WorkoutConfig{Name: "Empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "config without exercises")

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/session", pushDay).Code)

	cases := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodPost, "/api/v1/session/exercises/9/sets/0/complete", models.SetResult{Reps: 5}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/session/exercises/0/sets/9/complete", models.SetResult{Reps: 5}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/session/exercises/x/sets/0/complete", models.SetResult{Reps: 5}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/session/exercises/0/sets/0/complete", models.SetResult{Reps: -1}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/session/exercises/0/sets", models.SetTarget{WeightUnit: "stone"}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/session/finish", nil, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		rec := do(t, s, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/rest", bytes.NewBufferString("{"))
	req.Header.Set("X-API-Key", testAPIKey)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "malformed body")
}

// TestStartFromTemplate verifies a session can be started from a stored
// template, with an optional name override.
func TestStartFromTemplate(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/templates", models.Template{
		Name:      "Pull Day",
		Exercises: []models.ExerciseConfig{{Name: "Row", Sets: []models.SetTarget{{TargetReps: 8, TargetWeight: 60}}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tmpl models.Template
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tmpl))
	assert.Equal(t, 1, tmpl.UserID)

	rec = do(t, s, http.MethodPost, "/api/v1/session", map[string]string{"template_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown template")

	rec = do(t, s, http.MethodPost, "/api/v1/session", map[string]string{
		"template_id": tmpl.ID.String(),
		"name":        "Pull Day (light)",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decodeSession(t, rec)
	assert.Equal(t, "Pull Day (light)", got.WorkoutName)
	assert.Equal(t, tmpl.ID.String(), got.TemplateID)
	assert.Equal(t, "kg", got.Exercises[0].Sets[0].WeightUnit)
}

// TestStartInlineWithTemplateID verifies an inline config may only reference
// one of the caller's templates, and that finishing still works after that
// template is deleted mid-workout.
func TestStartInlineWithTemplateID(t *testing.T) {
	s, _ := newTestServer(t)

	inline := pushDay
	inline.TemplateID = uuid.NewString()
	rec := do(t, s, http.MethodPost, "/api/v1/session", inline)
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown template")
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/v1/session", nil).Code)

	inline.TemplateID = "not-a-uuid"
	rec = do(t, s, http.MethodPost, "/api/v1/session", inline)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/templates", models.Template{
		Name:      "Push Template",
		Exercises: []models.ExerciseConfig{{Name: "Bench Press", Sets: []models.SetTarget{{TargetReps: 5}}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tmpl models.Template
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tmpl))

	inline.TemplateID = tmpl.ID.String()
	rec = do(t, s, http.MethodPost, "/api/v1/session", inline)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decodeSession(t, rec)
	assert.Equal(t, "Push Day", got.WorkoutName)
	assert.Len(t, got.Exercises, 2, "inline exercises win over the template's")
	assert.Equal(t, tmpl.ID.String(), got.TemplateID)

	require.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/v1/templates/"+tmpl.ID.String(), nil).Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/v1/session/exercises/0/sets/0/complete", models.SetResult{Reps: 5, Weight: 80}).Code)
	rec = do(t, s, http.MethodPost, "/api/v1/session/finish", nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// TestTemplateValidation verifies templates are held to workout config rules.
func TestTemplateValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/templates", models.Template{Name: "Nothing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/v1/templates/not-a-uuid", models.Template{Name: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/templates/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestWorkoutHistoryRoutes verifies finished workouts can be listed, fetched
// and deleted.
func TestWorkoutHistoryRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/session", pushDay).Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/api/v1/session/exercises/1/sets/0/complete", models.SetResult{Reps: 12}).Code)
	rec := do(t, s, http.MethodPost, "/api/v1/session/finish", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var workout models.WorkoutRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&workout))

	rec = do(t, s, http.MethodGet, "/api/v1/workouts?start=2000-01-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.WorkoutRow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 1)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/"+workout.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/v1/workouts/"+workout.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/"+workout.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts?start=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestTrainingRoutes verifies the summary and records routes are wired.
func TestTrainingRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/training/summary?period=monthly", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/training/records?exercise=bench", nil).Code)
}

// TestParseTimeRange verifies date-only ends cover the whole day and a missing
// start falls back to the last 30 days.
func TestParseTimeRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?start=2024-01-01&end=2024-01-31", nil)
	start, end, err := parseTimeRange(req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	start, end, err = parseTimeRange(req)
	require.NoError(t, err)
	assert.InDelta(t, float64(30*24*time.Hour), float64(end.Sub(start)), float64(time.Hour))
}
