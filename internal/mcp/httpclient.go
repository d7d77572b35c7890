package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

var errNotFound = errors.New("not found")

// NewHTTPClient creates an HTTPClient targeting the given base URL. apiKey is
// sent as X-API-Key when non-empty; on the tailnet it is not needed.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// bucketToPeriod maps MCP bucket values to the REST API period parameter.
func bucketToPeriod(bucket string) string {
	switch bucket {
	case "1 day":
		return "daily"
	case "1 month":
		return "monthly"
	default:
		return "weekly"
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, errNotFound)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

// ActiveSession returns the server's active session; a 404 means none.
func (c *HTTPClient) ActiveSession(ctx context.Context) (*models.ActiveSession, error) {
	var s models.ActiveSession
	err := c.get(ctx, "/api/v1/session", nil, &s)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *HTTPClient) QueryWorkouts(ctx context.Context, start, end time.Time, _ int, typeFilter string) ([]models.WorkoutRow, error) {
	params := timeParams(start, end)
	if typeFilter != "" {
		params.Set("type", typeFilter)
	}
	var workouts []models.WorkoutRow
	if err := c.get(ctx, "/api/v1/workouts", params, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (c *HTTPClient) QueryWorkoutSets(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	params := timeParams(start, end)
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}
	var sets []models.WorkoutSetRow
	if err := c.get(ctx, "/api/v1/sets", params, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (c *HTTPClient) ListTemplates(ctx context.Context, _ int) ([]models.Template, error) {
	var templates []models.Template
	if err := c.get(ctx, "/api/v1/templates", nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("period", bucketToPeriod(bucket))
	var summary []storage.TrainingSummaryPeriod
	if err := c.get(ctx, "/api/v1/training/summary", params, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (c *HTTPClient) GetPersonalRecords(ctx context.Context, _ int, exerciseFilter string) ([]storage.PersonalRecord, error) {
	params := url.Values{}
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}
	var records []storage.PersonalRecord
	if err := c.get(ctx, "/api/v1/training/records", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}
