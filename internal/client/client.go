// Package client talks to the RepCoach REST API for the terminal performer
// and for MCP stdio mode.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	repmcp "github.com/claude/repcoach/internal/mcp"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/google/uuid"
)

// ErrRejected means the server refused a request as invalid. Retrying the
// same request cannot succeed.
var ErrRejected = errors.New("rejected by server")

const submitAttempts = 3

// Client calls the RepCoach REST API. Identity comes from the network path
// (tsnet), so user ID arguments on the DataSource methods are ignored.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

// Compile-time check: Client can back the MCP server.
var _ repmcp.DataSource = (*Client)(nil)

// Identity is the caller as the server sees it.
type Identity struct {
	UserID      int    `json:"user_id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// New creates a Client targeting the given base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body []byte) (int, []byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("client: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("client: read body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// getJSON fetches path and decodes a 200 response into v.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	status, body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("client: %s returned %d: %s", path, status, bytes.TrimSpace(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

// Me returns the identity the server resolved for this client.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.getJSON(ctx, "/api/v1/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// ListAssigned returns the workouts assigned to the caller.
func (c *Client) ListAssigned(ctx context.Context) ([]models.TemplateRow, error) {
	var templates []models.TemplateRow
	if err := c.getJSON(ctx, "/api/v1/workouts", nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// GetTemplate fetches one workout template.
func (c *Client) GetTemplate(ctx context.Context, id uuid.UUID) (*models.TemplateRow, error) {
	var tmpl models.TemplateRow
	if err := c.getJSON(ctx, "/api/v1/workouts/"+id.String(), nil, &tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// SubmitLog sends a finished session's log. It retries up to 3 times with
// exponential backoff; a 4xx answer is returned at once wrapped in
// ErrRejected. The bool reports whether the server stored a new log rather
// than recognizing a duplicate.
func (c *Client) SubmitLog(ctx context.Context, sub models.LogSubmission) (bool, error) {
	data, err := json.Marshal(sub)
	if err != nil {
		return false, fmt.Errorf("marshaling log: %w", err)
	}

	var lastErr error
	for attempt := range submitAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		status, body, err := c.do(ctx, http.MethodPost, "/api/v1/logs", nil, data)
		if err != nil {
			lastErr = err
			continue
		}
		switch {
		case status == http.StatusCreated:
			return true, nil
		case status == http.StatusOK:
			return false, nil
		case status >= 400 && status < 500:
			return false, fmt.Errorf("%w (status %d): %s", ErrRejected, status, bytes.TrimSpace(body))
		}
		lastErr = fmt.Errorf("log submit failed (status %d): %s", status, bytes.TrimSpace(body))
	}

	return false, fmt.Errorf("after %d attempts: %w", submitAttempts, lastErr)
}

// --- MCP DataSource ---

func (c *Client) ListAssignedTemplates(ctx context.Context, _ int) ([]models.TemplateRow, error) {
	return c.ListAssigned(ctx)
}

func (c *Client) QueryWorkoutLogs(ctx context.Context, start, end time.Time, _ int) ([]models.WorkoutLogRow, error) {
	var logs []models.WorkoutLogRow
	if err := c.getJSON(ctx, "/api/v1/logs", timeParams(start, end), &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// bucketToAgg maps MCP bucket values to the REST agg parameter.
func bucketToAgg(bucket string) string {
	if bucket == "1 week" {
		return "weekly"
	}
	return "monthly"
}

func (c *Client) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("agg", bucketToAgg(bucket))

	var periods []storage.TrainingSummaryPeriod
	if err := c.getJSON(ctx, "/api/v1/training-summary", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

// GetExerciseProgress passes the filter as ?exercise=.
func (c *Client) GetExerciseProgress(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) (*storage.ExerciseProgress, error) {
	params := timeParams(start, end)
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}

	var progress storage.ExerciseProgress
	if err := c.getJSON(ctx, "/api/v1/exercise-progress", params, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetDataStats ignores now; the server computes streaks against its own clock.
func (c *Client) GetDataStats(ctx context.Context, _ int, _ time.Time) (*storage.DataStats, error) {
	var stats storage.DataStats
	if err := c.getJSON(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
