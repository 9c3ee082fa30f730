package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeSource struct {
	logs     []models.WorkoutLogRow
	err      error
	gotUser  int
	bucket   string
	exercise string
	span     time.Duration
}

func (f *fakeSource) ListAssignedTemplates(_ context.Context, userID int) ([]models.TemplateRow, error) {
	f.gotUser = userID
	return nil, f.err
}

func (f *fakeSource) QueryWorkoutLogs(_ context.Context, _, _ time.Time, userID int) ([]models.WorkoutLogRow, error) {
	f.gotUser = userID
	return f.logs, f.err
}

func (f *fakeSource) GetTrainingSummary(_ context.Context, _, _ time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error) {
	f.gotUser, f.bucket = userID, bucket
	return []storage.TrainingSummaryPeriod{{Period: "2026-05-01", Sessions: 3}}, f.err
}

func (f *fakeSource) GetDataStats(_ context.Context, userID int, _ time.Time) (*storage.DataStats, error) {
	f.gotUser = userID
	return &storage.DataStats{TotalWorkouts: 9, CurrentStreak: 2}, f.err
}

func (f *fakeSource) GetExerciseProgress(_ context.Context, start, end time.Time, userID int, exercise string) (*storage.ExerciseProgress, error) {
	f.gotUser, f.exercise, f.span = userID, exercise, end.Sub(start)
	return &storage.ExerciseProgress{Exercises: []storage.ExerciseSummary{{Name: "Back Squat", Sessions: 4}}}, f.err
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content is %T, want text", res.Content[0])
	}
	return tc.Text
}

// TestUserIDFromContext verifies the dev default and the transport override.
func TestUserIDFromContext(t *testing.T) {
	if id := UserIDFromContext(context.Background()); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
	if id := UserIDFromContext(WithUserID(context.Background(), 42)); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestDefaultTimeRange verifies the day-count default and both date formats.
func TestDefaultTimeRange(t *testing.T) {
	start, end, err := defaultTimeRange("", "", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days := end.Sub(start).Hours() / 24; days < 29.9 || days > 31.1 {
		t.Errorf("default range = %.1f days, want ~30", days)
	}

	start, end, err = defaultTimeRange("2026-01-01", "2026-01-31", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Day() != 1 || end.Day() != 31 {
		t.Errorf("range = %v..%v", start, end)
	}

	start, _, err = defaultTimeRange("2026-06-15T10:30:00Z", "", 7)
	if err != nil || start.Hour() != 10 {
		t.Errorf("RFC3339 start = %v, %v", start, err)
	}

	if _, _, err := defaultTimeRange("not-a-date", "", 7); err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestGetWorkoutLogsFilter verifies the name filter is a case-insensitive
// substring match and that the user comes from the context.
func TestGetWorkoutLogsFilter(t *testing.T) {
	ds := &fakeSource{logs: []models.WorkoutLogRow{
		{WorkoutName: "Push Day"},
		{WorkoutName: "Pull Day"},
		{WorkoutName: "Upper Push"},
	}}
	h := newHandlers(ds)

	res, err := h.getWorkoutLogs(WithUserID(context.Background(), 5), callRequest(map[string]any{"workout": "PUSH"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var got []models.WorkoutLogRow
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].WorkoutName != "Push Day" || got[1].WorkoutName != "Upper Push" {
		t.Errorf("filtered = %+v", got)
	}
	if ds.gotUser != 5 {
		t.Errorf("queried user %d, want 5", ds.gotUser)
	}
}

// TestToolErrors verifies bad input and data errors surface as tool errors,
// not protocol errors.
func TestToolErrors(t *testing.T) {
	ctx := context.Background()
	h := newHandlers(&fakeSource{})

	res, err := h.getWorkoutLogs(ctx, callRequest(map[string]any{"start": "last week"}))
	if err != nil || !res.IsError {
		t.Errorf("bad date: res=%+v err=%v, want tool error", res, err)
	}

	res, err = h.getTrainingSummary(ctx, callRequest(map[string]any{"bucket": "1 day"}))
	if err != nil || !res.IsError {
		t.Errorf("bad bucket: res=%+v err=%v, want tool error", res, err)
	}

	failing := newHandlers(&fakeSource{err: errors.New("db down")})
	res, err = failing.getStats(ctx, callRequest(nil))
	if err != nil || !res.IsError {
		t.Errorf("db error: res=%+v err=%v, want tool error", res, err)
	}
}

// TestGetTrainingSummaryDefaults verifies the bucket default.
func TestGetTrainingSummaryDefaults(t *testing.T) {
	ds := &fakeSource{}
	res, err := newHandlers(ds).getTrainingSummary(context.Background(), callRequest(nil))
	if err != nil || res.IsError {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if ds.bucket != "1 month" {
		t.Errorf("bucket = %q, want 1 month", ds.bucket)
	}
}

// TestGetExerciseProgress verifies the 90-day default and the trimmed filter.
func TestGetExerciseProgress(t *testing.T) {
	ds := &fakeSource{}
	res, err := newHandlers(ds).getExerciseProgress(WithUserID(context.Background(), 3), callRequest(map[string]any{"exercise": " squat "}))
	if err != nil || res.IsError {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if ds.exercise != "squat" || ds.gotUser != 3 {
		t.Errorf("exercise=%q user=%d", ds.exercise, ds.gotUser)
	}
	if days := ds.span.Hours() / 24; days < 89.9 || days > 90.1 {
		t.Errorf("range = %.1f days, want 90", days)
	}

	var got storage.ExerciseProgress
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Exercises) != 1 || got.Exercises[0].Sessions != 4 {
		t.Errorf("progress = %+v", got)
	}
}

// TestListWorkoutsEmpty verifies no assignments encode as an empty list.
func TestListWorkoutsEmpty(t *testing.T) {
	res, err := newHandlers(&fakeSource{}).listWorkouts(context.Background(), callRequest(nil))
	if err != nil || res.IsError {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if got := resultText(t, res); got != "[]" {
		t.Errorf("text = %s, want []", got)
	}
}

// TestRecentLogsResource verifies the resource echoes its URI and wraps the logs.
func TestRecentLogsResource(t *testing.T) {
	h := newHandlers(&fakeSource{logs: []models.WorkoutLogRow{{WorkoutName: "Push Day"}}})
	var req mcp.ReadResourceRequest
	req.Params.URI = "repcoach://recent_logs"

	contents, err := h.recentLogs(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T", contents[0])
	}
	if tc.URI != req.Params.URI || tc.MIMEType != "application/json" {
		t.Errorf("resource = %+v", tc)
	}
	var body struct {
		Days     int                    `json:"days"`
		Sessions []models.WorkoutLogRow `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(tc.Text), &body); err != nil {
		t.Fatal(err)
	}
	if body.Days != 14 || len(body.Sessions) != 1 {
		t.Errorf("body = %+v", body)
	}
}

// TestNew verifies the server builds over any DataSource.
func TestNew(t *testing.T) {
	if s := New(&fakeSource{}, "test", slog.New(slog.NewTextHandler(io.Discard, nil))); s == nil {
		t.Fatal("New returned nil")
	}
}
