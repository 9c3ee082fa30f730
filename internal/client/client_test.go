package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

// newTestServer routes requests to handlers keyed by path and fails the test
// on any other path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Error(err)
	}
}

// newClient returns a Client for ts that retries without waiting.
func newClient(ts *httptest.Server) *Client {
	c := New(ts.URL + "/")
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func testSubmission() models.LogSubmission {
	return models.LogSubmission{
		SessionID:   uuid.MustParse("0d5c2a62-4b8e-4bb4-8a8e-2d1b8f4f6c11"),
		WorkoutName: "Push Day",
		CompletedAt: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		Summary: workout.Summary{
			StartedAt:       time.Date(2026, 6, 1, 7, 15, 0, 0, time.UTC),
			DurationSeconds: 2700,
			Exercises: []workout.ExerciseResult{
				{Name: "Bench Press", Section: workout.SectionWork, TargetSets: 3, TargetReps: 5, CompletedSets: 3, WeightUsed: 80, FullyCompleted: true},
			},
		},
	}
}

func TestListAssignedAndGetTemplate(t *testing.T) {
	id := uuid.New()
	tmpl := models.TemplateRow{ID: id, Name: "Push Day", Exercises: []workout.Exercise{
		{Name: "Bench Press", Section: workout.SectionWork, TargetSets: 3, TargetReps: 5},
	}}
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/workouts": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, []models.TemplateRow{tmpl})
		},
		"/api/v1/workouts/" + id.String(): func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, tmpl)
		},
	})
	c := newClient(ts)

	list, err := c.ListAssigned(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("assigned = %+v", list)
	}

	got, err := c.GetTemplate(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Exercises[0].TargetSets != 3 {
		t.Errorf("template = %+v", got)
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	if _, err := newClient(ts).GetTemplate(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for 404")
	}
}

// TestSubmitLogRetries verifies transient failures are retried and the
// created/duplicate distinction is reported.
func TestSubmitLogRetries(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/logs": func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			var sub models.LogSubmission
			if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
				t.Errorf("decode body: %v", err)
			}
			switch calls.Add(1) {
			case 1:
				writeTestJSON(t, w, http.StatusServiceUnavailable, map[string]string{"error": "db restarting"})
			case 2:
				writeTestJSON(t, w, http.StatusCreated, map[string]any{"session_id": sub.SessionID, "inserted": true})
			default:
				writeTestJSON(t, w, http.StatusOK, map[string]any{"session_id": sub.SessionID, "inserted": false})
			}
		},
	})
	c := newClient(ts)

	inserted, err := c.SubmitLog(context.Background(), testSubmission())
	if err != nil {
		t.Fatal(err)
	}
	if !inserted || calls.Load() != 2 {
		t.Errorf("inserted=%v calls=%d, want true after 2 calls", inserted, calls.Load())
	}

	inserted, err = c.SubmitLog(context.Background(), testSubmission())
	if err != nil || inserted {
		t.Errorf("duplicate: inserted=%v err=%v", inserted, err)
	}
}

func TestSubmitLogGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/logs": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeTestJSON(t, w, http.StatusBadGateway, map[string]string{"error": "down"})
		},
	})

	_, err := newClient(ts).SubmitLog(context.Background(), testSubmission())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrRejected) {
		t.Errorf("server error reported as rejection: %v", err)
	}
	if calls.Load() != submitAttempts {
		t.Errorf("calls = %d, want %d", calls.Load(), submitAttempts)
	}
}

func TestSubmitLogRejected(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/logs": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeTestJSON(t, w, http.StatusBadRequest, map[string]string{"error": "invalid workout log"})
		},
	})

	_, err := newClient(ts).SubmitLog(context.Background(), testSubmission())
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestSubmitLogContextCancelled(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/logs": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusServiceUnavailable, map[string]string{"error": "down"})
		},
	})
	c := newClient(ts)
	c.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := c.SubmitLog(ctx, testSubmission()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// TestDataSource verifies query parameters sent for the MCP data methods.
func TestDataSource(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ts := newTestServer(t, map[string]http.HandlerFunc{
		"/api/v1/logs": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("start"); got != "2026-01-01T00:00:00Z" {
				t.Errorf("start=%q", got)
			}
			writeTestJSON(t, w, http.StatusOK, []models.WorkoutLogRow{{WorkoutName: "Push Day"}})
		},
		"/api/v1/training-summary": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("agg"); got != "weekly" {
				t.Errorf("agg=%q, want weekly", got)
			}
			writeTestJSON(t, w, http.StatusOK, []storage.TrainingSummaryPeriod{{Period: "2026-01-05", Sessions: 2}})
		},
		"/api/v1/stats": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, storage.DataStats{TotalWorkouts: 12, LongestStreak: 4})
		},
		"/api/v1/exercise-progress": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("exercise"); got != "squat" {
				t.Errorf("exercise=%q, want squat", got)
			}
			writeTestJSON(t, w, http.StatusOK, storage.ExerciseProgress{
				Progression: []storage.ExerciseProgression{{Date: "2026-02-03", Weight: 100}},
			})
		},
		"/api/v1/me": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, Identity{UserID: 3, Login: "alice@example.com"})
		},
	})
	c := newClient(ts)
	ctx := context.Background()

	logs, err := c.QueryWorkoutLogs(ctx, start, end, 0)
	if err != nil || len(logs) != 1 {
		t.Errorf("logs = %+v, %v", logs, err)
	}
	periods, err := c.GetTrainingSummary(ctx, start, end, "1 week", 0)
	if err != nil || len(periods) != 1 || periods[0].Sessions != 2 {
		t.Errorf("periods = %+v, %v", periods, err)
	}
	stats, err := c.GetDataStats(ctx, 0, time.Now())
	if err != nil || stats.TotalWorkouts != 12 || stats.LongestStreak != 4 {
		t.Errorf("stats = %+v, %v", stats, err)
	}
	progress, err := c.GetExerciseProgress(ctx, start, end, 0, "squat")
	if err != nil || len(progress.Progression) != 1 || progress.Progression[0].Weight != 100 {
		t.Errorf("progress = %+v, %v", progress, err)
	}
	me, err := c.Me(ctx)
	if err != nil || me.Login != "alice@example.com" {
		t.Errorf("me = %+v, %v", me, err)
	}
}

func TestBucketToAgg(t *testing.T) {
	for bucket, want := range map[string]string{"1 week": "weekly", "1 month": "monthly", "": "monthly"} {
		if got := bucketToAgg(bucket); got != want {
			t.Errorf("bucketToAgg(%q) = %q, want %q", bucket, got, want)
		}
	}
}
