package outbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/client"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/workout"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func openTest(t *testing.T) *Outbox {
	t.Helper()
	o, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { o.Close() })

	base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	o.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return o
}

func submission(name string) models.LogSubmission {
	return models.LogSubmission{
		SessionID:   uuid.New(),
		WorkoutName: name,
		CompletedAt: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		Summary: workout.Summary{
			StartedAt:       time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC),
			DurationSeconds: 1800,
			Exercises: []workout.ExerciseResult{
				{Name: "Squat", Section: workout.SectionWork, TargetSets: 3, TargetReps: 5, CompletedSets: 2, WeightUsed: 100},
			},
		},
	}
}

// fakeSubmitter answers from a per-session script; unknown sessions succeed.
type fakeSubmitter struct {
	errs  map[uuid.UUID]error
	dup   map[uuid.UUID]bool
	calls []string
}

func (f *fakeSubmitter) SubmitLog(_ context.Context, sub models.LogSubmission) (bool, error) {
	f.calls = append(f.calls, sub.WorkoutName)
	if err := f.errs[sub.SessionID]; err != nil {
		return false, err
	}
	return !f.dup[sub.SessionID], nil
}

func TestPutIsIdempotent(t *testing.T) {
	o := openTest(t)
	ctx := context.Background()
	sub := submission("Push Day")

	for range 2 {
		if err := o.Put(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := o.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]models.LogSubmission{sub}, pending); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestPendingOrder(t *testing.T) {
	o := openTest(t)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		if err := o.Put(ctx, submission(name)); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := o.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range pending {
		names = append(names, p.WorkoutName)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, names); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

// TestFlush verifies delivered and duplicate logs are removed while a
// rejected log is parked.
func TestFlush(t *testing.T) {
	o := openTest(t)
	ctx := context.Background()
	a, b, c := submission("A"), submission("B"), submission("C")
	for _, s := range []models.LogSubmission{a, b, c} {
		if err := o.Put(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	sub := &fakeSubmitter{
		errs: map[uuid.UUID]error{b.SessionID: fmt.Errorf("%w (status 400): bad", client.ErrRejected)},
		dup:  map[uuid.UUID]bool{c.SessionID: true},
	}
	stats, err := o.Flush(ctx, sub, discard)
	if err != nil {
		t.Fatal(err)
	}
	if want := (FlushStats{Sent: 1, Duplicates: 1, Rejected: 1}); stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	pending, rejected, err := o.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 || rejected != 1 {
		t.Errorf("counts = %d pending, %d rejected; want 0, 1", pending, rejected)
	}

	// Rejected logs are not offered again.
	sub.calls = nil
	if _, err := o.Flush(ctx, sub, discard); err != nil {
		t.Fatal(err)
	}
	if len(sub.calls) != 0 {
		t.Errorf("second flush submitted %v", sub.calls)
	}
}

// TestFlushStopsOnTransientError verifies later logs stay queued when the
// server is unreachable.
func TestFlushStopsOnTransientError(t *testing.T) {
	o := openTest(t)
	ctx := context.Background()
	a, b := submission("A"), submission("B")
	o.Put(ctx, a)
	o.Put(ctx, b)

	sub := &fakeSubmitter{errs: map[uuid.UUID]error{a.SessionID: errors.New("connection refused")}}
	if _, err := o.Flush(ctx, sub, discard); err == nil {
		t.Fatal("expected error")
	}
	if diff := cmp.Diff([]string{"A"}, sub.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	pending, _, err := o.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 2 {
		t.Errorf("pending = %d, want 2", pending)
	}
}

func TestReopenKeepsQueue(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	o, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Put(ctx, submission("A")); err != nil {
		t.Fatal(err)
	}
	o.Close()

	o, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()
	pending, err := o.Pending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("pending after reopen = %d, want 1", len(pending))
	}
}
