package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/claude/repcoach/internal/coach"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu          sync.Mutex
	users       map[string]int
	templates   map[uuid.UUID]*models.TemplateRow
	assignments map[int][]uuid.UUID
	logs        map[uuid.UUID]models.WorkoutLogRow
	imports     []storage.ImportLog
	insertErr   error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]int{"local": 1},
		templates:   make(map[uuid.UUID]*models.TemplateRow),
		assignments: make(map[int][]uuid.UUID),
		logs:        make(map[uuid.UUID]models.WorkoutLogRow),
	}
}

func (m *memStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.users[login]; ok {
		return id, nil
	}
	id := len(m.users) + 1
	m.users[login] = id
	return id, nil
}

func (m *memStore) UpsertTemplate(_ context.Context, name, description string, exercises []workout.Exercise) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.templates {
		if t.Name == name {
			t.Description, t.Exercises = description, exercises
			return t.ID, nil
		}
	}
	t := &models.TemplateRow{ID: uuid.New(), Name: name, Description: description, Exercises: exercises}
	m.templates[t.ID] = t
	return t.ID, nil
}

func (m *memStore) GetTemplate(_ context.Context, id uuid.UUID) (*models.TemplateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListTemplates(_ context.Context) ([]models.TemplateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TemplateRow
	for _, t := range m.templates {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) ListAssignedTemplates(_ context.Context, userID int) ([]models.TemplateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TemplateRow
	for _, id := range m.assignments[userID] {
		out = append(out, *m.templates[id])
	}
	return out, nil
}

func (m *memStore) AssignTemplate(_ context.Context, templateID uuid.UUID, userID int) (*models.AssignmentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[userID] = append(m.assignments[userID], templateID)
	return &models.AssignmentRow{TemplateID: templateID, UserID: userID, AssignedAt: time.Now()}, nil
}

func (m *memStore) InsertWorkoutLog(_ context.Context, row models.WorkoutLogRow) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if _, ok := m.logs[row.SessionID]; ok {
		return false, nil
	}
	m.logs[row.SessionID] = row
	return true, nil
}

func (m *memStore) QueryWorkoutLogs(_ context.Context, start, end time.Time, userID int) ([]models.WorkoutLogRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WorkoutLogRow
	for _, l := range m.logs {
		if l.UserID == userID && !l.CompletedAt.Before(start) && l.CompletedAt.Before(end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) GetWorkoutLog(_ context.Context, sessionID uuid.UUID, userID int) (*models.WorkoutLogRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[sessionID]
	if !ok || l.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) GetDataStats(_ context.Context, userID int, _ time.Time) (*storage.DataStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &storage.DataStats{}
	for _, l := range m.logs {
		if l.UserID == userID {
			stats.TotalWorkouts++
			stats.CompletedSets += int64(l.CompletedSets())
			stats.TotalSets += int64(l.TotalSets())
		}
	}
	return stats, nil
}

func (m *memStore) GetTrainingSummary(_ context.Context, _, _ time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	if bucket != "1 week" && bucket != "1 month" {
		return nil, errors.New("bad bucket")
	}
	return []storage.TrainingSummaryPeriod{{Period: "2026-06-01", Sessions: 1}}, nil
}

// GetExerciseProgress aggregates work-section entries the way the SQL does,
// with a case-insensitive substring filter.
func (m *memStore) GetExerciseProgress(_ context.Context, start, end time.Time, userID int, filter string) (*storage.ExerciseProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var logs []models.WorkoutLogRow
	for _, l := range m.logs {
		if l.UserID == userID && !l.CompletedAt.Before(start) && l.CompletedAt.Before(end) {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].CompletedAt.Before(logs[j].CompletedAt) })

	out := &storage.ExerciseProgress{Exercises: []storage.ExerciseSummary{}}
	byName := map[string]*storage.ExerciseSummary{}
	var order []string
	for _, l := range logs {
		for _, e := range l.Exercises {
			if e.Section != string(workout.SectionWork) {
				continue
			}
			sum, ok := byName[e.Name]
			if !ok {
				sum = &storage.ExerciseSummary{Name: e.Name}
				byName[e.Name] = sum
				order = append(order, e.Name)
			}
			sum.Sessions++
			sum.CompletedSets += e.CompletedSets
			sum.TotalSets += e.TargetSets
			sum.Reps += e.CompletedSets * e.TargetReps
			sum.MaxWeight = max(sum.MaxWeight, e.WeightUsed)
			if filter != "" && strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter)) {
				out.Progression = append(out.Progression, storage.ExerciseProgression{
					Date:          l.CompletedAt.UTC().Format("2006-01-02"),
					WorkoutName:   l.WorkoutName,
					Weight:        e.WeightUsed,
					CompletedSets: e.CompletedSets,
					TargetSets:    e.TargetSets,
					TargetReps:    e.TargetReps,
				})
			}
		}
	}
	for _, name := range order {
		out.Exercises = append(out.Exercises, *byName[name])
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a Server over a memStore and a live session manager.
func newTestServer() (*Server, *memStore) {
	db := newMemStore()
	log := discardLogger()
	mgr := coach.New(db, db, log)
	return New(db, mgr, "trainer-key", log), db
}

func (m *memStore) QueryImportLogs(_ context.Context, limit int) ([]storage.ImportLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit < len(m.imports) {
		return m.imports[:limit], nil
	}
	return m.imports, nil
}
