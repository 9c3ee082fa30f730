// Package coach hosts live workout sessions for the server. A Manager owns
// every session in memory, serializes operations on them, drives their
// clocks from a ticker and writes finished sessions through a Sink.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrCommitFailed = errors.New("workout log could not be saved")
	ErrNotPending   = errors.New("session has no pending log")
)

// Catalog loads workout templates.
type Catalog interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.TemplateRow, error)
}

// Sink persists finished sessions. InsertWorkoutLog must be idempotent on
// the session ID.
type Sink interface {
	InsertWorkoutLog(ctx context.Context, row models.WorkoutLogRow) (bool, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock used for start, completion and idle times.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTickInterval sets how often Run ticks session clocks.
func WithTickInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

// WithIdleTimeout sets how long a session may go without an operation
// before Tick evicts it.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

type entry struct {
	id         uuid.UUID
	userID     int
	templateID uuid.UUID
	name       string
	session    *workout.Session
	lastActive time.Time
	pending    *models.WorkoutLogRow
}

// Manager owns the live sessions. All methods are safe for concurrent use.
type Manager struct {
	catalog Catalog
	sink    Sink
	log     *slog.Logger

	now          func() time.Time
	tickInterval time.Duration
	idleTimeout  time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry
}

// New creates a Manager.
func New(catalog Catalog, sink Sink, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		catalog:      catalog,
		sink:         sink,
		log:          log,
		now:          time.Now,
		tickInterval: time.Second,
		idleTimeout:  6 * time.Hour,
		sessions:     make(map[uuid.UUID]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a session of the given template for the user.
func (m *Manager) Start(ctx context.Context, userID int, templateID uuid.UUID) (*View, error) {
	tmpl, err := m.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading workout %s: %w", templateID, err)
	}
	now := m.now()
	s, err := workout.NewSession(tmpl.Exercises, now)
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", tmpl.Name, err)
	}

	e := &entry{
		id:         uuid.New(),
		userID:     userID,
		templateID: tmpl.ID,
		name:       tmpl.Name,
		session:    s,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[e.id] = e
	m.mu.Unlock()

	m.log.Info("session started", "session_id", e.id, "user_id", userID, "workout", tmpl.Name)
	v := e.view()
	return &v, nil
}

// Get returns the current view of a session.
func (m *Manager) Get(userID int, id uuid.UUID) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	v := e.view()
	return &v, nil
}

// List returns the user's sessions, oldest first.
func (m *Manager) List(userID int) []View {
	m.mu.Lock()
	defer m.mu.Unlock()
	var views []View
	for _, e := range m.sessions {
		if e.userID == userID {
			views = append(views, e.view())
		}
	}
	sortViews(views)
	return views
}

// ToggleSet flips completion of a 1-based set of the current exercise.
func (m *Manager) ToggleSet(userID int, id uuid.UUID, setNumber int) (*View, error) {
	return m.apply(userID, id, func(s *workout.Session) error {
		_, err := s.ToggleSetComplete(setNumber)
		return err
	})
}

// AdjustWeight changes the current exercise's working weight by delta.
func (m *Manager) AdjustWeight(userID int, id uuid.UUID, delta float64) (*View, error) {
	return m.apply(userID, id, func(s *workout.Session) error {
		_, err := s.AdjustWeight(delta)
		return err
	})
}

// SetWeight replaces the current exercise's working weight.
func (m *Manager) SetWeight(userID int, id uuid.UUID, value float64) (*View, error) {
	return m.apply(userID, id, func(s *workout.Session) error {
		_, err := s.SetWeight(value)
		return err
	})
}

// SkipRest ends the rest countdown.
func (m *Manager) SkipRest(userID int, id uuid.UUID) (*View, error) {
	return m.apply(userID, id, (*workout.Session).SkipRest)
}

// Pause stops the workout clock.
func (m *Manager) Pause(userID int, id uuid.UUID) (*View, error) {
	return m.apply(userID, id, (*workout.Session).Pause)
}

// Resume restarts the workout clock.
func (m *Manager) Resume(userID int, id uuid.UUID) (*View, error) {
	return m.apply(userID, id, (*workout.Session).Resume)
}

// Advance moves to the next exercise. Advancing past the last exercise
// finishes the session and saves its log; if saving fails the session is
// kept as pending and ErrCommitFailed is returned along with the view.
func (m *Manager) Advance(ctx context.Context, userID int, id uuid.UUID) (*View, error) {
	m.mu.Lock()
	e, err := m.lookup(userID, id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	sum, err := e.session.Advance()
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	e.lastActive = m.now()
	if sum == nil {
		v := e.view()
		m.mu.Unlock()
		return &v, nil
	}

	row := models.NewWorkoutLog(e.id, e.userID, &e.templateID, e.name, m.now(), *sum)
	e.pending = &row
	m.mu.Unlock()

	m.log.Info("session finished", "session_id", id, "duration_sec", sum.DurationSeconds,
		"sets", fmt.Sprintf("%d/%d", sum.CompletedSets(), sum.TotalSets()))
	return m.commit(ctx, e, row)
}

// Commit retries saving a finished session whose log is still pending.
func (m *Manager) Commit(ctx context.Context, userID int, id uuid.UUID) (*View, error) {
	m.mu.Lock()
	e, err := m.lookup(userID, id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if e.pending == nil {
		m.mu.Unlock()
		return nil, ErrNotPending
	}
	row := *e.pending
	m.mu.Unlock()

	return m.commit(ctx, e, row)
}

// commit writes row and discards the session on success. Called without m.mu.
func (m *Manager) commit(ctx context.Context, e *entry, row models.WorkoutLogRow) (*View, error) {
	inserted, err := m.sink.InsertWorkoutLog(ctx, row)

	m.mu.Lock()
	defer m.mu.Unlock()
	v := e.view()
	if err != nil {
		m.log.Warn("saving workout log failed, keeping session pending", "session_id", e.id, "error", err)
		return &v, fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	delete(m.sessions, e.id)
	v.State = StateFinished
	m.log.Info("workout logged", "session_id", e.id, "user_id", e.userID, "duplicate", !inserted)
	return &v, nil
}

// Cancel discards a session. Nothing is saved.
func (m *Manager) Cancel(userID int, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(userID, id)
	if err != nil {
		return err
	}
	if e.pending != nil {
		return workout.ErrSessionClosed
	}
	if err := e.session.Cancel(); err != nil {
		return err
	}
	delete(m.sessions, id)
	m.log.Info("session cancelled", "session_id", id, "user_id", userID)
	return nil
}

// Tick advances every live session by one second and evicts idle ones.
func (m *Manager) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.sessions {
		if e.pending != nil {
			continue
		}
		if now.Sub(e.lastActive) > m.idleTimeout {
			delete(m.sessions, id)
			m.log.Info("session evicted after inactivity", "session_id", id, "user_id", e.userID,
				"idle", now.Sub(e.lastActive).Round(time.Second))
			continue
		}
		e.session.TickClock()
		if e.session.TickRest() {
			m.log.Debug("rest over", "session_id", id)
		}
	}
}

// Run ticks sessions at the configured interval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	m.log.Info("session clock started", "interval", m.tickInterval)
	for {
		select {
		case <-ctx.Done():
			m.log.Info("session clock stopped")
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Len returns the number of sessions held, including pending ones.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) apply(userID int, id uuid.UUID, op func(*workout.Session) error) (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	if err := op(e.session); err != nil {
		return nil, err
	}
	e.lastActive = m.now()
	v := e.view()
	return &v, nil
}

// lookup finds a session owned by userID. Caller holds m.mu.
func (m *Manager) lookup(userID int, id uuid.UUID) (*entry, error) {
	e, ok := m.sessions[id]
	if !ok || e.userID != userID {
		return nil, ErrNotFound
	}
	return e, nil
}
