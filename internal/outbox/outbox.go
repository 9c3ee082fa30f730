// Package outbox keeps finished workout logs on disk until the server has
// accepted them.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/repcoach/internal/client"
	"github.com/claude/repcoach/internal/models"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Submitter delivers a log to the server. *client.Client satisfies it.
type Submitter interface {
	SubmitLog(ctx context.Context, sub models.LogSubmission) (bool, error)
}

// Outbox is a SQLite-backed queue of log submissions keyed by session ID.
type Outbox struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the outbox database at dir/outbox.db.
func Open(dir string) (*Outbox, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating outbox dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "outbox.db"))
	if err != nil {
		return nil, fmt.Errorf("opening outbox db: %w", err)
	}
	// One writer; the performer is a single process.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pending_logs (
		session_id TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		queued_at  INTEGER NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		rejected   INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating outbox table: %w", err)
	}

	return &Outbox{db: db, now: time.Now}, nil
}

// Close closes the outbox database.
func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put queues a submission. Queuing a session that is already queued is a no-op.
func (o *Outbox) Put(ctx context.Context, sub models.LogSubmission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshaling log %s: %w", sub.SessionID, err)
	}
	_, err = o.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pending_logs (session_id, payload, queued_at) VALUES (?, ?, ?)`,
		sub.SessionID.String(), string(payload), o.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("queuing log %s: %w", sub.SessionID, err)
	}
	return nil
}

// Pending returns queued submissions that the server has not rejected,
// oldest first.
func (o *Outbox) Pending(ctx context.Context) ([]models.LogSubmission, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT payload FROM pending_logs WHERE rejected = 0 ORDER BY queued_at, session_id`)
	if err != nil {
		return nil, fmt.Errorf("listing outbox: %w", err)
	}
	defer rows.Close()

	var out []models.LogSubmission
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var sub models.LogSubmission
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			return nil, fmt.Errorf("decoding queued log: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Remove deletes a queued submission.
func (o *Outbox) Remove(ctx context.Context, sessionID uuid.UUID) error {
	_, err := o.db.ExecContext(ctx, `DELETE FROM pending_logs WHERE session_id = ?`, sessionID.String())
	return err
}

func (o *Outbox) recordFailure(ctx context.Context, sessionID uuid.UUID, cause error, rejected bool) error {
	_, err := o.db.ExecContext(ctx,
		`UPDATE pending_logs SET attempts = attempts + 1, last_error = ?, rejected = ? WHERE session_id = ?`,
		cause.Error(), rejected, sessionID.String(),
	)
	return err
}

// Counts reports how many submissions are waiting and how many the server
// rejected.
func (o *Outbox) Counts(ctx context.Context) (pending, rejected int, err error) {
	err = o.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(1 - rejected), 0), COALESCE(SUM(rejected), 0) FROM pending_logs`,
	).Scan(&pending, &rejected)
	return pending, rejected, err
}

// FlushStats reports what one Flush did.
type FlushStats struct {
	Sent       int
	Duplicates int
	Rejected   int
}

// Flush submits every pending log in order. Accepted logs are removed,
// rejected ones are kept but no longer retried. Flush stops at the first
// transient failure and returns it; the remaining logs stay queued.
func (o *Outbox) Flush(ctx context.Context, sub Submitter, log *slog.Logger) (FlushStats, error) {
	var stats FlushStats
	pending, err := o.Pending(ctx)
	if err != nil {
		return stats, err
	}

	for _, p := range pending {
		inserted, err := sub.SubmitLog(ctx, p)
		if err != nil {
			rejected := errors.Is(err, client.ErrRejected)
			if rerr := o.recordFailure(ctx, p.SessionID, err, rejected); rerr != nil {
				return stats, fmt.Errorf("recording failure for %s: %w", p.SessionID, rerr)
			}
			if rejected {
				log.Warn("server rejected queued log", "session_id", p.SessionID, "error", err)
				stats.Rejected++
				continue
			}
			return stats, fmt.Errorf("submitting queued log %s: %w", p.SessionID, err)
		}

		if err := o.Remove(ctx, p.SessionID); err != nil {
			return stats, fmt.Errorf("removing sent log %s: %w", p.SessionID, err)
		}
		if inserted {
			stats.Sent++
		} else {
			stats.Duplicates++
		}
		log.Info("queued log delivered", "session_id", p.SessionID, "duplicate", !inserted)
	}
	return stats, nil
}
