package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Import run statuses.
const (
	ImportRunning = "running"
	ImportSuccess = "success"
	ImportError   = "error"
)

// ImportLog records one template import run.
type ImportLog struct {
	ID              int64           `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Source          string          `json:"source"`
	Status          string          `json:"status"`
	FilesProcessed  int             `json:"files_processed"`
	FilesErrored    int             `json:"files_errored"`
	TemplatesStored int             `json:"templates_stored"`
	Assigned        int             `json:"assigned"`
	DurationMs      *int            `json:"duration_ms"`
	ErrorMessage    *string         `json:"error_message"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, l ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (source, status, files_processed, files_errored,
		 templates_stored, assigned, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		l.Source, l.Status, l.FilesProcessed, l.FilesErrored,
		l.TemplatesStored, l.Assigned, l.DurationMs, l.ErrorMessage, nullJSON(l.Metadata),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// UpdateImportLog records the outcome of a run started with InsertImportLog.
func (db *DB) UpdateImportLog(ctx context.Context, id int64, l ImportLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE import_logs SET
		 status = $2, files_processed = $3, files_errored = $4,
		 templates_stored = $5, assigned = $6, duration_ms = $7,
		 error_message = $8, metadata = $9
		 WHERE id = $1`,
		id, l.Status, l.FilesProcessed, l.FilesErrored,
		l.TemplatesStored, l.Assigned, l.DurationMs, l.ErrorMessage, nullJSON(l.Metadata),
	)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import runs.
func (db *DB) QueryImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, created_at, source, status, files_processed, files_errored,
		 templates_stored, assigned, duration_ms, error_message, metadata
		 FROM import_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		var meta []byte
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Source, &l.Status,
			&l.FilesProcessed, &l.FilesErrored, &l.TemplatesStored, &l.Assigned,
			&l.DurationMs, &l.ErrorMessage, &meta); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		if len(meta) > 0 {
			l.Metadata = meta
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// nullJSON stores an empty document as NULL.
func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
