// Package importer loads workout template files into the database.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/claude/repcoach/internal/catalog"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
)

// Store is the persistence the importer writes to. *storage.DB satisfies it.
type Store interface {
	UpsertTemplate(ctx context.Context, name, description string, exercises []workout.Exercise) (uuid.UUID, error)
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	AssignTemplate(ctx context.Context, templateID uuid.UUID, userID int) (*models.AssignmentRow, error)
	InsertImportLog(ctx context.Context, l storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, l storage.ImportLog) error
}

var _ Store = (*storage.DB)(nil)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed  int
	FilesErrored    int
	TemplatesStored int
	Assigned        int

	Errors []string
}

// Importer reads template files and upserts them by name.
type Importer struct {
	db     Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(db Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun}
}

// Import loads path, a single template file or a directory of them, and
// stores every template that parses. When login is set each stored template
// is also assigned to that user. Files that fail to parse are counted and
// skipped; a database error stops the import. Every run that writes is
// recorded in the import log.
func (imp *Importer) Import(ctx context.Context, path, login string) (*Stats, error) {
	if imp.dryRun {
		return imp.run(ctx, path, login)
	}

	start := time.Now()
	logID, err := imp.db.InsertImportLog(ctx, storage.ImportLog{Source: path, Status: storage.ImportRunning})
	if err != nil {
		return &imp.stats, err
	}

	stats, runErr := imp.run(ctx, path, login)
	imp.finish(ctx, logID, path, login, time.Since(start), runErr)
	return stats, runErr
}

// finish records the outcome of a run. A failure here is logged, not
// returned, so the caller sees the import error rather than the audit one.
func (imp *Importer) finish(ctx context.Context, id int64, path, login string, elapsed time.Duration, runErr error) {
	ms := int(elapsed.Milliseconds())
	entry := storage.ImportLog{
		Source:          path,
		Status:          storage.ImportSuccess,
		FilesProcessed:  imp.stats.FilesProcessed,
		FilesErrored:    imp.stats.FilesErrored,
		TemplatesStored: imp.stats.TemplatesStored,
		Assigned:        imp.stats.Assigned,
		DurationMs:      &ms,
	}
	if runErr != nil {
		msg := runErr.Error()
		entry.Status = storage.ImportError
		entry.ErrorMessage = &msg
	}
	meta := map[string]any{}
	if login != "" {
		meta["assign"] = login
	}
	if len(imp.stats.Errors) > 0 {
		meta["skipped"] = imp.stats.Errors
	}
	if len(meta) > 0 {
		entry.Metadata, _ = json.Marshal(meta)
	}
	if err := imp.db.UpdateImportLog(ctx, id, entry); err != nil {
		imp.log.Error("failed to record import", "import_id", id, "error", err)
	}
}

func (imp *Importer) run(ctx context.Context, path, login string) (*Stats, error) {
	loaded, err := imp.load(path)
	if err != nil {
		return &imp.stats, err
	}

	userID := 0
	if login != "" && !imp.dryRun {
		userID, err = imp.db.GetOrCreateUser(ctx, login, "")
		if err != nil {
			return &imp.stats, fmt.Errorf("resolving user %s: %w", login, err)
		}
	}

	for _, l := range loaded {
		t := l.Template
		if imp.dryRun {
			imp.log.Info("would store template", "file", l.Path, "name", t.Name, "exercises", len(t.Exercises))
			continue
		}

		id, err := imp.db.UpsertTemplate(ctx, t.Name, t.Description, t.Exercises)
		if err != nil {
			return &imp.stats, fmt.Errorf("storing %s: %w", t.Name, err)
		}
		imp.stats.TemplatesStored++
		imp.log.Info("template stored", "file", l.Path, "name", t.Name, "template_id", id)

		if userID != 0 {
			if _, err := imp.db.AssignTemplate(ctx, id, userID); err != nil {
				return &imp.stats, fmt.Errorf("assigning %s to %s: %w", t.Name, login, err)
			}
			imp.stats.Assigned++
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) load(path string) ([]catalog.Loaded, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if !info.IsDir() {
		imp.stats.FilesProcessed = 1
		tmpl, err := catalog.LoadFile(path)
		if err != nil {
			imp.stats.FilesErrored = 1
			return nil, err
		}
		return []catalog.Loaded{{Path: path, Template: tmpl}}, nil
	}

	loaded, errs, err := catalog.LoadDir(path)
	if err != nil {
		return nil, err
	}
	imp.stats.FilesProcessed = len(loaded) + len(errs)
	imp.stats.FilesErrored = len(errs)
	for _, e := range errs {
		imp.log.Warn("skipping template file", "error", e)
		imp.stats.Errors = append(imp.stats.Errors, e.Error())
	}
	return loaded, nil
}
