package mcp

import (
	"context"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (server)
// and client.Client (stdio mode against a remote server) satisfy it.
type DataSource interface {
	ListAssignedTemplates(ctx context.Context, userID int) ([]models.TemplateRow, error)
	QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLogRow, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetDataStats(ctx context.Context, userID int, now time.Time) (*storage.DataStats, error)
	GetExerciseProgress(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) (*storage.ExerciseProgress, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
