package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/repcoach/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertWorkoutLog writes a finished session and its exercises in one
// transaction. Returns true if inserted, false if the session ID was already
// stored, which makes a retried commit harmless.
func (db *DB) InsertWorkoutLog(ctx context.Context, row models.WorkoutLogRow) (bool, error) {
	inserted := false
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO workout_logs (session_id, user_id, template_id, workout_name, started_at, completed_at, duration_sec)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (session_id) DO NOTHING`,
			row.SessionID, row.UserID, row.TemplateID, row.WorkoutName,
			row.StartedAt, row.CompletedAt, row.DurationSec)
		if err != nil {
			return fmt.Errorf("inserting workout log: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true
		return insertLogExercises(ctx, tx, row.SessionID, row.Exercises)
	})
	return inserted, err
}

func insertLogExercises(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID, rows []models.ExerciseLogRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO workout_log_exercises (session_id, position, name, section,
		target_sets, target_reps, completed_sets, weight_used, fully_completed) VALUES `
	args := make([]any, 0, len(rows)*9)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 9
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args, sessionID, r.Position, r.Name, r.Section,
			r.TargetSets, r.TargetReps, r.CompletedSets, r.WeightUsed, r.FullyCompleted)
	}

	query += strings.Join(valueStrings, ",")

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting workout log exercises: %w", err)
	}
	return nil
}

// QueryWorkoutLogs retrieves a user's logs completed in a time range, newest
// first, with their exercises.
func (db *DB) QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLogRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, user_id, template_id, workout_name, started_at, completed_at, duration_sec
		 FROM workout_logs
		 WHERE completed_at >= $1 AND completed_at < $2 AND user_id = $3
		 ORDER BY completed_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout logs: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutLogRow
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		w, err := scanWorkoutLog(rows)
		if err != nil {
			return nil, err
		}
		index[w.SessionID] = len(result)
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, len(result))
	for i, w := range result {
		ids[i] = w.SessionID
	}
	exercises, err := db.queryLogExercises(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range exercises {
		i := index[e.SessionID]
		result[i].Exercises = append(result[i].Exercises, e)
	}
	return result, nil
}

// GetWorkoutLog retrieves a single log by session ID.
func (db *DB) GetWorkoutLog(ctx context.Context, sessionID uuid.UUID, userID int) (*models.WorkoutLogRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT session_id, user_id, template_id, workout_name, started_at, completed_at, duration_sec
		 FROM workout_logs
		 WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID)
	w, err := scanWorkoutLog(row)
	if err != nil {
		return nil, notFound(err)
	}

	w.Exercises, err = db.queryLogExercises(ctx, []uuid.UUID{sessionID})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (db *DB) queryLogExercises(ctx context.Context, ids []uuid.UUID) ([]models.ExerciseLogRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT session_id, position, name, section, target_sets, target_reps,
		 completed_sets, weight_used, fully_completed
		 FROM workout_log_exercises
		 WHERE session_id = ANY($1)
		 ORDER BY session_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying workout log exercises: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseLogRow
	for rows.Next() {
		var e models.ExerciseLogRow
		if err := rows.Scan(&e.SessionID, &e.Position, &e.Name, &e.Section, &e.TargetSets,
			&e.TargetReps, &e.CompletedSets, &e.WeightUsed, &e.FullyCompleted); err != nil {
			return nil, fmt.Errorf("scanning workout log exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanWorkoutLog(row pgx.Row) (models.WorkoutLogRow, error) {
	var w models.WorkoutLogRow
	err := row.Scan(&w.SessionID, &w.UserID, &w.TemplateID, &w.WorkoutName,
		&w.StartedAt, &w.CompletedAt, &w.DurationSec)
	if err != nil {
		return w, fmt.Errorf("scanning workout log: %w", err)
	}
	return w, nil
}
