package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/workout"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UpsertTemplate stores a normalized template, replacing the exercises of an
// existing template with the same name. Returns the template ID.
func (db *DB) UpsertTemplate(ctx context.Context, name, description string, exercises []workout.Exercise) (uuid.UUID, error) {
	data, err := json.Marshal(exercises)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding exercises: %w", err)
	}
	var id uuid.UUID
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO workout_templates (id, name, description, exercises)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
			SET description = EXCLUDED.description, exercises = EXCLUDED.exercises, updated_at = NOW()
		RETURNING id
	`, uuid.New(), name, description, data).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upserting template %s: %w", name, err)
	}
	return id, nil
}

// GetTemplate retrieves a single template by ID.
func (db *DB) GetTemplate(ctx context.Context, id uuid.UUID) (*models.TemplateRow, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, name, description, exercises, created_at, updated_at
		 FROM workout_templates
		 WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, fmt.Errorf("querying template: %w", notFound(err))
	}
	return t, nil
}

// ListTemplates returns every template ordered by name.
func (db *DB) ListTemplates(ctx context.Context) ([]models.TemplateRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, description, exercises, created_at, updated_at
		 FROM workout_templates
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()
	return scanTemplateRows(rows)
}

// ListAssignedTemplates returns the templates assigned to a user, most
// recently assigned first.
func (db *DB) ListAssignedTemplates(ctx context.Context, userID int) ([]models.TemplateRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT t.id, t.name, t.description, t.exercises, t.created_at, t.updated_at
		 FROM workout_templates t
		 JOIN workout_assignments a ON a.template_id = t.id
		 WHERE a.user_id = $1
		 ORDER BY a.assigned_at DESC, t.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying assigned templates: %w", err)
	}
	defer rows.Close()
	return scanTemplateRows(rows)
}

// IsAssigned reports whether the template is assigned to the user.
func (db *DB) IsAssigned(ctx context.Context, templateID uuid.UUID, userID int) (bool, error) {
	var ok bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM workout_assignments WHERE template_id = $1 AND user_id = $2)`,
		templateID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking assignment: %w", err)
	}
	return ok, nil
}

// AssignTemplate assigns a template to a user. Reassigning refreshes assigned_at.
func (db *DB) AssignTemplate(ctx context.Context, templateID uuid.UUID, userID int) (*models.AssignmentRow, error) {
	a := &models.AssignmentRow{}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO workout_assignments (template_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (template_id, user_id) DO UPDATE SET assigned_at = NOW()
		RETURNING template_id, user_id, assigned_at
	`, templateID, userID).Scan(&a.TemplateID, &a.UserID, &a.AssignedAt)
	if err != nil {
		return nil, fmt.Errorf("assigning template: %w", err)
	}
	return a, nil
}

func scanTemplate(row pgx.Row) (*models.TemplateRow, error) {
	var t models.TemplateRow
	var data []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &data, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &t.Exercises); err != nil {
		return nil, fmt.Errorf("decoding exercises of %s: %w", t.Name, err)
	}
	return &t, nil
}

func scanTemplateRows(rows pgx.Rows) ([]models.TemplateRow, error) {
	var result []models.TemplateRow
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}
