package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"invoicely-backend/internal/models"
)

type WorkspaceRepository struct {
	DB *pgxpool.Pool
}

func NewWorkspaceRepository(db *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{DB: db}
}

// Create inserts a workspace and an active membership for its owner. The
// previously active workspace of the owner, if any, is deactivated in the
// same transaction.
func (r *WorkspaceRepository) Create(ctx context.Context, ws *models.Workspace) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO workspaces(id, name, owner_id, currency)
		 VALUES($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		ws.ID, ws.Name, ws.OwnerID, ws.Currency,
	).Scan(&ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE workspace_members SET is_active = FALSE WHERE user_id = $1`, ws.OwnerID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO workspace_members(workspace_id, user_id, is_active)
		 VALUES($1, $2, TRUE)`, ws.ID, ws.OwnerID)
	if err != nil {
		return err
	}

	ws.IsActive = true
	return tx.Commit(ctx)
}

// Get retrieves a workspace visible to the given user
func (r *WorkspaceRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.Workspace, error) {
	var ws models.Workspace
	err := r.DB.QueryRow(ctx,
		`SELECT w.id, w.name, w.owner_id, w.currency, w.created_at, w.updated_at, m.is_active
		 FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE w.id = $1 AND m.user_id = $2`, id, userID,
	).Scan(&ws.ID, &ws.Name, &ws.OwnerID, &ws.Currency,
		&ws.CreatedAt, &ws.UpdatedAt, &ws.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// List returns all workspaces the user belongs to
func (r *WorkspaceRepository) List(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT w.id, w.name, w.owner_id, w.currency, w.created_at, w.updated_at, m.is_active
		 FROM workspaces w
		 JOIN workspace_members m ON m.workspace_id = w.id
		 WHERE m.user_id = $1
		 ORDER BY w.created_at`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.OwnerID, &ws.Currency,
			&ws.CreatedAt, &ws.UpdatedAt, &ws.IsActive); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, &ws)
	}
	return workspaces, rows.Err()
}

// Update renames a workspace or changes its default currency
func (r *WorkspaceRepository) Update(ctx context.Context, ws *models.Workspace) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE workspaces SET name = $1, currency = $2, updated_at = NOW()
		 WHERE id = $3 AND owner_id = $4`,
		ws.Name, ws.Currency, ws.ID, ws.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive switches the user's active workspace. Exactly one membership per
// user is active; the partial unique index enforces it, so the old one is
// cleared first in the same transaction.
func (r *WorkspaceRepository) SetActive(ctx context.Context, workspaceID, userID uuid.UUID) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE workspace_members SET is_active = FALSE WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx,
		`UPDATE workspace_members SET is_active = TRUE
		 WHERE workspace_id = $1 AND user_id = $2`, workspaceID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// IsMember reports whether the user belongs to the workspace
func (r *WorkspaceRepository) IsMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
		 )`, workspaceID, userID,
	).Scan(&exists)
	return exists, err
}
