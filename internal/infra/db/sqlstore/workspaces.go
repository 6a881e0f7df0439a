package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	"github.com/bryanwahyu/neurolint/internal/domain/workspaces"
)

type WorkspaceRepository struct{ conn }

func NewWorkspaceRepository(db *sql.DB, d Dialect) *WorkspaceRepository {
	return &WorkspaceRepository{conn{db: db, d: d}}
}

const workspaceCols = `id, user_id, name, code, language, created_at, updated_at`

// List returns the user's workspaces, most recently updated first.
func (r *WorkspaceRepository) List(ctx context.Context, userID string) ([]*workspaces.Workspace, error) {
	rows, err := r.query(ctx, `SELECT `+workspaceCols+` FROM workspaces WHERE user_id=? ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*workspaces.Workspace{}
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *WorkspaceRepository) Get(ctx context.Context, userID, id string) (*workspaces.Workspace, error) {
	w, err := scanWorkspace(r.queryRow(ctx, `SELECT `+workspaceCols+` FROM workspaces WHERE user_id=? AND id=? LIMIT 1`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return w, err
}

func (r *WorkspaceRepository) Create(ctx context.Context, w *workspaces.Workspace) error {
	w.CreatedAt = ts(w.CreatedAt)
	w.UpdatedAt = ts(w.UpdatedAt)
	_, err := r.exec(ctx, `INSERT INTO workspaces (`+workspaceCols+`) VALUES (?,?,?,?,?,?,?)`,
		w.ID, w.UserID, w.Name, w.Code, w.Language, w.CreatedAt, w.UpdatedAt)
	return err
}

// Update writes name, code, language and updated_at of an owned workspace.
func (r *WorkspaceRepository) Update(ctx context.Context, w *workspaces.Workspace) error {
	w.UpdatedAt = ts(w.UpdatedAt)
	res, err := r.exec(ctx, `UPDATE workspaces SET name=?, code=?, language=?, updated_at=? WHERE user_id=? AND id=?`,
		w.Name, w.Code, w.Language, w.UpdatedAt, w.UserID, w.ID)
	return affected(res, err, shared.ErrNotFound)
}

func (r *WorkspaceRepository) Delete(ctx context.Context, userID, id string) error {
	_, err := r.exec(ctx, `DELETE FROM workspaces WHERE user_id=? AND id=?`, userID, id)
	return err
}

func (r *WorkspaceRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.exec(ctx, `DELETE FROM workspaces WHERE user_id=?`, userID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(s scanner) (*workspaces.Workspace, error) {
	var w workspaces.Workspace
	if err := s.Scan(&w.ID, &w.UserID, &w.Name, &w.Code, &w.Language, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return &w, nil
}
