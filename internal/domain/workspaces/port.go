package workspaces

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	List(ctx context.Context, userID string) ([]*Workspace, error)
	Get(ctx context.Context, userID, id string) (*Workspace, error)
	Create(ctx context.Context, w *Workspace) error
	Update(ctx context.Context, w *Workspace) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}
