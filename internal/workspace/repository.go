package workspace

import (
	"context"
	"database/sql"
	"errors"

	"ylack/internal/apperr"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateWorkspace(ctx context.Context, w *Workspace) error {
	query := `INSERT INTO workspaces (id, name, invite_code, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, w.ID, w.Name, w.InviteCode, w.CreatedAt)
	return err
}

func (r *Repository) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	w := &Workspace{}
	query := `SELECT id, name, invite_code, created_at FROM workspaces WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.Name, &w.InviteCode, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("workspace", id)
		}
		return nil, err
	}
	return w, nil
}

func (r *Repository) GetWorkspaceByInviteCode(ctx context.Context, code string) (*Workspace, error) {
	w := &Workspace{}
	query := `SELECT id, name, invite_code, created_at FROM workspaces WHERE invite_code = $1`
	err := r.db.QueryRowContext(ctx, query, code).Scan(&w.ID, &w.Name, &w.InviteCode, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("workspace", "")
		}
		return nil, err
	}
	return w, nil
}

func (r *Repository) ListWorkspacesForUser(ctx context.Context, userID string) ([]*Workspace, error) {
	query := `SELECT w.id, w.name, w.invite_code, w.created_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		w := &Workspace{}
		if err := rows.Scan(&w.ID, &w.Name, &w.InviteCode, &w.CreatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

// AddMember is idempotent: re-joining a workspace is not an error.
func (r *Repository) AddMember(ctx context.Context, workspaceID, userID, role string) error {
	query := `INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (workspace_id, user_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, workspaceID, userID, role)
	return err
}

func (r *Repository) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Repository) ListMembers(ctx context.Context, workspaceID string) ([]*Member, error) {
	query := `SELECT m.workspace_id, m.user_id, u.username, m.role, m.joined_at
		FROM workspace_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.workspace_id = $1
		ORDER BY m.joined_at ASC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repository) CreateChannel(ctx context.Context, c *Channel) error {
	query := `INSERT INTO channels (id, workspace_id, name, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.WorkspaceID, c.Name, c.CreatedAt)
	return err
}

func (r *Repository) ListChannels(ctx context.Context, workspaceID string) ([]*Channel, error) {
	query := `SELECT id, workspace_id, name, created_at FROM channels WHERE workspace_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*Channel
	for rows.Next() {
		c := &Channel{}
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}
