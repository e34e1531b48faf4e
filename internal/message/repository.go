package message

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

const messageColumns = `
	m.id, m.content, m.user_id, m.channel_id, m.workspace_id, m.reply_to_id, m.created_at,
	u.username,
	r.id, r.content, r.user_id, ru.username
`

const messageJoins = `
	FROM messages m
	JOIN users u ON m.user_id = u.id
	LEFT JOIN messages r ON m.reply_to_id = r.id
	LEFT JOIN users ru ON r.user_id = ru.id
`

func scanMessage(row interface{ Scan(...any) error }) (*Message, error) {
	m := &Message{}
	var replyID, replyContent, replyUserID, replyUsername sql.NullString
	err := row.Scan(
		&m.ID, &m.Content, &m.UserID, &m.ChannelID, &m.WorkspaceID, &m.ReplyToID, &m.CreatedAt,
		&m.User.Username,
		&replyID, &replyContent, &replyUserID, &replyUsername,
	)
	if err != nil {
		return nil, err
	}
	m.User.ID = m.UserID
	if replyID.Valid {
		m.ReplyTo = &ReplyPreview{
			ID:      replyID.String,
			Content: replyContent.String,
			User:    Author{ID: replyUserID.String, Username: replyUsername.String},
		}
	}
	return m, nil
}

// CreateMessage persists the row and returns it fully hydrated (author info
// and reply preview included).
func (r *Repository) CreateMessage(ctx context.Context, m *Message) (*Message, error) {
	query := `INSERT INTO messages (id, content, user_id, channel_id, workspace_id, reply_to_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Content, m.UserID, m.ChannelID, m.WorkspaceID, m.ReplyToID, m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r.GetMessage(ctx, m.ID, m.ChannelID, m.WorkspaceID)
}

// GetMessage resolves a message scoped to its channel and workspace. A miss is
// a NotFoundError, never a bare sql error.
func (r *Repository) GetMessage(ctx context.Context, id, channelID, workspaceID string) (*Message, error) {
	query := `SELECT ` + messageColumns + messageJoins + `
		WHERE m.id = $1 AND m.channel_id = $2 AND m.workspace_id = $3`
	m, err := scanMessage(r.db.QueryRowContext(ctx, query, id, channelID, workspaceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("message", id)
		}
		return nil, err
	}
	return m, nil
}

// MessageExists is the existence probe the reaction aggregator uses.
func (r *Repository) MessageExists(ctx context.Context, id, channelID, workspaceID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1 AND channel_id = $2 AND workspace_id = $3)`
	if err := r.db.QueryRowContext(ctx, query, id, channelID, workspaceID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListMessages returns the channel's messages oldest first.
func (r *Repository) ListMessages(ctx context.Context, channelID, workspaceID string, limit int) ([]*Message, error) {
	query := `SELECT ` + messageColumns + messageJoins + `
		WHERE m.channel_id = $1 AND m.workspace_id = $2
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, channelID, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
