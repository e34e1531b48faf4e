package reaction

import (
	"context"
	"database/sql"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AddReaction always inserts a fresh row. There is deliberately no uniqueness
// check: the multiset model accumulates instead of toggling.
func (r *Repository) AddReaction(ctx context.Context, re *Reaction) error {
	query := `INSERT INTO message_reactions (id, message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, re.ID, re.MessageID, re.UserID, re.Emoji, re.CreatedAt)
	return err
}

// DeleteOneReaction removes at most one row matching (message, user, emoji)
// and reports whether one existed. The inner select has no ORDER BY: ties are
// broken by whichever row the store returns first, a stated-nondeterministic
// choice inherited from the data model.
func (r *Repository) DeleteOneReaction(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	query := `DELETE FROM message_reactions
		WHERE id = (
			SELECT id FROM message_reactions
			WHERE message_id = $1 AND user_id = $2 AND emoji = $3
			LIMIT 1
		)`
	res, err := r.db.ExecContext(ctx, query, messageID, userID, emoji)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListReactions returns the full multiset for a message, oldest row first,
// with the reactor's username joined in.
func (r *Repository) ListReactions(ctx context.Context, messageID string) ([]*Reaction, error) {
	query := `SELECT mr.id, mr.message_id, mr.user_id, mr.emoji, mr.created_at, u.username
		FROM message_reactions mr
		JOIN users u ON mr.user_id = u.id
		WHERE mr.message_id = $1
		ORDER BY mr.created_at ASC, mr.id ASC`
	rows, err := r.db.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []*Reaction
	for rows.Next() {
		re := &Reaction{}
		if err := rows.Scan(&re.ID, &re.MessageID, &re.UserID, &re.Emoji, &re.CreatedAt, &re.Username); err != nil {
			return nil, err
		}
		reactions = append(reactions, re)
	}
	return reactions, rows.Err()
}

func (r *Repository) CountReactions(ctx context.Context, messageID, emoji string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM message_reactions WHERE message_id = $1 AND emoji = $2`
	err := r.db.QueryRowContext(ctx, query, messageID, emoji).Scan(&n)
	return n, err
}

func (r *Repository) CountReactionsByUser(ctx context.Context, messageID, emoji, userID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM message_reactions WHERE message_id = $1 AND emoji = $2 AND user_id = $3`
	err := r.db.QueryRowContext(ctx, query, messageID, emoji, userID).Scan(&n)
	return n, err
}
