package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roomchat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

// Append inserts a message and fills in the assigned id and timestamp.
func (r *MessageRepo) Append(ctx context.Context, m *domain.Message) error {
	if m.Kind == "" {
		m.Kind = domain.MessageText
	}
	m.CreatedAt = time.Now().UTC()
	query := `
		INSERT INTO messages (room_id, sender, body, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query, m.RoomID, m.Sender, m.Body, string(m.Kind), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

// ListForRoom returns the room's full log in ascending id order, which is the
// replay order.
func (r *MessageRepo) ListForRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	query := `
		SELECT id, room_id, sender, body, kind, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()
	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		var kind string
		if err := rows.Scan(
			&m.ID,
			&m.RoomID,
			&m.Sender,
			&m.Body,
			&kind,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Kind = domain.MessageKind(kind)
		res = append(res, m)
	}
	return res, rows.Err()
}
