package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"roomchat/internal/domain"
)

type RoomRepo struct {
	db *sql.DB
}

func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

var _ domain.RoomRepository = (*RoomRepo)(nil)

func (r *RoomRepo) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (id, name, hashed_password, created_by, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := r.db.ExecContext(ctx, query, room.ID, room.Name, room.HashedPassword, room.CreatedBy)
	if isConstraintErr(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (r *RoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	query := `SELECT id, name, hashed_password, created_by, created_at FROM rooms WHERE id = ?`
	room := &domain.Room{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.HashedPassword,
		&room.CreatedBy,
		&room.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan room: %w", err)
	}
	return room, nil
}

func (r *RoomRepo) List(ctx context.Context) ([]*domain.Room, error) {
	query := `SELECT id, name, hashed_password, created_by, created_at FROM rooms ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var res []*domain.Room
	for rows.Next() {
		room := &domain.Room{}
		if err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.HashedPassword,
			&room.CreatedBy,
			&room.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		res = append(res, room)
	}
	return res, rows.Err()
}
