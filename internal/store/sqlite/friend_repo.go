package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"roomchat/internal/domain"
)

type FriendRepo struct {
	db *sql.DB
}

func NewFriendRepo(db *sql.DB) *FriendRepo {
	return &FriendRepo{db: db}
}

var _ domain.FriendRepository = (*FriendRepo)(nil)

func (r *FriendRepo) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (sender, receiver, status, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`
	res, err := r.db.ExecContext(ctx, query, req.Sender, req.Receiver, string(req.Status))
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	req.ID = id
	return nil
}

func (r *FriendRepo) GetRequestByID(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	query := `SELECT id, sender, receiver, status, created_at FROM friend_requests WHERE id = ?`
	req := &domain.FriendRequest{}
	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&req.ID,
		&req.Sender,
		&req.Receiver,
		&status,
		&req.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan friend request: %w", err)
	}
	req.Status = domain.FriendRequestStatus(status)
	return req, nil
}

// PendingRequestExists checks the exact (sender, receiver) orientation only;
// a pending request in the reverse direction is a distinct row.
func (r *FriendRepo) PendingRequestExists(ctx context.Context, sender, receiver string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM friend_requests
		WHERE sender = ? AND receiver = ? AND status = 'pending'
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, sender, receiver).Scan(&count); err != nil {
		return false, fmt.Errorf("count pending requests: %w", err)
	}
	return count > 0, nil
}

func (r *FriendRepo) ListPendingForReceiver(ctx context.Context, receiver string) ([]*domain.FriendRequest, error) {
	query := `
		SELECT id, sender, receiver, status, created_at
		FROM friend_requests
		WHERE receiver = ? AND status = 'pending'
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, receiver)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	defer rows.Close()

	var res []*domain.FriendRequest
	for rows.Next() {
		req := &domain.FriendRequest{}
		var status string
		if err := rows.Scan(&req.ID, &req.Sender, &req.Receiver, &status, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		req.Status = domain.FriendRequestStatus(status)
		res = append(res, req)
	}
	return res, rows.Err()
}

func (r *FriendRepo) SetRequestStatus(ctx context.Context, id int64, status domain.FriendRequestStatus) error {
	query := `UPDATE friend_requests SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateFriendship stores the edge with the pair in lexicographic order so
// the UNIQUE constraint covers the unordered pair: inserting (b, a) after
// (a, b) conflicts.
func (r *FriendRepo) CreateFriendship(ctx context.Context, userA, userB string) error {
	if userB < userA {
		userA, userB = userB, userA
	}
	query := `
		INSERT INTO friendships (user_a, user_b, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`
	_, err := r.db.ExecContext(ctx, query, userA, userB)
	if isConstraintErr(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

// FriendshipExists checks the unordered pair in both storage orientations.
func (r *FriendRepo) FriendshipExists(ctx context.Context, userA, userB string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM friendships
		WHERE (user_a = ? AND user_b = ?) OR (user_a = ? AND user_b = ?)
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userA, userB, userB, userA).Scan(&count); err != nil {
		return false, fmt.Errorf("count friendships: %w", err)
	}
	return count > 0, nil
}

// ListFriends returns the usernames paired with the given one, normalized to
// the other side of each edge.
func (r *FriendRepo) ListFriends(ctx context.Context, username string) ([]string, error) {
	query := `
		SELECT CASE WHEN user_a = ? THEN user_b ELSE user_a END
		FROM friendships
		WHERE user_a = ? OR user_b = ?
		ORDER BY 1 ASC
	`
	rows, err := r.db.QueryContext(ctx, query, username, username, username)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		res = append(res, name)
	}
	return res, rows.Err()
}
