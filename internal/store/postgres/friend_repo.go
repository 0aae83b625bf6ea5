package postgres

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO friend_requests (sender, receiver, status, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, req.Sender, req.Receiver, string(req.Status)).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

func (r *FriendRepo) GetRequestByID(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	req := &domain.FriendRequest{}
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sender, receiver, status, created_at
		FROM friend_requests WHERE id = $1
	`, id).Scan(&req.ID, &req.Sender, &req.Receiver, &status, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan friend request: %w", err)
	}
	req.Status = domain.FriendRequestStatus(status)
	return req, nil
}

// PendingRequestExists checks the exact (sender, receiver) orientation only.
func (r *FriendRepo) PendingRequestExists(ctx context.Context, sender, receiver string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM friend_requests
		WHERE sender = $1 AND receiver = $2 AND status = 'pending'
	`, sender, receiver).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count pending requests: %w", err)
	}
	return count > 0, nil
}

func (r *FriendRepo) ListPendingForReceiver(ctx context.Context, receiver string) ([]*domain.FriendRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender, receiver, status, created_at
		FROM friend_requests
		WHERE receiver = $1 AND status = 'pending'
		ORDER BY id ASC
	`, receiver)
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
	res, err := r.db.ExecContext(ctx, `
		UPDATE friend_requests SET status = $1 WHERE id = $2
	`, string(status), id)
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
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO friendships (user_a, user_b, created_at)
		VALUES ($1, $2, NOW())
	`, userA, userB)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

// FriendshipExists checks the unordered pair in both storage orientations.
func (r *FriendRepo) FriendshipExists(ctx context.Context, userA, userB string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM friendships
		WHERE (user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1)
	`, userA, userB).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count friendships: %w", err)
	}
	return count > 0, nil
}

func (r *FriendRepo) ListFriends(ctx context.Context, username string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CASE WHEN user_a = $1 THEN user_b ELSE user_a END
		FROM friendships
		WHERE user_a = $1 OR user_b = $1
		ORDER BY 1 ASC
	`, username)
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
