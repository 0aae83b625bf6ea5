package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"roomchat/internal/domain"
)

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

var _ domain.AccountRepository = (*AccountRepo)(nil)

func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (username, hashed_password, is_online, created_at, last_seen)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`
	res, err := r.db.ExecContext(ctx, query, a.Username, a.HashedPassword, a.IsOnline)
	if isConstraintErr(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	return nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `
		SELECT id, username, hashed_password, is_online, created_at, last_seen
		FROM accounts WHERE username = ?
	`
	a := &domain.Account{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&a.ID,
		&a.Username,
		&a.HashedPassword,
		&a.IsOnline,
		&a.CreatedAt,
		&a.LastSeen,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (r *AccountRepo) SetOnline(ctx context.Context, username string, online bool) error {
	query := `UPDATE accounts SET is_online = ?, last_seen = CURRENT_TIMESTAMP WHERE username = ?`
	val := 0
	if online {
		val = 1
	}
	if _, err := r.db.ExecContext(ctx, query, val, username); err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}
