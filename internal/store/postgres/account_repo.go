package postgres

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
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (username, hashed_password, is_online, created_at, last_seen)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, last_seen
	`, a.Username, a.HashedPassword, a.IsOnline).Scan(&a.ID, &a.CreatedAt, &a.LastSeen)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	a := &domain.Account{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, hashed_password, is_online, created_at, last_seen
		FROM accounts WHERE username = $1
	`, username).Scan(&a.ID, &a.Username, &a.HashedPassword, &a.IsOnline, &a.CreatedAt, &a.LastSeen)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (r *AccountRepo) SetOnline(ctx context.Context, username string, online bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET is_online = $1, last_seen = NOW() WHERE username = $2
	`, online, username)
	if err != nil {
		return fmt.Errorf("set online status: %w", err)
	}
	return nil
}
