package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the roomchat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id               BIGSERIAL    PRIMARY KEY,
			username         VARCHAR(50)  UNIQUE NOT NULL,
			hashed_password  VARCHAR(255) NOT NULL,
			is_online        BOOLEAN      NOT NULL DEFAULT FALSE,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			last_seen        TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS rooms (
			id              VARCHAR(100) PRIMARY KEY,
			name            VARCHAR(100) NOT NULL,
			hashed_password VARCHAR(255) NOT NULL DEFAULT '',
			created_by      VARCHAR(50)  NOT NULL,
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id         BIGSERIAL    PRIMARY KEY,
			room_id    VARCHAR(100) NOT NULL REFERENCES rooms(id),
			sender     VARCHAR(50)  NOT NULL,
			body       TEXT         NOT NULL,
			kind       VARCHAR(10)  NOT NULL DEFAULT 'text',
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS friend_requests (
			id         BIGSERIAL   PRIMARY KEY,
			sender     VARCHAR(50) NOT NULL,
			receiver   VARCHAR(50) NOT NULL,
			status     VARCHAR(10) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS friendships (
			id         BIGSERIAL   PRIMARY KEY,
			user_a     VARCHAR(50) NOT NULL,
			user_b     VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_a, user_b)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_is_online ON accounts(is_online)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_id ON messages(room_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests(receiver, status)`,
		`CREATE INDEX IF NOT EXISTS idx_friendships_a ON friendships(user_a)`,
		`CREATE INDEX IF NOT EXISTS idx_friendships_b ON friendships(user_b)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
