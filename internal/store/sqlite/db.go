package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL for the roomchat schema.
// AUTOINCREMENT on messages keeps ids strictly increasing even across
// deletes, which is what makes id a safe replay-order key.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			hashed_password VARCHAR(255) NOT NULL,
			is_online BOOLEAN DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_seen DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id VARCHAR(100) PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			hashed_password VARCHAR(255) NOT NULL DEFAULT '',
			created_by VARCHAR(50) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id VARCHAR(100) NOT NULL,
			sender VARCHAR(50) NOT NULL,
			body TEXT NOT NULL,
			kind VARCHAR(10) NOT NULL DEFAULT 'text',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(id)
		);`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id INTEGER PRIMARY KEY,
			sender VARCHAR(50) NOT NULL,
			receiver VARCHAR(50) NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id INTEGER PRIMARY KEY,
			user_a VARCHAR(50) NOT NULL,
			user_b VARCHAR(50) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_a, user_b)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_is_online ON accounts(is_online);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_id ON messages(room_id, id);`,
		`CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver ON friend_requests(receiver, status);`,
		`CREATE INDEX IF NOT EXISTS idx_friendships_a ON friendships(user_a);`,
		`CREATE INDEX IF NOT EXISTS idx_friendships_b ON friendships(user_b);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

// isConstraintErr reports whether err is a UNIQUE/PRIMARY KEY violation.
// modernc.org/sqlite surfaces these as generic errors carrying the SQLite
// message text.
func isConstraintErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint")
}
