package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema contains the DDL for every table the service owns.  Statements are
// idempotent (CREATE TABLE IF NOT EXISTS) so EnsureSchema can run on every
// startup.  Uniqueness constraints back the invariants the code relies on:
// usernames are unique (case-sensitive via utf8mb4_bin) and a refresh token
// hash is never reused.  Refresh tokens and tasks cascade-delete with their
// owning user.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username VARCHAR(64) COLLATE utf8mb4_bin NOT NULL,
		password_hash VARBINARY(64) NOT NULL,
		password_salt VARBINARY(64) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		created_at DATETIME NOT NULL,
		created_by_ip VARCHAR(45) NOT NULL DEFAULT '',
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		revoked_by_ip VARCHAR(45) NULL,
		replaced_by_hash CHAR(64) NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_refresh_tokens_hash (token_hash),
		KEY idx_refresh_tokens_user (user_id),
		CONSTRAINT fk_refresh_tokens_user FOREIGN KEY (user_id)
			REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name VARCHAR(128) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_teams_name (name)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS team_members (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		team_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		role ENUM('OWNER','MEMBER') NOT NULL DEFAULT 'MEMBER',
		PRIMARY KEY (id),
		UNIQUE KEY uq_team_members (team_id, user_id),
		CONSTRAINT fk_team_members_team FOREIGN KEY (team_id)
			REFERENCES teams (id) ON DELETE CASCADE,
		CONSTRAINT fk_team_members_user FOREIGN KEY (user_id)
			REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		due_date DATETIME NOT NULL,
		is_completed TINYINT(1) NOT NULL DEFAULT 0,
		user_id BIGINT UNSIGNED NOT NULL,
		team_id BIGINT UNSIGNED NULL,
		assigned_to BIGINT UNSIGNED NULL,
		PRIMARY KEY (id),
		KEY idx_tasks_user (user_id),
		KEY idx_tasks_team (team_id),
		CONSTRAINT fk_tasks_user FOREIGN KEY (user_id)
			REFERENCES users (id) ON DELETE CASCADE,
		CONSTRAINT fk_tasks_team FOREIGN KEY (team_id)
			REFERENCES teams (id) ON DELETE CASCADE,
		CONSTRAINT fk_tasks_assignee FOREIGN KEY (assigned_to)
			REFERENCES users (id) ON DELETE SET NULL
	) ENGINE=InnoDB`,
}

// EnsureSchema creates any missing tables.  Safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
