// Package testutil opens throwaway SQLite databases carrying the production
// schema, for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		is_withdraw_blocked BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE user_settings (
		user_id TEXT PRIMARY KEY,
		default_amount INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE ledger_entries (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		checkout_id TEXT,
		entry_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		meta TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_ledger_entries_topup_checkout ON ledger_entries (checkout_id) WHERE entry_type = 'topup'`,
	`CREATE TABLE checkouts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		api_key_id TEXT,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		external_event_id TEXT,
		created_at TIMESTAMP NOT NULL,
		paid_at TIMESTAMP
	)`,
	`CREATE TABLE withdrawals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL,
		note TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		paid_at TIMESTAMP
	)`,
	`CREATE TABLE api_keys (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		key_prefix TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		revoked_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_user_id TEXT,
		subject_user_id TEXT,
		action TEXT NOT NULL,
		ip TEXT,
		user_agent TEXT,
		details TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE notifications (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// OpenDB returns an in-memory database with every table created. The pool
// holds a single connection, so a query issued outside an open transaction
// blocks instead of silently reading around it.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:kograph_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// Count runs a COUNT(*) style query and returns the result.
func Count(t *testing.T, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return count
}

func SeedProfile(t *testing.T, db *gorm.DB, id, role string, blocked bool) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO profiles (id, email, role, is_withdraw_blocked) VALUES (?, ?, ?, ?)`,
		id, id+"@example.com", role, blocked,
	).Error
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}
