package database

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// DSN enables WAL, foreign keys and immediate transactions on every pooled
// connection. PRAGMAs executed through db.Exec only reach a single connection.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	params := "_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate"
	if strings.Contains(config.Path, "?") {
		return config.Path + "&" + params
	}
	return "file:" + config.Path + "?" + params
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) InsertOrIgnore(query string) string {
	return replaceInsertPrefix(query, "INSERT OR IGNORE INTO")
}

func (d *SQLiteDialect) UpsertLoginCode() string {
	return `
		INSERT INTO login_codes (email, code_hash, name, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			code_hash = excluded.code_hash,
			name = excluded.name,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`
}

func (d *SQLiteDialect) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
