package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// Name returns the canonical dialect name ("sqlite", "postgres", "mysql")
	Name() string

	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// InsertOrIgnore turns a plain "INSERT INTO" statement into one that
	// silently skips rows violating a unique constraint
	InsertOrIgnore(query string) string

	// UpsertLoginCode returns the statement that stores a login code for an
	// email, replacing any code previously issued for it.
	// Arguments: email, code_hash, name, expires_at, created_at
	UpsertLoginCode() string

	// IsUniqueViolation reports whether err was caused by a unique or primary key constraint
	IsUniqueViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// placeholderRegexp matches ? placeholders not inside quotes
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// replaceInsertPrefix swaps the leading INSERT INTO keyword of a statement
func replaceInsertPrefix(query, replacement string) string {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < len("INSERT INTO") || !strings.EqualFold(trimmed[:len("INSERT INTO")], "INSERT INTO") {
		return query
	}
	return replacement + trimmed[len("INSERT INTO"):]
}
