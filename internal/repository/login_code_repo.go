package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"givto/internal/database"
	"givto/internal/models"
)

// LoginCodeStore persists login codes. At most one code exists per email:
// Put replaces any code previously stored for the same email.
type LoginCodeStore interface {
	Put(ctx context.Context, code *models.LoginCode) error
	GetByHash(ctx context.Context, codeHash string) (*models.LoginCode, error)
	// Consume deletes the code and reports whether this call removed it
	Consume(ctx context.Context, codeHash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginCodeRepository is the SQL LoginCodeStore
type LoginCodeRepository struct {
	db database.DBTX
}

// NewLoginCodeRepository creates a new login code repository
func NewLoginCodeRepository(db database.DBTX) *LoginCodeRepository {
	return &LoginCodeRepository{db: db}
}

// Put stores a code with a single upsert keyed by email
func (r *LoginCodeRepository) Put(ctx context.Context, code *models.LoginCode) error {
	_, err := r.db.ExecContext(ctx, r.db.GetDialect().UpsertLoginCode(),
		code.Email, code.CodeHash, code.Name, utc(code.ExpiresAt), utc(code.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store login code: %w", err)
	}
	return nil
}

// GetByHash retrieves a code by its digest
func (r *LoginCodeRepository) GetByHash(ctx context.Context, codeHash string) (*models.LoginCode, error) {
	query := "SELECT email, code_hash, name, expires_at, created_at FROM login_codes WHERE code_hash = ?"
	code := &models.LoginCode{}
	err := r.db.QueryRowContext(ctx, query, codeHash).Scan(
		&code.Email,
		&code.CodeHash,
		&code.Name,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get login code: %w", err)
	}
	return code, nil
}

// Consume deletes the code. Of several concurrent callers only one sees an affected row.
func (r *LoginCodeRepository) Consume(ctx context.Context, codeHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM login_codes WHERE code_hash = ?", codeHash)
	if err != nil {
		return false, fmt.Errorf("failed to consume login code: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read consume result: %w", err)
	}
	return n == 1, nil
}

// DeleteExpired removes all codes that expired at or before now
func (r *LoginCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM login_codes WHERE expires_at <= ?", utc(now))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired login codes: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n, nil
}
