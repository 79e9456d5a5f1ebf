package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"givto/internal/database"
	"givto/internal/models"
)

const userColumns = "id, email, name, created_at, updated_at"

// UserRepository handles database operations for users
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// EnsureByEmail returns the user with the given email, creating it when absent.
// Concurrent callers converge on the same row. A non-empty name is recorded
// only when the stored user has none.
func (r *UserRepository) EnsureByEmail(ctx context.Context, email, name string, now time.Time) (*models.User, error) {
	now = utc(now)
	insert := r.db.GetDialect().InsertOrIgnore(
		"INSERT INTO users (id, email, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
	)
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), email, name, now, now); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("failed to create user: %s not found after insert", email)
	}

	if user.Name == "" && name != "" {
		if err := r.UpdateName(ctx, user.ID, name, now); err != nil {
			return nil, err
		}
		user.Name = name
		user.UpdatedAt = now
	}
	return user, nil
}

// UpdateName sets a user's display name
func (r *UserRepository) UpdateName(ctx context.Context, id, name string, now time.Time) error {
	query := "UPDATE users SET name = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, name, utc(now), id); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// ListByGroup retrieves the members of a group in join order
func (r *UserRepository) ListByGroup(ctx context.Context, groupID string) ([]models.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.created_at, u.updated_at
		FROM users u
		INNER JOIN group_members gm ON u.id = gm.user_id
		WHERE gm.group_id = ?
		ORDER BY gm.joined_at, u.email
	`
	return r.list(ctx, query, groupID)
}

// ListAll retrieves every user ordered by creation time
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, email")
}

func (r *UserRepository) list(ctx context.Context, query string, args ...any) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}
