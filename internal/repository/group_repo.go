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

const groupColumns = "id, slug, name, creator_id, match_date, created_at, updated_at"

// GroupRepository handles database operations for groups and their membership edges
type GroupRepository struct {
	db database.DBTX
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db database.DBTX) *GroupRepository {
	return &GroupRepository{db: db}
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var matchDate sql.NullTime
	err := row.Scan(
		&group.ID,
		&group.Slug,
		&group.Name,
		&group.CreatorID,
		&matchDate,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if matchDate.Valid {
		t := matchDate.Time
		group.Options.MatchDate = &t
	}
	return group, nil
}

// Create inserts a group. A taken slug surfaces as a unique violation of the dialect.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO gift_groups (id, slug, name, creator_id, match_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		group.ID, group.Slug, group.Name, group.CreatorID,
		nullTime(group.Options.MatchDate), utc(group.CreatedAt), utc(group.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	query := "SELECT " + groupColumns + " FROM gift_groups WHERE id = ?"
	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// GetBySlug retrieves a group by slug
func (r *GroupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	query := "SELECT " + groupColumns + " FROM gift_groups WHERE slug = ?"
	group, err := scanGroup(r.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by slug: %w", err)
	}
	return group, nil
}

// SlugsWithPrefix returns the slugs equal to base or of the form base-*
func (r *GroupRepository) SlugsWithPrefix(ctx context.Context, base string) (map[string]bool, error) {
	query := "SELECT slug FROM gift_groups WHERE slug = ? OR slug LIKE ?"
	rows, err := r.db.QueryContext(ctx, query, base, base+"-%")
	if err != nil {
		return nil, fmt.Errorf("failed to query slugs: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]bool)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		taken[slug] = true
	}
	return taken, rows.Err()
}

// UpdateName renames a group. The slug is left untouched.
func (r *GroupRepository) UpdateName(ctx context.Context, id, name string, now time.Time) error {
	query := "UPDATE gift_groups SET name = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, name, utc(now), id); err != nil {
		return fmt.Errorf("failed to rename group: %w", err)
	}
	return nil
}

// UpdateMatchDate sets or clears the group's match date
func (r *GroupRepository) UpdateMatchDate(ctx context.Context, id string, matchDate *time.Time, now time.Time) error {
	query := "UPDATE gift_groups SET match_date = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, nullTime(matchDate), utc(now), id); err != nil {
		return fmt.Errorf("failed to update match date: %w", err)
	}
	return nil
}

// AddMember inserts a membership edge; adding an existing member is a no-op.
// It reports whether a new edge was created.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string, now time.Time) (bool, error) {
	query := r.db.GetDialect().InsertOrIgnore(
		"INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
	)
	result, err := r.db.ExecContext(ctx, query, groupID, userID, utc(now))
	if err != nil {
		return false, fmt.Errorf("failed to add group member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read member insert result: %w", err)
	}
	return n > 0, nil
}

// IsMember checks if a user belongs to a group
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	query := "SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?"
	var count int
	if err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// ListForUser retrieves the groups a user is a member of
func (r *GroupRepository) ListForUser(ctx context.Context, userID string) ([]models.Group, error) {
	query := `
		SELECT g.id, g.slug, g.name, g.creator_id, g.match_date, g.created_at, g.updated_at
		FROM gift_groups g
		INNER JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = ?
		ORDER BY g.created_at, g.slug
	`
	return r.list(ctx, query, userID)
}

// ListCreatedBy retrieves the groups a user created
func (r *GroupRepository) ListCreatedBy(ctx context.Context, userID string) ([]models.Group, error) {
	query := "SELECT " + groupColumns + " FROM gift_groups WHERE creator_id = ? ORDER BY created_at, slug"
	return r.list(ctx, query, userID)
}

// ListAll retrieves every group
func (r *GroupRepository) ListAll(ctx context.Context) ([]models.Group, error) {
	return r.list(ctx, "SELECT "+groupColumns+" FROM gift_groups ORDER BY created_at, slug")
}

// ListMembers retrieves every membership edge
func (r *GroupRepository) ListMembers(ctx context.Context) ([]models.GroupMember, error) {
	return r.listEdges(ctx, "SELECT group_id, user_id, joined_at FROM group_members ORDER BY group_id, joined_at")
}

// CreatorsWithoutMembership finds groups whose creator is missing from the edge table
func (r *GroupRepository) CreatorsWithoutMembership(ctx context.Context) ([]models.GroupMember, error) {
	query := `
		SELECT g.id, g.creator_id, g.created_at
		FROM gift_groups g
		LEFT JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = g.creator_id
		WHERE gm.user_id IS NULL
	`
	return r.listEdges(ctx, query)
}

func (r *GroupRepository) list(ctx context.Context, query string, args ...any) ([]models.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

func (r *GroupRepository) listEdges(ctx context.Context, query string, args ...any) ([]models.GroupMember, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	edges := []models.GroupMember{}
	for rows.Next() {
		var edge models.GroupMember
		if err := rows.Scan(&edge.GroupID, &edge.UserID, &edge.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return edges, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: utc(*t), Valid: true}
}
