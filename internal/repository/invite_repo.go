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

const inviteColumns = "id, group_id, invitee_id, email, created_at, accepted_at"

// InviteRepository handles database operations for invites
type InviteRepository struct {
	db database.DBTX
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db database.DBTX) *InviteRepository {
	return &InviteRepository{db: db}
}

func scanInvite(row rowScanner) (*models.Invite, error) {
	inv := &models.Invite{}
	var acceptedAt sql.NullTime
	err := row.Scan(
		&inv.ID,
		&inv.GroupID,
		&inv.InviteeID,
		&inv.Email,
		&inv.CreatedAt,
		&acceptedAt,
	)
	if err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	return inv, nil
}

// Create inserts an invite
func (r *InviteRepository) Create(ctx context.Context, inv *models.Invite) error {
	query := `
		INSERT INTO invites (id, group_id, invitee_id, email, created_at, accepted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.GroupID, inv.InviteeID, inv.Email, utc(inv.CreatedAt), nullTime(inv.AcceptedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetByID retrieves an invite by ID
func (r *InviteRepository) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	query := "SELECT " + inviteColumns + " FROM invites WHERE id = ?"
	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return inv, nil
}

// GetPending retrieves the pending invite of a user to a group
func (r *InviteRepository) GetPending(ctx context.Context, groupID, inviteeID string) (*models.Invite, error) {
	query := "SELECT " + inviteColumns + " FROM invites WHERE group_id = ? AND invitee_id = ? AND accepted_at IS NULL"
	inv, err := scanInvite(r.db.QueryRowContext(ctx, query, groupID, inviteeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending invite: %w", err)
	}
	return inv, nil
}

// ListPendingForUser retrieves the invites a user has not accepted yet
func (r *InviteRepository) ListPendingForUser(ctx context.Context, inviteeID string) ([]models.Invite, error) {
	query := "SELECT " + inviteColumns + " FROM invites WHERE invitee_id = ? AND accepted_at IS NULL ORDER BY created_at, id"
	return r.list(ctx, query, inviteeID)
}

// ListAll retrieves every invite
func (r *InviteRepository) ListAll(ctx context.Context) ([]models.Invite, error) {
	return r.list(ctx, "SELECT "+inviteColumns+" FROM invites ORDER BY created_at, id")
}

// MarkAccepted consumes a pending invite. It reports false when the invite
// was already accepted, so an invite is consumed at most once.
func (r *InviteRepository) MarkAccepted(ctx context.Context, id string, now time.Time) (bool, error) {
	query := "UPDATE invites SET accepted_at = ? WHERE id = ? AND accepted_at IS NULL"
	result, err := r.db.ExecContext(ctx, query, utc(now), id)
	if err != nil {
		return false, fmt.Errorf("failed to accept invite: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read invite update result: %w", err)
	}
	return n == 1, nil
}

// AcceptedWithoutMembership finds accepted invites whose invitee has no membership edge
func (r *InviteRepository) AcceptedWithoutMembership(ctx context.Context) ([]models.Invite, error) {
	query := `
		SELECT i.id, i.group_id, i.invitee_id, i.email, i.created_at, i.accepted_at
		FROM invites i
		LEFT JOIN group_members gm ON gm.group_id = i.group_id AND gm.user_id = i.invitee_id
		WHERE i.accepted_at IS NOT NULL AND gm.user_id IS NULL
	`
	return r.list(ctx, query)
}

// PendingForMembers finds pending invites whose invitee is already a member
func (r *InviteRepository) PendingForMembers(ctx context.Context) ([]models.Invite, error) {
	query := `
		SELECT i.id, i.group_id, i.invitee_id, i.email, i.created_at, i.accepted_at
		FROM invites i
		INNER JOIN group_members gm ON gm.group_id = i.group_id AND gm.user_id = i.invitee_id
		WHERE i.accepted_at IS NULL
	`
	return r.list(ctx, query)
}

func (r *InviteRepository) list(ctx context.Context, query string, args ...any) ([]models.Invite, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer rows.Close()

	invites := []models.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}
	return invites, nil
}
