package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"givto/internal/repository"
)

// ExportVersion is the format version written by Export
const ExportVersion = "1"

// ExportData is a snapshot of users, groups, memberships and invites
type ExportData struct {
	Version      string         `json:"version"`
	ExportedAt   time.Time      `json:"exported_at"`
	DatabaseType string         `json:"database_type"`
	Users        []UserExport   `json:"users"`
	Groups       []GroupExport  `json:"groups"`
	Members      []MemberExport `json:"members"`
	Invites      []InviteExport `json:"invites"`
}

// UserExport represents a user record in an export
type UserExport struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupExport represents a group record in an export
type GroupExport struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug"`
	Name      string     `json:"name"`
	CreatorID string     `json:"creator_id"`
	MatchDate *time.Time `json:"match_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MemberExport represents one membership edge in an export
type MemberExport struct {
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// InviteExport represents an invite record in an export
type InviteExport struct {
	ID         string     `json:"id"`
	GroupID    string     `json:"group_id"`
	InviteeID  string     `json:"invitee_id"`
	Email      string     `json:"email"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// RepairReport counts the fixes applied by Repair
type RepairReport struct {
	CreatorsAdded   int `json:"creators_added"`
	MembersAdded    int `json:"members_added"`
	InvitesAccepted int `json:"invites_accepted"`
}

// Changed reports whether any fix was applied
func (r RepairReport) Changed() bool {
	return r.CreatorsAdded+r.MembersAdded+r.InvitesAccepted > 0
}

// MaintenanceService runs operational tasks: consistency repair, code purges and exports
type MaintenanceService struct {
	store *repository.Store
	auth  *AuthService
	now   func() time.Time
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(store *repository.Store, auth *AuthService, now func() time.Time) *MaintenanceService {
	if now == nil {
		now = time.Now
	}
	return &MaintenanceService{store: store, auth: auth, now: now}
}

// Repair restores the membership invariants: every creator is a member,
// every accepted invite has a membership edge, and no member still holds a
// pending invite for their group. A second run reports no changes.
func (s *MaintenanceService) Repair(ctx context.Context) (RepairReport, error) {
	var report RepairReport
	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		now := s.now()

		creators, err := tx.Groups.CreatorsWithoutMembership(ctx)
		if err != nil {
			return err
		}
		for _, edge := range creators {
			added, err := tx.Groups.AddMember(ctx, edge.GroupID, edge.UserID, edge.JoinedAt)
			if err != nil {
				return err
			}
			if added {
				report.CreatorsAdded++
			}
		}

		accepted, err := tx.Invites.AcceptedWithoutMembership(ctx)
		if err != nil {
			return err
		}
		for _, inv := range accepted {
			joinedAt := now
			if inv.AcceptedAt != nil {
				joinedAt = *inv.AcceptedAt
			}
			added, err := tx.Groups.AddMember(ctx, inv.GroupID, inv.InviteeID, joinedAt)
			if err != nil {
				return err
			}
			if added {
				report.MembersAdded++
			}
		}

		stale, err := tx.Invites.PendingForMembers(ctx)
		if err != nil {
			return err
		}
		for _, inv := range stale {
			ok, err := tx.Invites.MarkAccepted(ctx, inv.ID, now)
			if err != nil {
				return err
			}
			if ok {
				report.InvitesAccepted++
			}
		}
		return nil
	})
	if err != nil {
		return RepairReport{}, fmt.Errorf("failed to repair memberships: %w", err)
	}

	log.Printf("Repair finished: %d creators added, %d members added, %d invites accepted",
		report.CreatorsAdded, report.MembersAdded, report.InvitesAccepted)
	return report, nil
}

// PurgeExpiredCodes deletes expired login codes
func (s *MaintenanceService) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	return s.auth.PurgeExpiredCodes(ctx)
}

// Export writes a JSON snapshot of the database to w
func (s *MaintenanceService) Export(ctx context.Context, w io.Writer) error {
	data := &ExportData{
		Version:      ExportVersion,
		ExportedAt:   s.now().UTC(),
		DatabaseType: s.store.DB().Dialect.Name(),
	}

	users, err := s.store.Users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	data.Users = make([]UserExport, 0, len(users))
	for _, u := range users {
		data.Users = append(data.Users, UserExport{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt})
	}

	groups, err := s.store.Groups.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to export groups: %w", err)
	}
	data.Groups = make([]GroupExport, 0, len(groups))
	for _, g := range groups {
		data.Groups = append(data.Groups, GroupExport{
			ID:        g.ID,
			Slug:      g.Slug,
			Name:      g.Name,
			CreatorID: g.CreatorID,
			MatchDate: g.Options.MatchDate,
			CreatedAt: g.CreatedAt,
		})
	}

	members, err := s.store.Groups.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("failed to export members: %w", err)
	}
	data.Members = make([]MemberExport, 0, len(members))
	for _, m := range members {
		data.Members = append(data.Members, MemberExport{GroupID: m.GroupID, UserID: m.UserID, JoinedAt: m.JoinedAt})
	}

	invites, err := s.store.Invites.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to export invites: %w", err)
	}
	data.Invites = make([]InviteExport, 0, len(invites))
	for _, inv := range invites {
		data.Invites = append(data.Invites, InviteExport{
			ID:         inv.ID,
			GroupID:    inv.GroupID,
			InviteeID:  inv.InviteeID,
			Email:      inv.Email,
			CreatedAt:  inv.CreatedAt,
			AcceptedAt: inv.AcceptedAt,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	log.Printf("Exported: %d users, %d groups, %d members, %d invites",
		len(data.Users), len(data.Groups), len(data.Members), len(data.Invites))
	return nil
}
