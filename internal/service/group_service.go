package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"givto/internal/models"
	"givto/internal/repository"
	"givto/internal/utils"
	"givto/internal/validation"
)

// GroupService creates groups, attaches invitees and applies group updates
type GroupService struct {
	store           *repository.Store
	guard           *Guard
	notifier        Notifier
	slugMaxAttempts int
	now             func() time.Time
	debug           bool
}

// GroupOptions configures a GroupService
type GroupOptions struct {
	SlugMaxAttempts int
	Now             func() time.Time
	Debug           bool
}

// NewGroupService creates a new group service
func NewGroupService(store *repository.Store, guard *Guard, notifier Notifier, opts GroupOptions) *GroupService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	maxAttempts := opts.SlugMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &GroupService{
		store:           store,
		guard:           guard,
		notifier:        notifier,
		slugMaxAttempts: maxAttempts,
		now:             now,
		debug:           opts.Debug,
	}
}

// slugConflictError reports that a slug was taken between the lookup and the insert
type slugConflictError struct {
	slug string
}

func (e *slugConflictError) Error() string {
	return fmt.Sprintf("slug %q was taken concurrently", e.slug)
}

type pendingInvite struct {
	email string
	name  string
}

// CreateGroup creates a group owned by the caller with the creator as its
// first member and one invite per distinct invitee. The group, the
// membership and the invites are written in one transaction.
// name defaults to the creator's name.
func (s *GroupService) CreateGroup(ctx context.Context, identity *models.Identity, creator models.UserInput, invitees []models.UserInput, name *string) (*models.Group, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	if err := validation.ValidateUserInput("creator", creator); err != nil {
		return nil, err
	}
	if _, err := s.guard.Authorize(ctx, identity, OpCreateGroup, creator.Email); err != nil {
		return nil, err
	}

	pending, err := distinctInvitees(identity.Email, invitees)
	if err != nil {
		return nil, err
	}

	creatorName := strings.TrimSpace(creator.Name)
	groupName := creatorName
	if name != nil && strings.TrimSpace(*name) != "" {
		groupName = strings.TrimSpace(*name)
	}
	if err := validation.ValidateGroupName(groupName); err != nil {
		return nil, err
	}

	base := utils.Slugify(groupName)
	candidates := utils.SlugCandidates(base, s.slugMaxAttempts)
	lost := make(map[string]bool)

	var group *models.Group
	var creatorUser *models.User
	invitedUsers := make([]*models.User, len(pending))

	for len(lost) < len(candidates) {
		err = s.store.WithTx(ctx, func(tx *repository.Store) error {
			now := s.now()

			var err error
			creatorUser, err = tx.Users.EnsureByEmail(ctx, identity.Email, creatorName, now)
			if err != nil {
				return err
			}

			slug, err := s.pickSlug(ctx, tx, base, candidates, lost)
			if err != nil {
				return err
			}

			group = &models.Group{
				ID:        uuid.NewString(),
				Slug:      slug,
				Name:      groupName,
				CreatorID: creatorUser.ID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Groups.Create(ctx, group); err != nil {
				if tx.DB().Dialect.IsUniqueViolation(err) {
					return &slugConflictError{slug: slug}
				}
				return err
			}
			if _, err := tx.Groups.AddMember(ctx, group.ID, creatorUser.ID, now); err != nil {
				return err
			}

			for i, p := range pending {
				invitee, err := tx.Users.EnsureByEmail(ctx, p.email, p.name, now)
				if err != nil {
					return err
				}
				invite := &models.Invite{
					ID:        uuid.NewString(),
					GroupID:   group.ID,
					InviteeID: invitee.ID,
					Email:     invitee.Email,
					CreatedAt: now,
				}
				if err := tx.Invites.Create(ctx, invite); err != nil {
					return err
				}
				invitedUsers[i] = invitee
			}
			return nil
		})

		var conflict *slugConflictError
		if errors.As(err, &conflict) {
			if s.debug {
				log.Printf("[DEBUG] %v, retrying", conflict)
			}
			lost[conflict.slug] = true
			continue
		}
		break
	}
	if err != nil {
		var conflict *slugConflictError
		if errors.As(err, &conflict) {
			return nil, ErrSlugExhausted
		}
		if errors.Is(err, ErrSlugExhausted) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	log.Printf("Group created: slug=%s, invites=%d", group.Slug, len(pending))

	inviterName := creatorUser.Name
	for _, invitee := range invitedUsers {
		s.notifier.InviteCreated(ctx, invitee.Email, invitee.Name, inviterName, group)
	}
	return group, nil
}

// pickSlug returns the first candidate that is neither stored nor lost to a concurrent insert
func (s *GroupService) pickSlug(ctx context.Context, tx *repository.Store, base string, candidates []string, lost map[string]bool) (string, error) {
	taken, err := tx.Groups.SlugsWithPrefix(ctx, base)
	if err != nil {
		return "", err
	}
	for _, candidate := range candidates {
		if !taken[candidate] && !lost[candidate] {
			return candidate, nil
		}
	}
	return "", ErrSlugExhausted
}

// distinctInvitees validates invitees and drops duplicates and the creator
func distinctInvitees(creatorEmail string, invitees []models.UserInput) ([]pendingInvite, error) {
	seen := map[string]bool{creatorEmail: true}
	pending := make([]pendingInvite, 0, len(invitees))
	for i, invitee := range invitees {
		if err := validation.ValidateUserInput(fmt.Sprintf("invitees[%d]", i), invitee); err != nil {
			return nil, err
		}
		email := validation.NormalizeEmail(invitee.Email)
		if seen[email] {
			continue
		}
		seen[email] = true
		pending = append(pending, pendingInvite{email: email, name: strings.TrimSpace(invitee.Name)})
	}
	return pending, nil
}

// GetGroup returns the group with the given slug when the caller is a member
func (s *GroupService) GetGroup(ctx context.Context, identity *models.Identity, slug string) (*models.Group, error) {
	return s.guard.Authorize(ctx, identity, OpGetGroup, slug)
}

// SetGroupName renames a group the caller created. The slug never changes.
// Without a slug the caller's only created group is renamed.
func (s *GroupService) SetGroupName(ctx context.Context, identity *models.Identity, name string, slug *string) (*models.Group, error) {
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	if err := validation.ValidateGroupName(name); err != nil {
		return nil, err
	}

	target, err := s.resolveSlug(ctx, identity, slug)
	if err != nil {
		return nil, err
	}
	group, err := s.guard.Authorize(ctx, identity, OpSetGroupName, target)
	if err != nil {
		return nil, err
	}

	group.Name = strings.TrimSpace(name)
	group.UpdatedAt = s.now()
	if err := s.store.Groups.UpdateName(ctx, group.ID, group.Name, group.UpdatedAt); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) resolveSlug(ctx context.Context, identity *models.Identity, slug *string) (string, error) {
	if slug != nil && strings.TrimSpace(*slug) != "" {
		return strings.TrimSpace(*slug), nil
	}

	created, err := s.store.Groups.ListCreatedBy(ctx, identity.UserID)
	if err != nil {
		return "", err
	}
	switch len(created) {
	case 0:
		return "", ErrNotFound
	case 1:
		return created[0].Slug, nil
	default:
		return "", validation.ValidationError{Field: "slug", Message: "slug is required when you created more than one group"}
	}
}

// SetMatchDate sets or clears the match date of a group the caller created
func (s *GroupService) SetMatchDate(ctx context.Context, identity *models.Identity, slug string, matchDate *time.Time) (*models.Group, error) {
	group, err := s.guard.Authorize(ctx, identity, OpSetMatchDate, slug)
	if err != nil {
		return nil, err
	}

	group.Options.MatchDate = matchDate
	group.UpdatedAt = s.now()
	if err := s.store.Groups.UpdateMatchDate(ctx, group.ID, matchDate, group.UpdatedAt); err != nil {
		return nil, err
	}
	return group, nil
}

// AcceptInvite consumes the caller's pending invite and adds them to the group
func (s *GroupService) AcceptInvite(ctx context.Context, identity *models.Identity, slug string) (*models.Group, error) {
	group, err := s.guard.Authorize(ctx, identity, OpAcceptInvite, slug)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		now := s.now()
		invite, err := tx.Invites.GetPending(ctx, group.ID, identity.UserID)
		if err != nil {
			return err
		}
		if invite == nil {
			return ErrUnauthorized
		}
		accepted, err := tx.Invites.MarkAccepted(ctx, invite.ID, now)
		if err != nil {
			return err
		}
		if !accepted {
			return ErrUnauthorized
		}
		_, err = tx.Groups.AddMember(ctx, group.ID, identity.UserID, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}

	if s.debug {
		log.Printf("[DEBUG] User %s joined group %s", identity.UserID, group.Slug)
	}
	return group, nil
}
