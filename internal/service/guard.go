package service

import (
	"context"
	"fmt"

	"givto/internal/models"
	"givto/internal/repository"
	"givto/internal/validation"
)

// Operation names an API operation subject to authorization
type Operation string

const (
	OpGetCurrentUser  Operation = "getCurrentUser"
	OpGetLoginCode    Operation = "getLoginCode"
	OpCreateLoginCode Operation = "createLoginCode"
	OpVerifyLoginCode Operation = "verifyLoginCode"
	OpGetGroup        Operation = "getGroup"
	OpCreateGroup     Operation = "createGroup"
	OpSetGroupName    Operation = "setGroupName"
	OpSetMatchDate    Operation = "setMatchDate"
	OpAcceptInvite    Operation = "acceptInvite"
)

// Guard decides whether an identity may perform an operation on a target
type Guard struct {
	store *repository.Store
}

// NewGuard creates a new authorization guard
func NewGuard(store *repository.Store) *Guard {
	return &Guard{store: store}
}

// Authorize checks op against target and returns the target group for group
// operations. target is the group slug for group operations and the claimed
// creator email for createGroup; other operations ignore it.
//
// Unknown slugs fail with ErrUnauthorized exactly like groups the caller
// cannot see, so slug existence is not observable.
func (g *Guard) Authorize(ctx context.Context, identity *models.Identity, op Operation, target string) (*models.Group, error) {
	switch op {
	case OpGetCurrentUser, OpGetLoginCode, OpCreateLoginCode, OpVerifyLoginCode:
		return nil, nil
	}

	if identity == nil {
		return nil, ErrUnauthenticated
	}

	switch op {
	case OpCreateGroup:
		if validation.NormalizeEmail(target) != identity.Email {
			return nil, ErrUnauthorized
		}
		return nil, nil

	case OpGetGroup:
		group, err := g.group(ctx, target)
		if err != nil {
			return nil, err
		}
		isMember, err := g.store.Groups.IsMember(ctx, group.ID, identity.UserID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, ErrUnauthorized
		}
		return group, nil

	case OpSetGroupName, OpSetMatchDate:
		group, err := g.group(ctx, target)
		if err != nil {
			return nil, err
		}
		if group.CreatorID != identity.UserID {
			return nil, ErrUnauthorized
		}
		return group, nil

	case OpAcceptInvite:
		group, err := g.group(ctx, target)
		if err != nil {
			return nil, err
		}
		invite, err := g.store.Invites.GetPending(ctx, group.ID, identity.UserID)
		if err != nil {
			return nil, err
		}
		if invite == nil {
			return nil, ErrUnauthorized
		}
		return group, nil
	}

	return nil, fmt.Errorf("unknown operation %q", op)
}

// group loads the target group, mapping a missing group to ErrUnauthorized
func (g *Guard) group(ctx context.Context, slug string) (*models.Group, error) {
	group, err := g.store.Groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrUnauthorized
	}
	return group, nil
}
