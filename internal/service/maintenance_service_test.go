package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"givto/internal/models"
)

func TestRepairConverges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()
	ann := env.login(t, "ann@example.com", "Ann")

	bob, err := env.store.Users.EnsureByEmail(ctx, "bob@example.com", "Bob", now)
	require.NoError(t, err)
	cat, err := env.store.Users.EnsureByEmail(ctx, "cat@example.com", "Cat", now)
	require.NoError(t, err)

	// A group written without its creator edge, an accepted invite without
	// membership, and a member who still holds a pending invite
	group := &models.Group{ID: uuid.NewString(), Slug: "broken", Name: "Broken", CreatorID: ann.UserID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, env.store.Groups.Create(ctx, group))
	accepted := now
	require.NoError(t, env.store.Invites.Create(ctx, &models.Invite{ID: uuid.NewString(), GroupID: group.ID, InviteeID: bob.ID, Email: bob.Email, CreatedAt: now, AcceptedAt: &accepted}))
	require.NoError(t, env.store.Invites.Create(ctx, &models.Invite{ID: uuid.NewString(), GroupID: group.ID, InviteeID: cat.ID, Email: cat.Email, CreatedAt: now}))
	_, err = env.store.Groups.AddMember(ctx, group.ID, cat.ID, now)
	require.NoError(t, err)

	report, err := env.maint.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, RepairReport{CreatorsAdded: 1, MembersAdded: 1, InvitesAccepted: 1}, report)
	assert.True(t, report.Changed())

	again, err := env.maint.Repair(ctx)
	require.NoError(t, err)
	assert.False(t, again.Changed(), "second run must find nothing to fix")

	members, err := env.store.Users.ListByGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestRepairLeavesHealthyGroupsAlone(t *testing.T) {
	env := newTestEnv(t)
	ann := env.login(t, "ann@example.com", "Ann")
	devTeam(env, t, ann)

	report, err := env.maint.Repair(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Changed())
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")
	devTeam(env, t, ann)
	match := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	_, err := env.groups.SetMatchDate(ctx, ann, "dev-team", &match)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.maint.Export(ctx, &buf))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, ExportVersion, data.Version)
	assert.Equal(t, "sqlite", data.DatabaseType)
	assert.Len(t, data.Users, 3)
	require.Len(t, data.Groups, 1)
	assert.Equal(t, "dev-team", data.Groups[0].Slug)
	require.NotNil(t, data.Groups[0].MatchDate)
	assert.True(t, match.Equal(*data.Groups[0].MatchDate))
	assert.Len(t, data.Members, 1)
	assert.Len(t, data.Invites, 2)
}
