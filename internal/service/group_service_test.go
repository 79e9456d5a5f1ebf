package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"givto/internal/models"
	"givto/internal/validation"
)

func strPtr(s string) *string { return &s }

func devTeam(env *testEnv, t *testing.T, creator *models.Identity) *models.Group {
	t.Helper()
	group, err := env.groups.CreateGroup(context.Background(), creator,
		models.UserInput{Name: "Dev Team", Email: creator.Email},
		[]models.UserInput{
			{Name: "Bob", Email: "bob@example.com"},
			{Name: "Cat", Email: "cat@example.com"},
		},
		nil,
	)
	require.NoError(t, err)
	return group
}

func TestCreateGroupSlugs(t *testing.T) {
	env := newTestEnv(t)
	ann := env.login(t, "ann@example.com", "Ann")

	first := devTeam(env, t, ann)
	assert.Equal(t, "dev-team", first.Slug)
	assert.Equal(t, "Dev Team", first.Name, "name defaults to the creator's name")

	second := devTeam(env, t, ann)
	assert.Equal(t, "dev-team-2", second.Slug)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateGroupPopulatesMembersAndInvites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")

	group, err := env.groups.CreateGroup(ctx, ann,
		models.UserInput{Name: "Ann", Email: "ANN@example.com"},
		[]models.UserInput{
			{Name: "Bob", Email: "bob@example.com"},
			{Name: "Bobby", Email: "Bob@Example.com"},
			{Name: "Ann again", Email: "ann@example.com"},
		},
		strPtr("Xmas 2026"),
	)
	require.NoError(t, err)
	assert.Equal(t, "xmas-2026", group.Slug)
	assert.Equal(t, ann.UserID, group.CreatorID)

	members, err := env.store.Users.ListByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, ann.UserID, members[0].ID, "creator is the first member")

	bob, err := env.store.Users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.NotNil(t, bob, "invitee user is created")
	assert.Equal(t, "Bob", bob.Name)

	invites, err := env.store.Invites.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, invites, 1, "duplicate invitees and the creator are ignored")

	env.notifier.mu.Lock()
	assert.Equal(t, []string{"bob@example.com"}, env.notifier.invites)
	env.notifier.mu.Unlock()
}

func TestCreateGroupAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")

	_, err := env.groups.CreateGroup(ctx, nil, models.UserInput{Name: "Ann", Email: "ann@example.com"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.groups.CreateGroup(ctx, ann, models.UserInput{Name: "Mallory", Email: "mallory@example.com"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var vErr validation.ValidationError
	_, err = env.groups.CreateGroup(ctx, ann, models.UserInput{Name: "Ann", Email: "ann@example.com"},
		[]models.UserInput{{Name: "", Email: "bob@example.com"}}, nil)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "invitees[0].name", vErr.Field)

	groups, err := env.store.Groups.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups, "rejected calls leave no group behind")
}

func TestCreateGroupSlugExhausted(t *testing.T) {
	env := newTestEnvWithSlugAttempts(t, 2)
	ann := env.login(t, "ann@example.com", "Ann")

	devTeam(env, t, ann)
	devTeam(env, t, ann)

	_, err := env.groups.CreateGroup(context.Background(), ann,
		models.UserInput{Name: "Dev Team", Email: ann.Email}, nil, nil)
	assert.ErrorIs(t, err, ErrSlugExhausted)
}

func TestCreateGroupConcurrentSlugsAreDistinct(t *testing.T) {
	env := newTestEnv(t)
	ann := env.login(t, "ann@example.com", "Ann")

	const n = 6
	slugs := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g, err := env.groups.CreateGroup(context.Background(), ann,
				models.UserInput{Name: "Dev Team", Email: ann.Email}, nil, nil)
			errs[i] = err
			if g != nil {
				slugs[i] = g.Slug
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[slugs[i]], "slug %s handed out twice", slugs[i])
		seen[slugs[i]] = true
	}
	assert.True(t, seen["dev-team"])
}

func TestSetGroupNameKeepsSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")
	devTeam(env, t, ann)

	renamed, err := env.groups.SetGroupName(ctx, ann, "Developers", strPtr("dev-team"))
	require.NoError(t, err)
	assert.Equal(t, "Developers", renamed.Name)
	assert.Equal(t, "dev-team", renamed.Slug)

	stored, err := env.store.Groups.GetBySlug(ctx, "dev-team")
	require.NoError(t, err)
	assert.Equal(t, "Developers", stored.Name)

	// A new group under the new name gets a slug of its own
	g, err := env.groups.CreateGroup(ctx, ann, models.UserInput{Name: "Ann", Email: ann.Email}, nil, strPtr("Developers"))
	require.NoError(t, err)
	assert.Equal(t, "developers", g.Slug)
}

func TestSetGroupNameWithoutSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")

	_, err := env.groups.SetGroupName(ctx, ann, "Developers", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	devTeam(env, t, ann)
	renamed, err := env.groups.SetGroupName(ctx, ann, "Developers", nil)
	require.NoError(t, err)
	assert.Equal(t, "dev-team", renamed.Slug)

	devTeam(env, t, ann)
	var vErr validation.ValidationError
	_, err = env.groups.SetGroupName(ctx, ann, "Again", nil)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "slug", vErr.Field)
}

func TestSetGroupNameCreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")
	devTeam(env, t, ann)

	bob := env.login(t, "bob@example.com", "")
	_, err := env.groups.AcceptInvite(ctx, bob, "dev-team")
	require.NoError(t, err)

	_, err = env.groups.SetGroupName(ctx, bob, "Hijacked", strPtr("dev-team"))
	assert.ErrorIs(t, err, ErrUnauthorized, "members who did not create the group cannot rename it")

	_, err = env.groups.SetGroupName(ctx, nil, "Anon", strPtr("dev-team"))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGetGroupAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")
	devTeam(env, t, ann)

	group, err := env.groups.GetGroup(ctx, ann, "dev-team")
	require.NoError(t, err)
	assert.Equal(t, "dev-team", group.Slug)

	bob := env.login(t, "bob@example.com", "")
	_, err = env.groups.GetGroup(ctx, bob, "dev-team")
	assert.ErrorIs(t, err, ErrUnauthorized, "a pending invitee is not yet a member")

	eve := env.login(t, "eve@example.com", "Eve")
	_, err = env.groups.GetGroup(ctx, eve, "dev-team")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.groups.GetGroup(ctx, eve, "no-such-group")
	assert.ErrorIs(t, err, ErrUnauthorized, "unknown slugs look the same as forbidden ones")

	_, err = env.groups.GetGroup(ctx, nil, "dev-team")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAcceptInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")
	devTeam(env, t, ann)

	bob := env.login(t, "bob@example.com", "")
	group, err := env.groups.AcceptInvite(ctx, bob, "dev-team")
	require.NoError(t, err)

	members, err := env.store.Users.ListByGroup(ctx, group.ID)
	require.NoError(t, err)
	ids := []string{}
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{ann.UserID, bob.UserID}, ids)

	fetched, err := env.groups.GetGroup(ctx, bob, "dev-team")
	require.NoError(t, err)
	assert.Equal(t, group.ID, fetched.ID)

	_, err = env.groups.AcceptInvite(ctx, bob, "dev-team")
	assert.ErrorIs(t, err, ErrUnauthorized, "a consumed invite is never pending again")

	eve := env.login(t, "eve@example.com", "Eve")
	_, err = env.groups.AcceptInvite(ctx, eve, "dev-team")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetMatchDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ann := env.login(t, "ann@example.com", "Ann")
	devTeam(env, t, ann)

	match := env.clock.Now().AddDate(0, 2, 0)
	group, err := env.groups.SetMatchDate(ctx, ann, "dev-team", &match)
	require.NoError(t, err)
	require.NotNil(t, group.Options.MatchDate)

	stored, err := env.store.Groups.GetBySlug(ctx, "dev-team")
	require.NoError(t, err)
	require.NotNil(t, stored.Options.MatchDate)
	assert.True(t, match.Equal(*stored.Options.MatchDate))

	group, err = env.groups.SetMatchDate(ctx, ann, "dev-team", nil)
	require.NoError(t, err)
	assert.Nil(t, group.Options.MatchDate)

	bob := env.login(t, "bob@example.com", "")
	_, err = env.groups.SetMatchDate(ctx, bob, "dev-team", &match)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
