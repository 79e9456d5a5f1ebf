package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"givto/internal/credentials"
	"givto/internal/database"
	"givto/internal/models"
	"givto/internal/repository"
)

// recordingNotifier keeps every notification so tests can read issued codes
type recordingNotifier struct {
	mu      sync.Mutex
	codes   map[string][]string
	invites []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{codes: make(map[string][]string)}
}

func (n *recordingNotifier) LoginCodeIssued(ctx context.Context, email, code string, expiresAt time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[email] = append(n.codes[email], code)
}

func (n *recordingNotifier) InviteCreated(ctx context.Context, email, inviteeName, inviterName string, group *models.Group) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, email)
}

func (n *recordingNotifier) lastCode(t *testing.T, email string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	codes := n.codes[email]
	require.NotEmpty(t, codes, "no code issued for %s", email)
	return codes[len(codes)-1]
}

// testClock is a settable clock shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testEnv struct {
	store    *repository.Store
	auth     *AuthService
	groups   *GroupService
	maint    *MaintenanceService
	notifier *recordingNotifier
	clock    *testClock
}

const testCodeTTL = 15 * time.Minute

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithSlugAttempts(t, 25)
}

func newTestEnvWithSlugAttempts(t *testing.T, slugAttempts int) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(context.Background()))

	store := repository.NewStore(db)
	clock := &testClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	notifier := newRecordingNotifier()

	auth := NewAuthService(store, repository.NewLoginCodeRepository(db), credentials.NewCodeHasher("test-secret"), notifier, AuthOptions{
		CodeTTL: testCodeTTL,
		Now:     clock.Now,
	})
	groups := NewGroupService(store, NewGuard(store), notifier, GroupOptions{
		SlugMaxAttempts: slugAttempts,
		Now:             clock.Now,
	})

	return &testEnv{
		store:    store,
		auth:     auth,
		groups:   groups,
		maint:    NewMaintenanceService(store, auth, clock.Now),
		notifier: notifier,
		clock:    clock,
	}
}

// login issues and verifies a code for email, returning the bound identity
func (e *testEnv) login(t *testing.T, email, name string) *models.Identity {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.auth.IssueLoginCode(ctx, email, name))
	identity, err := e.auth.VerifyLoginCode(ctx, e.notifier.lastCode(t, email))
	require.NoError(t, err)
	return identity
}
