package security

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"givto/internal/models"
)

func TestSessionSignerRoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	signer, err := NewSessionSigner("s3cret", time.Hour, func() time.Time { return now })
	require.NoError(t, err)

	token, expiresAt, err := signer.Issue(models.Identity{UserID: "user-1", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	identity, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "ann@example.com", identity.Email)
}

func TestSessionSignerRejects(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	clock := now
	signer, err := NewSessionSigner("s3cret", time.Hour, func() time.Time { return clock })
	require.NoError(t, err)

	token, _, err := signer.Issue(models.Identity{UserID: "user-1", Email: "ann@example.com"})
	require.NoError(t, err)

	other, err := NewSessionSigner("different", time.Hour, func() time.Time { return now })
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.True(t, errors.Is(err, ErrInvalidSession), "wrong key")

	_, err = signer.Parse("")
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = signer.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidSession)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss": "givto", "sub": "user-1", "email": "ann@example.com", "exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = signer.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidSession, "unsigned tokens are refused")

	clock = now.Add(2 * time.Hour)
	_, err = signer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession, "expired")
}

func TestNewSessionSignerValidates(t *testing.T) {
	_, err := NewSessionSigner("", time.Hour, nil)
	assert.Error(t, err)
	_, err = NewSessionSigner("x", 0, nil)
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute, func() time.Time { return now })

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"), "third request in window is refused")
	assert.True(t, rl.Allow("5.6.7.8"), "other clients have their own bucket")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"), "bucket refills after the window")

	now = now.Add(5 * time.Minute)
	rl.sweep()
	rl.mu.Lock()
	assert.Empty(t, rl.visitors)
	rl.mu.Unlock()
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "10.0.0.1:5555", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.3"}, "10.0.0.1:5555", "198.51.100.3"},
		{"no port", nil, "10.0.0.9", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/graphql", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}
