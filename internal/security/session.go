package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"givto/internal/models"
)

const sessionIssuer = "givto"

// ErrInvalidSession is returned for any token that cannot be trusted
var ErrInvalidSession = errors.New("invalid session token")

// SessionSigner issues and verifies HS256 session tokens that carry an Identity
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// NewSessionSigner creates a signer. now may be nil to use the wall clock.
func NewSessionSigner(secret string, ttl time.Duration, now func() time.Time) (*SessionSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session lifetime must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &SessionSigner{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// GenerateSessionID creates a new UUID for session identification
func GenerateSessionID() string {
	return uuid.New().String()
}

// Issue signs a token for identity and returns it with its expiry
func (s *SessionSigner) Issue(identity models.Identity) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   identity.UserID,
			ID:        GenerateSessionID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: identity.Email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse verifies a token and returns the identity it carries
func (s *SessionSigner) Parse(token string) (*models.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidSession
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidSession
	}

	return &models.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
