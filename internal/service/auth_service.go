package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"givto/internal/credentials"
	"givto/internal/models"
	"givto/internal/repository"
	"givto/internal/validation"
)

// AuthService handles passwordless login: it issues and verifies login codes
// and binds verified codes to a user identity
type AuthService struct {
	store    *repository.Store
	codes    repository.LoginCodeStore
	hasher   *credentials.CodeHasher
	notifier Notifier
	codeTTL  time.Duration
	now      func() time.Time
	debug    bool
}

// AuthOptions configures an AuthService
type AuthOptions struct {
	CodeTTL time.Duration
	// Now overrides the clock; nil means time.Now
	Now   func() time.Time
	Debug bool
}

// NewAuthService creates a new auth service
func NewAuthService(store *repository.Store, codes repository.LoginCodeStore, hasher *credentials.CodeHasher, notifier Notifier, opts AuthOptions) *AuthService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		store:    store,
		codes:    codes,
		hasher:   hasher,
		notifier: notifier,
		codeTTL:  opts.CodeTTL,
		now:      now,
		debug:    opts.Debug,
	}
}

// IssueLoginCode creates a code for email, replacing any earlier code for the
// same address, and hands it to the notifier. The outcome is the same whether
// or not an account exists for the email.
func (s *AuthService) IssueLoginCode(ctx context.Context, email, name string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	email = validation.NormalizeEmail(email)

	name = strings.TrimSpace(name)
	if name != "" {
		if err := validation.ValidateName(name); err != nil {
			return err
		}
	}

	code, err := credentials.GenerateLoginCode()
	if err != nil {
		return err
	}

	now := s.now()
	record := &models.LoginCode{
		Email:     email,
		CodeHash:  s.hasher.Hash(code),
		Name:      name,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}
	if err := s.codes.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to issue login code: %w", err)
	}

	if s.debug {
		log.Printf("[DEBUG] Login code issued for %s, expires %s", email, record.ExpiresAt.Format(time.RFC3339))
	}

	s.notifier.LoginCodeIssued(ctx, email, code, record.ExpiresAt)
	return nil
}

// VerifyLoginCode consumes a code and returns the identity of its owner,
// creating the user on first login. Unknown, consumed and expired codes all
// fail with ErrInvalidCode.
func (s *AuthService) VerifyLoginCode(ctx context.Context, input string) (*models.Identity, error) {
	code := credentials.NormalizeLoginCode(input)
	if !credentials.IsWellFormedLoginCode(code) {
		return nil, ErrInvalidCode
	}
	codeHash := s.hasher.Hash(code)

	record, err := s.codes.GetByHash(ctx, codeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up login code: %w", err)
	}
	if record == nil {
		return nil, ErrInvalidCode
	}

	now := s.now()
	if record.IsExpiredAt(now) {
		if _, err := s.codes.Consume(ctx, codeHash); err != nil {
			log.Printf("Failed to delete expired login code: %v", err)
		}
		return nil, ErrInvalidCode
	}

	consumed, err := s.codes.Consume(ctx, codeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to consume login code: %w", err)
	}
	if !consumed {
		// another verification won the race
		return nil, ErrInvalidCode
	}

	var user *models.User
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		user, err = tx.Users.EnsureByEmail(ctx, record.Email, record.Name, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user for login code: %w", err)
	}

	if s.debug {
		log.Printf("[DEBUG] Login code verified for user %s", user.ID)
	}
	return &models.Identity{UserID: user.ID, Email: user.Email}, nil
}

// LookupLoginCode returns the pending code matching input, or nil when the
// code is unknown, consumed or expired. It never consumes the code.
func (s *AuthService) LookupLoginCode(ctx context.Context, input string) (*models.LoginCode, error) {
	code := credentials.NormalizeLoginCode(input)
	if !credentials.IsWellFormedLoginCode(code) {
		return nil, nil
	}

	record, err := s.codes.GetByHash(ctx, s.hasher.Hash(code))
	if err != nil {
		return nil, fmt.Errorf("failed to look up login code: %w", err)
	}
	if record == nil || record.IsExpiredAt(s.now()) {
		return nil, nil
	}
	return record, nil
}

// CurrentUser resolves an identity to its user record. It returns nil for a
// missing identity or one whose user no longer matches.
func (s *AuthService) CurrentUser(ctx context.Context, identity *models.Identity) (*models.User, error) {
	if identity == nil {
		return nil, nil
	}
	user, err := s.store.Users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Email != identity.Email {
		return nil, nil
	}
	return user, nil
}

// PurgeExpiredCodes deletes codes that can no longer be verified
func (s *AuthService) PurgeExpiredCodes(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("Purged %d expired login codes", n)
	}
	return n, nil
}
