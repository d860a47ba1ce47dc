package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned when a session token does not resolve to a
// live, unexpired session.
var ErrInvalidToken = errors.New("invalid or expired session token")

const (
	tokenBytes  = 32
	prefixChars = 8
)

// Service provides identification and session-token operations.
type Service struct {
	repo       Repository
	bcryptCost int
	sessionTTL time.Duration
}

// NewService creates a new identity Service.
func NewService(repo Repository, bcryptCost int, sessionTTL time.Duration) *Service {
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
	}
}

// NormalizeEmail applies the canonical form used for every lookup and write:
// surrounding whitespace stripped, then lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateToken mints a session token: 32 random bytes, hex-encoded to a
// 64-character string. Returns the raw token, its prefix (first 8 chars),
// and the bcrypt hash; only the prefix and hash are persisted.
func (s *Service) GenerateToken() (raw, prefix, hash string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	raw = hex.EncodeToString(b)
	prefix = raw[:prefixChars]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(raw), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing token: %w", err)
	}
	hash = string(hashBytes)

	return raw, prefix, hash, nil
}

// Identify creates or refreshes the profile for the given email and issues a
// fresh session token, invalidating any previously issued one. A non-empty
// displayName overwrites the stored name; an empty one leaves it as-is.
// Returns the profile and the raw token, which is never stored server-side.
func (s *Service) Identify(ctx context.Context, email, displayName string, isAnonymous bool) (*Profile, string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, "", errors.New("email is required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, "", fmt.Errorf("looking up profile: %w", err)
	}

	if existing != nil {
		return s.refresh(ctx, existing, displayName, isAnonymous)
	}

	raw, prefix, hash, err := s.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	uniqueID, err := newUniqueID()
	if err != nil {
		return nil, "", err
	}

	expiresAt := time.Now().Add(s.sessionTTL)
	p := &Profile{
		Email:          email,
		DisplayName:    optional(displayName),
		UniqueID:       &uniqueID,
		IsAnonymous:    isAnonymous,
		Role:           RoleUser,
		TokenPrefix:    &prefix,
		TokenHash:      &hash,
		TokenExpiresAt: &expiresAt,
	}

	err = s.repo.Create(ctx, p)
	if errors.Is(err, ErrEmailTaken) {
		// Lost a first-identification race; the row exists now, so take
		// the update path against it.
		existing, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, "", fmt.Errorf("fetching profile after insert conflict: %w", err)
		}
		return s.refresh(ctx, existing, displayName, isAnonymous)
	}
	if err != nil {
		return nil, "", fmt.Errorf("creating profile: %w", err)
	}

	return p, raw, nil
}

// refresh rotates the token on an existing profile.
func (s *Service) refresh(ctx context.Context, p *Profile, displayName string, isAnonymous bool) (*Profile, string, error) {
	raw, prefix, hash, err := s.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	updated, err := s.repo.RotateToken(ctx, p.ID, TokenUpdate{
		Prefix:      prefix,
		Hash:        hash,
		ExpiresAt:   time.Now().Add(s.sessionTTL),
		DisplayName: optional(displayName),
		IsAnonymous: isAnonymous,
	})
	if err != nil {
		return nil, "", fmt.Errorf("refreshing profile: %w", err)
	}

	return updated, raw, nil
}

// ResolveToken resolves a raw session token to its profile. It extracts the
// prefix, looks up candidates, bcrypt-compares each one, and rejects expired
// sessions. All misses resolve to ErrInvalidToken.
func (s *Service) ResolveToken(ctx context.Context, raw string) (*Profile, error) {
	if len(raw) < prefixChars {
		return nil, ErrInvalidToken
	}

	candidates, err := s.repo.FindByTokenPrefix(ctx, raw[:prefixChars])
	if err != nil {
		return nil, fmt.Errorf("finding profiles by token prefix: %w", err)
	}

	now := time.Now()
	for i := range candidates {
		p := &candidates[i]
		if p.TokenHash == nil {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(*p.TokenHash), []byte(raw)) != nil {
			continue
		}
		if p.TokenExpiresAt != nil && now.After(*p.TokenExpiresAt) {
			return nil, ErrInvalidToken
		}
		return p, nil
	}

	return nil, ErrInvalidToken
}

// Revoke invalidates the presented token server-side by clearing the
// profile's token columns.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	p, err := s.ResolveToken(ctx, raw)
	if err != nil {
		return err
	}
	return s.repo.ClearToken(ctx, p.ID)
}

// newUniqueID assigns the public handle shown in place of the email.
func newUniqueID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating unique id: %w", err)
	}
	return "voice_" + hex.EncodeToString(b), nil
}

// optional maps an empty or whitespace-only string to nil.
func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
