package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrProfileNotFound is returned when no profile matches a lookup.
var ErrProfileNotFound = errors.New("profile not found")

// ErrEmailTaken is returned when an insert collides with an existing email.
var ErrEmailTaken = errors.New("email already registered")

// TokenUpdate carries the columns rewritten on every successful
// identification. A nil DisplayName leaves the stored name untouched.
type TokenUpdate struct {
	Prefix      string
	Hash        string
	ExpiresAt   time.Time
	DisplayName *string
	IsAnonymous bool
}

// Repository provides operations on the user_profiles table.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	FindByTokenPrefix(ctx context.Context, prefix string) ([]Profile, error)
	RotateToken(ctx context.Context, id uuid.UUID, upd TokenUpdate) (*Profile, error)
	ClearToken(ctx context.Context, id uuid.UUID) error
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
	SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error
	List(ctx context.Context) ([]Profile, error)
}
