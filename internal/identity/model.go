package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable to a profile. The identity core consumes roles but never
// promotes them; role changes happen out of band.
const (
	RoleUser     = "user"
	RoleCoreTeam = "core_team"
	RoleAdmin    = "admin"
)

// Profile represents a row in the user_profiles table.
//
// The raw session token is never stored. The row keeps the token's first
// eight characters for candidate lookup and a bcrypt hash for verification,
// plus the expiry checked at resolution time.
type Profile struct {
	ID             uuid.UUID
	Email          string
	DisplayName    *string
	UniqueID       *string
	IsAnonymous    bool
	Role           string
	IsBlocked      bool
	TokenPrefix    *string
	TokenHash      *string
	TokenExpiresAt *time.Time
	AvatarURL      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
