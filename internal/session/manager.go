package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yourvoice/identity/internal/identity"
)

// Directory issues and resolves session tokens. Implemented by
// *identity.Service; tests substitute in-memory doubles.
type Directory interface {
	Identify(ctx context.Context, email, displayName string, isAnonymous bool) (*identity.Profile, string, error)
	ResolveToken(ctx context.Context, token string) (*identity.Profile, error)
}

// ErrIdentityRequired is returned by WithIdentity when no profile is cached.
// The wrapped action runs once after the next successful Identify.
var ErrIdentityRequired = errors.New("identification required")

const anonymousLabel = "Anonymous"

// Manager owns the client-held session state: the persisted token slot, the
// cached profile, and the identification gate that write actions consult.
// It is safe for concurrent use; the token-store write and the cache
// replacement always commit together under the manager's lock.
type Manager struct {
	dir   Directory
	store TokenStore

	mu               sync.Mutex
	profile          *identity.Profile
	loading          bool
	requiresIdentity bool
	pending          func()

	identifyGroup singleflight.Group
}

// NewManager creates a Manager. The profile is unresolved until the first
// CheckSession call; Loading reports true until then.
func NewManager(dir Directory, store TokenStore) *Manager {
	return &Manager{dir: dir, store: store, loading: true}
}

// CheckSession rehydrates the cached profile from the stored token. Every
// failure path degrades to a signed-out state; this method never returns an
// error. A token the directory no longer recognizes is purged from the slot
// so later starts skip the dead lookup.
func (m *Manager) CheckSession(ctx context.Context) {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	token, err := m.store.Load()
	if err != nil {
		slog.Warn("session slot unreadable, treating as signed out", "error", err)
		m.setProfile(nil)
		return
	}
	if token == "" {
		m.setProfile(nil)
		return
	}

	p, err := m.dir.ResolveToken(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			if clearErr := m.store.Clear(); clearErr != nil {
				slog.Warn("failed to purge stale session token", "error", clearErr)
			}
		} else {
			slog.Warn("session rehydration failed", "error", err)
		}
		m.setProfile(nil)
		return
	}

	m.setProfile(p)
}

// RefreshProfile re-runs rehydration against the stored token.
func (m *Manager) RefreshProfile(ctx context.Context) {
	m.CheckSession(ctx)
}

type identifyResult struct {
	profile *identity.Profile
	token   string
}

// Identify obtains or refreshes the profile for the given email and commits
// the new token and profile atomically. Concurrent calls for the same
// normalized email join a single in-flight request. On success the
// identification gate clears and any action deferred by WithIdentity runs.
// On failure the previous profile and token remain authoritative.
func (m *Manager) Identify(ctx context.Context, email, displayName string, isAnonymous bool) (*identity.Profile, error) {
	key := identity.NormalizeEmail(email)

	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	v, err, _ := m.identifyGroup.Do(key, func() (any, error) {
		p, token, err := m.dir.Identify(ctx, email, displayName, isAnonymous)
		if err != nil {
			return nil, err
		}
		return identifyResult{profile: p, token: token}, nil
	})
	if err != nil {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
		return nil, err
	}
	res := v.(identifyResult)

	m.mu.Lock()
	if err := m.store.Save(res.token); err != nil {
		m.loading = false
		m.mu.Unlock()
		return nil, fmt.Errorf("persisting session token: %w", err)
	}
	m.profile = res.profile
	m.loading = false
	m.requiresIdentity = false
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	if pending != nil {
		pending()
	}

	return res.profile, nil
}

// RequestIdentity raises the identification gate. No backend traffic.
func (m *Manager) RequestIdentity() {
	m.mu.Lock()
	m.requiresIdentity = true
	m.mu.Unlock()
}

// CancelIdentityRequest lowers the gate and drops any deferred action.
// No backend traffic.
func (m *Manager) CancelIdentityRequest() {
	m.mu.Lock()
	m.requiresIdentity = false
	m.pending = nil
	m.mu.Unlock()
}

// ClearSession signs out locally: the token slot, the cached profile, and
// the gate are all cleared. The server-side session is untouched; use
// Directory revocation for that.
func (m *Manager) ClearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		slog.Warn("failed to clear session token", "error", err)
	}
	m.profile = nil
	m.requiresIdentity = false
	m.pending = nil
}

// WithIdentity runs fn immediately when a profile is cached. Otherwise it
// raises the gate, remembers fn, and returns ErrIdentityRequired; the next
// successful Identify replays fn once. CancelIdentityRequest discards it.
func (m *Manager) WithIdentity(fn func()) error {
	m.mu.Lock()
	if m.profile != nil {
		m.mu.Unlock()
		fn()
		return nil
	}
	m.requiresIdentity = true
	m.pending = fn
	m.mu.Unlock()
	return ErrIdentityRequired
}

// Profile returns the cached profile, or nil when signed out.
func (m *Manager) Profile() *identity.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// IsIdentified reports whether a profile is cached.
func (m *Manager) IsIdentified() bool {
	return m.Profile() != nil
}

// Loading reports whether a rehydration or identification is resolving.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// RequiresIdentity reports whether the identification gate is raised.
func (m *Manager) RequiresIdentity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requiresIdentity
}

// DisplayName returns the label shown alongside content the user creates.
// Signed out: "Anonymous". Anonymous profiles show the public handle, then
// the display name, then "Anonymous", never the email. Non-anonymous
// profiles show the display name, then the handle, then the email's
// local-part as a last resort.
func (m *Manager) DisplayName() string {
	p := m.Profile()
	if p == nil {
		return anonymousLabel
	}

	if p.IsAnonymous {
		if v := deref(p.UniqueID); v != "" {
			return v
		}
		if v := deref(p.DisplayName); v != "" {
			return v
		}
		return anonymousLabel
	}

	if v := deref(p.DisplayName); v != "" {
		return v
	}
	if v := deref(p.UniqueID); v != "" {
		return v
	}
	if at := strings.Index(p.Email, "@"); at > 0 {
		return p.Email[:at]
	}
	return p.Email
}

// UserID returns the profile's public handle, or empty when there is none.
// It is never derived from the row id or the email.
func (m *Manager) UserID() string {
	p := m.Profile()
	if p == nil {
		return ""
	}
	return deref(p.UniqueID)
}

func (m *Manager) setProfile(p *identity.Profile) {
	m.mu.Lock()
	m.profile = p
	m.loading = false
	m.mu.Unlock()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
