package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const profileColumns = `id, email, display_name, unique_id, is_anonymous, role, is_blocked,
	       token_prefix, token_hash, token_expires_at, avatar_url, created_at, updated_at`

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID, &p.Email, &p.DisplayName, &p.UniqueID, &p.IsAnonymous,
		&p.Role, &p.IsBlocked,
		&p.TokenPrefix, &p.TokenHash, &p.TokenExpiresAt,
		&p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new profile row. Returns ErrEmailTaken when the email is
// already registered, so callers can fall back to the update path.
func (r *PostgresRepository) Create(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO user_profiles
			(email, display_name, unique_id, is_anonymous, role,
			 token_prefix, token_hash, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_blocked, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.Email,
		p.DisplayName,
		p.UniqueID,
		p.IsAnonymous,
		p.Role,
		p.TokenPrefix,
		p.TokenHash,
		p.TokenExpiresAt,
	).Scan(&p.ID, &p.IsBlocked, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting profile: %w", err)
	}

	return nil
}

// GetByID retrieves a single profile by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying profile: %w", err)
	}

	return p, nil
}

// GetByEmail retrieves a single profile by its normalized email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE email = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying profile by email: %w", err)
	}

	return p, nil
}

// FindByTokenPrefix returns profiles whose stored token prefix matches.
func (r *PostgresRepository) FindByTokenPrefix(ctx context.Context, prefix string) ([]Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE token_prefix = $1`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("finding profiles by token prefix: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}

	return profiles, nil
}

// RotateToken overwrites a profile's token columns along with the anonymity
// flag and, when upd.DisplayName is non-nil, the display name. The previous
// token stops resolving the moment this commits.
func (r *PostgresRepository) RotateToken(ctx context.Context, id uuid.UUID, upd TokenUpdate) (*Profile, error) {
	query := `
		UPDATE user_profiles
		SET token_prefix = $2,
		    token_hash = $3,
		    token_expires_at = $4,
		    display_name = COALESCE($5, display_name),
		    is_anonymous = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns

	p, err := scanProfile(r.pool.QueryRow(ctx, query,
		id, upd.Prefix, upd.Hash, upd.ExpiresAt, upd.DisplayName, upd.IsAnonymous,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("rotating session token: %w", err)
	}

	return p, nil
}

// ClearToken removes a profile's token columns, revoking the live session.
func (r *PostgresRepository) ClearToken(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE user_profiles
		SET token_prefix = NULL, token_hash = NULL, token_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clearing session token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// SetBlocked updates a profile's moderation flag.
func (r *PostgresRepository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	query := `
		UPDATE user_profiles
		SET is_blocked = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, blocked)
	if err != nil {
		return fmt.Errorf("updating blocked flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// SetAvatarURL stores the public URL of a profile's uploaded avatar.
func (r *PostgresRepository) SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `
		UPDATE user_profiles
		SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("updating avatar URL: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}

// List retrieves all profiles ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profile rows: %w", err)
	}

	return profiles, nil
}
