package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/gatepass/gatepass/internal/model"
)

// Postgres is the persistent backend. It implements the same Store
// interfaces as Memory over three tables; see schema.sql.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store with a connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// UpsertUser creates or replaces the record for user.Identity.
func (p *Postgres) UpsertUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			identity, id, name, username, avatar_url, followers,
			profile_created_at, verified, access_token, refresh_token,
			token_expires_at, eligible, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (identity) DO UPDATE SET
			name = EXCLUDED.name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			followers = EXCLUDED.followers,
			profile_created_at = EXCLUDED.profile_created_at,
			verified = EXCLUDED.verified,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			eligible = EXCLUDED.eligible,
			updated_at = EXCLUDED.updated_at
	`

	_, err := p.pool.Exec(ctx, query,
		user.Identity,
		user.ID,
		user.Profile.Name,
		user.Profile.Username,
		user.Profile.AvatarURL,
		user.Profile.Followers,
		user.Profile.CreatedAt,
		user.Profile.Verified,
		user.Tokens.AccessToken,
		user.Tokens.RefreshToken,
		user.Tokens.ExpiresAt,
		user.Eligible,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// GetUser retrieves the record for an identity.
func (p *Postgres) GetUser(ctx context.Context, identity string) (*model.User, error) {
	query := `
		SELECT identity, id, name, username, avatar_url, followers,
		       profile_created_at, verified, access_token, refresh_token,
		       token_expires_at, eligible, created_at, updated_at
		FROM users
		WHERE identity = $1
	`

	var user model.User
	err := p.pool.QueryRow(ctx, query, identity).Scan(
		&user.Identity,
		&user.ID,
		&user.Profile.Name,
		&user.Profile.Username,
		&user.Profile.AvatarURL,
		&user.Profile.Followers,
		&user.Profile.CreatedAt,
		&user.Profile.Verified,
		&user.Tokens.AccessToken,
		&user.Tokens.RefreshToken,
		&user.Tokens.ExpiresAt,
		&user.Eligible,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// CreateClaim records a claim, failing if one already exists.
func (p *Postgres) CreateClaim(ctx context.Context, claim *model.Claim) error {
	query := `
		INSERT INTO claims (identity, claimed_at)
		VALUES ($1, $2)
		ON CONFLICT (identity) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query, claim.Identity, claim.ClaimedAt)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimExists
	}

	return nil
}

// GetClaim retrieves the claim for an identity.
func (p *Postgres) GetClaim(ctx context.Context, identity string) (*model.Claim, error) {
	query := `
		SELECT identity, claimed_at
		FROM claims
		WHERE identity = $1
	`

	var claim model.Claim
	err := p.pool.QueryRow(ctx, query, identity).Scan(&claim.Identity, &claim.ClaimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}

	return &claim, nil
}

// GetBundle retrieves the bundle for an identity.
func (p *Postgres) GetBundle(ctx context.Context, identity string) (*model.InviteBundle, error) {
	query := `
		SELECT identity, restricted_codes, restricted_used, restricted_limit,
		       restricted_expires_at, open_code, open_used, open_limit,
		       open_expires_at, created_at, updated_at
		FROM invite_bundles
		WHERE identity = $1
	`

	var (
		bundle            model.InviteBundle
		codes             []string
		used              []int64
		restrictedLimit   int
		restrictedExpires time.Time
	)
	err := p.pool.QueryRow(ctx, query, identity).Scan(
		&bundle.Identity,
		pq.Array(&codes),
		pq.Array(&used),
		&restrictedLimit,
		&restrictedExpires,
		&bundle.Open.Code,
		&bundle.Open.Used,
		&bundle.Open.Limit,
		&bundle.Open.ExpiresAt,
		&bundle.CreatedAt,
		&bundle.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBundleNotFound
		}
		return nil, fmt.Errorf("failed to get bundle: %w", err)
	}

	bundle.Restricted = make([]model.InviteCode, 0, len(codes))
	for i, code := range codes {
		u := 0
		if i < len(used) {
			u = int(used[i])
		}
		bundle.Restricted = append(bundle.Restricted, model.InviteCode{
			Code:      code,
			Used:      u,
			Limit:     restrictedLimit,
			ExpiresAt: restrictedExpires,
		})
	}

	return &bundle, nil
}

// PutBundle creates or wholly replaces the bundle for its identity.
// Replacing the row drops the previous codes, which makes them
// unresolvable.
func (p *Postgres) PutBundle(ctx context.Context, bundle *model.InviteBundle) error {
	if len(bundle.Restricted) == 0 {
		return errors.New("bundle must carry restricted codes")
	}

	codes := make([]string, len(bundle.Restricted))
	used := make([]int64, len(bundle.Restricted))
	for i, c := range bundle.Restricted {
		codes[i] = c.Code
		used[i] = int64(c.Used)
	}

	query := `
		INSERT INTO invite_bundles (
			identity, restricted_codes, restricted_used, restricted_limit,
			restricted_expires_at, open_code, open_used, open_limit,
			open_expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (identity) DO UPDATE SET
			restricted_codes = EXCLUDED.restricted_codes,
			restricted_used = EXCLUDED.restricted_used,
			restricted_limit = EXCLUDED.restricted_limit,
			restricted_expires_at = EXCLUDED.restricted_expires_at,
			open_code = EXCLUDED.open_code,
			open_used = EXCLUDED.open_used,
			open_limit = EXCLUDED.open_limit,
			open_expires_at = EXCLUDED.open_expires_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := p.pool.Exec(ctx, query,
		bundle.Identity,
		pq.Array(codes),
		pq.Array(used),
		bundle.Restricted[0].Limit,
		bundle.Restricted[0].ExpiresAt,
		bundle.Open.Code,
		bundle.Open.Used,
		bundle.Open.Limit,
		bundle.Open.ExpiresAt,
		bundle.CreatedAt,
		bundle.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put bundle: %w", err)
	}

	return nil
}

// CodeExists reports whether code is present in any bundle.
func (p *Postgres) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM invite_bundles
			WHERE open_code = $1 OR $1 = ANY (restricted_codes)
		)
	`

	var exists bool
	if err := p.pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}

	return exists, nil
}

// RedeemCode increments a code's usage with a conditional UPDATE, so
// the expiry and limit checks happen atomically in the database.
func (p *Postgres) RedeemCode(ctx context.Context, code string, now time.Time) (*Redemption, error) {
	// Open codes first: single indexed column, most redemptions.
	openQuery := `
		UPDATE invite_bundles
		SET open_used = open_used + 1, updated_at = $2
		WHERE open_code = $1 AND open_expires_at > $2 AND open_used < open_limit
		RETURNING identity, open_used, open_limit
	`

	var redemption Redemption
	err := p.pool.QueryRow(ctx, openQuery, code, now).Scan(
		&redemption.Owner, &redemption.Used, &redemption.Limit,
	)
	if err == nil {
		redemption.Category = model.CategoryOpen
		return &redemption, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to redeem open code: %w", err)
	}

	restrictedQuery := `
		UPDATE invite_bundles
		SET restricted_used[array_position(restricted_codes, $1)] =
		        restricted_used[array_position(restricted_codes, $1)] + 1,
		    updated_at = $2
		WHERE $1 = ANY (restricted_codes)
		  AND restricted_expires_at > $2
		  AND restricted_used[array_position(restricted_codes, $1)] < restricted_limit
		RETURNING identity,
		          restricted_used[array_position(restricted_codes, $1)],
		          restricted_limit
	`

	err = p.pool.QueryRow(ctx, restrictedQuery, code, now).Scan(
		&redemption.Owner, &redemption.Used, &redemption.Limit,
	)
	if err == nil {
		redemption.Category = model.CategoryRestricted
		return &redemption, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to redeem restricted code: %w", err)
	}

	return nil, p.diagnoseRedeemFailure(ctx, code, now)
}

// diagnoseRedeemFailure distinguishes not-found, expired and
// exhausted after a conditional redeem matched no rows.
func (p *Postgres) diagnoseRedeemFailure(ctx context.Context, code string, now time.Time) error {
	query := `
		SELECT CASE WHEN open_code = $1 THEN open_expires_at
		            ELSE restricted_expires_at END,
		       CASE WHEN open_code = $1 THEN open_used
		            ELSE restricted_used[array_position(restricted_codes, $1)] END,
		       CASE WHEN open_code = $1 THEN open_limit
		            ELSE restricted_limit END
		FROM invite_bundles
		WHERE open_code = $1 OR $1 = ANY (restricted_codes)
	`

	var (
		expiresAt   time.Time
		used, limit int
	)
	err := p.pool.QueryRow(ctx, query, code).Scan(&expiresAt, &used, &limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("failed to inspect code: %w", err)
	}

	if !now.Before(expiresAt) {
		return ErrCodeExpired
	}
	if used >= limit {
		return ErrCodeExhausted
	}

	// The code became redeemable between the UPDATE and this SELECT.
	return ErrCodeNotFound
}
