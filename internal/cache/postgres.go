package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// farFuture stands in for "never expires" so expires_at stays NOT NULL.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// PostgresStore keeps entries in the analysis_cache table.
type PostgresStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func (p *PostgresStore) Name() string { return "postgres" }

func (p *PostgresStore) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `
SELECT payload
FROM analysis_cache
WHERE cache_key = $1 AND expires_at > $2`
	var payload []byte
	err := p.DB.QueryRowContext(ctx, query, key, p.now()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select analysis_cache: %w", err)
	}
	return payload, true, nil
}

func (p *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const query = `
INSERT INTO analysis_cache (cache_key, payload, created_at, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cache_key) DO UPDATE
SET payload = EXCLUDED.payload,
    created_at = EXCLUDED.created_at,
    expires_at = EXCLUDED.expires_at`
	now := p.now()
	expiresAt := farFuture
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	if _, err := p.DB.ExecContext(ctx, query, key, value, now, expiresAt); err != nil {
		return fmt.Errorf("upsert analysis_cache: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed and returns how many went.
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM analysis_cache WHERE expires_at <= $1`, p.now())
	if err != nil {
		return 0, fmt.Errorf("purge analysis_cache: %w", err)
	}
	return res.RowsAffected()
}

var _ Store = (*PostgresStore)(nil)
