package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock
// implements it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 5
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	niche_id   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_listings (
	search_id  TEXT NOT NULL REFERENCES searches(id),
	arrival    INTEGER NOT NULL,
	place_key  TEXT NOT NULL DEFAULT '',
	listing    JSONB NOT NULL,
	PRIMARY KEY (search_id, arrival)
);

CREATE TABLE IF NOT EXISTS search_verdicts (
	search_id  TEXT NOT NULL REFERENCES searches(id),
	place_key  TEXT NOT NULL,
	verdict    TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (search_id, place_key)
);

CREATE TABLE IF NOT EXISTS enrichment_cache (
	place_key  TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	checked_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_enrichment_cache_expires_at ON enrichment_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSearch(ctx context.Context, id, query, location, nicheID string) (*Search, error) {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO searches (id, query, location, niche_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, query, location, nicheID, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert search")
	}
	return &Search{ID: id, Query: query, Location: location, NicheID: nicheID, CreatedAt: now}, nil
}

func (s *PostgresStore) ListSearches(ctx context.Context, limit int) ([]Search, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, location, niche_id, created_at FROM searches ORDER BY created_at DESC, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	var out []Search
	for rows.Next() {
		var srch Search
		if err := rows.Scan(&srch.ID, &srch.Query, &srch.Location, &srch.NicheID, &srch.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		out = append(out, srch)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate searches")
}

func (s *PostgresStore) SaveListings(ctx context.Context, searchID string, offset int, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin listings tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal listing")
		}
		key, _ := l.Key()
		if _, err := tx.Exec(ctx,
			`INSERT INTO search_listings (search_id, arrival, place_key, listing) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (search_id, arrival) DO UPDATE SET place_key = EXCLUDED.place_key, listing = EXCLUDED.listing`,
			searchID, offset+i, key, data,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert listing %d", offset+i)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit listings")
}

func (s *PostgresStore) SaveVerdicts(ctx context.Context, searchID string, verdicts map[string]model.AIVerdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin verdicts tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for key, v := range verdicts {
		if _, err := tx.Exec(ctx,
			`INSERT INTO search_verdicts (search_id, place_key, verdict, reason, created_at) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (search_id, place_key) DO UPDATE SET verdict = EXCLUDED.verdict, reason = EXCLUDED.reason, created_at = EXCLUDED.created_at`,
			searchID, key, string(v.Verdict), v.Reason, now,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert verdict %s", key)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit verdicts")
}

func (s *PostgresStore) GetEnrichment(ctx context.Context, key string) (*model.EnrichmentRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM enrichment_cache WHERE place_key = $1 AND expires_at > now()`,
		key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get enrichment")
	}

	var rec model.EnrichmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal enrichment")
	}
	return &rec, nil
}

func (s *PostgresStore) SaveEnrichment(ctx context.Context, key string, rec model.EnrichmentRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO enrichment_cache (place_key, record, checked_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (place_key) DO UPDATE SET record = EXCLUDED.record, checked_at = EXCLUDED.checked_at, expires_at = EXCLUDED.expires_at`,
		key, data, rec.LastDataCheck.UTC(), time.Now().UTC().Add(ttl),
	)
	return eris.Wrap(err, "postgres: save enrichment")
}

func (s *PostgresStore) DeleteExpiredEnrichment(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM enrichment_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired enrichment")
	}
	return int(tag.RowsAffected()), nil
}
