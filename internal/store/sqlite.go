package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id         TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	niche_id   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS search_listings (
	search_id  TEXT NOT NULL REFERENCES searches(id),
	arrival    INTEGER NOT NULL,
	place_key  TEXT NOT NULL DEFAULT '',
	listing    TEXT NOT NULL,
	PRIMARY KEY (search_id, arrival)
);

CREATE TABLE IF NOT EXISTS search_verdicts (
	search_id  TEXT NOT NULL REFERENCES searches(id),
	place_key  TEXT NOT NULL,
	verdict    TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (search_id, place_key)
);

CREATE TABLE IF NOT EXISTS enrichment_cache (
	place_key  TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	checked_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_enrichment_cache_expires_at ON enrichment_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSearch(ctx context.Context, id, query, location, nicheID string) (*Search, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, location, niche_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, query, location, nicheID, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert search")
	}
	return &Search{ID: id, Query: query, Location: location, NicheID: nicheID, CreatedAt: now}, nil
}

func (s *SQLiteStore) ListSearches(ctx context.Context, limit int) ([]Search, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, location, niche_id, created_at FROM searches ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close() //nolint:errcheck

	var out []Search
	for rows.Next() {
		var srch Search
		if err := rows.Scan(&srch.ID, &srch.Query, &srch.Location, &srch.NicheID, &srch.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		out = append(out, srch)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate searches")
}

func (s *SQLiteStore) SaveListings(ctx context.Context, searchID string, offset int, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin listings tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for i, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal listing")
		}
		key, _ := l.Key()
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO search_listings (search_id, arrival, place_key, listing) VALUES (?, ?, ?, ?)`,
			searchID, offset+i, key, string(data),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert listing %d", offset+i)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit listings")
}

func (s *SQLiteStore) SaveVerdicts(ctx context.Context, searchID string, verdicts map[string]model.AIVerdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin verdicts tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for key, v := range verdicts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO search_verdicts (search_id, place_key, verdict, reason, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (search_id, place_key) DO UPDATE SET verdict = excluded.verdict, reason = excluded.reason, created_at = excluded.created_at`,
			searchID, key, string(v.Verdict), v.Reason, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert verdict %s", key)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit verdicts")
}

func (s *SQLiteStore) GetEnrichment(ctx context.Context, key string) (*model.EnrichmentRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM enrichment_cache WHERE place_key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get enrichment")
	}

	var rec model.EnrichmentRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal enrichment")
	}
	return &rec, nil
}

func (s *SQLiteStore) SaveEnrichment(ctx context.Context, key string, rec model.EnrichmentRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO enrichment_cache (place_key, record, checked_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (place_key) DO UPDATE SET record = excluded.record, checked_at = excluded.checked_at, expires_at = excluded.expires_at`,
		key, string(data), rec.LastDataCheck.UTC(), now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: save enrichment")
}

func (s *SQLiteStore) DeleteExpiredEnrichment(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM enrichment_cache WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired enrichment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}
