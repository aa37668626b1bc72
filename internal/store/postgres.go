package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/hacost/leads/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	name         TEXT NOT NULL,
	zone         TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT 'unknown',
	email        TEXT NOT NULL DEFAULT 'unknown',
	address      TEXT NOT NULL DEFAULT 'unknown',
	website      TEXT NOT NULL DEFAULT 'unknown',
	source       TEXT NOT NULL DEFAULT '',
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	source_url   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (name, zone)
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL,
	zones          TEXT NOT NULL,
	categories     TEXT NOT NULL,
	fresh          INTEGER NOT NULL DEFAULT 0,
	cached         INTEGER NOT NULL DEFAULT 0,
	duplicates     INTEGER NOT NULL DEFAULT 0,
	closed_skipped INTEGER NOT NULL DEFAULT 0,
	discarded      INTEGER NOT NULL DEFAULT 0,
	pending        INTEGER NOT NULL DEFAULT 0,
	micro          INTEGER NOT NULL DEFAULT 0,
	corporate      INTEGER NOT NULL DEFAULT 0,
	new_rows       INTEGER NOT NULL DEFAULT 0,
	failed_pairs   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) LoadLeads(ctx context.Context) ([]model.LeadRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load leads")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) InsertLead(ctx context.Context, rec model.LeadRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (name, zone) DO NOTHING`,
		rec.Name, rec.Zone, rec.Phone, rec.Email, rec.Address, rec.Website,
		rec.Source, rec.Rating, rec.ReviewCount, rec.SourceURL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert lead %q", rec.Name)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) PendingLeads(ctx context.Context) ([]model.LeadRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = $1 ORDER BY name`,
		model.Unknown,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: pending leads")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *PostgresStore) UpdateContact(ctx context.Context, key model.LeadKey, phone, email, source string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET phone = $1, email = $2, source = $3 WHERE name = $4 AND zone = $5`,
		phone, email, source, key.Name, key.Zone,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact %q", key.Name)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s / %s", key.Name, key.Zone)
	}
	return nil
}

func (s *PostgresStore) CountLeads(ctx context.Context) (int, int, error) {
	var total, pending int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN phone = $1 THEN 1 ELSE 0 END), 0) FROM leads`,
		model.Unknown,
	).Scan(&total, &pending)
	if err != nil {
		return 0, 0, eris.Wrap(err, "postgres: count leads")
	}
	return total, pending, nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, summary model.RunSummary) error {
	id := summary.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, started_at, finished_at, zones, categories,
		 fresh, cached, duplicates, closed_skipped, discarded, pending, micro, corporate, new_rows, failed_pairs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, summary.StartedAt.UTC(), summary.FinishedAt.UTC(),
		strings.Join(summary.Zones, ";"), strings.Join(summary.Categories, ";"),
		summary.Fresh, summary.Cached, summary.Duplicates, summary.ClosedSkipped,
		summary.Discarded, summary.Pending, summary.Micro, summary.Corporate,
		summary.NewRows, summary.FailedPairs,
	)
	return eris.Wrap(err, "postgres: record run")
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, started_at, finished_at, zones, categories,
		 fresh, cached, duplicates, closed_skipped, discarded, pending, micro, corporate, new_rows, failed_pairs
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var zones, categories string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &zones, &categories,
			&r.Fresh, &r.Cached, &r.Duplicates, &r.ClosedSkipped, &r.Discarded,
			&r.Pending, &r.Micro, &r.Corporate, &r.NewRows, &r.FailedPairs); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Zones = splitJoined(zones)
		r.Categories = splitJoined(categories)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
