package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/hacost/leads/internal/model"
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	name         TEXT NOT NULL,
	zone         TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT 'unknown',
	email        TEXT NOT NULL DEFAULT 'unknown',
	address      TEXT NOT NULL DEFAULT 'unknown',
	website      TEXT NOT NULL DEFAULT 'unknown',
	source       TEXT NOT NULL DEFAULT '',
	rating       REAL NOT NULL DEFAULT 0,
	review_count INTEGER NOT NULL DEFAULT 0,
	source_url   TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (name, zone)
);

CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	started_at     DATETIME NOT NULL,
	finished_at    DATETIME NOT NULL,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = "name, zone, phone, email, address, website, source, rating, review_count, source_url"

func (s *SQLiteStore) LoadLeads(ctx context.Context) ([]model.LeadRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load leads")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *SQLiteStore) InsertLead(ctx context.Context, rec model.LeadRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Zone, rec.Phone, rec.Email, rec.Address, rec.Website,
		rec.Source, rec.Rating, rec.ReviewCount, rec.SourceURL,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert lead %q", rec.Name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) PendingLeads(ctx context.Context) ([]model.LeadRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE phone = ? ORDER BY name`,
		model.Unknown,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: pending leads")
	}
	defer rows.Close()

	return scanLeads(rows)
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, key model.LeadKey, phone, email, source string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET phone = ?, email = ?, source = ? WHERE name = ? AND zone = ?`,
		phone, email, source, key.Name, key.Zone,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact %q", key.Name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("lead not found: %s / %s", key.Name, key.Zone)
	}
	return nil
}

func (s *SQLiteStore) CountLeads(ctx context.Context) (int, int, error) {
	var total, pending int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN phone = ? THEN 1 ELSE 0 END), 0) FROM leads`,
		model.Unknown,
	).Scan(&total, &pending)
	if err != nil {
		return 0, 0, eris.Wrap(err, "sqlite: count leads")
	}
	return total, pending, nil
}

func (s *SQLiteStore) RecordRun(ctx context.Context, summary model.RunSummary) error {
	id := summary.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, zones, categories,
		 fresh, cached, duplicates, closed_skipped, discarded, pending, micro, corporate, new_rows, failed_pairs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, summary.StartedAt.UTC(), summary.FinishedAt.UTC(),
		strings.Join(summary.Zones, ";"), strings.Join(summary.Categories, ";"),
		summary.Fresh, summary.Cached, summary.Duplicates, summary.ClosedSkipped,
		summary.Discarded, summary.Pending, summary.Micro, summary.Corporate,
		summary.NewRows, summary.FailedPairs,
	)
	return eris.Wrap(err, "sqlite: record run")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, zones, categories,
		 fresh, cached, duplicates, closed_skipped, discarded, pending, micro, corporate, new_rows, failed_pairs
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var zones, categories string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &zones, &categories,
			&r.Fresh, &r.Cached, &r.Duplicates, &r.ClosedSkipped, &r.Discarded,
			&r.Pending, &r.Micro, &r.Corporate, &r.NewRows, &r.FailedPairs); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Zones = splitJoined(zones)
		r.Categories = splitJoined(categories)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanLeads(rows rowScanner) ([]model.LeadRecord, error) {
	var leads []model.LeadRecord
	for rows.Next() {
		var rec model.LeadRecord
		if err := rows.Scan(&rec.Name, &rec.Zone, &rec.Phone, &rec.Email, &rec.Address,
			&rec.Website, &rec.Source, &rec.Rating, &rec.ReviewCount, &rec.SourceURL); err != nil {
			return nil, eris.Wrap(err, "store: scan lead")
		}
		leads = append(leads, rec)
	}
	return leads, eris.Wrap(rows.Err(), "store: iterate leads")
}

func splitJoined(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}
