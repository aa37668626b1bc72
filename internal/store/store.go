// Package store persists leads and run summaries behind a driver-agnostic
// interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/hacost/leads/internal/config"
	"github.com/hacost/leads/internal/model"
)

// Store defines the persistence interface for the lead pipeline.
//
// InsertLead is an idempotent insert keyed by (name, zone): inserting an
// existing key is a silent no-op, reported through the returned bool so the
// caller can count genuinely new rows.
type Store interface {
	Migrate(ctx context.Context) error

	// Leads
	LoadLeads(ctx context.Context) ([]model.LeadRecord, error)
	InsertLead(ctx context.Context, rec model.LeadRecord) (inserted bool, err error)
	PendingLeads(ctx context.Context) ([]model.LeadRecord, error)
	UpdateContact(ctx context.Context, key model.LeadKey, phone, email, source string) error
	CountLeads(ctx context.Context) (total, pending int, err error)

	// Run accounting
	RecordRun(ctx context.Context, summary model.RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)

	Close() error
}

// Open builds the configured store backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
