package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/hacost/leads/internal/model"
)

// LeadLoader is the slice of the store the cache needs.
type LeadLoader interface {
	LoadLeads(ctx context.Context) ([]model.LeadRecord, error)
}

// KnownLeads is the cross-run cache of already-persisted leads, keyed by
// (name, zone). Loaded fully before a crawl so re-crawls of a large lead
// base never query the store per listing. Read-only during a run.
type KnownLeads struct {
	byKey map[model.LeadKey]model.LeadRecord
}

// LoadKnownLeads builds the cache from the durable store.
func LoadKnownLeads(ctx context.Context, loader LeadLoader) (*KnownLeads, error) {
	records, err := loader.LoadLeads(ctx)
	if err != nil {
		return nil, err
	}

	k := &KnownLeads{byKey: make(map[model.LeadKey]model.LeadRecord, len(records))}
	for _, rec := range records {
		key := rec.Key()
		if key.Name == "" {
			continue
		}
		k.byKey[key] = rec
	}

	zap.L().Info("known-lead cache loaded", zap.Int("leads", len(k.byKey)))
	return k, nil
}

// Lookup returns the stored record for (name, zone) if one exists. A hit
// lets the coordinator skip detail expansion and extraction entirely.
func (k *KnownLeads) Lookup(name, zone string) (model.LeadRecord, bool) {
	rec, ok := k.byKey[model.LeadRecord{Name: name, Zone: zone}.Key()]
	return rec, ok
}

// Len reports the number of cached leads.
func (k *KnownLeads) Len() int { return len(k.byKey) }
