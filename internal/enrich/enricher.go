// Package enrich retries contact discovery for stored leads that have no
// phone, using the provider's business profile view.
package enrich

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hacost/leads/internal/contact"
	"github.com/hacost/leads/internal/model"
	"github.com/hacost/leads/internal/store"
)

// Source tags written back after an enrichment attempt. A lead carrying
// either tag is never retried.
const (
	sourceEnriched = "Enriched (Profile Contact Captured)"
	sourceMissing  = "Enriched (Contact Info Missing)"
)

// ProfileProvider opens a business profile by name within a zone and
// returns its free-text blocks and link candidates.
type ProfileProvider interface {
	Profile(ctx context.Context, name, zone string) (model.RawListing, error)
}

// Result tallies one enrichment pass.
type Result struct {
	Scanned  int
	Enriched int
	Missing  int
	Skipped  int
	Failed   int
}

// Enricher walks pending leads and fills in contacts found on their
// profiles.
type Enricher struct {
	provider ProfileProvider
	st       store.Store
	limiter  *rate.Limiter
	log      *zap.Logger
}

// New builds an Enricher. profilesPerSec <= 0 disables pacing.
func New(provider ProfileProvider, st store.Store, profilesPerSec float64) *Enricher {
	var limiter *rate.Limiter
	if profilesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(profilesPerSec), 1)
	}
	return &Enricher{
		provider: provider,
		st:       st,
		limiter:  limiter,
		log:      zap.L().With(zap.String("component", "enrich.enricher")),
	}
}

// Run loads every phoneless lead and attempts one profile lookup each.
// Leads already tagged by a previous pass are skipped. Provider failures
// count as failed and leave the lead untouched for the next pass.
func (e *Enricher) Run(ctx context.Context) (Result, error) {
	leads, err := e.st.PendingLeads(ctx)
	if err != nil {
		return Result{}, eris.Wrap(err, "enrich: load pending leads")
	}

	var res Result
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Scanned++

		if strings.Contains(lead.Source, "Enriched") {
			res.Skipped++
			continue
		}
		e.enrichOne(ctx, lead, &res)
	}

	e.log.Info("enrichment pass complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("enriched", res.Enriched),
		zap.Int("missing", res.Missing),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (e *Enricher) enrichOne(ctx context.Context, lead model.LeadRecord, res *Result) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			res.Failed++
			return
		}
	}

	profile, err := e.provider.Profile(ctx, lead.Name, lead.Zone)
	if err != nil {
		e.log.Warn("profile lookup failed", zap.String("name", lead.Name), zap.Error(err))
		res.Failed++
		return
	}

	phone, email := contact.ExtractContact(profile)

	source := sourceMissing
	if phone != model.Unknown {
		source = sourceEnriched
	}
	if email == model.Unknown && lead.Email != model.Unknown {
		email = lead.Email
	}

	if err := e.st.UpdateContact(ctx, lead.Key(), phone, email, source); err != nil {
		e.log.Warn("contact update failed", zap.String("name", lead.Name), zap.Error(err))
		res.Failed++
		return
	}

	if source == sourceEnriched {
		res.Enriched++
	} else {
		res.Missing++
	}
}
