package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hacost/leads/internal/contact"
	"github.com/hacost/leads/internal/model"
	"github.com/hacost/leads/internal/segment"
	"github.com/hacost/leads/internal/session"
	"github.com/hacost/leads/internal/store"
)

// sourceTag values persisted in the lead's source column.
const (
	sourceDefault = "Google Maps"
	sourceNoPhone = "Google Maps (No Phone)"
)

// Options configures one crawl session.
type Options struct {
	Zones      []string
	Categories []string

	// StabilityAttempts is how many consecutive unchanged LoadMore signals
	// mean the feed is fully loaded.
	StabilityAttempts int
	// ScrollWait is the delay between feed polls.
	ScrollWait time.Duration
	// ManualWait bounds how long provider failures (captcha, consent walls)
	// are tolerated per pair before the pair is treated as having no results.
	ManualWait time.Duration
	// ListingsPerSec paces detail expansions. <= 0 disables pacing.
	ListingsPerSec float64
}

// Coordinator runs the crawl session: zones × categories sequentially, each
// listing through cache lookup, extraction, dedup, classification,
// persistence and export.
type Coordinator struct {
	provider   Provider
	st         store.Store
	known      *session.KnownLeads
	deduper    *session.Deduper
	classifier *segment.Classifier
	sink       Sink
	clock      Clock
	limiter    *rate.Limiter
	opts       Options
	log        *zap.Logger
}

// New builds a Coordinator. The known-lead cache must already be loaded.
func New(provider Provider, st store.Store, known *session.KnownLeads, classifier *segment.Classifier, sink Sink, clock Clock, opts Options) *Coordinator {
	if clock == nil {
		clock = SystemClock{}
	}
	var limiter *rate.Limiter
	if opts.ListingsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.ListingsPerSec), 1)
	}
	return &Coordinator{
		provider:   provider,
		st:         st,
		known:      known,
		deduper:    session.NewDeduper(),
		classifier: classifier,
		sink:       sink,
		clock:      clock,
		limiter:    limiter,
		opts:       opts,
		log:        zap.L().With(zap.String("component", "crawler.coordinator")),
	}
}

// Run iterates the configured zone/category pairs. A failing pair is logged
// and skipped; cancellation stops between pairs or listings, leaving already
// persisted leads valid. The summary is always returned, partial or not.
func (c *Coordinator) Run(ctx context.Context) (model.RunSummary, error) {
	summary := model.RunSummary{
		ID:         uuid.New().String(),
		StartedAt:  c.clock.Now(),
		Zones:      c.opts.Zones,
		Categories: c.opts.Categories,
	}

pairs:
	for _, zone := range c.opts.Zones {
		for _, category := range c.opts.Categories {
			if ctx.Err() != nil {
				break pairs
			}

			query := fmt.Sprintf("%s en %s", category, zone)
			pairLog := c.log.With(zap.String("query", query))
			pairLog.Info("crawling pair")

			err := c.crawlPair(ctx, query, &summary)
			switch {
			case err == nil:
			case eris.Is(err, errNoResults):
				pairLog.Info("no results for pair")
			case ctx.Err() != nil:
				break pairs
			default:
				// One bad search never aborts the run.
				pairLog.Error("pair failed", zap.Error(err))
				summary.FailedPairs++
			}
		}
	}

	summary.FinishedAt = c.clock.Now()
	c.log.Info("run complete",
		zap.String("run_id", summary.ID),
		zap.Int("fresh", summary.Fresh),
		zap.Int("cached", summary.Cached),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("closed_skipped", summary.ClosedSkipped),
		zap.Int("discarded", summary.Discarded),
		zap.Int("pending", summary.Pending),
		zap.Int("micro", summary.Micro),
		zap.Int("corporate", summary.Corporate),
		zap.Int("new_rows", summary.NewRows),
		zap.Int("failed_pairs", summary.FailedPairs),
	)

	if err := c.st.RecordRun(ctx, summary); err != nil {
		c.log.Warn("failed to record run summary", zap.Error(err))
	}
	return summary, ctx.Err()
}

func (c *Coordinator) crawlPair(ctx context.Context, query string, summary *model.RunSummary) error {
	if err := c.searchWithTolerance(ctx, query); err != nil {
		return err
	}
	if err := c.stabilize(ctx); err != nil {
		return err
	}

	listings, err := c.provider.Listings(ctx)
	if err != nil {
		return eris.Wrapf(err, "crawler: listings for %q", query)
	}
	if len(listings) == 0 {
		return errNoResults
	}

	for _, listing := range listings {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.processListing(ctx, listing, query, summary)
	}
	return nil
}

// searchWithTolerance opens the feed, retrying inside the manual
// intervention window so a human can clear a captcha or consent wall.
// An exhausted window degrades to "no results", never a run failure.
func (c *Coordinator) searchWithTolerance(ctx context.Context, query string) error {
	deadline := c.clock.Now().Add(c.opts.ManualWait)
	for {
		err := c.provider.Search(ctx, query)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !c.clock.Now().Before(deadline) {
			c.log.Warn("search window exhausted", zap.String("query", query), zap.Error(err))
			return errNoResults
		}
		c.log.Info("search failed, waiting for manual intervention", zap.Error(err))
		if serr := c.clock.Sleep(ctx, c.opts.ScrollWait); serr != nil {
			return serr
		}
	}
}

// stabilize polls LoadMore until the loaded-size signal is unchanged for
// StabilityAttempts consecutive polls. Provider hiccups are tolerated
// inside the manual intervention window.
func (c *Coordinator) stabilize(ctx context.Context) error {
	start := c.clock.Now()
	prev := -1
	stable := 0

	for {
		n, err := c.provider.LoadMore(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.clock.Now().Sub(start) >= c.opts.ManualWait {
				return eris.Wrap(err, "crawler: load more")
			}
		} else if n == prev {
			stable++
			if stable >= c.opts.StabilityAttempts {
				return nil
			}
		} else {
			stable = 0
			prev = n
		}

		if err := c.clock.Sleep(ctx, c.opts.ScrollWait); err != nil {
			return err
		}
	}
}

func (c *Coordinator) processListing(ctx context.Context, listing model.RawListing, query string, summary *model.RunSummary) {
	name := listing.Name
	if name == "" {
		return
	}

	if IsClosed(listing.FreeText) {
		c.log.Debug("skipping closed business", zap.String("name", name))
		summary.ClosedSkipped++
		return
	}

	if cached, ok := c.known.Lookup(name, query); ok {
		cached.Provenance = model.ProvenanceCacheHit
		c.accept(ctx, cached, summary)
		return
	}

	rec := c.extractListing(ctx, listing, query)
	rec.Provenance = model.ProvenanceFresh
	c.accept(ctx, rec, summary)
}

// extractListing expands the listing's detail view and runs the contact
// cascade. Extraction gaps resolve to unknown fields, never errors.
func (c *Coordinator) extractListing(ctx context.Context, listing model.RawListing, query string) model.LeadRecord {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			// Cancelled mid-pair; fall through with the summary fields only.
			return leadFromListing(listing, query)
		}
	}

	full, err := c.provider.Expand(ctx, listing)
	if err != nil {
		c.log.Warn("detail expansion failed", zap.String("name", listing.Name), zap.Error(err))
		return leadFromListing(listing, query)
	}

	rec := leadFromListing(full, query)
	rec.Phone, rec.Email = contact.ExtractContact(full)
	if rec.Address == "" {
		rec.Address = model.Unknown
	}
	if rec.Website == "" {
		rec.Website = model.Unknown
	}
	if !rec.HasPhone() {
		rec.Source = sourceNoPhone
	}
	return rec
}

// leadFromListing builds the baseline record with every contact field
// unknown until extraction fills it.
func leadFromListing(l model.RawListing, query string) model.LeadRecord {
	return model.LeadRecord{
		Name:        l.Name,
		Zone:        query,
		Phone:       model.Unknown,
		Email:       model.Unknown,
		Address:     orUnknown(l.Address),
		Website:     orUnknown(l.Website),
		SourceURL:   l.SourceURL,
		Source:      sourceDefault,
		Rating:      l.Rating,
		ReviewCount: l.ReviewCount,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return model.Unknown
	}
	return s
}

// accept runs the dedup gate, classifies, persists fresh records, and hands
// the record to the export sink. Cache hits are never re-persisted.
func (c *Coordinator) accept(ctx context.Context, rec model.LeadRecord, summary *model.RunSummary) {
	if !c.deduper.Admit(rec) {
		c.log.Debug("duplicate rejected", zap.String("name", rec.Name), zap.String("phone", rec.Phone))
		summary.Duplicates++
		return
	}

	rec.Segment = c.classifier.Classify(rec)

	if rec.Provenance == model.ProvenanceCacheHit {
		summary.Cached++
	} else {
		summary.Fresh++
		inserted, err := c.st.InsertLead(ctx, rec)
		if err != nil {
			c.log.Warn("persist failed", zap.String("name", rec.Name), zap.Error(err))
		} else if inserted {
			summary.NewRows++
		}
	}

	switch rec.Segment {
	case model.SegmentMicro:
		summary.Micro++
	case model.SegmentCorporate:
		summary.Corporate++
	case model.SegmentOther:
		summary.Discarded++
	case model.SegmentUnclassified:
		summary.Pending++
	}

	c.sink.Add(rec)
}
