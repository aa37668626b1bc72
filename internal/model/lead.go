// Package model defines the typed records flowing through the lead pipeline.
package model

import (
	"strings"
	"time"
)

// Unknown is the sentinel for contact fields that could not be extracted.
const Unknown = "unknown"

// Segment classifies a lead for export routing.
type Segment string

const (
	SegmentMicro        Segment = "micro"
	SegmentCorporate    Segment = "corporate"
	SegmentOther        Segment = "other"
	SegmentUnclassified Segment = "unclassified"
)

// Provenance records whether a lead was extracted live or served from the
// known-lead cache. Run-scoped; never persisted.
type Provenance string

const (
	ProvenanceFresh    Provenance = "fresh"
	ProvenanceCacheHit Provenance = "cache_hit"
)

// RawListing is one discovered item from the page provider. Summary fields
// (Name, Rating, ReviewCount, FreeText teaser, SourceURL) come from the
// results feed; FreeText blocks, LinkCandidates, Address and Website are
// filled by the provider's detail expansion.
type RawListing struct {
	Name           string
	FreeText       []string // ordered visible text blocks
	LinkCandidates []string // tel:, wa.me, mailto, generic hrefs
	Rating         float64  // 0 if unknown
	ReviewCount    int      // 0 if unknown
	Address        string
	Website        string
	SourceURL      string
}

// LeadRecord is the durable unit produced by the pipeline. (Name, Zone) is
// the identity key in the store.
type LeadRecord struct {
	Name        string
	Zone        string // full search query the lead was found under
	Phone       string // 10-digit canonical or Unknown
	Email       string
	Address     string
	Website     string
	SourceURL   string
	Source      string // persisted origin tag, e.g. "Google Maps"
	Rating      float64
	ReviewCount int

	// Run-scoped; not persisted.
	Provenance Provenance
	Segment    Segment
}

// Key returns the identity key used by the store and the known-lead cache.
func (r LeadRecord) Key() LeadKey {
	return LeadKey{Name: strings.TrimSpace(r.Name), Zone: strings.TrimSpace(r.Zone)}
}

// HasPhone reports whether the record carries a usable canonical phone.
func (r LeadRecord) HasPhone() bool {
	return r.Phone != "" && r.Phone != Unknown
}

// LeadKey is the (name, zone) identity of a lead.
type LeadKey struct {
	Name string
	Zone string
}

// RunSummary is the completion accounting for one crawl session.
type RunSummary struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Zones         []string
	Categories    []string
	Fresh         int // extracted live this run
	Cached        int // served from the known-lead cache
	Duplicates    int // rejected by the session deduplicator
	ClosedSkipped int // listings skipped as closed businesses
	Discarded     int // classified Other, excluded from exports
	Pending       int // phone unknown, routed to pending export
	Micro         int
	Corporate     int
	NewRows       int // rows actually inserted into the store
	FailedPairs   int // zone/category searches that errored
}
