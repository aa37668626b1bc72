// Package crawler drives the page-by-page listing discovery loop and
// orchestrates extraction, dedup, classification, persistence and export
// for each discovered listing.
package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hacost/leads/internal/model"
)

// Provider is the external page provider driving one shared remote browsing
// context. Calls into it are the only pipeline operations allowed to block.
// It is not safe for concurrent use; the crawl session is a single logical
// worker.
type Provider interface {
	// Search opens the results feed for a query. Failing here means the
	// provider could not load or respond for this zone/category pair.
	Search(ctx context.Context, query string) error

	// LoadMore requests more items for the current feed and returns the
	// monotonically non-decreasing count of loaded items.
	LoadMore(ctx context.Context) (int, error)

	// Listings returns the currently loaded listings with summary fields
	// (name, rating, reviews, teaser text, source URL) populated.
	Listings(ctx context.Context) ([]model.RawListing, error)

	// Expand opens a listing's detail view and fills its free-text blocks,
	// link candidates, address and website. This is the expensive step the
	// known-lead cache exists to skip.
	Expand(ctx context.Context, l model.RawListing) (model.RawListing, error)
}

// Clock abstracts time so stability and timeout behavior is testable
// without real delays.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until the context is cancelled.
	Sleep(ctx context.Context, d time.Duration) error
}

// Sink receives every admitted lead for export partitioning.
type Sink interface {
	Add(rec model.LeadRecord)
}

// errNoResults marks a pair that produced nothing inside the manual
// intervention window. Not a failure; the loop moves on.
var errNoResults = eris.New("crawler: no results")

// closedMarkers are the provider's closed-business phrases, matched
// verbatim and case-sensitively against the summary text.
var closedMarkers = []string{
	"Temporarily closed",
	"Permanently closed",
	"Cerrado temporalmente",
	"Cerrado permanentemente",
}

// IsClosed reports whether the listing text flags the business as closed.
// Closed businesses are skipped before cache lookup or extraction.
func IsClosed(blocks []string) bool {
	for _, b := range blocks {
		for _, marker := range closedMarkers {
			if strings.Contains(b, marker) {
				return true
			}
		}
	}
	return false
}
