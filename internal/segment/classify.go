// Package segment assigns export segments to leads from their rating and
// review signals plus a chain blacklist.
package segment

import (
	"strings"

	"github.com/hacost/leads/internal/model"
)

// Classifier is the pure decision table for lead segmentation. Built once
// from config at startup; safe to share.
type Classifier struct {
	microMaxReviews     int
	goodRatingThreshold float64
	chainBlacklist      []string // upper-cased substrings
}

// NewClassifier builds a classifier from the segmentation settings.
func NewClassifier(microMaxReviews int, goodRatingThreshold float64, chainBlacklist []string) *Classifier {
	upper := make([]string, 0, len(chainBlacklist))
	for _, brand := range chainBlacklist {
		brand = strings.TrimSpace(brand)
		if brand != "" {
			upper = append(upper, strings.ToUpper(brand))
		}
	}
	return &Classifier{
		microMaxReviews:     microMaxReviews,
		goodRatingThreshold: goodRatingThreshold,
		chainBlacklist:      upper,
	}
}

// Classify returns the segment for a record with a known phone:
//
//   - blacklisted chain name, or more reviews than the micro ceiling ⇒ Corporate
//   - unreviewed, or reviewed at or above the rating threshold ⇒ Micro
//   - moderately reviewed but poorly rated ⇒ Other (excluded from exports)
//
// Records without a phone never reach this table; they are Unclassified and
// routed to the pending export by the coordinator.
func (c *Classifier) Classify(rec model.LeadRecord) model.Segment {
	if !rec.HasPhone() {
		return model.SegmentUnclassified
	}

	if c.isChain(rec.Name) {
		return model.SegmentCorporate
	}
	if rec.ReviewCount > c.microMaxReviews {
		return model.SegmentCorporate
	}
	if rec.ReviewCount == 0 {
		// New or unreviewed business; treated optimistically.
		return model.SegmentMicro
	}
	if rec.Rating >= c.goodRatingThreshold {
		return model.SegmentMicro
	}
	return model.SegmentOther
}

func (c *Classifier) isChain(name string) bool {
	upper := strings.ToUpper(name)
	for _, brand := range c.chainBlacklist {
		if strings.Contains(upper, brand) {
			return true
		}
	}
	return false
}
