// Package session holds the run-scoped state of one crawl: the known-lead
// cache loaded from the store and the intra-run deduplicator.
package session

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hacost/leads/internal/model"
)

// foldTransformer strips diacritics so "Café" and "Cafe" collapse to the
// same dedup key.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName reduces a business name to its dedup key: diacritics folded,
// lower-cased, letters and digits only.
func NormalizeName(name string) string {
	folded, _, err := transform.String(foldTransformer, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Deduper rejects leads already accepted in this run. The canonical phone is
// the strongest identity signal a listing offers, so it takes priority; the
// normalized name is the fallback for phoneless leads. Never persisted, and
// independent of the cross-run known-lead cache.
//
// Not safe for concurrent use; the crawl session is a single logical worker.
type Deduper struct {
	phones map[string]bool
	names  map[string]bool
}

// NewDeduper returns an empty run-scoped deduplicator.
func NewDeduper() *Deduper {
	return &Deduper{
		phones: make(map[string]bool),
		names:  make(map[string]bool),
	}
}

// Admit reports whether the record is the first occurrence this run, and
// records it if so. Admission order is discovery order.
func (d *Deduper) Admit(rec model.LeadRecord) bool {
	if rec.HasPhone() {
		if d.phones[rec.Phone] {
			return false
		}
		d.phones[rec.Phone] = true
		return true
	}

	key := NormalizeName(rec.Name)
	if d.names[key] {
		return false
	}
	d.names[key] = true
	return true
}
