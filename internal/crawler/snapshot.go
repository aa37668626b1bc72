package crawler

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/hacost/leads/internal/model"
)

// snapshotListing is the on-disk shape of one captured listing.
type snapshotListing struct {
	Name           string   `yaml:"name"`
	Rating         float64  `yaml:"rating"`
	ReviewCount    int      `yaml:"review_count"`
	Address        string   `yaml:"address"`
	Website        string   `yaml:"website"`
	SourceURL      string   `yaml:"source_url"`
	FreeText       []string `yaml:"free_text"`
	LinkCandidates []string `yaml:"link_candidates"`
}

type snapshotFile struct {
	Queries map[string][]snapshotListing `yaml:"queries"`
}

// SnapshotProvider replays listings captured to a YAML file, keyed by
// search query. It backs offline runs and lets live browser sessions be
// recorded once and reprocessed without hitting the provider again.
//
// Search on an unknown query fails, which the coordinator degrades to a
// no-results pair. LoadMore reports the full count immediately, so the
// stability loop converges after its configured attempts.
type SnapshotProvider struct {
	queries map[string][]model.RawListing
	current string
}

// LoadSnapshot reads a snapshot file into a SnapshotProvider.
func LoadSnapshot(path string) (*SnapshotProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: read snapshot %s", path)
	}

	var file snapshotFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrapf(err, "crawler: parse snapshot %s", path)
	}

	queries := make(map[string][]model.RawListing, len(file.Queries))
	for query, listings := range file.Queries {
		converted := make([]model.RawListing, 0, len(listings))
		for _, l := range listings {
			converted = append(converted, model.RawListing{
				Name:           l.Name,
				Rating:         l.Rating,
				ReviewCount:    l.ReviewCount,
				Address:        l.Address,
				Website:        l.Website,
				SourceURL:      l.SourceURL,
				FreeText:       l.FreeText,
				LinkCandidates: l.LinkCandidates,
			})
		}
		queries[query] = converted
	}
	return &SnapshotProvider{queries: queries}, nil
}

func (p *SnapshotProvider) Search(_ context.Context, query string) error {
	if _, ok := p.queries[query]; !ok {
		return eris.Errorf("crawler: query %q not in snapshot", query)
	}
	p.current = query
	return nil
}

func (p *SnapshotProvider) LoadMore(_ context.Context) (int, error) {
	return len(p.queries[p.current]), nil
}

func (p *SnapshotProvider) Listings(_ context.Context) ([]model.RawListing, error) {
	return p.queries[p.current], nil
}

// Expand is a no-op for snapshots: captured listings already carry their
// detail fields.
func (p *SnapshotProvider) Expand(_ context.Context, l model.RawListing) (model.RawListing, error) {
	return l, nil
}

// Profile finds a captured listing by business name within the zone's
// query, serving enrichment passes from the same snapshot.
func (p *SnapshotProvider) Profile(_ context.Context, name, zone string) (model.RawListing, error) {
	for _, l := range p.queries[zone] {
		if strings.EqualFold(l.Name, name) {
			return l, nil
		}
	}
	return model.RawListing{}, eris.Errorf("crawler: profile %q not in snapshot", name)
}
