package enrich

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hacost/leads/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeProfiles serves scripted profile listings keyed by business name.
type fakeProfiles struct {
	profiles map[string]model.RawListing
	calls    int
}

func (f *fakeProfiles) Profile(_ context.Context, name, _ string) (model.RawListing, error) {
	f.calls++
	p, ok := f.profiles[name]
	if !ok {
		return model.RawListing{}, eris.Errorf("no profile for %q", name)
	}
	return p, nil
}

// fakeStore implements the two store operations the enricher touches.
type fakeStore struct {
	pending []model.LeadRecord
	updates map[model.LeadKey][3]string
}

func newFakeStore(pending ...model.LeadRecord) *fakeStore {
	return &fakeStore{pending: pending, updates: make(map[model.LeadKey][3]string)}
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

func (s *fakeStore) LoadLeads(context.Context) ([]model.LeadRecord, error) { return nil, nil }

func (s *fakeStore) InsertLead(context.Context, model.LeadRecord) (bool, error) {
	return false, eris.New("not used")
}

func (s *fakeStore) PendingLeads(context.Context) ([]model.LeadRecord, error) {
	return s.pending, nil
}

func (s *fakeStore) UpdateContact(_ context.Context, key model.LeadKey, phone, email, source string) error {
	s.updates[key] = [3]string{phone, email, source}
	return nil
}

func (s *fakeStore) CountLeads(context.Context) (int, int, error) { return 0, 0, nil }

func (s *fakeStore) RecordRun(context.Context, model.RunSummary) error { return nil }

func (s *fakeStore) ListRuns(context.Context, int) ([]model.RunSummary, error) { return nil, nil }

func pendingLead(name, source string) model.LeadRecord {
	return model.LeadRecord{
		Name:   name,
		Zone:   "cafeterías en Monterrey",
		Phone:  model.Unknown,
		Email:  model.Unknown,
		Source: source,
	}
}

func TestEnricher_CapturesContactFromProfile(t *testing.T) {
	st := newFakeStore(pendingLead("Café Uno", "Google Maps (No Phone)"))
	provider := &fakeProfiles{profiles: map[string]model.RawListing{
		"Café Uno": {
			Name:           "Café Uno",
			LinkCandidates: []string{"tel:8183456789"},
			FreeText:       []string{"Información: escríbenos a hola@cafe.mx para pedidos"},
		},
	}}

	res, err := New(provider, st, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Enriched)
	assert.Equal(t, 0, res.Missing)

	update := st.updates[model.LeadKey{Name: "Café Uno", Zone: "cafeterías en Monterrey"}]
	assert.Equal(t, "8183456789", update[0])
	assert.Equal(t, "hola@cafe.mx", update[1])
	assert.Equal(t, "Enriched (Profile Contact Captured)", update[2])
}

func TestEnricher_TagsMissingContacts(t *testing.T) {
	st := newFakeStore(pendingLead("Café Dos", "Google Maps (No Phone)"))
	provider := &fakeProfiles{profiles: map[string]model.RawListing{
		"Café Dos": {Name: "Café Dos", FreeText: []string{"sin datos de contacto"}},
	}}

	res, err := New(provider, st, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Missing)

	update := st.updates[model.LeadKey{Name: "Café Dos", Zone: "cafeterías en Monterrey"}]
	assert.Equal(t, model.Unknown, update[0])
	assert.Equal(t, "Enriched (Contact Info Missing)", update[2])
}

func TestEnricher_SkipsAlreadyEnrichedRows(t *testing.T) {
	st := newFakeStore(
		pendingLead("Café Uno", "Enriched (Contact Info Missing)"),
		pendingLead("Café Dos", "Enriched (Profile Contact Captured)"),
	)
	provider := &fakeProfiles{}

	res, err := New(provider, st, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 0, provider.calls)
	assert.Empty(t, st.updates)
}

func TestEnricher_ProviderFailureLeavesLeadUntouched(t *testing.T) {
	st := newFakeStore(pendingLead("Café Fantasma", "Google Maps (No Phone)"))
	provider := &fakeProfiles{}

	res, err := New(provider, st, 0).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, st.updates)
}

func TestEnricher_KeepsExistingEmailWhenProfileHasNone(t *testing.T) {
	rec := pendingLead("Café Uno", "Google Maps (No Phone)")
	rec.Email = "ya@cafe.mx"
	st := newFakeStore(rec)
	provider := &fakeProfiles{profiles: map[string]model.RawListing{
		"Café Uno": {Name: "Café Uno", LinkCandidates: []string{"tel:8183456789"}},
	}}

	_, err := New(provider, st, 0).Run(context.Background())
	require.NoError(t, err)

	update := st.updates[model.LeadKey{Name: "Café Uno", Zone: "cafeterías en Monterrey"}]
	assert.Equal(t, "ya@cafe.mx", update[1])
}
