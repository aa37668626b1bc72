package crawler

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hacost/leads/internal/model"
)

// fakeProvider serves scripted listings per query and can fail a configured
// number of Search or LoadMore calls first.
type fakeProvider struct {
	listings map[string][]model.RawListing

	searchFailures   int
	loadMoreFailures int
	listingsErr      error
	expandErr        error

	current       string
	searchCalls   int
	loadMoreCalls int
	expandCalls   int
}

func (p *fakeProvider) Search(_ context.Context, query string) error {
	p.searchCalls++
	if p.searchFailures > 0 {
		p.searchFailures--
		return eris.New("consent wall")
	}
	p.current = query
	return nil
}

func (p *fakeProvider) LoadMore(context.Context) (int, error) {
	p.loadMoreCalls++
	if p.loadMoreFailures > 0 {
		p.loadMoreFailures--
		return 0, eris.New("feed stalled")
	}
	return len(p.listings[p.current]), nil
}

func (p *fakeProvider) Listings(context.Context) ([]model.RawListing, error) {
	if p.listingsErr != nil {
		return nil, p.listingsErr
	}
	return p.listings[p.current], nil
}

func (p *fakeProvider) Expand(_ context.Context, l model.RawListing) (model.RawListing, error) {
	p.expandCalls++
	if p.expandErr != nil {
		return model.RawListing{}, p.expandErr
	}
	return l, nil
}

// fakeClock advances instantly on Sleep so wait windows elapse without real
// delays.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps++
	c.now = c.now.Add(d)
	return ctx.Err()
}

// memStore is an in-memory store.Store for coordinator tests.
type memStore struct {
	leads map[model.LeadKey]model.LeadRecord
	order []model.LeadKey
	runs  []model.RunSummary
}

func newMemStore() *memStore {
	return &memStore{leads: make(map[model.LeadKey]model.LeadRecord)}
}

func (s *memStore) Migrate(context.Context) error { return nil }
func (s *memStore) Close() error                  { return nil }

func (s *memStore) LoadLeads(context.Context) ([]model.LeadRecord, error) {
	out := make([]model.LeadRecord, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.leads[key])
	}
	return out, nil
}

func (s *memStore) InsertLead(_ context.Context, rec model.LeadRecord) (bool, error) {
	key := rec.Key()
	if _, ok := s.leads[key]; ok {
		return false, nil
	}
	s.leads[key] = rec
	s.order = append(s.order, key)
	return true, nil
}

func (s *memStore) PendingLeads(context.Context) ([]model.LeadRecord, error) {
	var out []model.LeadRecord
	for _, key := range s.order {
		if !s.leads[key].HasPhone() {
			out = append(out, s.leads[key])
		}
	}
	return out, nil
}

func (s *memStore) UpdateContact(_ context.Context, key model.LeadKey, phone, email, source string) error {
	rec, ok := s.leads[key]
	if !ok {
		return eris.Errorf("lead not found: %s / %s", key.Name, key.Zone)
	}
	rec.Phone, rec.Email, rec.Source = phone, email, source
	s.leads[key] = rec
	return nil
}

func (s *memStore) CountLeads(context.Context) (int, int, error) {
	pending := 0
	for _, rec := range s.leads {
		if !rec.HasPhone() {
			pending++
		}
	}
	return len(s.leads), pending, nil
}

func (s *memStore) RecordRun(_ context.Context, summary model.RunSummary) error {
	s.runs = append(s.runs, summary)
	return nil
}

func (s *memStore) ListRuns(context.Context, int) ([]model.RunSummary, error) {
	return s.runs, nil
}

// fakeSink collects everything the coordinator exports.
type fakeSink struct {
	records []model.LeadRecord
}

func (s *fakeSink) Add(rec model.LeadRecord) {
	s.records = append(s.records, rec)
}
