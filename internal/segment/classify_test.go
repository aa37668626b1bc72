package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hacost/leads/internal/model"
)

func newTestClassifier() *Classifier {
	return NewClassifier(20, 3.5, []string{"OXXO", "Walmart"})
}

func TestClassify_PhonelessIsUnclassified(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify(model.LeadRecord{Name: "Tortillería", Phone: model.Unknown, Rating: 4.8, ReviewCount: 3})
	assert.Equal(t, model.SegmentUnclassified, got)
}

func TestClassify_ChainBlacklistBeatsEverything(t *testing.T) {
	c := newTestClassifier()
	// Substring and case-insensitive, and wins even with a micro profile.
	got := c.Classify(model.LeadRecord{Name: "Oxxo Gas Valle", Phone: "5512345678", Rating: 4.9, ReviewCount: 2})
	assert.Equal(t, model.SegmentCorporate, got)

	got = c.Classify(model.LeadRecord{Name: "Bodega walmart express", Phone: "5512345678"})
	assert.Equal(t, model.SegmentCorporate, got)
}

func TestClassify_ReviewVolumeMeansCorporate(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify(model.LeadRecord{Name: "Restaurante Grande", Phone: "5512345678", Rating: 5.0, ReviewCount: 21})
	assert.Equal(t, model.SegmentCorporate, got)

	// At the ceiling it is still micro territory.
	got = c.Classify(model.LeadRecord{Name: "Restaurante Chico", Phone: "5512345678", Rating: 5.0, ReviewCount: 20})
	assert.Equal(t, model.SegmentMicro, got)
}

func TestClassify_UnreviewedIsMicro(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify(model.LeadRecord{Name: "Negocio Nuevo", Phone: "5512345678", Rating: 0, ReviewCount: 0})
	assert.Equal(t, model.SegmentMicro, got)
}

func TestClassify_RatingThreshold(t *testing.T) {
	c := newTestClassifier()
	got := c.Classify(model.LeadRecord{Name: "Fonda Buena", Phone: "5512345678", Rating: 3.5, ReviewCount: 10})
	assert.Equal(t, model.SegmentMicro, got)

	got = c.Classify(model.LeadRecord{Name: "Fonda Regular", Phone: "5512345678", Rating: 3.4, ReviewCount: 10})
	assert.Equal(t, model.SegmentOther, got)
}
