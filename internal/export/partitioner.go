// Package export partitions admitted leads into the segment workbooks and
// writes them as XLSX files.
package export

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hacost/leads/internal/model"
)

// Workbook file names, fixed so repeated runs overwrite in place.
const (
	FileMaster    = "leads_google_maps.xlsx"
	FileMicro     = "leads_micro.xlsx"
	FileCorporate = "leads_corporate.xlsx"
	FilePending   = "leads_pending_lookup.xlsx"
)

// Partitioner accumulates leads per segment during a run and writes one
// workbook per partition on Flush. Safe for concurrent Add calls.
type Partitioner struct {
	mu        sync.Mutex
	master    []model.LeadRecord
	micro     []model.LeadRecord
	corporate []model.LeadRecord
	pending   []model.LeadRecord
	log       *zap.Logger
}

func NewPartitioner() *Partitioner {
	return &Partitioner{
		log: zap.L().With(zap.String("component", "export.partitioner")),
	}
}

// Add routes one record. Micro and corporate leads land in both their
// segment workbook and the master; unclassified leads go to the pending
// workbook only; other leads are dropped from export entirely.
func (p *Partitioner) Add(rec model.LeadRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch rec.Segment {
	case model.SegmentMicro:
		p.micro = append(p.micro, rec)
		p.master = append(p.master, rec)
	case model.SegmentCorporate:
		p.corporate = append(p.corporate, rec)
		p.master = append(p.master, rec)
	case model.SegmentUnclassified:
		p.pending = append(p.pending, rec)
	}
}

// Counts returns how many records each partition holds.
func (p *Partitioner) Counts() (master, micro, corporate, pending int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.master), len(p.micro), len(p.corporate), len(p.pending)
}

// Flush writes all four workbooks into dir concurrently. Each workbook is
// written independently; one failing file never blocks the others, and the
// first error is returned after every write finished.
func (p *Partitioner) Flush(ctx context.Context, dir string) error {
	p.mu.Lock()
	partitions := []struct {
		file    string
		records []model.LeadRecord
	}{
		{FileMaster, append([]model.LeadRecord(nil), p.master...)},
		{FileMicro, append([]model.LeadRecord(nil), p.micro...)},
		{FileCorporate, append([]model.LeadRecord(nil), p.corporate...)},
		{FilePending, append([]model.LeadRecord(nil), p.pending...)},
	}
	p.mu.Unlock()

	var g errgroup.Group
	for _, part := range partitions {
		part := part
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, part.file)
			if err := WriteXLSX(path, part.records); err != nil {
				p.log.Error("workbook write failed", zap.String("file", part.file), zap.Error(err))
				return err
			}
			p.log.Info("workbook written", zap.String("file", part.file), zap.Int("rows", len(part.records)))
			return nil
		})
	}
	return g.Wait()
}
