package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hacost/leads/internal/crawler"
	"github.com/hacost/leads/internal/export"
	"github.com/hacost/leads/internal/model"
	"github.com/hacost/leads/internal/segment"
	"github.com/hacost/leads/internal/session"
	"github.com/hacost/leads/internal/store"
)

var (
	crawlZones      []string
	crawlCategories []string
	crawlPlanPath   string
	crawlSnapshot   string
)

// crawlPlan is the --plan file shape: the zone and category lists for a run.
type crawlPlan struct {
	Zones      []string `yaml:"zones"`
	Categories []string `yaml:"categories"`
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run the full acquisition pipeline",
	Long:  "Crawls every zone/category pair, extracts contacts, dedups, classifies, persists new leads and writes the segment workbooks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		zones, categories, err := resolvePlan()
		if err != nil {
			return err
		}

		provider, err := newProvider()
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		known, err := session.LoadKnownLeads(ctx, st)
		if err != nil {
			return err
		}

		classifier := segment.NewClassifier(
			cfg.Segmentation.MicroMaxReviews,
			cfg.Segmentation.GoodRatingThreshold,
			cfg.Segmentation.ChainBlacklist,
		)
		sink := export.NewPartitioner()

		coord := crawler.New(provider, st, known, classifier, sink, nil, crawler.Options{
			Zones:             zones,
			Categories:        categories,
			StabilityAttempts: cfg.Crawl.StabilityAttempts,
			ScrollWait:        cfg.Crawl.ScrollWait(),
			ManualWait:        cfg.Crawl.ManualWait(),
			ListingsPerSec:    cfg.Crawl.ListingsPerSec,
		})

		summary, runErr := coord.Run(ctx)
		if err := sink.Flush(context.WithoutCancel(ctx), cfg.Export.Dir); err != nil {
			zap.L().Error("export flush failed", zap.Error(err))
			if runErr == nil {
				runErr = err
			}
		}

		printSummary(cmd.OutOrStdout(), summary)
		return runErr
	},
}

func init() {
	crawlCmd.Flags().StringSliceVar(&crawlZones, "zones", nil, "zones to crawl")
	crawlCmd.Flags().StringSliceVar(&crawlCategories, "categories", nil, "business categories to search")
	crawlCmd.Flags().StringVar(&crawlPlanPath, "plan", "", "YAML plan file with zones and categories")
	crawlCmd.Flags().StringVar(&crawlSnapshot, "snapshot", "", "replay listings from a snapshot file instead of a live session")
	rootCmd.AddCommand(crawlCmd)
}

// resolvePlan merges the --plan file with the flag lists. Flags win when
// both are given.
func resolvePlan() (zones, categories []string, err error) {
	zones, categories = crawlZones, crawlCategories

	if crawlPlanPath != "" {
		raw, err := os.ReadFile(crawlPlanPath)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "read plan %s", crawlPlanPath)
		}
		var plan crawlPlan
		if err := yaml.Unmarshal(raw, &plan); err != nil {
			return nil, nil, eris.Wrapf(err, "parse plan %s", crawlPlanPath)
		}
		if len(zones) == 0 {
			zones = plan.Zones
		}
		if len(categories) == 0 {
			categories = plan.Categories
		}
	}

	if len(zones) == 0 || len(categories) == 0 {
		return nil, nil, eris.New("no zones or categories: pass --zones and --categories, or --plan")
	}
	return zones, categories, nil
}

// newProvider builds the page provider for this run. Only the snapshot
// backend ships in-tree; live browser sessions attach through it by
// recording first.
func newProvider() (*crawler.SnapshotProvider, error) {
	if crawlSnapshot == "" {
		return nil, eris.New("no provider: pass --snapshot with a recorded listings file")
	}
	return crawler.LoadSnapshot(crawlSnapshot)
}

func printSummary(out io.Writer, s model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "run\t%s\n", s.ID)
	_, _ = fmt.Fprintf(w, "duration\t%s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	_, _ = fmt.Fprintf(w, "fresh\t%d\n", s.Fresh)
	_, _ = fmt.Fprintf(w, "cached\t%d\n", s.Cached)
	_, _ = fmt.Fprintf(w, "duplicates\t%d\n", s.Duplicates)
	_, _ = fmt.Fprintf(w, "closed skipped\t%d\n", s.ClosedSkipped)
	_, _ = fmt.Fprintf(w, "micro\t%d\n", s.Micro)
	_, _ = fmt.Fprintf(w, "corporate\t%d\n", s.Corporate)
	_, _ = fmt.Fprintf(w, "pending\t%d\n", s.Pending)
	_, _ = fmt.Fprintf(w, "discarded\t%d\n", s.Discarded)
	_, _ = fmt.Fprintf(w, "new rows\t%d\n", s.NewRows)
	_, _ = fmt.Fprintf(w, "failed pairs\t%d\n", s.FailedPairs)
	_ = w.Flush()
}
