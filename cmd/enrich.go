package main

import (
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hacost/leads/internal/crawler"
	"github.com/hacost/leads/internal/enrich"
	"github.com/hacost/leads/internal/export"
	"github.com/hacost/leads/internal/store"
)

var enrichSnapshot string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Retry contact extraction for phoneless leads",
	Long:  "Looks up stored leads without a phone on their business profile, updates found contacts in place and rewrites the pending workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if enrichSnapshot == "" {
			return eris.New("no provider: pass --snapshot with a recorded listings file")
		}
		provider, err := crawler.LoadSnapshot(enrichSnapshot)
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

		res, err := enrich.New(provider, st, cfg.Crawl.ListingsPerSec).Run(ctx)
		if err != nil {
			return err
		}

		pending, err := st.PendingLeads(ctx)
		if err != nil {
			return err
		}
		path := filepath.Join(cfg.Export.Dir, export.FilePending)
		if err := export.WriteXLSX(path, pending); err != nil {
			return err
		}

		zap.L().Info("enrich complete",
			zap.Int("scanned", res.Scanned),
			zap.Int("enriched", res.Enriched),
			zap.Int("missing", res.Missing),
			zap.Int("skipped", res.Skipped),
			zap.Int("failed", res.Failed),
			zap.Int("still_pending", len(pending)),
		)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichSnapshot, "snapshot", "", "replay profiles from a snapshot file instead of a live session")
	rootCmd.AddCommand(enrichCmd)
}
