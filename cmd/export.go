package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hacost/leads/internal/export"
	"github.com/hacost/leads/internal/segment"
	"github.com/hacost/leads/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export stored leads to the segment workbooks",
	Long:  "Reclassifies everything in the store with the current segmentation settings and rewrites all workbooks, without crawling.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		leads, err := st.LoadLeads(ctx)
		if err != nil {
			return err
		}

		classifier := segment.NewClassifier(
			cfg.Segmentation.MicroMaxReviews,
			cfg.Segmentation.GoodRatingThreshold,
			cfg.Segmentation.ChainBlacklist,
		)
		sink := export.NewPartitioner()
		for _, lead := range leads {
			lead.Segment = classifier.Classify(lead)
			sink.Add(lead)
		}

		if err := sink.Flush(ctx, cfg.Export.Dir); err != nil {
			return err
		}

		master, micro, corporate, pending := sink.Counts()
		zap.L().Info("export complete",
			zap.Int("leads", len(leads)),
			zap.Int("master", master),
			zap.Int("micro", micro),
			zap.Int("corporate", corporate),
			zap.Int("pending", pending),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
