package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geomark/internal/cache"
	"github.com/sells-group/geomark/internal/kml"
	"github.com/sells-group/geomark/internal/pipeline"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a KML document into the store",
	Long: `Parses a KML file, flattens its folder tree into placemark records, and
writes them to the configured store in one transaction. Styles are upserted
and survive re-imports; --truncate replaces the placemark set instead of
appending to it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		kmlPath, _ := cmd.Flags().GetString("kml")
		truncate, _ := cmd.Flags().GetBool("truncate")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		limit, _ := cmd.Flags().GetInt("limit")
		workers, _ := cmd.Flags().GetInt("workers")

		if workers == 0 {
			workers = cfg.Import.Workers
		}

		log := zap.L().With(zap.String("command", "import"))
		log.Info("parsing KML", zap.String("path", kmlPath))

		doc, err := kml.ParseFile(kmlPath)
		if err != nil {
			return eris.Wrap(err, "import: parse")
		}

		res, err := pipeline.Run(ctx, doc, pipeline.Options{
			Workers:       workers,
			MediaLinksKey: cfg.Import.MediaLinksKey,
			Limit:         limit,
		})
		if err != nil {
			return eris.Wrap(err, "import: normalize")
		}

		if dryRun {
			fmt.Printf("dry run %s: %d placemarks (%d walked, %d dropped), %d styles\n",
				res.RunID, len(res.Features), res.Walked, res.Dropped, len(res.Styles))
			return nil
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Import(ctx, res.Styles, res.Features, truncate); err != nil {
			return eris.Wrap(err, "import: store")
		}

		c := cache.New(cfg.Cache)
		defer c.Close() //nolint:errcheck
		if err := c.Flush(ctx); err != nil {
			log.Warn("cache flush failed", zap.Error(err))
		}

		fmt.Printf("imported %d placemarks and %d styles (run %s)\n",
			len(res.Features), len(res.Styles), res.RunID)
		return nil
	},
}

func init() {
	importCmd.Flags().String("kml", "", "path to the KML file (required)")
	importCmd.Flags().Bool("truncate", false, "replace existing placemarks instead of appending")
	importCmd.Flags().Bool("dry-run", false, "parse and normalize without writing")
	importCmd.Flags().Int("limit", 0, "cap on imported placemarks (0 = no limit)")
	importCmd.Flags().Int("workers", 0, "normalization workers (default: from config)")
	_ = importCmd.MarkFlagRequired("kml")
	rootCmd.AddCommand(importCmd)
}
