package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geomark/internal/cache"
	"github.com/sells-group/geomark/internal/shapefile"
)

var loadshpCmd = &cobra.Command{
	Use:   "loadshp",
	Short: "Import an ESRI shapefile into the store",
	Long: `Reads a shapefile and writes one placemark per record, alongside any
KML-sourced data. Attributes become extended data; --name-field promotes one
attribute to the placemark name.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shpPath, _ := cmd.Flags().GetString("shp")
		folder, _ := cmd.Flags().GetString("folder")
		nameField, _ := cmd.Flags().GetString("name-field")
		truncate, _ := cmd.Flags().GetBool("truncate")

		log := zap.L().With(zap.String("command", "loadshp"))
		log.Info("reading shapefile", zap.String("path", shpPath))

		features, err := shapefile.Load(shpPath, shapefile.Options{
			Folder:    folder,
			NameField: nameField,
		})
		if err != nil {
			return eris.Wrap(err, "loadshp")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Import(ctx, nil, features, truncate); err != nil {
			return eris.Wrap(err, "loadshp: store")
		}

		c := cache.New(cfg.Cache)
		defer c.Close() //nolint:errcheck
		if err := c.Flush(ctx); err != nil {
			log.Warn("cache flush failed", zap.Error(err))
		}

		fmt.Printf("imported %d placemarks from %s\n", len(features), shpPath)
		return nil
	},
}

func init() {
	loadshpCmd.Flags().String("shp", "", "path to the .shp file (required)")
	loadshpCmd.Flags().String("folder", "", "folder name assigned to every record")
	loadshpCmd.Flags().String("name-field", "", "attribute to use as the placemark name")
	loadshpCmd.Flags().Bool("truncate", false, "replace existing placemarks instead of appending")
	_ = loadshpCmd.MarkFlagRequired("shp")
	rootCmd.AddCommand(loadshpCmd)
}
