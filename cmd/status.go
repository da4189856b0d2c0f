package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store contents summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		fmt.Printf("placemarks: %d\n", stats.TotalPlacemarks)
		fmt.Printf("styles:     %d\n", stats.TotalStyles)

		if len(stats.GeometryTypes) > 0 {
			fmt.Println("geometry types:")
			for _, gtype := range sortedKeys(stats.GeometryTypes) {
				fmt.Printf("  %-12s %d\n", gtype, stats.GeometryTypes[gtype])
			}
		}
		if len(stats.TopFolders) > 0 {
			fmt.Println("top folders:")
			for _, folder := range sortedKeys(stats.TopFolders) {
				fmt.Printf("  %-24s %d\n", folder, stats.TopFolders[folder])
			}
		}
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
