package main

import (
	"errors"
	"io/fs"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/mapgen"
	"github.com/spf13/cobra"
)

func renderCommand(root *rootCommand) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the status, heatmap, combined and home maps",
		Long: `Render the static Leaflet maps into the front-end public folder.

Segment colors reflect the regulations in force at the time of the run.
Tickets come from TICKETS_CSV, or from CITATIONS_CSV when that file is missing.`,
		RunE: func(*cobra.Command, []string) error {
			if outDir == "" {
				outDir = root.cfg.PublicDir
			}
			loader := root.loader()

			streets, err := loader.Streets(root.cfg.StreetsGeoJSON)
			if err != nil {
				return err
			}
			tickets, err := loader.Tickets(root.cfg.TicketsCSV)
			if errors.Is(err, fs.ErrNotExist) {
				root.logger.Warn("tickets file missing, using citations", "path", root.cfg.TicketsCSV)
				tickets, err = loader.Citations(root.cfg.CitationsCSV)
			}
			if err != nil {
				return err
			}

			renderer := mapgen.NewRenderer(root.fs, outDir, root.logger, root.metrics)
			stats, err := renderer.All(streets, tickets, domain.Now())
			if err != nil {
				return err
			}
			root.printf("rendered maps into %s: %d allowed, %d restricted, %d geometry errors, %d hotspots\n",
				outDir, stats.Allowed, stats.Restricted, stats.GeometryErrors, stats.Hotspots)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default PUBLIC_DIR)")
	return cmd
}
