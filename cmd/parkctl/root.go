package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/sf-parking-risk-service/internal/config"
	"github.com/couchcryptid/sf-parking-risk-service/internal/dataset"
	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/couchcryptid/sf-parking-risk-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type rootCommand struct {
	cmd     *cobra.Command
	fs      afero.Fs
	out     io.Writer
	envFile string

	// Set by init before any sub-command runs.
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func newRootCommand(fs afero.Fs, out io.Writer) *rootCommand {
	root := &rootCommand{fs: fs, out: out}
	root.cmd = &cobra.Command{
		Use:          "parkctl",
		Short:        "Prepare parking citation data and render USF parking maps",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return root.init()
		},
	}
	root.cmd.SetOut(out)
	root.cmd.PersistentFlags().StringVar(&root.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.cmd.AddCommand(
		fetchCommand(root),
		filterCommand(root),
		geocodeCommand(root),
		mergeCommand(root),
		prepareCommand(root),
		renderCommand(root),
		validateCommand(root),
	)
	return root
}

func (r *rootCommand) init() error {
	if err := config.LoadDotEnv(r.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	r.cfg = cfg
	r.logger = sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	r.metrics = observability.NewMetrics()
	domain.SetLocation(cfg.Location)
	return nil
}

func (r *rootCommand) paths() pipeline.Paths {
	return pipeline.Paths{
		Raw:       r.cfg.RawCSV,
		Filtered:  r.cfg.FilteredCSV,
		Addresses: r.cfg.AddressesCSV,
		Tickets:   r.cfg.TicketsCSV,
	}
}

func (r *rootCommand) pipeline(stages pipeline.Stages) *pipeline.Pipeline {
	return pipeline.New(r.fs, r.paths(), stages, r.logger, r.metrics)
}

func (r *rootCommand) loader() *dataset.Loader {
	return dataset.NewLoader(r.fs, r.cfg.Location, r.logger, r.metrics)
}

func (r *rootCommand) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...) //nolint:errcheck // best-effort console output
}
