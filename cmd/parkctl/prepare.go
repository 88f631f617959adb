package main

import (
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/adapter/census"
	"github.com/couchcryptid/sf-parking-risk-service/internal/adapter/google"
	"github.com/couchcryptid/sf-parking-risk-service/internal/adapter/socrata"
	"github.com/couchcryptid/sf-parking-risk-service/internal/pipeline"
	"github.com/spf13/cobra"
)

type fetchOptions struct {
	limit    int
	pageSize int
	where    string
	timeout  time.Duration
}

func (o *fetchOptions) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.limit, "limit", 0, "maximum rows to fetch, 0 for all")
	cmd.Flags().IntVar(&o.pageSize, "page-size", socrata.DefaultPageSize, "rows per SODA request")
	cmd.Flags().StringVar(&o.where, "where", "", "SoQL $where filter")
	cmd.Flags().DurationVar(&o.timeout, "timeout", time.Minute, "timeout per page request")
}

func (o *fetchOptions) query() socrata.Query {
	return socrata.Query{Limit: o.limit, PageSize: o.pageSize, Where: o.where}
}

type geocodeOptions struct {
	batchTimeout time.Duration
	noFallback   bool
}

func (o *geocodeOptions) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&o.batchTimeout, "batch-timeout", 10*time.Minute, "timeout per Census batch upload")
	cmd.Flags().BoolVar(&o.noFallback, "no-fallback", false, "skip the Google fallback for unmatched addresses")
}

func (r *rootCommand) source(o *fetchOptions) pipeline.RowSource {
	return socrata.NewClient(r.cfg.DataSFAppToken, o.timeout, r.logger)
}

// geocodePipeline wires the Census batch geocoder and, when a key is set, the
// cached Google fallback. Census progress is checkpointed to the address table.
func (r *rootCommand) geocodePipeline(o *geocodeOptions, stages pipeline.Stages) *pipeline.Pipeline {
	batch := census.NewClient(o.batchTimeout, nil, r.logger, r.metrics)
	stages.Batch = batch

	switch {
	case o.noFallback:
		r.logger.Info("google fallback geocoding disabled by flag")
	case r.cfg.GoogleMapsAPIKey == "":
		r.logger.Info("google fallback geocoding disabled, GOOGLE_MAPS_API not set")
	default:
		client := google.NewClient(r.cfg.GoogleMapsAPIKey, r.cfg.GeocodeTimeout, r.logger, r.metrics)
		stages.Fallback = google.NewCachedGeocoder(client, r.cfg.GeocodeCacheSize, r.metrics)
		r.logger.Info("google fallback geocoding enabled", "cache_size", r.cfg.GeocodeCacheSize, "timeout", r.cfg.GeocodeTimeout)
	}

	p := r.pipeline(stages)
	batch.OnProgress(p.Progress)
	return p
}

func fetchCommand(root *rootCommand) *cobra.Command {
	opts := &fetchOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download parking citations from DataSF",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := root.pipeline(pipeline.Stages{Source: root.source(opts)})
			n, err := p.Fetch(cmd.Context(), opts.query())
			if err != nil {
				return err
			}
			root.printf("fetched %d rows into %s\n", n, root.cfg.RawCSV)
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func filterCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "filter",
		Short: "Keep only tracked curbside violations",
		RunE: func(*cobra.Command, []string) error {
			stats, err := root.pipeline(pipeline.Stages{}).Filter()
			if err != nil {
				return err
			}
			root.printf("kept %d of %d rows in %s\n", stats.Kept, stats.Total, root.cfg.FilteredCSV)
			return nil
		},
	}
}

func geocodeCommand(root *rootCommand) *cobra.Command {
	opts := &geocodeOptions{}
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Geocode citation addresses with the Census batch geocoder",
		Long: `Geocode every distinct citation address in the filtered citations.

Addresses already matched in the address table are reused, so an interrupted
run picks up where it stopped. Addresses the Census geocoder cannot match are
retried against Google when GOOGLE_MAPS_API is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := root.geocodePipeline(opts, pipeline.Stages{}).Geocode(cmd.Context())
			if err != nil {
				return err
			}
			root.printf("matched %d of %d addresses (%d resumed, %d via fallback) into %s\n",
				stats.Matched, stats.Addresses, stats.Resumed, stats.Fallback, root.cfg.AddressesCSV)
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func mergeCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Join filtered citations with geocoded addresses",
		RunE: func(*cobra.Command, []string) error {
			stats, err := root.pipeline(pipeline.Stages{}).Merge()
			if err != nil {
				return err
			}
			root.printf("wrote %d of %d citations with coordinates to %s\n", stats.Kept, stats.Total, root.cfg.TicketsCSV)
			return nil
		},
	}
}

func prepareCommand(root *rootCommand) *cobra.Command {
	fetch := &fetchOptions{}
	geocode := &geocodeOptions{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Run fetch, filter, geocode and merge in order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := root.geocodePipeline(geocode, pipeline.Stages{Source: root.source(fetch)})
			if err := p.Run(cmd.Context(), fetch.query()); err != nil {
				return err
			}
			root.printf("tickets written to %s\n", root.cfg.TicketsCSV)
			return nil
		},
	}
	fetch.register(cmd)
	geocode.register(cmd)
	return cmd
}
