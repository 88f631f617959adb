// Package pipeline runs the offline data preparation stages that turn the
// DataSF citation export into geocoded tickets: fetch, filter, geocode, merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/adapter/socrata"
	"github.com/couchcryptid/sf-parking-risk-service/internal/dataset"
	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/spf13/afero"
)

// AddressColumn holds the street address each citation was issued at.
const AddressColumn = "citation_location"

// ErrStageUnavailable is returned when a stage runs without its dependency.
var ErrStageUnavailable = errors.New("stage dependency not configured")

// RowSource pulls raw citation rows from the open data portal.
type RowSource interface {
	Fetch(ctx context.Context, q socrata.Query) ([]map[string]string, error)
}

// Paths names the files the stages read and write.
type Paths struct {
	Raw       string // fetched citations
	Filtered  string // tracked violations only
	Addresses string // address,latitude,longitude
	Tickets   string // filtered citations with coordinates
}

// Stages holds the external services. Each may be nil when its stage is not run.
type Stages struct {
	Source   RowSource
	Batch    domain.BatchGeocoder
	Fallback domain.Geocoder
}

// GeocodeStats summarises a geocode stage run.
type GeocodeStats struct {
	Addresses int
	Resumed   int
	Matched   int
	Fallback  int
}

// Pipeline orchestrates the data preparation stages over a filesystem.
type Pipeline struct {
	fs      afero.Fs
	paths   Paths
	stages  Stages
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	resolved []domain.GeocodingResult
}

// New creates a Pipeline.
func New(fs afero.Fs, paths Paths, stages Stages, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fs:      fs,
		paths:   paths,
		stages:  stages,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes every stage in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, q socrata.Query) error {
	p.logger.Info("pipeline started", "raw", p.paths.Raw, "tickets", p.paths.Tickets)

	if _, err := p.Fetch(ctx, q); err != nil {
		return err
	}
	if _, err := p.Filter(); err != nil {
		return err
	}
	if _, err := p.Geocode(ctx); err != nil {
		return err
	}
	if _, err := p.Merge(); err != nil {
		return err
	}

	p.logger.Info("pipeline complete")
	return nil
}

// Fetch downloads citation rows and writes them to Paths.Raw.
func (p *Pipeline) Fetch(ctx context.Context, q socrata.Query) (int, error) {
	var n int
	err := p.stage("fetch", func() error {
		if p.stages.Source == nil {
			return fmt.Errorf("citation source: %w", ErrStageUnavailable)
		}
		rows, err := p.stages.Source.Fetch(ctx, q)
		if err != nil {
			return err
		}
		n = len(rows)
		return dataset.WriteRecords(p.fs, p.paths.Raw, rows)
	})
	return n, err
}

// Filter keeps the tracked curbside violations from Paths.Raw.
func (p *Pipeline) Filter() (dataset.FilterStats, error) {
	var stats dataset.FilterStats
	err := p.stage("filter", func() error {
		var err error
		stats, err = dataset.FilterViolations(p.fs, p.paths.Raw, p.paths.Filtered)
		return err
	})
	return stats, err
}

// Geocode resolves every distinct citation address in Paths.Filtered and
// writes the address table. Addresses already matched in an existing table are
// reused, so an interrupted run resumes. Addresses the batch geocoder misses
// go to the fallback geocoder when one is configured.
func (p *Pipeline) Geocode(ctx context.Context) (GeocodeStats, error) {
	var stats GeocodeStats
	err := p.stage("geocode", func() error {
		if p.stages.Batch == nil {
			return fmt.Errorf("batch geocoder: %w", ErrStageUnavailable)
		}

		addresses, err := dataset.UniqueAddresses(p.fs, p.paths.Filtered, AddressColumn)
		if err != nil {
			return err
		}
		previous, err := p.previousMatches()
		if err != nil {
			return err
		}

		var resolved []domain.GeocodingResult
		var pending []string
		for _, a := range addresses {
			if r, ok := previous[a]; ok {
				resolved = append(resolved, r)
				continue
			}
			pending = append(pending, a)
		}
		stats.Addresses = len(addresses)
		stats.Resumed = len(resolved)
		p.setCheckpoint(resolved)

		p.logger.Info("geocoding addresses", "total", len(addresses), "resumed", len(resolved), "pending", len(pending))
		results, err := p.stages.Batch.GeocodeBatch(ctx, pending)
		all := make([]domain.GeocodingResult, 0, len(resolved)+len(results))
		all = append(append(all, resolved...), results...)
		if err != nil {
			if werr := dataset.WriteAddressTable(p.fs, p.paths.Addresses, all); werr != nil {
				p.logger.Error("failed to save geocode checkpoint", "error", werr)
			}
			return err
		}

		stats.Fallback = domain.FillUnmatched(ctx, all, p.stages.Fallback, p.logger)
		for _, r := range all {
			if r.Matched {
				stats.Matched++
			}
		}
		return dataset.WriteAddressTable(p.fs, p.paths.Addresses, all)
	})
	return stats, err
}

// Progress saves the addresses resolved so far. It matches the batch
// geocoder's progress callback and only has effect during Geocode.
func (p *Pipeline) Progress(batch, batches int, partial []domain.GeocodingResult) {
	p.mu.Lock()
	all := append(append([]domain.GeocodingResult(nil), p.resolved...), partial...)
	p.mu.Unlock()

	if err := dataset.WriteAddressTable(p.fs, p.paths.Addresses, all); err != nil {
		p.logger.Error("failed to save geocode checkpoint", "batch", batch, "error", err)
		return
	}
	p.logger.Info("geocode checkpoint saved", "batch", batch, "batches", batches, "rows", len(all))
}

// Merge joins the filtered citations with the address table into Paths.Tickets.
func (p *Pipeline) Merge() (dataset.FilterStats, error) {
	var stats dataset.FilterStats
	err := p.stage("merge", func() error {
		var err error
		stats, err = dataset.MergeCoordinates(p.fs, p.paths.Filtered, p.paths.Addresses, p.paths.Tickets)
		return err
	})
	return stats, err
}

func (p *Pipeline) previousMatches() (map[string]domain.GeocodingResult, error) {
	exists, err := afero.Exists(p.fs, p.paths.Addresses)
	if err != nil || !exists {
		return nil, err
	}
	results, err := dataset.ReadAddressResults(p.fs, p.paths.Addresses)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.GeocodingResult, len(results))
	for _, r := range results {
		if r.Matched {
			out[r.Address] = r
		}
	}
	return out, nil
}

func (p *Pipeline) setCheckpoint(resolved []domain.GeocodingResult) {
	p.mu.Lock()
	p.resolved = resolved
	p.mu.Unlock()
}

// stage times fn and records its outcome.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if p.metrics != nil {
		p.metrics.StageRuns.WithLabelValues(name, outcome).Inc()
		p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}

	if err != nil {
		p.logger.Error("stage failed", "stage", name, "duration", elapsed, "error", err)
		return fmt.Errorf("%s stage: %w", name, err)
	}
	p.logger.Info("stage complete", "stage", name, "duration", elapsed)
	return nil
}
