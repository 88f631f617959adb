// Package census geocodes street addresses in bulk with the US Census Bureau
// batch geocoder. No API key is needed.
package census

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
)

const (
	provider       = "census"
	defaultBaseURL = "https://geocoding.geo.census.gov/geocoder/locations/addressbatch"
	benchmark      = "Public_AR_Current"

	// MaxBatchSize is the largest file the batch endpoint accepts.
	MaxBatchSize = 10000
	// DefaultPause separates consecutive batch uploads.
	DefaultPause = 2 * time.Second
)

// Response columns: id, input address, match status, match type, matched
// address, "lon,lat", TIGER line id, side.
const (
	colID          = 0
	colStatus      = 2
	colMatched     = 4
	colCoordinates = 5
)

// ProgressFunc is called after each batch with the results gathered so far.
type ProgressFunc func(batch, batches int, results []domain.GeocodingResult)

// Client implements domain.BatchGeocoder.
type Client struct {
	http      *resty.Client
	baseURL   string
	batchSize int
	pause     time.Duration
	clock     clockwork.Clock
	progress  ProgressFunc
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewClient creates a Census batch geocoding client. timeout bounds each batch upload.
func NewClient(timeout time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		http:      resty.New().SetTimeout(timeout),
		baseURL:   defaultBaseURL,
		batchSize: MaxBatchSize,
		pause:     DefaultPause,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// OnProgress registers fn to run after every batch.
func (c *Client) OnProgress(fn ProgressFunc) { c.progress = fn }

// GeocodeBatch resolves addresses in batches of up to MaxBatchSize. The result
// slice is parallel to addresses. A failed batch is logged and leaves its
// addresses unmatched; only context cancellation aborts the run.
func (c *Client) GeocodeBatch(ctx context.Context, addresses []string) ([]domain.GeocodingResult, error) {
	results := make([]domain.GeocodingResult, len(addresses))
	for i, a := range addresses {
		results[i].Address = a
	}

	batches := (len(addresses) + c.batchSize - 1) / c.batchSize
	for b := range batches {
		start := b * c.batchSize
		end := min(start+c.batchSize, len(addresses))

		matched, err := c.geocodeChunk(ctx, addresses[start:end], results[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.count("error", end-start)
			c.logger.Warn("census batch failed",
				"batch", b+1,
				"batches", batches,
				"size", end-start,
				"error", err,
			)
		} else {
			c.count("match", matched)
			c.count("no_match", end-start-matched)
			c.logger.Info("census batch complete",
				"batch", b+1,
				"batches", batches,
				"matched", matched,
				"unmatched", end-start-matched,
			)
		}

		if c.progress != nil {
			c.progress(b+1, batches, results)
		}

		if b < batches-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-c.clock.After(c.pause):
			}
		}
	}
	return results, nil
}

// geocodeChunk uploads one batch and fills out, which is parallel to addresses.
func (c *Client) geocodeChunk(ctx context.Context, addresses []string, out []domain.GeocodingResult) (int, error) {
	payload, err := encodeBatch(addresses)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("addressFile", "addresses.csv", "text/csv", bytes.NewReader(payload)).
		SetMultipartFormData(map[string]string{"benchmark": benchmark}).
		Post(c.baseURL)
	if c.metrics != nil {
		c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return 0, fmt.Errorf("census batch request: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("census API error: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	return decodeBatch(bytes.NewReader(resp.Body()), out, c.logger)
}

// encodeBatch writes "id,address,San Francisco,CA," rows.
func encodeBatch(addresses []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for i, a := range addresses {
		if err := w.Write([]string{strconv.Itoa(i), a, "San Francisco", "CA", ""}); err != nil {
			return nil, fmt.Errorf("encode batch: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeBatch parses the response CSV into out and returns the match count.
// Rows that cannot be parsed are logged and skipped.
func decodeBatch(r io.Reader, out []domain.GeocodingResult, logger *slog.Logger) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	matched := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return matched, nil
		}
		if err != nil {
			return matched, fmt.Errorf("decode batch response: %w", err)
		}
		if len(row) <= colCoordinates || row[colStatus] != "Match" {
			continue
		}

		idx, err := strconv.Atoi(strings.TrimSpace(row[colID]))
		if err != nil || idx < 0 || idx >= len(out) {
			logger.Warn("census row has bad id", "id", row[colID])
			continue
		}
		p, err := parseLonLat(row[colCoordinates])
		if err != nil {
			logger.Warn("census row has bad coordinates", "id", idx, "error", err)
			continue
		}

		out[idx].Point = p
		out[idx].FormattedAddress = row[colMatched]
		out[idx].Matched = true
		matched++
	}
}

func parseLonLat(s string) (domain.Point, error) {
	lonStr, latStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Point{}, fmt.Errorf("coordinates %q: want lon,lat", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("latitude: %w", err)
	}
	return domain.Point{Lat: lat, Lon: lon}, nil
}

func (c *Client) count(outcome string, n int) {
	if c.metrics != nil && n > 0 {
		c.metrics.GeocodeRequests.WithLabelValues(provider, outcome).Add(float64(n))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
