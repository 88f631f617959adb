package domain

import (
	"context"
	"log/slog"
)

// FillUnmatched retries unmatched addresses against a single-address geocoder.
// Failures are logged and leave the row unmatched (graceful degradation).
// It returns the number of addresses the fallback resolved.
func FillUnmatched(ctx context.Context, results []GeocodingResult, fallback Geocoder, logger *slog.Logger) int {
	if fallback == nil {
		return 0
	}

	filled := 0
	for i, r := range results {
		if r.Matched || r.Address == "" {
			continue
		}
		if ctx.Err() != nil {
			logger.Warn("fallback geocoding interrupted", "remaining", len(results)-i, "error", ctx.Err())
			return filled
		}

		result, err := fallback.Geocode(ctx, r.Address)
		if err != nil {
			logger.Warn("fallback geocoding failed", "address", r.Address, "error", err)
			continue
		}
		if !result.Matched || result.Point.IsZero() {
			logger.Debug("fallback geocoding found no match", "address", r.Address)
			continue
		}

		result.Address = r.Address
		results[i] = result
		filled++
	}
	return filled
}
