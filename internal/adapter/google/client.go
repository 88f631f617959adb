package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/go-resty/resty/v2"
)

const (
	provider       = "google"
	defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	// citySuffix scopes bare street addresses to San Francisco.
	citySuffix = " San Francisco CA"
)

// Client implements domain.Geocoder using the Google Geocoding API.
type Client struct {
	apiKey  string
	http    *resty.Client
	baseURL string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a Google geocoding client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey: apiKey,
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second),
		baseURL: defaultBaseURL,
		logger:  logger,
		metrics: metrics,
	}
}

// Geocode resolves a San Francisco street address.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	result, err := c.doRequest(ctx, address)
	c.record(result, err)
	return result, err
}

func (c *Client) doRequest(ctx context.Context, address string) (domain.GeocodingResult, error) {
	start := time.Now()
	var body response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"address": address + citySuffix,
			"key":     c.apiKey,
		}).
		SetResult(&body).
		ForceContentType("application/json").
		Get(c.baseURL)
	if c.metrics != nil {
		c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("google geocode request: %w", err)
	}
	if resp.IsError() {
		return domain.GeocodingResult{}, fmt.Errorf("google API error: status %d: %s", resp.StatusCode(), resp.String())
	}

	if len(body.Results) == 0 {
		switch body.Status {
		case "", statusOK, statusZeroResults:
			return domain.GeocodingResult{Address: address}, nil
		default:
			return domain.GeocodingResult{}, fmt.Errorf("google API error: %s: %s", body.Status, body.ErrorMessage)
		}
	}

	r := body.Results[0]
	return domain.GeocodingResult{
		Address:          address,
		Point:            domain.Point{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng},
		FormattedAddress: r.FormattedAddress,
		Matched:          true,
	}, nil
}

func (c *Client) record(result domain.GeocodingResult, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "match"
	switch {
	case err != nil:
		outcome = "error"
	case !result.Matched:
		outcome = "no_match"
	}
	c.metrics.GeocodeRequests.WithLabelValues(provider, outcome).Inc()
}

// Geocoding API response types.

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

type response struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Results      []result `json:"results"`
}

type result struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}
