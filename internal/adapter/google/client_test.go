package google

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey     = "test-key"
	testBaseURL = "https://maps.example.test/geocode/json"
)

func testClient(t *testing.T) (*Client, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	c := NewClient(testKey, 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	c.baseURL = testBaseURL
	c.http.SetRetryCount(0)

	httpmock.ActivateNonDefault(c.http.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return c, metrics
}

func TestClient_Geocode_Success(t *testing.T) {
	c, metrics := testClient(t)

	httpmock.RegisterResponder(http.MethodGet, testBaseURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "921 CENTRAL AVE San Francisco CA", req.URL.Query().Get("address"))
		assert.Equal(t, testKey, req.URL.Query().Get("key"))
		return httpmock.NewJsonResponse(http.StatusOK, map[string]any{
			"status": "OK",
			"results": []map[string]any{{
				"formatted_address": "921 Central Ave, San Francisco, CA 94115, USA",
				"geometry":          map[string]any{"location": map[string]any{"lat": 37.7771, "lng": -122.4447}},
			}},
		})
	})

	result, err := c.Geocode(context.Background(), "921 CENTRAL AVE")
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "921 CENTRAL AVE", result.Address)
	assert.Equal(t, 37.7771, result.Point.Lat)
	assert.Equal(t, -122.4447, result.Point.Lon)
	assert.Equal(t, "921 Central Ave, San Francisco, CA 94115, USA", result.FormattedAddress)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("google", "match")))
}

func TestClient_Geocode_ZeroResults(t *testing.T) {
	c, metrics := testClient(t)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL,
		httpmock.NewStringResponder(http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`))

	result, err := c.Geocode(context.Background(), "NOWHERE")
	require.NoError(t, err)

	assert.False(t, result.Matched)
	assert.Equal(t, "NOWHERE", result.Address)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("google", "no_match")))
}

func TestClient_Geocode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusInternalServerError, `oops`, "status 500"},
		{"request denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","results":[]}`, "REQUEST_DENIED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, metrics := testClient(t)
			httpmock.RegisterResponder(http.MethodGet, testBaseURL, httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.Geocode(context.Background(), "2130 FULTON ST")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("google", "error")))
		})
	}
}
