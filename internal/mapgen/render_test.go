package mapgen

import (
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const outDir = "/public"

// Wednesday 10:30.
var checkTime = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func newTestRenderer(t *testing.T) (*Renderer, afero.Fs, *observability.Metrics) {
	t.Helper()
	fs := afero.NewMemMapFs()
	metrics := observability.NewMetricsForTesting()
	r := NewRenderer(fs, outDir, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	return r, fs, metrics
}

func line(coords string) *domain.Geometry {
	return &domain.Geometry{Type: "LineString", Coordinates: json.RawMessage(coords)}
}

func testStreets() domain.FeatureCollection {
	return domain.FeatureCollection{Type: "FeatureCollection", Features: []domain.Feature{
		{
			Type:       "Feature",
			Properties: domain.Properties{"regulation": "No parking any time"},
			Geometry:   line(`[[-122.4505,37.7765],[-122.4500,37.7766]]`),
		},
		{
			Type: "Feature",
			Properties: domain.Properties{
				"regulation": "Time limited",
				"days":       "M-F",
				"hrs_begin":  800.0,
				"hrs_end":    1800.0,
				"from_time":  "8am",
				"to_time":    "6pm",
				"max_hours":  2.0,
				"exceptions": "Area S permits exempt",
			},
			Geometry: &domain.Geometry{Type: "MultiLineString", Coordinates: json.RawMessage(
				`[[[-122.4510,37.7770],[-122.4508,37.7771]],[[-122.4508,37.7771],[-122.4506,37.7772]]]`)},
		},
		{
			Type:       "Feature",
			Properties: domain.Properties{"regulation": "Unregulated"},
			Geometry:   &domain.Geometry{Type: "Point", Coordinates: json.RawMessage(`[-122.45,37.77]`)},
		},
		{Type: "Feature", Properties: domain.Properties{}},
	}}
}

func hotspotTickets() []domain.Citation {
	var out []domain.Citation
	for i := range 16 {
		desc := "STR CLEAN"
		if i%4 == 0 {
			desc = "METER DTN"
		}
		out = append(out, domain.Citation{
			ViolationDesc: desc,
			Point:         domain.Point{Lat: domain.USFCenter.Lat + float64(i)*0.00001, Lon: domain.USFCenter.Lon},
		})
	}
	// Outside the one mile radius.
	out = append(out, domain.Citation{ViolationDesc: "STR CLEAN", Point: domain.Point{Lat: 37.70, Lon: -122.40}})
	return out
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	b, err := afero.ReadFile(fs, filepath.Join(outDir, name))
	require.NoError(t, err)
	return string(b)
}

func TestStatus(t *testing.T) {
	r, fs, metrics := newTestRenderer(t)

	stats, err := r.Status(testStreets(), checkTime)
	require.NoError(t, err)

	assert.Equal(t, Stats{Allowed: 2, Restricted: 1, GeometryErrors: 2}, stats)

	html := readFile(t, fs, StatusFile)
	assert.Contains(t, html, "<title>USF Parking Status</title>")
	assert.Contains(t, html, "Current Parking Status")
	assert.Contains(t, html, "10:30 AM on Wednesday")
	assert.Contains(t, html, "L.Control.geocoder")
	assert.Contains(t, html, "Search streets, addresses...")
	assert.Contains(t, html, ".leaflet-control-geocoder")
	assert.Contains(t, html, `"color":"#FF0000"`)
	assert.NotContains(t, html, "L.heatLayer")
	assert.NotContains(t, html, "Violation Heatmap:")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MapsRendered.WithLabelValues("status")))
}

func TestStatus_Segments(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	lines, _, err := r.segments(testStreets(), checkTime)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	banned := lines[0]
	assert.Equal(t, domain.ColorRed, banned.Color)
	assert.Equal(t, [][2]float64{{37.7765, -122.4505}, {37.7766, -122.45}}, banned.Points)
	assert.Equal(t, "Click for details", banned.Tooltip)
	assert.Contains(t, banned.Popup, "NO PARKING NOW")
	assert.Contains(t, banned.Popup, "<strong>Current Status:</strong> No parking")
	assert.Contains(t, banned.Popup, "<strong>Hours:</strong> N/A - N/A")
	assert.NotContains(t, banned.Popup, "Note:")

	limited := lines[1]
	assert.Equal(t, domain.ColorOrange, limited.Color)
	assert.Len(t, limited.Points, 4)
	assert.Equal(t, "Available: 2hr", limited.Tooltip)
	assert.Contains(t, limited.Popup, "PARKING ALLOWED")
	assert.Contains(t, limited.Popup, "<strong>Days:</strong> M-F")
	assert.Contains(t, limited.Popup, "<strong>Hours:</strong> 8am - 6pm")
	assert.Contains(t, limited.Popup, "2 hour limit")
	assert.Contains(t, limited.Popup, "<strong>Note:</strong> Area S permits exempt")
	assert.Contains(t, limited.Popup, "As of 10:30 AM")
}

func TestStatus_EscapesProperties(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	streets := domain.FeatureCollection{Features: []domain.Feature{{
		Properties: domain.Properties{"regulation": "<script>alert(1)</script>"},
		Geometry:   line(`[[-122.4505,37.7765],[-122.4500,37.7766]]`),
	}}}

	lines, _, err := r.segments(streets, checkTime)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0].Popup, "<script>")
	assert.Contains(t, lines[0].Popup, "&lt;script&gt;")
}

func TestHeatmap(t *testing.T) {
	r, fs, metrics := newTestRenderer(t)

	stats, err := r.Heatmap(hotspotTickets())
	require.NoError(t, err)
	assert.Equal(t, Stats{Hotspots: 1, HeatPoints: 16}, stats)

	html := readFile(t, fs, HeatmapFile)
	assert.Contains(t, html, "L.heatLayer")
	assert.Contains(t, html, "L.circleMarker")
	assert.Contains(t, html, "Cluster: 16 violations (click for details)")
	assert.NotContains(t, html, "L.Control.geocoder")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MapsRendered.WithLabelValues("heatmap")))
}

func TestViolations_HotspotPopup(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	heat, markers, err := r.violations(hotspotTickets())
	require.NoError(t, err)
	assert.Len(t, heat, 16)
	require.Len(t, markers, 1)

	m := markers[0]
	assert.InDelta(t, domain.USFCenter.Lat, m.Lat, 0.001)
	assert.Contains(t, m.Popup, "Cluster #0")
	assert.Contains(t, m.Popup, "<strong>16 violations</strong>")
	assert.Contains(t, m.Popup, "<li>Parked During Street Cleaning... (12)</li>")
	assert.Contains(t, m.Popup, "<li>Downtown Meter Expire Violation... (4)</li>")
}

func TestHeatmap_NoTickets(t *testing.T) {
	r, fs, _ := newTestRenderer(t)

	stats, err := r.Heatmap(nil)
	require.NoError(t, err)
	assert.Zero(t, stats)
	assert.NotContains(t, readFile(t, fs, HeatmapFile), "L.heatLayer")
}

func TestAll(t *testing.T) {
	r, fs, metrics := newTestRenderer(t)

	stats, err := r.All(testStreets(), hotspotTickets(), checkTime)
	require.NoError(t, err)
	assert.Equal(t, Stats{Allowed: 2, Restricted: 1, GeometryErrors: 2, Hotspots: 1, HeatPoints: 16}, stats)

	for _, name := range []string{StatusFile, HeatmapFile, CombinedFile, HomeFile} {
		exists, err := afero.Exists(fs, filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}

	combined := readFile(t, fs, CombinedFile)
	assert.Contains(t, combined, "Parking Map Legend")
	assert.Contains(t, combined, "Parking Zones:")
	assert.Contains(t, combined, "Violation Heatmap:")
	assert.Contains(t, combined, "L.polyline")
	assert.Contains(t, combined, "L.heatLayer")

	home := readFile(t, fs, HomeFile)
	assert.Contains(t, home, "L.Control.geocoder")
	assert.NotContains(t, home, "L.polyline")
	assert.False(t, strings.Contains(home, "Parking Map Legend"))

	for _, kind := range []string{"status", "heatmap", "combined", "home"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MapsRendered.WithLabelValues(kind)), kind)
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))
	assert.Equal(t, strings.Repeat("é", 40), clip(strings.Repeat("é", 45)))
}
