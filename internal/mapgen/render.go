// Package mapgen renders the static Leaflet maps served from the front-end
// public folder: current parking status, the violation heatmap, both combined,
// and a bare home map with address search.
package mapgen

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/analysis"
	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/spf13/afero"
)

// Output file names inside the public folder.
const (
	StatusFile   = "usf_parking_current_status.html"
	HeatmapFile  = "usf_parking_heatmap.html"
	CombinedFile = "usf_parking_combined.html"
	HomeFile     = "Home_Map.html"

	DefaultZoom = 16
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("mapgen").
		Funcs(template.FuncMap{"clip": clip}).
		ParseFS(templateFS, "templates/*.tmpl"),
)

// Stats summarises one rendering run.
type Stats struct {
	Allowed        int
	Restricted     int
	GeometryErrors int
	Hotspots       int
	HeatPoints     int
}

// Renderer writes map documents to dir on fs.
type Renderer struct {
	fs      afero.Fs
	dir     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRenderer creates a Renderer writing into dir.
func NewRenderer(fs afero.Fs, dir string, logger *slog.Logger, metrics *observability.Metrics) *Renderer {
	return &Renderer{fs: fs, dir: dir, logger: logger, metrics: metrics}
}

type page struct {
	Title   string
	Center  domain.Point
	Zoom    int
	Search  bool
	Lines   []segment
	Heat    [][2]float64
	Markers []marker
	Legend  *legend
}

type segment struct {
	Points  [][2]float64 `json:"points"`
	Color   string       `json:"color"`
	Popup   string       `json:"popup"`
	Tooltip string       `json:"tooltip"`
}

type marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Popup   string  `json:"popup"`
	Tooltip string  `json:"tooltip"`
}

type legend struct {
	Title     string
	CheckedAt string
	Heatmap   bool
}

type segmentPopup struct {
	Allowed    bool
	Regulation string
	Days       string
	From       string
	To         string
	Status     string
	Note       string
	AsOf       string
}

func newPage(title string) page {
	return page{Title: title, Center: domain.USFCenter, Zoom: DefaultZoom}
}

// Status renders the regulation segments colored by their availability at t.
func (r *Renderer) Status(streets domain.FeatureCollection, at time.Time) (Stats, error) {
	lines, stats, err := r.segments(streets, at)
	if err != nil {
		return stats, err
	}

	p := newPage("USF Parking Status")
	p.Search = true
	p.Lines = lines
	p.Legend = &legend{Title: "Current Parking Status", CheckedAt: checkedAt(at)}
	return stats, r.write(StatusFile, "status", p)
}

// Heatmap renders the tickets within a mile of USF as a heat layer with
// violation hotspots on top.
func (r *Renderer) Heatmap(tickets []domain.Citation) (Stats, error) {
	heat, markers, err := r.violations(tickets)
	if err != nil {
		return Stats{}, err
	}

	p := newPage("USF Parking Violations")
	p.Heat = heat
	p.Markers = markers
	stats := Stats{Hotspots: len(markers), HeatPoints: len(heat)}
	return stats, r.write(HeatmapFile, "heatmap", p)
}

// Combined renders the status segments and the violation layers on one map.
func (r *Renderer) Combined(streets domain.FeatureCollection, tickets []domain.Citation, at time.Time) (Stats, error) {
	lines, stats, err := r.segments(streets, at)
	if err != nil {
		return stats, err
	}
	heat, markers, err := r.violations(tickets)
	if err != nil {
		return stats, err
	}
	stats.Hotspots = len(markers)
	stats.HeatPoints = len(heat)

	p := newPage("USF Parking Map")
	p.Search = true
	p.Lines = lines
	p.Heat = heat
	p.Markers = markers
	p.Legend = &legend{Title: "Parking Map Legend", CheckedAt: checkedAt(at), Heatmap: true}
	return stats, r.write(CombinedFile, "combined", p)
}

// Home renders the bare map with only the search bar.
func (r *Renderer) Home() error {
	p := newPage("USF Parking")
	p.Search = true
	return r.write(HomeFile, "home", p)
}

// All renders every map and returns the combined map's stats.
func (r *Renderer) All(streets domain.FeatureCollection, tickets []domain.Citation, at time.Time) (Stats, error) {
	if _, err := r.Status(streets, at); err != nil {
		return Stats{}, err
	}
	if _, err := r.Heatmap(tickets); err != nil {
		return Stats{}, err
	}
	stats, err := r.Combined(streets, tickets, at)
	if err != nil {
		return stats, err
	}
	if err := r.Home(); err != nil {
		return stats, err
	}

	r.logger.Info("maps rendered",
		"dir", r.dir,
		"allowed", stats.Allowed,
		"restricted", stats.Restricted,
		"geometry_errors", stats.GeometryErrors,
		"hotspots", stats.Hotspots,
		"heat_points", stats.HeatPoints,
	)
	return stats, nil
}

// segments converts each regulation feature into a colored polyline.
// Features are counted as allowed or restricted before their geometry is
// converted, so a segment with bad coordinates still shows up in the totals.
func (r *Renderer) segments(streets domain.FeatureCollection, at time.Time) ([]segment, Stats, error) {
	var stats Stats
	lines := make([]segment, 0, len(streets.Features))
	for i, f := range streets.Features {
		if f.Geometry == nil {
			stats.GeometryErrors++
			continue
		}

		avail := domain.ParkingAllowedAt(f.Properties, at)
		if avail.Allowed {
			stats.Allowed++
		} else {
			stats.Restricted++
		}

		points, err := domain.Polyline(f.Geometry)
		if err != nil {
			stats.GeometryErrors++
			r.logger.Debug("skipping segment geometry", "feature", i, "error", err)
			continue
		}

		popup, err := render("segment-popup", newSegmentPopup(f.Properties, avail, at))
		if err != nil {
			return nil, stats, err
		}
		lines = append(lines, segment{
			Points:  latLons(points),
			Color:   avail.Color(),
			Popup:   popup,
			Tooltip: avail.Tooltip(),
		})
	}
	return lines, stats, nil
}

func newSegmentPopup(p domain.Properties, avail domain.Availability, at time.Time) segmentPopup {
	note := p.Text("exceptions")
	if note == "N/A" {
		note = ""
	}
	return segmentPopup{
		Allowed:    avail.Allowed,
		Regulation: p.Display("regulation"),
		Days:       p.Display("days"),
		From:       p.Display("from_time"),
		To:         p.Display("to_time"),
		Status:     avail.Status(),
		Note:       note,
		AsOf:       at.Format("03:04 PM"),
	}
}

// violations builds the heat layer and hotspot markers for tickets near USF.
func (r *Renderer) violations(tickets []domain.Citation) ([][2]float64, []marker, error) {
	near := analysis.WithinRadius(tickets, domain.USFCenter, analysis.TicketRadiusMiles)
	hotspots := analysis.Hotspots(near)

	markers := make([]marker, 0, len(hotspots))
	for _, h := range hotspots {
		popup, err := render("hotspot-popup", h)
		if err != nil {
			return nil, nil, err
		}
		markers = append(markers, marker{
			Lat:     h.Center.Lat,
			Lon:     h.Center.Lon,
			Popup:   popup,
			Tooltip: fmt.Sprintf("Cluster: %d violations (click for details)", h.Count),
		})
	}
	return analysis.HeatPoints(near), markers, nil
}

func (r *Renderer) write(name, kind string, p page) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "page", p); err != nil {
		return fmt.Errorf("render %s map: %w", kind, err)
	}
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", r.dir, err)
	}
	path := filepath.Join(r.dir, name)
	if err := afero.WriteFile(r.fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if r.metrics != nil {
		r.metrics.MapsRendered.WithLabelValues(kind).Inc()
	}
	r.logger.Debug("map written", "map", kind, "path", path, "bytes", buf.Len())
	return nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func latLons(points []domain.Point) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.Lat, p.Lon}
	}
	return out
}

func checkedAt(t time.Time) string {
	return t.Format("03:04 PM on Monday")
}

// clip keeps the first 40 characters of a violation description.
func clip(s string) string {
	r := []rune(s)
	if len(r) > 40 {
		r = r[:40]
	}
	return string(r)
}
