package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/spf13/afero"
)

// Skip reasons, used as metric labels.
const (
	reasonMissingCoordinates = "missing_coordinates"
	reasonBadCoordinates     = "bad_coordinates"
	reasonBadTimestamp       = "bad_timestamp"
)

var errMissingCoordinates = errors.New("missing coordinates")

// timestampLayouts covers the DataSF export, pandas output and split date/time columns.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006 1504",
	time.RFC3339,
}

// Loader reads citation and regulation datasets.
type Loader struct {
	fs      afero.Fs
	loc     *time.Location
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader. Naive timestamps are read in loc.
func NewLoader(fs afero.Fs, loc *time.Location, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{fs: fs, loc: loc, logger: logger, metrics: metrics}
}

// Citations loads geocoded citations for risk modelling. Rows without usable
// coordinates or timestamp are skipped with a warning. Results are sorted by
// issue time.
func (l *Loader) Citations(path string) ([]domain.Citation, error) {
	citations, err := l.load(path, "citations", true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].IssuedAt.Before(citations[j].IssuedAt)
	})
	return citations, nil
}

// Tickets loads geocoded tickets for heat maps. Timestamps are optional and
// zero coordinates are treated as missing.
func (l *Loader) Tickets(path string) ([]domain.Citation, error) {
	return l.load(path, "tickets", false)
}

func (l *Loader) load(path, dataset string, requireTime bool) ([]domain.Citation, error) {
	table, err := ReadTable(l.fs, path)
	if err != nil {
		return nil, err
	}
	if !table.Has("latitude") || !table.Has("longitude") {
		return nil, fmt.Errorf("%s: latitude and longitude columns are required", filepath.Base(path))
	}

	citations := make([]domain.Citation, 0, len(table.Rows))
	for i, row := range table.Rows {
		line := i + 2

		point, err := parsePoint(table.Get(row, "latitude"), table.Get(row, "longitude"))
		if err != nil {
			reason := reasonBadCoordinates
			if errors.Is(err, errMissingCoordinates) {
				reason = reasonMissingCoordinates
			}
			l.skip(dataset, reason, path, line, err)
			continue
		}
		if !requireTime && point.IsZero() {
			l.skip(dataset, reasonMissingCoordinates, path, line, errMissingCoordinates)
			continue
		}

		issuedAt, err := l.parseIssuedAt(table, row)
		if err != nil && requireTime {
			l.skip(dataset, reasonBadTimestamp, path, line, err)
			continue
		}

		citations = append(citations, domain.Citation{
			Number:        table.Get(row, "citation_number"),
			IssuedAt:      issuedAt,
			Location:      table.Get(row, "citation_location"),
			Violation:     table.Get(row, "violation"),
			ViolationDesc: table.Get(row, "violation_desc"),
			Point:         point,
		})
	}

	if l.metrics != nil {
		l.metrics.RowsLoaded.WithLabelValues(dataset).Add(float64(len(citations)))
	}
	l.logger.Info("dataset loaded",
		"dataset", dataset,
		"path", path,
		"rows", len(table.Rows),
		"loaded", len(citations),
	)
	return citations, nil
}

func (l *Loader) skip(dataset, reason, path string, line int, err error) {
	if l.metrics != nil {
		l.metrics.RowsSkipped.WithLabelValues(dataset, reason).Inc()
	}
	l.logger.Warn("skipping malformed row",
		"dataset", dataset,
		"path", path,
		"line", line,
		"reason", reason,
		"error", err,
	)
}

func (l *Loader) parseIssuedAt(table *Table, row []string) (time.Time, error) {
	raw := table.Get(row, "issue_datetime")
	if raw == "" {
		raw = table.Get(row, "citation_issued_datetime")
	}
	if raw == "" {
		date, clock := table.Get(row, "issue_date"), table.Get(row, "issue_time")
		if date != "" && clock != "" {
			raw = date + " " + clock
		}
	}
	if raw == "" {
		return time.Time{}, errors.New("missing issue timestamp")
	}
	return parseTimestamp(raw, l.loc)
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func parsePoint(lat, lon string) (domain.Point, error) {
	if lat == "" || lon == "" || isNaN(lat) || isNaN(lon) {
		return domain.Point{}, errMissingCoordinates
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("parse latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return domain.Point{}, fmt.Errorf("parse longitude %q: %w", lon, err)
	}
	if !finite(la) || !finite(lo) {
		return domain.Point{}, errMissingCoordinates
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return domain.Point{}, fmt.Errorf("coordinates out of range: %v,%v", la, lo)
	}
	return domain.Point{Lat: la, Lon: lo}, nil
}

func isNaN(s string) bool {
	return strings.EqualFold(s, "nan") || s == "NA" || s == "null"
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
