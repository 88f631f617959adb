package dataset

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

// The header carries the UTF-8 byte order mark Excel writes.
const citationsCSV = "\uFEFF" + `Citation_Number,Citation_Issued_DateTime,Citation_Location,Violation,Violation_Desc,latitude,longitude
100,2024-05-02T14:00:00.000,2130 FULTON ST,TRC7.2.22,STR CLEAN,37.7765,-122.4505
101,2024-05-01 09:15:00,2200 FULTON ST,V5200,NO PERMIT,37.7770,-122.4510
102,2024-05-01 10:00:00,UNKNOWN,V5200,NO PERMIT,,
103,not-a-date,2300 FULTON ST,V5200,NO PERMIT,37.7780,-122.4520
104,2024-05-01 11:00:00,2400 FULTON ST,V5200,NO PERMIT,north,-122.4520
105,2024-05-01 12:00:00,2500 FULTON ST,V5200,NO PERMIT,NAN,-122.4520
106,2024-05-01 12:30:00,2600 FULTON ST,V5200,NO PERMIT,37.7780,-Inf
`

func TestLoaderCitations(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "data/citations.csv", citationsCSV)
	metrics := observability.NewMetricsForTesting()
	loader := NewLoader(fs, time.UTC, discardLogger(), metrics)

	citations, err := loader.Citations("data/citations.csv")
	require.NoError(t, err)
	require.Len(t, citations, 2)
	for _, c := range citations {
		assert.False(t, math.IsNaN(c.Point.Lat), c.Number)
	}

	// Sorted by issue time.
	assert.Equal(t, "101", citations[0].Number)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC), citations[0].IssuedAt)
	assert.Equal(t, "2200 FULTON ST", citations[0].Location)
	assert.Equal(t, "NO PERMIT", citations[0].ViolationDesc)
	assert.Equal(t, domain.Point{Lat: 37.7770, Lon: -122.4510}, citations[0].Point)
	assert.Equal(t, "100", citations[1].Number)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RowsLoaded.WithLabelValues("citations")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RowsSkipped.WithLabelValues("citations", "missing_coordinates")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsSkipped.WithLabelValues("citations", "bad_timestamp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RowsSkipped.WithLabelValues("citations", "bad_coordinates")))
}

func TestLoaderCitations_SplitDateAndTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "c.csv", "issue_date,issue_time,latitude,longitude\n2024-05-01,09:15,37.7,-122.4\n")
	loc := time.FixedZone("PDT", -7*60*60)

	citations, err := NewLoader(fs, loc, discardLogger(), nil).Citations("c.csv")
	require.NoError(t, err)
	require.Len(t, citations, 1)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 15, 0, 0, loc), citations[0].IssuedAt)
}

func TestLoaderCitations_MissingCoordinateColumns(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "c.csv", "citation_number,issue_datetime\n1,2024-05-01 09:00:00\n")

	_, err := NewLoader(fs, nil, discardLogger(), nil).Citations("c.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude")
}

func TestLoaderCitations_MissingFile(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs(), nil, discardLogger(), nil).Citations("nope.csv")
	require.Error(t, err)
}

func TestLoaderCitations_EmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "c.csv", "")

	_, err := NewLoader(fs, nil, discardLogger(), nil).Citations("c.csv")
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestLoaderTickets_DropsZeroCoordinates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "t.csv", "violation_desc,latitude,longitude\nSTR CLEAN,37.77,-122.45\nFIRE HYD,0,0\nRED ZONE,37.78,-122.44\n")

	tickets, err := NewLoader(fs, nil, discardLogger(), nil).Tickets("t.csv")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.True(t, tickets[0].IssuedAt.IsZero())
	assert.Equal(t, "RED ZONE", tickets[1].ViolationDesc)
}

func TestLoaderStreets(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "streets.json", `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"DAYS":"M-F","HRS_BEGIN":800},"geometry":{"type":"LineString","coordinates":[[-122.45,37.77],[-122.44,37.77]]}},
		{"type":"Feature","properties":null,"geometry":null}
	]}`)

	fc, err := NewLoader(fs, nil, discardLogger(), nil).Streets("streets.json")
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "M-F", fc.Features[0].Properties.Days())
	assert.Equal(t, 800.0, fc.Features[0].Properties["HRS_BEGIN"])
	assert.NotNil(t, fc.Features[1].Properties)
	assert.Nil(t, fc.Features[1].Geometry)
}

func TestLoaderStreets_Malformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "streets.json", `{"features": [`)

	_, err := NewLoader(fs, nil, discardLogger(), nil).Streets("streets.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode streets.json")
}

func TestFilterViolations(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "raw.csv", "citation_number,violation_desc\n1,STR CLEAN\n2,DBL PARK\n3,FIRE HYD\n")

	stats, err := FilterViolations(fs, "raw.csv", "out/filtered.csv")
	require.NoError(t, err)
	assert.Equal(t, FilterStats{Total: 3, Kept: 2}, stats)

	out, err := afero.ReadFile(fs, "out/filtered.csv")
	require.NoError(t, err)
	assert.Equal(t, "citation_number,violation_desc\n1,STR CLEAN\n3,FIRE HYD\n", string(out))
}

func TestUniqueAddresses(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "t.csv", "citation_location\n2130 FULTON ST\n\n 2130 FULTON ST \n1 LONE MOUNTAIN\n")

	addrs, err := UniqueAddresses(fs, "t.csv", "citation_location")
	require.NoError(t, err)
	assert.Equal(t, []string{"2130 FULTON ST", "1 LONE MOUNTAIN"}, addrs)
}

func TestAddressTableRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	results := []domain.GeocodingResult{
		{Address: "2130 Fulton St", Matched: true, Point: domain.Point{Lat: 37.7765, Lon: -122.4505}},
		{Address: "Nowhere"},
	}
	require.NoError(t, WriteAddressTable(fs, "addr.csv", results))

	lookup, err := ReadAddressTable(fs, "addr.csv")
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Point{"2130 FULTON ST": {Lat: 37.7765, Lon: -122.4505}}, lookup)

	back, err := ReadAddressResults(fs, "addr.csv")
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.True(t, back[0].Matched)
	assert.False(t, back[1].Matched)
	assert.Equal(t, "Nowhere", back[1].Address)
}

func TestMergeCoordinates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "tickets.csv", "Citation_Number,Citation_Location,Latitude\n1,2130 fulton st,\n2,UNKNOWN,\n3,1 LONE MOUNTAIN\n")
	writeFile(t, fs, "addr.csv", "address,latitude,longitude\n2130 FULTON ST,37.7765,-122.4505\n1 Lone Mountain,37.7800,-122.4500\nUNKNOWN,,\n")

	stats, err := MergeCoordinates(fs, "tickets.csv", "addr.csv", "merged.csv")
	require.NoError(t, err)
	assert.Equal(t, FilterStats{Total: 3, Kept: 2}, stats)

	out, err := afero.ReadFile(fs, "merged.csv")
	require.NoError(t, err)
	assert.Equal(t,
		"citation_number,citation_location,latitude,longitude\n"+
			"1,2130 fulton st,37.7765,-122.4505\n"+
			"3,1 LONE MOUNTAIN,37.78,-122.45\n",
		string(out))
}

func TestWriteRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	records := []map[string]string{
		{"citation_number": "1", "violation_desc": "STR CLEAN"},
		{"citation_number": "2", "latitude": "37.7"},
	}
	require.NoError(t, WriteRecords(fs, "raw.csv", records))

	out, err := afero.ReadFile(fs, "raw.csv")
	require.NoError(t, err)
	assert.Equal(t, "citation_number,latitude,violation_desc\n1,,STR CLEAN\n2,37.7,\n", string(out))
}

func TestNewTable_StripsByteOrderMark(t *testing.T) {
	table := NewTable([]string{"\uFEFFcitation_number", " Latitude "}, [][]string{{"7", "37.7"}})

	assert.True(t, table.Has("citation_number"))
	assert.Equal(t, "7", table.Get(table.Rows[0], "citation_number"))
	assert.Equal(t, "37.7", table.Get(table.Rows[0], "latitude"))
}
