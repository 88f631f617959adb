package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/spf13/afero"
)

// Address table columns.
var addressHeader = []string{"address", "latitude", "longitude"}

// FilterStats summarises a filter or merge run.
type FilterStats struct {
	Total int
	Kept  int
}

// FilterViolations copies in to out keeping only rows whose violation_desc is
// a tracked curbside violation.
func FilterViolations(fs afero.Fs, in, out string) (FilterStats, error) {
	table, err := ReadTable(fs, in)
	if err != nil {
		return FilterStats{}, err
	}
	if !table.Has("violation_desc") {
		return FilterStats{}, fmt.Errorf("%s: violation_desc column is required", in)
	}

	kept := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if domain.IsTrackedViolation(table.Get(row, "violation_desc")) {
			kept = append(kept, row)
		}
	}

	if err := WriteTable(fs, out, table.Header, kept); err != nil {
		return FilterStats{}, err
	}
	return FilterStats{Total: len(table.Rows), Kept: len(kept)}, nil
}

// UniqueAddresses returns the distinct non-empty values of col in first-seen order.
func UniqueAddresses(fs afero.Fs, path, col string) ([]string, error) {
	table, err := ReadTable(fs, path)
	if err != nil {
		return nil, err
	}
	if !table.Has(col) {
		return nil, fmt.Errorf("%s: %s column is required", path, col)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, row := range table.Rows {
		addr := table.Get(row, col)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out, nil
}

// WriteAddressTable writes geocoding results. Unmatched addresses keep empty coordinates.
func WriteAddressTable(fs afero.Fs, path string, results []domain.GeocodingResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		lat, lon := "", ""
		if r.Matched && !r.Point.IsZero() {
			lat = strconv.FormatFloat(r.Point.Lat, 'f', -1, 64)
			lon = strconv.FormatFloat(r.Point.Lon, 'f', -1, 64)
		}
		rows = append(rows, []string{r.Address, lat, lon})
	}
	return WriteTable(fs, path, addressHeader, rows)
}

// ReadAddressTable loads an address table keyed by normalised address.
// Rows without usable coordinates are left out.
func ReadAddressTable(fs afero.Fs, path string) (map[string]domain.Point, error) {
	table, err := ReadTable(fs, path)
	if err != nil {
		return nil, err
	}
	for _, col := range addressHeader {
		if !table.Has(col) {
			return nil, fmt.Errorf("%s: %s column is required", path, col)
		}
	}

	lookup := make(map[string]domain.Point, len(table.Rows))
	for _, row := range table.Rows {
		p, err := parsePoint(table.Get(row, "latitude"), table.Get(row, "longitude"))
		if err != nil {
			continue
		}
		lookup[normaliseAddress(table.Get(row, "address"))] = p
	}
	return lookup, nil
}

// ReadAddressResults loads an address table as geocoding results, so an
// interrupted run can resume where it stopped.
func ReadAddressResults(fs afero.Fs, path string) ([]domain.GeocodingResult, error) {
	table, err := ReadTable(fs, path)
	if err != nil {
		return nil, err
	}
	results := make([]domain.GeocodingResult, 0, len(table.Rows))
	for _, row := range table.Rows {
		r := domain.GeocodingResult{Address: table.Get(row, "address")}
		if p, err := parsePoint(table.Get(row, "latitude"), table.Get(row, "longitude")); err == nil && !p.IsZero() {
			r.Point = p
			r.Matched = true
		}
		results = append(results, r)
	}
	return results, nil
}

// MergeCoordinates joins tickets with an address table on citation_location and
// writes tickets that gained coordinates. Output columns are lower-cased and any
// existing latitude/longitude columns are replaced.
func MergeCoordinates(fs afero.Fs, ticketsPath, addressesPath, out string) (FilterStats, error) {
	lookup, err := ReadAddressTable(fs, addressesPath)
	if err != nil {
		return FilterStats{}, err
	}
	table, err := ReadTable(fs, ticketsPath)
	if err != nil {
		return FilterStats{}, err
	}
	if !table.Has("citation_location") {
		return FilterStats{}, fmt.Errorf("%s: citation_location column is required", ticketsPath)
	}

	var keep []int
	header := make([]string, 0, len(table.Header)+2)
	for i, h := range table.Header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "latitude" || name == "longitude" {
			continue
		}
		keep = append(keep, i)
		header = append(header, name)
	}
	header = append(header, "latitude", "longitude")

	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		p, ok := lookup[normaliseAddress(table.Get(row, "citation_location"))]
		if !ok {
			continue
		}
		merged := make([]string, 0, len(header))
		for _, i := range keep {
			if i < len(row) {
				merged = append(merged, row[i])
			} else {
				merged = append(merged, "")
			}
		}
		merged = append(merged,
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			strconv.FormatFloat(p.Lon, 'f', -1, 64),
		)
		rows = append(rows, merged)
	}

	if err := WriteTable(fs, out, header, rows); err != nil {
		return FilterStats{}, err
	}
	return FilterStats{Total: len(table.Rows), Kept: len(rows)}, nil
}

// WriteRecords writes loosely typed records as CSV. Columns are the sorted
// union of record keys.
func WriteRecords(fs afero.Fs, path string, records []map[string]string) error {
	cols := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			cols[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(cols))
	for k := range cols {
		header = append(header, k)
	}
	sort.Strings(header)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(header))
		for i, k := range header {
			row[i] = r[k]
		}
		rows = append(rows, row)
	}
	return WriteTable(fs, path, header, rows)
}

func normaliseAddress(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
