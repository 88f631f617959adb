package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedGeometry     = errors.New("unsupported geometry type")
	ErrInsufficientCoordinates = errors.New("insufficient coordinates")
)

// FeatureCollection is a GeoJSON collection of regulation segments.
type FeatureCollection struct {
	Type     string          `json:"type"`
	BBox     json.RawMessage `json:"bbox,omitempty"`
	Features []Feature       `json:"features"`
}

// Feature is a GeoJSON feature with free-form properties. ID and BBox are
// kept raw since an id may be a string or a number.
type Feature struct {
	Type       string          `json:"type"`
	ID         json.RawMessage `json:"id,omitempty"`
	BBox       json.RawMessage `json:"bbox,omitempty"`
	Properties Properties      `json:"properties"`
	Geometry   *Geometry       `json:"geometry"`
}

// Geometry keeps coordinates raw so any geometry type round-trips unchanged.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Polyline converts a LineString or MultiLineString into lat/lon points.
// MultiLineString parts are concatenated in order.
func Polyline(g *Geometry) ([]Point, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: missing geometry", ErrUnsupportedGeometry)
	}

	var points []Point
	switch g.Type {
	case "LineString":
		var coords [][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("decode LineString: %w", err)
		}
		points = appendPositions(points, coords)
	case "MultiLineString":
		var lines [][][]float64
		if err := json.Unmarshal(g.Coordinates, &lines); err != nil {
			return nil, fmt.Errorf("decode MultiLineString: %w", err)
		}
		for _, line := range lines {
			points = appendPositions(points, line)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, g.Type)
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: %d points", ErrInsufficientCoordinates, len(points))
	}
	return points, nil
}

// appendPositions swaps GeoJSON [lon, lat] positions to lat/lon.
func appendPositions(dst []Point, coords [][]float64) []Point {
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		dst = append(dst, Point{Lat: c[1], Lon: c[0]})
	}
	return dst
}
