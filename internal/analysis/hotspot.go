package analysis

import (
	"sort"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
)

// topViolationCount is the number of violation types listed per hotspot.
const topViolationCount = 3

// ViolationCount is one violation type and how often it occurs in a hotspot.
type ViolationCount struct {
	Description string
	Count       int
}

// Hotspot is a tight cluster of citations drawn as a marker on the heat map.
type Hotspot struct {
	ClusterID     int
	Count         int
	Center        domain.Point
	TopViolations []ViolationCount
}

// Hotspots clusters citations at street-address scale (eps 0.0002, min 10)
// and returns clusters with at least 15 citations, ordered by cluster ID.
func Hotspots(citations []domain.Citation) []Hotspot {
	points := make([]domain.Point, len(citations))
	for i, c := range citations {
		points[i] = c.Point
	}
	labels := domain.DBSCAN(points, domain.HotspotEps, domain.HotspotMinSamples)

	members := make(map[int][]domain.Citation)
	for i, label := range labels {
		if label == domain.Noise {
			continue
		}
		members[label] = append(members[label], citations[i])
	}

	ids := make([]int, 0, len(members))
	for id, group := range members {
		if len(group) >= domain.HotspotMinCitation {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	hotspots := make([]Hotspot, 0, len(ids))
	for _, id := range ids {
		group := members[id]
		pts := make([]domain.Point, len(group))
		for i, c := range group {
			pts[i] = c.Point
		}
		hotspots = append(hotspots, Hotspot{
			ClusterID:     id,
			Count:         len(group),
			Center:        domain.Centroid(pts),
			TopViolations: topViolations(group, topViolationCount),
		})
	}
	return hotspots
}

// topViolations counts described violations, most frequent first. Ties keep
// first-seen order.
func topViolations(citations []domain.Citation, n int) []ViolationCount {
	index := make(map[string]int)
	var counts []ViolationCount
	for _, c := range citations {
		desc := domain.DescribeViolation(c.ViolationDesc)
		if i, ok := index[desc]; ok {
			counts[i].Count++
			continue
		}
		index[desc] = len(counts)
		counts = append(counts, ViolationCount{Description: desc, Count: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
