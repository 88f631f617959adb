package domain

import "math"

// Noise is the DBSCAN label for points that belong to no cluster.
const Noise = -1

// Clustering parameters, in raw degrees of lat/lon.
const (
	ZoneEps            = 0.002
	ZoneMinSamples     = 10
	HotspotEps         = 0.0002
	HotspotMinSamples  = 10
	HotspotMinCitation = 15
)

type cellKey struct{ x, y int64 }

// DBSCAN clusters points by density and returns one label per point.
// Labels are 0..k-1 in discovery order, Noise for unclustered points.
// Distance is Euclidean on raw degrees and a point counts as its own neighbour.
func DBSCAN(points []Point, eps float64, minSamples int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}
	if len(points) == 0 || eps <= 0 {
		return labels
	}

	grid := make(map[cellKey][]int)
	cellOf := func(p Point) cellKey {
		return cellKey{int64(math.Floor(p.Lat / eps)), int64(math.Floor(p.Lon / eps))}
	}
	for i, p := range points {
		k := cellOf(p)
		grid[k] = append(grid[k], i)
	}

	eps2 := eps * eps
	neighbours := make([][]int, len(points))
	for i, p := range points {
		c := cellOf(p)
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for _, j := range grid[cellKey{c.x + dx, c.y + dy}] {
					dLat := points[j].Lat - p.Lat
					dLon := points[j].Lon - p.Lon
					if dLat*dLat+dLon*dLon <= eps2 {
						neighbours[i] = append(neighbours[i], j)
					}
				}
			}
		}
	}

	core := make([]bool, len(points))
	for i, n := range neighbours {
		core[i] = len(n) >= minSamples
	}

	label := 0
	var stack []int
	for start := range points {
		if labels[start] != Noise || !core[start] {
			continue
		}
		i := start
		for {
			if labels[i] == Noise {
				labels[i] = label
				if core[i] {
					for _, j := range neighbours[i] {
						if labels[j] == Noise {
							stack = append(stack, j)
						}
					}
				}
			}
			if len(stack) == 0 {
				break
			}
			i = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		label++
	}
	return labels
}
