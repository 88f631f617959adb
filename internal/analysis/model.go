// Package analysis builds the in-memory risk model from historical citations
// and answers the read queries served by the API and map renderer.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/couchcryptid/sf-parking-risk-service/internal/observability"
)

// ErrZoneNotFound is returned for a zone ID the model does not know.
var ErrZoneNotFound = errors.New("zone not found")

// TicketRadiusMiles bounds the citations served as heat points.
const TicketRadiusMiles = 1.0

// RankLimit is the length of the safest and most dangerous zone listings.
const RankLimit = 5

// Model is the risk model built once at startup. It is read-only after Build
// and safe for concurrent use.
type Model struct {
	zones      []domain.ZoneStats
	byID       map[int]int
	members    map[int][]domain.Citation
	tickets    []domain.Citation
	periodDays int

	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// Build clusters citations into zones (DBSCAN, eps 0.002, min 10) and computes
// each zone's statistics. tickets feed the heat map; when empty the citations
// are used instead.
func Build(citations, tickets []domain.Citation, logger *slog.Logger, metrics *observability.Metrics) *Model {
	start := time.Now()

	points := make([]domain.Point, len(citations))
	for i, c := range citations {
		points[i] = c.Point
	}
	labels := domain.DBSCAN(points, domain.ZoneEps, domain.ZoneMinSamples)

	periodDays := 1
	if len(citations) > 0 {
		first, last := citations[0].IssuedAt, citations[0].IssuedAt
		for _, c := range citations[1:] {
			if c.IssuedAt.Before(first) {
				first = c.IssuedAt
			}
			if c.IssuedAt.After(last) {
				last = c.IssuedAt
			}
		}
		periodDays = domain.DataPeriodDays(first, last)
	}

	m := &Model{
		zones:      domain.BuildZoneStats(citations, labels, periodDays),
		members:    make(map[int][]domain.Citation),
		periodDays: periodDays,
		logger:     logger,
		metrics:    metrics,
	}
	m.byID = make(map[int]int, len(m.zones))
	for i, z := range m.zones {
		m.byID[z.ZoneID] = i
	}
	noise := 0
	for i, c := range citations {
		if labels[i] == domain.Noise {
			noise++
			continue
		}
		m.members[labels[i]] = append(m.members[labels[i]], c)
	}

	if len(tickets) == 0 {
		tickets = citations
	}
	m.tickets = tickets

	if metrics != nil {
		metrics.ZonesBuilt.Set(float64(len(m.zones)))
		if len(m.zones) > 0 {
			metrics.ModelReady.Set(1)
		}
	}
	m.ready.Store(len(m.zones) > 0)

	logger.Info("risk model built",
		"citations", len(citations),
		"zones", len(m.zones),
		"noise", noise,
		"data_period_days", periodDays,
		"duration", time.Since(start),
	)
	return m
}

// CheckReadiness returns nil once the model holds at least one zone.
func (m *Model) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("risk model has no zones")
	}
	return nil
}

// PeriodDays returns the whole days spanned by the citation history.
func (m *Model) PeriodDays() int { return m.periodDays }

// Zones returns the zone statistics ordered by zone ID.
func (m *Model) Zones() []domain.ZoneStats { return m.zones }

// Zone returns the statistics for id.
func (m *Model) Zone(id int) (domain.ZoneStats, bool) {
	i, ok := m.byID[id]
	if !ok {
		return domain.ZoneStats{}, false
	}
	return m.zones[i], true
}

// Assessment scores zone id at now.
func (m *Model) Assessment(id int, now time.Time) (domain.Assessment, error) {
	z, ok := m.Zone(id)
	if !ok {
		return domain.Assessment{}, ErrZoneNotFound
	}
	m.count("zone")
	return domain.Assess(z, now, m.periodDays), nil
}

// Safest returns the n lowest-scoring zones at now.
func (m *Model) Safest(now time.Time, n int) []domain.ZoneRank {
	m.count("safest")
	return domain.RankZones(m.zones, now, true, n)
}

// Dangerous returns the n highest-scoring zones at now.
func (m *Model) Dangerous(now time.Time, n int) []domain.ZoneRank {
	m.count("danger")
	return domain.RankZones(m.zones, now, false, n)
}

// Profile returns the hour-by-weekday citation profile of zone id.
func (m *Model) Profile(id int) ([]domain.TimeCell, error) {
	if _, ok := m.byID[id]; !ok {
		return nil, ErrZoneNotFound
	}
	m.count("profile")
	return domain.BuildTimeProfile(m.members[id]), nil
}

// Tickets returns the heat-map citations within radius miles of center.
func (m *Model) Tickets(center domain.Point, radius float64) []domain.Citation {
	return WithinRadius(m.tickets, center, radius)
}

// HeatPoints returns [lat, lon] pairs for the tickets within radius miles of center.
func (m *Model) HeatPoints(center domain.Point, radius float64) [][2]float64 {
	return HeatPoints(m.Tickets(center, radius))
}

func (m *Model) count(kind string) {
	if m.metrics != nil {
		m.metrics.RiskAssessments.WithLabelValues(kind).Inc()
	}
}

// WithinRadius keeps the citations within radius miles of center, preserving order.
func WithinRadius(citations []domain.Citation, center domain.Point, radius float64) []domain.Citation {
	out := make([]domain.Citation, 0, len(citations))
	for _, c := range citations {
		if domain.WithinMiles(center, c.Point, radius) {
			out = append(out, c)
		}
	}
	return out
}

// HeatPoints flattens citations into [lat, lon] pairs.
func HeatPoints(citations []domain.Citation) [][2]float64 {
	out := make([][2]float64, len(citations))
	for i, c := range citations {
		out[i] = [2]float64{c.Point.Lat, c.Point.Lon}
	}
	return out
}
