package domain

import (
	"math"
	"sort"
	"time"
)

// Defaults when a zone has no citations to take a mode from.
const (
	defaultPeakHour = 12
	defaultPeakDay  = 2
)

// Score multipliers applied when "now" coincides with a zone's peaks.
const (
	peakBothMultiplier   = 1.5
	peakSingleMultiplier = 1.2
	maxRiskScore         = 100.0
)

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayName returns the English name for a Monday=0 weekday index.
func WeekdayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return weekdayNames[day]
}

// ZoneStats is the historical citation profile of one DBSCAN zone.
type ZoneStats struct {
	ZoneID        int
	TotalTickets  int
	PeakHour      int
	PeakDay       int
	Center        Point
	TicketsPerDay float64
	BaseRiskScore float64
	Geohash       string
}

// RiskLevel is the user-facing band of a risk score.
type RiskLevel struct {
	Name           string
	Color          string
	Recommendation string
}

var (
	RiskLow    = RiskLevel{Name: "Low", Color: ColorGreen, Recommendation: "✅ Safe to park here"}
	RiskMedium = RiskLevel{Name: "Medium", Color: ColorOrange, Recommendation: "⚠️ Park with caution"}
	RiskHigh   = RiskLevel{Name: "High", Color: ColorRed, Recommendation: "🚨 Avoid parking here"}
)

// Categorize bands a risk score. A score of exactly 10 falls through to High.
func Categorize(score float64) RiskLevel {
	switch {
	case score < 10:
		return RiskLow
	case score > 10 && score < 30:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// DataPeriodDays returns the whole days between first and last, at least 1.
// The difference is taken on wall-clock times, so a daylight saving change
// inside the period does not shorten it.
func DataPeriodDays(first, last time.Time) int {
	days := int(wallClock(last).Sub(wallClock(first)) / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// BuildZoneStats aggregates citations by zone label, skipping Noise.
// labels must be parallel to citations. Results are ordered by zone ID.
func BuildZoneStats(citations []Citation, labels []int, periodDays int) []ZoneStats {
	if periodDays < 1 {
		periodDays = 1
	}

	members := make(map[int][]Citation)
	for i, c := range citations {
		if labels[i] == Noise {
			continue
		}
		members[labels[i]] = append(members[labels[i]], c)
	}

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	stats := make([]ZoneStats, 0, len(ids))
	maxPerDay := 0.0
	for _, id := range ids {
		zone := members[id]
		hours := make([]int, len(zone))
		days := make([]int, len(zone))
		points := make([]Point, len(zone))
		for i, c := range zone {
			hours[i] = c.IssuedAt.Hour()
			days[i] = Weekday(c.IssuedAt)
			points[i] = c.Point
		}

		center := Centroid(points)
		perDay := float64(len(zone)) / float64(periodDays)
		maxPerDay = math.Max(maxPerDay, perDay)

		stats = append(stats, ZoneStats{
			ZoneID:        id,
			TotalTickets:  len(zone),
			PeakHour:      mode(hours, defaultPeakHour),
			PeakDay:       mode(days, defaultPeakDay),
			Center:        center,
			TicketsPerDay: perDay,
			Geohash:       center.Geohash(),
		})
	}

	if maxPerDay > 0 {
		for i := range stats {
			stats[i].BaseRiskScore = round(stats[i].TicketsPerDay/maxPerDay*100, 1)
		}
	}
	return stats
}

// AdjustedScore boosts the zone's base score when t falls on its peak hour or day.
func AdjustedScore(z ZoneStats, t time.Time) (score float64, peakHour, peakDay bool) {
	score = z.BaseRiskScore
	peakHour = absInt(t.Hour()-z.PeakHour) <= 1
	peakDay = Weekday(t) == z.PeakDay

	switch {
	case peakHour && peakDay:
		score *= peakBothMultiplier
	case peakHour || peakDay:
		score *= peakSingleMultiplier
	}
	return math.Min(maxRiskScore, score), peakHour, peakDay
}

// PeakInfo names a zone's busiest hour and weekday.
type PeakInfo struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// ZoneStatistics summarises a zone's citation volume.
type ZoneStatistics struct {
	TotalTickets   int     `json:"total_tickets"`
	TicketsPerDay  float64 `json:"tickets_per_day"`
	DataPeriodDays int     `json:"data_period_days"`
}

// Assessment is the time-adjusted risk of one zone at one moment.
type Assessment struct {
	ZoneID         int            `json:"zone_id"`
	Timestamp      time.Time      `json:"timestamp"`
	RiskScore      float64        `json:"risk_score"`
	RiskLevel      string         `json:"risk_level"`
	RiskColor      string         `json:"risk_color"`
	Recommendation string         `json:"recommendation"`
	IsPeakTime     bool           `json:"is_peak_time"`
	PeakInfo       PeakInfo       `json:"peak_info"`
	Statistics     ZoneStatistics `json:"statistics"`
	Location       Point          `json:"location"`
}

// Assess scores z at t.
func Assess(z ZoneStats, t time.Time, periodDays int) Assessment {
	score, peakHour, peakDay := AdjustedScore(z, t)
	level := Categorize(score)
	return Assessment{
		ZoneID:         z.ZoneID,
		Timestamp:      t,
		RiskScore:      round(score, 1),
		RiskLevel:      level.Name,
		RiskColor:      level.Color,
		Recommendation: level.Recommendation,
		IsPeakTime:     peakHour && peakDay,
		PeakInfo:       PeakInfo{Hour: z.PeakHour, Day: WeekdayName(z.PeakDay)},
		Statistics: ZoneStatistics{
			TotalTickets:   z.TotalTickets,
			TicketsPerDay:  round(z.TicketsPerDay, 2),
			DataPeriodDays: periodDays,
		},
		Location: z.Center,
	}
}

// ZoneRank is a compact zone entry for ranked listings.
type ZoneRank struct {
	ZoneID    int     `json:"zone_id"`
	RiskScore float64 `json:"risk_score"`
	RiskLevel string  `json:"risk_level"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Geohash   string  `json:"geohash,omitempty"`
}

// RankZones scores every zone at t and returns up to limit entries ordered by
// score. Ties keep zone order. A limit <= 0 returns all zones.
func RankZones(stats []ZoneStats, t time.Time, ascending bool, limit int) []ZoneRank {
	ranked := make([]ZoneRank, 0, len(stats))
	for _, z := range stats {
		score, _, _ := AdjustedScore(z, t)
		ranked = append(ranked, ZoneRank{
			ZoneID:    z.ZoneID,
			RiskScore: round(score, 1),
			RiskLevel: Categorize(score).Name,
			Latitude:  z.Center.Lat,
			Longitude: z.Center.Lon,
			Geohash:   z.Geohash,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ascending {
			return ranked[i].RiskScore < ranked[j].RiskScore
		}
		return ranked[i].RiskScore > ranked[j].RiskScore
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// TimeCell is one (hour, weekday) bucket of a zone's citation history.
type TimeCell struct {
	Hour       int     `json:"hour"`
	Day        string  `json:"day"`
	IsWeekend  bool    `json:"is_weekend"`
	Tickets    int     `json:"tickets"`
	TicketRate float64 `json:"ticket_rate"`
	Band       string  `json:"band"`

	dayIndex int
}

// BuildTimeProfile buckets a zone's citations by hour and weekday. The rate is
// the bucket's share of the zone's citations in percent. Cells are ordered by
// weekday then hour.
func BuildTimeProfile(citations []Citation) []TimeCell {
	if len(citations) == 0 {
		return nil
	}

	type key struct{ day, hour int }
	counts := make(map[key]int)
	for _, c := range citations {
		counts[key{Weekday(c.IssuedAt), c.IssuedAt.Hour()}]++
	}

	total := float64(len(citations))
	cells := make([]TimeCell, 0, len(counts))
	for k, n := range counts {
		rate := float64(n) / total * 100
		cells = append(cells, TimeCell{
			Hour:       k.hour,
			Day:        WeekdayName(k.day),
			IsWeekend:  k.day >= 5,
			Tickets:    n,
			TicketRate: round(rate, 2),
			Band:       rateBand(rate),
			dayIndex:   k.day,
		})
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].dayIndex != cells[j].dayIndex {
			return cells[i].dayIndex < cells[j].dayIndex
		}
		return cells[i].Hour < cells[j].Hour
	})
	return cells
}

func rateBand(rate float64) string {
	switch {
	case rate <= 10:
		return RiskLow.Name
	case rate <= 30:
		return RiskMedium.Name
	default:
		return RiskHigh.Name
	}
}

// mode returns the most frequent value, the smallest on ties, or def when empty.
func mode(values []int, def int) int {
	if len(values) == 0 {
		return def
	}
	counts := make(map[int]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := 0, 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
