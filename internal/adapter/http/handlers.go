package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/sf-parking-risk-service/internal/analysis"
	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

const zoneNotFound = "Zone not found"

type safestZonesResponse struct {
	Timestamp   time.Time         `json:"timestamp"`
	SafestZones []domain.ZoneRank `json:"safest_zones"`
}

type dangerZonesResponse struct {
	Timestamp   time.Time         `json:"timestamp"`
	DangerZones []domain.ZoneRank `json:"danger_zones"`
}

type riskProfileResponse struct {
	ZoneID int               `json:"zone_id"`
	Cells  []domain.TimeCell `json:"cells"`
}

// handleZones returns the regulation segments with each feature's current
// availability merged into its properties.
func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	now := domain.Now()

	features := make([]domain.Feature, len(s.streets.Features))
	for i, f := range s.streets.Features {
		avail := domain.ParkingAllowedAt(f.Properties, now)

		props := make(domain.Properties, len(f.Properties)+3)
		for k, v := range f.Properties {
			props[k] = v
		}
		props["allowed_now"] = avail.Allowed
		props["hours_available"] = avail.Hours
		props["status_color"] = avail.Color()

		f.Properties = props
		features[i] = f
	}

	writeJSON(w, http.StatusOK, domain.FeatureCollection{Type: "FeatureCollection", BBox: s.streets.BBox, Features: features})
}

func (s *Server) handleTickets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.model.HeatPoints(domain.USFCenter, analysis.TicketRadiusMiles))
}

func (s *Server) handleRiskScore(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(r)
	if !ok {
		handleZoneNotFound(w, r)
		return
	}

	assessment, err := s.model.Assessment(id, domain.Now())
	if err != nil {
		s.writeModelError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleRiskProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(r)
	if !ok {
		handleZoneNotFound(w, r)
		return
	}

	cells, err := s.model.Profile(id)
	if err != nil {
		s.writeModelError(w, r, err)
		return
	}
	if cells == nil {
		cells = []domain.TimeCell{}
	}
	writeJSON(w, http.StatusOK, riskProfileResponse{ZoneID: id, Cells: cells})
}

func (s *Server) handleSafestZones(w http.ResponseWriter, _ *http.Request) {
	now := domain.Now()
	writeJSON(w, http.StatusOK, safestZonesResponse{
		Timestamp:   now,
		SafestZones: s.model.Safest(now, analysis.RankLimit),
	})
}

func (s *Server) handleDangerZones(w http.ResponseWriter, _ *http.Request) {
	now := domain.Now()
	writeJSON(w, http.StatusOK, dangerZonesResponse{
		Timestamp:   now,
		DangerZones: s.model.Dangerous(now, analysis.RankLimit),
	})
}

func handleZoneNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, zoneNotFound)
}

func (s *Server) writeModelError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, analysis.ErrZoneNotFound) {
		handleZoneNotFound(w, r)
		return
	}
	s.logger.Error("risk model query failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// zoneID parses the {id} route parameter. Values that overflow int are not zones.
func zoneID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, false
	}
	return id, true
}
