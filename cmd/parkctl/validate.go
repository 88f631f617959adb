package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/couchcryptid/sf-parking-risk-service/internal/analysis"
	"github.com/couchcryptid/sf-parking-risk-service/internal/domain"
	"github.com/spf13/cobra"
)

// San Francisco bounding box. Coordinates outside it are geocoding misses.
var (
	sfSouthWest = domain.Point{Lat: 37.70, Lon: -122.52}
	sfNorthEast = domain.Point{Lat: 37.84, Lon: -122.35}
)

const maxReportedErrors = 10

// phase tracks pass/fail for a validation phase.
type phase struct {
	name    string
	errors  []string
	notes   []string
	dropped int
}

func (p *phase) errorf(format string, args ...any) {
	if len(p.errors) >= maxReportedErrors {
		p.dropped++
		return
	}
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the datasets the risk service loads",
		RunE: func(*cobra.Command, []string) error {
			loader := root.loader()

			citations, err := loader.Citations(root.cfg.CitationsCSV)
			if err != nil {
				return err
			}
			tickets, err := loader.Tickets(root.cfg.TicketsCSV)
			ticketsMissing := errors.Is(err, fs.ErrNotExist)
			if err != nil && !ticketsMissing {
				return err
			}
			streets, err := loader.Streets(root.cfg.StreetsGeoJSON)
			if err != nil {
				return err
			}

			phases := []*phase{
				validateCitations("Citations dataset", citations, true),
			}
			if ticketsMissing {
				skipped := &phase{name: "Tickets dataset"}
				skipped.notef("%s not found, heat map falls back to citations", root.cfg.TicketsCSV)
				phases = append(phases, skipped)
			} else {
				phases = append(phases, validateCitations("Tickets dataset", tickets, false))
			}
			phases = append(phases,
				validateStreets(streets),
				validateModel(analysis.Build(citations, tickets, root.logger, root.metrics)),
			)

			if report(root, phases) {
				return nil
			}
			return errors.New("validation failed")
		},
	}
}

func validateCitations(name string, citations []domain.Citation, requireTime bool) *phase {
	p := &phase{name: name}
	if len(citations) == 0 {
		p.errorf("no usable rows")
		return p
	}
	for _, c := range citations {
		if !inSanFrancisco(c.Point) {
			p.errorf("citation %q at (%.5f, %.5f) is outside San Francisco", c.Number, c.Point.Lat, c.Point.Lon)
		}
		if requireTime && c.IssuedAt.IsZero() {
			p.errorf("citation %q has no issue time", c.Number)
		}
	}
	near := analysis.WithinRadius(citations, domain.USFCenter, analysis.TicketRadiusMiles)
	p.notef("%d rows, %d within %.0f mile of USF", len(citations), len(near), analysis.TicketRadiusMiles)
	return p
}

func validateStreets(streets domain.FeatureCollection) *phase {
	p := &phase{name: "Street regulations"}
	drawable := 0
	for _, f := range streets.Features {
		if _, err := domain.Polyline(f.Geometry); err == nil {
			drawable++
		}
	}
	if drawable == 0 {
		p.errorf("none of %d features has a drawable geometry", len(streets.Features))
	}
	p.notef("%d features, %d drawable", len(streets.Features), drawable)
	return p
}

func validateModel(model *analysis.Model) *phase {
	p := &phase{name: "Risk model"}
	zones := model.Zones()
	if len(zones) == 0 {
		p.errorf("citations produced no risk zones")
		return p
	}
	for _, z := range zones {
		if z.BaseRiskScore < 0 || z.BaseRiskScore > 100 {
			p.errorf("zone %d base score %.1f outside 0-100", z.ZoneID, z.BaseRiskScore)
		}
		if !inSanFrancisco(z.Center) {
			p.errorf("zone %d center (%.5f, %.5f) is outside San Francisco", z.ZoneID, z.Center.Lat, z.Center.Lon)
		}
	}
	p.notef("%d zones over %d days", len(zones), model.PeriodDays())
	return p
}

func inSanFrancisco(pt domain.Point) bool {
	return pt.Lat >= sfSouthWest.Lat && pt.Lat <= sfNorthEast.Lat &&
		pt.Lon >= sfSouthWest.Lon && pt.Lon <= sfNorthEast.Lon
}

// report prints one line per phase followed by the details, and reports
// whether every phase passed.
func report(root *rootCommand, phases []*phase) bool {
	root.printf("=== Parking Data Validation ===\n\n")
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors)+p.dropped)
			allPassed = false
		}
		root.printf("  %-24s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.notes) == 0 && p.passed() {
			continue
		}
		root.printf("\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			root.printf("  %s\n", n)
		}
		for i, e := range p.errors {
			root.printf("  [%d] %s\n", i+1, e)
		}
		if p.dropped > 0 {
			root.printf("  ... and %d more\n", p.dropped)
		}
	}

	if allPassed {
		root.printf("\nAll validations passed.\n")
	} else {
		root.printf("\nValidation FAILED.\n")
	}
	return allPassed
}
