package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status colors shared by the maps and the zones API.
const (
	ColorRed     = "#FF0000"
	ColorYellow  = "#FFFF00"
	ColorOrange  = "#FFA500"
	ColorGreen   = "#00FF00"
	ColorUnknown = "#808080"
)

var dayCodes = [7]string{"M", "TU", "W", "TH", "F", "SA", "SU"}

var hourLimitKeywords = []struct {
	hours    float64
	keywords []string
}{
	{1, []string{"1 HR", "1HR", "1 HOUR"}},
	{2, []string{"2 HR", "2HR", "2 HOUR"}},
	{3, []string{"3 HR", "3HR", "3 HOUR"}},
	{4, []string{"4 HR", "4HR", "4 HOUR"}},
}

// Availability is the outcome of checking a regulation at a point in time.
// A nil Hours means no limit applies or none could be determined.
type Availability struct {
	Allowed bool     `json:"allowed_now"`
	Hours   *float64 `json:"hours_available"`
}

func unrestricted() Availability { return Availability{Allowed: true} }

func prohibited() Availability {
	zero := 0.0
	return Availability{Allowed: false, Hours: &zero}
}

// MaxHours derives the parking time limit of a regulation.
func MaxHours(p Properties) *float64 {
	if h, ok := p.ExplicitMaxHours(); ok {
		return &h
	}

	if begin, end, ok := p.Window(); ok {
		duration := hhmmToHours(end) - hhmmToHours(begin)
		if duration > 0 {
			return &duration
		}
	}

	rule := p.Regulation()
	if containsAny(rule, "NO PARKING", "TOW-AWAY", "NO STOPPING") {
		zero := 0.0
		return &zero
	}
	for _, limit := range hourLimitKeywords {
		if containsAny(rule, limit.keywords...) {
			h := limit.hours
			return &h
		}
	}
	return nil
}

// ParkingAllowedAt decides whether parking under p is allowed at t and for how long.
// t is read as wall-clock time in its own location.
func ParkingAllowedAt(p Properties, t time.Time) Availability {
	weekday := Weekday(t)
	now := t.Hour()*100 + t.Minute()
	regulation := p.Regulation()

	if days := p.Days(); days != "" {
		switch {
		case strings.Contains(days, "M-F"):
			if weekday >= 5 {
				return unrestricted()
			}
		case strings.Contains(days, "M-SA"):
			if weekday == 6 {
				return unrestricted()
			}
		case strings.Contains(days, "SA-SU") || days == "SA" || days == "SU":
			if weekday < 5 {
				return unrestricted()
			}
		case !strings.Contains(days, dayCodes[weekday]) && !strings.Contains(days, "DAILY"):
			return unrestricted()
		}
	}

	if begin, end, ok := p.Window(); ok {
		if now < begin || now > end {
			return unrestricted()
		}
		if containsAny(regulation, "NO PARKING", "TOW-AWAY") {
			return prohibited()
		}
		return Availability{Allowed: true, Hours: MaxHours(p)}
	}

	if containsAny(regulation, "NO PARKING", "TOW-AWAY") {
		return prohibited()
	}
	return Availability{Allowed: true, Hours: MaxHours(p)}
}

// ParkingAllowedNow checks p against the package clock in local time.
func ParkingAllowedNow(p Properties) Availability {
	return ParkingAllowedAt(p, Now())
}

// Color maps an availability to its status color.
func (a Availability) Color() string {
	if !a.Allowed {
		return ColorRed
	}
	if a.Hours == nil {
		return ColorGreen
	}
	return hoursColor(*a.Hours)
}

// Status is the human readable current status used in map popups.
func (a Availability) Status() string {
	switch {
	case !a.Allowed:
		return "No parking"
	case a.Hours != nil && *a.Hours != 0:
		return FormatHours(*a.Hours) + " hour limit"
	default:
		return "Unrestricted"
	}
}

// Tooltip is the short hover text for a regulation segment.
func (a Availability) Tooltip() string {
	if !a.Allowed || a.Hours == nil || *a.Hours == 0 {
		return "Click for details"
	}
	return fmt.Sprintf("Available: %shr", FormatHours(*a.Hours))
}

// DurationColor colors a regulation by its hour limit alone, grey when unknown.
func DurationColor(hours *float64) string {
	if hours == nil {
		return ColorUnknown
	}
	return hoursColor(*hours)
}

// FormatHours renders an hour count without trailing zeros, capped at two decimals.
func FormatHours(h float64) string {
	return strconv.FormatFloat(round(h, 2), 'f', -1, 64)
}

func hoursColor(h float64) string {
	switch {
	case h <= 0:
		return ColorRed
	case h == 1:
		return ColorYellow
	case h == 2:
		return ColorOrange
	default:
		return ColorGreen
	}
}

func hhmmToHours(v int) float64 {
	return float64(v/100) + float64(v%100)/60
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
