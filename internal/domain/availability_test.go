package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hoursPtr(h float64) *float64 { return &h }

// 2024-05-01 is a Wednesday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 5, day, hour, minute, 0, 0, time.UTC)
}

func TestParkingAllowedAt(t *testing.T) {
	tests := []struct {
		name  string
		props Properties
		when  time.Time
		want  Availability
	}{
		{
			name:  "weekday rule on saturday",
			props: Properties{"days": "M-F", "hrs_begin": "800", "hrs_end": "1800", "regulation": "No parking"},
			when:  at(4, 10, 0),
			want:  Availability{Allowed: true},
		},
		{
			name:  "weekday rule inside window uses window length",
			props: Properties{"days": "M-F", "hrs_begin": "800", "hrs_end": "1800", "regulation": "2 HR PARKING"},
			when:  at(1, 10, 0),
			want:  Availability{Allowed: true, Hours: hoursPtr(10)},
		},
		{
			name:  "no parking inside window",
			props: Properties{"days": "M-F", "hrs_begin": "800", "hrs_end": "1800", "regulation": "No Parking 8AM-6PM"},
			when:  at(1, 10, 0),
			want:  Availability{Allowed: false, Hours: hoursPtr(0)},
		},
		{
			name:  "window end is inclusive",
			props: Properties{"days": "M-F", "hrs_begin": "800", "hrs_end": "1800", "regulation": "NO PARKING"},
			when:  at(1, 18, 0),
			want:  Availability{Allowed: false, Hours: hoursPtr(0)},
		},
		{
			name:  "after window",
			props: Properties{"days": "M-F", "hrs_begin": "800", "hrs_end": "1800", "regulation": "NO PARKING"},
			when:  at(1, 19, 0),
			want:  Availability{Allowed: true},
		},
		{
			name:  "before window",
			props: Properties{"hrs_begin": "800", "hrs_end": "1800", "regulation": "TOW-AWAY"},
			when:  at(1, 7, 59),
			want:  Availability{Allowed: true},
		},
		{
			name:  "monday to saturday rule on sunday",
			props: Properties{"days": "M-SA", "regulation": "TOW-AWAY"},
			when:  at(5, 12, 0),
			want:  Availability{Allowed: true},
		},
		{
			name:  "monday to saturday rule on saturday",
			props: Properties{"days": "M-SA", "regulation": "TOW-AWAY"},
			when:  at(4, 9, 0),
			want:  Availability{Allowed: false, Hours: hoursPtr(0)},
		},
		{
			name:  "weekend rule on monday",
			props: Properties{"days": "SA-SU", "regulation": "NO PARKING"},
			when:  at(6, 12, 0),
			want:  Availability{Allowed: true},
		},
		{
			name:  "saturday only rule on saturday",
			props: Properties{"days": "SA", "regulation": "1 HR LIMIT"},
			when:  at(4, 12, 0),
			want:  Availability{Allowed: true, Hours: hoursPtr(1)},
		},
		{
			name:  "day list without today",
			props: Properties{"days": "TU, TH", "regulation": "NO PARKING"},
			when:  at(1, 12, 0),
			want:  Availability{Allowed: true},
		},
		{
			name:  "day list with today",
			props: Properties{"days": "TU, TH", "regulation": "NO PARKING"},
			when:  at(2, 12, 0),
			want:  Availability{Allowed: false, Hours: hoursPtr(0)},
		},
		{
			name:  "daily rule",
			props: Properties{"days": "Daily", "regulation": "No Parking"},
			when:  at(1, 12, 0),
			want:  Availability{Allowed: false, Hours: hoursPtr(0)},
		},
		{
			name:  "unparsable window falls back to text",
			props: Properties{"hrs_begin": "8AM", "hrs_end": "6PM", "regulation": "2 HR PARKING"},
			when:  at(1, 12, 0),
			want:  Availability{Allowed: true, Hours: hoursPtr(2)},
		},
		{
			name:  "upper case keys",
			props: Properties{"DAYS": "M-F", "HRS_BEGIN": "0900", "HRS_END": "1100", "REGULATION": "Tow-away zone"},
			when:  at(1, 10, 0),
			want:  Availability{Allowed: false, Hours: hoursPtr(0)},
		},
		{
			name:  "empty lower case key falls back to upper case",
			props: Properties{"days": "", "DAYS": "SA-SU", "regulation": "NO PARKING"},
			when:  at(1, 10, 0),
			want:  Availability{Allowed: true},
		},
		{
			name:  "numeric window from json",
			props: Properties{"hrs_begin": 700.0, "hrs_end": 900.0, "regulation": ""},
			when:  at(1, 8, 0),
			want:  Availability{Allowed: true, Hours: hoursPtr(2)},
		},
		{
			name:  "explicit max hours wins",
			props: Properties{"hrs_begin": "800", "hrs_end": "1800", "regulation": "Time limited", "max_hours": 3.0},
			when:  at(1, 10, 0),
			want:  Availability{Allowed: true, Hours: hoursPtr(3)},
		},
		{
			name:  "empty properties",
			props: Properties{},
			when:  at(1, 10, 0),
			want:  Availability{Allowed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParkingAllowedAt(tt.props, tt.when))
		})
	}
}

func TestMaxHours(t *testing.T) {
	tests := []struct {
		name  string
		props Properties
		want  *float64
	}{
		{"explicit", Properties{"max_hours": 4.0}, hoursPtr(4)},
		{"explicit string", Properties{"max_hours": "1.5"}, hoursPtr(1.5)},
		{"explicit null ignored", Properties{"max_hours": nil, "regulation": "2HR"}, hoursPtr(2)},
		{"window with minutes", Properties{"hrs_begin": "800", "hrs_end": "1030"}, hoursPtr(2.5)},
		{"reversed window falls back to text", Properties{"hrs_begin": "1800", "hrs_end": "800", "regulation": "3 HOUR"}, hoursPtr(3)},
		{"no stopping", Properties{"regulation": "No Stopping"}, hoursPtr(0)},
		{"tow away", Properties{"REGULATION": "TOW-AWAY"}, hoursPtr(0)},
		{"one hour", Properties{"regulation": "1 hour parking"}, hoursPtr(1)},
		{"four hour", Properties{"regulation": "4 HR"}, hoursPtr(4)},
		{"unknown", Properties{"regulation": "RPP AREA S"}, nil},
		{"empty", Properties{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaxHours(tt.props))
		})
	}
}

func TestAvailabilityColor(t *testing.T) {
	tests := []struct {
		name string
		a    Availability
		want string
	}{
		{"not allowed", Availability{Allowed: false, Hours: hoursPtr(0)}, ColorRed},
		{"unrestricted", Availability{Allowed: true}, ColorGreen},
		{"zero hours", Availability{Allowed: true, Hours: hoursPtr(0)}, ColorRed},
		{"one hour", Availability{Allowed: true, Hours: hoursPtr(1)}, ColorYellow},
		{"two hours", Availability{Allowed: true, Hours: hoursPtr(2)}, ColorOrange},
		{"long window", Availability{Allowed: true, Hours: hoursPtr(10)}, ColorGreen},
		{"ninety minutes", Availability{Allowed: true, Hours: hoursPtr(1.5)}, ColorGreen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Color())
		})
	}
}

func TestDurationColor(t *testing.T) {
	assert.Equal(t, ColorUnknown, DurationColor(nil))
	assert.Equal(t, ColorRed, DurationColor(hoursPtr(0)))
	assert.Equal(t, ColorYellow, DurationColor(hoursPtr(1)))
	assert.Equal(t, ColorOrange, DurationColor(hoursPtr(2)))
	assert.Equal(t, ColorGreen, DurationColor(hoursPtr(3)))
}

func TestAvailabilityText(t *testing.T) {
	limited := Availability{Allowed: true, Hours: hoursPtr(2)}
	assert.Equal(t, "2 hour limit", limited.Status())
	assert.Equal(t, "Available: 2hr", limited.Tooltip())

	banned := Availability{Allowed: false, Hours: hoursPtr(0)}
	assert.Equal(t, "No parking", banned.Status())
	assert.Equal(t, "Click for details", banned.Tooltip())

	open := Availability{Allowed: true}
	assert.Equal(t, "Unrestricted", open.Status())
	assert.Equal(t, "Click for details", open.Tooltip())

	assert.Equal(t, "2.5", FormatHours(2.5))
	assert.Equal(t, "1.33", FormatHours(4.0/3))
}

func TestParkingAllowedNow_UsesClockInLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	SetLocation(loc)
	defer SetLocation(nil)

	// 2024-05-01 17:00 UTC is 10:00 PDT.
	SetClock(fakeClockAt(time.Date(2024, 5, 1, 17, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	props := Properties{"hrs_begin": "900", "hrs_end": "1100", "regulation": "NO PARKING"}
	assert.False(t, ParkingAllowedNow(props).Allowed)
}
