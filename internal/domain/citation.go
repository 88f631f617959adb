package domain

import (
	"strings"
	"time"
)

// Citation is a single geocoded parking ticket.
type Citation struct {
	Number        string
	IssuedAt      time.Time
	Location      string
	Violation     string
	ViolationDesc string
	Point         Point
}

// trackedViolations are the violation_desc codes relevant to curbside parking.
var trackedViolations = map[string]struct{}{
	"STR CLEAN":  {},
	"PRK PROHIB": {},
	"PKG PROHIB": {},
	"NO PRK ZN":  {},
	"DISOB SIGN": {},
	"NO PERMIT":  {},
	"TMP PK RES": {},
	"METER DTN":  {},
	"MTR OUT DT": {},
	"FIRE HYD":   {},
	"RED ZONE":   {},
	"YEL ZONE":   {},
	"WHITE ZONE": {},
	"GREEN ZONE": {},
	"BLK BIKE L": {},
	"BL ZNE BLK": {},
	"SAFE/RED Z": {},
}

// violationDescriptions is applied in order; each code is replaced wherever it appears.
var violationDescriptions = []struct{ code, desc string }{
	{"STR CLEAN", "Parked During Street Cleaning"},
	{"PRK PROHIB", "Parking Prohibited Violation"},
	{"PKG PROHIB", "Parking Prohibited Violation"},
	{"NO PRK ZN", "No Parking Zone Violation"},
	{"DISOB SIGN", "Disobeying Sign Violation"},
	{"NO PERMIT", "No Permit Violation"},
	{"TMP PK RES", "Temp Parking Restriction Violation"},
	{"METER DTN", "Downtown Meter Expire Violation"},
	{"MTR OUT DT", "Expired Meter Violation"},
	{"FIRE HYD", "Parked By Fire Hydrant Violation"},
	{"RED ZONE", "Parked In Safety/Bus Lane"},
	{"YEL ZONE", "Parked In Loading Zone"},
	{"WHITE ZONE", "Parked In Pick-up/Drop-off Zone"},
	{"GREEN ZONE", "Parked In Short-term Parking"},
	{"BLK BIKE L", "Blocked Bike Lane Violation"},
	{"BL ZNE BLK", "Parked In Disabled Parking"},
	{"SAFE/RED Z", "Stopped In No Stopping Zone"},
}

// IsTrackedViolation reports whether desc is one of the curbside violation codes.
// The match is exact, as the source data uses fixed ten-character codes.
func IsTrackedViolation(desc string) bool {
	_, ok := trackedViolations[desc]
	return ok
}

// TrackedViolations returns the tracked violation codes in display order.
func TrackedViolations() []string {
	codes := make([]string, 0, len(violationDescriptions))
	for _, v := range violationDescriptions {
		codes = append(codes, v.code)
	}
	return codes
}

// DescribeViolation expands abbreviated violation codes into readable text.
func DescribeViolation(desc string) string {
	for _, v := range violationDescriptions {
		desc = strings.ReplaceAll(desc, v.code, v.desc)
	}
	return desc
}
