// Package domain models San Francisco parking citations and curbside
// parking regulations around the University of San Francisco campus.
//
// # Data Sources
//
// Citations come from the SFMTA parking citation dataset published on
// DataSF (https://data.sfgov.org, dataset ab4h-6ztd). Rows carry a citation
// location as a street address; coordinates are attached afterwards by
// batch geocoding the unique addresses (see the geocode adapters).
//
// Regulations are GeoJSON street segments whose properties describe the
// posted sign: days, hour window, regulation text and an optional hour limit.
// Property keys appear in either lower or upper case depending on the export
// ("days" or "DAYS"); lookups try lower case first.
//
// # Regulation Conventions
//
// Days:
//
//	Day codes are M, TU, W, TH, F, SA, SU. Ranges are written "M-F", "M-SA",
//	"SA-SU"; "DAILY" applies every day. Lists are free text ("M, W, F").
//	Matching is substring based, so "M" matches any value containing an M.
//
// Hours:
//
//	hrs_begin / hrs_end are HHMM integers in 24-hour local time, e.g. 800 and
//	1800. The window is inclusive at both ends.
//
// Limits:
//
//	An explicit max_hours wins. Otherwise the window length is used, then
//	keywords in the regulation text ("2 HR", "NO PARKING", "TOW-AWAY").
//
// # Risk Model
//
// Citations are clustered into zones with DBSCAN on raw lat/lon degrees
// (eps 0.002, min 10). Each zone's base score is its tickets-per-day relative
// to the busiest zone on a 0–100 scale. At query time the score is boosted
// 1.2x when the current hour is within one hour of the zone's modal hour or
// the weekday equals its modal weekday, 1.5x when both hold, and capped at 100.
//
//	Levels: <10 Low | 10–30 Medium | otherwise High
//
// Weekday indexes follow Monday=0 .. Sunday=6 throughout this package.
package domain
