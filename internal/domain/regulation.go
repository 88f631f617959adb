package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Properties is the loosely typed property bag of a regulation segment.
// Values decoded from GeoJSON are strings, float64, bool or nil.
type Properties map[string]any

// lookup returns the lower-case key's value when it is set and non-empty,
// otherwise the upper-case key's value.
func (p Properties) lookup(key string) any {
	if v := p[strings.ToLower(key)]; truthy(v) {
		return v
	}
	return p[strings.ToUpper(key)]
}

// Text returns the value for key rendered as a string, or "" when unset.
func (p Properties) Text(key string) string {
	v := p.lookup(key)
	if !truthy(v) {
		return ""
	}
	return formatValue(v)
}

// Display returns the value for key for human display, or "N/A" when unset.
func (p Properties) Display(key string) string {
	if s := p.Text(key); s != "" {
		return s
	}
	return "N/A"
}

// Days is the upper-cased day list, e.g. "M-F".
func (p Properties) Days() string { return strings.ToUpper(p.Text("days")) }

// Regulation is the upper-cased regulation text.
func (p Properties) Regulation() string { return strings.ToUpper(p.Text("regulation")) }

// Window returns the HHMM hour window. ok is false when either end is missing
// or not an integer.
func (p Properties) Window() (begin, end int, ok bool) {
	b, e := p.lookup("hrs_begin"), p.lookup("hrs_end")
	if !truthy(b) || !truthy(e) {
		return 0, 0, false
	}
	begin, err := toInt(b)
	if err != nil {
		return 0, 0, false
	}
	end, err = toInt(e)
	if err != nil {
		return 0, 0, false
	}
	return begin, end, true
}

// ExplicitMaxHours returns the max_hours property when present and numeric.
func (p Properties) ExplicitMaxHours() (float64, bool) {
	v, ok := p["max_hours"]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0
	case int:
		return x != 0
	case bool:
		return x
	}
	return true
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// toInt parses HHMM values. Floats truncate toward zero.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case int:
		return x, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	}
	return 0, fmt.Errorf("unsupported hour value %T", v)
}
