// Package wsdate handles the WCF date strings WSDOT and WSF return, for
// example "/Date(1700000000000-0800)/".
package wsdate

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
)

var pattern = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

// ParamLayout is the layout WSF expects for date path parameters
const ParamLayout = "2006-01-02"

// Parse reads a WCF date. The milliseconds are UTC; the optional offset only
// selects the zone the result is reported in.
func Parse(s string) (time.Time, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("wsdate: %q is not a /Date(...)/ value", s)
	}
	ms, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("wsdate: %q: %w", s, err)
	}
	t := time.UnixMilli(ms).UTC()
	if m[2] == "" {
		return t, nil
	}

	sign := 1
	if m[2][0] == '-' {
		sign = -1
	}
	hh, _ := strconv.Atoi(m[2][1:3])
	mm, _ := strconv.Atoi(m[2][3:5])
	offset := sign * (hh*3600 + mm*60)
	return t.In(time.FixedZone(m[2], offset)), nil
}

// Format renders t as a WCF date carrying t's zone offset
func Format(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return fmt.Sprintf("/Date(%d%c%02d%02d)/", t.UnixMilli(), sign, offset/3600, (offset%3600)/60)
}

// FormatParam renders t for a URL date parameter
func FormatParam(t time.Time) string {
	return t.Format(ParamLayout)
}

// Time is a time.Time that decodes from WCF dates, RFC 3339 strings or null
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := gojson.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("wsdate: expected string, got %s", data)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := Parse(s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("wsdate: unrecognized date %q", s)
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes RFC 3339, or null for the zero time
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return gojson.Marshal(t.Time.Format(time.RFC3339))
}
