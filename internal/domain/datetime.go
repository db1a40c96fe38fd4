package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is the wire format the record backend uses for datetime fields.
const DateTimeLayout = "2006-01-02 15:04:05.000Z"

// DateLayout is the format used for date-only input and display.
const DateLayout = "2006-01-02"

var parseLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04:05Z",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	DateLayout,
}

// DateTime is a UTC timestamp that serializes as the backend datetime string.
// The zero value serializes as "" (an unset field).
type DateTime struct {
	time.Time
}

func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.UTC()}
}

// ParseDateTime accepts the backend layout, RFC3339 and plain dates.
// An empty string yields the zero DateTime.
func ParseDateTime(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{}, nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDateTime(t), nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid datetime %q", s)
}

func (d DateTime) String() string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(DateTimeLayout)
}

// Date returns the YYYY-MM-DD part, or "" when unset.
func (d DateTime) Date() string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(DateLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = DateTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("datetime must be a string: %w", err)
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
