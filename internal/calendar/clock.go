package calendar

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time expressed as minutes after midnight.
type Clock int

// MinutesPerDay bounds valid Clock values (exclusive).
const MinutesPerDay = 24 * 60

var clockLayouts = []string{"15:04", "15:04:05", "3:04 PM", "03:04 PM", "3:04PM", "3PM", "3 PM"}

// ParseClock accepts 24-hour "HH:MM" (the canonical form) plus common
// 12-hour spellings the model tends to produce.
func ParseClock(raw string) (Clock, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("calendar: invalid time %q, use HH:MM (24-hour)", raw)
}

// NewClock builds a Clock from hour and minute.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ClockOf returns the wall-clock component of t.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

// Add returns c shifted by the given number of minutes.
func (c Clock) Add(minutes int) Clock { return c + Clock(minutes) }

// String renders the 24-hour "15:04" form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Kitchen renders the 12-hour "03:04 PM" form shown to patients.
func (c Clock) Kitchen() string {
	h := c.Hour() % 24
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, c.Minute(), suffix)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseClock(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeRange is a half-open [Start, End) interval within one day.
type TimeRange struct {
	Start Clock
	End   Clock
}

// RangeFor returns [start, start+minutes).
func RangeFor(start Clock, minutes int) TimeRange {
	return TimeRange{Start: start, End: start.Add(minutes)}
}

// Overlaps reports whether the two half-open intervals intersect.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// Contains reports whether c lies in [Start, End).
func (r TimeRange) Contains(c Clock) bool {
	return c >= r.Start && c < r.End
}

func (r TimeRange) Minutes() int { return int(r.End - r.Start) }

// Kitchen renders "09:00 AM - 05:00 PM".
func (r TimeRange) Kitchen() string {
	return r.Start.Kitchen() + " - " + r.End.Kitchen()
}
