package scheduling

import (
	"encoding/json"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

// Slot is a candidate appointment interval on one day.
type Slot struct {
	Date  calendar.Date
	Start calendar.Clock
	End   calendar.Clock
}

func (s Slot) Range() calendar.TimeRange {
	return calendar.TimeRange{Start: s.Start, End: s.End}
}

type slotJSON struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Time24h  string `json:"time_24h"`
	EndTime  string `json:"end_time"`
	DateTime string `json:"datetime"`
}

// MarshalJSON emits the display form ("10:30 AM") alongside time_24h, the
// form book_appointment accepts.
func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(slotJSON{
		Date:     s.Date.String(),
		Time:     s.Start.Kitchen(),
		Time24h:  s.Start.String(),
		EndTime:  s.End.String(),
		DateTime: s.Date.String() + "T" + s.Start.String() + ":00",
	})
}

func (s *Slot) UnmarshalJSON(b []byte) error {
	var raw slotJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := calendar.ParseDate(raw.Date)
	if err != nil {
		return err
	}
	start, err := calendar.ParseClock(raw.Time24h)
	if err != nil {
		return err
	}
	end, err := calendar.ParseClock(raw.EndTime)
	if err != nil {
		return err
	}
	*s = Slot{Date: d, Start: start, End: end}
	return nil
}

// Existing is an already-booked appointment as the validator sees it.
type Existing struct {
	Date      calendar.Date
	Range     calendar.TimeRange
	Cancelled bool
}

func activeOn(date calendar.Date, existing []Existing) []Existing {
	out := make([]Existing, 0, len(existing))
	for _, e := range existing {
		if e.Cancelled || e.Date != date {
			continue
		}
		out = append(out, e)
	}
	return out
}

func kitchenTimes(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Kitchen()
	}
	return out
}
