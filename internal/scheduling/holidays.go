package scheduling

import (
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

// Holiday is a closure that recurs on the same month and day every year.
type Holiday struct {
	Month time.Month
	Day   int
	Name  string
}

// Holidays answers whether the clinic is closed on a given day.
type Holidays struct {
	annual   []Holiday
	closures map[calendar.Date]string
}

// DefaultHolidays are the fixed-date closures the clinic observes.
func DefaultHolidays() *Holidays {
	return NewHolidays(
		Holiday{Month: time.January, Day: 1, Name: "New Year's Day"},
		Holiday{Month: time.July, Day: 4, Name: "Independence Day"},
		Holiday{Month: time.December, Day: 25, Name: "Christmas Day"},
	)
}

func NewHolidays(annual ...Holiday) *Holidays {
	return &Holidays{annual: annual, closures: make(map[calendar.Date]string)}
}

// AddClosure registers a one-off closure such as a floating holiday.
func (h *Holidays) AddClosure(d calendar.Date, name string) *Holidays {
	h.closures[d] = name
	return h
}

// On returns the holiday name when d is a closure day.
func (h *Holidays) On(d calendar.Date) (string, bool) {
	if h == nil {
		return "", false
	}
	if name, ok := h.closures[d]; ok {
		return name, true
	}
	for _, hol := range h.annual {
		if hol.Month == d.Month && hol.Day == d.Day {
			return hol.Name, true
		}
	}
	return "", false
}
