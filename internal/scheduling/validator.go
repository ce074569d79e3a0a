// Package scheduling decides whether a requested appointment may be booked
// and, when it may not, which nearby slots can be offered instead. Every
// function here is pure over its inputs; the insert that follows a clean
// validation is guarded separately by the booking repository.
package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
)

const (
	// DefaultHorizonDays is how far ahead patients may book.
	DefaultHorizonDays = 180
	// DefaultMaxSuggestions caps the alternatives offered on a conflict.
	DefaultMaxSuggestions = 5
)

// ErrorType tags which validation stage rejected a request.
type ErrorType string

const (
	ErrorTypeDate     ErrorType = "date"
	ErrorTypeTime     ErrorType = "time"
	ErrorTypeConflict ErrorType = "conflict"
)

// ValidationError is an expected, patient-facing rejection.
type ValidationError struct {
	Type        ErrorType
	Reason      string
	Suggestions []Slot
}

func (e *ValidationError) Error() string { return e.Reason }

// Request is the appointment being validated.
type Request struct {
	Date calendar.Date
	Time calendar.Clock
	// DurationMinutes defaults to the provider's slot length when zero.
	DurationMinutes int
}

// Result is the discriminated outcome of ValidateComplete.
type Result struct {
	Valid       bool
	ErrorType   ErrorType
	Reason      string
	Suggestions []Slot
}

// Err returns the rejection as a *ValidationError, or nil when valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Type: r.ErrorType, Reason: r.Reason, Suggestions: r.Suggestions}
}

// Validator holds the clinic-wide booking policy.
type Validator struct {
	horizonDays    int
	maxSuggestions int
	holidays       *Holidays
	loc            *time.Location
	now            func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithHorizonDays overrides DefaultHorizonDays.
func WithHorizonDays(days int) Option {
	return func(v *Validator) {
		if days > 0 {
			v.horizonDays = days
		}
	}
}

func WithMaxSuggestions(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxSuggestions = n
		}
	}
}

func WithHolidays(h *Holidays) Option {
	return func(v *Validator) { v.holidays = h }
}

// WithLocation sets the clinic time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) {
		if loc != nil {
			v.loc = loc
		}
	}
}

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		horizonDays:    DefaultHorizonDays,
		maxSuggestions: DefaultMaxSuggestions,
		holidays:       DefaultHolidays(),
		loc:            time.UTC,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Today returns the current clinic-local date.
func (v *Validator) Today() calendar.Date {
	return calendar.Today(v.now(), v.loc)
}

// HorizonDays reports the configured booking horizon.
func (v *Validator) HorizonDays() int { return v.horizonDays }

// ValidateDate rejects past days, days beyond the horizon, holidays and
// days the provider does not work.
func (v *Validator) ValidateDate(date calendar.Date, p providers.Provider) error {
	today := v.Today()
	if date.Before(today) {
		return dateError("Cannot book appointments in the past (%s). Please select today or a future date.", date.Long())
	}
	if last := today.AddDays(v.horizonDays); date.After(last) {
		return dateError("Appointments can only be booked up to %d days in advance (through %s). Please select an earlier date.",
			v.horizonDays, last.Long())
	}
	if name, closed := v.holidays.On(date); closed {
		return dateError("The clinic is closed on %s (%s). Please choose another date.", name, date.Long())
	}
	if !p.WorksOn(date.Weekday()) {
		return dateError("%s is not available on %ss. Available days: %s. Please select a different date.",
			p.DisplayName(), date.Weekday(), strings.Join(p.WorkingDayNames(), ", "))
	}
	return nil
}

// ValidateTime rejects times outside [WorkingHoursStart, WorkingHoursEnd)
// and, when date is today, times that have already passed.
func (v *Validator) ValidateTime(date calendar.Date, t calendar.Clock, p providers.Provider) error {
	hours := p.WorkingHours()
	if !hours.Contains(t) {
		return &ValidationError{
			Type: ErrorTypeTime,
			Reason: fmt.Sprintf("The requested time %s is outside %s's working hours (%s). Please select a time within these hours.",
				t.Kitchen(), p.DisplayName(), hours.Kitchen()),
		}
	}
	if now, passed := v.passed(date, t); passed {
		return &ValidationError{
			Type: ErrorTypeTime,
			Reason: fmt.Sprintf("The requested time %s has already passed today (it is now %s). Please select a later time or another day.",
				t.Kitchen(), now.Kitchen()),
		}
	}
	return nil
}

// passed reports whether t on date is earlier than the current clinic-local
// minute. Only today can have passed times; ValidateDate handles past days.
func (v *Validator) passed(date calendar.Date, t calendar.Clock) (calendar.Clock, bool) {
	now := v.now().In(v.loc)
	if date != calendar.DateOf(now) {
		return 0, false
	}
	clock := calendar.ClockOf(now)
	return clock, t < clock
}

// CheckConflict rejects a slot that starts with or overlaps an active
// booking on the same day, offering up to maxSuggestions open alternatives.
func (v *Validator) CheckConflict(date calendar.Date, t calendar.Clock, durationMinutes int, p providers.Provider, existing []Existing) error {
	if durationMinutes <= 0 {
		durationMinutes = p.SlotMinutes()
	}
	requested := calendar.RangeFor(t, durationMinutes)
	active := activeOn(date, existing)

	var clash *Existing
	exact := false
	for i := range active {
		if active[i].Range.Start == t {
			clash, exact = &active[i], true
			break
		}
		if clash == nil && active[i].Range.Overlaps(requested) {
			clash = &active[i]
		}
	}
	if clash == nil {
		return nil
	}

	suggestions := v.openSlots(date, p, active, durationMinutes, v.maxSuggestions)
	var reason string
	switch {
	case exact && len(suggestions) > 0:
		reason = fmt.Sprintf("This time slot (%s) is already booked. Available slots on %s: %s.",
			t.Kitchen(), date.Long(), strings.Join(kitchenTimes(suggestions), ", "))
	case exact:
		reason = fmt.Sprintf("This time slot (%s) is already booked and no other slots are available with %s on %s. Please try another day.",
			t.Kitchen(), p.DisplayName(), date.Long())
	case len(suggestions) > 0:
		reason = fmt.Sprintf("This time slot overlaps with another appointment (%s). Try these times: %s.",
			clash.Range.Kitchen(), strings.Join(kitchenTimes(suggestions), ", "))
	default:
		reason = fmt.Sprintf("This time slot overlaps with another appointment (%s) and no other slots are available with %s on %s. Please try another day.",
			clash.Range.Kitchen(), p.DisplayName(), date.Long())
	}
	return &ValidationError{Type: ErrorTypeConflict, Reason: reason, Suggestions: suggestions}
}

// ValidateComplete runs date, time and conflict checks in that order and
// stops at the first failure.
func (v *Validator) ValidateComplete(req Request, p providers.Provider, existing []Existing) Result {
	duration := req.DurationMinutes
	if duration <= 0 {
		duration = p.SlotMinutes()
	}
	checks := []func() error{
		func() error { return v.ValidateDate(req.Date, p) },
		func() error { return v.ValidateTime(req.Date, req.Time, p) },
		func() error { return v.CheckConflict(req.Date, req.Time, duration, p, existing) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			verr := err.(*ValidationError)
			return Result{ErrorType: verr.Type, Reason: verr.Reason, Suggestions: verr.Suggestions}
		}
	}
	return Result{Valid: true}
}

// OpenSlots lists the free slots of the provider's slot length on date.
// limit <= 0 returns every free slot.
func (v *Validator) OpenSlots(date calendar.Date, p providers.Provider, existing []Existing, limit int) []Slot {
	return v.openSlots(date, p, activeOn(date, existing), p.SlotMinutes(), limit)
}

// openSlots walks working hours in slot-length steps and keeps every
// interval of durationMinutes that ends by close and misses all active bookings.
func (v *Validator) openSlots(date calendar.Date, p providers.Provider, active []Existing, durationMinutes, limit int) []Slot {
	hours := p.WorkingHours()
	step := p.SlotMinutes()
	out := []Slot{}
	for start := hours.Start; start.Add(durationMinutes) <= hours.End; start = start.Add(step) {
		if _, passed := v.passed(date, start); passed {
			continue
		}
		candidate := calendar.RangeFor(start, durationMinutes)
		if overlapsAny(candidate, active) {
			continue
		}
		out = append(out, Slot{Date: date, Start: candidate.Start, End: candidate.End})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func overlapsAny(r calendar.TimeRange, active []Existing) bool {
	for _, e := range active {
		if e.Range.Overlaps(r) {
			return true
		}
	}
	return false
}

func dateError(format string, args ...any) error {
	return &ValidationError{Type: ErrorTypeDate, Reason: fmt.Sprintf(format, args...)}
}
