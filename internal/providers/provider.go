// Package providers exposes the clinic's provider directory: who practices
// here, on which weekdays, and during which hours.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

// DefaultSlotMinutes applies when a provider row carries no slot duration.
const DefaultSlotMinutes = 30

// ErrNotFound is returned when no provider matches a lookup.
var ErrNotFound = errors.New("providers: not found")

// Provider is a practitioner and their weekly availability template.
type Provider struct {
	ID                  int64          `json:"id"`
	Name                string         `json:"name"`
	Specialization      string         `json:"specialization"`
	Email               string         `json:"email,omitempty"`
	Phone               string         `json:"phone,omitempty"`
	WorkingDays         []time.Weekday `json:"-"`
	WorkingHoursStart   calendar.Clock `json:"working_hours_start"`
	WorkingHoursEnd     calendar.Clock `json:"working_hours_end"`
	SlotDurationMinutes int            `json:"slot_duration_minutes"`
}

// Directory is the read contract the booking engine needs.
type Directory interface {
	Get(ctx context.Context, id int64) (*Provider, error)
	// FindByName resolves a loosely spelled name ("ahuja", "Dr. Rajesh Ahuja").
	FindByName(ctx context.Context, name string) (*Provider, error)
	// List returns providers ordered by name, filtered by specialization when non-empty.
	List(ctx context.Context, specialization string) ([]Provider, error)
}

// WorksOn reports whether the provider sees patients on the given weekday.
func (p Provider) WorksOn(day time.Weekday) bool {
	for _, d := range p.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

// WorkingHours returns the provider's daily [start, end) window.
func (p Provider) WorkingHours() calendar.TimeRange {
	return calendar.TimeRange{Start: p.WorkingHoursStart, End: p.WorkingHoursEnd}
}

// SlotMinutes returns the slot length, falling back to DefaultSlotMinutes.
func (p Provider) SlotMinutes() int {
	if p.SlotDurationMinutes <= 0 {
		return DefaultSlotMinutes
	}
	return p.SlotDurationMinutes
}

// WorkingDayNames lists working days Monday-first.
func (p Provider) WorkingDayNames() []string {
	return calendar.WeekdayNames(p.WorkingDays)
}

// DisplayName prefixes "Dr." unless the stored name already carries it.
func (p Provider) DisplayName() string {
	if strings.HasPrefix(strings.ToLower(p.Name), "dr.") || strings.HasPrefix(strings.ToLower(p.Name), "dr ") {
		return p.Name
	}
	return "Dr. " + p.Name
}

// Validate checks the availability template is usable for slot generation.
func (p Provider) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("providers: name is required")
	}
	if len(p.WorkingDays) == 0 {
		return fmt.Errorf("providers: %s has no working days", p.Name)
	}
	if p.WorkingHoursEnd <= p.WorkingHoursStart {
		return fmt.Errorf("providers: %s working hours end %s is not after start %s",
			p.Name, p.WorkingHoursEnd, p.WorkingHoursStart)
	}
	if p.WorkingHoursEnd > calendar.MinutesPerDay {
		return fmt.Errorf("providers: %s working hours end past midnight", p.Name)
	}
	return nil
}

// normalizeName lowercases and strips honorifics so "Dr. Ahuja" matches "ahuja".
func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range []string{"dr.", "dr ", "doctor "} {
		n = strings.TrimSpace(strings.TrimPrefix(n, prefix))
	}
	return strings.Join(strings.Fields(n), " ")
}
