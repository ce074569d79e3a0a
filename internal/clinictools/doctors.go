package clinictools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

// maxRenderedSlots caps the times listed in a fallback reply.
const maxRenderedSlots = 5

type doctorView struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	Specialization      string   `json:"specialization"`
	AvailableDays       []string `json:"available_days"`
	WorkingHours        string   `json:"working_hours"`
	SlotDurationMinutes int      `json:"slot_duration_minutes"`
}

func viewOf(p providers.Provider) doctorView {
	return doctorView{
		ID:                  p.ID,
		Name:                p.DisplayName(),
		Specialization:      p.Specialization,
		AvailableDays:       p.WorkingDayNames(),
		WorkingHours:        p.WorkingHours().Kitchen(),
		SlotDurationMinutes: p.SlotMinutes(),
	}
}

// DoctorList is the list_doctors payload.
type DoctorList struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Doctors []doctorView `json:"doctors"`
}

func (c *Catalog) listDoctors() tools.Descriptor {
	return tools.Descriptor{
		Name:        ToolListDoctors,
		Description: "List the clinic's doctors with their specializations and working days. Optionally filter by specialization.",
		Parameters: tools.Schema{
			"specialization": {Type: tools.TypeString, Description: "Optional specialization filter, e.g. 'Cardiology'"},
		},
		Handler: tools.HandlerFunc(func(ctx context.Context, args tools.Arguments, _ tools.ExecutionContext) (any, error) {
			list, err := c.dir.List(ctx, args.String("specialization"))
			if err != nil {
				return nil, fmt.Errorf("clinictools: list providers: %w", err)
			}
			out := DoctorList{Success: true, Count: len(list), Doctors: make([]doctorView, 0, len(list))}
			for _, p := range list {
				out.Doctors = append(out.Doctors, viewOf(p))
			}
			return out, nil
		}),
		Render: renderDoctorList,
	}
}

func renderDoctorList(res tools.Result) string {
	list, ok := res.Payload.(DoctorList)
	if !ok {
		return "I couldn't load the list of doctors: " + failureText(res)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "We have %s available:\n", tools.CountNoun(list.Count, "doctor", "doctors"))
	for _, d := range list.Doctors {
		fmt.Fprintf(&b, "\n• %s - %s", d.Name, d.Specialization)
		if len(d.AvailableDays) > 0 {
			fmt.Fprintf(&b, "\n  Available: %s", strings.Join(d.AvailableDays, ", "))
		}
	}
	return b.String()
}

// Availability is the get_doctor_availability payload.
type Availability struct {
	Success             bool              `json:"success"`
	DoctorName          string            `json:"doctor_name"`
	Date                calendar.Date     `json:"date"`
	Day                 string            `json:"day"`
	AvailableSlots      []scheduling.Slot `json:"available_slots"`
	SlotDurationMinutes int               `json:"slot_duration_minutes"`
}

func (c *Catalog) doctorAvailability() tools.Descriptor {
	return tools.Descriptor{
		Name:        ToolDoctorAvailability,
		Description: "Get the open appointment slots for a doctor on a date. Returns the free times, or why the date cannot be booked.",
		Parameters: tools.Schema{
			"doctor_name": {Type: tools.TypeString, Description: "Doctor's name, e.g. 'Dr. Rajesh Ahuja'", Required: true},
			"date":        {Type: tools.TypeString, Description: "Date in YYYY-MM-DD format", Required: true},
		},
		Handler: tools.HandlerFunc(func(ctx context.Context, args tools.Arguments, exec tools.ExecutionContext) (any, error) {
			p, err := c.provider(ctx, args.String("doctor_name"))
			if err != nil {
				return nil, err
			}
			exec.Memory.RecordProviderSelection(p.ID, p.DisplayName(), p.Specialization)

			date, err := parseDateArg(args.String("date"), "date")
			if err != nil {
				return nil, err
			}
			slots, err := c.bookings.Availability(ctx, *p, date)
			var verr *scheduling.ValidationError
			if errors.As(err, &verr) {
				return nil, tools.Reject(tools.Rejection{
					Error:         verr.Reason,
					ErrorType:     string(verr.Type),
					ProviderName:  p.DisplayName(),
					RequestedDate: date.String(),
				})
			}
			if err != nil {
				return nil, fmt.Errorf("clinictools: availability: %w", err)
			}
			return Availability{
				Success:             true,
				DoctorName:          p.DisplayName(),
				Date:                date,
				Day:                 date.Weekday().String(),
				AvailableSlots:      slots,
				SlotDurationMinutes: p.SlotMinutes(),
			}, nil
		}),
		Render: renderAvailability,
	}
}

func renderAvailability(res tools.Result) string {
	a, ok := res.Payload.(Availability)
	if !ok {
		return failureText(res)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s has %s on %s.", a.DoctorName,
		tools.CountNoun(len(a.AvailableSlots), "available slot", "available slots"), a.Date)
	if len(a.AvailableSlots) > 0 {
		fmt.Fprintf(&b, "\nAvailable times: %s", strings.Join(slotTimes(a.AvailableSlots, maxRenderedSlots), ", "))
	}
	return b.String()
}

func slotTimes(slots []scheduling.Slot, limit int) []string {
	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Start.Kitchen()
	}
	return out
}
