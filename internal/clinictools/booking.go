package clinictools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/bookings"
	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/notify"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

// Confirmation is the book_appointment success payload.
type Confirmation struct {
	Success                  bool   `json:"success"`
	AppointmentID            int64  `json:"appointment_id"`
	PatientName              string `json:"patient_name"`
	PatientEmail             string `json:"patient_email"`
	DoctorName               string `json:"doctor_name"`
	DoctorSpecialization     string `json:"doctor_specialization"`
	AppointmentDate          string `json:"appointment_date"`
	AppointmentDateFormatted string `json:"appointment_date_formatted"`
	AppointmentTime          string `json:"appointment_time"`
	AppointmentTimeFormatted string `json:"appointment_time_formatted"`
	EndTime                  string `json:"end_time"`
	DurationMinutes          int    `json:"duration_minutes"`
	Location                 string `json:"location"`
	EmailSent                bool   `json:"email_sent"`
}

func (c *Catalog) bookAppointment() tools.Descriptor {
	return tools.Descriptor{
		Name: ToolBookAppointment,
		Description: "Book an appointment for a patient with a doctor at a date and time. " +
			"Call only when the patient name, email, doctor, date and time are all known. " +
			"On rejection the result explains why and may suggest alternative slots.",
		Parameters: tools.Schema{
			"patient_name":     {Type: tools.TypeString, Description: "Patient's full name", Required: true},
			"patient_email":    {Type: tools.TypeString, Description: "Patient's email address", Required: true},
			"doctor_name":      {Type: tools.TypeString, Description: "Doctor's name", Required: true},
			"appointment_date": {Type: tools.TypeString, Description: "Date in YYYY-MM-DD format", Required: true},
			"appointment_time": {Type: tools.TypeString, Description: "Time in HH:MM format (24-hour)", Required: true},
			"symptoms":         {Type: tools.TypeString, Description: "Symptoms or reason for the visit"},
		},
		Handler: tools.HandlerFunc(c.book),
		Render:  renderBooking,
	}
}

func (c *Catalog) book(ctx context.Context, args tools.Arguments, exec tools.ExecutionContext) (any, error) {
	name, err := normalizeName(args.String("patient_name"), "patient name")
	if err != nil {
		return nil, tools.Fail("Invalid patient details: "+err.Error(), nil)
	}
	email, err := normalizeEmail(args.String("patient_email"))
	if err != nil {
		return nil, tools.Fail("Invalid patient details: "+err.Error(), nil)
	}
	symptoms, err := sanitizeText(args.String("symptoms"))
	if err != nil {
		return nil, tools.Fail("Invalid symptoms: "+err.Error(), nil)
	}

	p, err := c.provider(ctx, args.String("doctor_name"))
	if err != nil {
		return nil, err
	}
	exec.Memory.RecordProviderSelection(p.ID, p.DisplayName(), p.Specialization)

	date, derr := calendar.ParseDate(args.String("appointment_date"))
	clock, terr := calendar.ParseClock(args.String("appointment_time"))
	if derr != nil || terr != nil {
		return nil, tools.Fail("Invalid date or time format. Please use YYYY-MM-DD for date and HH:MM for time.", nil)
	}

	booking, err := c.bookings.Book(ctx, bookings.Request{
		Provider:     *p,
		PatientName:  name,
		PatientEmail: email,
		Symptoms:     symptoms,
		BookedBy:     exec.UserID,
		Date:         date,
		Time:         clock,
	})
	var verr *scheduling.ValidationError
	if errors.As(err, &verr) {
		exec.Memory.RecordRejectedAttempt(date, clock.String(), verr.Reason)
		rej := tools.Rejection{
			Error:         verr.Reason,
			ErrorType:     string(verr.Type),
			ProviderName:  p.DisplayName(),
			RequestedDate: date.String(),
		}
		if len(verr.Suggestions) > 0 {
			rej.SuggestedSlots = verr.Suggestions
		}
		return nil, tools.Reject(rej)
	}
	if err != nil {
		return nil, fmt.Errorf("clinictools: book: %w", err)
	}

	exec.Memory.RecordSuccessfulBooking(booking.ID, p.DisplayName(), booking.Date, booking.Start.String())

	out := Confirmation{
		Success:                  true,
		AppointmentID:            booking.ID,
		PatientName:              booking.PatientName,
		PatientEmail:             booking.PatientEmail,
		DoctorName:               p.DisplayName(),
		DoctorSpecialization:     p.Specialization,
		AppointmentDate:          booking.Date.String(),
		AppointmentDateFormatted: booking.Date.In(time.UTC).Format("Monday, January 02, 2006"),
		AppointmentTime:          booking.Start.String(),
		AppointmentTimeFormatted: booking.Start.Kitchen(),
		EndTime:                  booking.Range().End.String(),
		DurationMinutes:          booking.DurationMinutes,
		Location:                 c.location,
	}

	// The booking stands even if the email does not go out.
	err = c.notifier.SendBookingConfirmation(ctx, notify.Confirmation{
		PatientName:  booking.PatientName,
		PatientEmail: booking.PatientEmail,
		ProviderName: p.DisplayName(),
		Date:         booking.Date.Long(),
		Time:         booking.Start.Kitchen(),
		Location:     c.location,
	})
	if err != nil {
		c.logger.Warn("confirmation email failed", "booking_id", booking.ID, "error", err)
	} else {
		out.EmailSent = true
	}
	return out, nil
}

func renderBooking(res tools.Result) string {
	if conf, ok := res.Payload.(Confirmation); ok {
		var b strings.Builder
		b.WriteString("Your appointment is confirmed!\n")
		fmt.Fprintf(&b, "Doctor: %s (%s)\n", conf.DoctorName, conf.DoctorSpecialization)
		fmt.Fprintf(&b, "Date: %s at %s\n", conf.AppointmentDateFormatted, conf.AppointmentTimeFormatted)
		fmt.Fprintf(&b, "Appointment ID: #%d", conf.AppointmentID)
		if conf.EmailSent {
			fmt.Fprintf(&b, "\nA confirmation email has been sent to %s.", conf.PatientEmail)
		}
		return b.String()
	}
	rej, ok := res.Payload.(tools.Rejection)
	if !ok {
		return "I couldn't book that appointment: " + failureText(res)
	}
	text := "I couldn't book that appointment: " + rej.Error
	// Conflict reasons already list the open times.
	if slots, ok := rej.SuggestedSlots.([]scheduling.Slot); ok && len(slots) > 0 && rej.ErrorType != string(scheduling.ErrorTypeConflict) {
		text += "\nAvailable alternatives: " + strings.Join(slotTimes(slots, maxRenderedSlots), ", ")
	}
	return text
}
