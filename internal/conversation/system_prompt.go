package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/clinictools"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
)

// Mode selects the assistant persona for a turn.
type Mode string

const (
	ModePatient Mode = "patient"
	ModeDoctor  Mode = "doctor"
)

const doctorSessionPrefix = "doctor_"

// resolveMode honours an explicit mode and otherwise infers doctor mode from
// a "doctor_" session id.
func resolveMode(requested Mode, sessionID string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(string(requested)))) {
	case ModeDoctor:
		return ModeDoctor
	case ModePatient:
		return ModePatient
	}
	if strings.HasPrefix(sessionID, doctorSessionPrefix) {
		return ModeDoctor
	}
	return ModePatient
}

type promptInput struct {
	Mode     Mode
	Today    calendar.Date
	Location string
	Doctors  []providers.Provider
	Memory   string
}

func buildSystemPrompt(in promptInput) string {
	if in.Mode == ModeDoctor {
		return buildDoctorPrompt(in)
	}
	return buildPatientPrompt(in)
}

func buildPatientPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString("You are an intelligent medical appointment assistant with access to real doctor data and booking tools.\n\n")
	fmt.Fprintf(&b, "CLINIC: %s\nTODAY: %s (%s)\n\n", in.Location, in.Today, in.Today.Weekday())

	if len(in.Doctors) > 0 {
		b.WriteString("AVAILABLE DOCTORS:\n")
		for _, d := range in.Doctors {
			fmt.Fprintf(&b, "- %s (%s) - Available: %s\n", d.DisplayName(), d.Specialization, strings.Join(d.WorkingDayNames(), ", "))
		}
		b.WriteString("\n")
	}
	if in.Memory != "" {
		b.WriteString(in.Memory)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, `YOUR CAPABILITIES:
1. Answer questions about available doctors and their specializations (%s)
2. Check a doctor's open slots for a date (%s)
3. Book appointments (%s); requires patient name, email, doctor name, date and time
4. Email a patient about an existing appointment (%s)

IMPORTANT GUIDELINES:
- Use the tools for current information instead of guessing.
- Dates are YYYY-MM-DD and times are 24-hour HH:MM. Resolve words like "tomorrow" or "next Monday" against TODAY.
- Only call %s once you have every required detail.
- If a booking is rejected, explain the reason and offer the suggested times.
- Use the conversation context: "the same doctor" or "try another day" refer to earlier selections.
- After a successful booking, confirm the details and mention the confirmation email.

Be helpful, professional and concise.`,
		clinictools.ToolListDoctors, clinictools.ToolDoctorAvailability, clinictools.ToolBookAppointment,
		clinictools.ToolSendPatientEmail, clinictools.ToolBookAppointment)
	return b.String()
}

func buildDoctorPrompt(in promptInput) string {
	var b strings.Builder
	b.WriteString("You are an intelligent medical analytics assistant for doctors.\n\n")
	fmt.Fprintf(&b, "CLINIC: %s\nCURRENT DATE: %s (%s)\n\n", in.Location, in.Today, in.Today.Weekday())
	if in.Memory != "" {
		b.WriteString(in.Memory)
		b.WriteString("\n\n")
	}

	monthStart := calendar.Date{Year: in.Today.Year, Month: in.Today.Month, Day: 1}
	fmt.Fprintf(&b, `YOUR CAPABILITIES:
1. Report appointment counts, status breakdowns and common symptoms (%s)
2. Notify a doctor by email with a report, alert or reminder (%s)

DATE RANGES:
- "today": %s to %s
- "yesterday": %s to %s
- "this week": %s to %s
- "this month": %s to %s

IMPORTANT GUIDELINES:
- Always call %s to answer questions about appointments; quote the numbers it returns.
- The doctor's name is usually in the message ("I am Dr. ...").`,
		clinictools.ToolDoctorStats, clinictools.ToolSendDoctorNotification,
		in.Today, in.Today,
		in.Today.AddDays(-1), in.Today.AddDays(-1),
		in.Today.AddDays(-7), in.Today,
		monthStart, in.Today,
		clinictools.ToolDoctorStats)
	return b.String()
}
