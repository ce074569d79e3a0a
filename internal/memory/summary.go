package memory

import (
	"fmt"
	"strings"
)

// Summarize renders a context as the bullet list injected into the system
// prompt. It reads only c, so it can never mix in another key's data.
func Summarize(c *Context) string {
	if c == nil {
		return ""
	}
	var parts []string
	if p := c.SelectedProvider; p != nil {
		if p.Category != "" {
			parts = append(parts, fmt.Sprintf("The user has previously shown interest in %s (%s).", p.Name, p.Category))
		} else {
			parts = append(parts, fmt.Sprintf("The user has previously shown interest in %s.", p.Name))
		}
	}
	if attempts := attemptLabels(c.AttemptedSlots); len(attempts) > 0 {
		parts = append(parts, fmt.Sprintf("The user has attempted to book on: %s.", strings.Join(attempts, ", ")))
	}
	if c.LastRejectionReason != "" {
		parts = append(parts, "Last booking attempt failed because: "+c.LastRejectionReason)
	}
	if b := c.LastSuccessfulBooking; b != nil {
		parts = append(parts, fmt.Sprintf("User successfully booked an appointment (ID: %d) with %s on %s at %s.",
			b.BookingID, b.ProviderName, b.Date, b.Time))
	}
	if len(parts) == 0 {
		return ""
	}
	return "**Conversation Context:**\n- " + strings.Join(parts, "\n- ")
}

// attemptLabels lists distinct attempts as "2026-03-07 (Saturday) 10:00".
func attemptLabels(slots []AttemptedSlot) []string {
	seen := make(map[string]bool, len(slots))
	var out []string
	for _, s := range slots {
		label := fmt.Sprintf("%s (%s)", s.Date, s.Date.Weekday())
		if s.Time != "" {
			label += " " + s.Time
		}
		if seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}
