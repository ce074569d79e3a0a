package conversation

import (
	"strings"

	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

// synthesize formats accumulated tool results into a reply when the model
// did not produce one. Each tool renders its own results; identical lines
// from repeated calls are collapsed.
func synthesize(reg *tools.Registry, results []tools.Result) string {
	seen := make(map[string]bool, len(results))
	var parts []string
	for _, res := range results {
		text := strings.TrimSpace(reg.Render(res))
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return "I completed " + tools.CountNoun(len(results), "action", "actions") +
			", but I don't have anything more to add. How else can I help?"
	}
	return strings.Join(parts, "\n\n")
}
