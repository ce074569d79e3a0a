package clinictools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/clinic-booking-agent/internal/bookings"
	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/tools"
)

// DoctorStats is the get_doctor_stats payload.
type DoctorStats struct {
	Success bool `json:"success"`
	*bookings.Stats
}

func (c *Catalog) doctorStats() tools.Descriptor {
	return tools.Descriptor{
		Name:        ToolDoctorStats,
		Description: "Get appointment statistics for a doctor over a date range: totals, status breakdown, common symptoms and per-day counts.",
		Parameters: tools.Schema{
			"doctor_name": {Type: tools.TypeString, Description: "Doctor's name", Required: true},
			"start_date":  {Type: tools.TypeString, Description: "First day in YYYY-MM-DD format", Required: true},
			"end_date":    {Type: tools.TypeString, Description: "Last day in YYYY-MM-DD format", Required: true},
		},
		Handler: tools.HandlerFunc(func(ctx context.Context, args tools.Arguments, _ tools.ExecutionContext) (any, error) {
			p, err := c.provider(ctx, args.String("doctor_name"))
			if err != nil {
				return nil, err
			}
			from, err := parseDateArg(args.String("start_date"), "start_date")
			if err != nil {
				return nil, err
			}
			to, err := parseDateArg(args.String("end_date"), "end_date")
			if err != nil {
				return nil, err
			}
			if to.Before(from) {
				return nil, tools.Fail(fmt.Sprintf("end_date %s is before start_date %s", to, from), nil)
			}
			st, err := c.bookings.Stats(ctx, *p, calendar.DateRange{From: from, To: to})
			if err != nil {
				return nil, fmt.Errorf("clinictools: stats: %w", err)
			}
			st.ProviderName = p.DisplayName()
			return DoctorStats{Success: true, Stats: st}, nil
		}),
		Render: renderStats,
	}
}

func renderStats(res tools.Result) string {
	st, ok := res.Payload.(DoctorStats)
	if !ok || st.Stats == nil {
		return "I couldn't load the statistics: " + failureText(res)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Statistics for %s (%s to %s):\n", st.ProviderName, st.Range.Start, st.Range.End)
	fmt.Fprintf(&b, "Total appointments: %d", st.TotalAppointments)

	if len(st.StatusDistribution) > 0 {
		statuses := make([]string, 0, len(st.StatusDistribution))
		for s := range st.StatusDistribution {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		parts := make([]string, len(statuses))
		for i, s := range statuses {
			parts[i] = fmt.Sprintf("%s %d", s, st.StatusDistribution[bookings.Status(s)])
		}
		fmt.Fprintf(&b, "\nStatus breakdown: %s", strings.Join(parts, ", "))
	}
	if n := len(st.SymptomAnalysis); n > 0 {
		if n > 3 {
			n = 3
		}
		top := make([]string, n)
		for i := 0; i < n; i++ {
			top[i] = st.SymptomAnalysis[i].Label
		}
		fmt.Fprintf(&b, "\nCommon symptoms: %s", strings.Join(top, ", "))
	}
	return b.String()
}
