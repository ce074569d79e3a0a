package bookings

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
)

// Count is a labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats summarises a provider's bookings over a date range.
type Stats struct {
	ProviderName       string         `json:"doctor_name"`
	Range              DateRangeJSON  `json:"date_range"`
	TotalAppointments  int            `json:"total_appointments"`
	StatusDistribution map[Status]int `json:"status_distribution"`
	// SymptomAnalysis is ordered by descending count, then label.
	SymptomAnalysis   []Count `json:"symptom_analysis"`
	DailyDistribution []Count `json:"daily_distribution"`
}

type DateRangeJSON struct {
	Start calendar.Date `json:"start"`
	End   calendar.Date `json:"end"`
}

// Stats aggregates bookings; symptoms are split on commas and lowercased.
func (s *Service) Stats(ctx context.Context, p providers.Provider, dates calendar.DateRange) (*Stats, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.stats")
	defer span.End()

	if dates.To.Before(dates.From) {
		return nil, fmt.Errorf("bookings: stats range ends (%s) before it starts (%s)", dates.To, dates.From)
	}
	list, err := s.repo.ListByProvider(ctx, p.ID, dates)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return summarize(p, dates, list), nil
}

func summarize(p providers.Provider, dates calendar.DateRange, list []Booking) *Stats {
	st := &Stats{
		ProviderName:       p.Name,
		Range:              DateRangeJSON{Start: dates.From, End: dates.To},
		TotalAppointments:  len(list),
		StatusDistribution: map[Status]int{},
	}
	symptoms := map[string]int{}
	daily := map[calendar.Date]int{}
	for _, b := range list {
		st.StatusDistribution[b.Status]++
		daily[b.Date]++
		for _, raw := range strings.Split(b.Symptoms, ",") {
			if sym := strings.ToLower(strings.TrimSpace(raw)); sym != "" {
				symptoms[sym]++
			}
		}
	}

	for label, n := range symptoms {
		st.SymptomAnalysis = append(st.SymptomAnalysis, Count{Label: label, Count: n})
	}
	sort.Slice(st.SymptomAnalysis, func(i, j int) bool {
		a, b := st.SymptomAnalysis[i], st.SymptomAnalysis[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})

	days := make([]calendar.Date, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	for _, d := range days {
		st.DailyDistribution = append(st.DailyDistribution, Count{Label: d.String(), Count: daily[d]})
	}
	return st
}
