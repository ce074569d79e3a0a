package bookings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

func testProvider() providers.Provider {
	return providers.Provider{
		ID:                  1,
		Name:                "Dr. Smith",
		WorkingDays:         []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		WorkingHoursStart:   calendar.NewClock(9, 0),
		WorkingHoursEnd:     calendar.NewClock(17, 0),
		SlotDurationMinutes: 30,
	}
}

func testService(repo Repository) *Service {
	now := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	v := scheduling.NewValidator(scheduling.WithNow(func() time.Time { return now }))
	return NewService(repo, v, logging.Discard())
}

func bookRequest(hour, minute int) Request {
	return Request{
		Provider:     testProvider(),
		PatientName:  "Jane Roe",
		PatientEmail: "Jane@Example.com",
		Date:         tuesday,
		Time:         calendar.NewClock(hour, minute),
	}
}

func TestService_BookClean(t *testing.T) {
	svc := testService(NewMemoryRepository())
	b, err := svc.Book(context.Background(), bookRequest(10, 0))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if b.PatientEmail != "jane@example.com" || b.DurationMinutes != 30 {
		t.Fatalf("unexpected booking %+v", b)
	}
}

func TestService_BookRejectsWeekend(t *testing.T) {
	svc := testService(NewMemoryRepository())
	req := bookRequest(10, 0)
	req.Date = calendar.Date{Year: 2026, Month: time.March, Day: 7}
	_, err := svc.Book(context.Background(), req)
	var verr *scheduling.ValidationError
	if !errors.As(err, &verr) || verr.Type != scheduling.ErrorTypeDate {
		t.Fatalf("expected date rejection, got %v", err)
	}
}

func TestService_ConcurrentBookingsOneWinner(t *testing.T) {
	svc := testService(NewMemoryRepository())
	const n = 12

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts []*scheduling.ValidationError
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), bookRequest(10, 0))
			mu.Lock()
			defer mu.Unlock()
			var verr *scheduling.ValidationError
			switch {
			case err == nil:
				successes++
			case errors.As(err, &verr):
				conflicts = append(conflicts, verr)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if len(conflicts) != n-1 {
		t.Fatalf("expected %d conflicts, got %d", n-1, len(conflicts))
	}
	booked := calendar.RangeFor(calendar.NewClock(10, 0), 30)
	hours := testProvider().WorkingHours()
	for _, c := range conflicts {
		if c.Type != scheduling.ErrorTypeConflict {
			t.Fatalf("expected conflict type, got %s", c.Type)
		}
		if len(c.Suggestions) == 0 || len(c.Suggestions) > scheduling.DefaultMaxSuggestions {
			t.Fatalf("expected 1..5 suggestions, got %d", len(c.Suggestions))
		}
		for _, s := range c.Suggestions {
			if s.Range().Overlaps(booked) {
				t.Fatalf("suggestion %s overlaps the winning booking", s.Start)
			}
			if s.Start < hours.Start || s.End > hours.End {
				t.Fatalf("suggestion %s outside working hours", s.Start)
			}
		}
	}
}

// staleRepo hides existing bookings from ListByProvider until an insert has
// been refused, reproducing a validate-then-insert race deterministically.
type staleRepo struct {
	*MemoryRepository
	refused bool
}

func (r *staleRepo) ListByProvider(ctx context.Context, id int64, dates calendar.DateRange) ([]Booking, error) {
	if !r.refused {
		return []Booking{}, nil
	}
	return r.MemoryRepository.ListByProvider(ctx, id, dates)
}

func (r *staleRepo) Insert(ctx context.Context, b Booking) (Booking, error) {
	out, err := r.MemoryRepository.Insert(ctx, b)
	if errors.Is(err, ErrSlotTaken) {
		r.refused = true
	}
	return out, err
}

func TestService_LostRaceReportsConflict(t *testing.T) {
	mem := NewMemoryRepository()
	if _, err := mem.Insert(context.Background(), sampleBooking()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := testService(&staleRepo{MemoryRepository: mem})

	_, err := svc.Book(context.Background(), bookRequest(10, 0))
	var verr *scheduling.ValidationError
	if !errors.As(err, &verr) || verr.Type != scheduling.ErrorTypeConflict {
		t.Fatalf("expected conflict after race, got %v", err)
	}
	if !strings.Contains(verr.Reason, "already booked") {
		t.Fatalf("unexpected reason %q", verr.Reason)
	}
	if verr.Suggestions[0].Start != calendar.NewClock(9, 0) {
		t.Fatalf("unexpected first suggestion %s", verr.Suggestions[0].Start)
	}
}

func TestService_Availability(t *testing.T) {
	svc := testService(NewMemoryRepository())
	if _, err := svc.Book(context.Background(), bookRequest(9, 0)); err != nil {
		t.Fatalf("book: %v", err)
	}
	slots, err := svc.Availability(context.Background(), testProvider(), tuesday)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(slots) != 15 || slots[0].Start != calendar.NewClock(9, 30) {
		t.Fatalf("unexpected slots: %d first=%s", len(slots), slots[0].Start)
	}
	if _, err := svc.Availability(context.Background(), testProvider(), calendar.Date{Year: 2026, Month: time.March, Day: 8}); err == nil {
		t.Fatal("expected Sunday to be rejected")
	}
}

func TestService_Stats(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for _, b := range []Booking{
		{ProviderID: 1, Date: tuesday, Start: calendar.NewClock(9, 0), DurationMinutes: 30, Symptoms: "Fever, cough"},
		{ProviderID: 1, Date: tuesday, Start: calendar.NewClock(9, 30), DurationMinutes: 30, Symptoms: "fever"},
		{ProviderID: 1, Date: tuesday.AddDays(1), Start: calendar.NewClock(9, 0), DurationMinutes: 30, Status: StatusCancelled},
		{ProviderID: 2, Date: tuesday, Start: calendar.NewClock(9, 0), DurationMinutes: 30, Symptoms: "rash"},
	} {
		if _, err := repo.Insert(ctx, b); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	svc := testService(repo)
	st, err := svc.Stats(ctx, testProvider(), calendar.DateRange{From: tuesday, To: tuesday.AddDays(6)})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalAppointments != 3 {
		t.Fatalf("total = %d", st.TotalAppointments)
	}
	if st.StatusDistribution[StatusScheduled] != 2 || st.StatusDistribution[StatusCancelled] != 1 {
		t.Fatalf("status distribution %v", st.StatusDistribution)
	}
	if st.SymptomAnalysis[0] != (Count{Label: "fever", Count: 2}) {
		t.Fatalf("symptoms %v", st.SymptomAnalysis)
	}
	if len(st.DailyDistribution) != 2 || st.DailyDistribution[0].Label != "2026-03-03" {
		t.Fatalf("daily %v", st.DailyDistribution)
	}

	if _, err := svc.Stats(ctx, testProvider(), calendar.DateRange{From: tuesday, To: tuesday.AddDays(-1)}); err == nil {
		t.Fatal("expected inverted range error")
	}
}
