package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

// MemoryRepository keeps bookings in process. Insert checks for overlap and
// appends under one lock, which serialises concurrent validate-then-insert
// sequences the same way the Postgres constraints do.
type MemoryRepository struct {
	mu     sync.Mutex
	rows   []Booking
	nextID int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) Insert(_ context.Context, b Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.Status == "" {
		b.Status = StatusScheduled
	}
	if b.Active() {
		for _, existing := range r.rows {
			if existing.ProviderID != b.ProviderID || existing.Date != b.Date || !existing.Active() {
				continue
			}
			if existing.Start == b.Start || existing.Range().Overlaps(b.Range()) {
				return Booking{}, ErrSlotTaken
			}
		}
	}
	r.nextID++
	b.ID = r.nextID
	b.CreatedAt = r.now().UTC()
	r.rows = append(r.rows, b)
	return b, nil
}

func (r *MemoryRepository) FindConflicting(_ context.Context, providerID int64, date calendar.Date, window calendar.TimeRange) ([]Booking, error) {
	return r.filter(func(b Booking) bool {
		return b.ProviderID == providerID && b.Date == date && b.Active() && b.Range().Overlaps(window)
	}), nil
}

func (r *MemoryRepository) ListByProvider(_ context.Context, providerID int64, dates calendar.DateRange) ([]Booking, error) {
	return r.filter(func(b Booking) bool {
		return b.ProviderID == providerID && dates.Contains(b.Date)
	}), nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) filter(keep func(Booking) bool) []Booking {
	r.mu.Lock()
	out := []Booking{}
	for _, b := range r.rows {
		if keep(b) {
			out = append(out, b)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}
