package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
)

var (
	// ErrSlotTaken is returned when the storage-level uniqueness guard rejects an insert.
	ErrSlotTaken = errors.New("bookings: slot already taken")
	// ErrNotFound is returned when a booking id does not exist.
	ErrNotFound = errors.New("bookings: not found")
)

// Status is a booking lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Booking is a patient's appointment with a provider.
type Booking struct {
	ID              int64          `json:"id"`
	ProviderID      int64          `json:"provider_id"`
	PatientName     string         `json:"patient_name"`
	PatientEmail    string         `json:"patient_email"`
	Date            calendar.Date  `json:"appointment_date"`
	Start           calendar.Clock `json:"appointment_time"`
	DurationMinutes int            `json:"duration_minutes"`
	Status          Status         `json:"status"`
	Symptoms        string         `json:"symptoms,omitempty"`
	// BookedBy is the user id that made the booking; only they may act on it.
	BookedBy  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnedBy reports whether userID made this booking.
func (b Booking) OwnedBy(userID string) bool {
	return b.BookedBy != "" && b.BookedBy == userID
}

func (b Booking) Range() calendar.TimeRange {
	return calendar.RangeFor(b.Start, b.DurationMinutes)
}

// StartsAt and EndsAt are naive wall-clock instants; the clinic zone is implied.
func (b Booking) StartsAt() time.Time { return b.Date.At(b.Start, time.UTC) }
func (b Booking) EndsAt() time.Time   { return b.Date.At(b.Range().End, time.UTC) }

// Active reports whether the booking still occupies its slot.
func (b Booking) Active() bool { return b.Status != StatusCancelled }

// Existing converts the booking to the validator's view.
func (b Booking) Existing() scheduling.Existing {
	return scheduling.Existing{Date: b.Date, Range: b.Range(), Cancelled: !b.Active()}
}

// AsExisting converts a list of bookings for the validator.
func AsExisting(list []Booking) []scheduling.Existing {
	out := make([]scheduling.Existing, len(list))
	for i, b := range list {
		out[i] = b.Existing()
	}
	return out
}

// Repository is the storage contract. Insert must reject a second active
// booking on the same provider/date/start (or any overlap) with ErrSlotTaken.
type Repository interface {
	FindConflicting(ctx context.Context, providerID int64, date calendar.Date, window calendar.TimeRange) ([]Booking, error)
	Insert(ctx context.Context, b Booking) (Booking, error)
	ListByProvider(ctx context.Context, providerID int64, dates calendar.DateRange) ([]Booking, error)
	Get(ctx context.Context, id int64) (*Booking, error)
}
