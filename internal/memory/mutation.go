package memory

import (
	"sync"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

// Mutation changes a context in place. now is the time the change was recorded.
type Mutation func(c *Context, now time.Time)

// SelectProvider records interest in a provider.
func SelectProvider(id int64, name, category string) Mutation {
	return func(c *Context, now time.Time) {
		c.SelectedProvider = &ProviderSelection{ID: id, Name: name, Category: category, SelectedAt: now}
	}
}

// RejectAttempt appends a rejected slot and remembers the reason.
func RejectAttempt(date calendar.Date, clock, reason string) Mutation {
	return func(c *Context, now time.Time) {
		c.AttemptedSlots = append(c.AttemptedSlots, AttemptedSlot{
			Date: date, Time: clock, RejectionReason: reason, AttemptedAt: now,
		})
		if n := len(c.AttemptedSlots); n > maxAttempts {
			c.AttemptedSlots = append([]AttemptedSlot(nil), c.AttemptedSlots[n-maxAttempts:]...)
		}
		c.LastRejectionReason = reason
	}
}

// BookingSucceeded records a confirmed booking and clears the last rejection.
func BookingSucceeded(bookingID int64, providerName string, date calendar.Date, clock string) Mutation {
	return func(c *Context, now time.Time) {
		c.LastSuccessfulBooking = &BookingRecord{
			BookingID: bookingID, ProviderName: providerName, Date: date, Time: clock, BookedAt: now,
		}
		c.LastRejectionReason = ""
	}
}

// Turn counts a completed exchange.
func Turn(userMessage, response string) Mutation {
	return func(c *Context, _ time.Time) {
		c.MessageCount++
		c.LastUserMessage = userMessage
		c.LastResponse = response
	}
}

// Journal buffers mutations made while a turn is in progress so they can be
// committed together with the turn record, or dropped if the turn aborts.
// A nil *Journal ignores every call.
type Journal struct {
	mu   sync.Mutex
	now  func() time.Time
	muts []Mutation
}

func NewJournal(now func() time.Time) *Journal {
	if now == nil {
		now = time.Now
	}
	return &Journal{now: now}
}

// Record stamps m with the current time and buffers it.
func (j *Journal) Record(m Mutation) {
	if j == nil || m == nil {
		return
	}
	at := j.now()
	j.mu.Lock()
	j.muts = append(j.muts, func(c *Context, _ time.Time) { m(c, at) })
	j.mu.Unlock()
}

func (j *Journal) RecordProviderSelection(id int64, name, category string) {
	j.Record(SelectProvider(id, name, category))
}

func (j *Journal) RecordRejectedAttempt(date calendar.Date, clock, reason string) {
	j.Record(RejectAttempt(date, clock, reason))
}

func (j *Journal) RecordSuccessfulBooking(bookingID int64, providerName string, date calendar.Date, clock string) {
	j.Record(BookingSucceeded(bookingID, providerName, date, clock))
}

// Mutations returns the buffered mutations in record order.
func (j *Journal) Mutations() []Mutation {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Mutation(nil), j.muts...)
}

func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.muts)
}
