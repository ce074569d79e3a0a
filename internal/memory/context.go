package memory

import (
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

var (
	// ErrMissingUserIdentifier rejects any access without a user id. Falling
	// back to a shared default would let users read each other's context.
	ErrMissingUserIdentifier = errors.New("memory: user identifier is required")
	// ErrMissingSessionID rejects access without a session id.
	ErrMissingSessionID = errors.New("memory: session identifier is required")
)

// maxAttempts bounds the attempted-slot history kept per context.
const maxAttempts = 20

// Key addresses exactly one context. The same session under two users is two keys.
type Key struct {
	SessionID string
	UserID    string
}

// NewKey validates and trims both parts.
func NewKey(sessionID, userID string) (Key, error) {
	k := Key{SessionID: strings.TrimSpace(sessionID), UserID: strings.TrimSpace(userID)}
	return k, k.Validate()
}

// Validate checks both parts are present. The user check runs first so a
// request with neither is reported as a missing user.
func (k Key) Validate() error {
	if k.UserID == "" {
		return ErrMissingUserIdentifier
	}
	if k.SessionID == "" {
		return ErrMissingSessionID
	}
	return nil
}

// ProviderSelection is the provider the user last showed interest in.
type ProviderSelection struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	SelectedAt time.Time `json:"selected_at"`
}

// AttemptedSlot is a booking attempt that was rejected.
type AttemptedSlot struct {
	Date            calendar.Date `json:"date"`
	Time            string        `json:"time,omitempty"`
	RejectionReason string        `json:"rejection_reason"`
	AttemptedAt     time.Time     `json:"attempted_at"`
}

// BookingRecord is the last booking that went through.
type BookingRecord struct {
	BookingID    int64         `json:"booking_id"`
	ProviderName string        `json:"provider_name"`
	Date         calendar.Date `json:"date"`
	Time         string        `json:"time"`
	BookedAt     time.Time     `json:"booked_at"`
}

// Context is the durable per-(session, user) memory.
type Context struct {
	SessionID             string             `json:"session_id"`
	UserID                string             `json:"user_id"`
	SelectedProvider      *ProviderSelection `json:"selected_provider,omitempty"`
	AttemptedSlots        []AttemptedSlot    `json:"attempted_slots,omitempty"`
	LastRejectionReason   string             `json:"last_rejection_reason,omitempty"`
	LastSuccessfulBooking *BookingRecord     `json:"last_successful_booking,omitempty"`
	MessageCount          int                `json:"message_count"`
	LastUserMessage       string             `json:"last_user_message,omitempty"`
	LastResponse          string             `json:"last_response,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
	ExpiresAt             time.Time          `json:"expires_at"`
}

func newContext(k Key, now time.Time) Context {
	return Context{SessionID: k.SessionID, UserID: k.UserID, CreatedAt: now, UpdatedAt: now}
}

// Key returns the context's composite key.
func (c *Context) Key() Key { return Key{SessionID: c.SessionID, UserID: c.UserID} }

// Expired reports whether the context is past its TTL at now.
func (c *Context) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// exists is false for the zero value backends hand out for absent keys.
func (c *Context) exists() bool { return !c.CreatedAt.IsZero() }

// Clone returns a deep copy.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	if c.SelectedProvider != nil {
		sel := *c.SelectedProvider
		out.SelectedProvider = &sel
	}
	if c.LastSuccessfulBooking != nil {
		rec := *c.LastSuccessfulBooking
		out.LastSuccessfulBooking = &rec
	}
	out.AttemptedSlots = append([]AttemptedSlot(nil), c.AttemptedSlots...)
	return &out
}
