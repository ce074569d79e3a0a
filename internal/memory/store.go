// Package memory keeps the per-(session, user) conversation context that lets
// the agent recall earlier selections and rejections across turns and restarts.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// DefaultTTL is how long a context lives after its last update.
const DefaultTTL = 24 * time.Hour

// errSkipWrite aborts an Update without persisting anything.
var errSkipWrite = errors.New("memory: skip write")

// Backend persists contexts. Update must be an atomic read-modify-write for
// one key: fn receives the stored context, or a zero Context when none
// exists, and its changes are written only if it returns nil.
type Backend interface {
	Load(ctx context.Context, key Key) (*Context, error)
	Update(ctx context.Context, key Key, fn func(c *Context) error) (*Context, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// clockedBackend is a Backend that needs the store clock, e.g. to derive TTLs.
type clockedBackend interface {
	useClock(now func() time.Time)
}

// Store is the narrow mutation API over a Backend.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *logging.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *logging.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStore(backend Backend, opts ...StoreOption) *Store {
	if backend == nil {
		panic("memory: backend required")
	}
	s := &Store{backend: backend, ttl: DefaultTTL, now: time.Now, logger: logging.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if cb, ok := backend.(clockedBackend); ok {
		cb.useClock(s.now)
	}
	return s
}

// Now exposes the store clock so journals share it.
func (s *Store) Now() time.Time { return s.now() }

// Get returns the live context for key, or nil when none exists or it has expired.
func (s *Store) Get(ctx context.Context, key Key) (*Context, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	c, err := s.backend.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("memory: load: %w", err)
	}
	if c == nil || !c.exists() || c.Expired(s.now()) || c.Key() != key {
		return nil, nil
	}
	return c, nil
}

// GetOrCreate returns the context for key, creating it on first reference.
func (s *Store) GetOrCreate(ctx context.Context, key Key) (*Context, error) {
	c, err := s.Get(ctx, key)
	if err != nil || c != nil {
		return c, err
	}
	return s.Apply(ctx, key)
}

// Apply runs mutations as one atomic update. An expired context is reset
// before the mutations run.
func (s *Store) Apply(ctx context.Context, key Key, muts ...Mutation) (*Context, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	c, err := s.backend.Update(ctx, key, func(c *Context) error {
		now := s.now()
		if !c.exists() || c.Expired(now) || c.Key() != key {
			*c = newContext(key, now)
		}
		for _, m := range muts {
			m(c, now)
		}
		c.UpdatedAt = now
		c.ExpiresAt = now.Add(s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("memory: update: %w", err)
	}
	return c, nil
}

func (s *Store) RecordProviderSelection(ctx context.Context, key Key, id int64, name, category string) error {
	_, err := s.Apply(ctx, key, SelectProvider(id, name, category))
	return err
}

func (s *Store) RecordRejectedAttempt(ctx context.Context, key Key, date calendar.Date, clock, reason string) error {
	_, err := s.Apply(ctx, key, RejectAttempt(date, clock, reason))
	return err
}

func (s *Store) RecordSuccessfulBooking(ctx context.Context, key Key, bookingID int64, providerName string, date calendar.Date, clock string) error {
	_, err := s.Apply(ctx, key, BookingSucceeded(bookingID, providerName, date, clock))
	return err
}

func (s *Store) RecordTurn(ctx context.Context, key Key, userMessage, response string) error {
	_, err := s.Apply(ctx, key, Turn(userMessage, response))
	return err
}

// Commit applies a turn's journal and the turn record in one update.
func (s *Store) Commit(ctx context.Context, key Key, j *Journal, userMessage, response string) (*Context, error) {
	muts := append(j.Mutations(), Turn(userMessage, response))
	return s.Apply(ctx, key, muts...)
}

// ExtendExpiry pushes an existing context's expiry to now+d. Missing or
// expired contexts are left alone.
func (s *Store) ExtendExpiry(ctx context.Context, key Key, d time.Duration) error {
	if err := key.Validate(); err != nil {
		return err
	}
	_, err := s.backend.Update(ctx, key, func(c *Context) error {
		now := s.now()
		if !c.exists() || c.Expired(now) || c.Key() != key {
			return errSkipWrite
		}
		c.ExpiresAt = now.Add(d)
		return nil
	})
	if err != nil && !errors.Is(err, errSkipWrite) {
		return fmt.Errorf("memory: extend expiry: %w", err)
	}
	return nil
}

// RenderSummary returns the prompt summary for key, or "" when there is none.
func (s *Store) RenderSummary(ctx context.Context, key Key) (string, error) {
	c, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return Summarize(c), nil
}

// SweepExpired deletes contexts that expired before now.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := s.backend.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("memory: sweep: %w", err)
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.SweepExpired(ctx, s.now())
			if err != nil {
				s.logger.Error("memory sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("memory sweep removed expired contexts", "count", n)
			}
		}
	}
}
