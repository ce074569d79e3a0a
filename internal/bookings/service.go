package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/internal/providers"
	"github.com/wolfman30/clinic-booking-agent/internal/scheduling"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

var bookingsTracer = otel.Tracer("clinic.internal.bookings")

// Request describes an appointment a patient asked for.
type Request struct {
	Provider     providers.Provider
	PatientName  string
	PatientEmail string
	Symptoms     string
	// BookedBy is the requesting user's id.
	BookedBy string
	Date     calendar.Date
	Time     calendar.Clock
}

// Service validates requests against the provider calendar and persists them.
type Service struct {
	repo      Repository
	validator *scheduling.Validator
	logger    *logging.Logger
}

// NewService constructs a bookings service.
func NewService(repo Repository, validator *scheduling.Validator, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if validator == nil {
		validator = scheduling.NewValidator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, validator: validator, logger: logger}
}

// Validator exposes the booking policy for read-only callers.
func (s *Service) Validator() *scheduling.Validator { return s.validator }

// Repository exposes the underlying store.
func (s *Service) Repository() Repository { return s.repo }

// Book runs the full validation and inserts the booking. A rejection is
// returned as *scheduling.ValidationError; losing an insert race to another
// request is reported the same way, with suggestions computed after the fact.
func (s *Service) Book(ctx context.Context, req Request) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.book")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("clinic.provider_id", req.Provider.ID),
		attribute.String("clinic.date", req.Date.String()),
		attribute.String("clinic.time", req.Time.String()),
	)

	day := calendar.DateRange{From: req.Date, To: req.Date}
	existing, err := s.repo.ListByProvider(ctx, req.Provider.ID, day)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	duration := req.Provider.SlotMinutes()
	res := s.validator.ValidateComplete(scheduling.Request{Date: req.Date, Time: req.Time, DurationMinutes: duration},
		req.Provider, AsExisting(existing))
	if !res.Valid {
		span.SetAttributes(attribute.String("clinic.rejected", string(res.ErrorType)))
		s.logger.Info("booking rejected", "provider_id", req.Provider.ID, "date", req.Date.String(),
			"time", req.Time.String(), "error_type", res.ErrorType)
		return nil, res.Err()
	}

	booking, err := s.repo.Insert(ctx, Booking{
		ProviderID:      req.Provider.ID,
		PatientName:     req.PatientName,
		PatientEmail:    strings.ToLower(req.PatientEmail),
		Date:            req.Date,
		Start:           req.Time,
		DurationMinutes: duration,
		Status:          StatusScheduled,
		Symptoms:        req.Symptoms,
		BookedBy:        req.BookedBy,
	})
	if errors.Is(err, ErrSlotTaken) {
		return nil, s.lostRace(ctx, req, duration)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("booking confirmed", "booking_id", booking.ID, "provider_id", booking.ProviderID,
		"date", booking.Date.String(), "time", booking.Start.String())
	return &booking, nil
}

// lostRace rebuilds the conflict response after the storage guard refused
// an insert that passed validation against an older snapshot.
func (s *Service) lostRace(ctx context.Context, req Request, duration int) error {
	window := calendar.RangeFor(req.Time, duration)
	winners, err := s.repo.FindConflicting(ctx, req.Provider.ID, req.Date, window)
	if err != nil {
		return err
	}
	ids := make([]int64, len(winners))
	for i, w := range winners {
		ids[i] = w.ID
	}
	s.logger.Warn("booking lost insert race", "provider_id", req.Provider.ID, "date", req.Date.String(),
		"time", req.Time.String(), "conflicting_ids", ids)

	existing, err := s.repo.ListByProvider(ctx, req.Provider.ID, calendar.DateRange{From: req.Date, To: req.Date})
	if err != nil {
		return err
	}
	if cerr := s.validator.CheckConflict(req.Date, req.Time, duration, req.Provider, AsExisting(existing)); cerr != nil {
		return cerr
	}
	// The winning row is no longer visible (cancelled in between); still refuse
	// rather than retrying silently.
	return &scheduling.ValidationError{
		Type:        scheduling.ErrorTypeConflict,
		Reason:      fmt.Sprintf("This time slot (%s) was just booked by someone else. Please choose another time.", req.Time.Kitchen()),
		Suggestions: s.validator.OpenSlots(req.Date, req.Provider, AsExisting(existing), scheduling.DefaultMaxSuggestions),
	}
}

// Availability lists the provider's free slots on date after date validation.
func (s *Service) Availability(ctx context.Context, p providers.Provider, date calendar.Date) ([]scheduling.Slot, error) {
	if err := s.validator.ValidateDate(date, p); err != nil {
		return nil, err
	}
	existing, err := s.repo.ListByProvider(ctx, p.ID, calendar.DateRange{From: date, To: date})
	if err != nil {
		return nil, err
	}
	return s.validator.OpenSlots(date, p, AsExisting(existing), 0), nil
}
