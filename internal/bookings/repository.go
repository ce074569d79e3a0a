package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

const bookingColumns = `id, provider_id, patient_name, patient_email, appointment_date,
		       (EXTRACT(EPOCH FROM start_time) / 60)::int, duration_minutes, status,
		       COALESCE(symptoms, ''), COALESCE(booked_by, ''), created_at`

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores bookings in Postgres. The bookings table carries a
// partial unique index on (provider_id, appointment_date, start_time) and an
// exclusion constraint on overlapping [starts_at, ends_at) for active rows.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository accepts a *pgxpool.Pool or any compatible querier.
func NewPostgresRepository(db pgxQuerier) *PostgresRepository {
	if db == nil {
		panic("bookings: pgx querier required")
	}
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, b Booking) (Booking, error) {
	if b.Status == "" {
		b.Status = StatusScheduled
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO bookings (provider_id, patient_name, patient_email, appointment_date, start_time,
		    duration_minutes, starts_at, ends_at, status, symptoms, booked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''))
		RETURNING id, created_at`,
		b.ProviderID, b.PatientName, b.PatientEmail, b.Date.In(time.UTC), b.Start.String(),
		b.DurationMinutes, b.StartsAt(), b.EndsAt(), string(b.Status), b.Symptoms, b.BookedBy,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if isSlotTaken(err) {
			return Booking{}, ErrSlotTaken
		}
		return Booking{}, fmt.Errorf("bookings: insert: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) FindConflicting(ctx context.Context, providerID int64, date calendar.Date, window calendar.TimeRange) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND appointment_date = $2 AND status <> 'cancelled'
		  AND starts_at < $4 AND ends_at > $3
		ORDER BY start_time`,
		providerID, date.In(time.UTC), date.At(window.Start, time.UTC), date.At(window.End, time.UTC))
	if err != nil {
		return nil, fmt.Errorf("bookings: find conflicting: %w", err)
	}
	return collectBookings(rows)
}

func (r *PostgresRepository) ListByProvider(ctx context.Context, providerID int64, dates calendar.DateRange) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND appointment_date BETWEEN $2 AND $3
		ORDER BY appointment_date, start_time, id`,
		providerID, dates.From.In(time.UTC), dates.To.In(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("bookings: list by provider: %w", err)
	}
	return collectBookings(rows)
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	list, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()
	out := []Booking{}
	for rows.Next() {
		var (
			b        Booking
			day      time.Time
			startMin int
			status   string
		)
		if err := rows.Scan(&b.ID, &b.ProviderID, &b.PatientName, &b.PatientEmail, &day,
			&startMin, &b.DurationMinutes, &status, &b.Symptoms, &b.BookedBy, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		b.Date = calendar.DateOf(day)
		b.Start = calendar.Clock(startMin)
		b.Status = Status(status)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: rows: %w", err)
	}
	return out, nil
}

func isSlotTaken(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation || pgErr.Code == pgExclusionViolation
}
