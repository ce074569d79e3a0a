package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

var tuesday = calendar.Date{Year: 2026, Month: time.March, Day: 3}

func sampleBooking() Booking {
	return Booking{
		ProviderID:      1,
		PatientName:     "Jane Roe",
		PatientEmail:    "jane@example.com",
		Date:            tuesday,
		Start:           calendar.NewClock(10, 0),
		DurationMinutes: 30,
		Symptoms:        "fever, cough",
		BookedBy:        "user-1",
	}
}

func bookingRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "provider_id", "patient_name", "patient_email", "appointment_date",
		"start_minute", "duration_minutes", "status", "symptoms", "booked_by", "created_at"})
}

func TestPostgresRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(int64(1), "Jane Roe", "jane@example.com", pgxmock.AnyArg(), "10:00", 30,
			time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC),
			"scheduled", "fever, cough", "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(41), created))

	repo := NewPostgresRepository(mock)
	got, err := repo.Insert(context.Background(), sampleBooking())
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if got.ID != 41 || got.Status != StatusScheduled || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected booking %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_InsertConstraintViolation(t *testing.T) {
	for _, code := range []string{"23505", "23P01"} {
		t.Run(code, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create pgx mock: %v", err)
			}
			defer mock.Close()

			mock.ExpectQuery("INSERT INTO bookings").
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					pgxmock.AnyArg()).
				WillReturnError(&pgconn.PgError{Code: code, ConstraintName: "bookings_active_slot_key"})

			_, err = NewPostgresRepository(mock).Insert(context.Background(), sampleBooking())
			if !errors.Is(err, ErrSlotTaken) {
				t.Fatalf("expected ErrSlotTaken, got %v", err)
			}
		})
	}
}

func TestPostgresRepository_ListByProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	day := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM bookings").
		WithArgs(int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(bookingRows().
			AddRow(int64(1), int64(1), "A", "a@example.com", day, 540, 30, "scheduled", "", "user-1", created).
			AddRow(int64(2), int64(1), "B", "b@example.com", day, 600, 30, "cancelled", "rash", "", created))

	list, err := NewPostgresRepository(mock).ListByProvider(context.Background(), 1,
		calendar.DateRange{From: tuesday, To: tuesday})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	if list[0].Start != calendar.NewClock(9, 0) || list[0].Date != tuesday {
		t.Fatalf("unexpected first row %+v", list[0])
	}
	if list[1].Active() {
		t.Fatal("cancelled booking should not be active")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("WHERE id = ").WithArgs(int64(9)).WillReturnRows(bookingRows())
	if _, err := NewPostgresRepository(mock).Get(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	first, err := repo.Insert(ctx, sampleBooking())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID != 1 {
		t.Fatalf("expected id 1, got %d", first.ID)
	}

	overlap := sampleBooking()
	overlap.Start = calendar.NewClock(10, 15)
	if _, err := repo.Insert(ctx, overlap); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected overlap to be refused, got %v", err)
	}

	otherProvider := sampleBooking()
	otherProvider.ProviderID = 2
	if _, err := repo.Insert(ctx, otherProvider); err != nil {
		t.Fatalf("different provider should not clash: %v", err)
	}

	cancelled := sampleBooking()
	cancelled.Status = StatusCancelled
	if _, err := repo.Insert(ctx, cancelled); err != nil {
		t.Fatalf("cancelled rows never clash: %v", err)
	}

	hits, _ := repo.FindConflicting(ctx, 1, tuesday, calendar.RangeFor(calendar.NewClock(9, 45), 30))
	if len(hits) != 1 || hits[0].ID != first.ID {
		t.Fatalf("expected only the active overlap, got %+v", hits)
	}

	list, _ := repo.ListByProvider(ctx, 1, calendar.DateRange{From: tuesday, To: tuesday})
	if len(list) != 2 {
		t.Fatalf("expected active and cancelled rows, got %d", len(list))
	}

	if _, err := repo.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
