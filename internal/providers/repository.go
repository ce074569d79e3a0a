package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

const providerColumns = `id, name, specialization, email, phone, working_days,
		       to_char(working_hours_start, 'HH24:MI'), to_char(working_hours_end, 'HH24:MI'),
		       slot_duration_minutes`

// SQLDirectory reads providers from Postgres through database/sql.
type SQLDirectory struct {
	db *sql.DB
}

func NewSQLDirectory(db *sql.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

func (r *SQLDirectory) Get(ctx context.Context, id int64) (*Provider, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+providerColumns+`
		FROM providers WHERE id = $1 AND active`, id)
	return scanProvider(row)
}

func (r *SQLDirectory) FindByName(ctx context.Context, name string) (*Provider, error) {
	needle := normalizeName(name)
	if needle == "" {
		return nil, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE active AND name ILIKE '%' || $1 || '%'
		ORDER BY name, id LIMIT 1`, needle)
	return scanProvider(row)
}

func (r *SQLDirectory) List(ctx context.Context, specialization string) ([]Provider, error) {
	query := `
		SELECT ` + providerColumns + `
		FROM providers WHERE active`
	var args []any
	if spec := strings.TrimSpace(specialization); spec != "" {
		query += ` AND specialization ILIKE '%' || $1 || '%'`
		args = append(args, spec)
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("providers: list: %w", err)
	}
	defer rows.Close()

	out := []Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a provider keyed by email and returns its ID.
func (r *SQLDirectory) Upsert(ctx context.Context, p Provider) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO providers (name, specialization, email, phone, working_days,
		    working_hours_start, working_hours_end, slot_duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		ON CONFLICT (email) DO UPDATE SET
		    name = EXCLUDED.name, specialization = EXCLUDED.specialization,
		    phone = EXCLUDED.phone, working_days = EXCLUDED.working_days,
		    working_hours_start = EXCLUDED.working_hours_start,
		    working_hours_end = EXCLUDED.working_hours_end,
		    slot_duration_minutes = EXCLUDED.slot_duration_minutes,
		    active = TRUE, updated_at = now()
		RETURNING id`,
		p.Name, p.Specialization, p.Email, p.Phone, pq.Array(p.WorkingDayNames()),
		p.WorkingHoursStart.String(), p.WorkingHoursEnd.String(), p.SlotMinutes()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("providers: upsert %s: %w", p.Name, err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*Provider, error) {
	var (
		p          Provider
		email      sql.NullString
		phone      sql.NullString
		days       []string
		start, end string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Specialization, &email, &phone,
		pq.Array(&days), &start, &end, &p.SlotDurationMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("providers: scan: %w", err)
	}
	p.Email = email.String
	p.Phone = phone.String
	if p.WorkingDays, err = calendar.ParseWeekdays(days); err != nil {
		return nil, fmt.Errorf("providers: %s: %w", p.Name, err)
	}
	if p.WorkingHoursStart, err = calendar.ParseClock(start); err != nil {
		return nil, fmt.Errorf("providers: %s: %w", p.Name, err)
	}
	if p.WorkingHoursEnd, err = calendar.ParseClock(end); err != nil {
		return nil, fmt.Errorf("providers: %s: %w", p.Name, err)
	}
	return &p, nil
}
