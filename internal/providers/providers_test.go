package providers

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
)

func cardiologist() Provider {
	return Provider{
		Name:                "Dr. Rajesh Ahuja",
		Specialization:      "Cardiology",
		Email:               "dr.ahuja@clinic.example",
		WorkingDays:         []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Friday},
		WorkingHoursStart:   calendar.NewClock(9, 0),
		WorkingHoursEnd:     calendar.NewClock(17, 0),
		SlotDurationMinutes: 30,
	}
}

func TestProvider_Helpers(t *testing.T) {
	p := cardiologist()
	assert.True(t, p.WorksOn(time.Friday))
	assert.False(t, p.WorksOn(time.Saturday))
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Friday"}, p.WorkingDayNames())
	assert.Equal(t, "Dr. Rajesh Ahuja", p.DisplayName())
	assert.Equal(t, "Dr. Jane Doe", Provider{Name: "Jane Doe"}.DisplayName())
	assert.Equal(t, DefaultSlotMinutes, Provider{}.SlotMinutes())
	require.NoError(t, p.Validate())

	bad := p
	bad.WorkingHoursEnd = bad.WorkingHoursStart
	require.Error(t, bad.Validate())
	bad = p
	bad.WorkingDays = nil
	require.Error(t, bad.Validate())
}

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	peds := cardiologist()
	peds.Name = "Dr. Sneha Reddy"
	peds.Specialization = "Pediatrics"
	dir := NewMemoryDirectory(cardiologist(), peds)

	p, err := dir.FindByName(ctx, "ahuja")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	p, err = dir.FindByName(ctx, "dr. sneha")
	require.NoError(t, err)
	assert.Equal(t, "Pediatrics", p.Specialization)

	_, err = dir.FindByName(ctx, "house")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = dir.Get(ctx, 42)
	assert.True(t, errors.Is(err, ErrNotFound))

	all, err := dir.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Dr. Rajesh Ahuja", all[0].Name)

	cardio, err := dir.List(ctx, "cardio")
	require.NoError(t, err)
	require.Len(t, cardio, 1)
}

func providerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "specialization", "email", "phone", "working_days",
		"working_hours_start", "working_hours_end", "slot_duration_minutes"})
}

func TestSQLDirectory_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM providers WHERE id = \$1 AND active`).
		WithArgs(int64(7)).
		WillReturnRows(providerRows().AddRow(int64(7), "Dr. Amit Patel", "Orthopedics", "dr.patel@clinic.example", nil,
			"{Tuesday,Thursday,Friday,Saturday}", "10:00", "18:00", 30))

	dir := NewSQLDirectory(db)
	p, err := dir.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Amit Patel", p.Name)
	assert.Equal(t, "", p.Phone)
	assert.True(t, p.WorksOn(time.Saturday))
	assert.Equal(t, calendar.NewClock(10, 0), p.WorkingHoursStart)
	assert.Equal(t, calendar.NewClock(18, 0), p.WorkingHoursEnd)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDirectory_FindByNameNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`name ILIKE`).WithArgs("house").WillReturnRows(providerRows())

	_, err = NewSQLDirectory(db).FindByName(context.Background(), "Dr. House")
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDirectory_ListBySpecialization(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`specialization ILIKE`).
		WithArgs("General").
		WillReturnRows(providerRows().
			AddRow(int64(2), "Dr. Priya Sharma", "General Physician", "a@b.c", "+1", "{Monday,Wednesday}", "08:00", "16:00", 30).
			AddRow(int64(7), "Dr. Rahul Mehta", "General Physician", "d@e.f", "+2", "{Sunday}", "09:00", "13:00", 15))

	list, err := NewSQLDirectory(db).List(context.Background(), " General ")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 15, list[1].SlotDurationMinutes)
	assert.True(t, list[1].WorksOn(time.Sunday))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDirectory_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	p := cardiologist()
	mock.ExpectQuery(`INSERT INTO providers`).
		WithArgs(p.Name, p.Specialization, p.Email, p.Phone, sqlmock.AnyArg(), "09:00", "17:00", 30).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := NewSQLDirectory(db).Upsert(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

type countingDirectory struct {
	Directory
	gets  atomic.Int32
	names atomic.Int32
}

func (c *countingDirectory) Get(ctx context.Context, id int64) (*Provider, error) {
	c.gets.Add(1)
	return c.Directory.Get(ctx, id)
}

func (c *countingDirectory) FindByName(ctx context.Context, name string) (*Provider, error) {
	c.names.Add(1)
	return c.Directory.FindByName(ctx, name)
}

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()
	backing := &countingDirectory{Directory: NewMemoryDirectory(cardiologist())}
	cached := NewCachedDirectory(backing, 8, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := cached.FindByName(ctx, "Ahuja")
		require.NoError(t, err)
		assert.Equal(t, int64(1), p.ID)
	}
	assert.Equal(t, int32(1), backing.names.Load())

	_, err := cached.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), backing.gets.Load(), "name lookup should warm the id cache")

	cached.Purge()
	_, err = cached.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), backing.gets.Load())

	_, err = cached.Get(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoadSeed(t *testing.T) {
	doc := `
providers:
  - name: Dr. Vikram Singh
    specialization: Dermatology
    email: dr.singh@clinic.example
    working_days: [Monday, wed, Friday]
    working_hours: {start: "11:00", end: "19:00"}
    slot_duration_minutes: 30
`
	list, err := LoadSeed(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].WorksOn(time.Wednesday))
	assert.Equal(t, calendar.NewClock(19, 0), list[0].WorkingHoursEnd)

	_, err = LoadSeed(strings.NewReader(`
providers:
  - name: Dr. Nobody
    working_days: [Funday]
    working_hours: {start: "09:00", end: "10:00"}
`))
	require.Error(t, err)
}

func TestLoadSeedFile_Repository(t *testing.T) {
	list, err := LoadSeedFile("../../config/providers.yaml")
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}
