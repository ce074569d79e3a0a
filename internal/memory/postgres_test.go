package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

func TestPostgresBackend_UpdateLocksAndWrites(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clock := newFakeClock()
	store := NewStore(NewPostgresBackend(mock, nil), WithClock(clock.Now), WithLogger(logging.Discard()))
	key := mustKey(t, "s1", "u1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversation_contexts").
		WithArgs("s1", "u1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT context_data FROM conversation_contexts").
		WithArgs("s1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"context_data"}).AddRow([]byte(`{}`)))
	mock.ExpectExec("UPDATE conversation_contexts").
		WithArgs("s1", "u1", pgxmock.AnyArg(), "hi", "hello", 1,
			clock.Now(), clock.Now(), clock.Now().Add(DefaultTTL)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, store.RecordTurn(context.Background(), key, "hi", "hello"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_SkipWriteRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStore(NewPostgresBackend(mock, nil), WithClock(newFakeClock().Now), WithLogger(logging.Discard()))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversation_contexts").
		WithArgs("s1", "u1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT context_data FROM conversation_contexts").
		WithArgs("s1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"context_data"}).AddRow([]byte(`{}`)))
	mock.ExpectRollback()

	require.NoError(t, store.ExtendExpiry(context.Background(), mustKey(t, "s1", "u1"), time.Hour))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clock := newFakeClock()
	stored := newContext(Key{SessionID: "s1", UserID: "u1"}, clock.Now())
	stored.ExpiresAt = clock.Now().Add(time.Hour)
	stored.SelectedProvider = &ProviderSelection{ID: 2, Name: "Dr. Michael Chen", Category: "Dermatology"}
	data, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT context_data FROM conversation_contexts").
		WithArgs("s1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"context_data"}).AddRow(data))

	store := NewStore(NewPostgresBackend(mock, nil), WithClock(clock.Now), WithLogger(logging.Discard()))
	c, err := store.Get(context.Background(), mustKey(t, "s1", "u1"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Dr. Michael Chen", c.SelectedProvider.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := newFakeClock().Now()
	mock.ExpectExec("DELETE FROM conversation_contexts").
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := NewPostgresBackend(mock, nil).DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
