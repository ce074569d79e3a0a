package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinic-booking-agent/internal/calendar"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

func newRedisStore(t *testing.T, clock *fakeClock) (*Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewStore(NewRedisBackend(client, nil), WithClock(clock.Now), WithTTL(time.Hour), WithLogger(logging.Discard()))
	return store, mr, client
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	store, mr, _ := newRedisStore(t, clock)
	ctx := context.Background()
	key := mustKey(t, "s1", "u1")

	require.NoError(t, store.RecordProviderSelection(ctx, key, 3, "Dr. Emily Rodriguez", "Pediatrics"))
	require.NoError(t, store.RecordRejectedAttempt(ctx, key, calendar.Date{Year: 2026, Month: 3, Day: 7}, "10:00", "closed"))

	c, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, c.SelectedProvider)
	assert.Equal(t, "Dr. Emily Rodriguez", c.SelectedProvider.Name)
	require.Len(t, c.AttemptedSlots, 1)
	assert.Equal(t, calendar.Date{Year: 2026, Month: 3, Day: 7}, c.AttemptedSlots[0].Date)

	assert.Equal(t, time.Hour, mr.TTL(redisKey(key)))
}

func TestRedisBackend_KeysDoNotCollide(t *testing.T) {
	assert.NotEqual(t, redisKey(Key{SessionID: "a:b", UserID: "c"}), redisKey(Key{SessionID: "a", UserID: "b:c"}))
}

func TestRedisBackend_IsolatesUsers(t *testing.T) {
	store, _, _ := newRedisStore(t, newFakeClock())
	ctx := context.Background()

	require.NoError(t, store.RecordTurn(ctx, mustKey(t, "shared", "alice"), "hi", "hello"))
	got, err := store.Get(ctx, mustKey(t, "shared", "bob"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisBackend_NativeTTLExpires(t *testing.T) {
	store, mr, _ := newRedisStore(t, newFakeClock())
	ctx := context.Background()
	key := mustKey(t, "s1", "u1")

	require.NoError(t, store.RecordTurn(ctx, key, "hi", "hello"))
	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisBackend_TTLFollowsStoreClock(t *testing.T) {
	clock := newFakeClock()
	store, mr, _ := newRedisStore(t, clock)
	ctx := context.Background()
	key := mustKey(t, "s1", "u1")

	require.NoError(t, store.RecordTurn(ctx, key, "hi", "hello"))
	clock.Advance(30 * time.Minute)

	require.NoError(t, store.ExtendExpiry(ctx, key, 10*time.Minute))
	assert.Equal(t, 10*time.Minute, mr.TTL(redisKey(key)))

	c, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, clock.Now().Add(10*time.Minute), c.ExpiresAt)
}

func TestRedisBackend_NonPositiveTTLDeletesKey(t *testing.T) {
	clock := newFakeClock()
	store, mr, _ := newRedisStore(t, clock)
	ctx := context.Background()
	key := mustKey(t, "s1", "u1")

	require.NoError(t, store.RecordTurn(ctx, key, "hi", "hello"))
	require.True(t, mr.Exists(redisKey(key)))

	require.NoError(t, store.ExtendExpiry(ctx, key, 0))
	assert.False(t, mr.Exists(redisKey(key)), "an expiry of now must not become a key without TTL")

	require.NoError(t, store.RecordTurn(ctx, key, "again", "hello again"))
	require.NoError(t, store.ExtendExpiry(ctx, key, -time.Minute))
	assert.False(t, mr.Exists(redisKey(key)))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisBackend_SweepRemovesStaleKeys(t *testing.T) {
	clock := newFakeClock()
	store, mr, _ := newRedisStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.RecordTurn(ctx, mustKey(t, "s1", "u1"), "hi", "hello"))
	require.NoError(t, mr.Set(redisKeyPrefix+"junk:u", "not json"))

	n, err := store.SweepExpired(ctx, clock.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, mr.Keys())
}

func TestRedisBackend_ConcurrentUpdates(t *testing.T) {
	store, _, _ := newRedisStore(t, newFakeClock())
	ctx := context.Background()
	key := mustKey(t, "s1", "u1")

	const n = 5
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.RecordTurn(ctx, key, "hi", "hello")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	c, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, n, c.MessageCount)
}
