package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, ttl), mr
}

func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	st, err := s.Load(ctx, "missing")
	require.NoError(t, err)
	require.False(t, st.LoggedIn)
	require.Empty(t, st.Flashes)

	st.LoggedIn = true
	st.AddFlash(FlashOK, "Entry added.")
	require.NoError(t, s.Save(ctx, "sid-1", st))

	got, err := s.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.True(t, got.LoggedIn)
	require.Equal(t, []Flash{{Kind: FlashOK, Message: "Entry added."}}, got.Flashes)

	require.NoError(t, s.Delete(ctx, "sid-1"))
	require.NoError(t, s.Delete(ctx, "sid-1"))

	got, err = s.Load(ctx, "sid-1")
	require.NoError(t, err)
	require.False(t, got.LoggedIn)
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t, 0)
	testStoreContract(t, s)
}

func TestRedisStoreNoExpiryByDefault(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	require.NoError(t, s.Save(context.Background(), "sid", State{LoggedIn: true}))
	require.Equal(t, time.Duration(0), mr.TTL(keyPrefix+"sid"))
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	require.NoError(t, s.Save(context.Background(), "sid", State{LoggedIn: true}))
	require.Equal(t, time.Hour, mr.TTL(keyPrefix+"sid"))

	mr.FastForward(2 * time.Hour)
	st, err := s.Load(context.Background(), "sid")
	require.NoError(t, err)
	require.False(t, st.LoggedIn)
}

func TestRedisStoreUnavailable(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	mr.Close()

	_, err := s.Load(context.Background(), "sid")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestRedisStoreCorruptState(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set(keyPrefix+"sid", "{not json"))

	_, err := s.Load(context.Background(), "sid")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := DialRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	_ = c.Close()

	_, err = DialRedis(context.Background(), "::not a url")
	require.Error(t, err)
}

func TestPopFlashes(t *testing.T) {
	var st State
	st.AddFlash(FlashErr, "a")
	st.AddFlash(FlashOK, "b")
	require.Len(t, st.PopFlashes(), 2)
	require.Empty(t, st.PopFlashes())
}
