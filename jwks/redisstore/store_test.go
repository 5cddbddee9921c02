package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/vmdemo/entra-jwt-middleware/internal/testissuer"
	"github.com/vmdemo/entra-jwt-middleware/jwks"
)

func newTestStore(t *testing.T, keySetURL string) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, "", keySetURL), mr
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("load from an empty store misses", func(t *testing.T) {
		store, _ := newTestStore(t, "https://example.test/keys")

		_, _, err := store.Load(ctx)
		assert.ErrorIs(t, err, jwks.ErrStoreMiss)
	})

	t.Run("save then load", func(t *testing.T) {
		store, mr := newTestStore(t, "https://example.test/keys")
		fetchedAt := time.Unix(1_700_000_000, 123)

		require.NoError(t, store.Save(ctx, []byte(`{"keys":[]}`), fetchedAt, time.Hour))

		doc, gotFetchedAt, err := store.Load(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"keys":[]}`, string(doc))
		assert.True(t, fetchedAt.Equal(gotFetchedAt))
		assert.Equal(t, time.Hour, mr.TTL(DefaultKeyPrefix+"https://example.test/keys"))
	})

	t.Run("documents expire with the key set", func(t *testing.T) {
		store, mr := newTestStore(t, "https://example.test/keys")

		require.NoError(t, store.Save(ctx, []byte(`{"keys":[]}`), time.Now(), time.Minute))
		mr.FastForward(time.Minute)

		_, _, err := store.Load(ctx)
		assert.ErrorIs(t, err, jwks.ErrStoreMiss)
	})

	t.Run("corrupt fetch time is an error", func(t *testing.T) {
		store, mr := newTestStore(t, "https://example.test/keys")
		mr.HSet(DefaultKeyPrefix+"https://example.test/keys", fieldDoc, `{"keys":[]}`)

		_, _, err := store.Load(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, jwks.ErrStoreMiss)
	})

	t.Run("unreachable server", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			MaxRetries:  -1,
			DialTimeout: 100 * time.Millisecond,
		})
		store := New(rdb, "", "https://example.test/keys")
		t.Cleanup(func() { _ = store.Close() })

		_, _, err := store.Load(ctx)
		assert.Error(t, err)
		assert.Error(t, store.Ping(ctx))
	})

	t.Run("new from URL", func(t *testing.T) {
		mr := miniredis.RunT(t)

		store, err := NewFromURL("redis://"+mr.Addr()+"/0", "custom:", "https://example.test/keys")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		require.NoError(t, store.Ping(ctx))
		assert.Equal(t, "custom:https://example.test/keys", store.key)

		_, err = NewFromURL("://bad", "", "https://example.test/keys")
		assert.Error(t, err)
	})
}

func TestStore_SharesKeySetBetweenCaches(t *testing.T) {
	ctx := context.Background()
	iss := testissuer.New(t)
	store, _ := newTestStore(t, iss.KeySetURL())
	clk := testingclock.NewFakeClock(time.Now())

	newCache := func() *jwks.Cache {
		cache, err := jwks.New(
			jwks.WithKeySetURL(iss.KeySetURL()),
			jwks.WithHTTPClient(iss.Client()),
			jwks.WithStore(store),
			jwks.WithClock(clk),
		)
		require.NoError(t, err)
		return cache
	}

	first, second := newCache(), newCache()

	_, err := first.Key(ctx, testissuer.DefaultKeyID)
	require.NoError(t, err)
	_, err = second.Key(ctx, testissuer.DefaultKeyID)
	require.NoError(t, err)
	assert.Equal(t, 1, iss.Fetches())
	assert.True(t, first.FetchedAt().Equal(second.FetchedAt()))

	// a rotated key bypasses the store
	iss.AddKey(t, "key-2")
	_, err = second.Key(ctx, "key-2")
	require.NoError(t, err)
	assert.Equal(t, 2, iss.Fetches())

	// an expired shared document is not reused
	clk.Step(jwks.DefaultRefreshInterval)
	third := newCache()
	_, err = third.Key(ctx, testissuer.DefaultKeyID)
	require.NoError(t, err)
	assert.Equal(t, 3, iss.Fetches())
}
