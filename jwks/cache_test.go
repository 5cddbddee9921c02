package jwks

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/vmdemo/entra-jwt-middleware/core"
	"github.com/vmdemo/entra-jwt-middleware/internal/testissuer"
)

func requireKind(t *testing.T, err error, kind core.Kind) {
	t.Helper()

	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, kind, ve.Kind)
}

func newTestCache(t *testing.T, iss *testissuer.Issuer, opts ...Option) (*Cache, *testingclock.FakeClock) {
	t.Helper()

	clk := testingclock.NewFakeClock(time.Now())
	opts = append([]Option{
		WithKeySetURL(iss.KeySetURL()),
		WithHTTPClient(iss.Client()),
		WithClock(clk),
	}, opts...)

	cache, err := New(opts...)
	require.NoError(t, err)

	return cache, clk
}

func TestNew(t *testing.T) {
	t.Run("requires a key-set location", func(t *testing.T) {
		_, err := New()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key-set URL is required")
	})

	t.Run("rejects both a key-set URL and discovery", func(t *testing.T) {
		_, err := New(
			WithKeySetURL("https://login.microsoftonline.com/t/discovery/v2.0/keys"),
			WithDiscovery("https://login.microsoftonline.com/t/v2.0"),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("rejects plain http", func(t *testing.T) {
		_, err := New(WithKeySetURL("http://login.microsoftonline.com/t/discovery/v2.0/keys"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not an absolute https URL")
	})

	t.Run("rejects relative URLs", func(t *testing.T) {
		_, err := New(WithKeySetURL("/t/discovery/v2.0/keys"))
		require.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		cache, err := New(WithKeySetURL("https://login.microsoftonline.com/t/discovery/v2.0/keys"))
		require.NoError(t, err)

		assert.Equal(t, DefaultRefreshInterval, cache.refreshInterval)
		assert.Equal(t, DefaultFetchTimeout, cache.fetchTimeout)
		assert.Zero(t, cache.staleIfError)
		require.NotNil(t, cache.httpClient)
		transport, ok := cache.httpClient.Transport.(*http.Transport)
		require.True(t, ok)
		assert.False(t, transport.TLSClientConfig.InsecureSkipVerify)
	})

	t.Run("option validation", func(t *testing.T) {
		for name, opt := range map[string]Option{
			"zero refresh interval":  WithRefreshInterval(0),
			"zero fetch timeout":     WithFetchTimeout(0),
			"negative stale window":  WithStaleIfError(-time.Second),
			"nil client":             WithHTTPClient(nil),
			"nil store":              WithStore(nil),
			"nil clock":              WithClock(nil),
			"nil logger":             WithLogger(nil),
			"discovery without tls":  WithDiscovery("http://login.microsoftonline.com/t/v2.0"),
		} {
			t.Run(name, func(t *testing.T) {
				_, err := New(WithKeySetURL("https://login.microsoftonline.com/t/discovery/v2.0/keys"), opt)
				assert.Error(t, err)
			})
		}
	})
}

func TestCache_Key(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches lazily and serves from cache", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, _ := newTestCache(t, iss)

		assert.Zero(t, iss.Fetches())
		assert.True(t, cache.FetchedAt().IsZero())

		for range 3 {
			key, err := cache.Key(ctx, testissuer.DefaultKeyID)
			require.NoError(t, err)
			assert.Equal(t, testissuer.DefaultKeyID, key.KeyID())
		}
		assert.Equal(t, 1, iss.Fetches())
		assert.False(t, cache.FetchedAt().IsZero())
	})

	t.Run("refreshes once the interval has elapsed", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, clk := newTestCache(t, iss, WithRefreshInterval(time.Hour))

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)

		clk.Step(time.Hour - time.Second)
		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)
		assert.Equal(t, 1, iss.Fetches())

		clk.Step(time.Second)
		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)
		assert.Equal(t, 2, iss.Fetches())
	})

	t.Run("empty kid is unknown without fetching", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, _ := newTestCache(t, iss)

		_, err := cache.Key(ctx, "")
		requireKind(t, err, core.KindUnknownKey)
		assert.Zero(t, iss.Fetches())
	})

	t.Run("rotated key is found after one forced refresh", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, _ := newTestCache(t, iss)

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)

		iss.AddKey(t, "key-2")

		key, err := cache.Key(ctx, "key-2")
		require.NoError(t, err)
		assert.Equal(t, "key-2", key.KeyID())
		assert.Equal(t, 2, iss.Fetches())
	})

	t.Run("unknown key fails after exactly one forced refresh", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, _ := newTestCache(t, iss)

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)

		_, err = cache.Key(ctx, "missing")
		requireKind(t, err, core.KindUnknownKey)
		assert.Equal(t, 2, iss.Fetches())
	})

	t.Run("unknown key on a cold cache is decided by the first download", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, _ := newTestCache(t, iss)

		_, err := cache.Key(ctx, "missing")
		requireKind(t, err, core.KindUnknownKey)
		assert.Equal(t, 1, iss.Fetches())
	})

	t.Run("unknown key after expiry is decided by the renewing download", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, clk := newTestCache(t, iss)

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)

		clk.Step(DefaultRefreshInterval)
		_, err = cache.Key(ctx, "missing")
		requireKind(t, err, core.KindUnknownKey)
		assert.Equal(t, 2, iss.Fetches())

		// the renewed set is fresh, so the next miss forces one refresh
		_, err = cache.Key(ctx, "missing")
		requireKind(t, err, core.KindUnknownKey)
		assert.Equal(t, 3, iss.Fetches())
	})

	t.Run("failed forced refresh reports the fetch failure", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, _ := newTestCache(t, iss)

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)

		iss.FailWith(http.StatusServiceUnavailable)
		_, err = cache.Key(ctx, "rotated")
		requireKind(t, err, core.KindKeySetFetchFailed)

		// the still-fresh snapshot keeps serving known keys
		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)
	})
}

func TestCache_FetchFailures(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name  string
		setup func(iss *testissuer.Issuer)
	}{
		{
			name:  "server error",
			setup: func(iss *testissuer.Issuer) { iss.FailWith(http.StatusInternalServerError) },
		},
		{
			name:  "not found",
			setup: func(iss *testissuer.Issuer) { iss.FailWith(http.StatusNotFound) },
		},
		{
			name:  "non-JSON body",
			setup: func(iss *testissuer.Issuer) { iss.ServeBody([]byte("<html>maintenance</html>")) },
		},
		{
			name:  "missing keys field",
			setup: func(iss *testissuer.Issuer) { iss.ServeBody([]byte(`{"kty":"RSA","n":"AQAB","e":"AQAB"}`)) },
		},
		{
			name:  "keys is not an array",
			setup: func(iss *testissuer.Issuer) { iss.ServeBody([]byte(`{"keys":{}}`)) },
		},
		{
			name: "oversized body",
			setup: func(iss *testissuer.Issuer) {
				iss.ServeBody(append([]byte(`{"keys":[],"pad":"`), append(bytes.Repeat([]byte("a"), maxKeySetSize), '"', '}')...))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			iss := testissuer.New(t)
			tc.setup(iss)
			cache, _ := newTestCache(t, iss)

			_, err := cache.Key(ctx, testissuer.DefaultKeyID)
			requireKind(t, err, core.KindKeySetFetchFailed)

			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "signing keys are unavailable", ve.Message)
			assert.Error(t, ve.Details)
		})
	}

	t.Run("fetch timeout", func(t *testing.T) {
		iss := testissuer.New(t)
		iss.Delay(2 * time.Second)
		cache, _ := newTestCache(t, iss, WithFetchTimeout(50*time.Millisecond))

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		requireKind(t, err, core.KindKeySetFetchFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("untrusted certificate", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, err := New(WithKeySetURL(iss.KeySetURL()))
		require.NoError(t, err)

		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		requireKind(t, err, core.KindKeySetFetchFailed)
		assert.Zero(t, iss.Fetches())
	})

	t.Run("recovers on the next request", func(t *testing.T) {
		iss := testissuer.New(t)
		iss.FailWith(http.StatusBadGateway)
		cache, _ := newTestCache(t, iss)

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		requireKind(t, err, core.KindKeySetFetchFailed)

		iss.FailWith(0)
		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)
	})
}

func TestCache_StaleIfError(t *testing.T) {
	ctx := context.Background()

	t.Run("strict by default", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, clk := newTestCache(t, iss)

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)

		iss.FailWith(http.StatusInternalServerError)
		clk.Step(DefaultRefreshInterval)

		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		requireKind(t, err, core.KindKeySetFetchFailed)
	})

	t.Run("serves the previous key set within the grace window", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, clk := newTestCache(t, iss, WithStaleIfError(10*time.Minute))

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)
		fetchedAt := cache.FetchedAt()

		iss.FailWith(http.StatusInternalServerError)
		clk.Step(DefaultRefreshInterval + 5*time.Minute)

		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		require.NoError(t, err)
		assert.Equal(t, fetchedAt, cache.FetchedAt())

		clk.Step(5 * time.Minute)
		_, err = cache.Key(ctx, testissuer.DefaultKeyID)
		requireKind(t, err, core.KindKeySetFetchFailed)
	})
}

func TestCache_Concurrency(t *testing.T) {
	const callers = 50

	run := func(t *testing.T, cache *Cache) {
		t.Helper()

		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cache.Key(context.Background(), testissuer.DefaultKeyID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}
	}

	t.Run("cold cache is filled by a single fetch", func(t *testing.T) {
		iss := testissuer.New(t)
		iss.Delay(50 * time.Millisecond)
		cache, _ := newTestCache(t, iss)

		run(t, cache)
		assert.Equal(t, 1, iss.Fetches())
	})

	t.Run("expiry under load triggers a single fetch", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, clk := newTestCache(t, iss)

		run(t, cache)
		require.Equal(t, 1, iss.Fetches())

		iss.Delay(50 * time.Millisecond)
		clk.Step(DefaultRefreshInterval)

		run(t, cache)
		assert.Equal(t, 2, iss.Fetches())
	})

	t.Run("concurrent lookups of a rotated key share one refresh", func(t *testing.T) {
		iss := testissuer.New(t)
		cache, _ := newTestCache(t, iss)

		_, err := cache.Key(context.Background(), testissuer.DefaultKeyID)
		require.NoError(t, err)

		iss.AddKey(t, "key-2")
		iss.Delay(50 * time.Millisecond)

		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := cache.Key(context.Background(), "key-2")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.Equal(t, 2, iss.Fetches())
	})

	t.Run("fetch outlives a cancelled caller", func(t *testing.T) {
		iss := testissuer.New(t)
		iss.Delay(100 * time.Millisecond)
		cache, _ := newTestCache(t, iss)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := cache.Key(ctx, testissuer.DefaultKeyID)
		requireKind(t, err, core.KindKeySetFetchFailed)

		assert.Eventually(t, func() bool {
			return !cache.FetchedAt().IsZero()
		}, time.Second, 10*time.Millisecond)
	})
}

func TestCache_Discovery(t *testing.T) {
	iss := testissuer.New(t)

	cache, err := New(
		WithDiscovery(iss.URL()+"/"+testissuer.Tenant+"/v2.0"),
		WithHTTPClient(iss.Client()),
	)
	require.NoError(t, err)

	key, err := cache.Key(context.Background(), testissuer.DefaultKeyID)
	require.NoError(t, err)
	assert.Equal(t, testissuer.DefaultKeyID, key.KeyID())
	assert.Equal(t, iss.KeySetURL(), cache.resolvedURL)
}

func TestCache_Refresh(t *testing.T) {
	iss := testissuer.New(t)
	cache, _ := newTestCache(t, iss)

	require.NoError(t, cache.Refresh(context.Background()))
	require.NoError(t, cache.Refresh(context.Background()))
	assert.Equal(t, 2, iss.Fetches())

	iss.FailWith(http.StatusInternalServerError)
	err := cache.Refresh(context.Background())
	requireKind(t, err, core.KindKeySetFetchFailed)
}
