package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

const (
	// DefaultRefreshInterval is how long a fetched key set is trusted.
	DefaultRefreshInterval = time.Hour
	// DefaultFetchTimeout bounds a single key-set download.
	DefaultFetchTimeout = 10 * time.Second

	flightKey = "keyset"
)

// snapshot is an immutable, fully parsed key set. A refresh replaces the
// whole snapshot; keys are never patched in place.
type snapshot struct {
	set       jwk.Set
	fetchedAt time.Time
	// downloaded is false for snapshots read from the shared store, which
	// may predate a rotation another replica has not seen yet.
	downloaded bool
}

// Cache maps key identifiers to verification keys, fetched from a remote
// key-set document.
//
// Reads are lock-free loads of the current snapshot. When the snapshot is
// missing or older than the refresh interval it is refreshed before use, and
// concurrent refreshes collapse into a single in-flight download whose result
// every waiter shares.
type Cache struct {
	keySetURL      string
	issuerURL      *url.URL
	expectedIssuer string

	refreshInterval time.Duration
	fetchTimeout    time.Duration
	staleIfError    time.Duration

	httpClient *http.Client
	store      Store
	clock      clock.PassiveClock
	logger     core.Logger
	gauges     Gauges

	current atomic.Pointer[snapshot]
	group   singleflight.Group

	// discovery result, resolved lazily and retried on failure
	resolveMu   sync.Mutex
	resolvedURL string
}

// New builds a Cache. Exactly one of WithKeySetURL or WithDiscovery is required.
//
//	cache, err := jwks.New(
//	    jwks.WithKeySetURL("https://login.microsoftonline.com/<tenant>/discovery/v2.0/keys"),
//	    jwks.WithRefreshInterval(time.Hour),
//	)
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		refreshInterval: DefaultRefreshInterval,
		fetchTimeout:    DefaultFetchTimeout,
		clock:           clock.RealClock{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	switch {
	case c.keySetURL == "" && c.issuerURL == nil:
		return nil, errors.New("key-set URL is required (use WithKeySetURL or WithDiscovery)")
	case c.keySetURL != "" && c.issuerURL != nil:
		return nil, errors.New("WithKeySetURL and WithDiscovery are mutually exclusive")
	}

	if c.httpClient == nil {
		c.httpClient = defaultHTTPClient()
	}

	return c, nil
}

// Key returns the verification key named kid.
//
// A kid missing from a fresh key set triggers exactly one forced refresh, so a
// token signed with a just-rotated key is accepted once the provider publishes
// it. A set downloaded during this call is not refreshed again. Errors are *core.ValidationError of kind KindUnknownKey or
// KindKeySetFetchFailed.
func (c *Cache) Key(ctx context.Context, kid string) (jwk.Key, error) {
	if kid == "" {
		return nil, core.NewValidationError(
			core.KindUnknownKey,
			"token does not name a signing key",
			nil,
		)
	}

	snap, live, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := snap.set.LookupKeyID(kid); ok {
		return key, nil
	}
	if live {
		return nil, unknownKey(kid)
	}

	if c.logger != nil {
		c.logger.Info("Signing key not in cached key set, forcing refresh", "kid", kid)
	}

	snap, err = c.refresh(ctx, snap, true)
	if err != nil {
		return nil, fetchFailed(err)
	}
	if key, ok := snap.set.LookupKeyID(kid); ok {
		return key, nil
	}
	return nil, unknownKey(kid)
}

func unknownKey(kid string) error {
	return core.NewValidationError(
		core.KindUnknownKey,
		"token signed with an unknown key",
		fmt.Errorf("kid %q not in key set", kid),
	)
}

// Refresh downloads the key set now, bypassing the shared store.
func (c *Cache) Refresh(ctx context.Context) error {
	if _, err := c.refresh(ctx, c.current.Load(), true); err != nil {
		return fetchFailed(err)
	}
	return nil
}

// FetchedAt returns when the current key set was downloaded, or the zero time.
func (c *Cache) FetchedAt() time.Time {
	if snap := c.current.Load(); snap != nil {
		return snap.fetchedAt
	}
	return time.Time{}
}

// load returns a snapshot that may be used for a decision right now. live
// reports that the snapshot was downloaded from the provider after this call
// started, so forcing another refresh cannot reveal newer keys.
func (c *Cache) load(ctx context.Context) (snap *snapshot, live bool, err error) {
	observed := c.current.Load()
	if c.fresh(observed) {
		return observed, false, nil
	}

	snap, err = c.refresh(ctx, observed, false)
	if err == nil {
		return snap, snap.downloaded, nil
	}

	if c.servableStale(observed) {
		if c.logger != nil {
			c.logger.Warn("Key-set refresh failed, serving stale key set",
				"error", err,
				"age", c.clock.Since(observed.fetchedAt),
			)
		}
		return observed, false, nil
	}

	return nil, false, fetchFailed(err)
}

// refresh replaces the snapshot the caller observed. Callers arriving while a
// refresh is running wait for it instead of starting another one, and a
// caller whose observed snapshot was already replaced by a fresh one gets that
// snapshot without any download.
func (c *Cache) refresh(ctx context.Context, observed *snapshot, forced bool) (*snapshot, error) {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		if cur := c.current.Load(); cur != observed && c.fresh(cur) {
			return cur, nil
		}

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		return c.fetch(fctx, forced)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fresh(s *snapshot) bool {
	return s != nil && c.clock.Since(s.fetchedAt) < c.refreshInterval
}

func (c *Cache) servableStale(s *snapshot) bool {
	return c.staleIfError > 0 && s != nil &&
		c.clock.Since(s.fetchedAt) < c.refreshInterval+c.staleIfError
}

func fetchFailed(err error) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return core.NewValidationError(
		core.KindKeySetFetchFailed,
		"signing keys are unavailable",
		err,
	)
}
