package jwks

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"k8s.io/utils/clock"

	"github.com/vmdemo/entra-jwt-middleware/core"
)

// Option configures a Cache.
type Option func(*Cache) error

// WithKeySetURL sets the URL of the key-set document. It must be an absolute
// https URL.
func WithKeySetURL(rawURL string) Option {
	return func(c *Cache) error {
		u, err := parseHTTPSURL(rawURL)
		if err != nil {
			return fmt.Errorf("key-set URL: %w", err)
		}
		c.keySetURL = u.String()
		return nil
	}
}

// WithDiscovery resolves the key-set URL from the OpenID Connect discovery
// document of issuer on first use. The document must name issuer as its
// issuer. A failed discovery is retried on the next refresh.
func WithDiscovery(issuer string) Option {
	return func(c *Cache) error {
		u, err := parseHTTPSURL(issuer)
		if err != nil {
			return fmt.Errorf("discovery issuer: %w", err)
		}
		c.issuerURL = u
		c.expectedIssuer = issuer
		return nil
	}
}

// WithRefreshInterval sets how long a fetched key set is trusted.
// Defaults to one hour.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Cache) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		c.refreshInterval = d
		return nil
	}
}

// WithFetchTimeout bounds each key-set download, including discovery.
// Defaults to ten seconds.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		c.fetchTimeout = d
		return nil
	}
}

// WithHTTPClient sets the client used for downloads. The default client
// verifies certificates and requires TLS 1.2 or later.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithStaleIfError lets a key set that could not be refreshed keep serving
// for up to maxStale past its refresh interval. Zero, the default, disables
// this: an expired key set is never used.
func WithStaleIfError(maxStale time.Duration) Option {
	return func(c *Cache) error {
		if maxStale < 0 {
			return errors.New("stale-if-error window cannot be negative")
		}
		c.staleIfError = maxStale
		return nil
	}
}

// WithStore shares downloaded key sets through store.
func WithStore(store Store) Option {
	return func(c *Cache) error {
		if store == nil {
			return errors.New("store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(clk clock.PassiveClock) Option {
	return func(c *Cache) error {
		if clk == nil {
			return errors.New("clock cannot be nil")
		}
		c.clock = clk
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger core.Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

func parseHTTPSURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute https URL", raw)
	}
	return u, nil
}

// WithMetrics reports the key count and refresh time of every installed key
// set to gauges.
func WithMetrics(gauges Gauges) Option {
	return func(c *Cache) error {
		if gauges == nil {
			return errors.New("metrics cannot be nil")
		}
		c.gauges = gauges
		return nil
	}
}
