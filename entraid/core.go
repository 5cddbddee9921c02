package entraid

import (
	"errors"
	"fmt"
	"net/http"

	"k8s.io/utils/clock"

	"github.com/vmdemo/entra-jwt-middleware/core"
	"github.com/vmdemo/entra-jwt-middleware/jwks"
	"github.com/vmdemo/entra-jwt-middleware/jwks/redisstore"
	"github.com/vmdemo/entra-jwt-middleware/validator"
)

// Option customises NewCore.
type Option func(*options) error

type options struct {
	logger     core.Logger
	httpClient *http.Client
	store      jwks.Store
	clock      clock.PassiveClock
	metrics    jwks.Gauges
}

// WithLogger sets the logger shared by the core and the key-set cache.
func WithLogger(logger core.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client used to reach the identity provider.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		o.httpClient = client
		return nil
	}
}

// WithStore shares key sets through store instead of the one named by
// Config.RedisURL.
func WithStore(store jwks.Store) Option {
	return func(o *options) error {
		if store == nil {
			return errors.New("store cannot be nil")
		}
		o.store = store
		return nil
	}
}

// WithClock replaces the wall clock of the cache and the validator.
func WithClock(clk clock.PassiveClock) Option {
	return func(o *options) error {
		if clk == nil {
			return errors.New("clock cannot be nil")
		}
		o.clock = clk
		return nil
	}
}

// WithMetrics reports key-set gauges to metrics.
func WithMetrics(metrics jwks.Gauges) Option {
	return func(o *options) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		o.metrics = metrics
		return nil
	}
}

// NewCore assembles the authentication core described by cfg: a key-set
// cache for the tenant, a validator accepting the tenant's issuers and the
// client id as audience, and the core around them. When cfg is not Enabled
// the core bypasses every request.
func NewCore(cfg Config, opts ...Option) (*core.Core, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	var coreOpts []core.Option
	if o.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(o.logger))
	}

	if !cfg.Enabled() {
		if o.logger != nil {
			o.logger.Warn("Entra ID authentication is disabled: tenant or client id not configured")
		}
		return core.New(append(coreOpts, core.WithDisabled(true))...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := newKeySetCache(cfg, o)
	if err != nil {
		return nil, err
	}

	validatorOpts := []validator.Option{
		validator.WithKeyFunc(cache.Key),
		validator.WithIssuers(cfg.Issuers()...),
		validator.WithAudience(cfg.ClientID),
	}
	if o.clock != nil {
		validatorOpts = append(validatorOpts, validator.WithClock(o.clock))
	}

	v, err := validator.New(validatorOpts...)
	if err != nil {
		return nil, err
	}

	return core.New(append(coreOpts, core.WithValidator(v))...)
}

func newKeySetCache(cfg Config, o *options) (*jwks.Cache, error) {
	var (
		cacheOpts []jwks.Option
		storeKey  string
	)

	if cfg.UseDiscovery {
		storeKey = cfg.DiscoveryIssuer()
		cacheOpts = append(cacheOpts, jwks.WithDiscovery(storeKey))
	} else {
		keySetURL, err := cfg.KeySetURL()
		if err != nil {
			return nil, err
		}
		storeKey = keySetURL
		cacheOpts = append(cacheOpts, jwks.WithKeySetURL(keySetURL))
	}

	cacheOpts = append(cacheOpts,
		jwks.WithRefreshInterval(cfg.RefreshInterval),
		jwks.WithFetchTimeout(cfg.FetchTimeout),
		jwks.WithStaleIfError(cfg.StaleIfError),
	)

	store := o.store
	if store == nil && cfg.RedisURL != "" {
		rs, err := redisstore.NewFromURL(cfg.RedisURL, "", storeKey)
		if err != nil {
			return nil, err
		}
		store = rs
	}
	if store != nil {
		cacheOpts = append(cacheOpts, jwks.WithStore(store))
	}

	if o.httpClient != nil {
		cacheOpts = append(cacheOpts, jwks.WithHTTPClient(o.httpClient))
	}
	if o.metrics != nil {
		cacheOpts = append(cacheOpts, jwks.WithMetrics(o.metrics))
	}
	if o.clock != nil {
		cacheOpts = append(cacheOpts, jwks.WithClock(o.clock))
	}
	if o.logger != nil {
		cacheOpts = append(cacheOpts, jwks.WithLogger(o.logger))
	}

	return jwks.New(cacheOpts...)
}
