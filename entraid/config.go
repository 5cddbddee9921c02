package entraid

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables read by LoadConfig.
const (
	EnvTenantID          = "AZURE_TENANT_ID"
	EnvClientID          = "AZURE_CLIENT_ID"
	EnvClientSecret      = "AZURE_CLIENT_SECRET"
	EnvKeySetURLTemplate = "ENTRA_JWKS_URL_TEMPLATE"
	EnvRefreshInterval   = "ENTRA_JWKS_REFRESH_INTERVAL"
	EnvFetchTimeout      = "ENTRA_JWKS_FETCH_TIMEOUT"
	EnvStaleIfError      = "ENTRA_JWKS_STALE_IF_ERROR"
	EnvDiscovery         = "ENTRA_OIDC_DISCOVERY"
	EnvRedisURL          = "REDIS_URL"
	EnvListenAddr        = "LISTEN_ADDR"
	EnvAPIBaseURL        = "VM_API_BASE_URL"
)

// Defaults.
const (
	DefaultKeySetURLTemplate = "https://login.microsoftonline.com/{tenant}/discovery/v2.0/keys"
	DefaultListenAddr        = ":8080"
	DefaultAPIBaseURL        = "http://localhost:8080"

	tenantPlaceholder = "{tenant}"
	loginHost         = "https://login.microsoftonline.com/"
)

// A tenant is a directory GUID or a verified domain. Either is a single URL
// path segment that needs no escaping, so it is spliced into URLs as is.
var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9.-]*[A-Za-z0-9])?$`)

// Config is the process-wide authentication configuration. It is loaded once
// at startup and never modified.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	KeySetURLTemplate string
	RefreshInterval   time.Duration
	FetchTimeout      time.Duration
	StaleIfError      time.Duration
	UseDiscovery      bool

	RedisURL   string
	ListenAddr string
	APIBaseURL string
}

// LoadConfig reads the configuration from the environment after loading the
// given .env files (".env" when none are named). Missing files are ignored
// and variables already set in the environment win over file values.
func LoadConfig(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(EnvKeySetURLTemplate, DefaultKeySetURLTemplate)
	v.SetDefault(EnvRefreshInterval, "1h")
	v.SetDefault(EnvFetchTimeout, "10s")
	v.SetDefault(EnvStaleIfError, "0s")
	v.SetDefault(EnvDiscovery, false)
	v.SetDefault(EnvListenAddr, DefaultListenAddr)
	v.SetDefault(EnvAPIBaseURL, DefaultAPIBaseURL)

	cfg := Config{
		TenantID:          strings.TrimSpace(v.GetString(EnvTenantID)),
		ClientID:          strings.TrimSpace(v.GetString(EnvClientID)),
		ClientSecret:      v.GetString(EnvClientSecret),
		KeySetURLTemplate: v.GetString(EnvKeySetURLTemplate),
		UseDiscovery:      v.GetBool(EnvDiscovery),
		RedisURL:          v.GetString(EnvRedisURL),
		ListenAddr:        v.GetString(EnvListenAddr),
		APIBaseURL:        strings.TrimRight(v.GetString(EnvAPIBaseURL), "/"),
	}

	var err error
	if cfg.RefreshInterval, err = duration(v, EnvRefreshInterval); err != nil {
		return Config{}, err
	}
	if cfg.FetchTimeout, err = duration(v, EnvFetchTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StaleIfError, err = duration(v, EnvStaleIfError); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Validate reports configuration that can never work. A config without a
// tenant or client id is valid: authentication is then disabled.
func (c Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvRefreshInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvFetchTimeout)
	}
	if c.StaleIfError < 0 {
		return fmt.Errorf("%s cannot be negative", EnvStaleIfError)
	}
	if !strings.Contains(c.KeySetURLTemplate, tenantPlaceholder) {
		return fmt.Errorf("%s must contain %s", EnvKeySetURLTemplate, tenantPlaceholder)
	}
	if c.Enabled() {
		if err := c.validateTenant(); err != nil {
			return err
		}
		if _, err := c.KeySetURL(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) validateTenant() error {
	if !tenantPattern.MatchString(c.TenantID) {
		return fmt.Errorf("%s must be a tenant GUID or domain name, got %q", EnvTenantID, c.TenantID)
	}
	return nil
}

// Enabled reports whether requests are authenticated. Without both a tenant
// and a client id every request is let through.
func (c Config) Enabled() bool {
	return c.TenantID != "" && c.ClientID != ""
}

// Issuers returns the accepted token issuers: the v2.0 endpoint and the
// legacy security token service used by v1.0 tokens.
func (c Config) Issuers() []string {
	return []string{
		c.DiscoveryIssuer(),
		"https://sts.windows.net/" + c.TenantID + "/",
	}
}

// DiscoveryIssuer returns the v2.0 issuer, which also hosts the OpenID
// configuration document.
func (c Config) DiscoveryIssuer() string {
	return loginHost + c.TenantID + "/v2.0"
}

// KeySetURL expands the key-set URL template for the tenant. The result must
// be an absolute https URL.
func (c Config) KeySetURL() (string, error) {
	if err := c.validateTenant(); err != nil {
		return "", err
	}
	raw := strings.ReplaceAll(c.KeySetURLTemplate, tenantPlaceholder, c.TenantID)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", EnvKeySetURLTemplate, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("%s must expand to an absolute https URL, got %q", EnvKeySetURLTemplate, raw)
	}
	return u.String(), nil
}

// TokenURL returns the tenant's OAuth 2.0 token endpoint.
func (c Config) TokenURL() string {
	return loginHost + c.TenantID + "/oauth2/v2.0/token"
}

// DefaultScope returns the client-credentials scope for the configured
// application.
func (c Config) DefaultScope() string {
	return c.ClientID + "/.default"
}
