// Package testissuer provides a stand-in identity provider for tests: a TLS
// server publishing a rotating key set, plus helpers that sign tokens which
// validate against it.
//
//	iss := testissuer.New(t)
//	token := iss.Token(t, iss.Claims())
package testissuer

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

const (
	// Tenant is the tenant identifier used by Claims.
	Tenant = "contoso-tenant"
	// Audience is the client identifier used by Claims.
	Audience = "api-client-id"
	// KeySetPath is where the key set is served.
	KeySetPath = "/" + Tenant + "/discovery/v2.0/keys"
	// DefaultKeyID names the key published by New.
	DefaultKeyID = "key-1"
)

// Issuer is a test identity provider.
type Issuer struct {
	server *httptest.Server

	mu        sync.Mutex
	keys      map[string]*rsa.PrivateKey
	published []string
	status    int
	body      []byte
	delay     time.Duration

	fetches atomic.Int32
}

// New starts an issuer publishing a single key named DefaultKeyID. The server
// is closed when the test ends.
func New(t testing.TB) *Issuer {
	t.Helper()

	iss := &Issuer{keys: map[string]*rsa.PrivateKey{}}
	iss.AddKey(t, DefaultKeyID)

	iss.server = httptest.NewTLSServer(http.HandlerFunc(iss.serveHTTP))
	t.Cleanup(iss.server.Close)

	return iss
}

// URL returns the base URL of the server.
func (i *Issuer) URL() string {
	return i.server.URL
}

// KeySetURL returns the absolute key-set URL.
func (i *Issuer) KeySetURL() string {
	return i.server.URL + KeySetPath
}

// Client returns an HTTP client that trusts the server certificate.
func (i *Issuer) Client() *http.Client {
	return i.server.Client()
}

// Fetches returns how many times the key set has been downloaded.
func (i *Issuer) Fetches() int {
	return int(i.fetches.Load())
}

// AddKey generates a key and publishes it.
func (i *Issuer) AddKey(t testing.TB, kid string) {
	t.Helper()
	i.GenerateKey(t, kid)
	i.Publish(kid)
}

// GenerateKey creates a signing key without publishing it.
func (i *Issuer) GenerateKey(t testing.TB, kid string) {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.keys[kid] = priv
}

// Publish adds a generated key to the served key set.
func (i *Issuer) Publish(kid string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, k := range i.published {
		if k == kid {
			return
		}
	}
	i.published = append(i.published, kid)
}

// Unpublish removes a key from the served key set. The key can still sign.
func (i *Issuer) Unpublish(kid string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	kept := i.published[:0]
	for _, k := range i.published {
		if k != kid {
			kept = append(kept, k)
		}
	}
	i.published = kept
}

// FailWith makes the key-set endpoint answer with status. Zero restores
// normal service.
func (i *Issuer) FailWith(status int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status = status
}

// ServeBody replaces the key-set document with body. Nil restores it.
func (i *Issuer) ServeBody(body []byte) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.body = body
}

// Delay makes every key-set response wait for d.
func (i *Issuer) Delay(d time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.delay = d
}

// KeySetDocument returns the JSON key set currently published.
func (i *Issuer) KeySetDocument(t testing.TB) []byte {
	t.Helper()

	i.mu.Lock()
	defer i.mu.Unlock()

	doc, err := i.document()
	if err != nil {
		t.Fatalf("build key set: %v", err)
	}
	return doc
}

// IssuerV2 returns the v2.0 issuer string of the test tenant.
func IssuerV2() string {
	return "https://login.microsoftonline.com/" + Tenant + "/v2.0"
}

// IssuerV1 returns the legacy security token service issuer of the test tenant.
func IssuerV1() string {
	return "https://sts.windows.net/" + Tenant + "/"
}

// Claims returns a valid claim set for the test tenant expiring in an hour.
func (i *Issuer) Claims() map[string]any {
	now := time.Now()
	return map[string]any{
		"iss": IssuerV2(),
		"aud": Audience,
		"sub": "user-123",
		"oid": "00000000-0000-0000-0000-000000000123",
		"tid": Tenant,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
}

// Token signs claims with DefaultKeyID.
func (i *Issuer) Token(t testing.TB, claims map[string]any) string {
	t.Helper()
	return i.TokenWithKey(t, DefaultKeyID, claims)
}

// TokenWithKey signs claims with the key named kid using RS256.
func (i *Issuer) TokenWithKey(t testing.TB, kid string, claims map[string]any) string {
	t.Helper()

	i.mu.Lock()
	priv, ok := i.keys[kid]
	i.mu.Unlock()
	if !ok {
		t.Fatalf("unknown test key %q", kid)
	}

	return Sign(t, priv, jwa.RS256, kid, claims)
}

// Sign produces a compact JWS over the JSON encoding of claims.
// An empty kid omits the header.
func Sign(t testing.TB, key any, alg jwa.SignatureAlgorithm, kid string, claims map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}

	hdrs := jws.NewHeaders()
	if err := hdrs.Set(jws.TypeKey, "JWT"); err != nil {
		t.Fatalf("set typ: %v", err)
	}
	if kid != "" {
		if err := hdrs.Set(jws.KeyIDKey, kid); err != nil {
			t.Fatalf("set kid: %v", err)
		}
	}

	signed, err := jws.Sign(payload, jws.WithKey(alg, key, jws.WithProtectedHeaders(hdrs)))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func (i *Issuer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/.well-known/openid-configuration") {
		i.serveDiscovery(w, r)
		return
	}
	if r.URL.Path != KeySetPath {
		http.NotFound(w, r)
		return
	}

	i.fetches.Add(1)

	i.mu.Lock()
	status, body, delay := i.status, i.body, i.delay
	doc, err := i.document()
	i.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if body != nil {
		doc = body
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

func (i *Issuer) serveDiscovery(w http.ResponseWriter, r *http.Request) {
	issuer := "https://" + r.Host + strings.TrimSuffix(r.URL.Path, "/.well-known/openid-configuration")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"issuer":   issuer,
		"jwks_uri": i.KeySetURL(),
	})
}

// document must be called with mu held.
func (i *Issuer) document() ([]byte, error) {
	set := jwk.NewSet()
	for _, kid := range i.published {
		key, err := jwk.FromRaw(&i.keys[kid].PublicKey)
		if err != nil {
			return nil, err
		}
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, err
		}
		if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, err
		}
	}
	return json.Marshal(set)
}
