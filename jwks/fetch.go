package jwks

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vmdemo/entra-jwt-middleware/internal/oidc"
)

// maxKeySetSize caps the key-set document. Real documents are a few KiB.
const maxKeySetSize = 1 << 20

const tracerName = "github.com/vmdemo/entra-jwt-middleware/jwks"

// fetch obtains a new snapshot, first from the shared store (unless forced)
// and otherwise from the network, and installs it.
func (c *Cache) fetch(ctx context.Context, forced bool) (*snapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "jwks.refresh")
	defer span.End()
	span.SetAttributes(attribute.Bool("jwks.forced", forced))

	if c.store != nil && !forced {
		if snap, ok := c.loadFromStore(ctx); ok {
			span.SetAttributes(attribute.String("jwks.source", "store"))
			c.current.Store(snap)
			c.record(snap, "store")
			return snap, nil
		}
	}
	span.SetAttributes(attribute.String("jwks.source", "network"))

	uri, err := c.resolveKeySetURL(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return nil, err
	}

	start := c.clock.Now()
	doc, err := c.download(ctx, uri)
	if err == nil {
		var set jwk.Set
		if set, err = parseKeySet(doc); err == nil {
			snap := &snapshot{set: set, fetchedAt: c.clock.Now(), downloaded: true}
			c.current.Store(snap)
			c.record(snap, "network")

			if c.logger != nil {
				c.logger.Debug("Fetched key set",
					"keys", set.Len(),
					"duration", c.clock.Since(start),
					"forced", forced,
				)
			}
			if c.store != nil {
				if err := c.store.Save(ctx, doc, snap.fetchedAt, c.refreshInterval); err != nil && c.logger != nil {
					c.logger.Warn("Could not share key set", "error", err)
				}
			}
			return snap, nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "key-set fetch failed")
	if c.logger != nil {
		c.logger.Error("Key-set fetch failed", "url", uri, "error", err)
	}
	return nil, err
}

func (c *Cache) loadFromStore(ctx context.Context) (*snapshot, bool) {
	doc, fetchedAt, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrStoreMiss) && c.logger != nil {
			c.logger.Warn("Could not read shared key set", "error", err)
		}
		return nil, false
	}

	snap := &snapshot{fetchedAt: fetchedAt}
	if !c.fresh(snap) {
		return nil, false
	}

	set, err := parseKeySet(doc)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("Ignoring malformed shared key set", "error", err)
		}
		return nil, false
	}
	snap.set = set
	return snap, true
}

func (c *Cache) resolveKeySetURL(ctx context.Context) (string, error) {
	if c.keySetURL != "" {
		return c.keySetURL, nil
	}

	c.resolveMu.Lock()
	defer c.resolveMu.Unlock()

	if c.resolvedURL != "" {
		return c.resolvedURL, nil
	}

	endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, c.httpClient, *c.issuerURL, c.expectedIssuer)
	if err != nil {
		return "", err
	}

	c.resolvedURL = endpoints.JWKSURI
	return c.resolvedURL, nil
}

func (c *Cache) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
	}

	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read key set: %w", err)
	}
	if len(doc) > maxKeySetSize {
		return nil, fmt.Errorf("key set exceeds %d bytes", maxKeySetSize)
	}

	return doc, nil
}

// parseKeySet requires a JSON object with a "keys" array before handing the
// document to jwk.Parse, which would otherwise accept a bare key.
func parseKeySet(doc []byte) (jwk.Set, error) {
	if !gjson.ValidBytes(doc) {
		return nil, errors.New("key set is not valid JSON")
	}
	if !gjson.GetBytes(doc, "keys").IsArray() {
		return nil, errors.New(`key set has no "keys" array`)
	}

	set, err := jwk.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key set: %w", err)
	}
	return set, nil
}

func defaultHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	return &http.Client{Transport: transport}
}
