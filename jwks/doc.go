/*
Package jwks caches the signing keys an identity provider publishes as a JSON
Web Key Set.

A Cache holds one immutable snapshot of the key set. A snapshot is trusted
for the refresh interval (one hour by default); after that it is refreshed
before the next lookup, never used-then-refreshed.

	cache, err := jwks.New(
	    jwks.WithKeySetURL("https://login.microsoftonline.com/<tenant>/discovery/v2.0/keys"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	key, err := cache.Key(ctx, kid)

# Concurrency

Lookups load the current snapshot atomically and never take a lock. When the
snapshot needs refreshing, concurrent callers share one download through a
singleflight group. The download runs detached from the triggering request's
cancellation and is bounded by the fetch timeout (ten seconds by default).

# Key rotation

A key identifier missing from a fresh snapshot forces one refresh before the
lookup fails with core.KindUnknownKey.

# Failures

Network errors, non-2xx responses, bodies over 1 MiB, non-JSON documents and
documents without a "keys" array fail with core.KindKeySetFetchFailed. With
WithStaleIfError the previous snapshot keeps serving for a bounded window
instead.

# Sharing between replicas

WithStore plugs in a Store (see the redisstore package) so replicas reuse a
key set downloaded by any of them. Forced refreshes always go to the network.
*/
package jwks
