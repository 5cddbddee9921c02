package jwks

import (
	"context"
	"errors"
	"time"
)

// ErrStoreMiss is returned by Store.Load when no key set is stored.
var ErrStoreMiss = errors.New("key set not in store")

// Store shares the raw key-set document between processes so that a fleet of
// replicas downloads it once per refresh interval rather than once per
// replica. It is consulted only for scheduled refreshes; a forced refresh
// always goes to the network.
type Store interface {
	// Load returns the stored document and when it was downloaded.
	Load(ctx context.Context) (doc []byte, fetchedAt time.Time, err error)
	// Save stores a document for at most ttl.
	Save(ctx context.Context, doc []byte, fetchedAt time.Time, ttl time.Duration) error
}
