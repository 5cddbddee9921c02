// Package redisstore shares fetched key sets between replicas through Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vmdemo/entra-jwt-middleware/jwks"
)

const (
	// DefaultKeyPrefix namespaces the stored documents.
	DefaultKeyPrefix = "entra:jwks:"

	fieldDoc       = "doc"
	fieldFetchedAt = "fetched_at"
)

// Store implements jwks.Store on a Redis hash holding the document and its
// download time. The hash expires with the key set.
type Store struct {
	rdb redis.UniversalClient
	key string
}

var _ jwks.Store = (*Store)(nil)

// New returns a Store for the key set published at keySetURL. Caches for
// different key-set URLs never see each other's documents.
func New(rdb redis.UniversalClient, keyPrefix, keySetURL string) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Store{rdb: rdb, key: keyPrefix + keySetURL}
}

// NewFromURL connects to the Redis server named by a redis:// or rediss:// URL.
func NewFromURL(redisURL, keyPrefix, keySetURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return New(redis.NewClient(opts), keyPrefix, keySetURL), nil
}

// Load implements jwks.Store.
func (s *Store) Load(ctx context.Context) ([]byte, time.Time, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, time.Time{}, err
	}

	doc, ok := vals[fieldDoc]
	if !ok {
		return nil, time.Time{}, jwks.ErrStoreMiss
	}

	nanos, err := strconv.ParseInt(vals[fieldFetchedAt], 10, 64)
	if err != nil {
		return nil, time.Time{}, errors.New("stored key set has no valid fetch time")
	}

	return []byte(doc), time.Unix(0, nanos), nil
}

// Save implements jwks.Store.
func (s *Store) Save(ctx context.Context, doc []byte, fetchedAt time.Time, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key,
			fieldDoc, doc,
			fieldFetchedAt, strconv.FormatInt(fetchedAt.UnixNano(), 10),
		)
		pipe.Expire(ctx, s.key, ttl)
		return nil
	})
	return err
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
