package listingcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// ErrContention is returned when concurrent writers keep invalidating the
// optimistic transaction.
var ErrContention = errors.New("listing cache: too much write contention")

// Redis stores the whole listing array as one JSON value under a single key.
// Writes are read-merge-write inside WATCH/MULTI so concurrent adds are not lost.
type Redis struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

type RedisOption func(*Redis)

func WithKey(key string) RedisOption {
	return func(r *Redis) {
		r.key = key
	}
}

func WithLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		r.logger = logger
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// All returns the cached listings. A missing key is an empty cache; a
// malformed value is logged and treated as empty.
func (r *Redis) All(ctx context.Context) ([]Listing, error) {
	return r.read(ctx, r.client)
}

func (r *Redis) Add(ctx context.Context, listing Listing) error {
	return r.update(ctx, func(current []Listing) ([]Listing, bool) {
		before := len(current)
		merged := Merge(current, listing)
		return merged, len(merged) != before
	})
}

func (r *Redis) Remove(ctx context.Context, domain string) error {
	return r.update(ctx, func(current []Listing) ([]Listing, bool) {
		return without(current, domain)
	})
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *Redis) read(ctx context.Context, c getter) ([]Listing, error) {
	raw, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read listing cache: %w", err)
	}

	var listings []Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		r.logger.WarnContext(ctx, "listing cache value is malformed, treating as empty",
			"key", r.key,
			"error", err,
		)
		return nil, nil
	}
	return listings, nil
}

func (r *Redis) update(ctx context.Context, mutate func([]Listing) ([]Listing, bool)) error {
	txf := func(tx *redis.Tx) error {
		current, err := r.read(ctx, tx)
		if err != nil {
			return err
		}
		next, changed := mutate(current)
		if !changed {
			return nil
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode listing cache: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, payload, 0)
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}
