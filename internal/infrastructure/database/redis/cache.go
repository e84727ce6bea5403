package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	"github.com/sigtopo/coop-driouch/pkg/errors"
)

var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// Entry is a cached raw payload.
type Entry struct {
	Payload []byte
	SavedAt time.Time
}

// SnapshotCache keeps the last successfully parsed payload of every resource
// so a restarted replica can serve data before the upstream answers.
type SnapshotCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
}

// CacheOption configures a SnapshotCache.
type CacheOption func(*SnapshotCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *SnapshotCache) { c.prefix = prefix }
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *SnapshotCache) { c.ttl = ttl }
}

// NewSnapshotCache returns a cache on client.
func NewSnapshotCache(client *Client, log logging.Logger, opts ...CacheOption) *SnapshotCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &SnapshotCache{
		client: client,
		logger: log.Named("snapshot_cache"),
		prefix: "coopmap:",
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SnapshotCache) payloadKey(r feature.Resource) string {
	return c.prefix + "snapshot:" + string(r)
}

func (c *SnapshotCache) savedAtKey(r feature.Resource) string {
	return c.prefix + "snapshot:" + string(r) + ":saved_at"
}

// Save stores payload for r.
func (c *SnapshotCache) Save(ctx context.Context, r feature.Resource, payload []byte, at time.Time) error {
	rdb, err := c.client.cmd()
	if err != nil {
		return err
	}
	if err := rdb.Set(ctx, c.payloadKey(r), payload, c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to save snapshot").WithDetail("resource=" + string(r))
	}
	if err := rdb.Set(ctx, c.savedAtKey(r), at.UTC().Format(time.RFC3339Nano), c.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to save snapshot time").WithDetail("resource=" + string(r))
	}
	c.logger.Debug("snapshot cached", logging.String("resource", string(r)), logging.Int("bytes", len(payload)))
	return nil
}

// Load returns the cached payload for r, or ErrCacheMiss.  A missing or
// malformed timestamp leaves SavedAt zero.
func (c *SnapshotCache) Load(ctx context.Context, r feature.Resource) (Entry, error) {
	rdb, err := c.client.cmd()
	if err != nil {
		return Entry{}, err
	}
	data, err := rdb.Get(ctx, c.payloadKey(r)).Bytes()
	if err == redis.Nil {
		return Entry{}, ErrCacheMiss
	}
	if err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrCodeCacheError, "failed to load snapshot").WithDetail("resource=" + string(r))
	}
	entry := Entry{Payload: data}
	raw, err := rdb.Get(ctx, c.savedAtKey(r)).Result()
	if err == nil {
		if ts, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			entry.SavedAt = ts
		}
	}
	return entry, nil
}
