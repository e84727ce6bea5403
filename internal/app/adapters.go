package app

import (
	"context"
	"errors"
	"time"

	"github.com/sigtopo/coop-driouch/internal/application/dataset"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/database/redis"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/messaging/kafka"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/storage/minio"
)

// snapshotCacheAdapter exposes redis.SnapshotCache as dataset.Cache.
type snapshotCacheAdapter struct {
	cache *redis.SnapshotCache
}

func (a snapshotCacheAdapter) Save(ctx context.Context, r feature.Resource, payload []byte, at time.Time) error {
	return a.cache.Save(ctx, r, payload, at)
}

func (a snapshotCacheAdapter) Load(ctx context.Context, r feature.Resource) ([]byte, time.Time, error) {
	e, err := a.cache.Load(ctx, r)
	if err != nil {
		return nil, time.Time{}, err
	}
	return e.Payload, e.SavedAt, nil
}

// leaserAdapter exposes redis.Leaser as dataset.Leaser.
type leaserAdapter struct {
	leaser *redis.Leaser
}

func (a leaserAdapter) TryAcquire(ctx context.Context, name string, ttl time.Duration) (dataset.Lease, bool, error) {
	l, ok, err := a.leaser.TryAcquire(ctx, name, ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return l, true, nil
}

// eventPublisher announces refreshes on the dataset topic, keyed by
// resource so revisions of one resource stay ordered.
type eventPublisher struct {
	producer interface {
		PublishEvent(ctx context.Context, topic, key string, env *kafka.EventEnvelope) error
	}
	topic  string
	source string
}

func (p eventPublisher) Announce(ctx context.Context, a dataset.Announcement) error {
	env, err := kafka.NewEventEnvelope(kafka.EventTypeDatasetRefreshed, p.source, kafka.DatasetRefreshedPayload{
		Resource:   string(a.Resource),
		Digest:     a.Digest,
		Count:      a.Count,
		Version:    a.Version,
		ArchiveKey: a.ArchiveKey,
		AppliedAt:  a.AppliedAt,
	})
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, p.topic, string(a.Resource), env)
}

// peerHandler turns consumed announcements into dataset.PeerRefresh calls.
func peerHandler(r interface {
	HandlePeer(ctx context.Context, ev dataset.PeerRefresh) (string, error)
}, logger logging.Logger) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		env, err := kafka.DecodeEnvelope(msg)
		if err != nil {
			return err
		}
		if env.EventType != kafka.EventTypeDatasetRefreshed {
			logger.Debug("ignoring event", logging.String("event_type", env.EventType))
			return nil
		}
		var p kafka.DatasetRefreshedPayload
		if err := env.DecodePayload(&p); err != nil {
			return err
		}
		_, err = r.HandlePeer(ctx, dataset.PeerRefresh{
			Source:   env.Source,
			Resource: feature.Resource(p.Resource),
			Digest:   p.Digest,
		})
		return err
	}
}

// redisHealth reports the snapshot cache connection.
type redisHealth struct {
	client *redis.Client
}

func (redisHealth) Name() string { return "redis" }

func (h redisHealth) Check(ctx context.Context) error { return h.client.Ping(ctx) }

// minioHealth reports the archive bucket.
type minioHealth struct {
	client *minio.Client
}

func (minioHealth) Name() string { return "minio" }

func (h minioHealth) Check(ctx context.Context) error {
	if st := h.client.HealthCheck(ctx); !st.Healthy {
		return errors.New(st.Error)
	}
	return nil
}
