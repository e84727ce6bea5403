package dataset

import (
	"context"
	"time"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
)

// Source downloads raw resources.
type Source interface {
	Fetch(ctx context.Context, r feature.Resource) ([]byte, error)
	Configured(r feature.Resource) bool
}

// Cache keeps the last good payload of each resource.  Load reports a miss
// with a not-found error.
type Cache interface {
	Save(ctx context.Context, r feature.Resource, payload []byte, at time.Time) error
	Load(ctx context.Context, r feature.Resource) (payload []byte, savedAt time.Time, err error)
}

// Archiver stores every distinct payload and returns its object key.
type Archiver interface {
	Put(ctx context.Context, r feature.Resource, payload []byte, digest string, at time.Time) (string, error)
}

// Announcement tells peers that a resource revision was applied.
type Announcement struct {
	Resource   feature.Resource
	Digest     string
	Count      int
	Version    uint64
	ArchiveKey string
	AppliedAt  time.Time
}

// Publisher broadcasts announcements.
type Publisher interface {
	Announce(ctx context.Context, a Announcement) error
}

// Lease is a held cross-replica lease.
type Lease interface {
	Release(ctx context.Context) error
}

// Leaser hands out leases.  ok is false when another replica holds name.
type Leaser interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// Metrics receives refresh observations.
type Metrics interface {
	ObserveFetch(resource string, d time.Duration, err error)
	SetFeatureCount(resource string, n int, at time.Time)
	RecordArchive(resource string, skipped bool, err error)
	RecordPublish(skipped bool, err error)
	RecordCache(operation string, miss bool, err error)
	IncPeerRefresh(action string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(string, time.Duration, error) {}
func (nopMetrics) SetFeatureCount(string, int, time.Time)    {}
func (nopMetrics) RecordArchive(string, bool, error)         {}
func (nopMetrics) RecordPublish(bool, error)                 {}
func (nopMetrics) RecordCache(string, bool, error)           {}
func (nopMetrics) IncPeerRefresh(string)                     {}
