package dataset

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// distribute saves a new revision to the cache, then archives and announces
// it.  The archive and announcement run under a lease keyed by the digest so
// that replicas fetching the same upstream revision do the work once.
// Failures here never affect the applied data.
func (r *Refresher) distribute(ctx context.Context, res feature.Resource, data []byte, out Outcome, at time.Time) {
	if r.cache != nil {
		err := r.cache.Save(ctx, res, data, at)
		r.metrics.RecordCache("save", false, err)
		if err != nil {
			r.logger.Warn("snapshot cache save failed", logging.String("resource", string(res)), logging.Err(err))
		}
	}
	if r.archive == nil && r.publisher == nil {
		return
	}

	lease, ok := r.acquire(ctx, res, out.Digest)
	if !ok {
		if r.archive != nil {
			r.metrics.RecordArchive(string(res), true, nil)
		}
		if r.publisher != nil {
			r.metrics.RecordPublish(true, nil)
		}
		return
	}

	var key string
	var failed bool
	if r.archive != nil {
		var err error
		key, err = r.archive.Put(ctx, res, data, out.Digest, at)
		r.metrics.RecordArchive(string(res), false, err)
		if err != nil {
			failed = true
			r.logger.Warn("snapshot archive failed", logging.String("resource", string(res)), logging.Err(err))
		}
	}
	if r.publisher != nil {
		err := r.publisher.Announce(ctx, Announcement{
			Resource:   res,
			Digest:     out.Digest,
			Count:      out.Count,
			Version:    r.store.Version(),
			ArchiveKey: key,
			AppliedAt:  at,
		})
		r.metrics.RecordPublish(false, err)
		if err != nil {
			failed = true
			r.logger.Warn("refresh announcement failed", logging.String("resource", string(res)), logging.Err(err))
		}
	}

	// Keep a successful lease until it expires so late replicas skip the
	// revision; hand a failed one back so another replica can retry.
	if failed && lease != nil {
		if err := lease.Release(ctx); err != nil {
			r.logger.Debug("lease release failed", logging.String("resource", string(res)), logging.Err(err))
		}
	}
}

// acquire takes the distribution lease.  Without a leaser, or when the lease
// store fails, the work proceeds unguarded.
func (r *Refresher) acquire(ctx context.Context, res feature.Resource, digest string) (Lease, bool) {
	if r.leaser == nil {
		return nil, true
	}
	name := "snapshot:" + string(res) + ":" + digest
	lease, ok, err := r.leaser.TryAcquire(ctx, name, r.cfg.LeaseTTL)
	if err != nil {
		r.logger.Warn("lease unavailable, distributing anyway", logging.String("resource", string(res)), logging.Err(err))
		return nil, true
	}
	if !ok {
		r.logger.Debug("revision handled by another replica", logging.String("resource", string(res)))
		return nil, false
	}
	return lease, true
}

// WarmStart installs cached payloads for resources that have no data yet.
// It reports how many resources were restored.  Cache problems are logged
// and otherwise ignored; a fetch started meanwhile always wins.
func (r *Refresher) WarmStart(ctx context.Context) int {
	if r.cache == nil {
		return 0
	}
	restored := make([]bool, len(feature.Resources))
	g, gctx := errgroup.WithContext(ctx)
	for i, res := range feature.Resources {
		i, res := i, res
		if r.store.Status().Resources[res].HasData {
			continue
		}
		g.Go(func() error {
			data, savedAt, err := r.cache.Load(gctx, res)
			if err != nil {
				miss := apperrors.IsNotFound(err)
				r.metrics.RecordCache("load", miss, errIfNot(miss, err))
				if !miss {
					r.logger.Warn("snapshot cache load failed", logging.String("resource", string(res)), logging.Err(err))
				}
				return nil
			}
			r.metrics.RecordCache("load", false, nil)
			seq := r.store.Begin(res)
			out := r.apply(gctx, res, seq, data, Outcome{Resource: res}, false)
			if out.Applied {
				restored[i] = true
				r.logger.Info("warm start from cache",
					logging.String("resource", string(res)),
					logging.Int("count", out.Count),
					logging.Time("saved_at", savedAt))
			}
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range restored {
		if ok {
			n++
		}
	}
	return n
}

func errIfNot(miss bool, err error) error {
	if miss {
		return nil
	}
	return err
}
