// Package dataset keeps the feature store fed.  A process-wide Refresher
// fetches the three resources on a fixed interval, applies them through the
// store's sequence guard and hands every new revision to the cache, the
// archive and the peer announcement channel.
package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// Defaults.
const (
	DefaultInterval = 5 * time.Minute
	DefaultTimeout  = 20 * time.Second
	DefaultLeaseTTL = 10 * time.Minute
)

// ErrAlreadyRunning is returned by a second Start.
var ErrAlreadyRunning = apperrors.New(apperrors.ErrCodeConflict, "refresher already running")

// Config tunes a Refresher.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	LeaseTTL time.Duration
	// ReplicaID identifies this process in announcements.
	ReplicaID string
}

// Outcome is the result of refreshing one resource.
type Outcome struct {
	Resource feature.Resource `json:"resource"`
	Applied  bool             `json:"applied"`
	Skipped  bool             `json:"skipped,omitempty"`
	Changed  bool             `json:"changed,omitempty"`
	Count    int              `json:"count"`
	Digest   string           `json:"digest,omitempty"`
	Elapsed  time.Duration    `json:"elapsed"`
	Error    string           `json:"error,omitempty"`
	Err      error            `json:"-"`
}

// Option configures optional collaborators.
type Option func(*Refresher)

// WithCache enables the warm-start cache.
func WithCache(c Cache) Option { return func(r *Refresher) { r.cache = c } }

// WithArchiver enables snapshot archiving.
func WithArchiver(a Archiver) Option { return func(r *Refresher) { r.archive = a } }

// WithPublisher enables refresh announcements.
func WithPublisher(p Publisher) Option { return func(r *Refresher) { r.publisher = p } }

// WithLeaser deduplicates archive and announcement work across replicas.
func WithLeaser(l Leaser) Option { return func(r *Refresher) { r.leaser = l } }

// WithMetrics records refresh metrics.
func WithMetrics(m Metrics) Option {
	return func(r *Refresher) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(r *Refresher) { r.now = now } }

// Refresher owns the periodic and manual refreshes.
type Refresher struct {
	store     *feature.Store
	source    Source
	cache     Cache
	archive   Archiver
	publisher Publisher
	leaser    Leaser
	metrics   Metrics
	logger    logging.Logger
	cfg       Config
	now       func() time.Time

	flight singleflight.Group

	digestMu sync.Mutex
	digests  map[feature.Resource]appliedDigest

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped Refresher.
func New(store *feature.Store, source Source, cfg Config, logger logging.Logger, opts ...Option) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &Refresher{
		store:   store,
		source:  source,
		metrics: nopMetrics{},
		logger:  logger.Named("refresher"),
		cfg:     cfg,
		now:     time.Now,
		digests: make(map[feature.Resource]appliedDigest, len(feature.Resources)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Store returns the store being fed.
func (r *Refresher) Store() *feature.Store { return r.store }

// Start refreshes everything once and then on every tick until ctx ends or
// Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.cancel != nil {
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)
	r.logger.Info("refresher started", logging.Duration("interval", r.cfg.Interval))
	return nil
}

func (r *Refresher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	r.RefreshAll(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// Stop cancels the loop and waits for it to exit.  It is safe to call on a
// stopped Refresher.
func (r *Refresher) Stop() {
	r.runMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("refresher stopped")
}

// Running reports whether the loop is active.
func (r *Refresher) Running() bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.cancel != nil
}

// RefreshAll fetches the three resources concurrently.  Each outcome stands
// on its own; a failed overlay does not affect the features.
func (r *Refresher) RefreshAll(ctx context.Context) []Outcome {
	out := make([]Outcome, len(feature.Resources))
	var wg sync.WaitGroup
	for i, res := range feature.Resources {
		wg.Add(1)
		go func(i int, res feature.Resource) {
			defer wg.Done()
			out[i] = r.refresh(ctx, res)
		}(i, res)
	}
	wg.Wait()
	return out
}

// RefreshFeatures is the manual refresh: it refetches the point collection
// only.  Concurrent callers share one fetch.
func (r *Refresher) RefreshFeatures(ctx context.Context) Outcome {
	v, _, _ := r.flight.Do(string(feature.ResourceFeatures), func() (interface{}, error) {
		return r.refresh(ctx, feature.ResourceFeatures), nil
	})
	return v.(Outcome)
}

func (r *Refresher) refresh(ctx context.Context, res feature.Resource) Outcome {
	out := Outcome{Resource: res}
	if !r.source.Configured(res) {
		out.Skipped = true
		return out
	}

	seq := r.store.Begin(res)
	fctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	start := r.now()
	data, err := r.source.Fetch(fctx, res)
	cancel()
	out.Elapsed = r.now().Sub(start)
	r.metrics.ObserveFetch(string(res), out.Elapsed, err)
	if err != nil {
		r.store.Fail(res, seq, err)
		r.logger.Warn("fetch failed", logging.String("resource", string(res)), logging.Err(err))
		return out.failed(err)
	}

	return r.apply(ctx, res, seq, data, out, true)
}

// apply parses data and installs it under seq.  distribute is false for
// payloads that came from the cache.
func (r *Refresher) apply(ctx context.Context, res feature.Resource, seq uint64, data []byte, out Outcome, distribute bool) Outcome {
	count, err := r.install(res, seq, data)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeDataSourceStale) {
			r.logger.Info("stale response discarded", logging.String("resource", string(res)), logging.Uint64("seq", seq))
		} else {
			r.store.Fail(res, seq, err)
			r.logger.Warn("payload rejected", logging.String("resource", string(res)), logging.Err(err))
		}
		return out.failed(err)
	}

	now := r.now()
	out.Applied = true
	out.Count = count
	out.Digest = Digest(data)
	r.metrics.SetFeatureCount(string(res), count, now)

	out.Changed = r.recordDigest(res, seq, out.Digest)

	r.logger.Debug("resource applied",
		logging.String("resource", string(res)),
		logging.Int("count", count),
		logging.Bool("changed", out.Changed))

	if distribute && out.Changed {
		r.distribute(ctx, res, data, out, now)
	}
	return out
}

func (r *Refresher) install(res feature.Resource, seq uint64, data []byte) (int, error) {
	if res == feature.ResourceFeatures {
		col, err := feature.ParseCollection(data)
		if err != nil {
			return 0, err
		}
		return col.Len(), r.store.SetFeatures(seq, col)
	}
	b, err := feature.ParseBoundary(res, data)
	if err != nil {
		return 0, err
	}
	count := 0
	if b.Data != nil {
		count = len(b.Data.Features)
	}
	return count, r.store.SetBoundary(seq, b)
}

// Digest is the hex SHA-256 of a payload.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// appliedDigest is the digest of the payload installed under seq.
type appliedDigest struct {
	seq    uint64
	digest string
}

// recordDigest notes the digest of a payload installed under seq and reports
// whether it differs from the previous one.  Two overlapping installs can
// finish out of order; a record older than the current one is dropped and
// reported unchanged.
func (r *Refresher) recordDigest(res feature.Resource, seq uint64, digest string) bool {
	r.digestMu.Lock()
	defer r.digestMu.Unlock()
	cur := r.digests[res]
	if seq < cur.seq {
		return false
	}
	r.digests[res] = appliedDigest{seq: seq, digest: digest}
	return cur.digest != digest
}

// LastDigest returns the digest of the payload currently applied for res.
func (r *Refresher) LastDigest(res feature.Resource) string {
	r.digestMu.Lock()
	defer r.digestMu.Unlock()
	return r.digests[res].digest
}

func (o Outcome) failed(err error) Outcome {
	o.Err = err
	o.Error = err.Error()
	return o
}
