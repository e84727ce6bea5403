package dataset

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/testutil"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeSource struct {
	mu       sync.Mutex
	payloads map[feature.Resource][]byte
	errs     map[feature.Resource]error
	calls    map[feature.Resource]int
	gate     chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		payloads: map[feature.Resource][]byte{
			feature.ResourceFeatures: testutil.FeatureCollectionJSON(testutil.SampleCoops),
			feature.ResourceProvince: []byte(testutil.ProvinceJSON),
			feature.ResourceCommunes: []byte(testutil.CommunesJSON),
		},
		errs:  map[feature.Resource]error{},
		calls: map[feature.Resource]int{},
	}
}

func (s *fakeSource) Configured(r feature.Resource) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.payloads[r]
	_, failing := s.errs[r]
	return ok || failing
}

func (s *fakeSource) Fetch(ctx context.Context, r feature.Resource) ([]byte, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r]++
	if err := s.errs[r]; err != nil {
		return nil, err
	}
	return s.payloads[r], nil
}

func (s *fakeSource) callCount(r feature.Resource) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[r]
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[feature.Resource][]byte
	saves   int
	loadErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[feature.Resource][]byte{}}
}

func (c *fakeCache) Save(_ context.Context, r feature.Resource, payload []byte, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[r] = payload
	c.saves++
	return nil
}

func (c *fakeCache) Load(_ context.Context, r feature.Resource) ([]byte, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, time.Time{}, c.loadErr
	}
	p, ok := c.entries[r]
	if !ok {
		return nil, time.Time{}, apperrors.NotFound("cache miss")
	}
	return p, time.Unix(1700000000, 0), nil
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) Put(ctx context.Context, r feature.Resource, payload []byte, digest string, at time.Time) (string, error) {
	args := m.Called(ctx, r, payload, digest, at)
	return args.String(0), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Announce(ctx context.Context, a Announcement) error {
	return m.Called(ctx, a).Error(0)
}

type fakeLease struct{ released *int32 }

func (l fakeLease) Release(context.Context) error {
	atomic.AddInt32(l.released, 1)
	return nil
}

type fakeLeaser struct {
	mu       sync.Mutex
	held     map[string]bool
	released int32
	err      error
}

func (l *fakeLeaser) TryAcquire(_ context.Context, name string, _ time.Duration) (Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return fakeLease{released: &l.released}, true, nil
}

type recordingMetrics struct {
	nopMetrics
	mu      sync.Mutex
	fetches map[string]int
	peer    map[string]int
	archive []bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{fetches: map[string]int{}, peer: map[string]int{}}
}

func (m *recordingMetrics) ObserveFetch(resource string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[resource]++
}

func (m *recordingMetrics) IncPeerRefresh(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peer[action]++
}

func (m *recordingMetrics) RecordArchive(_ string, skipped bool, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archive = append(m.archive, skipped)
}

func newTestRefresher(src Source, opts ...Option) *Refresher {
	return New(feature.NewStore(), src, Config{Interval: time.Hour, ReplicaID: "replica-a"}, testutil.NewMockLogger(), opts...)
}

// ─────────────────────────────────────────────────────────────────────────────
// refresh
// ─────────────────────────────────────────────────────────────────────────────

func TestRefreshAll_LoadsEveryResource(t *testing.T) {
	src := newFakeSource()
	r := newTestRefresher(src)

	outs := r.RefreshAll(context.Background())
	require.Len(t, outs, 3)
	for _, o := range outs {
		assert.True(t, o.Applied, o.Resource)
		assert.NoError(t, o.Err)
		assert.NotEmpty(t, o.Digest)
	}

	snap := r.Store().Snapshot()
	assert.Equal(t, 4, snap.Features.Len())
	assert.NotNil(t, snap.Province)
	assert.NotNil(t, snap.Communes)
	assert.Equal(t, feature.DatasetReady, r.Store().Status().State)
}

func TestRefreshAll_PartialSuccess(t *testing.T) {
	src := newFakeSource()
	src.errs[feature.ResourceProvince] = apperrors.New(apperrors.ErrCodeDataSourceStatus, "data source returned 404")
	r := newTestRefresher(src)

	outs := r.RefreshAll(context.Background())
	assert.True(t, outs[0].Applied)
	assert.False(t, outs[1].Applied)
	assert.Error(t, outs[1].Err)
	assert.Contains(t, outs[1].Error, "404")

	st := r.Store().Status()
	assert.Equal(t, feature.DatasetReady, st.State)
	assert.Equal(t, feature.StateFailed, st.Resources[feature.ResourceProvince].State)
	assert.Nil(t, r.Store().Snapshot().Province)
}

func TestRefreshAll_UnconfiguredOverlaySkipped(t *testing.T) {
	src := newFakeSource()
	delete(src.payloads, feature.ResourceCommunes)
	r := newTestRefresher(src)

	outs := r.RefreshAll(context.Background())
	assert.True(t, outs[2].Skipped)
	assert.Equal(t, 0, src.callCount(feature.ResourceCommunes))
}

func TestRefresh_PrimaryFailureLeavesStoreUnchanged(t *testing.T) {
	src := newFakeSource()
	r := newTestRefresher(src)
	r.RefreshFeatures(context.Background())
	before := r.Store().Snapshot()

	src.errs[feature.ResourceFeatures] = apperrors.New(apperrors.ErrCodeDataSourceStatus, "data source returned 500")
	out := r.RefreshFeatures(context.Background())

	assert.False(t, out.Applied)
	assert.Same(t, before, r.Store().Snapshot())
	assert.Equal(t, feature.DatasetReady, r.Store().Status().State)
}

func TestRefresh_FirstLoadFailureIsEmpty(t *testing.T) {
	src := newFakeSource()
	src.errs[feature.ResourceFeatures] = apperrors.New(apperrors.ErrCodeDataSourceUnavailable, "unreachable")
	r := newTestRefresher(src)

	r.RefreshFeatures(context.Background())
	assert.Equal(t, feature.DatasetEmpty, r.Store().Status().State)
	assert.False(t, r.Store().Snapshot().HasFeatures())
}

func TestRefresh_MalformedPayloadRejected(t *testing.T) {
	src := newFakeSource()
	src.payloads[feature.ResourceFeatures] = []byte(`{not json`)
	r := newTestRefresher(src)

	out := r.RefreshFeatures(context.Background())
	assert.True(t, apperrors.IsCode(out.Err, apperrors.ErrCodeDataSourceParseError))
	assert.Equal(t, feature.DatasetEmpty, r.Store().Status().State)
}

func TestRefreshFeatures_OnlyTouchesFeatures(t *testing.T) {
	src := newFakeSource()
	m := newRecordingMetrics()
	r := newTestRefresher(src, WithMetrics(m))

	out := r.RefreshFeatures(context.Background())
	assert.True(t, out.Applied)
	assert.Equal(t, 1, src.callCount(feature.ResourceFeatures))
	assert.Equal(t, 0, src.callCount(feature.ResourceProvince))
	assert.Equal(t, 0, src.callCount(feature.ResourceCommunes))
	assert.Equal(t, 1, m.fetches["features"])
}

func TestRefreshFeatures_ConcurrentCallersShareOneFetch(t *testing.T) {
	src := newFakeSource()
	src.gate = make(chan struct{})
	r := newTestRefresher(src)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RefreshFeatures(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, 1, src.callCount(feature.ResourceFeatures))
}

func TestRefresh_UnchangedPayloadNotRedistributed(t *testing.T) {
	src := newFakeSource()
	cache := newFakeCache()
	r := newTestRefresher(src, WithCache(cache))

	first := r.RefreshFeatures(context.Background())
	second := r.RefreshFeatures(context.Background())

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, 1, cache.saves)
}

func TestRecordDigest_OutOfOrderInstallsKeepNewest(t *testing.T) {
	r := newTestRefresher(newFakeSource())
	res := feature.ResourceCommunes
	seq1 := r.Store().Begin(res)
	seq2 := r.Store().Begin(res)
	require.Less(t, seq1, seq2)

	assert.True(t, r.recordDigest(res, seq2, "newer"))
	assert.False(t, r.recordDigest(res, seq1, "older"), "superseded payload is not redistributed")
	assert.Equal(t, "newer", r.LastDigest(res))

	seq3 := r.Store().Begin(res)
	assert.False(t, r.recordDigest(res, seq3, "newer"))
	assert.True(t, r.recordDigest(res, r.Store().Begin(res), "newest"))
	assert.Equal(t, "newest", r.LastDigest(res))
}

func TestHandlePeer_UsesNewestDigestAfterOverlap(t *testing.T) {
	src := newFakeSource()
	r := newTestRefresher(src)
	res := feature.ResourceProvince
	seq1 := r.Store().Begin(res)
	seq2 := r.Store().Begin(res)
	r.recordDigest(res, seq2, "d2")
	r.recordDigest(res, seq1, "d1")

	action, err := r.HandlePeer(context.Background(), PeerRefresh{Source: "replica-b", Resource: res, Digest: "d2"})
	require.NoError(t, err)
	assert.Equal(t, PeerActionIgnored, action)
	assert.Zero(t, src.callCount(res))
}

// ─────────────────────────────────────────────────────────────────────────────
// distribution
// ─────────────────────────────────────────────────────────────────────────────

func TestDistribute_ArchivesAndAnnounces(t *testing.T) {
	src := newFakeSource()
	arch := &mockArchiver{}
	pub := &mockPublisher{}
	payload := src.payloads[feature.ResourceFeatures]
	digest := Digest(payload)

	arch.On("Put", mock.Anything, feature.ResourceFeatures, payload, digest, mock.Anything).
		Return("snapshots/features/x.geojson", nil).Once()
	pub.On("Announce", mock.Anything, mock.MatchedBy(func(a Announcement) bool {
		return a.Resource == feature.ResourceFeatures && a.Digest == digest &&
			a.Count == 4 && a.ArchiveKey == "snapshots/features/x.geojson" && a.Version == 1
	})).Return(nil).Once()

	r := newTestRefresher(src, WithArchiver(arch), WithPublisher(pub), WithLeaser(&fakeLeaser{}))
	out := r.RefreshFeatures(context.Background())
	require.True(t, out.Applied)

	arch.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestDistribute_LeaseHeldElsewhereSkips(t *testing.T) {
	src := newFakeSource()
	arch := &mockArchiver{}
	pub := &mockPublisher{}
	m := newRecordingMetrics()
	digest := Digest(src.payloads[feature.ResourceFeatures])
	leaser := &fakeLeaser{held: map[string]bool{"snapshot:features:" + digest: true}}

	r := newTestRefresher(src, WithArchiver(arch), WithPublisher(pub), WithLeaser(leaser), WithMetrics(m))
	r.RefreshFeatures(context.Background())

	arch.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Announce", mock.Anything, mock.Anything)
	assert.Equal(t, []bool{true}, m.archive)
}

func TestDistribute_FailureReleasesLease(t *testing.T) {
	src := newFakeSource()
	arch := &mockArchiver{}
	arch.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", apperrors.New(apperrors.ErrCodeStorageError, "bucket gone"))
	leaser := &fakeLeaser{}

	r := newTestRefresher(src, WithArchiver(arch), WithLeaser(leaser))
	out := r.RefreshFeatures(context.Background())

	assert.True(t, out.Applied, "distribution failures never affect the applied data")
	assert.Equal(t, int32(1), atomic.LoadInt32(&leaser.released))
}

func TestDistribute_LeaseStoreDownStillDistributes(t *testing.T) {
	src := newFakeSource()
	pub := &mockPublisher{}
	pub.On("Announce", mock.Anything, mock.Anything).Return(nil).Times(3)
	leaser := &fakeLeaser{err: apperrors.New(apperrors.ErrCodeCacheError, "redis down")}

	r := newTestRefresher(src, WithPublisher(pub), WithLeaser(leaser))
	r.RefreshAll(context.Background())
	pub.AssertExpectations(t)
}

// ─────────────────────────────────────────────────────────────────────────────
// warm start
// ─────────────────────────────────────────────────────────────────────────────

func TestWarmStart_RestoresFromCache(t *testing.T) {
	cache := newFakeCache()
	cache.entries[feature.ResourceFeatures] = testutil.FeatureCollectionJSON(testutil.SampleCoops)
	cache.entries[feature.ResourceProvince] = []byte(testutil.ProvinceJSON)

	src := newFakeSource()
	r := newTestRefresher(src, WithCache(cache))

	n := r.WarmStart(context.Background())
	assert.Equal(t, 2, n)
	assert.Equal(t, 4, r.Store().Snapshot().Features.Len())
	assert.Equal(t, 0, src.callCount(feature.ResourceFeatures))
	assert.Equal(t, 0, cache.saves, "cached payloads are not written back")

	// the next fetch of identical data is not redistributed
	out := r.RefreshFeatures(context.Background())
	assert.False(t, out.Changed)
}

func TestWarmStart_SkipsLoadedResources(t *testing.T) {
	cache := newFakeCache()
	cache.entries[feature.ResourceFeatures] = testutil.FeatureCollectionJSON(testutil.SampleCoops[:1])

	r := newTestRefresher(newFakeSource(), WithCache(cache))
	r.RefreshFeatures(context.Background())

	assert.Equal(t, 0, r.WarmStart(context.Background()))
	assert.Equal(t, 4, r.Store().Snapshot().Features.Len())
}

func TestWarmStart_CacheErrorsIgnored(t *testing.T) {
	cache := newFakeCache()
	cache.loadErr = apperrors.New(apperrors.ErrCodeCacheError, "redis down")
	r := newTestRefresher(newFakeSource(), WithCache(cache))
	assert.Equal(t, 0, r.WarmStart(context.Background()))
	assert.Equal(t, 0, newTestRefresher(newFakeSource()).WarmStart(context.Background()))
}

// ─────────────────────────────────────────────────────────────────────────────
// lifecycle
// ─────────────────────────────────────────────────────────────────────────────

func TestStartStop(t *testing.T) {
	src := newFakeSource()
	r := newTestRefresher(src)

	require.NoError(t, r.Start(context.Background()))
	assert.True(t, r.Running())
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRunning)

	require.Eventually(t, func() bool {
		return r.Store().Status().State == feature.DatasetReady
	}, time.Second, 5*time.Millisecond)

	r.Stop()
	assert.False(t, r.Running())
	r.Stop()
}

func TestStart_TicksAtInterval(t *testing.T) {
	src := newFakeSource()
	r := New(feature.NewStore(), src, Config{Interval: 10 * time.Millisecond}, nil)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	require.Eventually(t, func() bool {
		return src.callCount(feature.ResourceFeatures) >= 3
	}, time.Second, 5*time.Millisecond)
}

// ─────────────────────────────────────────────────────────────────────────────
// peers
// ─────────────────────────────────────────────────────────────────────────────

func TestHandlePeer(t *testing.T) {
	src := newFakeSource()
	m := newRecordingMetrics()
	r := newTestRefresher(src, WithMetrics(m))
	out := r.RefreshFeatures(context.Background())

	action, err := r.HandlePeer(context.Background(), PeerRefresh{Source: "replica-a", Resource: feature.ResourceFeatures, Digest: "other"})
	require.NoError(t, err)
	assert.Equal(t, PeerActionIgnored, action)

	action, err = r.HandlePeer(context.Background(), PeerRefresh{Source: "replica-b", Resource: feature.ResourceFeatures, Digest: out.Digest})
	require.NoError(t, err)
	assert.Equal(t, PeerActionIgnored, action)

	action, err = r.HandlePeer(context.Background(), PeerRefresh{Source: "replica-b", Resource: feature.ResourceFeatures, Digest: "newer"})
	require.NoError(t, err)
	assert.Equal(t, PeerActionRefresh, action)
	assert.Equal(t, 2, src.callCount(feature.ResourceFeatures))

	action, err = r.HandlePeer(context.Background(), PeerRefresh{Source: "replica-b", Resource: feature.ResourceCommunes, Digest: "x"})
	require.NoError(t, err)
	assert.Equal(t, PeerActionRefresh, action)
	assert.Equal(t, 1, src.callCount(feature.ResourceCommunes))

	_, err = r.HandlePeer(context.Background(), PeerRefresh{Source: "replica-b", Resource: "rivers"})
	assert.Error(t, err)

	assert.Equal(t, 3, m.peer[PeerActionIgnored])
	assert.Equal(t, 2, m.peer[PeerActionRefresh])
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
}
