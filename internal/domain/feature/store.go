package feature

import (
	"sync"
	"time"

	"github.com/paulmach/orb"

	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// Resource names one of the three independently fetched inputs.
type Resource string

const (
	ResourceFeatures Resource = "features"
	ResourceProvince Resource = "province"
	ResourceCommunes Resource = "communes"
)

// Resources lists every resource in fetch order.
var Resources = []Resource{ResourceFeatures, ResourceProvince, ResourceCommunes}

// IsBoundary reports whether r is an overlay.
func (r Resource) IsBoundary() bool {
	return r == ResourceProvince || r == ResourceCommunes
}

// LoadState is the per-resource fetch outcome.
type LoadState string

const (
	StateIdle    LoadState = "idle"
	StateLoading LoadState = "loading"
	StateLoaded  LoadState = "loaded"
	StateFailed  LoadState = "failed"
)

// ResourceStatus describes the last fetch of one resource.  A failed
// resource keeps serving the previously loaded data, if any.
type ResourceStatus struct {
	State     LoadState `json:"state"`
	HasData   bool      `json:"has_data"`
	Count     int       `json:"count,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Snapshot is an immutable view of the store.  Version changes whenever any
// resource is replaced.
type Snapshot struct {
	Version   uint64
	Features  *Collection
	Province  *Boundary
	Communes  *Boundary
	UpdatedAt time.Time
}

// HasFeatures reports whether a point collection has been loaded.
func (s *Snapshot) HasFeatures() bool {
	return s != nil && s.Features != nil
}

// FeatureList returns the loaded features, or an empty slice.
func (s *Snapshot) FeatureList() []Feature {
	if !s.HasFeatures() {
		return []Feature{}
	}
	return s.Features.Features
}

// Boundary returns the named overlay, nil when absent.
func (s *Snapshot) Boundary(r Resource) *Boundary {
	if s == nil {
		return nil
	}
	switch r {
	case ResourceProvince:
		return s.Province
	case ResourceCommunes:
		return s.Communes
	}
	return nil
}

// ProvinceBound returns the province extent when the overlay is present and
// non-empty.
func (s *Snapshot) ProvinceBound() *orb.Bound {
	if s == nil || s.Province == nil || s.Province.Empty {
		return nil
	}
	b := s.Province.Bound
	return &b
}

// FeatureBound returns the extent of the point collection.
func (s *Snapshot) FeatureBound() *orb.Bound {
	if !s.HasFeatures() {
		return nil
	}
	b, ok := s.Features.Bound()
	if !ok {
		return nil
	}
	return &b
}

// Store owns the loaded data.  Writers obtain a sequence number with Begin
// before fetching; a result is applied only if no newer fetch of the same
// resource has already been applied, so out-of-order responses cannot roll
// the data back.
type Store struct {
	mu      sync.RWMutex
	seq     uint64
	applied map[Resource]uint64
	status  map[Resource]ResourceStatus
	snap    *Snapshot
	now     func() time.Time
	onStale func(Resource)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithStaleHook is called, outside the lock, for every discarded response.
func WithStaleHook(fn func(Resource)) StoreOption {
	return func(s *Store) { s.onStale = fn }
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		applied: make(map[Resource]uint64, len(Resources)),
		status:  make(map[Resource]ResourceStatus, len(Resources)),
		snap:    &Snapshot{},
		now:     time.Now,
	}
	for _, r := range Resources {
		s.status[r] = ResourceStatus{State: StateIdle}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Begin registers a fetch of r and returns its sequence number.
func (s *Store) Begin(r Resource) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	st := s.status[r]
	st.State = StateLoading
	s.status[r] = st
	return s.seq
}

// SetFeatures applies a freshly fetched collection.  It fails with
// ErrCodeDataSourceStale when a newer features fetch was applied first.
func (s *Store) SetFeatures(seq uint64, c *Collection) error {
	if c == nil {
		return apperrors.InvalidParam("nil feature collection")
	}
	return s.apply(ResourceFeatures, seq, c.Len(), func(next *Snapshot) {
		next.Features = c
	})
}

// SetBoundary applies an overlay.
func (s *Store) SetBoundary(seq uint64, b *Boundary) error {
	if b == nil || !b.Name.IsBoundary() {
		return apperrors.InvalidParam("boundary must be province or communes")
	}
	count := 0
	if b.Data != nil {
		count = len(b.Data.Features)
	}
	return s.apply(b.Name, seq, count, func(next *Snapshot) {
		if b.Name == ResourceProvince {
			next.Province = b
		} else {
			next.Communes = b
		}
	})
}

func (s *Store) apply(r Resource, seq uint64, count int, mutate func(*Snapshot)) error {
	s.mu.Lock()
	if seq <= s.applied[r] {
		s.mu.Unlock()
		if s.onStale != nil {
			s.onStale(r)
		}
		return apperrors.New(apperrors.ErrCodeDataSourceStale, "stale response discarded").
			WithDetail("resource=" + string(r))
	}
	now := s.now()
	next := *s.snap
	mutate(&next)
	next.Version = s.snap.Version + 1
	next.UpdatedAt = now
	s.snap = &next
	s.applied[r] = seq
	s.status[r] = ResourceStatus{State: StateLoaded, HasData: true, Count: count, UpdatedAt: now}
	s.mu.Unlock()
	return nil
}

// Fail records a failed fetch.  Previously loaded data is left untouched and
// failures older than the applied data are ignored.
func (s *Store) Fail(r Resource, seq uint64, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied[r] {
		return
	}
	st := s.status[r]
	st.State = StateFailed
	if cause != nil {
		st.Error = cause.Error()
	}
	s.status[r] = st
}

// Snapshot returns the current immutable view.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Version is Snapshot().Version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Version
}

// DatasetState summarises the primary collection for rendering.
type DatasetState string

const (
	DatasetLoading DatasetState = "loading"
	DatasetEmpty   DatasetState = "empty"
	DatasetReady   DatasetState = "ready"
)

// Status is the dataset status document.
type Status struct {
	State       DatasetState                `json:"state"`
	Version     uint64                      `json:"version"`
	LastUpdated time.Time                   `json:"last_updated,omitempty"`
	Resources   map[Resource]ResourceStatus `json:"resources"`
}

// Status reports per-resource states.  Without a loaded collection the
// dataset is "loading" while the first fetch is outstanding and "empty"
// once it has failed.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make(map[Resource]ResourceStatus, len(s.status))
	for k, v := range s.status {
		res[k] = v
	}
	st := Status{Version: s.snap.Version, Resources: res}
	fs := s.status[ResourceFeatures]
	switch {
	case s.snap.Features != nil:
		st.State = DatasetReady
		st.LastUpdated = fs.UpdatedAt
	case fs.State == StateFailed:
		st.State = DatasetEmpty
	default:
		st.State = DatasetLoading
	}
	return st
}
