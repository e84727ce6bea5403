// Package dashboard orchestrates one dashboard per browser session.  A
// session owns the selection, the camera controller, the overlay panel and
// the filters; events are applied serially and the resulting state, with the
// camera commands queued since the last read, is returned to the client.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/sigtopo/coop-driouch/internal/application/insight"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	"github.com/sigtopo/coop-driouch/internal/domain/layout"
	"github.com/sigtopo/coop-driouch/internal/domain/marker"
	"github.com/sigtopo/coop-driouch/internal/domain/panel"
	"github.com/sigtopo/coop-driouch/internal/domain/selection"
	"github.com/sigtopo/coop-driouch/internal/domain/viewport"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// InsightGenerator produces the AI summary of a feature subset.
type InsightGenerator interface {
	Generate(ctx context.Context, features []feature.Feature) (insight.Report, error)
	Available() bool
}

// SelectionState is the selected identifier and whether it resolved.
type SelectionState struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// Suggestion is one autocomplete entry of the panel search.
type Suggestion struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Commune string `json:"commune,omitempty"`
}

// InsightState is the lifecycle of the last summary request.
type InsightState struct {
	State       insight.State `json:"state"`
	Text        string        `json:"text,omitempty"`
	Count       int           `json:"count,omitempty"`
	Sampled     int           `json:"sampled,omitempty"`
	GeneratedAt *time.Time    `json:"generated_at,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Available   bool          `json:"available"`
}

// State is the session document returned after every read or event.
type State struct {
	ID          string             `json:"id"`
	Layout      layout.Capability  `json:"layout"`
	SidebarOpen bool               `json:"sidebar_open"`
	Layer       marker.Layer       `json:"layer"`
	Tiles       marker.Tiles       `json:"tiles"`
	Filters     filter.Predicates  `json:"filters"`
	Selection   *SelectionState    `json:"selection,omitempty"`
	Detail      *Detail            `json:"detail,omitempty"`
	Panel       panel.State        `json:"panel"`
	Suggestions []Suggestion       `json:"suggestions"`
	Viewport    viewport.State     `json:"viewport"`
	Commands    []viewport.Command `json:"commands"`
	Insight     InsightState       `json:"insight"`
	DataVersion uint64             `json:"data_version"`
}

// deps are shared by every session of a Manager.
type deps struct {
	store    *feature.Store
	options  *filter.OptionCache
	detector layout.Detector
	insight  InsightGenerator
	logger   logging.Logger
	now      func() time.Time
}

// Session is one dashboard.  All methods are safe for concurrent use; events
// are applied one at a time.
type Session struct {
	id     string
	d      *deps
	logger logging.Logger

	mu          sync.Mutex
	createdAt   time.Time
	lastSeen    time.Time
	capability  layout.Capability
	sidebarOpen bool
	layer       marker.Layer
	filters     filter.Predicates
	version     uint64
	synced      bool
	sel         *selection.Controller
	vp          *viewport.Controller
	panel       *panel.Machine
	queue       viewport.Queue

	insightState  insight.State
	insightReport *insight.Report
	insightCode   string
	insightGen    uint64
}

func newSession(id string, width int, d *deps) *Session {
	now := d.now()
	s := &Session{
		id:           id,
		d:            d,
		logger:       d.logger.With(logging.String("session_id", id)),
		createdAt:    now,
		lastSeen:     now,
		capability:   d.detector.Detect(width),
		layer:        marker.LayerStandard,
		sel:          selection.NewController(),
		vp:           viewport.NewController(),
		panel:        panel.NewMachine(),
		insightState: insight.StateIdle,
	}
	s.sidebarOpen = !s.capability.Compact
	s.sel.OnChange(s.selectionChanged)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LastSeen returns the time of the last read or event.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) selectionChanged(_, next *selection.Current) {
	s.panel.SelectionChanged(next != nil)
	if next == nil || !next.Resolved() {
		return
	}
	if cmd, ok := s.vp.FlyTo(*next.Feature, s.capability.Compact); ok {
		s.queue.Push(cmd)
	}
}

// sync catches up with the store when its version moved.  Caller holds mu.
func (s *Session) sync() *feature.Snapshot {
	snap := s.d.store.Snapshot()
	if s.synced && snap.Version == s.version {
		return snap
	}
	s.synced = true
	s.version = snap.Version
	s.vp.UpdateBounds(snap.ProvinceBound(), snap.FeatureBound())
	if snap.Features != nil {
		before, had := s.sel.Current()
		s.sel.Resync(snap.Features)
		// A selection made before its feature was loaded gets its fly-to now.
		if after, ok := s.sel.Current(); had && ok && !before.Resolved() && after.Resolved() {
			if cmd, ok := s.vp.FlyTo(*after.Feature, s.capability.Compact); ok {
				s.queue.Push(cmd)
			}
		}
	}
	return snap
}

func (s *Session) bootstrap() {
	if cmd, ok := s.vp.Bootstrap(s.sel.ID() != "", s.capability.Compact); ok {
		s.queue.Push(cmd)
	}
}

func (s *Session) observeWidth(width int) {
	if width > 0 {
		s.capability = s.d.detector.Detect(width)
	}
}

// State returns the session document and drains the camera queue.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.d.now()
	snap := s.sync()
	s.bootstrap()
	return s.stateLocked(snap)
}

// Apply processes ev and returns the resulting state.  A rejected event
// leaves the session as it was, apart from the reported viewport width.
func (s *Session) Apply(ev Event) (State, error) {
	if err := ev.Validate(); err != nil {
		return State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.d.now()
	s.observeWidth(ev.ViewportWidth)
	snap := s.sync()
	if err := s.apply(snap, ev); err != nil {
		s.logger.Debug("event rejected", logging.String("type", string(ev.Type)), logging.Err(err))
		return State{}, err
	}
	s.bootstrap()
	return s.stateLocked(snap), nil
}

func (s *Session) apply(snap *feature.Snapshot, ev Event) error {
	compact := s.capability.Compact
	switch ev.Type {
	case EventSelect:
		s.selectID(snap, ev.FeatureID, ev.Source)
	case EventPickSuggestion:
		f := find(snap, ev.FeatureID)
		if f == nil {
			return apperrors.New(apperrors.ErrCodeFeatureNotFound, "feature not found").
				WithDetail("id=" + ev.FeatureID)
		}
		if err := s.panel.PickSuggestion(); err != nil {
			return err
		}
		s.selectID(snap, ev.FeatureID, selection.SourceSuggestion)
	case EventClose:
		s.sel.Clear()
		s.panel.Close()
	case EventOpenSearch:
		return s.panel.OpenSearch()
	case EventSetQuery:
		return s.panel.SetQuery(ev.Query)
	case EventToggleExpanded:
		return s.panel.ToggleExpanded()
	case EventClickOutside:
		s.panel.ClickOutside()
	case EventPointerDown:
		s.panel.PointerDown(ev.X, ev.Y, ev.Target, compact)
	case EventPointerMove:
		s.panel.PointerMove(ev.X, ev.Y)
	case EventPointerUp:
		if s.panel.PointerUp(ev.X, ev.Y) == panel.OutcomeClick && s.panel.State().Mode == panel.ModeDetail {
			_ = s.panel.ToggleExpanded()
		}
	case EventTouchStart:
		s.panel.TouchStart(ev.Y, compact)
	case EventTouchEnd:
		if s.panel.TouchEnd(ev.Y) == panel.OutcomeClose {
			s.sel.Clear()
		}
	case EventSetFilters:
		s.filters = *ev.Filters
	case EventResetFilters:
		s.filters = filter.Predicates{}
	case EventResetView:
		s.sel.Clear()
		if cmd, ok := s.vp.Reset(compact); ok {
			s.queue.Push(cmd)
		}
	case EventToggleSidebar:
		s.setSidebar(!s.sidebarOpen)
	case EventSetSidebar:
		s.setSidebar(*ev.Open)
	case EventSetLayer:
		l, ok := marker.ParseLayer(ev.Layer)
		if !ok {
			return apperrors.InvalidParam("unknown map layer").WithDetail("layer=" + ev.Layer)
		}
		s.layer = l
	case EventResize:
		// width already observed
	}
	return nil
}

// selectID selects id.  Re-selecting the current feature collapses the
// panel again without moving the camera.
func (s *Session) selectID(snap *feature.Snapshot, id string, src selection.Source) {
	if !s.sel.SelectID(id, find(snap, id)) {
		s.panel.SelectionChanged(true)
	}
	if s.capability.Compact && src.HidesSidebar() && s.sidebarOpen {
		s.setSidebar(false)
	}
}

func (s *Session) setSidebar(open bool) {
	if s.sidebarOpen == open {
		return
	}
	s.sidebarOpen = open
	s.queue.Push(s.vp.LayoutChanged())
}

func find(snap *feature.Snapshot, id string) *feature.Feature {
	if snap == nil || snap.Features == nil {
		return nil
	}
	f, ok := snap.Features.Find(id)
	if !ok {
		return nil
	}
	return f
}

func (s *Session) stateLocked(snap *feature.Snapshot) State {
	st := State{
		ID:          s.id,
		Layout:      s.capability,
		SidebarOpen: s.sidebarOpen,
		Layer:       s.layer,
		Tiles:       marker.TilesFor(s.layer),
		Filters:     s.filters,
		Panel:       s.panel.State(),
		Suggestions: []Suggestion{},
		Viewport:    s.vp.State(),
		Commands:    s.queue.Drain(),
		Insight:     s.insightLocked(),
		DataVersion: snap.Version,
	}
	if cur, ok := s.sel.Current(); ok {
		st.Selection = &SelectionState{ID: cur.ID, Resolved: cur.Resolved()}
		d := BuildDetail(cur.ID, cur.Feature)
		st.Detail = &d
	}
	for _, f := range s.panel.Suggestions(snap.FeatureList()) {
		st.Suggestions = append(st.Suggestions, Suggestion{
			ID:      f.ID,
			Name:    f.TextOr(feature.FieldName, DefaultName),
			Commune: f.Text(feature.FieldCommune),
		})
	}
	return st
}

func (s *Session) insightLocked() InsightState {
	out := InsightState{
		State:     s.insightState,
		ErrorCode: s.insightCode,
		Available: s.d.insight != nil && s.d.insight.Available(),
	}
	if r := s.insightReport; r != nil {
		out.Text = r.Text
		out.Count = r.Count
		out.Sampled = r.Sampled
		at := r.GeneratedAt
		out.GeneratedAt = &at
	}
	return out
}

// GenerateInsight summarises the currently filtered cooperatives.  The lock is
// not held during generation; when requests overlap only the newest one is
// recorded.  Failures are reported through the returned state.
func (s *Session) GenerateInsight(ctx context.Context) InsightState {
	s.mu.Lock()
	s.lastSeen = s.d.now()
	snap := s.sync()
	features := filter.FilterAndSort(snap.FeatureList(), s.filters)
	s.insightGen++
	gen := s.insightGen
	s.insightState = insight.StateLoading
	s.insightCode = ""
	s.mu.Unlock()

	var (
		rep insight.Report
		err error
	)
	if s.d.insight == nil {
		rep = insight.Report{Text: insight.MessageUnavailable, Count: len(features), GeneratedAt: s.d.now()}
		err = apperrors.New(apperrors.ErrCodeAIModelNotAvailable, "summarizer not configured")
	} else {
		rep, err = s.d.insight.Generate(ctx, features)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.insightGen {
		s.insightReport = &rep
		if err != nil {
			s.insightState = insight.StateError
			s.insightCode = string(apperrors.GetCode(err))
			s.logger.Info("insight failed", logging.String("code", s.insightCode))
		} else {
			s.insightState = insight.StateReady
			s.insightCode = ""
		}
	}
	return s.insightLocked()
}

// View renders the filtered list, markers and aggregates.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.d.now()
	snap := s.sync()
	return buildView(snap, s.d.store.Status().State, s.d.options, s.filters, s.sel.ID(), s.layer)
}
