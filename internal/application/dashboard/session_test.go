package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/application/insight"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	"github.com/sigtopo/coop-driouch/internal/domain/marker"
	"github.com/sigtopo/coop-driouch/internal/domain/panel"
	"github.com/sigtopo/coop-driouch/internal/domain/selection"
	"github.com/sigtopo/coop-driouch/internal/domain/viewport"
	"github.com/sigtopo/coop-driouch/internal/testutil"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

const (
	desktopWidth = 1280
	compactWidth = 375
)

func loadFeatures(t *testing.T, st *feature.Store) {
	t.Helper()
	col, err := feature.ParseCollection(testutil.FeatureCollectionJSON(testutil.SampleCoops))
	require.NoError(t, err)
	require.NoError(t, st.SetFeatures(st.Begin(feature.ResourceFeatures), col))
}

func loadProvince(t *testing.T, st *feature.Store) {
	t.Helper()
	b, err := feature.ParseBoundary(feature.ResourceProvince, []byte(testutil.ProvinceJSON))
	require.NoError(t, err)
	require.NoError(t, st.SetBoundary(st.Begin(feature.ResourceProvince), b))
}

func loadedStore(t *testing.T) *feature.Store {
	st := feature.NewStore()
	loadFeatures(t, st)
	return st
}

func newTestSession(t *testing.T, st *feature.Store, width int, opts ...Option) (*Manager, string) {
	t.Helper()
	m := NewManager(st, Config{}, testutil.NewMockLogger(), opts...)
	state, err := m.Create(width)
	require.NoError(t, err)
	return m, state.ID
}

func apply(t *testing.T, m *Manager, id string, ev Event) State {
	t.Helper()
	st, err := m.Apply(id, ev)
	require.NoError(t, err)
	return st
}

func kinds(cmds []viewport.Command) []viewport.Kind {
	out := make([]viewport.Kind, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Kind)
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Creation and bootstrap
// ─────────────────────────────────────────────────────────────────────────────

func TestCreate_DesktopBootstrapsOnce(t *testing.T) {
	m := NewManager(loadedStore(t), Config{}, nil)
	st, err := m.Create(desktopWidth)
	require.NoError(t, err)

	assert.False(t, st.Layout.Compact)
	assert.True(t, st.SidebarOpen)
	assert.Equal(t, marker.LayerStandard, st.Layer)
	assert.Equal(t, panel.ModeHidden, st.Panel.Mode)
	assert.NotNil(t, st.Suggestions)
	require.Len(t, st.Commands, 1)

	fit := st.Commands[0]
	assert.Equal(t, viewport.KindFitBounds, fit.Kind)
	assert.Equal(t, viewport.ReasonBootstrap, fit.Reason)
	assert.False(t, fit.Animate)
	assert.Equal(t, viewport.DesktopPadding, fit.Padding)
	require.NotNil(t, fit.Bounds)
	assert.InDelta(t, 34.94, fit.Bounds[0][0], 1e-9)
	assert.InDelta(t, -3.53, fit.Bounds[0][1], 1e-9)
	assert.InDelta(t, 34.99, fit.Bounds[1][0], 1e-9)
	assert.InDelta(t, -3.38, fit.Bounds[1][1], 1e-9)
	assert.True(t, st.Viewport.Bootstrapped)

	again, err := m.State(st.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Commands)
}

func TestCreate_CompactStartsWithSidebarClosed(t *testing.T) {
	m := NewManager(loadedStore(t), Config{}, nil)
	st, err := m.Create(compactWidth)
	require.NoError(t, err)
	assert.True(t, st.Layout.Compact)
	assert.False(t, st.SidebarOpen)
	require.Len(t, st.Commands, 1)
	assert.Equal(t, viewport.CompactPadding, st.Commands[0].Padding)
}

func TestCreate_UnknownWidthIsDesktop(t *testing.T) {
	m := NewManager(loadedStore(t), Config{}, nil)
	st, err := m.Create(0)
	require.NoError(t, err)
	assert.False(t, st.Layout.Compact)
	assert.True(t, st.SidebarOpen)
}

func TestBootstrap_LateBoundaryOnlyAffectsReset(t *testing.T) {
	store := feature.NewStore()
	m, id := newTestSession(t, store, desktopWidth)

	st, err := m.State(id)
	require.NoError(t, err)
	assert.Empty(t, st.Commands, "no bounds yet")
	assert.False(t, st.Viewport.Bootstrapped)

	loadFeatures(t, store)
	st, err = m.State(id)
	require.NoError(t, err)
	require.Len(t, st.Commands, 1)
	assert.Equal(t, viewport.ReasonBootstrap, st.Commands[0].Reason)
	assert.InDelta(t, 34.94, st.Commands[0].Bounds[0][0], 1e-9)

	loadProvince(t, store)
	st, err = m.State(id)
	require.NoError(t, err)
	assert.Empty(t, st.Commands, "a late overlay never refits")

	st = apply(t, m, id, Event{Type: EventResetView})
	require.Len(t, st.Commands, 1)
	reset := st.Commands[0]
	assert.Equal(t, viewport.ReasonReset, reset.Reason)
	assert.True(t, reset.Animate)
	assert.Equal(t, 1.0, reset.DurationSec)
	assert.Equal(t, uint64(1), reset.ResetTrigger)
	assert.InDelta(t, 34.5, reset.Bounds[0][0], 1e-9)
	assert.InDelta(t, -4.0, reset.Bounds[0][1], 1e-9)
	assert.InDelta(t, 35.3, reset.Bounds[1][0], 1e-9)
}

func TestBootstrap_SkippedWhileSelectedFliesOnLoad(t *testing.T) {
	store := feature.NewStore()
	m, id := newTestSession(t, store, desktopWidth)

	st := apply(t, m, id, Event{Type: EventSelect, FeatureID: "3", Source: selection.SourceAPI})
	require.NotNil(t, st.Selection)
	assert.False(t, st.Selection.Resolved)
	require.NotNil(t, st.Detail)
	assert.False(t, st.Detail.Available)
	assert.Equal(t, panel.ModeDetail, st.Panel.Mode)

	loadFeatures(t, store)
	st, err := m.State(id)
	require.NoError(t, err)
	assert.True(t, st.Selection.Resolved)
	assert.Equal(t, "Beta Coop", st.Detail.Name)
	assert.False(t, st.Viewport.Bootstrapped)
	require.Equal(t, []viewport.Kind{viewport.KindFlyTo}, kinds(st.Commands), "pending selection flies once resolved")
	assert.Equal(t, "3", st.Commands[0].FeatureID)
	assert.InDelta(t, -3.41, st.Commands[0].Center[1], 1e-9)

	st, err = m.State(id)
	require.NoError(t, err)
	assert.Empty(t, st.Commands)
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

func TestSelect_FliesToFeatureAndShowsDetail(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)

	st := apply(t, m, id, Event{Type: EventSelect, FeatureID: "1", Source: selection.SourceMap})
	require.Len(t, st.Commands, 1)
	fly := st.Commands[0]
	assert.Equal(t, viewport.KindFlyTo, fly.Kind)
	assert.Equal(t, viewport.FlyToZoom, fly.Zoom)
	assert.Equal(t, "1", fly.FeatureID)
	assert.InDelta(t, 34.98-viewport.DesktopLatOffset, fly.Center[0], 1e-9)
	assert.InDelta(t, -3.39, fly.Center[1], 1e-9)

	assert.True(t, st.SidebarOpen, "desktop keeps the sidebar")
	assert.Equal(t, panel.ModeDetail, st.Panel.Mode)
	assert.False(t, st.Panel.Expanded)
	require.NotNil(t, st.Detail)
	assert.Equal(t, "Zahra Coop", st.Detail.Name)
	assert.Equal(t, GenreFemaleLabel, st.Detail.Genre)
	assert.Equal(t, DefaultProvince, st.Detail.Province)
	assert.Equal(t, 12.0, st.Detail.Members)
}

func TestSelect_CompactListPickClosesSidebar(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), compactWidth)

	st := apply(t, m, id, Event{Type: EventSetSidebar, Open: boolPtr(true)})
	assert.True(t, st.SidebarOpen)
	assert.Equal(t, []viewport.Kind{viewport.KindInvalidateSize}, kinds(st.Commands))

	st = apply(t, m, id, Event{Type: EventSelect, FeatureID: "1", Source: selection.SourceList})
	assert.False(t, st.SidebarOpen)
	assert.Equal(t, []viewport.Kind{viewport.KindFlyTo, viewport.KindInvalidateSize}, kinds(st.Commands))
	assert.InDelta(t, 34.98-viewport.CompactLatOffset, st.Commands[0].Center[0], 1e-9)
	assert.Equal(t, int64(300), st.Commands[1].DelayMS)
}

func TestSelect_SuggestionSourceKeepsSidebar(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), compactWidth)
	apply(t, m, id, Event{Type: EventSetSidebar, Open: boolPtr(true)})

	st := apply(t, m, id, Event{Type: EventSelect, FeatureID: "2", Source: selection.SourceAPI})
	assert.True(t, st.SidebarOpen)
}

func TestSelect_SameFeatureCollapsesWithoutFlying(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "2"})
	st := apply(t, m, id, Event{Type: EventToggleExpanded})
	assert.True(t, st.Panel.Expanded)

	st = apply(t, m, id, Event{Type: EventSelect, FeatureID: "2"})
	assert.False(t, st.Panel.Expanded)
	assert.Empty(t, st.Commands)
}

func TestSelect_UnknownIDIsUnresolved(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	st := apply(t, m, id, Event{Type: EventSelect, FeatureID: "missing"})

	require.NotNil(t, st.Selection)
	assert.Equal(t, "missing", st.Selection.ID)
	assert.False(t, st.Selection.Resolved)
	assert.False(t, st.Detail.Available)
	assert.Empty(t, st.Commands)
}

func TestClose_ClearsSelection(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1"})

	st := apply(t, m, id, Event{Type: EventClose})
	assert.Nil(t, st.Selection)
	assert.Nil(t, st.Detail)
	assert.Equal(t, panel.ModeHidden, st.Panel.Mode)
}

func TestResetView_ClearsSelection(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1"})

	st := apply(t, m, id, Event{Type: EventResetView})
	assert.Nil(t, st.Selection)
	assert.Equal(t, panel.ModeHidden, st.Panel.Mode)
	require.Len(t, st.Commands, 1)
	assert.Equal(t, viewport.ReasonReset, st.Commands[0].Reason)
	assert.True(t, st.Commands[0].Animate)
}

// ─────────────────────────────────────────────────────────────────────────────
// Panel
// ─────────────────────────────────────────────────────────────────────────────

func TestPanel_StickyOffset(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1"})

	apply(t, m, id, Event{Type: EventPointerDown, X: 100, Y: 100, Target: "div"})
	st := apply(t, m, id, Event{Type: EventPointerMove, X: 130, Y: 140})
	assert.True(t, st.Panel.Dragging)
	st = apply(t, m, id, Event{Type: EventPointerUp, X: 130, Y: 140})
	assert.False(t, st.Panel.Dragging)
	assert.False(t, st.Panel.Expanded, "a drag is not a click")
	assert.Equal(t, panel.Offset{X: 30, Y: 40}, st.Panel.Offset)

	st = apply(t, m, id, Event{Type: EventClose})
	assert.Equal(t, panel.ModeHidden, st.Panel.Mode)
	assert.Equal(t, panel.Offset{X: 30, Y: 40}, st.Panel.Offset)

	st = apply(t, m, id, Event{Type: EventSelect, FeatureID: "2"})
	assert.Equal(t, panel.ModeDetail, st.Panel.Mode)
	assert.False(t, st.Panel.Expanded)
	assert.Equal(t, panel.Offset{X: 30, Y: 40}, st.Panel.Offset)
}

func TestPanel_ClickTogglesExpanded(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1"})

	apply(t, m, id, Event{Type: EventPointerDown, X: 10, Y: 10, Target: "div"})
	st := apply(t, m, id, Event{Type: EventPointerUp, X: 11, Y: 11})
	assert.True(t, st.Panel.Expanded)
	assert.Equal(t, panel.Offset{}, st.Panel.Offset, "clicks do not move the panel")

	apply(t, m, id, Event{Type: EventPointerDown, X: 10, Y: 10, Target: "button"})
	st = apply(t, m, id, Event{Type: EventPointerUp, X: 10, Y: 10})
	assert.True(t, st.Panel.Expanded, "presses on controls are ignored")
}

func TestPanel_DragIgnoredOnCompact(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), compactWidth)
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1"})
	apply(t, m, id, Event{Type: EventPointerDown, X: 0, Y: 0, Target: "div"})
	st := apply(t, m, id, Event{Type: EventPointerUp, X: 50, Y: 50})
	assert.Equal(t, panel.Offset{}, st.Panel.Offset)
}

func TestPanel_SwipeDownClosesOnCompact(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), compactWidth)
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1", Source: selection.SourceAPI})

	apply(t, m, id, Event{Type: EventTouchStart, Y: 500})
	st := apply(t, m, id, Event{Type: EventTouchEnd, Y: 440})
	assert.True(t, st.Panel.Expanded)

	apply(t, m, id, Event{Type: EventTouchStart, Y: 440})
	st = apply(t, m, id, Event{Type: EventTouchEnd, Y: 500})
	assert.False(t, st.Panel.Expanded)

	apply(t, m, id, Event{Type: EventTouchStart, Y: 500})
	st = apply(t, m, id, Event{Type: EventTouchEnd, Y: 650})
	assert.Equal(t, panel.ModeHidden, st.Panel.Mode)
	assert.Nil(t, st.Selection)
}

func TestPanel_SearchFlow(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)

	st := apply(t, m, id, Event{Type: EventOpenSearch})
	assert.Equal(t, panel.ModeSearchOpen, st.Panel.Mode)

	st = apply(t, m, id, Event{Type: EventSetQuery, Query: "c"})
	assert.Empty(t, st.Suggestions, "one rune is too short")

	st = apply(t, m, id, Event{Type: EventSetQuery, Query: "coop"})
	require.Len(t, st.Suggestions, 3)
	assert.Equal(t, "2", st.Suggestions[0].ID, "ranked by name")
	assert.Equal(t, "Midar", st.Suggestions[0].Commune)

	st = apply(t, m, id, Event{Type: EventClickOutside})
	assert.Empty(t, st.Suggestions)
	assert.Equal(t, "coop", st.Panel.Query)

	st = apply(t, m, id, Event{Type: EventPickSuggestion, FeatureID: "2"})
	assert.Equal(t, panel.ModeDetail, st.Panel.Mode)
	assert.Empty(t, st.Panel.Query)
	assert.Equal(t, "2", st.Selection.ID)
	assert.Equal(t, []viewport.Kind{viewport.KindFlyTo}, kinds(st.Commands))
}

func TestPanel_InvalidTransitionsAreRejected(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)

	_, err := m.Apply(id, Event{Type: EventSetQuery, Query: "x"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition))

	_, err = m.Apply(id, Event{Type: EventToggleExpanded})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition))

	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1"})
	_, err = m.Apply(id, Event{Type: EventOpenSearch})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition))

	st, err := m.State(id)
	require.NoError(t, err)
	assert.Equal(t, panel.ModeDetail, st.Panel.Mode)
}

func TestPanel_PickUnknownSuggestion(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	apply(t, m, id, Event{Type: EventOpenSearch})

	_, err := m.Apply(id, Event{Type: EventPickSuggestion, FeatureID: "nope"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeFeatureNotFound))

	st, err := m.State(id)
	require.NoError(t, err)
	assert.Equal(t, panel.ModeSearchOpen, st.Panel.Mode)
}

// ─────────────────────────────────────────────────────────────────────────────
// Layout, layer, sidebar
// ─────────────────────────────────────────────────────────────────────────────

func TestResize_SwitchesCapability(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	st := apply(t, m, id, Event{Type: EventResize, ViewportWidth: 500})
	assert.True(t, st.Layout.Compact)
	assert.Equal(t, 500, st.Layout.Width)
	assert.True(t, st.SidebarOpen, "resizing does not move the sidebar")

	st = apply(t, m, id, Event{Type: EventResize})
	assert.True(t, st.Layout.Compact, "a missing width keeps the last capability")
}

func TestToggleSidebar_QueuesRedraw(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	st := apply(t, m, id, Event{Type: EventToggleSidebar})
	assert.False(t, st.SidebarOpen)
	require.Len(t, st.Commands, 1)
	assert.Equal(t, viewport.ReasonLayout, st.Commands[0].Reason)

	st = apply(t, m, id, Event{Type: EventSetSidebar, Open: boolPtr(false)})
	assert.Empty(t, st.Commands, "no change, no redraw")
}

func TestSetLayer(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	st := apply(t, m, id, Event{Type: EventSetLayer, Layer: "satellite"})
	assert.Equal(t, marker.LayerSatellite, st.Layer)
	assert.Equal(t, marker.LayerSatellite, st.Tiles.Layer)

	v, err := m.View(id)
	require.NoError(t, err)
	for _, mk := range v.Markers {
		assert.Equal(t, marker.ColorSatellite, mk.Color)
	}

	_, err = m.Apply(id, Event{Type: EventSetLayer, Layer: "terrain"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

// ─────────────────────────────────────────────────────────────────────────────
// View
// ─────────────────────────────────────────────────────────────────────────────

func TestView_Filters(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)

	v, err := m.View(id)
	require.NoError(t, err)
	assert.Equal(t, feature.DatasetReady, v.Dataset)
	assert.Equal(t, 4, v.Count)
	assert.Equal(t, "Alpha Coop", v.Items[0].Name)
	assert.Equal(t, "Écologie Verte", v.Items[2].Name)
	assert.Equal(t, []string{"Ben Taieb", "Driouch", "Midar"}, v.Options.Communes)

	apply(t, m, id, Event{Type: EventSetFilters, Filters: &filter.Predicates{Commune: "Ben Taieb"}})
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "3"})
	v, err = m.View(id)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Count)
	assert.Equal(t, "2 Coopératives affichées", v.CountLabel)
	assert.Equal(t, "Beta Coop", v.Items[0].Name)
	assert.True(t, v.Items[0].Selected)
	assert.Equal(t, "Zahra Coop", v.Items[1].Name)
	assert.Equal(t, feature.Stats{Total: 2, Sectors: 1, Communes: 1}, v.Stats)
	require.Len(t, v.Markers, 2)
	assert.Equal(t, marker.VariantSelected, v.Markers[0].Variant)
	assert.Len(t, v.Options.Communes, 3, "options ignore the filters")

	apply(t, m, id, Event{Type: EventSetFilters, Filters: &filter.Predicates{Commune: "Nowhere"}})
	v, err = m.View(id)
	require.NoError(t, err)
	assert.Zero(t, v.Count)
	assert.Equal(t, EmptyResultMessage, v.EmptyMessage)
	assert.NotNil(t, v.Items)

	apply(t, m, id, Event{Type: EventResetFilters})
	v, err = m.View(id)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Count)
	assert.True(t, v.Filters.IsZero())
}

func TestView_SelectedFeatureHiddenByFilterKeepsMarker(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	apply(t, m, id, Event{Type: EventSetFilters, Filters: &filter.Predicates{Commune: "Midar"}})
	apply(t, m, id, Event{Type: EventSelect, FeatureID: "1"})

	v, err := m.View(id)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Count)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Alpha Coop", v.Items[0].Name)
	assert.False(t, v.Items[0].Selected)

	require.Len(t, v.Markers, 2)
	assert.Equal(t, "2", v.Markers[0].FeatureID)
	assert.Equal(t, marker.VariantDefault, v.Markers[0].Variant)
	sel := v.Markers[1]
	assert.Equal(t, "1", sel.FeatureID)
	assert.Equal(t, marker.VariantSelected, sel.Variant)
	assert.Equal(t, marker.TooltipPermanent, sel.Tooltip)
	require.NotNil(t, sel.Position)
	assert.InDelta(t, 34.98, sel.Position[0], 1e-9)

	apply(t, m, id, Event{Type: EventClose})
	v, err = m.View(id)
	require.NoError(t, err)
	assert.Len(t, v.Markers, 1)
}

func TestView_EmptyStore(t *testing.T) {
	m, id := newTestSession(t, feature.NewStore(), desktopWidth)
	v, err := m.View(id)
	require.NoError(t, err)
	assert.Equal(t, feature.DatasetLoading, v.Dataset)
	assert.Zero(t, v.Count)
	assert.NotNil(t, v.Markers)
}

// ─────────────────────────────────────────────────────────────────────────────
// Insight
// ─────────────────────────────────────────────────────────────────────────────

type fakeGenerator struct {
	report insight.Report
	err    error
	got    []feature.Feature
	calls  int
}

func (f *fakeGenerator) Generate(_ context.Context, features []feature.Feature) (insight.Report, error) {
	f.calls++
	f.got = features
	rep := f.report
	rep.Count = len(features)
	return rep, f.err
}

func (f *fakeGenerator) Available() bool { return true }

func TestInsight_UsesFilteredSubset(t *testing.T) {
	gen := &fakeGenerator{report: insight.Report{Text: "Synthèse", Sampled: 2}}
	m, id := newTestSession(t, loadedStore(t), desktopWidth, WithInsight(gen))
	apply(t, m, id, Event{Type: EventSetFilters, Filters: &filter.Predicates{Commune: "Ben Taieb"}})

	is, err := m.GenerateInsight(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, insight.StateReady, is.State)
	assert.Equal(t, "Synthèse", is.Text)
	assert.Equal(t, 2, is.Count)
	assert.True(t, is.Available)
	assert.NotNil(t, is.GeneratedAt)
	assert.Len(t, gen.got, 2)

	st, err := m.State(id)
	require.NoError(t, err)
	assert.Equal(t, insight.StateReady, st.Insight.State)
}

func TestInsight_FailureIsReportedInState(t *testing.T) {
	gen := &fakeGenerator{
		report: insight.Report{Text: insight.MessageUnavailable},
		err:    apperrors.New(apperrors.ErrCodeAIInferenceFailed, "boom"),
	}
	m, id := newTestSession(t, loadedStore(t), desktopWidth, WithInsight(gen))

	is, err := m.GenerateInsight(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, insight.StateError, is.State)
	assert.Equal(t, string(apperrors.ErrCodeAIInferenceFailed), is.ErrorCode)
	assert.Equal(t, insight.MessageUnavailable, is.Text)

	gen.err = nil
	gen.report = insight.Report{Text: "ok"}
	is, err = m.GenerateInsight(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, insight.StateReady, is.State)
	assert.Empty(t, is.ErrorCode)
	assert.Equal(t, 2, gen.calls)
}

func TestInsight_NotConfigured(t *testing.T) {
	m, id := newTestSession(t, loadedStore(t), desktopWidth)
	st, err := m.State(id)
	require.NoError(t, err)
	assert.Equal(t, insight.StateIdle, st.Insight.State)
	assert.False(t, st.Insight.Available)

	is, err := m.GenerateInsight(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, insight.StateError, is.State)
	assert.Equal(t, string(apperrors.ErrCodeAIModelNotAvailable), is.ErrorCode)
	assert.Equal(t, insight.MessageUnavailable, is.Text)
}

func boolPtr(b bool) *bool { return &b }
