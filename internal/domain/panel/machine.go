// Package panel is the floating overlay state machine: visibility, the
// collapsed/expanded sub-state, the sticky drag offset and the embedded search.
package panel

import (
	"strings"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// Mode is the panel visibility state.
type Mode string

const (
	ModeHidden     Mode = "hidden"
	ModeSearchOpen Mode = "search_open"
	ModeDetail     Mode = "detail"
)

// Offset is the drag displacement in screen pixels.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is a copy of the machine state.  Expanded is only meaningful in
// ModeDetail.
type State struct {
	Mode               Mode   `json:"mode"`
	Expanded           bool   `json:"expanded"`
	Offset             Offset `json:"offset"`
	Query              string `json:"query"`
	Dragging           bool   `json:"dragging"`
	SuggestionsVisible bool   `json:"suggestions_visible"`
}

// Machine owns the panel state.  It is not safe for concurrent use.
type Machine struct {
	st    State
	drag  dragTracker
	swipe swipeTracker
}

// NewMachine returns a hidden panel at offset zero.
func NewMachine() *Machine {
	return &Machine{st: State{Mode: ModeHidden}}
}

// State returns a copy of the current state.
func (m *Machine) State() State { return m.st }

func invalid(op string, mode Mode) error {
	return apperrors.InvalidState("panel: " + op + " not allowed").WithDetail("mode=" + string(mode))
}

// OpenSearch shows the search box.  Only a hidden panel can open it; opening
// an already open search is a no-op.
func (m *Machine) OpenSearch() error {
	switch m.st.Mode {
	case ModeHidden:
		m.st.Mode = ModeSearchOpen
		m.st.Query = ""
		m.st.SuggestionsVisible = true
		return nil
	case ModeSearchOpen:
		return nil
	default:
		return invalid("open_search", m.st.Mode)
	}
}

// SetQuery updates the search text and shows the suggestion list again.
func (m *Machine) SetQuery(q string) error {
	if m.st.Mode != ModeSearchOpen {
		return invalid("set_query", m.st.Mode)
	}
	m.st.Query = q
	m.st.SuggestionsVisible = true
	return nil
}

// PickSuggestion moves from search to a collapsed detail and clears the
// query.  The caller selects the picked feature.
func (m *Machine) PickSuggestion() error {
	if m.st.Mode != ModeSearchOpen {
		return invalid("pick_suggestion", m.st.Mode)
	}
	m.showDetail()
	return nil
}

// SelectionChanged reacts to the selection controller.  A new selection
// always lands in a collapsed detail and closes the search; losing the
// selection hides the panel.  The offset is never touched.
func (m *Machine) SelectionChanged(has bool) {
	if has {
		m.showDetail()
		return
	}
	if m.st.Mode == ModeDetail {
		m.hide()
	}
}

func (m *Machine) showDetail() {
	m.st.Mode = ModeDetail
	m.st.Expanded = false
	m.st.Query = ""
	m.st.SuggestionsVisible = false
}

func (m *Machine) hide() {
	m.st.Mode = ModeHidden
	m.st.Expanded = false
	m.st.Query = ""
	m.st.SuggestionsVisible = false
}

// Close hides the panel and clears the query and expansion.  The drag offset
// is kept.
func (m *Machine) Close() {
	m.hide()
	m.drag.reset()
	m.swipe.reset()
	m.st.Dragging = false
}

// ToggleExpanded flips the detail between collapsed and expanded.
func (m *Machine) ToggleExpanded() error {
	if m.st.Mode != ModeDetail {
		return invalid("toggle_expanded", m.st.Mode)
	}
	m.st.Expanded = !m.st.Expanded
	return nil
}

// ClickOutside dismisses the suggestion list but keeps the typed query.
func (m *Machine) ClickOutside() {
	m.st.SuggestionsVisible = false
}

// Suggestions returns the autocomplete list for the current query.  It
// searches all features, ignoring categorical filters.
func (m *Machine) Suggestions(features []feature.Feature) []feature.Feature {
	if m.st.Mode != ModeSearchOpen || !m.st.SuggestionsVisible {
		return []feature.Feature{}
	}
	if len([]rune(strings.TrimSpace(m.st.Query))) < filter.MinSuggestionRunes {
		return []feature.Feature{}
	}
	return filter.Suggest(features, m.st.Query)
}
