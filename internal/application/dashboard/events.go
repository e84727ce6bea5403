package dashboard

import (
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	"github.com/sigtopo/coop-driouch/internal/domain/selection"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// EventType names a user interaction.
type EventType string

const (
	EventSelect         EventType = "select"
	EventClose          EventType = "close"
	EventOpenSearch     EventType = "open_search"
	EventSetQuery       EventType = "set_query"
	EventPickSuggestion EventType = "pick_suggestion"
	EventToggleExpanded EventType = "toggle_expanded"
	EventClickOutside   EventType = "click_outside"
	EventPointerDown    EventType = "pointer_down"
	EventPointerMove    EventType = "pointer_move"
	EventPointerUp      EventType = "pointer_up"
	EventTouchStart     EventType = "touch_start"
	EventTouchEnd       EventType = "touch_end"
	EventSetFilters     EventType = "set_filters"
	EventResetFilters   EventType = "reset_filters"
	EventResetView      EventType = "reset_view"
	EventToggleSidebar  EventType = "toggle_sidebar"
	EventSetSidebar     EventType = "set_sidebar"
	EventSetLayer       EventType = "set_layer"
	EventResize         EventType = "resize"
)

var knownEvents = map[EventType]struct{}{
	EventSelect: {}, EventClose: {}, EventOpenSearch: {}, EventSetQuery: {},
	EventPickSuggestion: {}, EventToggleExpanded: {}, EventClickOutside: {},
	EventPointerDown: {}, EventPointerMove: {}, EventPointerUp: {},
	EventTouchStart: {}, EventTouchEnd: {},
	EventSetFilters: {}, EventResetFilters: {}, EventResetView: {},
	EventToggleSidebar: {}, EventSetSidebar: {}, EventSetLayer: {}, EventResize: {},
}

// Event is one interaction posted by the client.  Only the fields relevant to
// Type are read.
type Event struct {
	Type          EventType          `json:"type"`
	ViewportWidth int                `json:"viewport_width,omitempty"`
	FeatureID     string             `json:"feature_id,omitempty"`
	Source        selection.Source   `json:"source,omitempty"`
	Query         string             `json:"query,omitempty"`
	Filters       *filter.Predicates `json:"filters,omitempty"`
	X             float64            `json:"x,omitempty"`
	Y             float64            `json:"y,omitempty"`
	Target        string             `json:"target,omitempty"`
	Open          *bool              `json:"open,omitempty"`
	Layer         string             `json:"layer,omitempty"`
}

// Validate checks the event type and the fields it requires.
func (e Event) Validate() error {
	if _, ok := knownEvents[e.Type]; !ok {
		return apperrors.New(apperrors.ErrCodeUnknownEvent, "unknown event type").
			WithDetail("type=" + string(e.Type))
	}
	switch e.Type {
	case EventSelect, EventPickSuggestion:
		if e.FeatureID == "" {
			return apperrors.InvalidParam("feature_id is required").WithDetail("type=" + string(e.Type))
		}
		switch e.Source {
		case "", selection.SourceList, selection.SourceMap, selection.SourceSuggestion, selection.SourceAPI:
		default:
			return apperrors.InvalidParam("unknown selection source").WithDetail("source=" + string(e.Source))
		}
	case EventSetFilters:
		if e.Filters == nil {
			return apperrors.InvalidParam("filters are required")
		}
	case EventSetSidebar:
		if e.Open == nil {
			return apperrors.InvalidParam("open is required")
		}
	case EventSetLayer:
		if e.Layer == "" {
			return apperrors.InvalidParam("layer is required")
		}
	}
	return nil
}
