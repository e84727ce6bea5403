package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Event types accepted by SessionsClient.Send.
const (
	EventSelect         = "select"
	EventClose          = "close"
	EventOpenSearch     = "open_search"
	EventSetQuery       = "set_query"
	EventPickSuggestion = "pick_suggestion"
	EventToggleExpanded = "toggle_expanded"
	EventClickOutside   = "click_outside"
	EventSetFilters     = "set_filters"
	EventResetFilters   = "reset_filters"
	EventResetView      = "reset_view"
	EventToggleSidebar  = "toggle_sidebar"
	EventSetSidebar     = "set_sidebar"
	EventSetLayer       = "set_layer"
	EventResize         = "resize"
)

// Filters is the active filter set of a session.
type Filters struct {
	Query     string `json:"query"`
	Commune   string `json:"commune"`
	Genre     string `json:"genre"`
	Sector    string `json:"sector"`
	Education string `json:"education"`
}

// Event is one user interaction.
type Event struct {
	Type          string   `json:"type"`
	ViewportWidth int      `json:"viewport_width,omitempty"`
	FeatureID     string   `json:"feature_id,omitempty"`
	Source        string   `json:"source,omitempty"`
	Query         string   `json:"query,omitempty"`
	Filters       *Filters `json:"filters,omitempty"`
	X             float64  `json:"x,omitempty"`
	Y             float64  `json:"y,omitempty"`
	Target        string   `json:"target,omitempty"`
	Open          *bool    `json:"open,omitempty"`
	Layer         string   `json:"layer,omitempty"`
}

// Insight is the AI summary state of a session.
type Insight struct {
	State       string     `json:"state"`
	Text        string     `json:"text,omitempty"`
	Count       int        `json:"count,omitempty"`
	Sampled     int        `json:"sampled,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty"`
	Available   bool       `json:"available"`
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Commune string `json:"commune,omitempty"`
}

// Session is the state document of a dashboard session.  Fields the SDK does
// not model are ignored.
type Session struct {
	ID     string `json:"id"`
	Layout struct {
		Compact bool `json:"compact"`
		Width   int  `json:"width"`
	} `json:"layout"`
	SidebarOpen bool    `json:"sidebar_open"`
	Layer       string  `json:"layer"`
	Filters     Filters `json:"filters"`
	Selection   *struct {
		ID       string `json:"id"`
		Resolved bool   `json:"resolved"`
	} `json:"selection,omitempty"`
	Panel struct {
		Mode     string `json:"mode"`
		Expanded bool   `json:"expanded"`
		Query    string `json:"query"`
	} `json:"panel"`
	Suggestions []Suggestion `json:"suggestions"`
	Insight     Insight      `json:"insight"`
	DataVersion uint64       `json:"data_version"`
}

// ListItem is one row of the visible list.
type ListItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Manager  string `json:"manager,omitempty"`
	Commune  string `json:"commune,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Members  int    `json:"members"`
	Selected bool   `json:"selected"`
}

// View is the filtered list and statistics of a session.
type View struct {
	Dataset      string     `json:"dataset"`
	Version      uint64     `json:"version"`
	Filters      Filters    `json:"filters"`
	Items        []ListItem `json:"items"`
	Count        int        `json:"count"`
	CountLabel   string     `json:"count_label"`
	EmptyMessage string     `json:"empty_message,omitempty"`
	Stats        struct {
		Total    int `json:"total"`
		Sectors  int `json:"sectors"`
		Communes int `json:"communes"`
	} `json:"stats"`
	Options OptionSets `json:"options"`
}

// SessionsClient drives dashboard sessions.
type SessionsClient struct {
	client *Client
}

func sessionPath(id string, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(id) + suffix
}

// Create opens a session for a viewport of the given width.
func (s *SessionsClient) Create(ctx context.Context, viewportWidth int) (*Session, error) {
	var out Session
	body := map[string]int{"viewport_width": viewportWidth}
	if err := s.client.post(ctx, "/api/v1/sessions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the current state of a session.
func (s *SessionsClient) Get(ctx context.Context, id string) (*Session, error) {
	var out Session
	if err := s.client.get(ctx, sessionPath(id, ""), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Send applies an event and returns the resulting state.  Events are not
// idempotent, so Send never retries.
func (s *SessionsClient) Send(ctx context.Context, id string, ev Event) (*Session, error) {
	var out Session
	if err := s.client.request(ctx, http.MethodPost, sessionPath(id, "/events"), ev, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// View returns the filtered list of a session.
func (s *SessionsClient) View(ctx context.Context, id string) (*View, error) {
	var out View
	if err := s.client.get(ctx, sessionPath(id, "/view"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Insight generates the AI summary of the session's visible subset.
func (s *SessionsClient) Insight(ctx context.Context, id string) (*Insight, error) {
	var out Insight
	if err := s.client.request(ctx, http.MethodPost, sessionPath(id, "/insight"), nil, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete closes a session.
func (s *SessionsClient) Delete(ctx context.Context, id string) error {
	return s.client.delete(ctx, sessionPath(id, ""))
}
