// Package selection owns the single selected cooperative shared by the list,
// the markers and the overlay panel.
package selection

import "github.com/sigtopo/coop-driouch/internal/domain/feature"

// Source tells where a selection came from.  Compact layouts hide the
// sidebar for list and map picks.
type Source string

const (
	SourceList       Source = "list"
	SourceMap        Source = "map"
	SourceSuggestion Source = "suggestion"
	SourceAPI        Source = "api"
)

// HidesSidebar reports whether a pick from s should close the sidebar on a
// compact layout.
func (s Source) HidesSidebar() bool {
	return s == SourceList || s == SourceMap
}

// Current is the selection value: an identifier and, when the identifier
// resolved against the collection, the feature itself.
type Current struct {
	ID      string
	Feature *feature.Feature
}

// Resolved reports whether the selection points at a known feature.
func (c Current) Resolved() bool { return c.Feature != nil }

// Listener observes selection changes.  prev or next may be nil.
type Listener func(prev, next *Current)

// Controller holds at most one selection.  It is not safe for concurrent use;
// the owning session serialises access.
type Controller struct {
	cur       *Current
	listeners []Listener
}

// NewController returns an empty controller.
func NewController() *Controller {
	return &Controller{}
}

// OnChange registers l.  Listeners run synchronously in registration order.
func (c *Controller) OnChange(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Select selects f.  It reports whether the selection changed.
func (c *Controller) Select(f *feature.Feature) bool {
	if f == nil {
		return c.Clear()
	}
	cp := *f
	return c.set(&Current{ID: f.ID, Feature: &cp})
}

// SelectID selects id.  f is the resolved feature, or nil when id is not in
// the collection; an unresolved selection is kept as-is.
func (c *Controller) SelectID(id string, f *feature.Feature) bool {
	if id == "" {
		return c.Clear()
	}
	next := &Current{ID: id}
	if f != nil {
		cp := *f
		next.Feature = &cp
	}
	return c.set(next)
}

// Clear drops the selection.
func (c *Controller) Clear() bool {
	return c.set(nil)
}

// Current returns the selection, false when nothing is selected.
func (c *Controller) Current() (*Current, bool) {
	if c.cur == nil {
		return nil, false
	}
	cp := *c.cur
	return &cp, true
}

// ID returns the selected identifier, "" when none.
func (c *Controller) ID() string {
	if c.cur == nil {
		return ""
	}
	return c.cur.ID
}

// Resync re-resolves the selection against a new collection without firing
// listeners.  A selection whose feature disappeared becomes unresolved.
func (c *Controller) Resync(col *feature.Collection) {
	if c.cur == nil {
		return
	}
	f, ok := col.Find(c.cur.ID)
	if !ok {
		c.cur = &Current{ID: c.cur.ID}
		return
	}
	c.cur = &Current{ID: c.cur.ID, Feature: f}
}

func (c *Controller) set(next *Current) bool {
	prev := c.cur
	if prev == nil && next == nil {
		return false
	}
	if prev != nil && next != nil && prev.ID == next.ID && prev.Resolved() == next.Resolved() {
		c.cur = next
		return false
	}
	c.cur = next
	for _, l := range c.listeners {
		l(prev, next)
	}
	return true
}
