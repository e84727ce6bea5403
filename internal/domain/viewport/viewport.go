// Package viewport decides camera moves.  The controller never touches a map;
// it emits Commands that the client executes.
package viewport

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
)

// Camera constants.
const (
	FlyToZoom          = 16
	FlyToDuration      = 1200 * time.Millisecond
	FlyToEaseLinearity = 0.25

	CompactLatOffset = 0.0035
	DesktopLatOffset = 0.0012

	CompactPadding = 20
	DesktopPadding = 50

	ResetDuration      = 1000 * time.Millisecond
	InvalidateSizeWait = 300 * time.Millisecond
)

// Kind names a camera command.
type Kind string

const (
	KindFitBounds      Kind = "fit_bounds"
	KindFlyTo          Kind = "fly_to"
	KindInvalidateSize Kind = "invalidate_size"
)

// Reason explains why a command was issued.
type Reason string

const (
	ReasonBootstrap Reason = "bootstrap"
	ReasonReset     Reason = "reset"
	ReasonSelection Reason = "selection"
	ReasonLayout    Reason = "layout"
)

// LatLng is a [lat, lon] pair, the order map clients expect.
type LatLng [2]float64

// LatLngBounds is [[south, west], [north, east]].
type LatLngBounds [2]LatLng

// FromBound converts an orb bound (lon/lat) to LatLngBounds.
func FromBound(b orb.Bound) LatLngBounds {
	return LatLngBounds{
		{b.Min.Lat(), b.Min.Lon()},
		{b.Max.Lat(), b.Max.Lon()},
	}
}

// Command is a fire-and-forget camera instruction.
type Command struct {
	Kind          Kind          `json:"kind"`
	Reason        Reason        `json:"reason"`
	Bounds        *LatLngBounds `json:"bounds,omitempty"`
	Center        *LatLng       `json:"center,omitempty"`
	Zoom          int           `json:"zoom,omitempty"`
	Padding       int           `json:"padding,omitempty"`
	Animate       bool          `json:"animate"`
	DurationSec   float64       `json:"duration"`
	EaseLinearity float64       `json:"ease_linearity,omitempty"`
	DelayMS       int64         `json:"delay_ms,omitempty"`
	ResetTrigger  uint64        `json:"reset_trigger,omitempty"`
	FeatureID     string        `json:"feature_id,omitempty"`
}

// State is the externally visible controller state.
type State struct {
	Bootstrapped bool   `json:"bootstrapped"`
	ResetTrigger uint64 `json:"reset_trigger"`
}

// Controller tracks whether the one-time bootstrap fit has happened, the
// explicit reset counter and the last known bounds.
type Controller struct {
	bootstrapped bool
	resetTrigger uint64
	province     *orb.Bound
	features     *orb.Bound
}

// NewController returns a controller that has not fitted yet.
func NewController() *Controller {
	return &Controller{}
}

// State reports the controller flags.
func (c *Controller) State() State {
	return State{Bootstrapped: c.bootstrapped, ResetTrigger: c.resetTrigger}
}

// UpdateBounds stores the extents used by the next fit.  It never emits a
// command: overlays arriving after the first fit only affect later resets.
func (c *Controller) UpdateBounds(province, features *orb.Bound) {
	c.province = cloneBound(province)
	c.features = cloneBound(features)
}

func cloneBound(b *orb.Bound) *orb.Bound {
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}

// target prefers the province overlay, then the feature extent.
func (c *Controller) target() *orb.Bound {
	if c.province != nil {
		return c.province
	}
	return c.features
}

func padding(compact bool) int {
	if compact {
		return CompactPadding
	}
	return DesktopPadding
}

// Bootstrap emits the instant initial fit.  It fires at most once per
// controller, and only when nothing is selected and some bounds are known.
func (c *Controller) Bootstrap(hasSelection, compact bool) (Command, bool) {
	if c.bootstrapped || hasSelection {
		return Command{}, false
	}
	b := c.target()
	if b == nil {
		return Command{}, false
	}
	c.bootstrapped = true
	lb := FromBound(*b)
	return Command{
		Kind:    KindFitBounds,
		Reason:  ReasonBootstrap,
		Bounds:  &lb,
		Padding: padding(compact),
		Animate: false,
	}, true
}

// Reset is the explicit "home" action.  It always bumps the reset counter and
// animates, except when it happens to be the very first fit.
func (c *Controller) Reset(compact bool) (Command, bool) {
	c.resetTrigger++
	b := c.target()
	if b == nil {
		return Command{}, false
	}
	first := !c.bootstrapped
	c.bootstrapped = true
	lb := FromBound(*b)
	cmd := Command{
		Kind:         KindFitBounds,
		Reason:       ReasonReset,
		Bounds:       &lb,
		Padding:      padding(compact),
		Animate:      !first,
		ResetTrigger: c.resetTrigger,
	}
	if !first {
		cmd.DurationSec = ResetDuration.Seconds()
	}
	return cmd, true
}

// FlyTo centres the camera on a point feature, shifted south so the feature
// stays above a bottom-docked panel.  Other geometries do not move the camera.
func (c *Controller) FlyTo(f feature.Feature, compact bool) (Command, bool) {
	p, ok := f.Point()
	if !ok {
		return Command{}, false
	}
	offset := DesktopLatOffset
	if compact {
		offset = CompactLatOffset
	}
	center := LatLng{p.Lat() - offset, p.Lon()}
	return Command{
		Kind:          KindFlyTo,
		Reason:        ReasonSelection,
		Center:        &center,
		Zoom:          FlyToZoom,
		Animate:       true,
		DurationSec:   FlyToDuration.Seconds(),
		EaseLinearity: FlyToEaseLinearity,
		FeatureID:     f.ID,
	}, true
}

// LayoutChanged asks the client to recompute the map size once the sidebar
// transition has finished.
func (c *Controller) LayoutChanged() Command {
	return Command{
		Kind:    KindInvalidateSize,
		Reason:  ReasonLayout,
		DelayMS: InvalidateSizeWait.Milliseconds(),
	}
}
