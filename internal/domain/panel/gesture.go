package panel

import (
	"math"
	"strings"
)

// Gesture thresholds in pixels.
const (
	DragThreshold       = 4.0
	SwipeThreshold      = 50.0
	SwipeCloseThreshold = 120.0
)

// Outcome is the result of a completed pointer or touch gesture.
type Outcome string

const (
	OutcomeNone     Outcome = "none"
	OutcomeClick    Outcome = "click"
	OutcomeDrag     Outcome = "drag"
	OutcomeExpand   Outcome = "expand"
	OutcomeCollapse Outcome = "collapse"
	OutcomeClose    Outcome = "close"
)

var interactiveTargets = map[string]struct{}{
	"button":   {},
	"input":    {},
	"select":   {},
	"textarea": {},
	"a":        {},
}

// IsInteractive reports whether a press on target must not start a drag.
func IsInteractive(target string) bool {
	_, ok := interactiveTargets[strings.ToLower(strings.TrimSpace(target))]
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Drag: idle → pressed → dragging | clicked
// ─────────────────────────────────────────────────────────────────────────────

type dragPhase int

const (
	dragIdle dragPhase = iota
	dragPressed
	dragActive
)

type dragTracker struct {
	phase  dragPhase
	startX float64
	startY float64
	base   Offset
}

func (d *dragTracker) reset() { *d = dragTracker{} }

// PointerDown starts a potential drag.  Compact layouts and presses on
// interactive controls are ignored; the return value reports whether the
// press was captured.
func (m *Machine) PointerDown(x, y float64, target string, compact bool) bool {
	if compact || IsInteractive(target) {
		return false
	}
	m.drag = dragTracker{phase: dragPressed, startX: x, startY: y, base: m.st.Offset}
	return true
}

// PointerMove updates the offset once the pointer has travelled past
// DragThreshold.  The offset always equals the base plus the total movement.
func (m *Machine) PointerMove(x, y float64) {
	d := &m.drag
	if d.phase == dragIdle {
		return
	}
	dx, dy := x-d.startX, y-d.startY
	if d.phase == dragPressed {
		if math.Hypot(dx, dy) < DragThreshold {
			return
		}
		d.phase = dragActive
		m.st.Dragging = true
	}
	m.st.Offset = Offset{X: d.base.X + dx, Y: d.base.Y + dy}
}

// PointerUp ends the gesture.  A press that never crossed the threshold is a
// click; the offset stays where the drag left it.
func (m *Machine) PointerUp(x, y float64) Outcome {
	if m.drag.phase == dragIdle {
		return OutcomeNone
	}
	m.PointerMove(x, y)
	switch m.drag.phase {
	case dragActive:
		m.drag.reset()
		m.st.Dragging = false
		return OutcomeDrag
	default:
		m.drag.reset()
		return OutcomeClick
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Swipe (compact only)
// ─────────────────────────────────────────────────────────────────────────────

type swipeTracker struct {
	active bool
	startY float64
}

func (s *swipeTracker) reset() { *s = swipeTracker{} }

// TouchStart records the start of a vertical swipe on the handle.
func (m *Machine) TouchStart(y float64, compact bool) bool {
	if !compact || m.st.Mode == ModeHidden {
		return false
	}
	m.swipe = swipeTracker{active: true, startY: y}
	return true
}

// TouchEnd resolves the swipe.  Upward past SwipeThreshold expands; downward
// past it collapses an expanded detail; downward past SwipeCloseThreshold
// closes a collapsed panel.
func (m *Machine) TouchEnd(y float64) Outcome {
	if !m.swipe.active {
		return OutcomeNone
	}
	dy := y - m.swipe.startY
	m.swipe.reset()

	switch {
	case dy <= -SwipeThreshold:
		if m.st.Mode == ModeDetail && !m.st.Expanded {
			m.st.Expanded = true
			return OutcomeExpand
		}
	case m.st.Expanded && dy >= SwipeThreshold:
		m.st.Expanded = false
		return OutcomeCollapse
	case !m.st.Expanded && dy >= SwipeCloseThreshold:
		m.Close()
		return OutcomeClose
	}
	return OutcomeNone
}
