// Package layout derives the device capability flag once per interaction.
package layout

// DefaultBreakpoint is the viewport width, in CSS pixels, below which the
// layout is compact.
const DefaultBreakpoint = 768

// Capability is the device signal threaded into every component that branches
// on screen size.
type Capability struct {
	Compact bool `json:"compact"`
	Width   int  `json:"width"`
}

// Detector turns a reported viewport width into a Capability.
type Detector struct {
	Breakpoint int
}

// NewDetector returns a Detector; a non-positive breakpoint means
// DefaultBreakpoint.
func NewDetector(breakpoint int) Detector {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	return Detector{Breakpoint: breakpoint}
}

// Detect classifies width.  An unknown width (≤ 0) is treated as desktop.
func (d Detector) Detect(width int) Capability {
	bp := d.Breakpoint
	if bp <= 0 {
		bp = DefaultBreakpoint
	}
	return Capability{Compact: width > 0 && width < bp, Width: width}
}
