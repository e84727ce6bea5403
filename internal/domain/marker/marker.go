// Package marker maps a feature and its selection flag to a marker descriptor.
package marker

import (
	"strings"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
)

// Variant is the visual variant of a marker.
type Variant string

const (
	VariantDefault  Variant = "default"
	VariantSelected Variant = "selected"
)

// TooltipPolicy says when the label is shown.
type TooltipPolicy string

const (
	TooltipHover     TooltipPolicy = "hover"
	TooltipPermanent TooltipPolicy = "permanent"
)

// SelectedZBoost lifts the selected marker above its neighbours.
const SelectedZBoost = 1000

// DefaultLabel is used for features without a name.
const DefaultLabel = "Coop"

// Marker describes how one feature is drawn.
type Marker struct {
	FeatureID string        `json:"feature_id"`
	Position  *[2]float64   `json:"position,omitempty"` // [lat, lon]
	Variant   Variant       `json:"variant"`
	ZBoost    int           `json:"z_boost"`
	Tooltip   TooltipPolicy `json:"tooltip"`
	Label     string        `json:"label"`
	Color     string        `json:"color,omitempty"`
	Border    string        `json:"border,omitempty"`
	Scale     float64       `json:"scale,omitempty"`
}

// Present builds the descriptor of f.
func Present(f feature.Feature, selected bool) Marker {
	label := strings.TrimSpace(f.Name())
	if label == "" {
		label = DefaultLabel
	}
	m := Marker{
		FeatureID: f.ID,
		Variant:   VariantDefault,
		Tooltip:   TooltipHover,
		Label:     label,
		Scale:     1,
	}
	if p, ok := f.Point(); ok {
		m.Position = &[2]float64{p.Lat(), p.Lon()}
	}
	if selected {
		m.Variant = VariantSelected
		m.ZBoost = SelectedZBoost
		m.Tooltip = TooltipPermanent
		m.Scale = 1.25
	}
	return m
}

// PresentAll builds descriptors for features; selectedID may be empty.
func PresentAll(features []feature.Feature, selectedID string, layer Layer) []Marker {
	out := make([]Marker, 0, len(features))
	for _, f := range features {
		out = append(out, Style(Present(f, selectedID != "" && f.ID == selectedID), layer))
	}
	return out
}
