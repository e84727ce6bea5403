package marker_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/marker"
)

func coop(id, name string) feature.Feature {
	return feature.Feature{
		ID:         id,
		Geometry:   orb.Point{-3.4, 35.0},
		Properties: geojson.Properties{"Nom de coopérative": name},
	}
}

func TestPresent(t *testing.T) {
	t.Parallel()
	m := marker.Present(coop("a", "Alpha"), false)
	assert.Equal(t, marker.VariantDefault, m.Variant)
	assert.Zero(t, m.ZBoost)
	assert.Equal(t, marker.TooltipHover, m.Tooltip)
	assert.Equal(t, "Alpha", m.Label)
	require.NotNil(t, m.Position)
	assert.Equal(t, [2]float64{35.0, -3.4}, *m.Position)

	s := marker.Present(coop("a", "Alpha"), true)
	assert.Equal(t, marker.VariantSelected, s.Variant)
	assert.Equal(t, marker.SelectedZBoost, s.ZBoost)
	assert.Equal(t, marker.TooltipPermanent, s.Tooltip)
}

func TestPresent_FallbackLabel(t *testing.T) {
	t.Parallel()
	m := marker.Present(feature.Feature{ID: "x"}, false)
	assert.Equal(t, marker.DefaultLabel, m.Label)
	assert.Nil(t, m.Position)
}

func TestStyle(t *testing.T) {
	t.Parallel()
	def := marker.Present(coop("a", "A"), false)
	sel := marker.Present(coop("a", "A"), true)

	assert.Equal(t, marker.ColorStandard, marker.Style(def, marker.LayerStandard).Color)
	assert.Equal(t, marker.ColorSatellite, marker.Style(def, marker.LayerSatellite).Color)
	assert.Equal(t, marker.ColorSelected, marker.Style(sel, marker.LayerSatellite).Color)
}

func TestPresentAll(t *testing.T) {
	t.Parallel()
	ms := marker.PresentAll([]feature.Feature{coop("a", "A"), coop("b", "B")}, "b", marker.LayerStandard)
	require.Len(t, ms, 2)
	assert.Equal(t, marker.VariantDefault, ms[0].Variant)
	assert.Equal(t, marker.VariantSelected, ms[1].Variant)

	none := marker.PresentAll([]feature.Feature{{ID: ""}}, "", marker.LayerStandard)
	assert.Equal(t, marker.VariantDefault, none[0].Variant)
}

func TestLayers(t *testing.T) {
	t.Parallel()
	l, ok := marker.ParseLayer("satellite")
	assert.True(t, ok)
	assert.Equal(t, marker.LayerSatellite, l)
	_, ok = marker.ParseLayer("terrain")
	assert.False(t, ok)

	assert.Contains(t, marker.TilesFor(marker.LayerSatellite).URL, "lyrs=y")
	assert.Equal(t, marker.LayerStandard, marker.TilesFor("bogus").Layer)
}
