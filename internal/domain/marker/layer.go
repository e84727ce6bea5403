package marker

// Layer is the base map.
type Layer string

const (
	LayerStandard  Layer = "standard"
	LayerSatellite Layer = "satellite"
)

// Marker colours.
const (
	ColorSelected  = "#f97316"
	ColorStandard  = "#16a34a"
	ColorSatellite = "#4ade80"

	BorderSelected  = "border-orange-500"
	BorderStandard  = "border-green-600"
	BorderSatellite = "border-green-400"
)

// Tiles describes the tile source of a layer.
type Tiles struct {
	Layer       Layer  `json:"layer"`
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

var tiles = map[Layer]Tiles{
	LayerStandard: {
		Layer:       LayerStandard,
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenStreetMap",
	},
	LayerSatellite: {
		Layer:       LayerSatellite,
		URL:         "https://mt1.google.com/vt/lyrs=y&x={x}&y={y}&z={z}",
		Attribution: "&copy; Google Maps",
	},
}

// ParseLayer accepts "standard" or "satellite".
func ParseLayer(s string) (Layer, bool) {
	l := Layer(s)
	_, ok := tiles[l]
	return l, ok
}

// TilesFor returns the tile source of l, standard for unknown layers.
func TilesFor(l Layer) Tiles {
	if t, ok := tiles[l]; ok {
		return t
	}
	return tiles[LayerStandard]
}

// Style sets the layer-dependent colours.  Selected markers are orange on
// every layer.
func Style(m Marker, l Layer) Marker {
	switch {
	case m.Variant == VariantSelected:
		m.Color, m.Border = ColorSelected, BorderSelected
	case l == LayerSatellite:
		m.Color, m.Border = ColorSatellite, BorderSatellite
	default:
		m.Color, m.Border = ColorStandard, BorderStandard
	}
	return m
}
