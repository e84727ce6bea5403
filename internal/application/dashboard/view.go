package dashboard

import (
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	"github.com/sigtopo/coop-driouch/internal/domain/marker"
)

// EmptyResultMessage replaces the list when nothing matches.
const EmptyResultMessage = "Aucun résultat trouvé"

// ListItem is one row of the sidebar list.
type ListItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Manager  string `json:"manager,omitempty"`
	Commune  string `json:"commune,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Members  int    `json:"members"`
	Selected bool   `json:"selected"`
}

// View is the filtered projection of the dataset for one session.
type View struct {
	Dataset      feature.DatasetState `json:"dataset"`
	Version      uint64               `json:"version"`
	Filters      filter.Predicates    `json:"filters"`
	Items        []ListItem           `json:"items"`
	Count        int                  `json:"count"`
	CountLabel   string               `json:"count_label"`
	EmptyMessage string               `json:"empty_message,omitempty"`
	Markers      []marker.Marker      `json:"markers"`
	Stats        feature.Stats        `json:"stats"`
	Options      filter.OptionSets    `json:"options"`
	Tiles        marker.Tiles         `json:"tiles"`
}

func buildView(snap *feature.Snapshot, state feature.DatasetState, cache *filter.OptionCache, p filter.Predicates, selectedID string, layer marker.Layer) View {
	visible := filter.FilterAndSort(snap.FeatureList(), p)
	v := View{
		Dataset:    state,
		Version:    snap.Version,
		Filters:    p,
		Items:      make([]ListItem, 0, len(visible)),
		Count:      len(visible),
		CountLabel: CountLabel(len(visible)),
		Markers:    marker.PresentAll(visible, selectedID, layer),
		Stats:      feature.ComputeStats(visible),
		Tiles:      marker.TilesFor(layer),
	}
	if cache != nil {
		v.Options = cache.Get(snap)
	} else {
		v.Options = filter.Options(snap.FeatureList())
	}
	if m, ok := hiddenSelection(snap, visible, selectedID); ok {
		v.Markers = append(v.Markers, marker.Style(m, layer))
	}
	if len(visible) == 0 {
		v.EmptyMessage = EmptyResultMessage
	}
	for _, f := range visible {
		v.Items = append(v.Items, ListItem{
			ID:       f.ID,
			Name:     f.TextOr(feature.FieldName, DefaultName),
			Manager:  f.Text(feature.FieldManager),
			Commune:  f.Text(feature.FieldCommune),
			Sector:   f.Text(feature.FieldSector),
			Members:  f.Int(feature.FieldMembers),
			Selected: selectedID != "" && f.ID == selectedID,
		})
	}
	return v
}

// hiddenSelection returns the marker of a selected feature that the
// predicates filtered out.  The map keeps showing it; the list does not.
func hiddenSelection(snap *feature.Snapshot, visible []feature.Feature, selectedID string) (marker.Marker, bool) {
	if selectedID == "" || snap.Features == nil {
		return marker.Marker{}, false
	}
	for _, f := range visible {
		if f.ID == selectedID {
			return marker.Marker{}, false
		}
	}
	f, ok := snap.Features.Find(selectedID)
	if !ok {
		return marker.Marker{}, false
	}
	return marker.Present(*f, true), true
}
