package feature

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// ParseCollection decodes a GeoJSON FeatureCollection and assigns every
// feature a unique identifier: the "id" property, then "FID", then the
// top-level GeoJSON id, otherwise one derived from the collection index.
// Features without geometry are kept; they are listed but never placed.
func ParseCollection(data []byte) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDataSourceParseError, "invalid feature collection")
	}
	return FromGeoJSON(fc), nil
}

// FromGeoJSON converts an already decoded collection.
func FromGeoJSON(fc *geojson.FeatureCollection) *Collection {
	if fc == nil {
		return NewCollection([]Feature{})
	}
	features := make([]Feature, 0, len(fc.Features))
	used := make(map[string]struct{}, len(fc.Features))
	for i, gf := range fc.Features {
		if gf == nil {
			continue
		}
		props := gf.Properties
		if props == nil {
			props = geojson.Properties{}
		}
		f := Feature{Geometry: gf.Geometry, Properties: props}
		f.ID = assignID(f, gf.ID, i, used)
		used[f.ID] = struct{}{}
		features = append(features, f)
	}
	return NewCollection(features)
}

func assignID(f Feature, topLevel interface{}, index int, used map[string]struct{}) string {
	candidate := f.Text(FieldIdentity)
	if candidate == "" && topLevel != nil {
		candidate = StringValue(topLevel)
	}
	if candidate != "" {
		if _, dup := used[candidate]; !dup {
			return candidate
		}
	}
	id := fmt.Sprintf("coop-%d", index)
	for n := 1; ; n++ {
		if _, dup := used[id]; !dup {
			return id
		}
		id = fmt.Sprintf("coop-%d-%d", index, n)
	}
}

// ParseBoundary decodes an overlay.  Any valid FeatureCollection is accepted,
// including an empty one.
func ParseBoundary(name Resource, data []byte) (*Boundary, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDataSourceParseError, "invalid boundary overlay").
			WithDetail("name=" + string(name))
	}
	return NewBoundary(name, fc), nil
}
