// Package feature holds the cooperative point collection, the two optional
// boundary overlays and the Store that owns them.
package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// KindFeatureCollection is the only collection kind the source serves.
const KindFeatureCollection = "FeatureCollection"

// Feature is one cooperative.  ID is never empty once the feature has been
// loaded through ParseCollection.
type Feature struct {
	ID         string             `json:"id"`
	Geometry   orb.Geometry       `json:"-"`
	Properties geojson.Properties `json:"properties"`
}

// Point returns the feature coordinates when the geometry is a point.
func (f Feature) Point() (orb.Point, bool) {
	p, ok := f.Geometry.(orb.Point)
	return p, ok
}

// IsPoint reports whether the geometry is a point.
func (f Feature) IsPoint() bool {
	_, ok := f.Point()
	return ok
}

// Name is the display name, empty when no candidate key is set.
func (f Feature) Name() string { return f.Text(FieldName) }

// Manager is the responsible person's name.
func (f Feature) Manager() string { return f.Text(FieldManager) }

// GeoJSON renders the feature with its assigned identifier.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.ID
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	return gf
}

// Collection is an ordered, immutable set of features.  A refresh replaces
// the whole collection.
type Collection struct {
	Kind     string
	Features []Feature

	index    map[string]int
	bound    orb.Bound
	hasBound bool
}

// NewCollection indexes features by ID and precomputes their extent.  The
// slice is owned by the collection afterwards.
func NewCollection(features []Feature) *Collection {
	c := &Collection{
		Kind:     KindFeatureCollection,
		Features: features,
		index:    make(map[string]int, len(features)),
	}
	for i, f := range features {
		c.index[f.ID] = i
		if f.Geometry == nil {
			continue
		}
		if !c.hasBound {
			c.bound = f.Geometry.Bound()
			c.hasBound = true
			continue
		}
		c.bound = c.bound.Union(f.Geometry.Bound())
	}
	return c
}

// Len returns the number of features.  Safe on nil.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Find resolves id against the full collection.
func (c *Collection) Find(id string) (*Feature, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	f := c.Features[i]
	return &f, true
}

// Bound returns the extent of every geometry, false for an empty collection.
func (c *Collection) Bound() (orb.Bound, bool) {
	if c == nil {
		return orb.Bound{}, false
	}
	return c.bound, c.hasBound
}

// GeoJSON renders the collection, assigned identifiers included.
func (c *Collection) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if c == nil {
		return fc
	}
	for _, f := range c.Features {
		fc.Append(f.GeoJSON())
	}
	return fc
}

// Boundary is a display-only overlay.  Data is never interpreted beyond its
// extent.
type Boundary struct {
	Name  Resource
	Data  *geojson.FeatureCollection
	Bound orb.Bound
	Empty bool
}

// NewBoundary wraps fc and computes its extent.
func NewBoundary(name Resource, fc *geojson.FeatureCollection) *Boundary {
	b := &Boundary{Name: name, Data: fc, Empty: true}
	if fc == nil {
		return b
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if b.Empty {
			b.Bound = f.Geometry.Bound()
			b.Empty = false
			continue
		}
		b.Bound = b.Bound.Union(f.Geometry.Bound())
	}
	return b
}
