package feature_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/testutil"
	apperrors "github.com/sigtopo/coop-driouch/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Parsing
// ─────────────────────────────────────────────────────────────────────────────

func TestParseCollection_Sample(t *testing.T) {
	t.Parallel()
	c, err := feature.ParseCollection(testutil.FeatureCollectionJSON(testutil.SampleCoops))
	require.NoError(t, err)

	assert.Equal(t, feature.KindFeatureCollection, c.Kind)
	require.Equal(t, 4, c.Len())
	assert.Equal(t, "1", c.Features[0].ID)
	assert.Equal(t, "Zahra Coop", c.Features[0].Name())
	assert.Equal(t, "Fatima Amrani", c.Features[0].Manager())

	p, ok := c.Features[1].Point()
	require.True(t, ok)
	assert.Equal(t, orb.Point{-3.53, 34.94}, p)

	f, ok := c.Find("3")
	require.True(t, ok)
	assert.Equal(t, "Beta Coop", f.Name())
}

func TestParseCollection_AssignsIDs(t *testing.T) {
	t.Parallel()
	raw := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"Nom_Coop":"A"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"FID":7}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"id":"x"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"id":"x"}},
		{"type":"Feature","id":"top","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}
	]}`
	c, err := feature.ParseCollection([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, 5, c.Len())

	ids := make([]string, 0, c.Len())
	for _, f := range c.Features {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"coop-0", "7", "x", "coop-3", "top"}, ids)
}

func TestParseCollection_IndexFallbackAvoidsCollision(t *testing.T) {
	t.Parallel()
	raw := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":null,"properties":{"id":"coop-1"}},
		{"type":"Feature","geometry":null,"properties":{}}
	]}`
	c, err := feature.ParseCollection([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "coop-1", c.Features[0].ID)
	assert.Equal(t, "coop-1-1", c.Features[1].ID)
	assert.False(t, c.Features[1].IsPoint())
}

func TestParseCollection_Invalid(t *testing.T) {
	t.Parallel()
	_, err := feature.ParseCollection([]byte("<html>"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDataSourceParseError))
}

func TestParseBoundary(t *testing.T) {
	t.Parallel()
	b, err := feature.ParseBoundary(feature.ResourceProvince, []byte(testutil.ProvinceJSON))
	require.NoError(t, err)
	assert.False(t, b.Empty)
	assert.Equal(t, orb.Bound{Min: orb.Point{-4.0, 34.5}, Max: orb.Point{-3.0, 35.3}}, b.Bound)

	empty, err := feature.ParseBoundary(feature.ResourceCommunes, []byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.True(t, empty.Empty)
}

func TestCollection_BoundAndGeoJSON(t *testing.T) {
	t.Parallel()
	c, err := feature.ParseCollection(testutil.FeatureCollectionJSON(testutil.SampleCoops))
	require.NoError(t, err)

	b, ok := c.Bound()
	require.True(t, ok)
	assert.Equal(t, -3.53, b.Min.Lon())
	assert.Equal(t, 34.99, b.Max.Lat())

	fc := c.GeoJSON()
	require.Len(t, fc.Features, 4)
	assert.Equal(t, "1", fc.Features[0].ID)
	assert.Equal(t, "Zahra Coop", fc.Features[0].Properties["Nom de coopérative"])

	empty := feature.NewCollection(nil)
	_, ok = empty.Bound()
	assert.False(t, ok)
}

// ─────────────────────────────────────────────────────────────────────────────
// Attributes
// ─────────────────────────────────────────────────────────────────────────────

func TestFeature_CandidateKeys(t *testing.T) {
	t.Parallel()
	f := feature.Feature{Properties: geojson.Properties{
		"Nom de coopérative":   "",
		"Nom_Coop":             "Legacy",
		"Secteur":              "Apiculture",
		"Nombre des adherents": "15",
		"Nombre des femmes":    4.0,
		"Tel":                  nil,
		"Téléphone":            "0600",
	}}
	assert.Equal(t, "Legacy", f.Name())
	assert.Equal(t, "Apiculture", f.Text(feature.FieldSector))
	assert.Equal(t, 15, f.Int(feature.FieldMembers))
	assert.Equal(t, 4, f.Int(feature.FieldWomen))
	assert.Equal(t, 0, f.Int(feature.FieldYouth))
	assert.Equal(t, "0600", f.Text(feature.FieldPhone))
	assert.Equal(t, "Non mentionné", f.TextOr(feature.FieldManager, "Non mentionné"))
}

func TestFeature_NumberTolerance(t *testing.T) {
	t.Parallel()
	f := feature.Feature{Properties: geojson.Properties{
		"Nombre des adhérents": "abc",
		"Nombre des femmes":    "2,5",
		"Nombre des jeunes":    true,
	}}
	assert.Equal(t, 0.0, f.Number(feature.FieldMembers))
	assert.Equal(t, 2.5, f.Number(feature.FieldWomen))
	assert.Equal(t, 0.0, f.Number(feature.FieldYouth))
}

func TestStringValue(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", feature.StringValue(nil))
	assert.Equal(t, "12", feature.StringValue(12.0))
	assert.Equal(t, "1.5", feature.StringValue(1.5))
	assert.Equal(t, "7", feature.StringValue(7))
	assert.Equal(t, "true", feature.StringValue(true))
	assert.Equal(t, "M", feature.StringValue("M"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Stats
// ─────────────────────────────────────────────────────────────────────────────

func TestComputeStats(t *testing.T) {
	t.Parallel()
	c, err := feature.ParseCollection(testutil.FeatureCollectionJSON(testutil.SampleCoops))
	require.NoError(t, err)

	s := feature.ComputeStats(c.Features)
	assert.Equal(t, feature.Stats{Total: 4, Sectors: 3, Communes: 3}, s)
	assert.Equal(t, feature.Stats{}, feature.ComputeStats(nil))
}
