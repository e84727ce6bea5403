package testutil

import (
	"encoding/json"
	"fmt"
)

// Coop describes one fixture cooperative.
type Coop struct {
	ID      string
	Name    string
	Manager string
	Commune string
	Genre   string
	Sector  string
	Level   string
	Lon     float64
	Lat     float64
}

// SampleCoops is a small collection with accented names and duplicated
// communes.
var SampleCoops = []Coop{
	{ID: "1", Name: "Zahra Coop", Manager: "Fatima Amrani", Commune: "Ben Taieb", Genre: "F", Sector: "Apiculture", Level: "Primaire", Lon: -3.39, Lat: 34.98},
	{ID: "2", Name: "Alpha Coop", Manager: "Mohamed Bouziane", Commune: "Midar", Genre: "M", Sector: "Artisanat", Level: "Secondaire", Lon: -3.53, Lat: 34.94},
	{ID: "3", Name: "Beta Coop", Manager: "Karim Ziani", Commune: "Ben Taieb", Genre: "M", Sector: "Apiculture", Level: "Universitaire", Lon: -3.41, Lat: 34.99},
	{ID: "4", Name: "Écologie Verte", Manager: "Samira El Idrissi", Commune: "Driouch", Genre: "F", Sector: "Agriculture", Level: "Primaire", Lon: -3.38, Lat: 34.97},
}

// FeatureCollectionJSON renders coops as a GeoJSON FeatureCollection.
func FeatureCollectionJSON(coops []Coop) []byte {
	type geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	type feature struct {
		Type       string                 `json:"type"`
		Geometry   geometry               `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	out := struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}{Type: "FeatureCollection", Features: make([]feature, 0, len(coops))}

	for _, c := range coops {
		props := map[string]interface{}{
			"Nom de coopérative":                   c.Name,
			"Nom et prénom président/gestionnaire": c.Manager,
			"Commune":                              c.Commune,
			"Genre":                                c.Genre,
			"Filière d'activité":                   c.Sector,
			"Niveau scolaire":                      c.Level,
			"Nombre des adhérents":                 12,
		}
		if c.ID != "" {
			props["id"] = c.ID
		}
		out.Features = append(out.Features, feature{
			Type:       "Feature",
			Geometry:   geometry{Type: "Point", Coordinates: []float64{c.Lon, c.Lat}},
			Properties: props,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal fixture: %v", err))
	}
	return data
}

// ProvinceJSON is a single-polygon overlay around the fixture points.
const ProvinceJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"Driouch"},"geometry":{"type":"Polygon","coordinates":[[[-4.0,34.5],[-3.0,34.5],[-3.0,35.3],[-4.0,35.3],[-4.0,34.5]]]}}]}`

// CommunesJSON is a two-polygon overlay.
const CommunesJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"Midar"},"geometry":{"type":"Polygon","coordinates":[[[-3.6,34.9],[-3.5,34.9],[-3.5,35.0],[-3.6,35.0],[-3.6,34.9]]]}},{"type":"Feature","properties":{"name":"Ben Taieb"},"geometry":{"type":"Polygon","coordinates":[[[-3.45,34.95],[-3.35,34.95],[-3.35,35.05],[-3.45,35.05],[-3.45,34.95]]]}}]}`
