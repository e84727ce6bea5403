package feature

import "strings"

// Stats is the overview shown above the list.
type Stats struct {
	Total    int `json:"total"`
	Sectors  int `json:"sectors"`
	Communes int `json:"communes"`
}

// ComputeStats counts features and the distinct non-blank sectors and
// communes among them.
func ComputeStats(features []Feature) Stats {
	sectors := make(map[string]struct{})
	communes := make(map[string]struct{})
	for _, f := range features {
		if s := strings.TrimSpace(f.Text(FieldSector)); s != "" {
			sectors[s] = struct{}{}
		}
		if c := strings.TrimSpace(f.Text(FieldCommune)); c != "" {
			communes[c] = struct{}{}
		}
	}
	return Stats{Total: len(features), Sectors: len(sectors), Communes: len(communes)}
}
