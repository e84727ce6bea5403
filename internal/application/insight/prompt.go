package insight

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
)

// DefaultSampleSize caps the number of cooperatives sent to the model.
const DefaultSampleSize = 60

// SampleEntry is the compact per-cooperative record embedded in the prompt.
// Missing attributes are omitted.
type SampleEntry struct {
	Name    interface{} `json:"n,omitempty"`
	Commune interface{} `json:"c,omitempty"`
	Sector  interface{} `json:"s,omitempty"`
	Members interface{} `json:"a,omitempty"`
	Women   interface{} `json:"f,omitempty"`
}

func raw(f feature.Feature, field feature.Field) interface{} {
	v, ok := f.Lookup(field)
	if !ok {
		return nil
	}
	return v
}

// BuildSample keeps the first size features, in the order given.
func BuildSample(features []feature.Feature, size int) []SampleEntry {
	if size <= 0 {
		size = DefaultSampleSize
	}
	if len(features) < size {
		size = len(features)
	}
	out := make([]SampleEntry, 0, size)
	for _, f := range features[:size] {
		out = append(out, SampleEntry{
			Name:    raw(f, feature.FieldName),
			Commune: raw(f, feature.FieldCommune),
			Sector:  raw(f, feature.FieldSector),
			Members: raw(f, feature.FieldMembers),
			Women:   raw(f, feature.FieldWomen),
		})
	}
	return out
}

var promptTemplate = template.Must(template.New("insight").Parse(
	`Agis en tant qu'expert en développement socio-économique pour la province de Driouch, Maroc. ` +
		`Analyse ces {{.Count}} coopératives. Données clés: {{.Data}}. ` +
		`Structure ta réponse en Markdown:
- **Diagnostic Global**: Analyse de la répartition et des secteurs.
- **Inclusion & Social**: Focus sur les adhérents et l'aspect genre.
- **Opportunités Stratégiques**: 3 recommandations concrètes pour Agri Invest Development.

Ton: Professionnel, analytique et visionnaire. Langue: Français.`))

// BuildPrompt renders the analysis prompt.  count is the size of the
// analysed subset, which may exceed the sample.
func BuildPrompt(count int, sample []SampleEntry) (string, error) {
	var data bytes.Buffer
	enc := json.NewEncoder(&data)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sample); err != nil {
		return "", err
	}
	var out bytes.Buffer
	err := promptTemplate.Execute(&out, struct {
		Count int
		Data  string
	}{Count: count, Data: strings.TrimSpace(data.String())})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
