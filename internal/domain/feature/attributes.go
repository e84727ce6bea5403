package feature

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field is a logical attribute with the ordered list of property keys it has
// been published under across dataset revisions.  The first key holding a
// non-empty value wins.
type Field struct {
	Name string
	Keys []string
}

var (
	FieldName      = Field{Name: "name", Keys: []string{"Nom de coopérative", "Nom_Coop"}}
	FieldManager   = Field{Name: "manager", Keys: []string{"Nom et prénom président/gestionnaire", "Président"}}
	FieldSector    = Field{Name: "sector", Keys: []string{"Filière d'activité", "Secteur"}}
	FieldCommune   = Field{Name: "commune", Keys: []string{"Commune"}}
	FieldGenre     = Field{Name: "genre", Keys: []string{"Genre"}}
	FieldEducation = Field{Name: "education", Keys: []string{"Niveau scolaire"}}
	FieldMembers   = Field{Name: "members", Keys: []string{"Nombre des adhérents", "Nombre des adherents"}}
	FieldWomen     = Field{Name: "women", Keys: []string{"Nombre des femmes"}}
	FieldYouth     = Field{Name: "youth", Keys: []string{"Nombre des jeunes"}}
	FieldPhone     = Field{Name: "phone", Keys: []string{"Tel", "Téléphone"}}
	FieldCercle    = Field{Name: "cercle", Keys: []string{"Cercle"}}
	FieldProvince  = Field{Name: "province", Keys: []string{"Province"}}
	FieldDouar     = Field{Name: "douar", Keys: []string{"Douar/Quartier"}}
	FieldBirthDate = Field{Name: "birth_date", Keys: []string{"Date de naissance"}}
	FieldCreatedOn = Field{Name: "created_on", Keys: []string{"Date de création"}}
	FieldIdentity  = Field{Name: "identifier", Keys: []string{"id", "FID"}}
)

// Lookup returns the raw value of the first candidate key that holds a
// non-empty value.
func (f Feature) Lookup(field Field) (interface{}, bool) {
	for _, k := range field.Keys {
		v, ok := f.Properties[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// Text returns the string form of field, or "" when it is absent.
func (f Feature) Text(field Field) string {
	v, ok := f.Lookup(field)
	if !ok {
		return ""
	}
	return StringValue(v)
}

// TextOr returns Text, or fallback when the field is absent or blank.
func (f Feature) TextOr(field Field, fallback string) string {
	if s := strings.TrimSpace(f.Text(field)); s != "" {
		return s
	}
	return fallback
}

// Number returns field as a float, 0 when absent or not numeric.
func (f Feature) Number(field Field) float64 {
	v, ok := f.Lookup(field)
	if !ok {
		return 0
	}
	n, ok := numberValue(v)
	if !ok {
		return 0
	}
	return n
}

// Int returns Number truncated to an int.
func (f Feature) Int(field Field) int {
	return int(f.Number(field))
}

// StringValue is the canonical string form of an attribute value.  Exact
// categorical matching compares these forms.
func StringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func numberValue(v interface{}) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
