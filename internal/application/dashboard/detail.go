package dashboard

import (
	"strconv"
	"strings"

	"github.com/sigtopo/coop-driouch/internal/domain/feature"
)

// Placeholders shown for missing attributes.
const (
	DefaultName       = "Coopérative"
	DefaultSector     = "Secteur non défini"
	DefaultDash       = "---"
	DefaultProvince   = "Driouch"
	DefaultDouar      = "Non renseigné"
	DefaultPresident  = "Non mentionné"
	DefaultGenre      = "Non spécifié"
	DefaultCreatedOn  = "Non définie"
	GenreMaleLabel    = "Homme (ذكر)"
	GenreFemaleLabel  = "Femme (أنثى)"
	UnavailableDetail = "Aucun détail disponible"
)

// Detail is the overlay content of the selected cooperative.  Every field has
// a value; absent attributes fall back to the placeholders above.
type Detail struct {
	Available  bool    `json:"available"`
	FeatureID  string  `json:"feature_id"`
	Message    string  `json:"message,omitempty"`
	Identifier string  `json:"identifier,omitempty"`
	Name       string  `json:"name,omitempty"`
	Sector     string  `json:"sector,omitempty"`
	Members    float64 `json:"members"`
	Women      float64 `json:"women"`
	Youth      float64 `json:"youth"`
	Commune    string  `json:"commune,omitempty"`
	Cercle     string  `json:"cercle,omitempty"`
	Province   string  `json:"province,omitempty"`
	Douar      string  `json:"douar,omitempty"`
	President  string  `json:"president,omitempty"`
	Genre      string  `json:"genre,omitempty"`
	BirthDate  string  `json:"birth_date,omitempty"`
	Education  string  `json:"education,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	CreatedOn  string  `json:"created_on,omitempty"`
}

// BuildDetail renders f.  A nil feature is an unresolved selection and yields
// an unavailable detail rather than an error.
func BuildDetail(id string, f *feature.Feature) Detail {
	if f == nil {
		return Detail{FeatureID: id, Message: UnavailableDetail}
	}
	return Detail{
		Available:  true,
		FeatureID:  f.ID,
		Identifier: f.TextOr(feature.FieldIdentity, DefaultDash),
		Name:       f.TextOr(feature.FieldName, DefaultName),
		Sector:     f.TextOr(feature.FieldSector, DefaultSector),
		Members:    f.Number(feature.FieldMembers),
		Women:      f.Number(feature.FieldWomen),
		Youth:      f.Number(feature.FieldYouth),
		Commune:    f.TextOr(feature.FieldCommune, DefaultDash),
		Cercle:     f.TextOr(feature.FieldCercle, DefaultDash),
		Province:   f.TextOr(feature.FieldProvince, DefaultProvince),
		Douar:      f.TextOr(feature.FieldDouar, DefaultDouar),
		President:  f.TextOr(feature.FieldManager, DefaultPresident),
		Genre:      GenreLabel(f.Text(feature.FieldGenre)),
		BirthDate:  f.TextOr(feature.FieldBirthDate, DefaultDash),
		Education:  f.TextOr(feature.FieldEducation, DefaultDash),
		Phone:      strings.TrimSpace(f.Text(feature.FieldPhone)),
		CreatedOn:  f.TextOr(feature.FieldCreatedOn, DefaultCreatedOn),
	}
}

// GenreLabel expands the M/F codes.  Other values are shown as published.
func GenreLabel(g string) string {
	switch g {
	case "M":
		return GenreMaleLabel
	case "F":
		return GenreFemaleLabel
	case "":
		return DefaultGenre
	}
	return g
}

// CountLabel is the result line under the list.
func CountLabel(n int) string {
	return strconv.Itoa(n) + " Coopératives affichées"
}
