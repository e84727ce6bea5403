package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigtopo/coop-driouch/internal/application/dashboard"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
)

// predicateFlags binds the filter flags shared by list and insight.
type predicateFlags struct {
	p filter.Predicates
}

func (f *predicateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.p.Query, "query", "q", "", "match name or president (case-insensitive)")
	fs.StringVar(&f.p.Commune, "commune", "", "exact commune")
	fs.StringVar(&f.p.Genre, "genre", "", "exact genre code (M or F)")
	fs.StringVar(&f.p.Sector, "sector", "", "exact sector of activity")
	fs.StringVar(&f.p.Education, "education", "", "exact education level")
}

// ListRow is one cooperative of the list output.
type ListRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Commune   string `json:"commune"`
	Sector    string `json:"sector"`
	Genre     string `json:"genre"`
	Education string `json:"education"`
	President string `json:"president"`
}

// ListResult is the output of the list command.
type ListResult struct {
	Filters filter.Predicates `json:"filters"`
	Count   int               `json:"count"`
	Label   string            `json:"label"`
	Items   []ListRow         `json:"items"`
}

func newListResult(p filter.Predicates, features []feature.Feature) ListResult {
	res := ListResult{
		Filters: p,
		Count:   len(features),
		Label:   dashboard.CountLabel(len(features)),
		Items:   make([]ListRow, 0, len(features)),
	}
	for _, f := range features {
		res.Items = append(res.Items, ListRow{
			ID:        f.ID,
			Name:      f.TextOr(feature.FieldName, dashboard.DefaultName),
			Commune:   f.TextOr(feature.FieldCommune, dashboard.DefaultDash),
			Sector:    f.TextOr(feature.FieldSector, dashboard.DefaultSector),
			Genre:     dashboard.GenreLabel(f.Text(feature.FieldGenre)),
			Education: f.TextOr(feature.FieldEducation, dashboard.DefaultDash),
			President: f.TextOr(feature.FieldManager, dashboard.DefaultPresident),
		})
	}
	return res
}

func (r ListResult) String() string {
	if r.Count == 0 {
		return dashboard.EmptyResultMessage + "\n"
	}
	var sb strings.Builder
	for _, it := range r.Items {
		fmt.Fprintf(&sb, "%s  (%s, %s)\n", it.Name, it.Commune, it.Sector)
	}
	sb.WriteString(r.Label + "\n")
	return sb.String()
}

func (r ListResult) TableHeaders() []string {
	return []string{"ID", "NOM", "COMMUNE", "FILIÈRE", "GENRE", "NIVEAU", "PRÉSIDENT"}
}

func (r ListResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Items))
	for _, it := range r.Items {
		rows = append(rows, []string{it.ID, it.Name, it.Commune, it.Sector, it.Genre, it.Education, it.President})
	}
	return rows
}

// NewListCmd prints the filtered list in the dashboard's sort order.
func NewListCmd() *cobra.Command {
	flags := &predicateFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cooperatives matching the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			store, _, err := loadDataset(cmd.Context(), cc)
			if err != nil {
				return err
			}
			visible := filter.FilterAndSort(store.Snapshot().FeatureList(), flags.p)
			return PrintResult(cmd, newListResult(flags.p, visible))
		},
	}
	flags.register(cmd)
	return cmd
}
