package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigtopo/coop-driouch/internal/domain/filter"
)

// OptionsResult is the output of the options command.
type OptionsResult struct {
	filter.OptionSets
}

type optionDimension struct {
	name   string
	values []string
}

func (r OptionsResult) dimensions() []optionDimension {
	return []optionDimension{
		{"commune", r.Communes},
		{"genre", r.Genres},
		{"sector", r.Sectors},
		{"education", r.Educations},
	}
}

func (r OptionsResult) String() string {
	var sb strings.Builder
	for _, d := range r.dimensions() {
		fmt.Fprintf(&sb, "%s (%d)\n", d.name, len(d.values))
		for _, v := range d.values {
			fmt.Fprintf(&sb, "  %s\n", v)
		}
	}
	return sb.String()
}

func (r OptionsResult) TableHeaders() []string { return []string{"DIMENSION", "VALUES"} }

func (r OptionsResult) TableRows() [][]string {
	dims := r.dimensions()
	rows := make([][]string, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, []string{d.name, strings.Join(d.values, ", ")})
	}
	return rows
}

// NewOptionsCmd prints the selectable values of every filter dimension.
func NewOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the filter options derived from the collection",
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
			return PrintResult(cmd, OptionsResult{filter.Options(store.Snapshot().FeatureList())})
		},
	}
}
