package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigtopo/coop-driouch/internal/app"
	"github.com/sigtopo/coop-driouch/internal/application/insight"
	"github.com/sigtopo/coop-driouch/internal/domain/filter"
	"github.com/sigtopo/coop-driouch/pkg/errors"
)

// InsightResult is the output of the insight command.
type InsightResult struct {
	State   insight.State     `json:"state"`
	Filters filter.Predicates `json:"filters"`
	Report  insight.Report    `json:"report"`
	Code    string            `json:"code,omitempty"`
}

func (r InsightResult) String() string {
	var sb strings.Builder
	sb.WriteString(r.Report.Text)
	if !strings.HasSuffix(r.Report.Text, "\n") {
		sb.WriteString("\n")
	}
	if r.State == insight.StateReady {
		fmt.Fprintf(&sb, "\n(%d coopératives, %d dans l'échantillon)\n", r.Report.Count, r.Report.Sampled)
	}
	return sb.String()
}

// NewInsightCmd asks the summarizer for an overview of the filtered subset.
// The report text is printed even when generation fails.
func NewInsightCmd() *cobra.Command {
	flags := &predicateFlags{}

	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Generate an AI overview of the cooperatives matching the filters",
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

			svc := app.NewInsight(cmd.Context(), cc.Config, cc.Logger, nil)
			rep, genErr := svc.Generate(cmd.Context(), visible)
			res := InsightResult{State: insight.StateReady, Filters: flags.p, Report: rep}
			if genErr != nil {
				res.State = insight.StateError
				res.Code = errors.GetCode(genErr).String()
			}
			if err := PrintResult(cmd, res); err != nil {
				return err
			}
			return genErr
		},
	}
	flags.register(cmd)
	return cmd
}
