package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigtopo/coop-driouch/internal/app"
	"github.com/sigtopo/coop-driouch/internal/application/dataset"
	"github.com/sigtopo/coop-driouch/internal/domain/feature"
	"github.com/sigtopo/coop-driouch/pkg/errors"
)

// loadDataset fetches every configured resource once into a fresh store.
// It fails only when the cooperative collection could not be loaded.
func loadDataset(ctx context.Context, cc *CLIContext) (*feature.Store, []dataset.Outcome, error) {
	source, err := app.NewSource(cc.Config, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	store := feature.NewStore()
	r := dataset.New(store, source, dataset.Config{Timeout: cc.Config.Source.Timeout}, cc.Logger)

	if cc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cc.Timeout)
		defer cancel()
	}
	outcomes := r.RefreshAll(ctx)
	for _, o := range outcomes {
		if o.Resource == feature.ResourceFeatures && o.Err != nil {
			return store, outcomes, o.Err
		}
	}
	return store, outcomes, nil
}

// FetchResult is the output of the fetch command.
type FetchResult struct {
	Status   feature.Status    `json:"status"`
	Stats    feature.Stats     `json:"stats"`
	Outcomes []dataset.Outcome `json:"outcomes"`
}

func (r FetchResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset: %s (version %d)\n", r.Status.State, r.Status.Version)
	fmt.Fprintf(&sb, "Coopératives: %d  Secteurs: %d  Communes: %d\n", r.Stats.Total, r.Stats.Sectors, r.Stats.Communes)
	for _, o := range r.Outcomes {
		fmt.Fprintf(&sb, "  %-9s %s\n", o.Resource, outcomeText(o))
	}
	return sb.String()
}

func (r FetchResult) TableHeaders() []string {
	return []string{"RESOURCE", "RESULT", "COUNT", "ELAPSED", "DIGEST"}
}

func (r FetchResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		rows = append(rows, []string{
			string(o.Resource),
			outcomeText(o),
			strconv.Itoa(o.Count),
			o.Elapsed.String(),
			shortDigest(o.Digest),
		})
	}
	return rows
}

func outcomeText(o dataset.Outcome) string {
	switch {
	case o.Skipped:
		return "not configured"
	case o.Error != "":
		return "failed: " + o.Error
	case o.Applied:
		return fmt.Sprintf("loaded %d", o.Count)
	}
	return "unchanged"
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// NewFetchCmd performs a one-shot fetch and reports what was loaded.
func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the published GeoJSON once and print dataset statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			store, outcomes, loadErr := loadDataset(cmd.Context(), cc)
			if store == nil {
				return loadErr
			}
			res := FetchResult{
				Status:   store.Status(),
				Stats:    feature.ComputeStats(store.Snapshot().FeatureList()),
				Outcomes: outcomes,
			}
			if err := PrintResult(cmd, res); err != nil {
				return err
			}
			if loadErr != nil {
				return errors.Wrap(loadErr, errors.CodeUnknown, "features not loaded")
			}
			return nil
		},
	}
}
