package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigtopo/coop-driouch/pkg/client"
	"github.com/sigtopo/coop-driouch/pkg/errors"
)

func remoteClient(cmd *cobra.Command) (*client.Client, error) {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if cc.Client == nil {
		return nil, errors.InvalidParam("no usable --server address")
	}
	return cc.Client, nil
}

// StatusResult is the output of the status command.
type StatusResult struct {
	Server  string               `json:"server"`
	Ready   bool                 `json:"ready"`
	Dataset client.DatasetStatus `json:"dataset"`
}

func (r StatusResult) String() string {
	var sb strings.Builder
	ready := "not ready"
	if r.Ready {
		ready = "ready"
	}
	fmt.Fprintf(&sb, "Server: %s (%s)\n", r.Server, ready)
	fmt.Fprintf(&sb, "Dataset: %s (version %d)\n", r.Dataset.State, r.Dataset.Version)
	for _, row := range r.TableRows() {
		fmt.Fprintf(&sb, "  %-9s %s %s\n", row[0], row[1], row[2])
	}
	return sb.String()
}

func (r StatusResult) TableHeaders() []string {
	return []string{"RESOURCE", "STATE", "COUNT", "ERROR"}
}

func (r StatusResult) TableRows() [][]string {
	names := make([]string, 0, len(r.Dataset.Resources))
	for name := range r.Dataset.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rs := r.Dataset.Resources[name]
		rows = append(rows, []string{name, rs.State, strconv.Itoa(rs.Count), rs.Error})
	}
	return rows
}

// NewStatusCmd reports the dataset status of a running server.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the dataset status of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			ready, err := c.Ready(cmd.Context())
			if err != nil {
				return err
			}
			st, err := c.Dataset().Status(cmd.Context())
			if err != nil {
				return err
			}
			return PrintResult(cmd, StatusResult{Server: c.BaseURL(), Ready: ready, Dataset: *st})
		},
	}
}

// NewRefreshCmd asks a running server to refetch the cooperative collection.
func NewRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask a running server to refetch the cooperatives now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			out, err := c.Dataset().Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if cc, _ := GetCLIContext(cmd); cc != nil && cc.OutputFormat == "json" {
				return PrintResult(cmd, out)
			}
			msg := fmt.Sprintf("features: %d loaded in %s", out.Count, out.Elapsed)
			if !out.Changed {
				msg += " (unchanged)"
			}
			return PrintResult(cmd, msg)
		},
	}
}
