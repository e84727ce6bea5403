package cli

import (
	"github.com/spf13/cobra"

	"github.com/sigtopo/coop-driouch/internal/app"
	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
)

// NewServeCmd runs the API server with the same wiring as cmd/apiserver.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				cc.Config.Server.Port = port
			}

			a, err := app.New(cmd.Context(), cc.Config, cc.Logger)
			if err != nil {
				return err
			}
			cc.Logger.Info("starting coopmap server",
				logging.String("version", app.Version),
				logging.Int("port", cc.Config.Server.Port))
			return a.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
