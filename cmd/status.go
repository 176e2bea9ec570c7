// cmd/status.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/bus"
	"github.com/pagesnap/pagesnap-cli/internal/netfetch"
	"github.com/pagesnap/pagesnap-cli/internal/observability"
	"github.com/pagesnap/pagesnap-cli/internal/orchestrator"
	"github.com/pagesnap/pagesnap-cli/internal/relay"
)

// newStatusCmd creates the `status` command, the reachability probe against
// the configured ingestion endpoint.
func newStatusCmd() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Probes whether the configured ingestion API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := settingsStore()
			if err != nil {
				return err
			}

			uploader := relay.New(netfetch.NewClient(nil), cfg.Relay, logger)
			b := bus.New(logger)
			b.Register(schemas.ActionCheckAPIStatus, relay.StatusHandler(uploader))

			orch := orchestrator.New(b, store, nil, nil, logger)
			verdict, err := orch.CheckStatus(ctx)
			if err != nil {
				return err
			}

			rec, _ := store.Load()
			fmt.Printf("%s: %s\n", rec.APIEndpoint, verdict)
			return nil
		},
	}
	return statusCmd
}
