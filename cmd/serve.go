// cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pagesnap/pagesnap-cli/internal/ingest"
	"github.com/pagesnap/pagesnap-cli/internal/observability"
)

// newServeCmd creates the `serve` command, running the companion ingestion
// API the capture client uploads to.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the ingestion API that collects uploaded captures",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("ingest.addr", cmd.Flags().Lookup("addr")); err != nil {
				return err
			}
			return viper.BindPFlag("ingest.data_dir", cmd.Flags().Lookup("data-dir"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store := ingest.NewStore(cfg.Ingest.DataDir)
			server := ingest.NewServer(cfg.Ingest, store, logger)
			return server.ListenAndServe(cmd.Context())
		},
	}

	serveCmd.Flags().String("addr", ":8000", "Listen address for the ingestion API. (Overrides config/env)")
	serveCmd.Flags().String("data-dir", "collected_data", "Directory bundles are stored in. (Overrides config/env)")

	return serveCmd
}
