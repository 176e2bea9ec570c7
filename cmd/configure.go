// cmd/configure.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagesnap/pagesnap-cli/internal/config"
	"github.com/pagesnap/pagesnap-cli/internal/observability"
	"github.com/pagesnap/pagesnap-cli/internal/orchestrator"
)

// newConfigureCmd creates the `configure` command, which validates and
// persists the endpoint/user settings record as a whole.
func newConfigureCmd() *cobra.Command {
	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Saves the ingestion endpoint and user ID used by capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			store, err := settingsStore()
			if err != nil {
				return err
			}
			rec, err := store.Load()
			if err != nil {
				return err
			}

			// Unset flags keep their stored values; the record is always
			// validated and written whole.
			if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
				rec.APIEndpoint = endpoint
			}
			if user, _ := cmd.Flags().GetString("user"); user != "" {
				rec.UserID = user
			}

			orch := orchestrator.New(nil, store, nil, nil, logger)
			if err := orch.SaveSettings(rec); err != nil {
				return err
			}

			path, _ := config.DefaultStorePath()
			fmt.Printf("Settings saved to %s\n", path)
			fmt.Printf("  endpoint: %s\n  user:     %s\n", rec.APIEndpoint, rec.UserID)
			return nil
		},
	}

	configureCmd.Flags().StringP("endpoint", "e", "", "Ingestion API endpoint URL")
	configureCmd.Flags().StringP("user", "u", "", "User ID captures are attributed to")

	return configureCmd
}
