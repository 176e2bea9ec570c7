// cmd/view.go
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pagesnap/pagesnap-cli/internal/ingest"
	"github.com/pagesnap/pagesnap-cli/internal/observability"
	"github.com/pagesnap/pagesnap-cli/internal/viewer"
)

// newViewCmd creates the `view` command for inspecting collected bundles.
// With no argument it lists captures newest first; with an index or path it
// summarizes one bundle.
func newViewCmd() *cobra.Command {
	viewCmd := &cobra.Command{
		Use:   "view [index|file]",
		Short: "Lists and inspects captures collected by the ingestion API",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("ingest.data_dir", cmd.Flags().Lookup("data-dir"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v := viewer.New(ingest.NewStore(cfg.Ingest.DataDir), os.Stdout, logger)

			if len(args) == 0 {
				return v.RenderList()
			}

			path, err := resolveBundle(v, args[0])
			if err != nil {
				return err
			}

			if dest, _ := cmd.Flags().GetString("save-html"); dest != "" {
				return v.ExportHTML(path, dest)
			}
			withAssets, _ := cmd.Flags().GetBool("assets")
			return v.RenderSummary(path, withAssets)
		},
	}

	viewCmd.Flags().String("data-dir", "collected_data", "Directory bundles are stored in. (Overrides config/env)")
	viewCmd.Flags().Bool("assets", false, "Include per-asset details in the summary")
	viewCmd.Flags().String("save-html", "", "Write the bundle's snapshot to this file instead of summarizing")

	return viewCmd
}

// resolveBundle accepts either a 1-based listing index or a file path.
func resolveBundle(v *viewer.Viewer, arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("%q is neither a bundle file nor a listing index", arg)
	}
	entries, err := v.Entries()
	if err != nil {
		return "", err
	}
	if idx < 1 || idx > len(entries) {
		return "", fmt.Errorf("index %d out of range: %d capture(s) available", idx, len(entries))
	}
	return entries[idx-1].Path, nil
}
