// cmd/capture.go
package cmd

import (
	"fmt"
	"os"

	jsonpkg "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
	"github.com/pagesnap/pagesnap-cli/internal/bus"
	"github.com/pagesnap/pagesnap-cli/internal/capture"
	"github.com/pagesnap/pagesnap-cli/internal/config"
	"github.com/pagesnap/pagesnap-cli/internal/netfetch"
	"github.com/pagesnap/pagesnap-cli/internal/observability"
	"github.com/pagesnap/pagesnap-cli/internal/orchestrator"
	"github.com/pagesnap/pagesnap-cli/internal/relay"
)

// overrideStore layers one-shot flag values over the persisted settings
// without writing them back.
type overrideStore struct {
	inner    config.Store
	endpoint string
	userID   string
}

func (s overrideStore) Load() (config.Record, error) {
	rec, err := s.inner.Load()
	if err != nil {
		return rec, err
	}
	if s.endpoint != "" {
		rec.APIEndpoint = s.endpoint
	}
	if s.userID != "" {
		rec.UserID = s.userID
	}
	return rec, nil
}

func (s overrideStore) Save(rec config.Record) error { return s.inner.Save(rec) }

// newCaptureCmd creates and configures the `capture` command.
func newCaptureCmd() *cobra.Command {
	captureCmd := &cobra.Command{
		Use:   "capture <url>",
		Short: "Captures a page snapshot and uploads it to the configured API",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind override flags so they take precedence over config/env.
			if err := viper.BindPFlag("browser.navigation_timeout", cmd.Flags().Lookup("timeout")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			target := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fileStore, err := settingsStore()
			if err != nil {
				return err
			}
			endpointFlag, _ := cmd.Flags().GetString("endpoint")
			userFlag, _ := cmd.Flags().GetString("user")
			store := overrideStore{inner: fileStore, endpoint: endpointFlag, userID: userFlag}

			// Browser session: the engine's window onto the target page.
			session := capture.NewSession(ctx, target, cfg.Browser, logger)
			defer session.Close()

			// Credential-less asset pipeline.
			client := netfetch.NewClient(&netfetch.ClientConfig{
				IgnoreTLSErrors: cfg.Browser.IgnoreTLSErrors,
				RequestTimeout:  cfg.Fetch.RequestTimeout,
				ForceHTTP2:      true,
				Logger:          logger,
			})
			fetcher := netfetch.NewFetcher(client, netfetch.Config{
				MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
				RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
			}, logger)

			engine := capture.NewEngine(session, fetcher, capture.Config{
				ImageLoadTimeout:  cfg.Capture.ImageLoadTimeout,
				MinImageDimension: cfg.Capture.MinImageDimension,
				FetchConcurrency:  cfg.Capture.FetchConcurrency,
			}, logger)

			uploader := relay.New(client, cfg.Relay, logger)

			// Wire the pipeline contexts together over the bus.
			b := bus.New(logger)
			b.Register(schemas.ActionCapture, capture.BusHandler(engine))
			b.Register(schemas.ActionSendToAPI, relay.SendHandler(uploader))
			b.Register(schemas.ActionCheckAPIStatus, relay.StatusHandler(uploader))

			status := orchestrator.NewStatusDisplay(os.Stdout)
			orch := orchestrator.New(b, store, session, status, logger)

			if output, _ := cmd.Flags().GetString("output"); output != "" {
				orch.OnPayload = func(p schemas.IngestPayload) {
					if err := writePayload(output, p); err != nil {
						logger.Warn("Failed to write local bundle copy.",
							zap.String("path", output), zap.Error(err))
					}
				}
			}

			receipt, err := orch.CaptureAndSend(ctx)
			if err != nil {
				return err
			}

			if receipt.Filepath != "" {
				fmt.Printf("Stored as %s\n", receipt.Filepath)
			}
			logger.Info("Capture finished.",
				zap.String("target", target),
				zap.Int("assets", receipt.Stats.TotalAssets))
			return nil
		},
	}

	captureCmd.Flags().StringP("user", "u", "", "User ID to attribute the capture to. (Overrides saved settings)")
	captureCmd.Flags().StringP("endpoint", "e", "", "Ingestion API endpoint. (Overrides saved settings)")
	captureCmd.Flags().StringP("output", "o", "", "Also write the assembled payload to this file")
	captureCmd.Flags().Duration("timeout", 0, "Navigation timeout. (Overrides config/env)")
	captureCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")

	return captureCmd
}

// writePayload dumps the payload as indented JSON, mirroring what the
// ingestion server stores.
func writePayload(path string, p schemas.IngestPayload) error {
	raw, err := jsonpkg.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
