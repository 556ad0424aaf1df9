package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fleet-telemetry/internal/app"
	"fleet-telemetry/internal/storage"
)

var (
	pollAssetID string
	pollWindow  int
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run the simulated telemetry client",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pollWindow != 0 && (pollWindow < storage.MinWindow || pollWindow > storage.MaxWindow) {
			return fmt.Errorf("--window must be between %d and %d", storage.MinWindow, storage.MaxWindow)
		}

		opts := app.PollOptions{
			AssetID: pollAssetID,
			Window:  pollWindow,
		}

		return getApp().Poll(cmd.Context(), opts)
	},
}

func init() {
	pollCmd.Flags().StringVar(&pollAssetID, "asset", "", "Asset identifier to report readings for (overrides config)")
	pollCmd.Flags().IntVar(&pollWindow, "window", 0, "Window size for risk retrieval (overrides config)")
}
