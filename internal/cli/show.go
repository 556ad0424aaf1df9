package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fleet-telemetry/internal/app"
	"fleet-telemetry/internal/storage"
)

var (
	showAssetID string
	showLimit   int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent readings and risk for an asset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showAssetID == "" {
			return errors.New("--asset is required")
		}
		if showLimit < storage.MinWindow || showLimit > storage.MaxWindow {
			return fmt.Errorf("--limit must be between %d and %d", storage.MinWindow, storage.MaxWindow)
		}

		opts := app.ShowOptions{
			AssetID: showAssetID,
			Limit:   showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showAssetID, "asset", "", "Asset identifier")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of readings to display")
}
