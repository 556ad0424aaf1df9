package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"fleet-telemetry/internal/risk"
)

// Show prints an asset's recent readings and the assessment computed
// over them.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show readings")
	}
	if closeStore != nil {
		defer closeStore()
	}

	readings, err := store.ListLatestReadings(ctx, opts.AssetID, opts.Limit)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		fmt.Fprintf(os.Stdout, "no readings found for asset %s\n", opts.AssetID)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tRecorded (UTC)\tTemp °C\tVibration RMS\tPressure PSI")

	for _, r := range readings {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%.1f\t%.2f\t%.1f\n",
			r.ID,
			r.RecordedAt.UTC().Format(time.RFC3339),
			r.TemperatureC,
			r.VibrationRMS,
			r.PressurePSI,
		)
	}
	writer.Flush()

	assessment := risk.Evaluate(readings)
	fmt.Fprintf(
		os.Stdout,
		"\nrisk: %s (score %.2f, %d/6 points, window %d)\n",
		assessment.RiskLevel,
		assessment.RiskScore,
		assessment.RiskPoints,
		assessment.WindowUsed,
	)
	fmt.Fprintf(
		os.Stdout,
		"averages: temp %.2f °C, vibration %.2f rms, pressure %.2f psi\n",
		assessment.Averages.TemperatureC,
		assessment.Averages.VibrationRMS,
		assessment.Averages.PressurePSI,
	)

	total, err := store.CountReadings(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "store holds %d readings across all assets\n", total)
	return nil
}
