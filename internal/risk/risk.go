// Package risk derives a windowed risk assessment from recent sensor
// readings of an asset. Evaluation is pure: it never touches the store
// and is recomputed on every read.
package risk

import (
	"github.com/shopspring/decimal"

	"fleet-telemetry/internal/storage"
)

// Level classifies accumulated risk points.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// maxPoints is the ceiling of the accumulator: 2 points per metric.
const maxPoints = 6

// Averages holds the per-metric arithmetic means over the evaluated
// window, rounded to 2 decimal places for reporting.
type Averages struct {
	TemperatureC float64 `json:"temperature_c"`
	VibrationRMS float64 `json:"vibration_rms"`
	PressurePSI  float64 `json:"pressure_psi"`
}

// Assessment is the computed risk for one window of readings. It is
// never persisted.
type Assessment struct {
	RiskScore  float64  `json:"risk_score"`
	RiskPoints int      `json:"risk_points"`
	RiskLevel  Level    `json:"risk_level"`
	WindowUsed int      `json:"window_used"`
	Averages   Averages `json:"averages"`
}

// Evaluate reduces a window of readings into an assessment. Order of the
// input does not affect the result. An empty window yields nil: an asset
// with no history has no assessment, which is distinct from a LOW one.
func Evaluate(readings []storage.Reading) *Assessment {
	if len(readings) == 0 {
		return nil
	}

	var sumTemp, sumVib, sumPressure float64
	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumVib += r.VibrationRMS
		sumPressure += r.PressurePSI
	}

	n := float64(len(readings))
	avgTemp := sumTemp / n
	avgVib := sumVib / n
	avgPressure := sumPressure / n

	// Banding compares against the unrounded means; rounding is for
	// reporting only.
	points := temperaturePoints(avgTemp) + vibrationPoints(avgVib) + pressurePoints(avgPressure)

	return &Assessment{
		RiskScore:  round2(float64(points) / maxPoints),
		RiskPoints: points,
		RiskLevel:  levelFor(points),
		WindowUsed: len(readings),
		Averages: Averages{
			TemperatureC: round2(avgTemp),
			VibrationRMS: round2(avgVib),
			PressurePSI:  round2(avgPressure),
		},
	}
}

// temperaturePoints bands the average temperature in Celsius. Cutpoints
// are domain thresholds, not tunables.
func temperaturePoints(avg float64) int {
	switch {
	case avg > 95:
		return 2
	case avg > 85:
		return 1
	default:
		return 0
	}
}

func vibrationPoints(avg float64) int {
	switch {
	case avg > 3.5:
		return 2
	case avg > 2.5:
		return 1
	default:
		return 0
	}
}

// pressurePoints bands the average pressure in PSI. Both extremes are
// risky; the inner band keeps a 5-unit buffer on each side.
func pressurePoints(avg float64) int {
	switch {
	case avg < 30 || avg > 60:
		return 2
	case avg < 35 || avg > 55:
		return 1
	default:
		return 0
	}
}

func levelFor(points int) Level {
	switch {
	case points <= 2:
		return LevelLow
	case points <= 4:
		return LevelMedium
	default:
		return LevelHigh
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
