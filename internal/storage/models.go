package storage

import "time"

// Reading is a persisted sensor observation for an asset. Rows are
// immutable once inserted; id and recorded_at are assigned by the store.
type Reading struct {
	ID           int64     `json:"id"`
	AssetID      string    `json:"asset_id"`
	TemperatureC float64   `json:"temperature_c"`
	VibrationRMS float64   `json:"vibration_rms"`
	PressurePSI  float64   `json:"pressure_psi"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// NewReading carries the client-supplied fields of a reading before the
// store has assigned an id and timestamp.
type NewReading struct {
	AssetID      string
	TemperatureC float64
	VibrationRMS float64
	PressurePSI  float64
}
