// Package poller implements the simulated telemetry client: it submits
// randomly generated readings for one asset and reads back the latest
// risk assessment, exercising the full ingest/retrieve path.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fleet-telemetry/internal/storage"
)

// Options parameterise the poller.
type Options struct {
	APIBase   string
	AssetID   string
	Window    int
	Timeout   time.Duration
	UserAgent string
}

// Poller posts simulated readings and fetches windowed assessments.
type Poller struct {
	opts   Options
	client *http.Client
	rng    *rand.Rand
	logger zerolog.Logger
}

// New builds a poller from options.
func New(opts Options, logger zerolog.Logger) *Poller {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.Window <= 0 {
		opts.Window = 5
	}
	opts.APIBase = strings.TrimRight(opts.APIBase, "/")

	return &Poller{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.With().Str("component", "poller").Logger(),
	}
}

// Tick performs one submit/fetch round trip. Failures are returned for
// the scheduler to log; a failed POST skips the GET since there is
// nothing new to observe.
func (p *Poller) Tick(ctx context.Context, _ time.Time) error {
	reading := p.makeReading()

	stored, err := p.submitReading(ctx, reading)
	if err != nil {
		return fmt.Errorf("submit reading: %w", err)
	}

	p.logger.Info().
		Int64("id", stored.ID).
		Time("recorded_at", stored.RecordedAt).
		Float64("temp", reading.TemperatureC).
		Float64("vib", reading.VibrationRMS).
		Float64("psi", reading.PressurePSI).
		Msg("reading submitted")

	latest, err := p.fetchLatest(ctx)
	if err != nil {
		return fmt.Errorf("fetch latest: %w", err)
	}

	event := p.logger.Info().
		Str("asset_id", latest.AssetID).
		Int("window_used", latest.WindowUsed)
	if latest.Risk != nil {
		event = event.
			Float64("risk_score", latest.Risk.RiskScore).
			Str("risk_level", latest.Risk.RiskLevel)
	}
	event.Msg("latest window fetched")

	return nil
}

// makeReading generates random telemetry values in the same ranges the
// fleet simulator has always used.
func (p *Poller) makeReading() storage.NewReading {
	return storage.NewReading{
		AssetID:      p.opts.AssetID,
		TemperatureC: roundTo(p.uniform(70.0, 150.0), 1),
		VibrationRMS: roundTo(p.uniform(1.0, 5.0), 2),
		PressurePSI:  roundTo(p.uniform(20.0, 70.0), 1),
	}
}

func (p *Poller) uniform(lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

type storedReading struct {
	ID         int64     `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
}

type riskSummary struct {
	RiskScore  float64 `json:"risk_score"`
	RiskPoints int     `json:"risk_points"`
	RiskLevel  string  `json:"risk_level"`
}

type latestSummary struct {
	AssetID    string       `json:"asset_id"`
	WindowUsed int          `json:"window_used"`
	Risk       *riskSummary `json:"risk"`
}

func (p *Poller) submitReading(ctx context.Context, reading storage.NewReading) (storedReading, error) {
	payload := map[string]any{
		"asset_id":      reading.AssetID,
		"temperature_c": reading.TemperatureC,
		"vibration_rms": reading.VibrationRMS,
		"pressure_psi":  reading.PressurePSI,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return storedReading{}, fmt.Errorf("marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.APIBase+"/telemetry", bytes.NewReader(body))
	if err != nil {
		return storedReading{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return storedReading{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return storedReading{}, fmt.Errorf("unexpected status %d from POST /telemetry", resp.StatusCode)
	}

	var stored storedReading
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return storedReading{}, fmt.Errorf("decode ingest response: %w", err)
	}
	return stored, nil
}

func (p *Poller) fetchLatest(ctx context.Context) (latestSummary, error) {
	query := url.Values{}
	query.Set("asset_id", p.opts.AssetID)
	query.Set("limit", strconv.Itoa(p.opts.Window))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.APIBase+"/telemetry/latest?"+query.Encode(), nil)
	if err != nil {
		return latestSummary{}, err
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return latestSummary{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return latestSummary{}, fmt.Errorf("unexpected status %d from GET /telemetry/latest", resp.StatusCode)
	}

	var latest latestSummary
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return latestSummary{}, fmt.Errorf("decode latest response: %w", err)
	}
	return latest, nil
}
