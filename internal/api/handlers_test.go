package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fleet-telemetry/internal/storage"
)

type fakeStore struct {
	readings  []storage.Reading
	nextID    int64
	insertErr error
	listErr   error
	pingErr   error
}

func (f *fakeStore) InsertReading(ctx context.Context, reading storage.NewReading) (storage.Reading, error) {
	if f.insertErr != nil {
		return storage.Reading{}, f.insertErr
	}
	f.nextID++
	stored := storage.Reading{
		ID:           f.nextID,
		AssetID:      reading.AssetID,
		TemperatureC: reading.TemperatureC,
		VibrationRMS: reading.VibrationRMS,
		PressurePSI:  reading.PressurePSI,
		RecordedAt:   time.Now().UTC(),
	}
	f.readings = append(f.readings, stored)
	return stored, nil
}

func (f *fakeStore) ListLatestReadings(ctx context.Context, assetID string, limit int) ([]storage.Reading, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < storage.MinWindow || limit > storage.MaxWindow {
		return nil, storage.ErrInvalidWindow
	}

	matched := make([]storage.Reading, 0)
	for i := len(f.readings) - 1; i >= 0 && len(matched) < limit; i-- {
		if f.readings[i].AssetID == assetID {
			matched = append(matched, f.readings[i])
		}
	}
	return matched, nil
}

func (f *fakeStore) ListReadingsBetween(ctx context.Context, assetID string, from, to time.Time) ([]storage.Reading, error) {
	return nil, nil
}

func (f *fakeStore) CountReadings(ctx context.Context) (int64, error) {
	return int64(len(f.readings)), nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func newTestServer(store *fakeStore) *httptest.Server {
	handler := NewHandler(store, store, zerolog.Nop())
	return httptest.NewServer(NewRouter(handler, zerolog.Nop()))
}

func TestIngestStoresReading(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store)
	defer srv.Close()

	body := `{"asset_id":"aircraft-C130-017","temperature_c":90.5,"vibration_rms":2.1,"pressure_psi":44.0}`
	resp, err := http.Post(srv.URL+"/telemetry", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var got ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != 1 {
		t.Fatalf("expected id 1, got %d", got.ID)
	}
	if got.RecordedAt.IsZero() {
		t.Fatal("expected store-assigned recorded_at")
	}
	if len(store.readings) != 1 {
		t.Fatalf("expected 1 stored reading, got %d", len(store.readings))
	}
}

func TestIngestRejectsEmptyAssetID(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/telemetry", "application/json", strings.NewReader(`{"temperature_c":90}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIngestSurfacesStoreFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("connection refused")}
	srv := newTestServer(store)
	defer srv.Close()

	body := `{"asset_id":"a1","temperature_c":90,"vibration_rms":1,"pressure_psi":45}`
	resp, err := http.Post(srv.URL+"/telemetry", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", resp.StatusCode)
	}
}

func TestLatestReturnsWindowAndRisk(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store)
	defer srv.Close()

	ctx := context.Background()
	for _, temp := range []float64{90, 92, 94} {
		if _, err := store.InsertReading(ctx, storage.NewReading{
			AssetID:      "a1",
			TemperatureC: temp,
			VibrationRMS: 1,
			PressurePSI:  45,
		}); err != nil {
			t.Fatalf("seed reading: %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/telemetry/latest?asset_id=a1&limit=5")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if got.WindowRequested != 5 {
		t.Fatalf("expected window_requested 5, got %d", got.WindowRequested)
	}
	if got.WindowUsed != 3 || got.Count != 3 {
		t.Fatalf("expected window_used/count 3, got %d/%d", got.WindowUsed, got.Count)
	}
	if len(got.Readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(got.Readings))
	}
	if got.Risk == nil {
		t.Fatal("expected risk assessment")
	}
	if got.Risk.RiskPoints != 1 || got.Risk.RiskScore != 0.17 || got.Risk.RiskLevel != "LOW" {
		t.Fatalf("unexpected assessment: %+v", got.Risk)
	}
	if got.Risk.WindowUsed != 3 {
		t.Fatalf("risk window_used should match returned readings, got %d", got.Risk.WindowUsed)
	}
}

func TestLatestEmptyHistoryHasNullRisk(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/telemetry/latest?asset_id=ghost")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for unknown asset, got %d", resp.StatusCode)
	}

	var got map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if string(got["risk"]) != "null" {
		t.Fatalf("expected risk null, got %s", got["risk"])
	}
	if string(got["window_used"]) != "0" {
		t.Fatalf("expected window_used 0, got %s", got["window_used"])
	}
}

func TestLatestDefaultsLimit(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(store)
	defer srv.Close()

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		if _, err := store.InsertReading(ctx, storage.NewReading{AssetID: "a1", TemperatureC: 80, PressurePSI: 45}); err != nil {
			t.Fatalf("seed reading: %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/telemetry/latest?asset_id=a1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var got latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.WindowRequested != defaultWindow {
		t.Fatalf("expected default limit %d, got %d", defaultWindow, got.WindowRequested)
	}
	if got.WindowUsed != defaultWindow {
		t.Fatalf("expected window_used %d, got %d", defaultWindow, got.WindowUsed)
	}
}

func TestLatestRejectsInvalidLimit(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	defer srv.Close()

	for _, limit := range []string{"0", "51", "-3", "abc"} {
		resp, err := http.Get(srv.URL + "/telemetry/latest?asset_id=a1&limit=" + limit)
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit %q: expected 400, got %d", limit, resp.StatusCode)
		}
	}
}

func TestLatestRequiresAssetID(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/telemetry/latest")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without asset_id, got %d", resp.StatusCode)
	}
}

func TestLatestSurfacesStoreFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/telemetry/latest?asset_id=a1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	// A failed fetch must never be reported as successful-empty.
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store failure, got %d", resp.StatusCode)
	}
}

func TestHealthOK(t *testing.T) {
	srv := newTestServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var got healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != "ok" || got.DB != "ok" {
		t.Fatalf("expected ok/ok, got %s/%s", got.Status, got.DB)
	}
	if got.TS == "" {
		t.Fatal("expected timestamp")
	}
}

func TestHealthDegradedWhenDBUnreachable(t *testing.T) {
	store := &fakeStore{pingErr: errors.New("dial tcp: connection refused")}
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health should answer 200 even degraded, got %d", resp.StatusCode)
	}

	var got healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != "degraded" || got.DB != "unreachable" {
		t.Fatalf("expected degraded/unreachable, got %s/%s", got.Status, got.DB)
	}
	if got.Error == "" {
		t.Fatal("expected error detail")
	}
}

var _ storage.ReadingStore = (*fakeStore)(nil)
var _ storage.HealthChecker = (*fakeStore)(nil)
