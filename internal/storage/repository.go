package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrInvalidWindow indicates a latest-window limit outside the allowed range.
	ErrInvalidWindow = errors.New("storage: window limit must be between 1 and 50")
)

// Window limit bounds for latest-reading retrieval.
const (
	MinWindow = 1
	MaxWindow = 50
)

const (
	insertReadingSQL = `INSERT INTO asset_telemetry (
        asset_id,
        temperature_c,
        vibration_rms,
        pressure_psi
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, recorded_at;`

	listLatestReadingsSQL = `SELECT
        id,
        asset_id,
        temperature_c,
        vibration_rms,
        pressure_psi,
        recorded_at
    FROM asset_telemetry
    WHERE asset_id = $1
    ORDER BY recorded_at DESC, id DESC
    LIMIT $2;`

	listReadingsBetweenSQL = `SELECT
        id,
        asset_id,
        temperature_c,
        vibration_rms,
        pressure_psi,
        recorded_at
    FROM asset_telemetry
    WHERE asset_id = $1
      AND recorded_at >= $2
      AND recorded_at < $3
    ORDER BY recorded_at;`

	countReadingsSQL = `SELECT COUNT(*) FROM asset_telemetry;`
)

// ReadingStore defines operations for telemetry persistence.
type ReadingStore interface {
	InsertReading(ctx context.Context, reading NewReading) (Reading, error)
	ListLatestReadings(ctx context.Context, assetID string, limit int) ([]Reading, error)
	ListReadingsBetween(ctx context.Context, assetID string, from, to time.Time) ([]Reading, error)
	CountReadings(ctx context.Context) (int64, error)
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Store provides PostgreSQL-backed access to asset telemetry.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Ping verifies connectivity to the database.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// InsertReading persists one reading and returns the stored row with the
// database-assigned id and timestamp.
func (s *Store) InsertReading(ctx context.Context, reading NewReading) (Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return Reading{}, err
	}

	stored := Reading{
		AssetID:      reading.AssetID,
		TemperatureC: reading.TemperatureC,
		VibrationRMS: reading.VibrationRMS,
		PressurePSI:  reading.PressurePSI,
	}

	row := pool.QueryRow(ctx, insertReadingSQL,
		reading.AssetID,
		reading.TemperatureC,
		reading.VibrationRMS,
		reading.PressurePSI,
	)
	if scanErr := row.Scan(&stored.ID, &stored.RecordedAt); scanErr != nil {
		return Reading{}, fmt.Errorf("insert reading: %w", scanErr)
	}

	return stored, nil
}

// ListLatestReadings returns up to limit readings for an asset ordered
// most-recent-first, ties broken by descending id. An asset with no
// history yields an empty slice, not an error.
func (s *Store) ListLatestReadings(ctx context.Context, assetID string, limit int) ([]Reading, error) {
	if limit < MinWindow || limit > MaxWindow {
		return nil, ErrInvalidWindow
	}

	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listLatestReadingsSQL, assetID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list latest readings: %w", queryErr)
	}
	defer rows.Close()

	return collectReadings(rows, limit)
}

// ListReadingsBetween lists an asset's readings within [from, to) in
// ascending time order.
func (s *Store) ListReadingsBetween(ctx context.Context, assetID string, from, to time.Time) ([]Reading, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listReadingsBetweenSQL, assetID, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list readings between: %w", queryErr)
	}
	defer rows.Close()

	return collectReadings(rows, 0)
}

// CountReadings counts stored readings across all assets.
func (s *Store) CountReadings(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countReadingsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count readings: %w", scanErr)
	}
	return count, nil
}

func collectReadings(rows pgx.Rows, hint int) ([]Reading, error) {
	readings := make([]Reading, 0, hint)
	for rows.Next() {
		var r Reading
		if err := rows.Scan(
			&r.ID,
			&r.AssetID,
			&r.TemperatureC,
			&r.VibrationRMS,
			&r.PressurePSI,
			&r.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return readings, nil
}

var _ ReadingStore = (*Store)(nil)
var _ HealthChecker = (*Store)(nil)
