package plantdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
)

var ErrPersistenceWrite = errors.New("persisting reading failed")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InsertReading(ctx context.Context, reading types.PlantReading) error {
	row := NewPlantDbReading(reading)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO readings (temperature, humidity, moisture, timestamp) "+
			"VALUES (?, ?, ?, ?)",
		row.Temperature,
		row.Humidity,
		row.Moisture,
		row.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	return nil
}

// GetReadingsSince returns readings newer than since, newest first.
func (s *Store) GetReadingsSince(ctx context.Context, since time.Time) ([]types.PlantReading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, temperature, humidity, moisture, timestamp
		FROM readings
		WHERE timestamp > ?
		ORDER BY timestamp DESC, id DESC
	`, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := []types.PlantReading{}
	for rows.Next() {
		var r PlantDbReading
		if err := rows.Scan(&r.ID, &r.Temperature, &r.Humidity, &r.Moisture, &r.Timestamp); err != nil {
			return nil, err
		}
		readings = append(readings, r.ToPlantReading())
	}
	return readings, rows.Err()
}

func (s *Store) GetAggregateSince(ctx context.Context, since time.Time) (AggregateReadings, error) {
	var (
		agg              AggregateReadings
		tAvg, tMin, tMax sql.NullFloat64
		hAvg, hMin, hMax sql.NullFloat64
		mAvg, mMin, mMax sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			AVG(temperature), MIN(temperature), MAX(temperature),
			AVG(humidity), MIN(humidity), MAX(humidity),
			AVG(moisture), MIN(moisture), MAX(moisture)
		FROM readings
		WHERE timestamp > ?
	`, since.UnixMilli()).Scan(
		&agg.Count,
		&tAvg, &tMin, &tMax,
		&hAvg, &hMin, &hMax,
		&mAvg, &mMin, &mMax,
	)
	if err != nil {
		return AggregateReadings{}, err
	}
	if agg.Count == 0 {
		return agg, nil
	}

	agg.Temperature = MeasurementAggregate{Avg: tAvg.Float64, Min: tMin.Float64, Max: tMax.Float64}
	agg.Humidity = MeasurementAggregate{Avg: hAvg.Float64, Min: hMin.Float64, Max: hMax.Float64}
	agg.Moisture = MeasurementAggregate{Avg: mAvg.Float64, Min: mMin.Float64, Max: mMax.Float64}
	return agg, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
