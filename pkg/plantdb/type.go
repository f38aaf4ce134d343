package plantdb

import (
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
)

// Row layout of the readings table.
type PlantDbReading struct {
	ID          int64   `db:"id"`
	Temperature float64 `db:"temperature"`
	Humidity    float64 `db:"humidity"`
	Moisture    int     `db:"moisture"`
	Timestamp   int64   `db:"timestamp"` // unix milliseconds
}

func NewPlantDbReading(r types.PlantReading) PlantDbReading {
	return PlantDbReading{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Moisture:    r.Moisture,
		Timestamp:   r.Timestamp.UnixMilli(),
	}
}

func (r PlantDbReading) ToPlantReading() types.PlantReading {
	return types.PlantReading{
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Moisture:    r.Moisture,
		Timestamp:   time.UnixMilli(r.Timestamp).UTC(),
	}
}

type MeasurementAggregate struct {
	Avg float64
	Min float64
	Max float64
}

// AggregateReadings summarizes every reading in a time window.
// The measurement fields are zero when Count is zero.
type AggregateReadings struct {
	Count       int64
	Temperature MeasurementAggregate
	Humidity    MeasurementAggregate
	Moisture    MeasurementAggregate
}
