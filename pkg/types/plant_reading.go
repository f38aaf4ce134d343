package types

import (
	"encoding/json"
	"time"
)

// PlantReading is one canonical sample from the plant sensor.
// Moisture is always a 0-100 percentage, never a raw sensor code.
type PlantReading struct {
	Temperature float64   `json:"temperature"` // °C
	Humidity    float64   `json:"humidity"`    // %
	Moisture    int       `json:"moisture"`    // % soil moisture
	Timestamp   time.Time `json:"timestamp"`   // Time of ingestion
}

func (r PlantReading) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return data
}

func PlantReadingFromJsonBytes(data []byte) *PlantReading {
	var reading PlantReading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil
	}
	return &reading
}
