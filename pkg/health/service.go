// Package health derives a plant care status from a reading.
package health

import (
	"fmt"
	"math"
	"strconv"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
)

type Status string

const (
	StatusUnknown   Status = "Unknown"
	StatusHealthy   Status = "Healthy"
	StatusFair      Status = "Fair"
	StatusNeedsCare Status = "Needs Care"
)

// Comfort bands, inclusive.
const (
	MinTemperature = 18.0
	MaxTemperature = 29.0
	MinHumidity    = 40.0
	MaxHumidity    = 90.0

	MoistureDryThreshold = 30
	MoistureWetThreshold = 75
)

const waitingMessage = "Waiting for data from sensor..."

type Report struct {
	Status      Status   `json:"status"`
	Message     string   `json:"message,omitempty"`
	Issues      []string `json:"issues"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Moisture    *int     `json:"moisture"`
}

// Evaluate lists every out of band measurement in r and grades the result.
func Evaluate(r types.PlantReading) Report {
	issues := []string{}

	if r.Temperature < MinTemperature || r.Temperature > MaxTemperature {
		issues = append(issues, fmt.Sprintf("Temperature out of range: %s°C", formatValue(r.Temperature)))
	}
	if r.Humidity < MinHumidity || r.Humidity > MaxHumidity {
		issues = append(issues, fmt.Sprintf("Humidity out of range: %s%%", formatValue(r.Humidity)))
	}
	if r.Moisture < MoistureDryThreshold {
		issues = append(issues, "Soil too dry - needs water!")
	} else if r.Moisture > MoistureWetThreshold {
		issues = append(issues, "Soil too wet - reduce watering")
	}

	status := StatusHealthy
	switch {
	case len(issues) == 1:
		status = StatusFair
	case len(issues) > 1:
		status = StatusNeedsCare
	}

	temp, hum, moist := r.Temperature, r.Humidity, r.Moisture
	return Report{
		Status:      status,
		Issues:      issues,
		Temperature: &temp,
		Humidity:    &hum,
		Moisture:    &moist,
	}
}

// EvaluateLatest is Evaluate for a value that may not exist yet.
func EvaluateLatest(r types.PlantReading, ok bool) Report {
	if !ok {
		return Report{
			Status:  StatusUnknown,
			Message: waitingMessage,
			Issues:  []string{},
		}
	}
	return Evaluate(r)
}

// formatValue prints whole numbers with one decimal (30.0) and keeps
// the shortest exact form otherwise (24.35).
func formatValue(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
