package aggregator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/plantdb"
)

const DefaultWindow = 24 * time.Hour

// Summarize returns avg/min/max of every reading in (now-window, now],
// rounded to one decimal. It returns nil when the window holds no readings.
func Summarize(ctx context.Context, src Source, now time.Time, window time.Duration) (*Summary, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}

	agg, err := src.GetAggregateSince(ctx, now.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("aggregate readings: %w", err)
	}
	if agg.Count == 0 {
		return nil, nil
	}

	return &Summary{
		Temperature: toStats(agg.Temperature),
		Humidity:    toStats(agg.Humidity),
		Moisture:    toStats(agg.Moisture),
		Window:      window,
		Samples:     agg.Count,
	}, nil
}

func toStats(m plantdb.MeasurementAggregate) Stats {
	return Stats{
		Avg: roundToTenth(m.Avg),
		Min: roundToTenth(m.Min),
		Max: roundToTenth(m.Max),
	}
}

// roundToTenth rounds half away from zero.
func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
