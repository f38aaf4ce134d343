package aggregator

import (
	"context"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/plantdb"
)

// Source is the read side of the reading store.
type Source interface {
	GetAggregateSince(ctx context.Context, since time.Time) (plantdb.AggregateReadings, error)
}

type Stats struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Summary struct {
	Temperature Stats `json:"temperature"`
	Humidity    Stats `json:"humidity"`
	Moisture    Stats `json:"moisture"`

	Window  time.Duration `json:"-"`
	Samples int64         `json:"-"`
}
