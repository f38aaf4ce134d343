package port_reader

import (
	"fmt"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/line_parser"
	"github.com/VictoriaMetrics/metrics"
)

type ingestMetrics struct {
	set *metrics.Set

	lines         map[line_parser.Format]*metrics.Counter
	parseErrors   *metrics.Counter
	decodeErrors  *metrics.Counter
	readErrors    *metrics.Counter
	persistErrors *metrics.Counter
	reconnects    *metrics.Counter

	temperature *metrics.Histogram
	humidity    *metrics.Histogram
	moisture    *metrics.Histogram
}

func newIngestMetrics() *ingestMetrics {
	set := metrics.NewSet()
	m := &ingestMetrics{
		set:           set,
		lines:         map[line_parser.Format]*metrics.Counter{},
		parseErrors:   set.GetOrCreateCounter("plant_monitor_parse_errors_total"),
		decodeErrors:  set.GetOrCreateCounter("plant_monitor_decode_errors_total"),
		readErrors:    set.GetOrCreateCounter("plant_monitor_read_errors_total"),
		persistErrors: set.GetOrCreateCounter("plant_monitor_persist_errors_total"),
		reconnects:    set.GetOrCreateCounter("plant_monitor_reconnects_total"),
		temperature:   set.GetOrCreateHistogram("plant_monitor_temperature_celsius"),
		humidity:      set.GetOrCreateHistogram("plant_monitor_humidity_percent"),
		moisture:      set.GetOrCreateHistogram("plant_monitor_moisture_percent"),
	}
	for _, f := range []line_parser.Format{
		line_parser.FormatKeyed,
		line_parser.FormatLabeled,
		line_parser.FormatUnrecognized,
	} {
		m.lines[f] = set.GetOrCreateCounter(fmt.Sprintf(`plant_monitor_lines_total{format=%q}`, f.String()))
	}
	return m
}
