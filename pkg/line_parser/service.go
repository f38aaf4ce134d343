package line_parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/calibration"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
	"github.com/sigurn/crc16"
)

// Moisture used when a labeled line carries no moisture figure.
const DefaultMoisturePercent = 50

const (
	keyedPrefix = "TEMP:"

	tempLabel     = "Temp:"
	humidityLabel = "Humidity:"
	moistureLabel = "Moisture:"
	tempUnit      = "°C"
	humidityUnit  = "%"
)

var keyedFieldOrder = [3]string{"TEMP", "HUM", "MOIST"}

var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// Classify picks the wire format of a line. Keyed wins over labeled.
func Classify(line string) Format {
	if strings.HasPrefix(line, keyedPrefix) {
		return FormatKeyed
	}
	if strings.Contains(line, tempLabel) && strings.Contains(line, humidityLabel) {
		return FormatLabeled
	}
	return FormatUnrecognized
}

// Parse turns a trimmed line into a reading stamped with at.
// It never panics and never returns a partially filled reading.
func Parse(line string, at time.Time) Result {
	format := Classify(line)
	result := Result{Format: format, Line: line}

	var (
		reading *types.PlantReading
		err     error
	)
	switch format {
	case FormatKeyed:
		reading, err = parseKeyed(line)
	case FormatLabeled:
		reading, err = parseLabeled(line)
	default:
		return result
	}

	if err != nil {
		result.Err = err
		return result
	}
	reading.Timestamp = at
	result.Reading = reading
	return result
}

// parseKeyed handles TEMP:<f>,HUM:<f>,MOIST:<i>[,...][*CRC16]
func parseKeyed(line string) (*types.PlantReading, error) {
	fail := func(reason string, err error) (*types.PlantReading, error) {
		return nil, &ParseError{Format: FormatKeyed, Line: line, Reason: reason, Err: err}
	}

	body := line
	if idx := strings.LastIndexByte(line, '*'); idx >= 0 {
		body = line[:idx]
		if !validChecksum(body, line[idx+1:]) {
			return fail("checksum mismatch", nil)
		}
	}

	parts := strings.Split(body, ",")
	if len(parts) < len(keyedFieldOrder) {
		return fail(fmt.Sprintf("expected %d fields, got %d", len(keyedFieldOrder), len(parts)), nil)
	}

	values := make([]string, len(keyedFieldOrder))
	for i, key := range keyedFieldOrder {
		k, v, ok := strings.Cut(parts[i], ":")
		if !ok || strings.TrimSpace(k) != key {
			return fail("missing field "+key, nil)
		}
		values[i] = strings.TrimSpace(v)
	}

	temp, err := parseFinite(values[0])
	if err != nil {
		return fail("invalid TEMP", err)
	}
	hum, err := parseFinite(values[1])
	if err != nil {
		return fail("invalid HUM", err)
	}
	moistRaw, err := strconv.Atoi(values[2])
	if err != nil {
		return fail("invalid MOIST", err)
	}
	moist, err := calibration.NormalizeMoisture(moistRaw)
	if err != nil {
		return fail("invalid MOIST", err)
	}

	return &types.PlantReading{
		Temperature: temp,
		Humidity:    hum,
		Moisture:    moist,
	}, nil
}

// parseLabeled handles free text such as
// "Temp: 25.00°C | Humidity: 53.40% | Moisture: 1700"
func parseLabeled(line string) (*types.PlantReading, error) {
	fail := func(reason string, err error) (*types.PlantReading, error) {
		return nil, &ParseError{Format: FormatLabeled, Line: line, Reason: reason, Err: err}
	}

	tempStr, ok := valueBefore(line, tempLabel, tempUnit)
	if !ok {
		return fail("temperature not terminated by "+tempUnit, nil)
	}
	temp, err := parseFinite(tempStr)
	if err != nil {
		return fail("invalid temperature", err)
	}

	humStr, ok := valueBefore(line, humidityLabel, humidityUnit)
	if !ok {
		return fail("humidity not terminated by "+humidityUnit, nil)
	}
	hum, err := parseFinite(humStr)
	if err != nil {
		return fail("invalid humidity", err)
	}

	moist := DefaultMoisturePercent
	if _, after, found := strings.Cut(line, moistureLabel); found {
		moistVal, err := parseFinite(leadingNumber(after))
		if err != nil {
			return fail("invalid moisture", err)
		}
		moist, err = calibration.NormalizeMoisture(int(moistVal))
		if err != nil {
			return fail("invalid moisture", err)
		}
	}

	return &types.PlantReading{
		Temperature: temp,
		Humidity:    hum,
		Moisture:    moist,
	}, nil
}

// valueBefore returns the trimmed text between label and the next unit marker.
func valueBefore(line, label, unit string) (string, bool) {
	_, after, found := strings.Cut(line, label)
	if !found {
		return "", false
	}
	value, _, found := strings.Cut(after, unit)
	if !found {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// leadingNumber returns the first whitespace, '%' or '|' delimited token.
func leadingNumber(s string) string {
	s = strings.TrimSpace(s)
	end := strings.IndexAny(s, "% \t|,")
	if end >= 0 {
		s = s[:end]
	}
	return s
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func validChecksum(body, given string) bool {
	given = strings.TrimSpace(given)
	if len(given) != 4 {
		return false
	}
	calc := crc16.Checksum([]byte(body), crcTable)
	return strings.EqualFold(given, fmt.Sprintf("%04X", calc))
}
