package line_parser

import (
	"errors"
	"fmt"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
)

// Format identifies which wire shape a line was recognised as.
type Format uint8

const (
	FormatUnrecognized Format = iota
	FormatKeyed               // TEMP:24.5,HUM:65.0,MOIST:55
	FormatLabeled             // Temp: 25.00°C | Humidity: 53.40% | Moisture: 1700
)

func (f Format) String() string {
	switch f {
	case FormatKeyed:
		return "keyed"
	case FormatLabeled:
		return "labeled"
	default:
		return "unrecognized"
	}
}

// Result of a single parse attempt.
// Exactly one of Reading and Err is set for the keyed and labeled formats.
// Unrecognized lines carry neither.
type Result struct {
	Format  Format
	Line    string
	Reading *types.PlantReading
	Err     error
}

func (r Result) Ok() bool {
	return r.Reading != nil && r.Err == nil
}

var ErrParse = errors.New("parse error")

// ParseError describes why a recognised line could not be turned into a reading.
type ParseError struct {
	Format Format
	Line   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s line %q: %s: %v", e.Format, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s line %q: %s", e.Format, e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
