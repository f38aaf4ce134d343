package port_reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/latest"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/line_parser"
	"github.com/VictoriaMetrics/metrics"
	"github.com/jacobsa/go-serial/serial"
)

// Longest unterminated tail kept between reads. Anything longer is garbage.
const maxLineLength = 4096

const readChunkSize = 256

var errDeviceGone = errors.New("empty read returned before the timeout, device gone")

type lineOutcome uint8

const (
	outcomeEmpty lineOutcome = iota
	outcomeReading
	outcomeUnrecognized
	outcomeParseError
	outcomeDecodeError
	outcomePersistError
)

// NewSensorReader creates a reader. Call Connect before Run.
func NewSensorReader(opts Options, cache *latest.Store, sink ReadingSink, logger *slog.Logger) *SensorReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorReader{
		opts:        opts.withDefaults(),
		cache:       cache,
		sink:        sink,
		logger:      logger.With("component", "port_reader"),
		metrics:     newIngestMetrics(),
		openPort:    serial.Open,
		resolvePort: ResolveDevice,
		now:         time.Now,
		clock:       time.Now,
		sleep:       sleepCtx,
	}
}

func (p *SensorReader) State() State {
	return State(p.state.Load())
}

// Metrics exposes the ingest counters for registration with the /metrics handler.
func (p *SensorReader) Metrics() *metrics.Set {
	return p.metrics.set
}

// Connect opens the serial device once. Errors wrap ErrTransportOpen.
func (p *SensorReader) Connect() error {
	p.setState(StateConnecting)
	if err := p.open(); err != nil {
		p.setState(StateDisconnected)
		return err
	}
	p.setState(StateStreaming)
	return nil
}

// Run streams lines from the device until ctx is cancelled.
// Read failures never end it. The port is closed on return.
func (p *SensorReader) Run(ctx context.Context) error {
	defer p.disconnect()

	chunk := make([]byte, readChunkSize)
	consecutiveErrors := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		if p.serialPort == nil {
			if !p.reconnect(ctx) {
				return nil
			}
			consecutiveErrors = 0
		}

		start := p.clock()
		n, err := p.serialPort.Read(chunk)
		if ctx.Err() != nil {
			return nil
		}
		if n > 0 {
			consecutiveErrors = 0
			p.feed(ctx, chunk[:n])
		}
		if n == 0 && errors.Is(err, io.EOF) && p.clock().Sub(start) < p.opts.ReadTimeout/2 {
			// A tty whose device went away returns EOF at once instead of
			// waiting out the timeout.
			err = errDeviceGone
		}
		if err == nil || errors.Is(err, io.EOF) {
			// EOF is how a timed out serial read reports no data.
			continue
		}

		consecutiveErrors++
		p.metrics.readErrors.Inc()
		p.logger.Warn("serial read failed",
			"error", fmt.Errorf("%w: %w", ErrTransportRead, err),
			"consecutive", consecutiveErrors,
		)

		if p.opts.ReconnectAfterErrors > 0 && consecutiveErrors >= p.opts.ReconnectAfterErrors {
			p.logger.Error("too many consecutive read errors, reopening port",
				"errors", consecutiveErrors,
				"port", p.portName,
			)
			p.disconnect()
			continue
		}

		if !p.sleep(ctx, p.opts.ReadErrorBackoff) {
			return nil
		}
	}
}

// Replay runs every line of r through the same handling as Run.
// A final line without a newline is still processed.
func (p *SensorReader) Replay(ctx context.Context, r io.Reader) (ReplaySummary, error) {
	var summary ReplaySummary
	p.pending = p.pending[:0]

	chunk := make([]byte, 4*readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		n, err := r.Read(chunk)
		if n > 0 {
			for _, outcome := range p.feed(ctx, chunk[:n]) {
				summary.add(outcome)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}
	}

	if len(p.pending) > 0 {
		tail := p.pending
		p.pending = nil
		summary.add(p.handleLine(ctx, tail))
	}
	return summary, nil
}

func (s *ReplaySummary) add(o lineOutcome) {
	if o == outcomeEmpty {
		return
	}
	s.Lines++
	switch o {
	case outcomeReading:
		s.Readings++
	case outcomeUnrecognized:
		s.Unrecognized++
	case outcomeParseError:
		s.ParseErrors++
	case outcomeDecodeError:
		s.DecodeErrors++
	case outcomePersistError:
		// the reading still reached the cache
		s.Readings++
		s.PersistErrors++
	}
}

// feed appends data to the pending buffer and handles every complete line.
func (p *SensorReader) feed(ctx context.Context, data []byte) []lineOutcome {
	p.pending = append(p.pending, data...)

	var outcomes []lineOutcome
	for {
		idx := bytes.IndexByte(p.pending, '\n')
		if idx < 0 {
			break
		}
		line := p.pending[:idx]
		outcomes = append(outcomes, p.handleLine(ctx, line))
		p.pending = p.pending[idx+1:]
	}

	if len(p.pending) > maxLineLength {
		p.metrics.decodeErrors.Inc()
		p.logger.Warn("dropping unterminated input", "bytes", len(p.pending))
		p.pending = nil
		outcomes = append(outcomes, outcomeDecodeError)
	}

	// Compact so the backing array does not grow with stream length.
	p.pending = append([]byte(nil), p.pending...)
	return outcomes
}

func (p *SensorReader) handleLine(ctx context.Context, raw []byte) lineOutcome {
	if !utf8.Valid(raw) {
		p.metrics.decodeErrors.Inc()
		p.logger.Warn("skipping line", "error", ErrLineDecode, "bytes", len(raw))
		return outcomeDecodeError
	}

	line := strings.TrimSpace(string(raw))
	if line == "" {
		return outcomeEmpty
	}

	result := line_parser.Parse(line, p.now())
	p.metrics.lines[result.Format].Inc()

	switch {
	case result.Format == line_parser.FormatUnrecognized:
		p.logger.Debug("device output", "line", line)
		return outcomeUnrecognized
	case result.Err != nil:
		p.metrics.parseErrors.Inc()
		p.logger.Warn("could not parse line", "error", result.Err, "format", result.Format.String())
		return outcomeParseError
	}

	reading := *result.Reading
	reading.Timestamp = p.stamp(reading.Timestamp)

	p.cache.Set(reading)
	p.metrics.temperature.Update(reading.Temperature)
	p.metrics.humidity.Update(reading.Humidity)
	p.metrics.moisture.Update(float64(reading.Moisture))

	if err := p.sink.InsertReading(ctx, reading); err != nil {
		p.metrics.persistErrors.Inc()
		p.logger.Error("failed to store reading", "error", err)
		return outcomePersistError
	}

	p.logger.Debug("reading stored",
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"moisture", reading.Moisture,
	)
	return outcomeReading
}

// stamp keeps timestamps non-decreasing when the wall clock steps back.
func (p *SensorReader) stamp(at time.Time) time.Time {
	if at.Before(p.lastStamp) {
		at = p.lastStamp
	}
	p.lastStamp = at
	return at
}

func (p *SensorReader) open() error {
	name, err := p.resolvePort(p.opts.Device)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportOpen, err)
	}

	options := serial.OpenOptions{
		PortName:              name,
		BaudRate:              p.opts.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: uint(p.opts.ReadTimeout.Milliseconds()),
		MinimumReadSize:       0,
	}

	port, err := p.openPort(options)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransportOpen, name, err)
	}

	p.serialPort = port
	p.portName = name
	p.pending = nil
	p.logger.Info("connected to sensor", "port", name, "baudrate", p.opts.BaudRate)
	return nil
}

// reconnect reopens the port with exponential backoff until it works
// or ctx is cancelled.
func (p *SensorReader) reconnect(ctx context.Context) bool {
	p.setState(StateConnecting)
	delay := time.Second
	attempt := 0

	for {
		if ctx.Err() != nil {
			p.setState(StateDisconnected)
			return false
		}

		err := p.open()
		if err == nil {
			p.metrics.reconnects.Inc()
			p.setState(StateStreaming)
			return true
		}

		attempt++
		p.logger.Warn("reconnect failed", "attempt", attempt, "error", err, "retry_in", delay)
		if !p.sleep(ctx, delay) {
			p.setState(StateDisconnected)
			return false
		}

		delay *= 2
		if delay > p.opts.MaxReconnectDelay {
			delay = p.opts.MaxReconnectDelay
		}
	}
}

func (p *SensorReader) disconnect() {
	if p.serialPort == nil {
		return
	}
	if err := p.serialPort.Close(); err != nil {
		p.logger.Warn("closing serial port", "error", err)
	}
	p.serialPort = nil
	p.setState(StateDisconnected)
	p.logger.Info("disconnected from sensor", "port", p.portName)
}

func (p *SensorReader) setState(s State) {
	p.state.Store(int32(s))
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
