package port_reader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/talking_plant_monitor/pkg/latest"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/types"
	"github.com/jacobsa/go-serial/serial"
)

var (
	// Opening the serial device failed. Fatal at boot.
	ErrTransportOpen = errors.New("serial transport open failed")
	// A read on an open device failed. The reader backs off and retries.
	ErrTransportRead = errors.New("serial transport read failed")
	// A line was not valid UTF-8 and was skipped.
	ErrLineDecode = errors.New("line is not valid utf-8")
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// ReadingSink persists parsed readings. Implemented by plantdb.Store.
type ReadingSink interface {
	InsertReading(ctx context.Context, reading types.PlantReading) error
}

type Options struct {
	// Device path, or "auto" to pick the first USB serial port.
	Device   string
	BaudRate uint
	// Serial inter character timeout. Reads return empty after this long.
	ReadTimeout time.Duration
	// Pause after a failed read before trying again.
	ReadErrorBackoff time.Duration
	// Consecutive read errors before the port is reopened. 0 never reopens.
	ReconnectAfterErrors int
	// Upper bound of the reopen backoff, which starts at one second.
	MaxReconnectDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = time.Second
	}
	if o.ReadErrorBackoff <= 0 {
		o.ReadErrorBackoff = time.Second
	}
	if o.MaxReconnectDelay <= 0 {
		o.MaxReconnectDelay = 60 * time.Second
	}
	return o
}

// ReplaySummary counts what happened to each line of a replayed capture.
type ReplaySummary struct {
	Lines         int `json:"lines"`
	Readings      int `json:"readings"`
	Unrecognized  int `json:"unrecognized"`
	ParseErrors   int `json:"parse_errors"`
	DecodeErrors  int `json:"decode_errors"`
	PersistErrors int `json:"persist_errors"`
}

// SensorReader turns the serial byte stream into readings.
// Run and Replay must not be used concurrently.
type SensorReader struct {
	opts    Options
	cache   *latest.Store
	sink    ReadingSink
	logger  *slog.Logger
	metrics *ingestMetrics

	openPort    func(serial.OpenOptions) (io.ReadWriteCloser, error)
	resolvePort func(device string) (string, error)
	now         func() time.Time
	clock       func() time.Time
	sleep       func(ctx context.Context, d time.Duration) bool

	state      atomic.Int32
	serialPort io.ReadWriteCloser
	portName   string
	pending    []byte
	lastStamp  time.Time
}
