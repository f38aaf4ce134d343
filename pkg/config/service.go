package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/logging"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/pathing"
)

var ErrInvalidConfig = errors.New("invalid config")

func Default() *PlantMonitorConfig {
	return &PlantMonitorConfig{
		SerialDevice:         "/dev/ttyUSB0",
		Baudrate:             115200,
		ReadTimeoutMs:        1000,
		ReadErrorBackoffMs:   1000,
		ReconnectAfterErrors: 10,
		ListenAddress:        "0.0.0.0",
		ListenPort:           5000,
		DatabasePath:         "",
		LogLevel:             "info",
		LogFormat:            logging.FormatText,
	}
}

// Load reads the TOML file at path, writing the defaults there first if it
// does not exist. Environment overrides are applied before validation.
func Load(path string) (*PlantMonitorConfig, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path, cfg); err != nil {
			return nil, err
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefault(path string, cfg *PlantMonitorConfig) error {
	if err := pathing.EnsureDirs(filepath.Dir(path)); err != nil {
		return err
	}
	cfgFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer cfgFile.Close()
	if err := toml.NewEncoder(cfgFile).Encode(cfg); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

func (c *PlantMonitorConfig) applyEnvOverrides() {
	if v := os.Getenv("PLANT_SERIAL_DEVICE"); v != "" {
		c.SerialDevice = v
	}
	if v := os.Getenv("PLANT_BAUDRATE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Baudrate = uint(n)
		}
	}
	if v := os.Getenv("PLANT_LISTEN_ADDRESS"); v != "" {
		c.ListenAddress = v
	}
	if v := os.Getenv("PLANT_LISTEN_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ListenPort = n
		}
	}
	if v := os.Getenv("PLANT_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("PLANT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PLANT_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

func (c *PlantMonitorConfig) Validate() error {
	var errs []error
	if c.SerialDevice == "" {
		errs = append(errs, errors.New("serial_device is empty"))
	}
	if c.Baudrate == 0 {
		errs = append(errs, errors.New("baudrate must be positive"))
	}
	if c.ReadTimeoutMs < 100 || c.ReadTimeoutMs > 25500 {
		errs = append(errs, fmt.Errorf("read_timeout_ms must be within 100..25500, got %d", c.ReadTimeoutMs))
	}
	if c.ReadErrorBackoffMs < 0 {
		errs = append(errs, fmt.Errorf("read_error_backoff_ms must not be negative, got %d", c.ReadErrorBackoffMs))
	}
	if c.ReconnectAfterErrors < 0 {
		errs = append(errs, fmt.Errorf("reconnect_after_errors must not be negative, got %d", c.ReconnectAfterErrors))
	}
	if c.ListenPort < 1 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen_port must be within 1..65535, got %d", c.ListenPort))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if !logging.ValidFormat(c.LogFormat) {
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *PlantMonitorConfig) ListenAddr() string {
	return net.JoinHostPort(c.ListenAddress, strconv.Itoa(c.ListenPort))
}

func (c *PlantMonitorConfig) DatabaseFile() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return pathing.GetReadingsDbPath()
}

func (c *PlantMonitorConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

func (c *PlantMonitorConfig) ReadErrorBackoff() time.Duration {
	return time.Duration(c.ReadErrorBackoffMs) * time.Millisecond
}
