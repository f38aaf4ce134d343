package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/talking_plant_monitor/pkg/pathing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PLANT_SERIAL_DEVICE", "PLANT_BAUDRATE", "PLANT_LISTEN_ADDRESS", "PLANT_LISTEN_PORT",
		"PLANT_DATABASE_PATH", "PLANT_LOG_LEVEL", "PLANT_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_WritesDefaultsOnFirstRun(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "etc", "plant_monitor.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.FileExists(t, path)

	var onDisk PlantMonitorConfig
	_, err = toml.DecodeFile(path, &onDisk)
	require.NoError(t, err)
	assert.Equal(t, *Default(), onDisk)
}

func TestLoad_ExistingFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "plant_monitor.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
serial_device = "auto"
baudrate = 9600
listen_port = 8080
log_format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.SerialDevice)
	assert.Equal(t, uint(9600), cfg.Baudrate)
	assert.Equal(t, 8080, cfg.ListenPort)
	assert.Equal(t, "json", cfg.LogFormat)
	// keys missing from the file keep their defaults
	assert.Equal(t, 1000, cfg.ReadTimeoutMs)
	assert.Equal(t, 10, cfg.ReconnectAfterErrors)
	assert.Equal(t, "0.0.0.0", cfg.ListenAddress)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "plant_monitor.toml")
	t.Setenv("PLANT_SERIAL_DEVICE", "/dev/ttyACM1")
	t.Setenv("PLANT_BAUDRATE", "57600")
	t.Setenv("PLANT_LISTEN_ADDRESS", "127.0.0.1")
	t.Setenv("PLANT_LISTEN_PORT", "9000")
	t.Setenv("PLANT_DATABASE_PATH", "/tmp/plants.db")
	t.Setenv("PLANT_LOG_LEVEL", "debug")
	t.Setenv("PLANT_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.SerialDevice)
	assert.Equal(t, uint(57600), cfg.Baudrate)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())
	assert.Equal(t, "/tmp/plants.db", cfg.DatabaseFile())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_BadNumericEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PLANT_LISTEN_PORT", "http")

	cfg, err := Load(filepath.Join(t.TempDir(), "plant_monitor.toml"))
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.ListenPort)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "plant_monitor.toml")
	require.NoError(t, os.WriteFile(path, []byte("baudrate = \"fast\""), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cfg := Default()
	cfg.SerialDevice = ""
	cfg.Baudrate = 0
	cfg.ListenPort = 70000
	cfg.ReadTimeoutMs = 50
	cfg.LogLevel = "loud"
	cfg.LogFormat = "xml"
	cfg.ReconnectAfterErrors = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, want := range []string{"serial_device", "baudrate", "listen_port", "read_timeout_ms", "loud", "xml", "reconnect_after_errors"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDerivedValues(t *testing.T) {
	t.Setenv(pathing.DataDirEnv, "/srv/plants")
	cfg := Default()

	assert.Equal(t, "/srv/plants/plant_data.db", cfg.DatabaseFile())
	assert.Equal(t, "0.0.0.0:5000", cfg.ListenAddr())
	assert.Equal(t, time.Second, cfg.ReadTimeout())
	assert.Equal(t, time.Second, cfg.ReadErrorBackoff())
}
