package config

type PlantMonitorConfig struct {
	// Device path, or "auto" to pick the first USB serial port.
	SerialDevice string `toml:"serial_device"`
	Baudrate     uint   `toml:"baudrate"`
	// Serial read timeout in ms. The driver works in 100ms steps.
	ReadTimeoutMs        int `toml:"read_timeout_ms"`
	ReadErrorBackoffMs   int `toml:"read_error_backoff_ms"`
	ReconnectAfterErrors int `toml:"reconnect_after_errors"`

	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`

	// Empty means plant_data.db in the data directory.
	DatabasePath string `toml:"database_path"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}
