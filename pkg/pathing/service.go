package pathing

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	ConfigDirEnv = "PLANT_MONITOR_CONFIG_DIR"
	DataDirEnv   = "PLANT_MONITOR_DATA_DIR"

	defaultConfigDir = "/etc/plant_monitor"
	defaultDataDir   = "/var/lib/plant_monitor"
)

// EnsureDirs creates every directory that does not exist yet.
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func GetReadingsDbPath() string {
	return filepath.Join(GetDataDir(), "plant_data.db")
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "plant_monitor.toml")
}

func GetDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	return defaultDataDir
}

func GetConfigDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return defaultConfigDir
}
