package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/3axap4eHko/litra/internal/constants"
)

// Config holds the settings consumed at startup. The schedule reads its
// own keys (geoLocation, dayPattern.*) straight from viper.
type Config struct {
	ReconnectInterval time.Duration `json:"reconnectInterval"`
	Adaptive          struct {
		Enabled bool `json:"enabled"`
	} `json:"adaptive"`
}

// Dir returns the application config directory, creating it if needed.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "litra")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DBPath is where the last applied settings live.
func DBPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "litra.db"), nil
}

// LogPath is the rotated log file used in GUI mode.
func LogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "litra.log"), nil
}

// ReadConfig loads config.yaml from the config dir or the working
// directory; a missing file just means defaults.
func ReadConfig(logger *log.Logger) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if dir, err := Dir(); err == nil {
		viper.AddConfigPath(dir)
	}
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			logger.Warnf("error reading config file, using defaults: %v", err)
		}
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Warnf("error parsing config file, using defaults: %v", err)
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = constants.DefaultReconnectInterval
	}

	return &cfg
}

func setDefaults() {
	viper.SetDefault("reconnectInterval", constants.DefaultReconnectInterval.String())
	viper.SetDefault("adaptive.enabled", false)

	// warm and dim outside daylight, cool and bright through the middle of
	// the day
	viper.SetDefault("dayPattern.type", "dynamic")
	viper.SetDefault("dayPattern.default", map[string]any{
		"temperature": 2700,
		"brightness":  40,
	})
	viper.SetDefault("dayPattern.pattern", []map[string]any{
		{"time": "sunrise", "temperature": 4000, "brightness": 60},
		{"time": "sunrise+2h", "temperature": 6500, "brightness": 100},
		{"time": "sunset-2h", "temperature": 5000, "brightness": 80},
		{"time": "sunset", "temperature": 2700, "brightness": 40},
	})
}

// LogLevelFromEnv reads the verbosity from LITRA_LOG (debug, info, warn,
// error), defaulting to info.
func LogLevelFromEnv() log.Level {
	raw := os.Getenv(constants.LogLevelEnvVar)
	if raw == "" {
		return log.InfoLevel
	}
	level, err := log.ParseLevel(raw)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
