// internal/config/config.go
//
// Station configuration. Every scanning station keeps a .floorscan/ folder
// next to where the binary runs: a yaml file for scanner tuning plus a logs
// directory. Secrets (database DSN, identity credentials) never live in the
// yaml file — they come from the environment.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tojem/floorscan/internal/scan"
)

// FloorscanDir is the name of the directory created at each station.
const FloorscanDir = ".floorscan"

const (
	// SourceDevice reads decodes from a local scanner device.
	SourceDevice = "device"
	// SourceRedis consumes decodes a camera bridge publishes over Redis.
	SourceRedis = "redis"
)

const defaultStationConfigYAML = `# floorscan station configuration
version: 1

scanner:
  # device: a line-oriented scanner at device_path (USB/serial QR readers)
  # redis:  a camera bridge publishing decodes on redis_channel
  source: device
  device_path: /dev/ttyACM0
  redis_channel: floorscan:decodes

  # Seconds of inactivity before an armed scan gives up and returns to idle.
  timeout_seconds: 60

  # Capture settings forwarded to camera-bridge decoders.
  capture:
    target_fps: 10
    box_width: 250
    box_height: 250
    remember_last_camera: true
    prefer_rear_camera: true
`

// ScannerConfig tunes the scan source and session.
type ScannerConfig struct {
	Source         string      `yaml:"source"`
	DevicePath     string      `yaml:"device_path"`
	RedisChannel   string      `yaml:"redis_channel"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
	Capture        scan.Config `yaml:"capture"`
}

// StationConfig models .floorscan/config.yaml.
type StationConfig struct {
	Version int           `yaml:"version"`
	Scanner ScannerConfig `yaml:"scanner"`
}

// Secrets is the environment-supplied half of the configuration.
type Secrets struct {
	PostgresDSN   string `env:"POSTGRES_DSN,notEmpty"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	AuthURL       string `env:"AUTH_URL,notEmpty"`
	AuthEmail     string `env:"AUTH_EMAIL,notEmpty"`
	AuthPassword  string `env:"AUTH_PASSWORD,notEmpty"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// StationDir is where floorscan was launched.
	StationDir string
	// DataDir is StationDir/.floorscan.
	DataDir string

	Station StationConfig
	Secrets Secrets
}

// ScanTimeout returns the inactivity window as a duration.
func (c *Config) ScanTimeout() time.Duration {
	secs := c.Station.Scanner.TimeoutSeconds
	if secs <= 0 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

// LogPath is the logbook file for this station.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "floorscan.log")
}

func defaultStationConfig() StationConfig {
	return StationConfig{
		Version: 1,
		Scanner: ScannerConfig{
			Source:         SourceDevice,
			DevicePath:     "/dev/ttyACM0",
			RedisChannel:   "floorscan:decodes",
			TimeoutSeconds: 60,
			Capture:        scan.DefaultConfig(),
		},
	}
}

// InitStationDir creates .floorscan/ and seeds a commented default config
// on first run.
func InitStationDir(stationDir string) error {
	dataDir := filepath.Join(stationDir, FloorscanDir)
	if err := os.MkdirAll(filepath.Join(dataDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: create station dir: %w", err)
	}
	return ensureStationConfig(filepath.Join(dataDir, "config.yaml"))
}

func ensureStationConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultStationConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: seed default config: %w", err)
	}
	return nil
}

// Load resolves the full configuration for a station directory: yaml from
// the dotdir and secrets from the environment.
func Load(stationDir string) (*Config, error) {
	cfg := &Config{
		StationDir: stationDir,
		DataDir:    filepath.Join(stationDir, FloorscanDir),
		Station:    defaultStationConfig(),
	}
	if err := cfg.loadStationConfig(); err != nil {
		return nil, err
	}
	if err := env.Parse(&cfg.Secrets); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadStationConfig() error {
	path := filepath.Join(c.DataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil // defaults stand until InitStationDir seeds the file
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := defaultStationConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if parsed.Version == 0 {
		parsed.Version = 1
	}
	c.Station = parsed
	return nil
}

func (c *Config) validate() error {
	switch strings.TrimSpace(c.Station.Scanner.Source) {
	case SourceDevice:
		if strings.TrimSpace(c.Station.Scanner.DevicePath) == "" {
			return fmt.Errorf("config: scanner.device_path is required for the device source")
		}
	case SourceRedis:
		if strings.TrimSpace(c.Station.Scanner.RedisChannel) == "" {
			return fmt.Errorf("config: scanner.redis_channel is required for the redis source")
		}
	default:
		return fmt.Errorf("config: unknown scanner.source %q", c.Station.Scanner.Source)
	}
	return nil
}
