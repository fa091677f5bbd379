// Package config loads irplan settings from a TOML file layered over defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config file path.
const EnvPath = "IRPLAN_CONFIG"

// Link modes.
const (
	LinkMQTT   = "mqtt"
	LinkSerial = "serial"
	LinkCamera = "camera"
	LinkNone   = "none"
)

// Corpus sources.
const (
	SourceStore = "store"
	SourceCSV   = "csv"
)

// Config is the full application configuration.
type Config struct {
	Display DisplayConfig `toml:"display"`
	Camera  CameraConfig  `toml:"camera"`
	Gesture GestureConfig `toml:"gesture"`
	Link    LinkConfig    `toml:"link"`
	MQTT    MQTTConfig    `toml:"mqtt"`
	Serial  SerialConfig  `toml:"serial"`
	Server  ServerConfig  `toml:"server"`
	Store   StoreConfig   `toml:"store"`
	Plugins PluginsConfig `toml:"plugins"`
	Tray    TrayConfig    `toml:"tray"`
}

// DisplayConfig describes the target display rectangle.
type DisplayConfig struct {
	Width   float64 `toml:"width"`
	Height  float64 `toml:"height"`
	InvertY bool    `toml:"invert_y"`
	// BoresightX and BoresightY locate the sensor point that maps to the
	// pointer. Zero for both selects the sensor center.
	BoresightX float64 `toml:"boresight_x"`
	BoresightY float64 `toml:"boresight_y"`
}

// CameraConfig configures local IR blob capture.
type CameraConfig struct {
	DeviceID  int     `toml:"device_id"`
	FPS       int     `toml:"fps"`
	Threshold float64 `toml:"threshold"`
	MinArea   float64 `toml:"min_area"`
}

// GestureConfig selects the training corpus.
type GestureConfig struct {
	Source string `toml:"source"`
	CSVDir string `toml:"csv_dir"`
	// Required makes a training failure fatal. When false the app runs
	// pointer mapping only.
	Required bool `toml:"required"`
}

// LinkConfig selects how device samples arrive.
type LinkConfig struct {
	Mode string `toml:"mode"`
}

// MQTTConfig configures the broker link.
type MQTTConfig struct {
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
	QoS         byte   `toml:"qos"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
}

// SerialConfig configures the serial bridge link.
type SerialConfig struct {
	Port     string `toml:"port"`
	BaudRate uint   `toml:"baud_rate"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// PluginsConfig configures plugin discovery and execution.
type PluginsConfig struct {
	Dir       string `toml:"dir"`
	TimeoutMs int    `toml:"timeout_ms"`
}

// TrayConfig toggles the system tray.
type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

// DataDir returns the default data directory, ~/.irplan.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".irplan"
	}
	return filepath.Join(home, ".irplan")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := DataDir()
	return Config{
		Display: DisplayConfig{
			Width:   640,
			Height:  480,
			InvertY: true,
		},
		Camera: CameraConfig{
			FPS:       30,
			Threshold: 200,
			MinArea:   2,
		},
		Gesture: GestureConfig{
			Source:   SourceStore,
			CSVDir:   filepath.Join(dir, "training"),
			Required: true,
		},
		Link: LinkConfig{
			Mode: LinkMQTT,
		},
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "irplan",
			TopicPrefix: "irplan",
			QoS:         0,
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "irplan.db"),
		},
		Plugins: PluginsConfig{
			Dir:       filepath.Join(dir, "plugins"),
			TimeoutMs: 5000,
		},
		Tray: TrayConfig{
			Enabled: false,
		},
	}
}

// Path returns the config file path: IRPLAN_CONFIG if set, otherwise
// config.toml in the data directory.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "config.toml")
}

// Load reads the TOML file at path over Default and validates the result.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				return Config{}, fmt.Errorf("%s: unknown keys %v", path, undecoded)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %gx%g", c.Display.Width, c.Display.Height)
	}

	switch c.Link.Mode {
	case LinkMQTT:
		if c.MQTT.Broker == "" {
			return errors.New("mqtt.broker is required for link mode mqtt")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	case LinkSerial:
		if c.Serial.Port == "" {
			return errors.New("serial.port is required for link mode serial")
		}
		if c.Serial.BaudRate == 0 {
			return errors.New("serial.baud_rate must be positive")
		}
	case LinkCamera:
		if c.Camera.FPS <= 0 {
			return errors.New("camera.fps must be positive")
		}
	case LinkNone:
	default:
		return fmt.Errorf("unknown link mode %q", c.Link.Mode)
	}

	switch c.Gesture.Source {
	case SourceStore:
	case SourceCSV:
		if c.Gesture.CSVDir == "" {
			return errors.New("gesture.csv_dir is required for source csv")
		}
	default:
		return fmt.Errorf("unknown gesture source %q", c.Gesture.Source)
	}

	if c.Plugins.TimeoutMs <= 0 {
		return errors.New("plugins.timeout_ms must be positive")
	}

	return nil
}
