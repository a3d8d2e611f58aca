package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gwillem/kraken/pkg/arduino"
	"github.com/gwillem/kraken/pkg/command"
	"github.com/gwillem/kraken/pkg/gamepad"
)

const DefaultConfigFile = "kraken.json"

// MaxHz is the highest polling rate a config may ask for.
const MaxHz = 1000

// Config holds the arm configuration
type Config struct {
	Serial      SerialConfig      `json:"serial" yaml:"serial"`
	Gamepad     GamepadConfig     `json:"gamepad" yaml:"gamepad"`
	Control     ControlConfig     `json:"control" yaml:"control"`
	Vocabulary  map[string]string `json:"vocabulary,omitempty" yaml:"vocabulary,omitempty"`
	Calibration Calibration       `json:"calibration,omitempty" yaml:"calibration,omitempty"`
}

// SerialConfig holds the microcontroller link settings.
// An empty Port means discover the Arduino.
type SerialConfig struct {
	Port          string `json:"port,omitempty" yaml:"port,omitempty"`
	Baud          int    `json:"baud" yaml:"baud"`
	DataBits      int    `json:"data_bits" yaml:"data_bits"`
	StopBits      string `json:"stop_bits" yaml:"stop_bits"`
	Parity        string `json:"parity" yaml:"parity"`
	ReadTimeoutMs int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
}

// GamepadConfig selects the controller; -1 picks the first connected one.
type GamepadConfig struct {
	Index int `json:"index" yaml:"index"`
}

// ControlConfig holds the polling loop and input thresholds.
type ControlConfig struct {
	Hz               int     `json:"hz" yaml:"hz"`
	StartupDelayMs   int     `json:"startup_delay_ms" yaml:"startup_delay_ms"`
	Deadzone         float64 `json:"deadzone" yaml:"deadzone"`
	TriggerThreshold float64 `json:"trigger_threshold" yaml:"trigger_threshold"`
}

// DefaultConfig returns the reference settings: 9600 8N1, 20 Hz polling after
// a 100 ms startup delay.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:          arduino.DefaultBaudRate,
			DataBits:      arduino.DefaultDataBits,
			StopBits:      "1",
			Parity:        "none",
			ReadTimeoutMs: int(arduino.DefaultReadTimeout / time.Millisecond),
		},
		Gamepad: GamepadConfig{Index: gamepad.AutoSelect},
		Control: ControlConfig{
			Hz:               20,
			StartupDelayMs:   100,
			Deadzone:         command.DefaultDeadzone,
			TriggerThreshold: command.DefaultTriggerThreshold,
		},
		Calibration: DefaultCalibration(),
	}
}

// LoadConfigFrom loads configuration from a JSON or YAML file. Missing
// settings keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo saves configuration to a specific file, as YAML when the extension
// says so.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Control.Hz <= 0 || c.Control.Hz > MaxHz {
		return fmt.Errorf("control.hz must be between 1 and %d, got %d", MaxHz, c.Control.Hz)
	}
	if c.Control.StartupDelayMs < 0 {
		return fmt.Errorf("control.startup_delay_ms must not be negative")
	}
	if c.Control.Deadzone < 0 || c.Control.Deadzone >= 1 {
		return fmt.Errorf("control.deadzone must be in [0, 1), got %g", c.Control.Deadzone)
	}
	if c.Control.TriggerThreshold < 0 || c.Control.TriggerThreshold >= 1 {
		return fmt.Errorf("control.trigger_threshold must be in [0, 1), got %g", c.Control.TriggerThreshold)
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := command.ParseVocabulary(c.Vocabulary); err != nil {
		return fmt.Errorf("vocabulary: %w", err)
	}
	return nil
}

// Mode returns the serial line settings.
func (c *Config) Mode() (arduino.Mode, error) {
	parity, err := arduino.ParseParity(c.Serial.Parity)
	if err != nil {
		return arduino.Mode{}, fmt.Errorf("serial.parity: %w", err)
	}
	stop, err := arduino.ParseStopBits(c.Serial.StopBits)
	if err != nil {
		return arduino.Mode{}, fmt.Errorf("serial.stop_bits: %w", err)
	}
	return arduino.Mode{
		BaudRate:    c.Serial.Baud,
		DataBits:    c.Serial.DataBits,
		StopBits:    stop,
		Parity:      parity,
		ReadTimeout: time.Duration(c.Serial.ReadTimeoutMs) * time.Millisecond,
	}, nil
}

// Differ returns the command translation settings.
func (c *Config) Differ() (command.Config, error) {
	voc, err := command.ParseVocabulary(c.Vocabulary)
	if err != nil {
		return command.Config{}, err
	}
	return command.Config{
		Deadzone:         c.Control.Deadzone,
		TriggerThreshold: c.Control.TriggerThreshold,
		Layout:           command.DefaultLayout(),
		Vocabulary:       voc,
	}, nil
}

// StartupDelay returns the wait between opening the port and the first tick.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.Control.StartupDelayMs) * time.Millisecond
}
