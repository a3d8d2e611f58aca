package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"

	"github.com/gwillem/kraken/pkg/arduino"
	"github.com/gwillem/kraken/pkg/gamepad"
	"github.com/gwillem/kraken/pkg/robot"
	"github.com/gwillem/kraken/pkg/teleop"
)

type Options struct {
	Config   string `short:"c" long:"config" default:"kraken.json" description:"Configuration file (.json, .yaml or .yml)"`
	Port     string `short:"p" long:"port" description:"Serial port (default: discover the Arduino)"`
	Baud     int    `short:"b" long:"baud" description:"Serial baud rate"`
	Hz       int    `long:"hz" description:"Polling frequency"`
	Gamepad  *int   `short:"g" long:"gamepad" description:"Controller index, -1 for the first connected one"`
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	LogFile  string `long:"log-file" description:"Write logs to this file (the TUI logs nowhere otherwise)"`

	Play   PlayCommand   `command:"play" description:"Drive the arm from the game controller (default)"`
	Run    RunCommand    `command:"run" description:"Drive the arm without the TUI until interrupted"`
	Detect DetectCommand `command:"detect" description:"List serial ports and game controllers"`
	Setup  SetupCommand  `command:"setup" description:"Pick the serial port and controller and save the configuration"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Kraken - drive a serial robot arm with a game controller"
	parser.SubcommandsOptional = true

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if parser.Active == nil {
		if err := opts.Play.Execute(nil); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist, and applies command line overrides.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = robot.DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	if opts.Port != "" {
		cfg.Serial.Port = opts.Port
	}
	if opts.Baud > 0 {
		cfg.Serial.Baud = opts.Baud
	}
	if opts.Hz > 0 {
		cfg.Control.Hz = opts.Hz
	}
	if opts.Gamepad != nil {
		cfg.Gamepad.Index = *opts.Gamepad
	}
	return cfg, cfg.Validate()
}

// newLogger returns a logger writing to w, or to --log-file when set.
func newLogger(w io.Writer) (*log.Logger, func(), error) {
	closer := func() {}
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = func() { f.Close() }
	}

	level, err := log.ParseLevel(opts.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "kraken",
	})
	log.SetDefault(logger)
	return logger, closer, nil
}

// newDevices creates an unbound controller source and serial port.
func newDevices(logger *log.Logger) (*gamepad.Source, *arduino.Port) {
	pad := gamepad.NewSource(gamepad.Options{
		Prober: gamepad.DefaultProber(),
		Logger: logger.WithPrefix("gamepad"),
	})
	port := arduino.New(arduino.Options{
		Logger: logger.WithPrefix("serial"),
	})
	return pad, port
}

func newController(cfg *robot.Config, n teleop.Notifier, logger *log.Logger) (*teleop.Controller, error) {
	tc, err := teleop.NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	pad, port := newDevices(logger)
	return teleop.NewController(teleop.Options{
		Gamepad:  pad,
		Link:     port,
		Notifier: n,
		Logger:   logger.WithPrefix("teleop"),
		Config:   tc,
	}), nil
}
