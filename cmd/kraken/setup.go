package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/kraken/pkg/arduino"
	"github.com/gwillem/kraken/pkg/gamepad"
	"github.com/gwillem/kraken/pkg/robot"
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	fmt.Println(headerStyle.Render("Kraken Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()
	fmt.Println("Scanning for serial ports and controllers...")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hw := detectHardware(ctx, logger)
	if hw.err != nil {
		return hw.err
	}

	portOptions := []huh.Option[string]{huh.NewOption("Discover the Arduino on every start", "")}
	for _, p := range hw.ports {
		label := fmt.Sprintf("%s (%s)", p.Name, arduino.Description(p))
		if p.Name == hw.arduino {
			label += " ✓ arduino"
		}
		portOptions = append(portOptions, huh.NewOption(label, p.Name))
	}

	padOptions := []huh.Option[int]{huh.NewOption("First connected controller", gamepad.AutoSelect)}
	for _, d := range hw.pads {
		if d.Connected {
			padOptions = append(padOptions, huh.NewOption(fmt.Sprintf("#%d %s", d.Index, d.Name), d.Index))
		}
	}

	baud := strconv.Itoa(cfg.Serial.Baud)
	hz := strconv.Itoa(cfg.Control.Hz)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Serial port").
				Description("The port the arm's Arduino is connected to").
				Options(portOptions...).
				Value(&cfg.Serial.Port),
			huh.NewSelect[int]().
				Title("Game controller").
				Options(padOptions...).
				Value(&cfg.Gamepad.Index),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Baud rate").
				Value(&baud).
				Validate(positiveInt),
			huh.NewInput().
				Title("Polling frequency (Hz)").
				Value(&hz).
				Validate(pollingRate),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		return nil
	}

	cfg.Serial.Baud, _ = strconv.Atoi(baud)
	cfg.Control.Hz, _ = strconv.Atoi(hz)
	if err := cfg.Validate(); err != nil {
		return err
	}
	// Write the full token set so it can be edited by hand.
	dc, err := cfg.Differ()
	if err != nil {
		return err
	}
	cfg.Vocabulary = dc.Vocabulary.Encode()

	if robot.ConfigExists(opts.Config) {
		overwrite := true
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite it?", opts.Config)).
			Value(&overwrite)
		if err := confirm.Run(); err != nil || !overwrite {
			fmt.Println("Configuration not saved.")
			return nil
		}
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start driving with: " + headerStyle.Render("kraken play"))
	return nil
}

func pollingRate(s string) error {
	if err := positiveInt(s); err != nil {
		return err
	}
	if n, _ := strconv.Atoi(s); n > robot.MaxHz {
		return fmt.Errorf("at most %d Hz", robot.MaxHz)
	}
	return nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}
