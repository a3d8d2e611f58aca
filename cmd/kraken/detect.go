package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"go.bug.st/serial/enumerator"

	"github.com/gwillem/kraken/pkg/arduino"
	"github.com/gwillem/kraken/pkg/command"
	"github.com/gwillem/kraken/pkg/gamepad"
	"github.com/gwillem/kraken/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type DetectCommand struct{}

func (c *DetectCommand) Execute(args []string) error {
	logger, closeLog, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	fmt.Println(headerStyle.Render("Kraken Detect"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hw := detectHardware(ctx, logger)

	fmt.Println(subHeaderStyle.Render("Serial ports"))
	fmt.Println(hw.portTable())
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Game controllers"))
	fmt.Println(hw.padTable())

	if hw.arduino != "" {
		fmt.Println(successStyle.Render("Arduino on " + hw.arduino))
	} else {
		fmt.Println(errorStyle.Render("No Arduino found"))
	}
	return hw.err
}

// hardware is a snapshot of the attached devices.
type hardware struct {
	ports   []*enumerator.PortDetails
	arduino string
	pads    []gamepad.DeviceInfo
	probed  []gamepad.DeviceInfo
	err     error
}

// detectHardware lists ports and controllers with fresh devices, so it never
// touches the ones owned by a running session.
func detectHardware(ctx context.Context, logger *log.Logger) hardware {
	pad, port := newDevices(logger)
	defer pad.Close()
	defer port.Close()

	var hw hardware
	hw.ports, hw.err = port.Ports()
	if hw.err == nil {
		name, err := port.Discover()
		if err == nil {
			hw.arduino = name
		} else if !errors.Is(err, arduino.ErrPortNotFound) {
			hw.err = err
		}
	}
	hw.pads = pad.List()
	hw.probed = pad.Detect(ctx)
	return hw
}

func (hw hardware) portTable() string {
	rows := make([][]string, 0, len(hw.ports))
	for _, p := range hw.ports {
		usb := ""
		if p.IsUSB {
			usb = fmt.Sprintf("%s:%s", p.VID, p.PID)
		}
		mark := ""
		if p.Name == hw.arduino {
			mark = "✓"
		}
		rows = append(rows, []string{p.Name, arduino.Description(p), usb, p.SerialNumber, mark})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{"(none)", "", "", "", ""})
	}
	return styledTable([]string{"Port", "Description", "USB", "Serial", "Arduino"}, rows)
}

func (hw hardware) padTable() string {
	var rows [][]string
	for _, d := range hw.pads {
		if !d.Connected {
			continue
		}
		rows = append(rows, []string{fmt.Sprint(d.Index), d.Name, "yes"})
	}
	for _, d := range hw.probed {
		if d.Index >= 0 {
			continue
		}
		rows = append(rows, []string{"-", d.Name, "usb"})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{"-", "(none)", "no"})
	}
	return styledTable([]string{"Index", "Name", "Connected"}, rows)
}

func styledTable(headers []string, rows [][]string) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableFirstStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableFirstStyle
			}
			return tableCellStyle
		})
	return t.Render()
}

// testConnection opens the configured or discovered port, waits for the
// firmware to boot and reads its greeting if it sends one.
func testConnection(cfg *robot.Config, logger *log.Logger) (string, error) {
	_, port := newDevices(logger)
	defer port.Close()

	name := cfg.Serial.Port
	if name == "" {
		found, err := port.Discover()
		if err != nil {
			return "", err
		}
		name = found
	}
	mode, err := cfg.Mode()
	if err != nil {
		return "", err
	}
	if err := port.Open(name, mode); err != nil {
		return "", err
	}
	time.Sleep(cfg.StartupDelay())

	line, err := port.Receive()
	switch {
	case err == nil:
		return fmt.Sprintf("%s: %s", name, line), nil
	case errors.Is(err, arduino.ErrNoData):
		return name, nil
	default:
		return "", err
	}
}

// describeConfig renders the effective configuration as table rows.
func describeConfig(cfg *robot.Config, path string) string {
	port := cfg.Serial.Port
	if port == "" {
		port = "discover"
	}
	pad := fmt.Sprint(cfg.Gamepad.Index)
	if cfg.Gamepad.Index == gamepad.AutoSelect {
		pad = "first connected"
	}
	parity := "N"
	if cfg.Serial.Parity != "" {
		parity = strings.ToUpper(cfg.Serial.Parity[:1])
	}
	line := fmt.Sprintf("%d %d%s%s", cfg.Serial.Baud, cfg.Serial.DataBits, parity, cfg.Serial.StopBits)

	rows := [][]string{
		{"file", path},
		{"serial port", port},
		{"line", line},
		{"controller", pad},
		{"polling", fmt.Sprintf("%d Hz after %v", cfg.Control.Hz, cfg.StartupDelay())},
		{"deadzone", fmt.Sprint(cfg.Control.Deadzone)},
		{"trigger threshold", fmt.Sprint(cfg.Control.TriggerThreshold)},
	}
	if dc, err := cfg.Differ(); err == nil {
		for _, a := range command.Actions() {
			if tok, ok := dc.Vocabulary[a]; ok {
				rows = append(rows, []string{"token " + a.String(), fmt.Sprintf("%q", tok.String())})
			}
		}
	}
	return styledTable([]string{"Setting", "Value"}, rows)
}
