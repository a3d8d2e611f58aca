package gamepad

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Prober finds controllers through a platform-specific mechanism.
type Prober interface {
	Probe(ctx context.Context) ([]DeviceInfo, error)
}

// CommandProber runs an external command (lsusb by default) and reports every
// output line containing one of the match keywords. Results carry Index -1
// because the command cannot tell joystick indices.
type CommandProber struct {
	Command string
	Args    []string
	Match   []string
}

// DefaultProber returns a prober backed by lsusb.
func DefaultProber() *CommandProber {
	return &CommandProber{
		Command: "lsusb",
		Match:   []string{"xbox", "controller", "gamepad", "joystick"},
	}
}

// Probe runs the command and filters its output.
func (p *CommandProber) Probe(ctx context.Context) ([]DeviceInfo, error) {
	out, err := exec.CommandContext(ctx, p.Command, p.Args...).Output()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", p.Command, err)
	}
	return p.parse(out), nil
}

func (p *CommandProber) parse(out []byte) []DeviceInfo {
	var found []DeviceInfo
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		lower := strings.ToLower(line)
		for _, m := range p.Match {
			if strings.Contains(lower, strings.ToLower(m)) {
				found = append(found, DeviceInfo{Index: AutoSelect, Name: line, Connected: true})
				break
			}
		}
	}
	return found
}
