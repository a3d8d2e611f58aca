package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/kraken/pkg/teleop"
)

type detectDoneMsg struct{ hw hardware }

type testDoneMsg struct {
	port string
	err  error
}

type configModel struct {
	s       *session
	working string
	hw      *hardware
	result  string
	failed  bool
}

func newConfigModel(s *session) tea.Model {
	return configModel{s: s}
}

func (m configModel) Init() tea.Cmd {
	return nil
}

func (m configModel) detect() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return detectDoneMsg{detectHardware(ctx, m.s.logger)}
	}
}

func (m configModel) test() tea.Cmd {
	return func() tea.Msg {
		port, err := testConnection(m.s.cfg, m.s.logger)
		return testDoneMsg{port, err}
	}
}

func (m configModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.working != "" && msg.String() != "q" {
			return m, nil
		}
		switch msg.String() {
		case "d":
			m.working = "Detecting devices..."
			return m, m.detect()
		case "t":
			if m.s.ctrl.Phase() != teleop.Idle {
				m.result, m.failed = "Stop the running session before testing the port.", true
				return m, nil
			}
			m.working = "Testing connection..."
			return m, m.test()
		case "esc", "backspace":
			return m, switchTo(menuScreen)
		case "q":
			return m, quitCmd(m.s)
		}

	case detectDoneMsg:
		m.working = ""
		m.hw = &msg.hw
		if msg.hw.err != nil {
			m.result, m.failed = fmt.Sprintf("Detection failed: %v", msg.hw.err), true
		} else if msg.hw.arduino == "" {
			m.result, m.failed = "No Arduino found.", true
		} else {
			m.result, m.failed = "Arduino on "+msg.hw.arduino, false
		}

	case testDoneMsg:
		m.working = ""
		if msg.err != nil {
			m.result, m.failed = fmt.Sprintf("Connection failed: %v", msg.err), true
		} else {
			m.result, m.failed = "Connected to "+msg.port, false
		}
	}
	return m, nil
}

func (m configModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Kraken Configuration"))
	sb.WriteString("\n\n")
	sb.WriteString(describeConfig(m.s.cfg, m.s.path))
	sb.WriteString("\n")

	if m.hw != nil {
		sb.WriteString(subHeaderStyle.Render("Serial ports"))
		sb.WriteString("\n")
		sb.WriteString(m.hw.portTable())
		sb.WriteString("\n")
		sb.WriteString(subHeaderStyle.Render("Game controllers"))
		sb.WriteString("\n")
		sb.WriteString(m.hw.padTable())
		sb.WriteString("\n")
	}

	switch {
	case m.working != "":
		sb.WriteString(statusStyle.Render(m.working))
	case m.result != "" && m.failed:
		sb.WriteString(errorStyle.Render(m.result))
	case m.result != "":
		sb.WriteString(successStyle.Render(m.result))
	}
	sb.WriteString("\n\n")
	sb.WriteString(statusStyle.Render("d detect devices • t test connection • esc menu • q quit"))
	sb.WriteString("\n")
	return sb.String()
}
