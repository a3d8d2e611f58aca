package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/kraken/pkg/robot"
	"github.com/gwillem/kraken/pkg/teleop"
)

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 8 // log box + help line
	borderSize   = 2 // chart border
)

// Servo colors - distinct colors for each servo
var servoColors = map[robot.MotorName]string{
	robot.Base:     "196", // red
	robot.Shoulder: "208", // orange
	robot.Elbow:    "46",  // green
	robot.Gripper:  "201", // magenta
}

var chartStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))

type playModel struct {
	s      *session
	chart  *streamlinechart.Model
	width  int // terminal width
	height int // terminal height
	busy   bool
}

func newPlayModel(s *session) tea.Model {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-100, 100),
	)

	for _, name := range robot.AllServos() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(servoColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	m := playModel{
		s:     s,
		chart: &chart,
		busy:  s.ctrl.Phase() == teleop.Idle,
	}
	m.push(s.pose)
	return m
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *playModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *playModel) push(p robot.Pose) {
	for i, name := range robot.AllServos() {
		cal := m.s.cfg.Calibration.Joint(name)
		m.chart.PushDataSet(string(name), cal.Normalize(p[i]))
	}
	m.chart.DrawAll()
}

func (m playModel) Init() tea.Cmd {
	// Entering the screen starts a session
	if m.busy {
		return resetCmd(m.s.ctrl)
	}
	return nil
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width == 0 || msg.Height == 0 {
			return m, nil
		}
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		m.chart.DrawAll()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "r":
			if m.busy {
				return m, nil
			}
			m.busy = true
			return m, resetCmd(m.s.ctrl)
		case "c":
			m.s.ctrl.Recenter()
		case "s":
			if m.busy {
				return m, nil
			}
			m.busy = true
			return m, shutdownCmd(m.s.ctrl)
		case "esc":
			return m, tea.Sequence(shutdownCmd(m.s.ctrl), switchTo(menuScreen))
		case "q":
			return m, quitCmd(m.s)
		}

	case resetDoneMsg:
		m.busy = false
		if errors.Is(msg.err, teleop.ErrBusy) {
			m.s.addLog("busy, try again")
		}
		return m, nil

	case shutdownDoneMsg:
		m.busy = false
		if msg.err != nil && !errors.Is(msg.err, teleop.ErrBusy) {
			m.s.addLog(fmt.Sprintf("shutdown: %v", msg.err))
		}
		return m, nil

	case poseMsg:
		m.push(msg.Pose)
		return m, nil
	}

	return m, nil
}

func (m playModel) View() string {
	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Kraken Play"))
	sb.WriteString(fmt.Sprintf(" - %d Hz - %s", m.s.ctrl.Hz(), m.s.ctrl.Phase()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend(m.s.pose))
	sb.WriteString("\n")

	// Log box
	width := m.width - 4
	if width < 20 {
		width = 76
	}
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(width).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.s.logs) == 0 {
		logLines = statusStyle.Render("Waiting for the controller...")
	} else {
		logLines = strings.Join(m.s.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("enter reset • c recenter • s stop • esc menu • q quit"))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend(p robot.Pose) string {
	var items []string
	for _, name := range robot.AllServos() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(servoColors[name])).Bold(true)
		item := colorStyle.Render("━━") + fmt.Sprintf(" %s %d°", name, p.Angle(name))
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}
