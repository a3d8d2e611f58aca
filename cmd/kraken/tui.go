package main

import (
	"context"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/gwillem/kraken/pkg/robot"
	"github.com/gwillem/kraken/pkg/teleop"
)

const maxLogs = 5 // number of log messages to show

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

type PlayCommand struct{}

func (c *PlayCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Logging to the terminal would corrupt the alternate screen.
	logger, closeLog, err := newLogger(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	notes := teleop.NewChannels()
	ctrl, err := newController(cfg, notes, logger)
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	s := &session{
		cfg:    cfg,
		path:   opts.Config,
		logger: logger,
		ctrl:   ctrl,
		notes:  notes,
		pose:   robot.CenteredPose(),
	}
	p := tea.NewProgram(newRootModel(s, menuScreen), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

// session is shared by all screens for the lifetime of the program.
type session struct {
	cfg    *robot.Config
	path   string
	logger *log.Logger
	ctrl   *teleop.Controller
	notes  *teleop.Channels
	logs   []string   // last N status lines
	pose   robot.Pose // latest mirrored pose
}

func (s *session) addLog(msg string) {
	s.logs = append(s.logs, msg)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
}

type screenID int

const (
	menuScreen screenID = iota
	playScreen
	configScreen
)

var screens = map[screenID]func(*session) tea.Model{
	menuScreen:   newMenuModel,
	playScreen:   newPlayModel,
	configScreen: newConfigModel,
}

// Messages from the controller
type poseMsg teleop.PoseUpdate
type logMsg string

// Lifecycle results
type resetDoneMsg struct{ err error }
type shutdownDoneMsg struct{ err error }

type switchScreenMsg screenID

func switchTo(id screenID) tea.Cmd {
	return func() tea.Msg {
		return switchScreenMsg(id)
	}
}

func waitForPose(n *teleop.Channels) tea.Cmd {
	return func() tea.Msg {
		return poseMsg(<-n.Poses())
	}
}

func waitForLog(n *teleop.Channels) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-n.Logs())
	}
}

func resetCmd(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return resetDoneMsg{ctrl.Reset(context.Background())}
	}
}

func shutdownCmd(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return shutdownDoneMsg{ctrl.Shutdown()}
	}
}

func quitCmd(s *session) tea.Cmd {
	return tea.Sequence(shutdownCmd(s.ctrl), tea.Quit)
}

// rootModel owns the controller subscriptions and forwards everything to
// the current screen.
type rootModel struct {
	s       *session
	current tea.Model
	width   int
	height  int
}

func newRootModel(s *session, start screenID) rootModel {
	return rootModel{s: s, current: screens[start](s)}
}

func (m rootModel) Init() tea.Cmd {
	return tea.Batch(
		waitForPose(m.s.notes),
		waitForLog(m.s.notes),
		m.current.Init(),
	)
}

func (m rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, quitCmd(m.s)
		}

	case switchScreenMsg:
		m.current = screens[screenID(msg)](m.s)
		size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
		var cmd tea.Cmd
		m.current, cmd = m.current.Update(size)
		return m, tea.Batch(m.current.Init(), cmd)

	case poseMsg:
		m.s.pose = msg.Pose
		cmds = append(cmds, waitForPose(m.s.notes))

	case logMsg:
		m.s.addLog(string(msg))
		cmds = append(cmds, waitForLog(m.s.notes))
	}

	var cmd tea.Cmd
	m.current, cmd = m.current.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m rootModel) View() string {
	return m.current.View()
}

type menuItem struct {
	label  string
	help   string
	screen screenID
	quit   bool
}

var menuItems = []menuItem{
	{label: "Play", help: "drive the arm with the game controller", screen: playScreen},
	{label: "Configuration", help: "show settings, detect devices, test the connection", screen: configScreen},
	{label: "Quit", quit: true},
}

type menuModel struct {
	s      *session
	cursor int
}

func newMenuModel(s *session) tea.Model {
	return menuModel{s: s}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "enter":
		item := menuItems[m.cursor]
		if item.quit {
			return m, quitCmd(m.s)
		}
		return m, switchTo(item.screen)
	case "q", "esc":
		return m, quitCmd(m.s)
	}
	return m, nil
}

func (m menuModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Kraken"))
	sb.WriteString(statusStyle.Render("  robot arm control"))
	sb.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.cursor {
			sb.WriteString(selectedStyle.Render("> " + item.label))
		} else {
			sb.WriteString("  " + item.label)
		}
		if item.help != "" {
			sb.WriteString(statusStyle.Render("  " + item.help))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("↑/↓ select • enter open • q quit"))
	sb.WriteString("\n")
	return sb.String()
}
