// ABOUTME: Bubbletea model for the appliance status screen
// ABOUTME: Shows link and server state, playback, amplifier gain and write diagnostics
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Header
	product  string
	deviceID string
	format   string

	// Link
	phase         string
	attempt       int
	delay         time.Duration
	ip            string
	serverRunning bool
	addr          string

	// Playback
	playing  bool
	duration time.Duration
	volume   float64

	// Amplifier
	gainLevel int
	gainDB    float64

	// Diagnostics
	writes      int
	shortWrites int
	avgDT       time.Duration
	lastDT      time.Duration
	lastGap     time.Duration
	underruns   int
	headroom    uint64

	showDebug bool

	width  int
	height int
}

// LinkMsg reports the control plane state
type LinkMsg struct {
	Phase         string
	Attempt       int
	Delay         time.Duration
	IP            string
	ServerRunning bool
	Addr          string
}

// PlaybackMsg reports a playback starting or finishing
type PlaybackMsg struct {
	Playing  bool
	Duration time.Duration
	Volume   float64
}

// GainMsg reports an applied amplifier gain
type GainMsg struct {
	Level int
	DB    float64
}

// DiagMsg carries bus write diagnostics
type DiagMsg struct {
	Writes      int
	ShortWrites int
	AvgDT       time.Duration
	LastDT      time.Duration
	LastGap     time.Duration
	Underruns   int
	Headroom    uint64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case LinkMsg:
		m.applyLink(msg)
	case PlaybackMsg:
		m.applyPlayback(msg)
	case GainMsg:
		m.gainLevel = msg.Level
		m.gainDB = msg.DB
	case DiagMsg:
		m.applyDiag(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderLink()
	s += m.renderPlayback()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	return fmt.Sprintf(`┌─ %-50s ┐
│ Format: %-44s │
├──────────────────────────────────────────────────────┤
`, truncate(m.product, 50), truncate(m.format, 44))
}

func (m Model) renderLink() string {
	var wifi string
	switch m.phase {
	case "connected":
		wifi = fmt.Sprintf("✓ Connected (%s)", m.ip)
	case "connecting":
		wifi = fmt.Sprintf("… Connecting (attempt %d, retry in %v)", m.attempt+1, m.delay)
	default:
		wifi = "✗ Not connected"
	}

	server := "Stopped"
	if m.serverRunning {
		server = "Listening on " + m.addr
	}

	return fmt.Sprintf("│ WiFi:   %-44s │\n│ Server: %-44s │\n",
		truncate(wifi, 44), truncate(server, 44))
}

func (m Model) renderPlayback() string {
	state := "Idle"
	if m.playing {
		state = fmt.Sprintf("Playing %v", m.duration)
	}

	volume := int(m.volume*100 + 0.5)
	return fmt.Sprintf("│                                                      │\n"+
		"│ Audio:  %-44s │\n"+
		"│ Volume: [%s] %3d%%%-25s │\n"+
		"│ Gain:   level %d (+%.0f dB)%-28s │\n",
		truncate(state, 44),
		renderBar(volume, 100, 10), volume, "",
		m.gainLevel, m.gainDB, "")
}

func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Writes: %-8d Avg: %-10v Short: %-6d Under: %-4d│
│                                                      │
`, m.writes, m.avgDT.Round(time.Microsecond), m.shortWrites, m.underruns)
}

func (m Model) renderHelp() string {
	return `│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Device:   %-40s │
│   Last dt:  %-40v │
│   Last gap: %-40v │
│   Headroom: %-40d │
`, truncate(m.deviceID, 40), m.lastDT, m.lastGap, m.headroom)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m *Model) applyLink(msg LinkMsg) {
	m.phase = msg.Phase
	m.attempt = msg.Attempt
	m.delay = msg.Delay
	m.ip = msg.IP
	m.serverRunning = msg.ServerRunning
	m.addr = msg.Addr
}

func (m *Model) applyPlayback(msg PlaybackMsg) {
	m.playing = msg.Playing
	if msg.Playing {
		m.duration = msg.Duration
		m.volume = msg.Volume
		m.writes = 0
		m.shortWrites = 0
		m.avgDT = 0
	}
}

func (m *Model) applyDiag(msg DiagMsg) {
	m.writes = msg.Writes
	m.shortWrites = msg.ShortWrites
	m.avgDT = msg.AvgDT
	m.lastDT = msg.LastDT
	m.lastGap = msg.LastGap
	m.underruns = msg.Underruns
	m.headroom = msg.Headroom
}

// Utility functions
func renderBar(value, max, width int) string {
	if value < 0 {
		value = 0
	}
	if value > max {
		value = max
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
