package telemetry

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// rowMsg carries a telemetry row into the model.
type rowMsg struct{ Row }

const tuiMaxLogLines = 500

// TUIWriter renders live telemetry in a bubbletea TUI: a status bar with the
// latest hub and drivebase readings above a scrolling row log.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(robotID string) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(robotID), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements Writer.
func (w *TUIWriter) Write(row Row) error {
	w.program.Send(rowMsg{row})
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *TUIWriter) WriteBatch(rows []Row) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

var (
	tuiTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tuiStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tuiValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("84"))
)

type tuiModel struct {
	robotID    string
	vp         viewport.Model
	logs       []string
	last       Row
	haveRow    bool
	rows       int
	wrap       bool
	autoscroll bool
	width      int
	height     int
}

func newTUIModel(robotID string) tuiModel {
	return tuiModel{
		robotID:    robotID,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-lipgloss.Height(m.header())-1, 3)
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
		case "a":
			m.autoscroll = !m.autoscroll
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	case rowMsg:
		m.last = msg.Row
		m.haveRow = true
		m.rows++
		m.logs = append(m.logs, formatRowLine(msg.Row))
		if len(m.logs) > tuiMaxLogLines {
			m.logs = m.logs[len(m.logs)-tuiMaxLogLines:]
		}
		m.refreshViewport()
	}
	return m, nil
}

func (m *tuiModel) refreshViewport() {
	content := strings.Join(m.logs, "\n")
	if m.wrap && m.width > 0 {
		content = wordwrap.String(content, m.width)
	}
	m.vp.SetContent(content)
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) header() string {
	title := tuiTitleStyle.Render(fmt.Sprintf("hubpilot telemetry: %s", m.robotID))
	if !m.haveRow {
		return title + "\n" + tuiStatusStyle.Render("waiting for telemetry...")
	}
	status := fmt.Sprintf("heading %s  dist %s  angle %s  batt %s  rows %d",
		tuiValueStyle.Render(fmt.Sprintf("%.1f°", m.last.Hub.IMU.Heading)),
		tuiValueStyle.Render(fmt.Sprintf("%.0fmm", m.last.Drivebase.Distance)),
		tuiValueStyle.Render(fmt.Sprintf("%.0f°", m.last.Drivebase.Angle)),
		tuiValueStyle.Render(fmt.Sprintf("%.0f%%", batteryPercent(m.last.Hub.Battery.Voltage))),
		m.rows,
	)
	return title + "\n" + tuiStatusStyle.Render(status)
}

func (m tuiModel) View() string {
	return m.header() + "\n" + m.vp.View()
}

func formatRowLine(r Row) string {
	line := fmt.Sprintf("[%s] heading=%.1f dist=%.1f angle=%.1f volt=%.0f",
		r.Timestamp.Format(time.RFC3339),
		r.Hub.IMU.Heading,
		r.Drivebase.Distance,
		r.Drivebase.Angle,
		r.Hub.Battery.Voltage,
	)
	for name, ms := range r.Motors {
		line += fmt.Sprintf(" %s={%.0f°,%.0f}", name, ms.Angle, ms.Speed)
	}
	return line
}

// batteryPercent maps a hub voltage to a rough charge percentage. Pybricks
// hubs run on 6 cells: ~9000mV full, ~6000mV empty.
func batteryPercent(mv float64) float64 {
	pct := (mv - 6000) / 3000 * 100
	return math.Max(0, math.Min(100, pct))
}
