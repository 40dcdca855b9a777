package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 20

// Status is one refresh of the live receiver view.
type Status struct {
	Token    string
	Sender   string
	Page     string
	Pages    int
	Viewport string
	Position string

	Frames    uint64
	LastFrame time.Time
	Markers   []MarkerStatus
	Ignored   uint64
	Dropped   uint64

	// Export is the export topic, empty when export is disabled.
	Export          string
	ExportConnected bool
	Exported        uint64
}

// MarkerStatus is the confidence of one marker in the latest frame.
type MarkerStatus struct {
	Name       string
	Label      string
	Color      string
	Visibility float64
	Drawn      bool
}

// StatusSource reads the receiver state.
type StatusSource func() (Status, error)

type statusMsg struct {
	status Status
	err    error
	at     time.Time
}

// StatusModel is the bubbletea model of the live receiver view.
type StatusModel struct {
	source   StatusSource
	interval time.Duration

	status Status
	err    error
	bars   []progress.Model
	width  int

	fps        float64
	lastFrames uint64
	lastAt     time.Time

	spinner  spinner.Model
	quitting bool
}

// NewStatusModel polls source every interval.
func NewStatusModel(source StatusSource, interval time.Duration) *StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &StatusModel{
		source:   source,
		interval: interval,
		spinner:  s,
	}
}

func (m *StatusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll(0))
}

func (m *StatusModel) poll(after time.Duration) tea.Cmd {
	read := func(t time.Time) tea.Msg {
		s, err := m.source()
		return statusMsg{status: s, err: err, at: t}
	}
	if after <= 0 {
		return func() tea.Msg { return read(time.Now()) }
	}
	return tea.Tick(after, read)
}

func (m *StatusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.bars {
			m.bars[i].Width = m.barWidth()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.apply(msg)
		return m, m.poll(m.interval)
	}

	return m, nil
}

func (m *StatusModel) apply(msg statusMsg) {
	m.err = msg.err
	if msg.err != nil {
		return
	}

	if !m.lastAt.IsZero() {
		if elapsed := msg.at.Sub(m.lastAt).Seconds(); elapsed > 0 && msg.status.Frames >= m.lastFrames {
			m.fps = float64(msg.status.Frames-m.lastFrames) / elapsed
		}
	}
	m.lastFrames = msg.status.Frames
	m.lastAt = msg.at
	m.status = msg.status

	for len(m.bars) < len(m.status.Markers) {
		m.bars = append(m.bars, progress.New(
			progress.WithGradient(ConfidenceStart, ConfidenceEnd),
			progress.WithWidth(m.barWidth()),
			progress.WithoutPercentage(),
		))
	}
}

func (m *StatusModel) barWidth() int {
	if m.width == 0 {
		return barWidth
	}
	return max(5, min(barWidth, m.width-40))
}

// FPS is the accepted frame rate between the last two refreshes.
func (m *StatusModel) FPS() float64 {
	return m.fps
}

func (m *StatusModel) View() string {
	if m.quitting {
		return ""
	}

	s := m.status
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n%s %s\n\n", IconScreen, TitleStyle.UnsetMarginBottom().Render("Self-Tracking receiver")))

	state := IconWaiting + " Waiting for camera"
	if s.Pages == 0 {
		state = IconWaiting + " Waiting for receiver page"
	} else if s.Frames > 0 && time.Since(s.LastFrame) < 2*time.Second {
		state = IconCamera + " Tracking"
	}
	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), StatusStyle.Render(state)))

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render(label), value))
	}
	row("Token", BoldStyle.Foreground(Primary).Render(s.Token))
	row("Camera", MutedStyle.Render(s.Sender))
	row("Page", MutedStyle.Render(s.Page))
	row("Pages", fmt.Sprintf("%d", s.Pages))
	row("Viewport", fmt.Sprintf("%s at %s", s.Viewport, s.Position))
	row("Frames", fmt.Sprintf("%d %s", s.Frames, MutedStyle.Render(fmt.Sprintf("%.1f fps", m.fps))))
	if s.Dropped > 0 || s.Ignored > 0 {
		row("Dropped", WarningStyle.Render(fmt.Sprintf("%d", s.Dropped))+MutedStyle.Render(fmt.Sprintf(" (%d ignored)", s.Ignored)))
	}
	if s.Export != "" {
		link := ErrorStyle.Render("offline")
		if s.ExportConnected {
			link = SuccessStyle.Render("online")
		}
		row("Export", fmt.Sprintf("%s %s %s %d sent", IconExport, s.Export, link, s.Exported))
	}

	if len(s.Markers) > 0 {
		b.WriteString("\n")
	}
	for i, mk := range s.Markers {
		icon := "○"
		nameStyle := MutedStyle
		if mk.Drawn {
			icon = lipgloss.NewStyle().Foreground(lipgloss.Color(mk.Color)).Render("●")
			nameStyle = lipgloss.NewStyle()
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %4.0f%%\n",
			icon,
			nameStyle.Width(16).Render(mk.Name),
			m.bars[i].ViewAs(clamp01(mk.Visibility)),
			clamp01(mk.Visibility)*100,
		))
	}

	if m.err != nil {
		b.WriteString("\n" + FormatError(m.err) + "\n")
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to stop"))
	return b.String()
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// FormatError renders err for inline display.
func FormatError(err error) string {
	return fmt.Sprintf("%s %s", ErrorStyle.Render(IconError), ErrorStyle.Render(err.Error()))
}

// RunStatus shows the live view until the user quits or ctx is cancelled.
func RunStatus(ctx context.Context, m *StatusModel) error {
	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
