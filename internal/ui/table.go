package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ornithopter83/selftrack/internal/pose"
)

// MarkerTable renders the configured marker set.
func MarkerTable(set pose.MarkerSet) string {
	if len(set.Markers) == 0 {
		return MutedStyle.Render("No markers")
	}

	var rows [][]string
	for _, m := range set.Markers {
		hex := pose.Hex(m.Color)
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
		rows = append(rows, []string{
			fmt.Sprintf("%d", m.Index),
			m.Name,
			m.Label,
			swatch + " " + hex,
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Landmark", "Name", "Label", "Color").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	footer := MutedStyle.Render(fmt.Sprintf("confidence ≥ %.2f, radius %.0fpx, frames need %d landmarks",
		set.Confidence, set.Radius, set.MinLandmarks()))
	return tbl.Render() + "\n" + footer
}

// SessionInfo is the pairing box shown when a receiver starts.
type SessionInfo struct {
	Token    string
	Sender   string
	Receiver string
	Page     string
}

func (s SessionInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Session ready!\n\n%s Token:     %s\n%s Camera:    %s\n%s Receiver:  %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(s.Token),
		IconCamera, MutedStyle.Render(s.Sender),
		IconScreen, MutedStyle.Render(s.Receiver),
	)
	if s.Page != "" {
		content += fmt.Sprintf("\n%s Page:      %s", IconPage, MutedStyle.Render(s.Page))
	}

	return boxStyle.Render(content)
}

// Summary is shown when a receiver session ends.
type Summary struct {
	Token     string
	Duration  time.Duration
	Viewport  string
	Frames    uint64
	Resizes   uint64
	Ignored   uint64
	Dropped   uint64
	Export    string
	Exported  uint64
	ExportErr uint64
}

// SummaryView renders the session summary as a table.
func SummaryView(title string, s Summary) string {
	t := prettytable.NewWriter()
	t.SetTitle(title)
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Token", s.Token},
		{"Duration", s.Duration.Round(time.Second).String()},
		{"Viewport", s.Viewport},
		{"Frames", s.Frames},
		{"Frame rate", fmt.Sprintf("%.1f fps", rate(s.Frames, s.Duration))},
		{"Resizes", s.Resizes},
		{"Ignored", s.Ignored},
		{"Dropped", s.Dropped},
	})
	if s.Export != "" {
		t.AppendSeparator()
		t.AppendRows([]prettytable.Row{
			{"Export", s.Export},
			{"Exported", s.Exported},
			{"Export errors", s.ExportErr},
		})
	}

	t.SetStyle(prettytable.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetColumnConfigs([]prettytable.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t.Render()
}

func RenderSummary(title string, s Summary) {
	fmt.Println(SummaryView(title, s))
}

func rate(n uint64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
