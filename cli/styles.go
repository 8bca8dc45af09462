package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Lucas-MARIE/audio-viz/orchestrator"
	"github.com/Lucas-MARIE/audio-viz/structure"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")
	dropColor    = lipgloss.Color("#FF5F87")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(dropColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	highlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(dropColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)
)

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

func keyValue(k, v string) string {
	return KeyStyle.Render(k+":") + " " + ValueStyle.Render(v)
}

func clock(sec float64) string {
	s := int(sec + 0.5)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// printSummary renders one analysis result as a boxed section table.
func printSummary(w io.Writer, res *orchestrator.Result) {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(res.Filename) + "\n")
	b.WriteString(strings.Join([]string{
		keyValue("Duration", clock(res.Duration)),
		keyValue("Tempo", fmt.Sprintf("%.1f BPM", res.Tempo)),
		keyValue("Drops", fmt.Sprint(len(res.Drops))),
	}, "  ") + "\n\n")

	for i, s := range res.Sections {
		shader := "-"
		if i < len(res.Timeline) {
			e := res.Timeline[i]
			shader = fmt.Sprintf("%d (%d/%d)", e.ShaderIndex, e.ShaderPair.Sharp, e.ShaderPair.Blurred)
		}
		label := fmt.Sprintf("%-12s", s.Type)
		if s.Type == structure.Drop || s.Type == structure.FinalChorus {
			label = highlightStyle.Render(label)
		}
		fmt.Fprintf(&b, "%2d  %s-%s  %s  %s %.3f  %s %s\n",
			s.Index, clock(s.Start), clock(s.End), label,
			KeyStyle.Render("energy"), s.Energy,
			KeyStyle.Render("shader"), shader)
	}
	if len(res.Drops) > 0 {
		marks := make([]string, len(res.Drops))
		for i, d := range res.Drops {
			marks[i] = clock(d)
		}
		b.WriteString("\n" + keyValue("Drops at", strings.Join(marks, ", ")) + "\n")
	}
	b.WriteString(KeyStyle.Render(structure.Summary(res.Sections)))
	fmt.Fprintln(w, boxStyle.Render(b.String()))
}
