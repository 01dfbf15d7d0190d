package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the terminal colour scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Warn    lipgloss.Color
	Fail    lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#f0c000"),
	Fail:    lipgloss.Color("#ff5f5f"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border:  lipgloss.NewStyle().Foreground(t.Primary),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
		Success: lipgloss.NewStyle().Foreground(t.Primary),
		Warning: lipgloss.NewStyle().Foreground(t.Warn),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Fail),
	}
}

var styles = NewStyles(DefaultTheme)

// Field is one labelled row of a Panel.
type Field struct {
	Label string
	Value string
}

// Panel renders a boxed summary of a generated artifact.
type Panel struct {
	Styles Styles
	Title  string
	Fields []Field
}

// NewPanel returns a Panel using the default styles.
func NewPanel(title string, fields ...Field) Panel {
	return Panel{Styles: styles, Title: title, Fields: fields}
}

// Render draws the panel width cells wide. Values longer than the box are
// truncated with an ellipsis.
func (p Panel) Render(width int) string {
	bc := p.Styles.Border
	labelWidth := 0
	for _, f := range p.Fields {
		labelWidth = max(labelWidth, lipgloss.Width(f.Label))
	}
	// │ label␠␠value │
	inner := width - 4
	valueWidth := inner - labelWidth - 2

	var lines []string
	lines = append(lines, bc.Render("╭"+strings.Repeat("─", max(0, width-2))+"╮"))

	title := p.Styles.Title.Render(p.Title)
	lines = append(lines, bc.Render("│")+" "+title+
		strings.Repeat(" ", max(0, inner-lipgloss.Width(title)))+" "+bc.Render("│"))
	lines = append(lines, bc.Render("├"+strings.Repeat("─", max(0, width-2))+"┤"))

	for _, f := range p.Fields {
		value := f.Value
		if valueWidth > 1 && lipgloss.Width(value) > valueWidth {
			value = truncateString(value, valueWidth-1) + "…"
		}
		label := p.Styles.Label.Render(f.Label + strings.Repeat(" ", labelWidth-lipgloss.Width(f.Label)))
		text := label + "  " + value
		lines = append(lines, bc.Render("│")+" "+text+
			strings.Repeat(" ", max(0, inner-lipgloss.Width(text)))+" "+bc.Render("│"))
	}

	lines = append(lines, bc.Render("╰"+strings.Repeat("─", max(0, width-2))+"╯"))
	return strings.Join(lines, "\n")
}

// truncateString safely truncates a string to the given width,
// handling multi-byte characters correctly.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	currentWidth := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if currentWidth+w > width {
			return string(runes[:i])
		}
		currentWidth += w
	}
	return s
}
