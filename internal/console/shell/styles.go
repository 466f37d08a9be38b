package shell

import "github.com/charmbracelet/lipgloss"

// Styles are the shell's lipgloss styles. Colors are ANSI 256 codes.
type Styles struct {
	Header   lipgloss.Style
	Menu     lipgloss.Style
	Selected lipgloss.Style
	Active   lipgloss.Style
	Content  lipgloss.Style
	Title    lipgloss.Style
	Help     lipgloss.Style
	Error    lipgloss.Style
	Notice   lipgloss.Style
	Form     lipgloss.Style
}

// DefaultStyles is the built-in dark-terminal scheme.
var DefaultStyles = Styles{
	Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("24")).Padding(0, 1),
	Menu:     lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).BorderRight(true).BorderForeground(lipgloss.Color("240")),
	Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("31")),
	Active:   lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true),
	Content:  lipgloss.NewStyle().Padding(0, 1),
	Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")).MarginBottom(1),
	Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	Notice:   lipgloss.NewStyle().Foreground(lipgloss.Color("179")),
	Form:     lipgloss.NewStyle().Padding(1, 2).BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("31")),
}
