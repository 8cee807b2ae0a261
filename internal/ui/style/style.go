// Package style holds the colors, icons and lipgloss styles of the CLI.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Honey  = lipgloss.Color("#E0A526")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
	Blue   = lipgloss.Color("#3B82F6")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
	Dot     = "●"
	Circle  = "○"
)

// Styles used when printing the dependency graph.
var (
	Directory = lipgloss.NewStyle().Bold(true).Foreground(Honey)
	Outdated  = lipgloss.NewStyle().Foreground(Yellow)
	UpToDate  = lipgloss.NewStyle().Foreground(Green)
	Muted     = lipgloss.NewStyle().Foreground(Slate)
)
