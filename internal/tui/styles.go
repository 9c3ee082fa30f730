package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorWork   = lipgloss.Color("#7D56F4")
	colorRest   = lipgloss.Color("#04B575")
	colorPaused = lipgloss.Color("#FFB86C")
	colorMuted  = lipgloss.Color("#626262")
	colorError  = lipgloss.Color("#FF5F87")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorWork)
	sectionStyle = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	nameStyle    = lipgloss.NewStyle().Bold(true)
	clockStyle   = lipgloss.NewStyle().Bold(true)
	restStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorRest)
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorPaused)
	doneSetStyle = lipgloss.NewStyle().Foreground(colorRest)
	nextSetStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWork)
	openSetStyle = lipgloss.NewStyle().Foreground(colorMuted)
	helpStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorWork).Padding(0, 2)
)
