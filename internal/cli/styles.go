package cli

import "charm.land/lipgloss/v2"

var (
	ColorMatrix = lipgloss.Color("#00AA00") // Matrix green
	ColorError  = lipgloss.Color("#AA0000")
	ColorGray   = lipgloss.Color("#888888")
)

var (
	infoStyle  = lipgloss.NewStyle().Foreground(ColorMatrix)
	errorStyle = lipgloss.NewStyle().Foreground(ColorError)
	stageStyle = lipgloss.NewStyle().Foreground(ColorGray)
)
