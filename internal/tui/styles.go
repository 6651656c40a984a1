package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	positiveColor  = lipgloss.Color("#10B981")
	negativeColor  = lipgloss.Color("#EF4444")
	warnColor      = lipgloss.Color("#F59E0B")
	mutedColor     = lipgloss.Color("#6B7280")
	borderColor    = lipgloss.Color("#374151")
	textColor      = lipgloss.Color("#F9FAFB")
	secondaryColor = lipgloss.Color("#9CA3AF")
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	focusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	timeStyle    = lipgloss.NewStyle().Foreground(secondaryColor)
	headingStyle = lipgloss.NewStyle().Foreground(textColor)

	liveStyle     = lipgloss.NewStyle().Foreground(positiveColor)
	degradedStyle = lipgloss.NewStyle().Foreground(warnColor)
	failedStyle   = lipgloss.NewStyle().Foreground(negativeColor)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Padding(0, 1)
	statusKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
)

func renderPanel(title, body string, focused bool, width, height int) string {
	style := panelStyle
	if focused {
		style = focusedPanelStyle
	}
	if width < 4 {
		width = 4
	}
	if height < 3 {
		height = 3
	}
	content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), body)
	return style.Width(width - 2).Height(height - 2).Render(content)
}
