package tui

import (
	"github.com/charmbracelet/lipgloss"

	"unosync/internal/domain"
	"unosync/internal/logring"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f5f5f5")).
			Background(lipgloss.Color("#c0262d")).
			Bold(true).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Underline(true).
			Bold(true)

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34d474"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f59e0b"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e06060"))

	goldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a844")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#606878")).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1e1e2a")).
			Padding(0, 1)

	cardColors = map[domain.Color]lipgloss.Color{
		domain.ColorRed:    lipgloss.Color("#e5484d"),
		domain.ColorYellow: lipgloss.Color("#f5d90a"),
		domain.ColorGreen:  lipgloss.Color("#46a758"),
		domain.ColorBlue:   lipgloss.Color("#3e63dd"),
		domain.ColorWild:   lipgloss.Color("#c084e0"),
	}
)

func cardStyle(c domain.Card) lipgloss.Style {
	color, ok := cardColors[c.EffectiveColor()]
	if !ok {
		color = cardColors[domain.ColorWild]
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

func severityStyle(s logring.Severity) lipgloss.Style {
	switch s {
	case logring.SeverityError:
		return errorStyle
	case logring.SeverityWarning:
		return warnStyle
	case logring.SeveritySuccess:
		return accentStyle
	default:
		return normalStyle
	}
}

func helpItem(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}
