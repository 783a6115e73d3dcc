package ui

import "github.com/charmbracelet/lipgloss"

// Theme is a named color palette for the interface.
type Theme struct {
	Name       string
	Background lipgloss.Color
	Foreground lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Active     lipgloss.Color
	Error      lipgloss.Color
}

// TokyoNight is the default theme.
func TokyoNight() Theme {
	return Theme{
		Name:       "tokyo-night",
		Background: lipgloss.Color("#1a1b26"),
		Foreground: lipgloss.Color("#c0caf5"),
		Accent:     lipgloss.Color("#7aa2f7"),
		Muted:      lipgloss.Color("#565f89"),
		Border:     lipgloss.Color("#3b4261"),
		Active:     lipgloss.Color("#bb9af7"),
		Error:      lipgloss.Color("#f7768e"),
	}
}

// CatppuccinMocha is the alternative dark theme.
func CatppuccinMocha() Theme {
	return Theme{
		Name:       "catppuccin-mocha",
		Background: lipgloss.Color("#1e1e2e"),
		Foreground: lipgloss.Color("#cdd6f4"),
		Accent:     lipgloss.Color("#89b4fa"),
		Muted:      lipgloss.Color("#6c7086"),
		Border:     lipgloss.Color("#45475a"),
		Active:     lipgloss.Color("#cba6f7"),
		Error:      lipgloss.Color("#f38ba8"),
	}
}

// ThemeByName resolves a configured theme name, falling back to the
// default for unknown names.
func ThemeByName(name string) Theme {
	switch name {
	case "catppuccin-mocha":
		return CatppuccinMocha()
	default:
		return TokyoNight()
	}
}
