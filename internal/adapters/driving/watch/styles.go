package watch

import "github.com/charmbracelet/lipgloss"

// Styles contains the pre-configured lipgloss styles for the watcher.
type Styles struct {
	Title     lipgloss.Style
	RunID     lipgloss.Style
	Phase     lipgloss.Style
	Cancelled lipgloss.Style
	Metric    lipgloss.Style
	Log       lipgloss.Style
	Answer    lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
}

// DefaultStyles returns the default watcher styles.
func DefaultStyles() *Styles {
	return &Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		RunID:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Phase:     lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Cancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Metric:    lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Log:       lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
		Answer:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
}
