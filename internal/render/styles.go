package render

import "github.com/charmbracelet/lipgloss"

// Tokyo Night palette.
var (
	colorBlue   = lipgloss.Color("#7aa2f7")
	colorCyan   = lipgloss.Color("#7dcfff")
	colorFg     = lipgloss.Color("#c0caf5")
	colorMuted  = lipgloss.Color("#565f89")
	colorGreen  = lipgloss.Color("#9ece6a")
	colorYellow = lipgloss.Color("#e0af68")
	colorOrange = lipgloss.Color("#ff9e64")
	colorRed    = lipgloss.Color("#f7768e")
)

type styles struct {
	column      lipgloss.Style
	header      lipgloss.Style
	card        lipgloss.Style
	title       lipgloss.Style
	description lipgloss.Style
	muted       lipgloss.Style
	autoExec    lipgloss.Style
	ok          lipgloss.Style
	warn        lipgloss.Style
	bad         lipgloss.Style

	// priority badges keyed by transition.Level.Class
	priority map[string]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	badge := r.NewStyle().Bold(true).Padding(0, 1)
	return styles{
		column: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1),
		header:      r.NewStyle().Bold(true).Foreground(colorBlue),
		card:        r.NewStyle().MarginBottom(1),
		title:       r.NewStyle().Bold(true).Foreground(colorFg),
		description: r.NewStyle().Foreground(colorMuted),
		muted:       r.NewStyle().Foreground(colorMuted),
		autoExec:    badge.Foreground(colorCyan),
		ok:          r.NewStyle().Foreground(colorGreen),
		warn:        r.NewStyle().Foreground(colorYellow),
		bad:         r.NewStyle().Foreground(colorRed),
		priority: map[string]lipgloss.Style{
			"priority-critical": badge.Foreground(colorRed),
			"priority-high":     badge.Foreground(colorOrange),
			"priority-medium":   badge.Foreground(colorYellow),
			"priority-low":      badge.Foreground(colorMuted),
		},
	}
}
