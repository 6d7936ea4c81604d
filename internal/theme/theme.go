// Package theme provides the colour palettes and lipgloss styles used for
// terminal output.
package theme

import (
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colours used in command output.
type Theme struct {
	Accent  lipgloss.Color // directories, progress bar
	MutedFg lipgloss.Color // dates, sizes, totals
	TextFg  lipgloss.Color
	WarnFg  lipgloss.Color // prompts
	ErrorFg lipgloss.Color
	Cyan    lipgloss.Color // leaf types
}

// Theme names.
const (
	DraculaName        = "dracula"
	NarnaName          = "narna"
	NordName           = "nord"
	SolarizedLightName = "solarized-light"
	GruvboxDarkName    = "gruvbox-dark"
)

// Dracula returns the Dracula theme (dark background, vibrant colors).
func Dracula() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#BD93F9"), // Purple
		MutedFg: lipgloss.Color("#6272A4"), // Comment
		TextFg:  lipgloss.Color("#F8F8F2"),
		WarnFg:  lipgloss.Color("#FFB86C"), // Orange
		ErrorFg: lipgloss.Color("#FF5555"),
		Cyan:    lipgloss.Color("#8BE9FD"),
	}
}

// Narna returns a balanced dark theme with blue accents.
func Narna() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#41ADFF"),
		MutedFg: lipgloss.Color("#8B949E"),
		TextFg:  lipgloss.Color("#E6EDF3"),
		WarnFg:  lipgloss.Color("#E3B341"),
		ErrorFg: lipgloss.Color("#F47067"),
		Cyan:    lipgloss.Color("#7CE0F3"),
	}
}

// Nord returns the arctic, north-bluish Nord theme.
func Nord() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#88C0D0"), // Frost
		MutedFg: lipgloss.Color("#4C566A"),
		TextFg:  lipgloss.Color("#ECEFF4"), // Snow Storm
		WarnFg:  lipgloss.Color("#EBCB8B"), // Aurora yellow
		ErrorFg: lipgloss.Color("#BF616A"), // Aurora red
		Cyan:    lipgloss.Color("#8FBCBB"),
	}
}

// SolarizedLight returns the light Solarized palette.
func SolarizedLight() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#268BD2"),
		MutedFg: lipgloss.Color("#93A1A1"),
		TextFg:  lipgloss.Color("#657B83"),
		WarnFg:  lipgloss.Color("#B58900"),
		ErrorFg: lipgloss.Color("#DC322F"),
		Cyan:    lipgloss.Color("#2AA198"),
	}
}

// GruvboxDark returns the retro groove dark theme.
func GruvboxDark() *Theme {
	return &Theme{
		Accent:  lipgloss.Color("#FABD2F"),
		MutedFg: lipgloss.Color("#928374"),
		TextFg:  lipgloss.Color("#EBDBB2"),
		WarnFg:  lipgloss.Color("#FE8019"),
		ErrorFg: lipgloss.Color("#FB4934"),
		Cyan:    lipgloss.Color("#8EC07C"),
	}
}

var themes = map[string]func() *Theme{
	DraculaName:        Dracula,
	NarnaName:          Narna,
	NordName:           Nord,
	SolarizedLightName: SolarizedLight,
	GruvboxDarkName:    GruvboxDark,
}

// GetTheme returns the named theme, falling back to Dracula.
func GetTheme(name string) *Theme {
	if fn, ok := themes[name]; ok {
		return fn()
	}
	return Dracula()
}

// AvailableThemes returns the sorted theme names.
func AvailableThemes() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Styles are the rendered styles for one output stream.
type Styles struct {
	Dir     lipgloss.Style
	File    lipgloss.Style
	Muted   lipgloss.Style
	Prompt  lipgloss.Style
	Error   lipgloss.Style
	Type    lipgloss.Style
	Bar     lipgloss.Color
	Bold    lipgloss.Style
	colored bool
}

// NewStyles builds the styles of t for out. The renderer detects whether out
// supports colour, so redirected output stays plain.
func NewStyles(t *Theme, out io.Writer) *Styles {
	r := lipgloss.NewRenderer(out)
	return &Styles{
		Dir:     r.NewStyle().Foreground(t.Accent).Bold(true),
		File:    r.NewStyle().Foreground(t.TextFg),
		Muted:   r.NewStyle().Foreground(t.MutedFg),
		Prompt:  r.NewStyle().Foreground(t.WarnFg),
		Error:   r.NewStyle().Foreground(t.ErrorFg).Bold(true),
		Type:    r.NewStyle().Foreground(t.Cyan).Italic(true),
		Bar:     t.Accent,
		Bold:    r.NewStyle().Bold(true),
		colored: true,
	}
}

// Plain returns styles that render text unchanged.
func Plain() *Styles {
	s := lipgloss.NewRenderer(io.Discard).NewStyle()
	return &Styles{Dir: s, File: s, Muted: s, Prompt: s, Error: s, Type: s, Bold: s}
}

// Colored reports whether the styles were built for a terminal renderer.
func (s *Styles) Colored() bool {
	return s.colored
}
