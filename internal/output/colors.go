package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title  *color.Color
	Label  *color.Color
	Value  *color.Color
	Good   *color.Color
	Warn   *color.Color
	Bad    *color.Color
	Dim    *color.Color
	Accent *color.Color
}

// DefaultColorScheme returns the default color scheme. Colors are always
// emitted; use NoColorScheme when the writer is not a terminal.
func DefaultColorScheme() *ColorScheme {
	scheme := newScheme()
	scheme.each(func(c *color.Color) { c.EnableColor() })
	return scheme
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := newScheme()
	scheme.each(func(c *color.Color) { c.DisableColor() })
	return scheme
}

func newScheme() *ColorScheme {
	return &ColorScheme{
		Title:  color.New(color.FgCyan, color.Bold),
		Label:  color.New(color.FgWhite),
		Value:  color.New(color.FgCyan),
		Good:   color.New(color.FgGreen, color.Bold),
		Warn:   color.New(color.FgYellow, color.Bold),
		Bad:    color.New(color.FgRed, color.Bold),
		Dim:    color.New(color.Faint),
		Accent: color.New(color.FgMagenta, color.Bold),
	}
}

func (s *ColorScheme) each(fn func(*color.Color)) {
	for _, c := range []*color.Color{s.Title, s.Label, s.Value, s.Good, s.Warn, s.Bad, s.Dim, s.Accent} {
		fn(c)
	}
}

// ErrorRate picks the color for an error rate between 0 and 1.
func (s *ColorScheme) ErrorRate(rate float64) *color.Color {
	switch {
	case rate <= 0:
		return s.Good
	case rate < 0.05:
		return s.Warn
	default:
		return s.Bad
	}
}

// Status picks the color for an HTTP status code; 0 is a transport error.
func (s *ColorScheme) Status(code int) *color.Color {
	switch {
	case code == 0 || code >= 500:
		return s.Bad
	case code >= 400:
		return s.Warn
	default:
		return s.Good
	}
}
