// Package ui holds the small amount of terminal styling the CLI uses.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent    = 74  // blue
	colorValidator = 179 // amber
	colorMuted     = 245 // medium gray
	colorError     = 167 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderError returns s in the error (red) color.
func RenderError(s string) string { return paint(colorError, s) }

// RenderKind colors a registration kind: converters in the accent color,
// validators in amber, anything else unstyled.
func RenderKind(kind string) string {
	switch kind {
	case "converter":
		return paint(colorAccent, kind)
	case "validator":
		return paint(colorValidator, kind)
	}
	return kind
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// ColorEnabled reports whether styling is currently applied.
func ColorEnabled() bool { return !noColor }
