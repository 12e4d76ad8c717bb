// Package ui holds the terminal styling of ytsync.
//
// [Palette] wraps [lipgloss] styles for titles, successes, errors, warnings and muted help text.
// The run summary and history listings in the formatter package are painted with it; tests use
// [PlainPalette] to compare uncolored output.
package ui
