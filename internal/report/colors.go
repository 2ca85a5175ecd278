package report

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"github.com/relplan/relplan/internal/policy"
)

// Colorizer colors the summary output.
type Colorizer struct {
	headingColorizer   func(string) string
	publishColorizer   func(string) string
	publishedColorizer func(string) string
	unknownColorizer   func(string) string
	filteredColorizer  func(string) string
	excludedColorizer  func(string) string
	paddingColorizer   func(string) string
}

// NewColorizer creates a new Colorizer.
func NewColorizer(shouldColor bool) *Colorizer {
	if !shouldColor {
		noColor := func(s string) string { return s }

		return &Colorizer{
			headingColorizer:   noColor,
			publishColorizer:   noColor,
			publishedColorizer: noColor,
			unknownColorizer:   noColor,
			filteredColorizer:  noColor,
			excludedColorizer:  noColor,
			paddingColorizer:   noColor,
		}
	}

	return &Colorizer{
		headingColorizer:   ansi.ColorFunc("yellow+bh"),
		publishColorizer:   ansi.ColorFunc("green+bh"),
		publishedColorizer: ansi.ColorFunc("white+h"),
		unknownColorizer:   ansi.ColorFunc("red+bh"),
		filteredColorizer:  ansi.ColorFunc("blue+bh"),
		excludedColorizer:  ansi.ColorFunc("blue+h"),
		paddingColorizer:   ansi.ColorFunc("gray"),
	}
}

// ShouldColor reports whether output to f should be colored: f must be a terminal and NO_COLOR unset.
func ShouldColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Colorizer) colorStatus(status string) string {
	switch policy.Status(status) {
	case policy.StatusPublish:
		return c.publishColorizer(status)
	case policy.StatusPublished:
		return c.publishedColorizer(status)
	case policy.StatusUnknown:
		return c.unknownColorizer(status)
	case policy.StatusFiltered:
		return c.filteredColorizer(status)
	}

	return status
}
