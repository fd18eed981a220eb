// Package display renders scan progress and run summaries for the console.
//
// Output is colored only when writing to a terminal; every function takes
// the writer explicitly so tests can capture plain text.
package display

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// styler colors text when enabled and returns it unchanged otherwise.
type styler struct {
	enabled bool
}

func (s styler) paint(text string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if s.enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(text)
}

func (s styler) bold(text string) string   { return s.paint(text, color.Bold) }
func (s styler) green(text string) string  { return s.paint(text, color.FgGreen) }
func (s styler) yellow(text string) string { return s.paint(text, color.FgYellow) }
func (s styler) red(text string) string    { return s.paint(text, color.FgRed) }
func (s styler) cyan(text string) string   { return s.paint(text, color.FgCyan) }
func (s styler) dim(text string) string    { return s.paint(text, color.FgHiBlack) }
