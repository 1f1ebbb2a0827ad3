// Package cli provides shared formatting helpers for the newtsim console and
// command-line output.
package cli

import "os"

// ANSI SGR codes
const (
	sgrBold   = "1"
	sgrDim    = "2"
	sgrRed    = "31"
	sgrGreen  = "32"
	sgrYellow = "33"
)

// colorEnabled starts false when NO_COLOR is set (no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// SetColor turns ANSI styling on or off. The CLI turns it off when stdout is
// not a terminal.
func SetColor(enabled bool) {
	colorEnabled = enabled && os.Getenv("NO_COLOR") == ""
}

func paint(code, s string) string {
	if !colorEnabled || s == "" {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func Green(s string) string  { return paint(sgrGreen, s) }
func Yellow(s string) string { return paint(sgrYellow, s) }
func Red(s string) string    { return paint(sgrRed, s) }
func Bold(s string) string   { return paint(sgrBold, s) }
func Dim(s string) string    { return paint(sgrDim, s) }

// Verdict labels a command result: green "ok" or red "rejected".
func Verdict(accepted bool) string {
	if accepted {
		return Green("ok")
	}
	return Red("rejected")
}
