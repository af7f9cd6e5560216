package output

import "os"

// ANSI codes used by the renderers.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
	colorHeader = "\033[2;36m"
)

// paint wraps s in code when color is on. Empty strings stay empty.
func paint(color bool, code, s string) string {
	if !color || s == "" {
		return s
	}
	return code + s + colorReset
}

func bold(color bool, s string) string {
	return paint(color, colorBold, s)
}

// Dimmed returns dimmed text if color is enabled.
func Dimmed(text string, color bool) string {
	return paint(color, colorGray, text)
}

// UseColor reports whether stdout gets ANSI colors. NO_COLOR and
// TERM=dumb switch them off; CI job logs always render them.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	if IsCI() {
		return true
	}
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
