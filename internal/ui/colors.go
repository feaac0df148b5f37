package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/quantmind-br/gnushark/internal/core"
)

// Color scheme for gnushark
var (
	// Primary actions
	Success = color.New(color.FgGreen)
	Error   = color.New(color.FgRed, color.Bold)
	Warning = color.New(color.FgYellow)
	Info    = color.New(color.FgCyan)

	// Secondary actions
	Highlight = color.New(color.FgHiCyan, color.Bold)
	Muted     = color.New(color.Faint)
	Bold      = color.New(color.Bold)

	// Status indicators
	CheckMark = color.GreenString("✓")
	CrossMark = color.RedString("✗")
	Arrow     = color.CyanString("→")
	Bullet    = color.HiBlackString("•")

	// Package source colors
	SourceOfficial   = color.New(color.FgGreen)
	SourceThirdParty = color.New(color.FgMagenta)
	SourceSandboxed  = color.New(color.FgBlue)
)

// InitColors initializes color settings based on environment
func InitColors() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	// Respect TERM environment variable
	if os.Getenv("TERM") == "dumb" {
		color.NoColor = true
	}
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	FprintError(os.Stderr, format, args...)
}

// FprintSuccess writes a success message to w
func FprintSuccess(w io.Writer, format string, args ...interface{}) {
	Success.Fprintf(w, "%s %s\n", CheckMark, fmt.Sprintf(format, args...))
}

// FprintError writes an error message to w
func FprintError(w io.Writer, format string, args ...interface{}) {
	Error.Fprintf(w, "%s Error: %s\n", CrossMark, fmt.Sprintf(format, args...))
}

// FprintInfo writes an info message to w
func FprintInfo(w io.Writer, format string, args ...interface{}) {
	Info.Fprintf(w, "%s %s\n", Arrow, fmt.Sprintf(format, args...))
}

// FprintKeyValue writes a key-value pair with color
func FprintKeyValue(w io.Writer, key, value string) {
	Bold.Fprintf(w, "%s: ", key)
	fmt.Fprintln(w, value)
}

// FprintHeader writes a section header
func FprintHeader(w io.Writer, text string) {
	fmt.Fprintln(w)
	Bold.Fprintln(w, text)
	Muted.Fprintln(w, "────────────────────────────────────────")
}

// FprintList writes a bulleted list
func FprintList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "  %s %s\n", Bullet, item)
	}
}

// ColorizeSource returns a colored package source
func ColorizeSource(src core.Source) string {
	switch src {
	case core.SourceOfficial:
		return SourceOfficial.Sprint(string(src))
	case core.SourceThirdParty:
		return SourceThirdParty.Sprint(string(src))
	case core.SourceSandboxed:
		return SourceSandboxed.Sprint(string(src))
	case "":
		return "-"
	default:
		return string(src)
	}
}

// ColorizeStatus returns a colored run status
func ColorizeStatus(status core.RunStatus) string {
	switch status {
	case core.RunFinished:
		return Success.Sprint(string(status))
	case core.RunFailed:
		return Error.Sprint(string(status))
	case core.RunTimedOut:
		return Warning.Sprint(string(status))
	case core.RunExecuting:
		return Info.Sprint(string(status))
	default:
		return string(status)
	}
}

// Mark returns a check mark when ok, else a cross
func Mark(ok bool) string {
	if ok {
		return CheckMark
	}
	return CrossMark
}

// DisableColors disables all color output
func DisableColors() {
	color.NoColor = true
}
