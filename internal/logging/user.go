package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// User-facing status lines. All of them go to stderr: stdout belongs to
// the test command running inside the sandbox.

var (
	userOut io.Writer = os.Stderr

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// SetUserOutput redirects user-facing output. A nil writer restores stderr.
func SetUserOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	userOut = w
}

// UserInfo prints an info message.
func UserInfo(format string, args ...interface{}) {
	userLine(infoStyle, "ℹ", format, args...)
}

// UserSuccess prints a success message.
func UserSuccess(format string, args ...interface{}) {
	userLine(successStyle, "✓", format, args...)
}

// UserWarning prints a warning message.
func UserWarning(format string, args ...interface{}) {
	userLine(warningStyle, "⚠", format, args...)
}

// UserError prints an error message.
func UserError(format string, args ...interface{}) {
	userLine(errorStyle, "✗", format, args...)
}

func userLine(style lipgloss.Style, indicator, format string, args ...interface{}) {
	fmt.Fprintf(userOut, "%s %s\n", style.Render(indicator), fmt.Sprintf(format, args...))
}
