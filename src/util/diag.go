// diag.go writes user facing diagnostics. Errors go to stderr with an
// "Error: " prefix; phase banners go to stdout and only appear in verbose
// mode. Styling is applied through lipgloss, which degrades to plain text
// when stderr is not a terminal.

package util

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// -------------------
// ----- Globals -----
// -------------------

var (
	errStyle    = lipgloss.NewRenderer(os.Stderr).NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
)

// ---------------------
// ----- Functions -----
// ---------------------

// Error prints a formatted error message to stderr.
func Error(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", errStyle.Render("Error:"), fmt.Sprintf(format, args...))
}

// ErrorLine prints a single already formed error to stderr.
func ErrorLine(err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", errStyle.Render("Error:"), err)
}

// Banner prints a phase banner to stdout when verbose mode is enabled.
func Banner(opt Options, format string, args ...interface{}) {
	if !opt.Verbose {
		return
	}
	fmt.Println(bannerStyle.Render(fmt.Sprintf("--- %s ---", fmt.Sprintf(format, args...))))
}
