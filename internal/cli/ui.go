package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives the human-readable command output. Logs and the spinner
// go to stderr so that `grandgraph config path` and friends stay pipeable.
var stdout io.Writer = os.Stdout

// ANSI 256 palette. Accent is the node color of the renderer's light theme.
var (
	colorAccent = lipgloss.Color("38")
	colorOK     = lipgloss.Color("78")
	colorWarn   = lipgloss.Color("214")
	colorFail   = lipgloss.Color("203")
	colorCmd    = lipgloss.Color("111")
	colorText   = lipgloss.Color("252")
	colorMuted  = lipgloss.Color("244")
	colorFaint  = lipgloss.Color("239")
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleDim     = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue   = lipgloss.NewStyle().Foreground(colorText)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorAccent)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleKey         = lipgloss.NewStyle().Foreground(colorMuted).Width(12)
	styleCommand     = lipgloss.NewStyle().Foreground(colorCmd)
)

// status is one kind of prefixed result line.
type status struct {
	glyph string
	style lipgloss.Style
}

var (
	statusOK   = status{"✓", lipgloss.NewStyle().Foreground(colorOK)}
	statusFail = status{"✗", lipgloss.NewStyle().Foreground(colorFail)}
	statusWarn = status{"!", lipgloss.NewStyle().Foreground(colorWarn)}
	statusInfo = status{"›", lipgloss.NewStyle().Foreground(colorMuted)}
)

func (s status) println(text string) {
	fmt.Fprintln(stdout, s.style.Render(s.glyph)+" "+text)
}

func printSuccess(format string, args ...any) { statusOK.println(fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { statusFail.println(fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { statusInfo.println(fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	statusWarn.println(StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written artifact.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printStats summarizes a loaded ego graph:
//
//	12 nodes · 11 edges · from api-binary · fresh
func printStats(nodes, edges int, origin string, cached bool) {
	fields := []string{
		StyleDim.Render(fmt.Sprintf("%d nodes", nodes)),
		StyleDim.Render(fmt.Sprintf("%d edges", edges)),
	}
	if origin != "" {
		fields = append(fields, StyleDim.Render("from "+origin))
	}
	if cached {
		fields = append(fields, statusOK.style.Render("cached"))
	} else {
		fields = append(fields, statusInfo.style.Render("fresh"))
	}
	fmt.Fprintln(stdout, "  "+strings.Join(fields, StyleDim.Render(" · ")))
}

func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}
