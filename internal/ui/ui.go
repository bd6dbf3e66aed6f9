package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	White  = lipgloss.Color("15")
	Green  = lipgloss.Color("10")
	Yellow = lipgloss.Color("11")
	Red    = lipgloss.Color("9")

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

func Info(format string, args ...any) {
	fmt.Println(infoStyle.Render(fmt.Sprintf(format, args...)))
}

func Debug(format string, args ...any) {
	fmt.Println(debugStyle.Render(fmt.Sprintf(format, args...)))
}

func Warn(format string, args ...any) {
	fmt.Println(warnStyle.Render(fmt.Sprintf(format, args...)))
}

func Error(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
}

// PrefixedUI prints with a fixed prefix, used when output for several
// targets is interleaved.
type PrefixedUI struct {
	Prefix string
}

func (p *PrefixedUI) Success(format string, args ...any) {
	fmt.Println(p.Prefix + successStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *PrefixedUI) Info(format string, args ...any) {
	fmt.Println(p.Prefix + infoStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *PrefixedUI) Warn(format string, args ...any) {
	fmt.Println(p.Prefix + warnStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *PrefixedUI) Error(format string, args ...any) {
	fmt.Fprintln(os.Stderr, p.Prefix+errorStyle.Render(fmt.Sprintf(format, args...)))
}
