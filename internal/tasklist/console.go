package tasklist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// ConsoleObserver prints one line per finished task.
type ConsoleObserver struct {
	w io.Writer
}

// NewConsoleObserver creates an observer that writes to w.
func NewConsoleObserver(w io.Writer) *ConsoleObserver {
	return &ConsoleObserver{w: w}
}

func (c *ConsoleObserver) OnEvent(e Event) {
	switch e.Status {
	case StatusSucceeded:
		fmt.Fprintf(c.w, "%s %s\n", successStyle.Render("✔"), e.Title)
	case StatusSkipped:
		fmt.Fprintf(c.w, "%s %s %s\n", skippedStyle.Render("↓"), e.Title, dimStyle.Render("[skipped]"))
	case StatusFailed:
		fmt.Fprintf(c.w, "%s %s\n", failureStyle.Render("✖"), e.Title)
		if e.Err != nil {
			for _, line := range strings.Split(e.Err.Error(), "\n") {
				fmt.Fprintf(c.w, "  %s %s\n", dimStyle.Render("→"), line)
			}
		}
	}
}
