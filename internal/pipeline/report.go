// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

const (
	okMark   = "ok"
	warnMark = "warning"
	failMark = "failed"
)

// Status line styling. Colors match the palette used by the cmd package.
var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))

	failDetailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))
)

// printStatus writes the step's label without a newline; the outcome mark
// completes the line once the step finishes.
func (e *Engine) printStatus(label string) {
	fmt.Fprint(e.out, labelStyle.Render(label+" ... "))
}

// printOutcome completes the current status line with a colored mark.
func (e *Engine) printOutcome(mark string) {
	var rendered string
	switch mark {
	case okMark:
		rendered = okStyle.Render(mark)
	case warnMark:
		rendered = warnStyle.Render(mark)
	default:
		rendered = failStyle.Render(mark)
	}
	fmt.Fprintln(e.out, rendered)
}
