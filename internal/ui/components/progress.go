package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/coursecraft/internal/ui/theme"
)

// StepBar shows how far through a fixed number of steps the user is.
type StepBar struct {
	Current int
	Total   int
	Width   int
}

// View renders "Step n of m" followed by the bar.
func (p StepBar) View() string {
	label := lipgloss.NewStyle().Foreground(theme.TextDim).Render(fmt.Sprintf("Step %d of %d", p.Current, p.Total))

	barWidth := p.Width - lipgloss.Width(label) - 2
	if barWidth < 4 {
		barWidth = 4
	}
	filled := 0
	if p.Total > 0 {
		filled = barWidth * p.Current / p.Total
	}
	filled = max(0, min(filled, barWidth))

	return label + "  " +
		lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))
}
