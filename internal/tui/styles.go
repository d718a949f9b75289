package tui

import (
	"fmt"
	"strings"

	lipgloss "charm.land/lipgloss/v2"
)

// Watch view styles. One accent per event type so a scrolling ledger stays
// scannable.
var (
	styleTimestamp = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	styleDim       = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F849C"))
	styleContent   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4"))
	styleEmpty     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Italic(true)
	styleHeader    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B4BEFE")).Bold(true)
	styleFooter    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	styleEventDomain   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))
	styleEventClaim    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	styleEventConflict = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true)
	styleEventDecision = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	styleEventSignal   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387"))
	styleEventControl  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CBA6F7"))
)

// Gradient endpoints for the logo.
const (
	GradientStart = "#89B4FA"
	GradientEnd   = "#CBA6F7"
)

// ApplyGradient colors each line of text with an interpolated gradient
// between two hex colors, top to bottom.
func ApplyGradient(text, startHex, endHex string) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(startHex)).Render(text)
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		t := float64(i) / float64(len(lines)-1)
		color := InterpolateColor(startHex, endHex, t)
		out[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(line)
	}
	return strings.Join(out, "\n")
}

// InterpolateColor blends two hex colors; t=0 returns start, t=1 returns end.
func InterpolateColor(startHex, endHex string, t float64) string {
	sr, sg, sb, ok := parseHexColor(startHex)
	if !ok {
		return startHex
	}
	er, eg, eb, ok := parseHexColor(endHex)
	if !ok {
		return startHex
	}

	r := int(float64(sr) + t*float64(er-sr))
	g := int(float64(sg) + t*float64(eg-sg))
	b := int(float64(sb) + t*float64(eb-sb))
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}

func parseHexColor(s string) (r, g, b int, ok bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, false
	}
	return r, g, b, true
}
