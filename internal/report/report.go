package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"charm.land/glamour/v2"
	"github.com/mark3labs/arbitr/internal/ledger"
)

// Variety score bands. Totals at or below lightweightMax render the short
// report; anything above gets the full format.
const lightweightMax = 9

// Format selects a report shape.
type Format string

const (
	FormatAuto        Format = "auto"
	FormatLightweight Format = "lightweight"
	FormatFull        Format = "full"
)

// ParseFormat parses a report format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatAuto, "":
		return FormatAuto, nil
	case FormatLightweight:
		return FormatLightweight, nil
	case FormatFull:
		return FormatFull, nil
	default:
		return "", fmt.Errorf("invalid report format: %s (must be auto, lightweight, or full)", s)
	}
}

// Render projects session state into a markdown report. With FormatAuto the
// variety score picks the shape: low-variety sessions get the lightweight
// report, high-variety sessions the full one. An unscored session renders
// lightweight. Pure formatting, no state change.
func Render(state *ledger.State, format Format) string {
	switch format {
	case FormatLightweight:
		return RenderLightweight(state)
	case FormatFull:
		return RenderFull(state)
	default:
		if state.Variety != nil && state.Variety.Total() > lightweightMax {
			return RenderFull(state)
		}
		return RenderLightweight(state)
	}
}

// RenderLightweight produces the short report: one decision row per log
// entry plus the variety score and outcome. Used for low-variety sessions
// where a full retrospective would be ceremony.
func RenderLightweight(state *ledger.State) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Coordination Report: %s\n\n", state.Session))
	sb.WriteString(fmt.Sprintf("**Date:** %s\n", reportDate(state)))
	if state.Variety != nil {
		sb.WriteString(fmt.Sprintf("**Variety Score:** %d (lightweight)\n", state.Variety.Total()))
	}
	sb.WriteString("\n## Decisions\n\n")

	if len(state.Decisions) == 0 {
		sb.WriteString("No decisions recorded.\n")
	} else {
		sb.WriteString("| # | Phase | Decision | Rationale |\n")
		sb.WriteString("|---|-------|----------|----------|\n")
		for _, e := range state.Decisions {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				e.Seq, cell(e.Phase), cell(e.Decision), cell(e.Rationale)))
		}
	}

	if state.Outcome != "" {
		sb.WriteString(fmt.Sprintf("\n## Outcome\n\n%s\n", state.Outcome))
	}

	return sb.String()
}

// RenderFull produces the long report for high-variety sessions: variety
// breakdown, per-phase decision detail, domain boundaries, tensions
// (conflicts and their resolutions), algedonic signals and retrospective.
func RenderFull(state *ledger.State) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Coordination Report: %s\n\n", state.Session))
	sb.WriteString(fmt.Sprintf("**Date:** %s\n", reportDate(state)))

	if v := state.Variety; v != nil {
		sb.WriteString(fmt.Sprintf("**Variety Score:** %d (full)\n\n", v.Total()))
		sb.WriteString("## Variety Breakdown\n\n")
		sb.WriteString("| Dimension | Score |\n")
		sb.WriteString("|-----------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Novelty | %d |\n", v.Novelty))
		sb.WriteString(fmt.Sprintf("| Scope | %d |\n", v.Scope))
		sb.WriteString(fmt.Sprintf("| Uncertainty | %d |\n", v.Uncertainty))
		sb.WriteString(fmt.Sprintf("| Risk | %d |\n", v.Risk))
	}

	sb.WriteString("\n## Decisions\n\n")
	if len(state.Decisions) == 0 {
		sb.WriteString("No decisions recorded.\n")
	}
	for _, e := range state.Decisions {
		sb.WriteString(fmt.Sprintf("### %d. [%s] %s\n\n", e.Seq, e.Phase, e.Decision))
		if e.Rationale != "" {
			sb.WriteString(fmt.Sprintf("**Rationale:** %s\n", e.Rationale))
		}
		if e.Agent != "" {
			sb.WriteString(fmt.Sprintf("**Agent:** %s\n", e.Agent))
		}
		if e.Duration != "" {
			sb.WriteString(fmt.Sprintf("**Duration:** %s\n", e.Duration))
		}
		if e.Checkpoint != "" {
			sb.WriteString(fmt.Sprintf("**Checkpoint:** %s\n", e.Checkpoint))
		}
		if e.Findings != "" {
			sb.WriteString(fmt.Sprintf("**Findings:** %s\n", e.Findings))
		}
		sb.WriteString("\n")
	}

	if len(state.Domains) > 0 {
		sb.WriteString("## Domain Boundaries\n\n")
		sb.WriteString("| Domain | Patterns |\n")
		sb.WriteString("|--------|----------|\n")
		for _, name := range sortedDomainNames(state) {
			d := state.Domains[name]
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", cell(d.Name), cell(strings.Join(d.Patterns, ", "))))
		}
		sb.WriteString("\n")
	}

	if len(state.Conflicts) > 0 {
		sb.WriteString("## Tensions\n\n")
		sb.WriteString("| Kind | Path | Agent | Resolution |\n")
		sb.WriteString("|------|------|-------|------------|\n")
		for _, c := range sortedConflicts(state) {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				c.Kind, cell(c.Path), cell(c.AgentID), c.Resolution))
		}
		sb.WriteString("\n")
	}

	if len(state.Signals) > 0 {
		sb.WriteString("## Algedonic Signals\n\n")
		for _, sig := range state.Signals {
			sev := ""
			if sig.Severity != "" {
				sev = fmt.Sprintf(" (%s)", sig.Severity)
			}
			sb.WriteString(fmt.Sprintf("- **%s**%s: %s\n", sig.Kind, sev, sig.Content))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Retrospective\n\n")
	if state.Outcome != "" {
		sb.WriteString(state.Outcome + "\n")
	} else {
		sb.WriteString("No outcome recorded.\n")
	}

	return sb.String()
}

// Pretty renders a markdown report for terminal display with syntax
// highlighting. Falls back to the raw markdown if rendering fails.
func Pretty(markdown string, width int) string {
	if width <= 0 || width > 120 {
		width = 120
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSuffix(out, "\n")
}

// reportDate is the date of the last recorded decision, or today for a
// session with an empty log.
func reportDate(state *ledger.State) string {
	if n := len(state.Decisions); n > 0 {
		return state.Decisions[n-1].Timestamp.Format("2006-01-02")
	}
	return time.Now().Format("2006-01-02")
}

// cell escapes pipes and newlines so free-text fields cannot break table rows.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func sortedDomainNames(state *ledger.State) []string {
	names := make([]string, 0, len(state.Domains))
	for name := range state.Domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedConflicts(state *ledger.State) []*ledger.Conflict {
	out := make([]*ledger.Conflict, 0, len(state.Conflicts))
	for _, c := range state.Conflicts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
