package orchestrator

import (
	"fmt"
	"strings"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// Per-section item bounds in the rendered context. Logs and events are
// always capped at five; the other sections use the configured limit.
const contextLogItems = 5

// renderContext produces the deterministic text rendering of filtered
// AgentData that feeds both synthesis and chat prompts. Section order is
// fixed; empty sections are omitted.
func renderContext(data *models.AgentData, maxItems int) string {
	var b strings.Builder

	changes := data.ChangeResults
	if changes != nil && changes.TopSuspect != nil {
		ts := changes.TopSuspect
		fmt.Fprintf(&b, "TOP SUSPECT CHANGE:\n")
		fmt.Fprintf(&b, "- Change ID: %s\n", ts.ChangeID)
		fmt.Fprintf(&b, "- Description: %s\n", ts.Description)
		fmt.Fprintf(&b, "- Deployed At: %s\n", ts.DeployedAt)
		fmt.Fprintf(&b, "- Correlation Score: %.0f%%\n", ts.CorrelationScore*100)
	}

	if sn := data.ServiceNowResults; sn != nil && len(sn.SimilarIncidents) > 0 {
		fmt.Fprintf(&b, "\nSIMILAR HISTORICAL INCIDENTS: %d found\n", len(sn.SimilarIncidents))
		for i, si := range capN(sn.SimilarIncidents, maxItems) {
			fmt.Fprintf(&b, "%d. %s (score: %.0f%%)\n", i+1, si.Title, si.SimilarityScore*100)
		}
	}

	if sn := data.ServiceNowResults; sn != nil && len(sn.Resolutions) > 0 {
		fmt.Fprintf(&b, "\nPREVIOUS RESOLUTIONS:\n")
		for i, res := range capN(sn.Resolutions, maxItems) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, res)
		}
	}

	if cf := data.ConfluenceResults; cf != nil && len(cf.Documents) > 0 {
		fmt.Fprintf(&b, "\nRELEVANT KNOWLEDGE BASE ARTICLES: %d found\n", len(cf.Documents))
		for i, doc := range capN(cf.Documents, maxItems) {
			fmt.Fprintf(&b, "%d. %s\n", i+1, doc.Title)
			if snippet := snippet(doc.Content, 200); snippet != "" {
				fmt.Fprintf(&b, "   %s\n", snippet)
			}
		}
	}

	if lg := data.LogsResults; lg != nil && len(lg.Logs) > 0 {
		fmt.Fprintf(&b, "\nRECENT LOG ENTRIES: %d found\n", lg.TotalCount)
		for i, entry := range capN(lg.Logs, contextLogItems) {
			fmt.Fprintf(&b, "%d. [%s] %s: %s (confidence: %.0f%%)\n",
				i+1, entry.Level, entry.Service, entry.Message, entry.ConfidenceScore*100)
		}
	}

	if ev := data.EventsResults; ev != nil && len(ev.Events) > 0 {
		fmt.Fprintf(&b, "\nPLATFORM EVENTS: %d found\n", ev.TotalCount)
		for i, e := range capN(ev.Events, contextLogItems) {
			fmt.Fprintf(&b, "%d. [%s] %s - %s: %s (confidence: %.0f%%)\n",
				i+1, e.Severity, e.Application, e.Type, e.Message, e.ConfidenceScore*100)
		}
	}

	if counts := renderCounts(data); counts != "" {
		fmt.Fprintf(&b, "\nSUMMARY COUNTS:\n%s", counts)
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "No additional context available."
	}
	return out
}

func renderCounts(data *models.AgentData) string {
	var b strings.Builder
	if sn := data.ServiceNowResults; sn != nil {
		fmt.Fprintf(&b, "- similar incidents: %d\n", len(sn.SimilarIncidents))
	}
	if cf := data.ConfluenceResults; cf != nil {
		fmt.Fprintf(&b, "- knowledge documents: %d\n", len(cf.Documents))
	}
	if ch := data.ChangeResults; ch != nil {
		fmt.Fprintf(&b, "- correlated changes: %d\n", len(ch.AllCorrelations))
	}
	if lg := data.LogsResults; lg != nil {
		fmt.Fprintf(&b, "- log entries: %d (%d errors, %d warnings)\n",
			lg.TotalCount, lg.ErrorCount, lg.WarningCount)
	}
	if ev := data.EventsResults; ev != nil {
		fmt.Fprintf(&b, "- events: %d (%d critical, %d warnings)\n",
			ev.TotalCount, ev.CriticalCount, ev.WarningCount)
	}
	return b.String()
}

// snippet returns the leading n characters of s with an ellipsis marker.
func snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func capN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
