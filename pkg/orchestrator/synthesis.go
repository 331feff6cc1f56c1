package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/smartrecover/pkg/llm"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
)

// Confidence contributions. Purely additive, clamped to [0,1].
const (
	confidenceBase          = 0.2
	confidenceTopSuspect    = 0.3
	confidenceSimilar       = 0.2
	confidenceKnowledge     = 0.15
	confidenceErrorLogs     = 0.1
	confidenceCriticalEvent = 0.05

	// topSuspectConfidenceScore is the correlation the top suspect must
	// reach before it contributes to confidence.
	topSuspectConfidenceScore = 0.8
)

// Resolve runs the full graph plus blocking LLM synthesis and returns the
// structured resolution. LLM failure degrades to a deterministic summary
// built from the gathered evidence.
func (o *Orchestrator) Resolve(ctx context.Context, incidentID, userQuery string) (*models.ResolveResponse, error) {
	data, err := o.fetchAgentData(ctx, incidentID, userQuery)
	if err != nil {
		return nil, err
	}

	response := &models.ResolveResponse{
		IncidentID:        incidentID,
		ResolutionSteps:   []string{},
		RelatedKnowledge:  []string{},
		CorrelatedChanges: []string{},
		Confidence:        calculateConfidence(data),
	}

	if sn := data.ServiceNowResults; sn != nil {
		response.ResolutionSteps = append(response.ResolutionSteps, sn.Resolutions...)
	}
	if cf := data.ConfluenceResults; cf != nil {
		response.RelatedKnowledge = append(response.RelatedKnowledge, cf.KnowledgeBaseArticles...)
	}
	if ch := data.ChangeResults; ch != nil {
		if ch.TopSuspect != nil {
			response.CorrelatedChanges = append(response.CorrelatedChanges, formatChange(*ch.TopSuspect))
		}
		for _, c := range ch.HighCorrelationChanges {
			response.CorrelatedChanges = append(response.CorrelatedChanges, formatChange(c))
		}
	}

	renderedContext := renderContext(data, o.contextItems)
	response.Summary = o.synthesizeSummary(ctx, incidentID, userQuery, renderedContext, data)

	slog.InfoContext(ctx, "Synthesis complete",
		"incident_id", incidentID, "confidence", response.Confidence,
		"resolution_steps", len(response.ResolutionSteps))
	return response, nil
}

// synthesizeSummary asks the LLM for the summary, falling back to the
// deterministic basic summary when the call fails.
func (o *Orchestrator) synthesizeSummary(ctx context.Context, incidentID, userQuery, renderedContext string, data *models.AgentData) string {
	systemPrompt, err := o.prompts.Get(prompts.AgentOrchestrator)
	if err != nil {
		systemPrompt = prompts.Default(prompts.AgentOrchestrator)
	}

	userMessage := fmt.Sprintf(`Based on the following incident data, provide a concise summary of the incident, likely cause, and recommended resolution steps:

Incident ID: %s
User Query: %s

%s

Provide a summary that:
1. Identifies the most likely cause of the incident
2. Suggests resolution steps based on historical data
3. Notes any relevant knowledge base articles or changes
4. Is clear and actionable for the incident responder`, incidentID, userQuery, renderedContext)

	summary, err := o.llm.Complete(ctx, systemPrompt,
		[]llm.Message{{Role: llm.RoleUser, Content: userMessage}},
		llm.LogMeta{
			IncidentID:     incidentID,
			PromptType:     models.PromptTypeSynthesis,
			ContextSummary: renderedContext,
		})
	if err != nil {
		slog.WarnContext(ctx, "LLM synthesis failed, using fallback summary", "incident_id", incidentID, "error", err)
		return basicSummary(data)
	}
	return summary
}

// basicSummary is the LLM-free fallback built from evidence counts.
func basicSummary(data *models.AgentData) string {
	var parts []string

	if ch := data.ChangeResults; ch != nil && ch.TopSuspect != nil {
		parts = append(parts, fmt.Sprintf("Likely cause: %s (deployed at %s, correlation: %.0f%%)",
			ch.TopSuspect.Description, ch.TopSuspect.DeployedAt, ch.TopSuspect.CorrelationScore*100))
	}
	if sn := data.ServiceNowResults; sn != nil && len(sn.SimilarIncidents) > 0 {
		parts = append(parts, fmt.Sprintf("Found %d similar historical incidents", len(sn.SimilarIncidents)))
	}
	if cf := data.ConfluenceResults; cf != nil && len(cf.Documents) > 0 {
		parts = append(parts, fmt.Sprintf("Found %d relevant knowledge articles", len(cf.Documents)))
	}

	if len(parts) == 0 {
		return "No significant findings from available data sources."
	}
	return strings.Join(parts, ". ")
}

// calculateConfidence scores the evidence gathered for the incident.
func calculateConfidence(data *models.AgentData) float64 {
	score := confidenceBase

	if ch := data.ChangeResults; ch != nil && ch.TopSuspect != nil &&
		ch.TopSuspect.CorrelationScore >= topSuspectConfidenceScore {
		score += confidenceTopSuspect
	}
	if sn := data.ServiceNowResults; sn != nil && len(sn.SimilarIncidents) > 0 {
		score += confidenceSimilar
	}
	if cf := data.ConfluenceResults; cf != nil && len(cf.Documents) > 0 {
		score += confidenceKnowledge
	}
	if lg := data.LogsResults; lg != nil && lg.ErrorCount > 0 {
		score += confidenceErrorLogs
	}
	if ev := data.EventsResults; ev != nil && ev.CriticalCount > 0 {
		score += confidenceCriticalEvent
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func formatChange(c models.CorrelatedChange) string {
	return fmt.Sprintf("%s: %s (score: %.2f)", c.ChangeID, c.Description, c.CorrelationScore)
}
