package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
	"github.com/codeready-toolchain/smartrecover/pkg/quality"
)

// ServiceNowAgent finds similar resolved incidents and harvests their
// resolutions, attaching a quality assessment of the returned tickets.
type ServiceNowAgent struct {
	connector  connectors.IncidentConnector
	threshold  float64
	maxResults int
}

// NewServiceNowAgent builds the similar-incident agent.
func NewServiceNowAgent(connector connectors.IncidentConnector, threshold float64, maxResults int) *ServiceNowAgent {
	return &ServiceNowAgent{connector: connector, threshold: threshold, maxResults: maxResults}
}

func (a *ServiceNowAgent) Name() string { return prompts.AgentServiceNow }

func (a *ServiceNowAgent) DefaultPrompt() string { return prompts.Default(prompts.AgentServiceNow) }

// Query returns similar resolved incidents with their resolutions.
func (a *ServiceNowAgent) Query(ctx context.Context, incident *models.Incident) (*models.ServiceNowResults, error) {
	results := &models.ServiceNowResults{
		Source:           a.connector.Name(),
		IncidentID:       incident.ID,
		SimilarIncidents: []models.SimilarIncident{},
		Resolutions:      []string{},
	}

	similar, err := a.connector.FindSimilar(ctx, incident, a.threshold, a.maxResults)
	if err != nil {
		if errors.Is(err, connectors.ErrNotSupported) {
			slog.DebugContext(ctx, "Similar-incident search not supported by connector", "connector", a.connector.Name())
			results.QualityAssessment = quality.Assess(nil)
			return results, nil
		}
		return nil, fmt.Errorf("find similar incidents for %s: %w", incident.ID, err)
	}

	results.SimilarIncidents = similar
	results.QualityAssessment = quality.Assess(similar)
	for _, si := range similar {
		if si.Resolution != "" {
			results.Resolutions = append(results.Resolutions, si.Resolution)
		}
	}

	slog.DebugContext(ctx, "Similar incidents retrieved",
		"incident_id", incident.ID, "count", len(similar), "quality", results.QualityAssessment.OverallLevel)
	return results, nil
}
