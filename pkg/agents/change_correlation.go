package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
	"github.com/codeready-toolchain/smartrecover/pkg/similarity"
)

// Correlation blend weights and partition thresholds.
const (
	changeServiceWeight  = 0.5
	changeTemporalWeight = 0.3
	changeKeywordWeight  = 0.2

	topSuspectThreshold = 0.7
	highThreshold       = 0.5
	mediumThreshold     = 0.3
)

// ChangeCorrelationAgent scores recent changes against the incident and
// partitions them by correlation strength.
type ChangeCorrelationAgent struct {
	connector connectors.IncidentConnector
	window    connectors.ChangeWindow
}

// NewChangeCorrelationAgent builds the change-correlation agent.
func NewChangeCorrelationAgent(connector connectors.IncidentConnector, window connectors.ChangeWindow) *ChangeCorrelationAgent {
	return &ChangeCorrelationAgent{connector: connector, window: window}
}

func (a *ChangeCorrelationAgent) Name() string { return prompts.AgentChangeCorrelation }

func (a *ChangeCorrelationAgent) DefaultPrompt() string {
	return prompts.Default(prompts.AgentChangeCorrelation)
}

// Query retrieves changes deployed inside the window around the incident
// creation time, scores them, and partitions the survivors. Changes
// scoring below the medium threshold are dropped entirely. A curated
// score from the connector wins over the computed blend.
func (a *ChangeCorrelationAgent) Query(ctx context.Context, incident *models.Incident) (*models.ChangeResults, error) {
	results := &models.ChangeResults{
		Source:                   a.connector.Name(),
		IncidentID:               incident.ID,
		HighCorrelationChanges:   []models.CorrelatedChange{},
		MediumCorrelationChanges: []models.CorrelatedChange{},
		AllCorrelations:          []models.CorrelatedChange{},
	}

	records, err := a.connector.FindChanges(ctx, incident, a.window)
	if err != nil {
		if errors.Is(err, connectors.ErrNotSupported) {
			slog.DebugContext(ctx, "Change retrieval not supported by connector", "connector", a.connector.Name())
			return results, nil
		}
		return nil, fmt.Errorf("find changes for %s: %w", incident.ID, err)
	}

	for _, rec := range records {
		score := a.scoreChange(incident, rec)
		if score < mediumThreshold {
			continue
		}
		results.AllCorrelations = append(results.AllCorrelations, models.CorrelatedChange{
			ChangeID:         rec.ChangeID,
			Description:      rec.Description,
			DeployedAt:       rec.DeployedAt.Format(time.RFC3339),
			Service:          rec.Service,
			CorrelationScore: round2(score),
		})
	}

	sort.Slice(results.AllCorrelations, func(i, j int) bool {
		if results.AllCorrelations[i].CorrelationScore != results.AllCorrelations[j].CorrelationScore {
			return results.AllCorrelations[i].CorrelationScore > results.AllCorrelations[j].CorrelationScore
		}
		return results.AllCorrelations[i].ChangeID < results.AllCorrelations[j].ChangeID
	})

	for i := range results.AllCorrelations {
		ch := results.AllCorrelations[i]
		if results.TopSuspect == nil && ch.CorrelationScore >= topSuspectThreshold {
			cp := ch
			results.TopSuspect = &cp
			continue
		}
		if ch.CorrelationScore >= highThreshold {
			results.HighCorrelationChanges = append(results.HighCorrelationChanges, ch)
		} else {
			results.MediumCorrelationChanges = append(results.MediumCorrelationChanges, ch)
		}
	}

	slog.DebugContext(ctx, "Changes correlated",
		"incident_id", incident.ID, "kept", len(results.AllCorrelations), "top_suspect", results.TopSuspect != nil)
	return results, nil
}

// scoreChange blends service overlap, temporal proximity, and keyword
// overlap unless the connector already curated a score.
func (a *ChangeCorrelationAgent) scoreChange(incident *models.Incident, rec models.ChangeRecord) float64 {
	if rec.Score != nil {
		return *rec.Score
	}

	svc := similarity.ServiceSimilarity(incident.AffectedServices, []string{rec.Service})

	delta := incident.CreatedAt.Sub(rec.DeployedAt)
	if delta < 0 {
		delta = -delta
	}
	temporal := 1 - float64(delta)/float64(a.window.Before)
	if temporal < 0 {
		temporal = 0
	}

	keyword := similarity.TextSimilarity(rec.Description, incident.Title+" "+incident.Description)

	return changeServiceWeight*svc + changeTemporalWeight*temporal + changeKeywordWeight*keyword
}
