package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
)

// EventsAgent retrieves platform events near the incident and ranks them
// by a per-event confidence score.
type EventsAgent struct {
	connector connectors.IncidentConnector
	maxEvents int
}

// NewEventsAgent builds the events agent.
func NewEventsAgent(connector connectors.IncidentConnector, maxEvents int) *EventsAgent {
	return &EventsAgent{connector: connector, maxEvents: maxEvents}
}

func (a *EventsAgent) Name() string { return prompts.AgentEvents }

func (a *EventsAgent) DefaultPrompt() string { return prompts.Default(prompts.AgentEvents) }

// Query returns scored events, most relevant first. Connectors without
// event retrieval yield an empty result.
func (a *EventsAgent) Query(ctx context.Context, incident *models.Incident) (*models.EventsResults, error) {
	results := &models.EventsResults{
		Source:     a.connector.Name(),
		IncidentID: incident.ID,
		Events:     []models.Event{},
	}

	events, err := a.connector.FindEvents(ctx, incident)
	if err != nil {
		if errors.Is(err, connectors.ErrNotSupported) {
			slog.DebugContext(ctx, "Event retrieval not supported by connector", "connector", a.connector.Name())
			return results, nil
		}
		return nil, fmt.Errorf("find events for %s: %w", incident.ID, err)
	}

	for i := range events {
		events[i].ConfidenceScore = round2(a.scoreEvent(incident, events[i]))
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].ConfidenceScore != events[j].ConfidenceScore {
			return events[i].ConfidenceScore > events[j].ConfidenceScore
		}
		return events[i].Timestamp > events[j].Timestamp
	})
	if a.maxEvents > 0 && len(events) > a.maxEvents {
		events = events[:a.maxEvents]
	}

	results.Events = events
	results.TotalCount = len(events)
	for _, ev := range events {
		switch strings.ToLower(ev.Severity) {
		case "critical":
			results.CriticalCount++
		case "warning":
			results.WarningCount++
		}
	}

	slog.DebugContext(ctx, "Events retrieved",
		"incident_id", incident.ID, "count", results.TotalCount,
		"critical", results.CriticalCount, "warnings", results.WarningCount)
	return results, nil
}

func (a *EventsAgent) scoreEvent(incident *models.Incident, ev models.Event) float64 {
	var svc float64
	if serviceMatches(incident.AffectedServices, ev.Application) {
		svc = 1
	}

	var recency float64
	if ts, ok := parseTimestamp(ev.Timestamp); ok {
		recency = recencyScore(incident.CreatedAt, ts)
	}

	return serviceMatchWeight*svc + recencyWeight*recency + severityWeight*severityGrade(ev.Severity)
}
