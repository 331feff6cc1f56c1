// Package agents implements the five retrieval agents that gather evidence
// for an incident: similar historical incidents, knowledge-base documents,
// correlated changes, logs, and platform events. Each agent wraps a
// connector call, scores and bounds the raw results, and returns a typed
// slot of models.AgentData. Connector capability gaps (ErrNotSupported)
// degrade to empty results rather than failures.
package agents

import (
	"strings"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors/kb"
)

// Agent is the common surface of every retrieval agent.
type Agent interface {
	Name() string
	DefaultPrompt() string
}

// Set bundles the five agents built from one configuration.
type Set struct {
	ServiceNow        *ServiceNowAgent
	KnowledgeBase     *KnowledgeBaseAgent
	ChangeCorrelation *ChangeCorrelationAgent
	Logs              *LogsAgent
	Events            *EventsAgent
}

// NewSet constructs the agents against the given connectors.
func NewSet(cfg config.AgentsConfig, incidents connectors.IncidentConnector, knowledge kb.Connector) *Set {
	return &Set{
		ServiceNow:        NewServiceNowAgent(incidents, cfg.SimilarityThreshold, cfg.MaxSimilarIncidents),
		KnowledgeBase:     NewKnowledgeBaseAgent(knowledge, cfg.MaxKnowledgeDocs),
		ChangeCorrelation: NewChangeCorrelationAgent(incidents, connectors.ChangeWindow{
			Before: cfg.ChangeWindowBefore.D(),
			After:  cfg.ChangeWindowAfter.D(),
		}),
		Logs:   NewLogsAgent(incidents, cfg.MaxLogs),
		Events: NewEventsAgent(incidents, cfg.MaxEvents),
	}
}

// Per-item confidence weights shared by the logs and events agents.
const (
	serviceMatchWeight = 0.5
	recencyWeight      = 0.3
	severityWeight     = 0.2

	// recencyHorizon is the distance from the incident creation time at
	// which an item's recency component reaches zero.
	recencyHorizon = 24 * time.Hour
)

// serviceMatches reports whether the item's service belongs to the
// incident's affected set. Comparison is case-insensitive and tolerates
// one name containing the other ("database" matches "database-primary").
func serviceMatches(affected []string, service string) bool {
	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" {
		return false
	}
	for _, a := range affected {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if a == service || strings.Contains(service, a) || strings.Contains(a, service) {
			return true
		}
	}
	return false
}

// recencyScore maps distance from the incident creation time to [0,1],
// linearly decaying to zero at the horizon.
func recencyScore(createdAt, t time.Time) float64 {
	delta := createdAt.Sub(t)
	if delta < 0 {
		delta = -delta
	}
	if delta >= recencyHorizon {
		return 0
	}
	return 1 - float64(delta)/float64(recencyHorizon)
}

// severityGrade weights an item's level/severity label.
func severityGrade(level string) float64 {
	switch strings.ToLower(level) {
	case "error", "critical":
		return 1
	case "warn", "warning":
		return 0.6
	default:
		return 0.2
	}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
