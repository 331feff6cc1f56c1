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

// LogsAgent retrieves log entries near the incident and ranks them by a
// per-entry confidence score.
type LogsAgent struct {
	connector connectors.IncidentConnector
	maxLogs   int
}

// NewLogsAgent builds the logs agent.
func NewLogsAgent(connector connectors.IncidentConnector, maxLogs int) *LogsAgent {
	return &LogsAgent{connector: connector, maxLogs: maxLogs}
}

func (a *LogsAgent) Name() string { return prompts.AgentLogs }

func (a *LogsAgent) DefaultPrompt() string { return prompts.Default(prompts.AgentLogs) }

// Query returns scored log entries, most relevant first. Connectors
// without log retrieval yield an empty result.
func (a *LogsAgent) Query(ctx context.Context, incident *models.Incident) (*models.LogsResults, error) {
	results := &models.LogsResults{
		Source:     a.connector.Name(),
		IncidentID: incident.ID,
		Logs:       []models.LogEntry{},
	}

	entries, err := a.connector.FindLogs(ctx, incident)
	if err != nil {
		if errors.Is(err, connectors.ErrNotSupported) {
			slog.DebugContext(ctx, "Log retrieval not supported by connector", "connector", a.connector.Name())
			return results, nil
		}
		return nil, fmt.Errorf("find logs for %s: %w", incident.ID, err)
	}

	for i := range entries {
		entries[i].ConfidenceScore = round2(a.scoreEntry(incident, entries[i]))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ConfidenceScore != entries[j].ConfidenceScore {
			return entries[i].ConfidenceScore > entries[j].ConfidenceScore
		}
		return entries[i].Timestamp > entries[j].Timestamp
	})
	if a.maxLogs > 0 && len(entries) > a.maxLogs {
		entries = entries[:a.maxLogs]
	}

	results.Logs = entries
	results.TotalCount = len(entries)
	for _, entry := range entries {
		switch strings.ToLower(entry.Level) {
		case "error":
			results.ErrorCount++
		case "warn", "warning":
			results.WarningCount++
		}
	}

	slog.DebugContext(ctx, "Logs retrieved",
		"incident_id", incident.ID, "count", results.TotalCount,
		"errors", results.ErrorCount, "warnings", results.WarningCount)
	return results, nil
}

func (a *LogsAgent) scoreEntry(incident *models.Incident, entry models.LogEntry) float64 {
	var svc float64
	if serviceMatches(incident.AffectedServices, entry.Service) {
		svc = 1
	}

	var recency float64
	if ts, ok := parseTimestamp(entry.Timestamp); ok {
		recency = recencyScore(incident.CreatedAt, ts)
	}

	return serviceMatchWeight*svc + recencyWeight*recency + severityWeight*severityGrade(entry.Level)
}
