package agents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// fakeConnector lets each test script connector behavior per capability.
type fakeConnector struct {
	similar    []models.SimilarIncident
	similarErr error
	changes    []models.ChangeRecord
	changesErr error
	logs       []models.LogEntry
	logsErr    error
	events     []models.Event
	eventsErr  error

	window connectors.ChangeWindow
}

func (f *fakeConnector) Name() string { return "fake" }

func (f *fakeConnector) ListIncidents(context.Context) ([]*models.Incident, error) {
	return nil, nil
}

func (f *fakeConnector) GetIncident(context.Context, string) (*models.Incident, error) {
	return nil, connectors.ErrNotFound
}

func (f *fakeConnector) UpdateStatus(context.Context, string, models.Status) (*models.Incident, error) {
	return nil, connectors.ErrNotFound
}

func (f *fakeConnector) FindSimilar(_ context.Context, _ *models.Incident, _ float64, _ int) ([]models.SimilarIncident, error) {
	return f.similar, f.similarErr
}

func (f *fakeConnector) FindChanges(_ context.Context, _ *models.Incident, window connectors.ChangeWindow) ([]models.ChangeRecord, error) {
	f.window = window
	return f.changes, f.changesErr
}

func (f *fakeConnector) FindLogs(context.Context, *models.Incident) ([]models.LogEntry, error) {
	return f.logs, f.logsErr
}

func (f *fakeConnector) FindEvents(context.Context, *models.Incident) ([]models.Event, error) {
	return f.events, f.eventsErr
}

var testIncident = &models.Incident{
	ID:               "INC001",
	Title:            "Database connection pool exhausted",
	Description:      "Connections to the primary database are timing out under load",
	Severity:         models.SeverityHigh,
	Status:           models.StatusOpen,
	CreatedAt:        time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	AffectedServices: []string{"database", "api-gateway"},
}

func TestServiceNowAgentQuery(t *testing.T) {
	conn := &fakeConnector{
		similar: []models.SimilarIncident{
			{TicketID: "TKT-1001", IncidentID: "INC007", Resolution: "Increased pool size to 200 and recycled stale connections", SimilarityScore: 0.81},
			{TicketID: "TKT-1002", IncidentID: "INC011", Description: "Pool exhaustion after deploy", SimilarityScore: 0.5},
		},
	}
	a := NewServiceNowAgent(conn, 0.2, 5)

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)
	assert.Equal(t, "fake", results.Source)
	assert.Equal(t, "INC001", results.IncidentID)
	assert.Len(t, results.SimilarIncidents, 2)
	// Only tickets with a resolution contribute to the resolutions list.
	assert.Equal(t, []string{"Increased pool size to 200 and recycled stale connections"}, results.Resolutions)
	require.NotNil(t, results.QualityAssessment)
	assert.Equal(t, 2, results.QualityAssessment.Summary.TotalTickets)
}

func TestServiceNowAgentNotSupported(t *testing.T) {
	a := NewServiceNowAgent(&fakeConnector{similarErr: connectors.ErrNotSupported}, 0.2, 5)

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)
	assert.Empty(t, results.SimilarIncidents)
	assert.NotNil(t, results.QualityAssessment)
}

func TestServiceNowAgentUpstreamError(t *testing.T) {
	a := NewServiceNowAgent(&fakeConnector{similarErr: connectors.ErrUpstream}, 0.2, 5)

	_, err := a.Query(t.Context(), testIncident)
	assert.ErrorIs(t, err, connectors.ErrUpstream)
}

func TestChangeCorrelationPartitions(t *testing.T) {
	curated := func(f float64) *float64 { return &f }
	conn := &fakeConnector{
		changes: []models.ChangeRecord{
			{ChangeID: "CHG005", Description: "Lowered database pool size", DeployedAt: testIncident.CreatedAt.Add(-2 * time.Hour), Service: "database", Score: curated(0.88)},
			{ChangeID: "CHG006", Description: "Gateway rollout", DeployedAt: testIncident.CreatedAt.Add(-6 * time.Hour), Service: "api-gateway", Score: curated(0.55)},
			{ChangeID: "CHG007", Description: "Cache tuning", DeployedAt: testIncident.CreatedAt.Add(-24 * time.Hour), Service: "cache", Score: curated(0.35)},
			{ChangeID: "CHG008", Description: "Docs update", DeployedAt: testIncident.CreatedAt.Add(-48 * time.Hour), Service: "docs", Score: curated(0.1)},
		},
	}
	a := NewChangeCorrelationAgent(conn, connectors.ChangeWindow{Before: 7 * 24 * time.Hour, After: time.Hour})

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)

	require.NotNil(t, results.TopSuspect)
	assert.Equal(t, "CHG005", results.TopSuspect.ChangeID)
	assert.InDelta(t, 0.88, results.TopSuspect.CorrelationScore, 1e-9)

	require.Len(t, results.HighCorrelationChanges, 1)
	assert.Equal(t, "CHG006", results.HighCorrelationChanges[0].ChangeID)

	require.Len(t, results.MediumCorrelationChanges, 1)
	assert.Equal(t, "CHG007", results.MediumCorrelationChanges[0].ChangeID)

	// CHG008 scored below the medium threshold and is dropped entirely.
	assert.Len(t, results.AllCorrelations, 3)

	// The configured window reached the connector.
	assert.Equal(t, 7*24*time.Hour, conn.window.Before)
}

func TestChangeCorrelationComputedBlend(t *testing.T) {
	// No curated score: service overlap 1/2, temporal ~1, keyword > 0.
	conn := &fakeConnector{
		changes: []models.ChangeRecord{
			{
				ChangeID:    "CHG100",
				Description: "Reduced database connection pool size",
				DeployedAt:  testIncident.CreatedAt.Add(-time.Hour),
				Service:     "database",
			},
		},
	}
	a := NewChangeCorrelationAgent(conn, connectors.ChangeWindow{Before: 7 * 24 * time.Hour, After: time.Hour})

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)
	require.Len(t, results.AllCorrelations, 1)

	score := results.AllCorrelations[0].CorrelationScore
	// Service Jaccard 0.5 × 0.5 plus temporal ≈ 0.3 plus some keyword overlap.
	assert.Greater(t, score, 0.5)
	assert.LessOrEqual(t, score, 1.0)
}

func TestChangeCorrelationEmpty(t *testing.T) {
	a := NewChangeCorrelationAgent(&fakeConnector{}, connectors.ChangeWindow{Before: 7 * 24 * time.Hour, After: time.Hour})

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)
	assert.Nil(t, results.TopSuspect)
	assert.Empty(t, results.AllCorrelations)
}

func TestLogsAgentScoringAndCap(t *testing.T) {
	created := testIncident.CreatedAt
	conn := &fakeConnector{
		logs: []models.LogEntry{
			{Timestamp: created.Add(-10 * time.Minute).Format(time.RFC3339), Level: "INFO", Service: "billing", Message: "heartbeat"},
			{Timestamp: created.Add(-5 * time.Minute).Format(time.RFC3339), Level: "ERROR", Service: "database", Message: "Database connection timeout after 30s"},
			{Timestamp: created.Add(-30 * time.Minute).Format(time.RFC3339), Level: "WARN", Service: "api-gateway", Message: "Connection pool near capacity: 90%"},
		},
	}
	a := NewLogsAgent(conn, 2)

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)

	require.Len(t, results.Logs, 2)
	// The matching ERROR entry outranks everything.
	assert.Equal(t, "Database connection timeout after 30s", results.Logs[0].Message)
	assert.Greater(t, results.Logs[0].ConfidenceScore, results.Logs[1].ConfidenceScore)
	assert.Equal(t, 2, results.TotalCount)
	assert.Equal(t, 1, results.ErrorCount)
	assert.Equal(t, 1, results.WarningCount)
}

func TestLogsAgentNotSupported(t *testing.T) {
	a := NewLogsAgent(&fakeConnector{logsErr: connectors.ErrNotSupported}, 20)

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)
	assert.Empty(t, results.Logs)
	assert.Zero(t, results.TotalCount)
}

func TestEventsAgentScoringAndCounts(t *testing.T) {
	created := testIncident.CreatedAt
	conn := &fakeConnector{
		events: []models.Event{
			{ID: "EVT-1", Timestamp: created.Add(-3 * time.Minute).Format(time.RFC3339), Severity: "CRITICAL", Application: "database", Message: "Health check failing"},
			{ID: "EVT-2", Timestamp: created.Add(-40 * time.Minute).Format(time.RFC3339), Severity: "INFO", Application: "analytics", Message: "Deployment event"},
			{ID: "EVT-3", Timestamp: created.Add(-15 * time.Minute).Format(time.RFC3339), Severity: "WARNING", Application: "api-gateway", Message: "CPU spike"},
		},
	}
	a := NewEventsAgent(conn, 20)

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)

	require.Len(t, results.Events, 3)
	assert.Equal(t, "EVT-1", results.Events[0].ID)
	assert.Equal(t, 3, results.TotalCount)
	assert.Equal(t, 1, results.CriticalCount)
	assert.Equal(t, 1, results.WarningCount)
}

func TestEventsAgentNotSupported(t *testing.T) {
	a := NewEventsAgent(&fakeConnector{eventsErr: connectors.ErrNotSupported}, 20)

	results, err := a.Query(t.Context(), testIncident)
	require.NoError(t, err)
	assert.Empty(t, results.Events)
}

func TestServiceMatches(t *testing.T) {
	affected := []string{"database", "api-gateway"}
	assert.True(t, serviceMatches(affected, "database"))
	assert.True(t, serviceMatches(affected, "Database"))
	assert.True(t, serviceMatches(affected, "database-primary"))
	assert.False(t, serviceMatches(affected, "billing"))
	assert.False(t, serviceMatches(affected, ""))
}

func TestRecencyScore(t *testing.T) {
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.InDelta(t, 1.0, recencyScore(created, created), 1e-9)
	assert.InDelta(t, 0.5, recencyScore(created, created.Add(-12*time.Hour)), 1e-9)
	assert.Zero(t, recencyScore(created, created.Add(-48*time.Hour)))
}

func TestTruncateAtWord(t *testing.T) {
	assert.Equal(t, "short", truncateAtWord("short", 100))

	long := "alpha beta gamma delta"
	got := truncateAtWord(long, 13)
	assert.Equal(t, "alpha beta...", got)
}
