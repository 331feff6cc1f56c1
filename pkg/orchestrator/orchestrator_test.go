package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/smartrecover/pkg/agents"
	"github.com/codeready-toolchain/smartrecover/pkg/cache"
	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/exclusions"
	"github.com/codeready-toolchain/smartrecover/pkg/llm"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
)

var incINC001 = &models.Incident{
	ID:               "INC001",
	Title:            "Database connection pool exhausted",
	Description:      "Connections to the primary database are timing out under load",
	Severity:         models.SeverityHigh,
	Status:           models.StatusOpen,
	CreatedAt:        time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	AffectedServices: []string{"database", "api-gateway"},
}

// spyConnector counts retrieval calls so tests can assert cache hits.
type spyConnector struct {
	calls atomic.Int64

	similar []models.SimilarIncident
	changes []models.ChangeRecord
	logs    []models.LogEntry
	events  []models.Event
}

func (s *spyConnector) Name() string { return "mock" }

func (s *spyConnector) ListIncidents(context.Context) ([]*models.Incident, error) {
	return []*models.Incident{incINC001}, nil
}

func (s *spyConnector) GetIncident(_ context.Context, id string) (*models.Incident, error) {
	if id != incINC001.ID {
		return nil, connectors.ErrNotFound
	}
	return incINC001, nil
}

func (s *spyConnector) UpdateStatus(context.Context, string, models.Status) (*models.Incident, error) {
	return incINC001, nil
}

func (s *spyConnector) FindSimilar(context.Context, *models.Incident, float64, int) ([]models.SimilarIncident, error) {
	s.calls.Add(1)
	return s.similar, nil
}

func (s *spyConnector) FindChanges(context.Context, *models.Incident, connectors.ChangeWindow) ([]models.ChangeRecord, error) {
	s.calls.Add(1)
	return s.changes, nil
}

func (s *spyConnector) FindLogs(context.Context, *models.Incident) ([]models.LogEntry, error) {
	s.calls.Add(1)
	return s.logs, nil
}

func (s *spyConnector) FindEvents(context.Context, *models.Incident) ([]models.Event, error) {
	s.calls.Add(1)
	return s.events, nil
}

// failingKB errors on every search, exercising graceful degradation.
type failingKB struct{ fail bool }

func (f *failingKB) Name() string { return "mock" }

func (f *failingKB) Search(context.Context, string, string, int) ([]models.KnowledgeDocument, error) {
	if f.fail {
		return nil, errors.New("kb unavailable")
	}
	return []models.KnowledgeDocument{
		{DocID: "DOC-101", Title: "Database Failover Procedure", Content: "Steps to fail over the primary database", RelevanceScore: 1.0},
		{DocID: "DOC-102", Title: "Connection Pool Tuning", Content: "How to size the pool", RelevanceScore: 0.8},
		{DocID: "DOC-103", Title: "Gateway Runbook", Content: "Gateway restart steps", RelevanceScore: 0.6},
	}, nil
}

func (f *failingKB) Get(context.Context, string) (*models.KnowledgeDocument, error) {
	return nil, errors.New("kb unavailable")
}

// stubLLM returns a fixed reply, or errors when failing is set.
type stubLLM struct {
	reply   string
	failing bool
}

func (s *stubLLM) Name() string  { return "stub" }
func (s *stubLLM) Model() string { return "stub-model" }

func (s *stubLLM) Complete(context.Context, string, []llm.Message) (string, error) {
	if s.failing {
		return "", llm.ErrProviderFailed
	}
	return s.reply, nil
}

func (s *stubLLM) Stream(ctx context.Context, _ string, _ []llm.Message) (<-chan llm.StreamChunk, error) {
	if s.failing {
		return nil, llm.ErrProviderFailed
	}
	out := make(chan llm.StreamChunk, 2)
	out <- llm.StreamChunk{Content: "The likely cause "}
	out <- llm.StreamChunk{Content: "is the pool change."}
	close(out)
	return out, nil
}

func scoreOf(f float64) *float64 { return &f }

func newTestOrchestrator(t *testing.T, conn *spyConnector, kbConn *failingKB, client llm.Client) *Orchestrator {
	t.Helper()
	agentsCfg := config.AgentsConfig{
		MaxSimilarIncidents: 5,
		SimilarityThreshold: 0.2,
		MaxKnowledgeDocs:    5,
		MaxLogs:             20,
		MaxEvents:           20,
		ContextItems:        5,
		ChangeWindowBefore:  config.Duration(7 * 24 * time.Hour),
		ChangeWindowAfter:   config.Duration(time.Hour),
	}
	set := agents.NewSet(agentsCfg, conn, kbConn)
	manager := llm.NewManagerWithClient(client, config.LLMConfig{Timeout: config.Duration(5 * time.Second)}, llm.NewPromptLog(10))
	return New(conn, set, cache.New(time.Minute), exclusions.NewStore(),
		manager, prompts.NewStore(""), config.CacheConfig{TTL: config.Duration(time.Minute)}, agentsCfg)
}

func fullSpyConnector() *spyConnector {
	created := incINC001.CreatedAt
	return &spyConnector{
		similar: []models.SimilarIncident{
			{TicketID: "TKT-1001", IncidentID: "INC007", Title: "Pool exhaustion in payment DB", Resolution: "Increased pool size to 200 and recycled stale connections", SimilarityScore: 0.73},
			{TicketID: "TKT-1002", IncidentID: "INC011", Title: "Timeouts after deploy", Description: "Pool exhaustion after deploy window", SimilarityScore: 0.20},
		},
		changes: []models.ChangeRecord{
			{ChangeID: "CHG005", Description: "Lowered database pool size", DeployedAt: created.Add(-2 * time.Hour), Service: "database", Score: scoreOf(0.88)},
			{ChangeID: "CHG006", Description: "Gateway config rollout", DeployedAt: created.Add(-6 * time.Hour), Service: "api-gateway", Score: scoreOf(0.72)},
		},
		logs: []models.LogEntry{
			{Timestamp: created.Add(-5 * time.Minute).Format(time.RFC3339), Level: "ERROR", Service: "database", Message: "Database connection timeout after 30s"},
			{Timestamp: created.Add(-9 * time.Minute).Format(time.RFC3339), Level: "ERROR", Service: "database", Message: "Connection refused"},
			{Timestamp: created.Add(-12 * time.Minute).Format(time.RFC3339), Level: "ERROR", Service: "api-gateway", Message: "Upstream 504"},
			{Timestamp: created.Add(-20 * time.Minute).Format(time.RFC3339), Level: "ERROR", Service: "api-gateway", Message: "Circuit breaker opened"},
		},
		events: []models.Event{
			{ID: "EVT-00001", Timestamp: created.Add(-4 * time.Minute).Format(time.RFC3339), Type: "Service Down", Severity: "CRITICAL", Application: "database", Message: "Health check failing"},
		},
	}
}

func TestResolveColdPath(t *testing.T) {
	conn := fullSpyConnector()
	o := newTestOrchestrator(t, conn, &failingKB{}, &stubLLM{reply: "Roll back CHG005."})

	resp, err := o.Resolve(t.Context(), "INC001", "What happened?")
	require.NoError(t, err)

	assert.Equal(t, "INC001", resp.IncidentID)
	assert.Equal(t, "Roll back CHG005.", resp.Summary)
	assert.GreaterOrEqual(t, resp.Confidence, 0.65)
	assert.LessOrEqual(t, resp.Confidence, 1.0)

	require.NotEmpty(t, resp.CorrelatedChanges)
	assert.Contains(t, resp.CorrelatedChanges[0], "CHG005")
	assert.Contains(t, resp.ResolutionSteps, "Increased pool size to 200 and recycled stale connections")
	assert.Contains(t, resp.RelatedKnowledge, "Database Failover Procedure")
}

func TestResolveDegradesWhenKBFails(t *testing.T) {
	conn := fullSpyConnector()
	o := newTestOrchestrator(t, conn, &failingKB{fail: true}, &stubLLM{reply: "summary"})

	resp, err := o.Resolve(t.Context(), "INC001", "What happened?")
	require.NoError(t, err)

	assert.Empty(t, resp.RelatedKnowledge)
	// Other evidence intact.
	assert.NotEmpty(t, resp.CorrelatedChanges)
	assert.NotEmpty(t, resp.ResolutionSteps)

	data, ok := o.CachedAgentData("INC001")
	require.True(t, ok)
	assert.Nil(t, data.ConfluenceResults)
}

func TestResolveIncidentNotFound(t *testing.T) {
	o := newTestOrchestrator(t, &spyConnector{}, &failingKB{}, &stubLLM{reply: "x"})

	_, err := o.Resolve(t.Context(), "INC999", "?")
	assert.ErrorIs(t, err, connectors.ErrNotFound)
}

func TestResolveLLMFailureFallsBack(t *testing.T) {
	conn := fullSpyConnector()
	o := newTestOrchestrator(t, conn, &failingKB{}, &stubLLM{failing: true})

	resp, err := o.Resolve(t.Context(), "INC001", "What happened?")
	require.NoError(t, err)
	assert.Contains(t, resp.Summary, "Likely cause: Lowered database pool size")
	assert.Contains(t, resp.Summary, "2 similar historical incidents")
}

func TestChatStreamUsesCache(t *testing.T) {
	conn := fullSpyConnector()
	o := newTestOrchestrator(t, conn, &failingKB{}, &stubLLM{reply: "ok"})

	_, err := o.Resolve(t.Context(), "INC001", "What happened?")
	require.NoError(t, err)
	retrievalCalls := conn.calls.Load()

	ch, err := o.ChatStream(t.Context(), "INC001", "And the fix?", nil)
	require.NoError(t, err)

	var chunks int
	for range ch {
		chunks++
	}
	assert.GreaterOrEqual(t, chunks, 2)
	assert.Equal(t, retrievalCalls, conn.calls.Load(), "chat after resolve must not re-run retrieval")
}

func TestExcludedChangePromotesNextSuspect(t *testing.T) {
	conn := fullSpyConnector()
	o := newTestOrchestrator(t, conn, &failingKB{}, &stubLLM{reply: "ok"})

	_, err := o.RetrieveContext(t.Context(), "INC001")
	require.NoError(t, err)

	o.exclusions.Exclude("INC001", models.ExcludedItem{ItemID: "CHG005", Kind: exclusions.KindChange, Source: "mock"})

	data, ok := o.CachedAgentData("INC001")
	require.True(t, ok)
	require.NotNil(t, data.ChangeResults.TopSuspect)
	assert.Equal(t, "CHG006", data.ChangeResults.TopSuspect.ChangeID)

	rendered := renderContext(data, 5)
	assert.NotContains(t, rendered, "CHG005")
	assert.Contains(t, rendered, "CHG006")
}

func TestRetrieveContextRecordsAccuracy(t *testing.T) {
	conn := fullSpyConnector()
	o := newTestOrchestrator(t, conn, &failingKB{}, &stubLLM{reply: "ok"})

	_, err := o.RetrieveContext(t.Context(), "INC001")
	require.NoError(t, err)

	m := o.exclusions.Metrics()
	assert.Equal(t, int64(2), m.Categories[exclusions.CategorySimilarIncidents].Returned)
	assert.Equal(t, int64(3), m.Categories[exclusions.CategoryKnowledgeDocuments].Returned)
	assert.Equal(t, int64(2), m.Categories[exclusions.CategoryChanges].Returned)
	assert.Equal(t, int64(4), m.Categories[exclusions.CategoryLogs].Returned)
	assert.Equal(t, int64(1), m.Categories[exclusions.CategoryEvents].Returned)
}

func TestRenderContextSectionsAndOrder(t *testing.T) {
	conn := fullSpyConnector()
	o := newTestOrchestrator(t, conn, &failingKB{}, &stubLLM{reply: "ok"})

	data, err := o.RetrieveContext(t.Context(), "INC001")
	require.NoError(t, err)

	rendered := renderContext(data, 5)
	topIdx := strings.Index(rendered, "TOP SUSPECT CHANGE:")
	simIdx := strings.Index(rendered, "SIMILAR HISTORICAL INCIDENTS:")
	resIdx := strings.Index(rendered, "PREVIOUS RESOLUTIONS:")
	kbIdx := strings.Index(rendered, "RELEVANT KNOWLEDGE BASE ARTICLES:")
	logIdx := strings.Index(rendered, "RECENT LOG ENTRIES:")
	evIdx := strings.Index(rendered, "PLATFORM EVENTS:")
	cntIdx := strings.Index(rendered, "SUMMARY COUNTS:")

	for _, idx := range []int{topIdx, simIdx, resIdx, kbIdx, logIdx, evIdx, cntIdx} {
		require.GreaterOrEqual(t, idx, 0, rendered)
	}
	assert.Less(t, topIdx, simIdx)
	assert.Less(t, simIdx, resIdx)
	assert.Less(t, resIdx, kbIdx)
	assert.Less(t, kbIdx, logIdx)
	assert.Less(t, logIdx, evIdx)
	assert.Less(t, evIdx, cntIdx)
}

func TestRenderContextEmptyData(t *testing.T) {
	rendered := renderContext(&models.AgentData{}, 5)
	assert.Equal(t, "No additional context available.", rendered)
}

func TestCalculateConfidence(t *testing.T) {
	tests := []struct {
		name string
		data *models.AgentData
		want float64
	}{
		{"no evidence", &models.AgentData{}, 0.2},
		{"top suspect below threshold", &models.AgentData{
			ChangeResults: &models.ChangeResults{TopSuspect: &models.CorrelatedChange{CorrelationScore: 0.75}},
		}, 0.2},
		{"top suspect above threshold", &models.AgentData{
			ChangeResults: &models.ChangeResults{TopSuspect: &models.CorrelatedChange{CorrelationScore: 0.88}},
		}, 0.5},
		{"everything", &models.AgentData{
			ChangeResults:     &models.ChangeResults{TopSuspect: &models.CorrelatedChange{CorrelationScore: 0.88}},
			ServiceNowResults: &models.ServiceNowResults{SimilarIncidents: []models.SimilarIncident{{TicketID: "T"}}},
			ConfluenceResults: &models.ConfluenceResults{Documents: []models.KnowledgeDocument{{DocID: "D"}}},
			LogsResults:       &models.LogsResults{ErrorCount: 2},
			EventsResults:     &models.EventsResults{CriticalCount: 1},
		}, 1.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, calculateConfidence(tc.data), 1e-9)
		})
	}
}
