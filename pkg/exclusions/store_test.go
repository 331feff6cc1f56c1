package exclusions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

func TestExcludeListRemove(t *testing.T) {
	s := NewStore()

	s.Exclude("INC001", models.ExcludedItem{ItemID: "CHG005", Kind: KindChange})
	s.Exclude("INC001", models.ExcludedItem{ItemID: "TKT-1001", Kind: KindSimilarIncident, Source: "servicenow"})
	s.Exclude("INC002", models.ExcludedItem{ItemID: "DOC-101", Kind: KindKnowledgeDocument})

	items := s.List("INC001")
	assert.Len(t, items, 2)
	assert.Len(t, s.List("INC002"), 1)
	assert.Empty(t, s.List("INC003"))

	require.True(t, s.Remove("INC001", "CHG005"))
	assert.False(t, s.Remove("INC001", "CHG005"))
	assert.False(t, s.Remove("INC999", "CHG005"))
	assert.Len(t, s.List("INC001"), 1)
}

func TestExcludeIdempotentPerItem(t *testing.T) {
	s := NewStore()

	s.Exclude("INC001", models.ExcludedItem{ItemID: "CHG005", Kind: KindChange})
	s.Exclude("INC001", models.ExcludedItem{ItemID: "CHG005", Kind: KindChange})

	assert.Len(t, s.List("INC001"), 1)
	m := s.Metrics()
	assert.Equal(t, int64(1), m.Categories[CategoryChanges].Excluded)
}

func TestMetricsAccuracy(t *testing.T) {
	s := NewStore()

	s.RecordReturned(CategoryChanges, 10)
	s.Exclude("INC001", models.ExcludedItem{ItemID: "CHG005", Kind: KindChange})
	s.RecordReturned(CategorySimilarIncidents, 4)

	m := s.Metrics()
	assert.InDelta(t, 90.0, m.Categories[CategoryChanges].Accuracy, 1e-9)
	assert.InDelta(t, 100.0, m.Categories[CategorySimilarIncidents].Accuracy, 1e-9)
	assert.Equal(t, int64(10), m.Categories[CategoryChanges].Returned)
	assert.Equal(t, int64(1), m.Categories[CategoryChanges].Excluded)

	// Weighted by returned: (90*10 + 100*4) / 14.
	assert.InDelta(t, (90.0*10+100.0*4)/14, m.OverallAccuracy, 1e-9)
	assert.Equal(t, int64(14), m.TotalReturned)
	assert.Equal(t, int64(1), m.TotalExcluded)
}

func TestMetricsEmptyAndClamped(t *testing.T) {
	s := NewStore()

	m := s.Metrics()
	assert.Zero(t, m.OverallAccuracy)
	assert.InDelta(t, 0.0, m.Categories[CategoryLogs].Accuracy, 1e-9)

	// Excluding without any returned items clamps at zero, never negative.
	s.Exclude("INC001", models.ExcludedItem{ItemID: "EVT-1", Kind: KindEvent})
	m = s.Metrics()
	assert.InDelta(t, 0.0, m.Categories[CategoryEvents].Accuracy, 1e-9)
}

func TestRemoveKeepsDistinctExclusionCount(t *testing.T) {
	s := NewStore()

	s.RecordReturned(CategoryChanges, 5)
	s.Exclude("INC001", models.ExcludedItem{ItemID: "CHG005", Kind: KindChange})
	require.True(t, s.Remove("INC001", "CHG005"))

	m := s.Metrics()
	assert.Equal(t, int64(1), m.Categories[CategoryChanges].Excluded)
}

func TestFilterAgentDataChangesRebuildPartitions(t *testing.T) {
	s := NewStore()
	s.Exclude("INC001", models.ExcludedItem{ItemID: "CHG005", Kind: KindChange})

	top := models.CorrelatedChange{ChangeID: "CHG005", CorrelationScore: 0.88}
	data := &models.AgentData{
		ChangeResults: &models.ChangeResults{
			Source:     "mock",
			IncidentID: "INC001",
			TopSuspect: &top,
			HighCorrelationChanges: []models.CorrelatedChange{
				{ChangeID: "CHG006", CorrelationScore: 0.72},
			},
			AllCorrelations: []models.CorrelatedChange{
				{ChangeID: "CHG005", CorrelationScore: 0.88},
				{ChangeID: "CHG006", CorrelationScore: 0.72},
				{ChangeID: "CHG007", CorrelationScore: 0.55},
				{ChangeID: "CHG008", CorrelationScore: 0.35},
			},
		},
	}

	s.FilterAgentData("INC001", data)

	r := data.ChangeResults
	require.NotNil(t, r.TopSuspect)
	assert.Equal(t, "CHG006", r.TopSuspect.ChangeID)
	require.Len(t, r.HighCorrelationChanges, 1)
	assert.Equal(t, "CHG007", r.HighCorrelationChanges[0].ChangeID)
	require.Len(t, r.MediumCorrelationChanges, 1)
	assert.Equal(t, "CHG008", r.MediumCorrelationChanges[0].ChangeID)
	assert.Len(t, r.AllCorrelations, 3)
}

func TestFilterAgentDataSimilarAndDocs(t *testing.T) {
	s := NewStore()
	s.Exclude("INC001", models.ExcludedItem{ItemID: "TKT-1001", Kind: KindSimilarIncident})
	s.Exclude("INC001", models.ExcludedItem{ItemID: "DOC-101", Kind: KindKnowledgeDocument})

	data := &models.AgentData{
		ServiceNowResults: &models.ServiceNowResults{
			SimilarIncidents: []models.SimilarIncident{
				{TicketID: "TKT-1001", IncidentID: "INC007", Resolution: "restart pool"},
				{TicketID: "TKT-1002", IncidentID: "INC011", Resolution: "rollback"},
			},
			Resolutions: []string{"restart pool", "rollback"},
		},
		ConfluenceResults: &models.ConfluenceResults{
			Documents: []models.KnowledgeDocument{
				{DocID: "DOC-101", Title: "Pool tuning"},
				{DocID: "DOC-102", Title: "Failover"},
			},
			KnowledgeBaseArticles: []string{"Pool tuning", "Failover"},
		},
	}

	s.FilterAgentData("INC001", data)

	require.Len(t, data.ServiceNowResults.SimilarIncidents, 1)
	assert.Equal(t, "TKT-1002", data.ServiceNowResults.SimilarIncidents[0].TicketID)
	assert.Equal(t, []string{"rollback"}, data.ServiceNowResults.Resolutions)

	require.Len(t, data.ConfluenceResults.Documents, 1)
	assert.Equal(t, "DOC-102", data.ConfluenceResults.Documents[0].DocID)
	assert.Equal(t, []string{"Failover"}, data.ConfluenceResults.KnowledgeBaseArticles)
}

func TestFilterAgentDataEventsRecount(t *testing.T) {
	s := NewStore()
	s.Exclude("INC001", models.ExcludedItem{ItemID: "EVT-9", Kind: KindEvent})

	data := &models.AgentData{
		EventsResults: &models.EventsResults{
			Events: []models.Event{
				{ID: "EVT-9", Severity: "CRITICAL"},
				{ID: "EVT-10", Severity: "WARNING"},
			},
			TotalCount:    2,
			CriticalCount: 1,
			WarningCount:  1,
		},
	}

	s.FilterAgentData("INC001", data)

	r := data.EventsResults
	assert.Equal(t, 1, r.TotalCount)
	assert.Equal(t, 0, r.CriticalCount)
	assert.Equal(t, 1, r.WarningCount)
}

func TestFilterAgentDataNoExclusionsNoChange(t *testing.T) {
	s := NewStore()

	data := &models.AgentData{
		ChangeResults: &models.ChangeResults{
			AllCorrelations: []models.CorrelatedChange{{ChangeID: "CHG005", CorrelationScore: 0.88}},
		},
	}
	s.FilterAgentData("INC001", data)
	assert.Len(t, data.ChangeResults.AllCorrelations, 1)
}
