// Package exclusions tracks per-incident excluded items and the accuracy
// metrics derived from them. Excluded items are filtered out of every
// agent-result view and LLM context for their incident.
package exclusions

import (
	"sync"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// Metric categories.
const (
	CategorySimilarIncidents   = "similar_incidents"
	CategoryKnowledgeDocuments = "knowledge_documents"
	CategoryChanges            = "changes"
	CategoryLogs               = "logs"
	CategoryEvents             = "events"
)

// Item kinds accepted on exclude requests.
const (
	KindSimilarIncident   = "similar_incident"
	KindKnowledgeDocument = "knowledge_document"
	KindChange            = "change"
	KindLog               = "log"
	KindEvent             = "event"
)

// CategoryForKind maps an excluded-item kind to its metric category
// ("" for unknown kinds).
func CategoryForKind(kind string) string {
	switch kind {
	case KindSimilarIncident:
		return CategorySimilarIncidents
	case KindKnowledgeDocument:
		return CategoryKnowledgeDocuments
	case KindChange:
		return CategoryChanges
	case KindLog:
		return CategoryLogs
	case KindEvent:
		return CategoryEvents
	}
	return ""
}

// CategoryMetrics is one category's accuracy report.
type CategoryMetrics struct {
	Returned int64   `json:"returned"`
	Excluded int64   `json:"excluded"`
	Accuracy float64 `json:"accuracy"`
}

// Metrics is the full accuracy report.
type Metrics struct {
	Categories      map[string]CategoryMetrics `json:"categories"`
	TotalReturned   int64                      `json:"total_returned"`
	TotalExcluded   int64                      `json:"total_excluded"`
	OverallAccuracy float64                    `json:"overall_accuracy"`
}

// Store holds the per-incident excluded sets and the monotonic
// returned-item counters.
type Store struct {
	mu       sync.Mutex
	excluded map[string]map[string]models.ExcludedItem
	returned map[string]int64
	distinct map[string]map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		excluded: make(map[string]map[string]models.ExcludedItem),
		returned: make(map[string]int64),
		distinct: make(map[string]map[string]struct{}),
	}
}

// Exclude marks an item irrelevant for the incident and counts it toward
// the category's distinct exclusions.
func (s *Store) Exclude(incidentID string, item models.ExcludedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.excluded[incidentID]
	if !ok {
		set = make(map[string]models.ExcludedItem)
		s.excluded[incidentID] = set
	}
	set[item.ItemID] = item

	if cat := CategoryForKind(item.Kind); cat != "" {
		ids, ok := s.distinct[cat]
		if !ok {
			ids = make(map[string]struct{})
			s.distinct[cat] = ids
		}
		ids[item.ItemID] = struct{}{}
	}
}

// Remove drops an item from the incident's excluded set. Returns false if
// the item was not excluded. The distinct exclusion counter is not
// decremented; metrics count items ever excluded.
func (s *Store) Remove(incidentID, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.excluded[incidentID]
	if !ok {
		return false
	}
	if _, ok := set[itemID]; !ok {
		return false
	}
	delete(set, itemID)
	return true
}

// List returns the incident's excluded items.
func (s *Store) List(incidentID string) []models.ExcludedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.excluded[incidentID]
	out := make([]models.ExcludedItem, 0, len(set))
	for _, item := range set {
		out = append(out, item)
	}
	return out
}

// ExcludedIDs returns the incident's excluded item IDs as a set.
func (s *Store) ExcludedIDs(incidentID string) map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.excluded[incidentID]
	out := make(map[string]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

// RecordReturned bumps a category's monotonic returned counter.
func (s *Store) RecordReturned(category string, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.returned[category] += int64(n)
	s.mu.Unlock()
}

// Metrics computes the accuracy report. Per-category accuracy is
// 100 × (returned − excluded) / max(returned, 1), clamped to [0, 100];
// the overall number is weighted by returned counts.
func (s *Store) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := Metrics{Categories: make(map[string]CategoryMetrics)}
	var weighted float64
	for _, cat := range []string{
		CategorySimilarIncidents, CategoryKnowledgeDocuments,
		CategoryChanges, CategoryLogs, CategoryEvents,
	} {
		returned := s.returned[cat]
		excluded := int64(len(s.distinct[cat]))
		accuracy := clampPct(100 * float64(returned-excluded) / float64(max64(returned, 1)))

		m.Categories[cat] = CategoryMetrics{
			Returned: returned,
			Excluded: excluded,
			Accuracy: accuracy,
		}
		m.TotalReturned += returned
		m.TotalExcluded += excluded
		weighted += accuracy * float64(returned)
	}
	if m.TotalReturned > 0 {
		m.OverallAccuracy = weighted / float64(m.TotalReturned)
	}
	return m
}

// FilterAgentData removes the incident's excluded items from data in
// place. Change partitions are rebuilt so the top suspect falls back to
// the next-highest surviving change.
func (s *Store) FilterAgentData(incidentID string, data *models.AgentData) {
	if data == nil {
		return
	}
	ids := s.ExcludedIDs(incidentID)
	if len(ids) == 0 {
		return
	}

	if r := data.ServiceNowResults; r != nil {
		kept := r.SimilarIncidents[:0]
		for _, si := range r.SimilarIncidents {
			if _, ok := ids[si.TicketID]; ok {
				continue
			}
			if _, ok := ids[si.IncidentID]; ok {
				continue
			}
			kept = append(kept, si)
		}
		r.SimilarIncidents = kept
		resolutions := make([]string, 0, len(kept))
		for _, si := range kept {
			if si.Resolution != "" {
				resolutions = append(resolutions, si.Resolution)
			}
		}
		r.Resolutions = resolutions
	}

	if r := data.ConfluenceResults; r != nil {
		kept := r.Documents[:0]
		for _, doc := range r.Documents {
			if _, ok := ids[doc.DocID]; ok {
				continue
			}
			kept = append(kept, doc)
		}
		r.Documents = kept
		titles := make([]string, 0, len(kept))
		for _, doc := range kept {
			titles = append(titles, doc.Title)
		}
		r.KnowledgeBaseArticles = titles
	}

	if r := data.ChangeResults; r != nil {
		kept := r.AllCorrelations[:0]
		for _, ch := range r.AllCorrelations {
			if _, ok := ids[ch.ChangeID]; ok {
				continue
			}
			kept = append(kept, ch)
		}
		r.AllCorrelations = kept
		rebuildChangePartitions(r)
	}

	if r := data.LogsResults; r != nil {
		kept := r.Logs[:0]
		for _, entry := range r.Logs {
			if _, ok := ids[entry.Message]; ok {
				continue
			}
			kept = append(kept, entry)
		}
		r.Logs = kept
		recountLogs(r)
	}

	if r := data.EventsResults; r != nil {
		kept := r.Events[:0]
		for _, ev := range r.Events {
			if _, ok := ids[ev.ID]; ok {
				continue
			}
			kept = append(kept, ev)
		}
		r.Events = kept
		recountEvents(r)
	}
}

// Partition thresholds for correlated changes.
const (
	topSuspectThreshold = 0.7
	highThreshold       = 0.5
	mediumThreshold     = 0.3
)

func rebuildChangePartitions(r *models.ChangeResults) {
	r.TopSuspect = nil
	r.HighCorrelationChanges = nil
	r.MediumCorrelationChanges = nil

	for i := range r.AllCorrelations {
		ch := r.AllCorrelations[i]
		if r.TopSuspect == nil && ch.CorrelationScore >= topSuspectThreshold {
			cp := ch
			r.TopSuspect = &cp
			continue
		}
		switch {
		case ch.CorrelationScore >= highThreshold:
			r.HighCorrelationChanges = append(r.HighCorrelationChanges, ch)
		case ch.CorrelationScore >= mediumThreshold:
			r.MediumCorrelationChanges = append(r.MediumCorrelationChanges, ch)
		}
	}
}

func recountLogs(r *models.LogsResults) {
	r.TotalCount = len(r.Logs)
	r.ErrorCount = 0
	r.WarningCount = 0
	for _, entry := range r.Logs {
		switch entry.Level {
		case "ERROR", "error":
			r.ErrorCount++
		case "WARN", "WARNING", "warn", "warning":
			r.WarningCount++
		}
	}
}

func recountEvents(r *models.EventsResults) {
	r.TotalCount = len(r.Events)
	r.CriticalCount = 0
	r.WarningCount = 0
	for _, ev := range r.Events {
		switch ev.Severity {
		case "CRITICAL", "critical":
			r.CriticalCount++
		case "WARNING", "warning":
			r.WarningCount++
		}
	}
}

func clampPct(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
