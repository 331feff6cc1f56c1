package models

import "time"

// SimilarIncident is one historical match found by the ServiceNow agent,
// carrying the resolution text that feeds synthesis.
type SimilarIncident struct {
	TicketID        string  `json:"ticket_id"`
	IncidentID      string  `json:"incident_id"`
	Title           string  `json:"title"`
	Severity        string  `json:"severity,omitempty"`
	Status          string  `json:"status,omitempty"`
	Description     string  `json:"description,omitempty"`
	Resolution      string  `json:"resolution,omitempty"`
	Source          string  `json:"source"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ServiceNowResults is the ServiceNow agent's slot in AgentData.
type ServiceNowResults struct {
	Source            string             `json:"source"`
	IncidentID        string             `json:"incident_id"`
	SimilarIncidents  []SimilarIncident  `json:"similar_incidents"`
	QualityAssessment *QualityAssessment `json:"quality_assessment,omitempty"`
	Resolutions       []string           `json:"resolutions"`
}

// KnowledgeDocument is one ranked knowledge-base document. Content is
// truncated at a word boundary before it reaches the LLM context.
type KnowledgeDocument struct {
	DocID          string   `json:"doc_id"`
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Tags           []string `json:"tags,omitempty"`
	RelevanceScore float64  `json:"relevance_score"`
}

// ConfluenceResults is the knowledge-base agent's slot in AgentData.
// KnowledgeBaseArticles repeats the document titles for legacy clients.
type ConfluenceResults struct {
	Source                string              `json:"source"`
	IncidentID            string              `json:"incident_id"`
	Documents             []KnowledgeDocument `json:"documents"`
	KnowledgeBaseArticles []string            `json:"knowledge_base_articles"`
}

// ChangeRecord is a raw deployment/change from a connector. Score is the
// connector-curated correlation score when the source provides one.
type ChangeRecord struct {
	ChangeID    string    `json:"change_id"`
	Description string    `json:"description"`
	DeployedAt  time.Time `json:"deployed_at"`
	Service     string    `json:"service,omitempty"`
	Score       *float64  `json:"correlation_score,omitempty"`
}

// CorrelatedChange is a change scored against the incident.
type CorrelatedChange struct {
	ChangeID         string  `json:"change_id"`
	Description      string  `json:"description"`
	DeployedAt       string  `json:"deployed_at"`
	Service          string  `json:"service,omitempty"`
	CorrelationScore float64 `json:"correlation_score"`
}

// ChangeResults is the change-correlation agent's slot in AgentData.
type ChangeResults struct {
	Source                   string             `json:"source"`
	IncidentID               string             `json:"incident_id"`
	TopSuspect               *CorrelatedChange  `json:"top_suspect"`
	HighCorrelationChanges   []CorrelatedChange `json:"high_correlation_changes"`
	MediumCorrelationChanges []CorrelatedChange `json:"medium_correlation_changes"`
	AllCorrelations          []CorrelatedChange `json:"all_correlations"`
}

// LogEntry is one log line relevant to the incident.
type LogEntry struct {
	Timestamp       string  `json:"timestamp"`
	Level           string  `json:"level"`
	Service         string  `json:"service"`
	Message         string  `json:"message"`
	Source          string  `json:"source,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// LogsResults is the logs agent's slot in AgentData.
type LogsResults struct {
	Source       string     `json:"source"`
	IncidentID   string     `json:"incident_id"`
	Logs         []LogEntry `json:"logs"`
	TotalCount   int        `json:"total_count"`
	ErrorCount   int        `json:"error_count"`
	WarningCount int        `json:"warning_count"`
}

// Event is one platform event (deploy, scaling, alert) near the incident.
type Event struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp"`
	Type            string  `json:"type"`
	Severity        string  `json:"severity"`
	Application     string  `json:"application"`
	Message         string  `json:"message"`
	Details         string  `json:"details,omitempty"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// EventsResults is the events agent's slot in AgentData.
type EventsResults struct {
	Source        string  `json:"source"`
	IncidentID    string  `json:"incident_id"`
	Events        []Event `json:"events"`
	TotalCount    int     `json:"total_count"`
	CriticalCount int     `json:"critical_count"`
	WarningCount  int     `json:"warning_count"`
}

// AgentData aggregates every agent's results for one incident. A nil slot
// means the agent failed or was skipped; consumers treat nil as empty.
type AgentData struct {
	ServiceNowResults *ServiceNowResults `json:"servicenow_results,omitempty"`
	ConfluenceResults *ConfluenceResults `json:"confluence_results,omitempty"`
	ChangeResults     *ChangeResults     `json:"change_results,omitempty"`
	LogsResults       *LogsResults       `json:"logs_results,omitempty"`
	EventsResults     *EventsResults     `json:"events_results,omitempty"`
}

// Clone returns a deep copy. Exclusion filtering mutates the copy while the
// cache keeps the unfiltered original.
func (d *AgentData) Clone() *AgentData {
	if d == nil {
		return nil
	}
	out := &AgentData{}
	if d.ServiceNowResults != nil {
		sn := *d.ServiceNowResults
		sn.SimilarIncidents = append([]SimilarIncident(nil), d.ServiceNowResults.SimilarIncidents...)
		sn.Resolutions = append([]string(nil), d.ServiceNowResults.Resolutions...)
		if d.ServiceNowResults.QualityAssessment != nil {
			qa := *d.ServiceNowResults.QualityAssessment
			qa.TicketQualities = append([]TicketQuality(nil), d.ServiceNowResults.QualityAssessment.TicketQualities...)
			sn.QualityAssessment = &qa
		}
		out.ServiceNowResults = &sn
	}
	if d.ConfluenceResults != nil {
		cf := *d.ConfluenceResults
		cf.Documents = append([]KnowledgeDocument(nil), d.ConfluenceResults.Documents...)
		cf.KnowledgeBaseArticles = append([]string(nil), d.ConfluenceResults.KnowledgeBaseArticles...)
		out.ConfluenceResults = &cf
	}
	if d.ChangeResults != nil {
		ch := *d.ChangeResults
		if d.ChangeResults.TopSuspect != nil {
			ts := *d.ChangeResults.TopSuspect
			ch.TopSuspect = &ts
		}
		ch.HighCorrelationChanges = append([]CorrelatedChange(nil), d.ChangeResults.HighCorrelationChanges...)
		ch.MediumCorrelationChanges = append([]CorrelatedChange(nil), d.ChangeResults.MediumCorrelationChanges...)
		ch.AllCorrelations = append([]CorrelatedChange(nil), d.ChangeResults.AllCorrelations...)
		out.ChangeResults = &ch
	}
	if d.LogsResults != nil {
		lg := *d.LogsResults
		lg.Logs = append([]LogEntry(nil), d.LogsResults.Logs...)
		out.LogsResults = &lg
	}
	if d.EventsResults != nil {
		ev := *d.EventsResults
		ev.Events = append([]Event(nil), d.EventsResults.Events...)
		out.EventsResults = &ev
	}
	return out
}
