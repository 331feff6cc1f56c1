// Package models defines the shared domain types: incidents, agent results,
// quality assessments, and chat/synthesis payloads. JSON tags match the wire
// format served by the API.
package models

import "time"

// Severity of an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether the severity is one of the known values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Status of an incident in its lifecycle.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved:
		return true
	}
	return false
}

// Incident is the core triage record.
type Incident struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Severity         Severity   `json:"severity"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	AffectedServices []string   `json:"affected_services"`
	Assignee         string     `json:"assignee,omitempty"`
}

// TicketKind distinguishes the record types a ticketing connector returns.
type TicketKind string

const (
	TicketSimilarIncident TicketKind = "similar_incident"
	TicketRelatedChange   TicketKind = "related_change"
)

// Ticket is a raw record from a ticketing system, before agent enrichment.
type Ticket struct {
	TicketID    string     `json:"ticket_id"`
	IncidentID  string     `json:"incident_id"`
	Kind        TicketKind `json:"type"`
	Resolution  string     `json:"resolution,omitempty"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
}
