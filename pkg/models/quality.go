package models

// Quality levels reported for similar-incident results.
const (
	QualityGood    = "good"
	QualityWarning = "warning"
	QualityPoor    = "poor"
)

// TicketQuality grades one result's completeness.
type TicketQuality struct {
	TicketID   string             `json:"ticket_id"`
	TicketType string             `json:"ticket_type"`
	Score      float64            `json:"score"`
	Level      string             `json:"level"`
	Issues     []string           `json:"issues"`
	Details    map[string]float64 `json:"details"`
}

// QualitySummary counts tickets per level.
type QualitySummary struct {
	TotalTickets int `json:"total_tickets"`
	GoodCount    int `json:"good_count"`
	WarningCount int `json:"warning_count"`
	PoorCount    int `json:"poor_count"`
}

// QualityAssessment is the aggregate report attached to ServiceNow results.
type QualityAssessment struct {
	AverageScore    float64         `json:"average_score"`
	OverallLevel    string          `json:"overall_level"`
	TicketQualities []TicketQuality `json:"ticket_qualities"`
	Summary         QualitySummary  `json:"summary"`
}
