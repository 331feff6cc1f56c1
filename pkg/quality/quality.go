// Package quality assesses the completeness of similar-incident results.
// A ticket earns up to half its score from the description and half from
// the resolution, graded by length.
package quality

import (
	"strings"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// Length thresholds for field grading. A field shorter than MinFieldLength
// is flagged as an issue; FullFieldLength earns the full half-score.
const (
	MinFieldLength  = 20
	FullFieldLength = 50
)

// Level thresholds.
const (
	goodThreshold    = 0.8
	warningThreshold = 0.5
)

// AssessTicket scores one similar-incident result by the presence and
// length of its description and resolution fields.
func AssessTicket(item models.SimilarIncident) models.TicketQuality {
	q := models.TicketQuality{
		TicketID:   item.TicketID,
		TicketType: string(models.TicketSimilarIncident),
		Issues:     []string{},
		Details:    map[string]float64{},
	}

	descScore, descIssue := gradeField(item.Description, "description")
	q.Details["description_score"] = descScore
	if descIssue != "" {
		q.Issues = append(q.Issues, descIssue)
	}

	resScore, resIssue := gradeField(item.Resolution, "resolution")
	q.Details["resolution_score"] = resScore
	if resIssue != "" {
		q.Issues = append(q.Issues, resIssue)
	}

	q.Score = round2(descScore + resScore)
	q.Level = levelFor(q.Score)
	return q
}

// gradeField returns the half-score for one field and a non-empty issue
// string when the field is missing or too short.
func gradeField(value, name string) (float64, string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return 0, "Missing " + name
	case len(value) < MinFieldLength:
		return 0.25, strings.ToUpper(name[:1]) + name[1:] + " too short (less than 20 characters)"
	case len(value) < FullFieldLength:
		return 0.35, ""
	default:
		return 0.5, ""
	}
}

// Assess computes the aggregate quality report for a set of results.
// An empty set reports poor quality with zero counts.
func Assess(items []models.SimilarIncident) *models.QualityAssessment {
	assessment := &models.QualityAssessment{
		OverallLevel:    models.QualityPoor,
		TicketQualities: []models.TicketQuality{},
	}
	if len(items) == 0 {
		return assessment
	}

	var total float64
	for _, item := range items {
		q := AssessTicket(item)
		assessment.TicketQualities = append(assessment.TicketQualities, q)
		total += q.Score

		switch q.Level {
		case models.QualityGood:
			assessment.Summary.GoodCount++
		case models.QualityWarning:
			assessment.Summary.WarningCount++
		default:
			assessment.Summary.PoorCount++
		}
	}
	assessment.Summary.TotalTickets = len(items)
	assessment.AverageScore = round2(total / float64(len(items)))
	assessment.OverallLevel = levelFor(assessment.AverageScore)
	return assessment
}

func levelFor(score float64) string {
	switch {
	case score >= goodThreshold:
		return models.QualityGood
	case score >= warningThreshold:
		return models.QualityWarning
	default:
		return models.QualityPoor
	}
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
