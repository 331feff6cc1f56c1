package similarity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases and splits", "Database Connection-Timeout", []string{"database", "connection", "timeout"}},
		{"drops stopwords", "the database is down", []string{"database", "down"}},
		{"drops short tokens", "db is up on s3", []string{}},
		{"empty input", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.text)
			assert.Len(t, got, len(tt.want))
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	a := Tokens("payment service timeout")
	b := Tokens("payment gateway timeout")
	// intersection {payment, timeout}, union {payment, service, gateway, timeout}
	assert.InDelta(t, 0.5, Jaccard(a, b), 1e-9)

	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.Equal(t, 0.0, Jaccard(a, nil))
	assert.Equal(t, 1.0, Jaccard(a, a))
}

func TestServiceSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, ServiceSimilarity([]string{"api", "db"}, []string{"db", "cache"}), 1e-9)
	assert.Equal(t, 0.0, ServiceSimilarity(nil, []string{"db"}))
	// Order is not significant.
	assert.Equal(t, 1.0, ServiceSimilarity([]string{"a1", "b2"}, []string{"b2", "a1"}))
}

func TestIncidentSimilarityIdenticalIsOne(t *testing.T) {
	a := &models.Incident{
		Title:            "Payment API latency spike",
		Description:      "Checkout requests timing out against payment gateway",
		AffectedServices: []string{"payment-service", "api-gateway"},
	}
	b := &models.Incident{
		ID:               "other",
		Title:            a.Title,
		Description:      a.Description,
		AffectedServices: []string{"api-gateway", "payment-service"},
	}
	assert.InDelta(t, 1.0, IncidentSimilarity(a, b), 1e-9)
}

func TestFindSimilar(t *testing.T) {
	now := time.Now()
	target := &models.Incident{
		ID:               "INC001",
		Title:            "Database connection pool exhausted",
		Description:      "Connection pool exhausted on primary database",
		Status:           models.StatusOpen,
		CreatedAt:        now,
		AffectedServices: []string{"database", "api-gateway"},
	}
	candidates := []*models.Incident{
		target, // never matched against itself
		{
			ID:               "INC007",
			Title:            "Database connection pool exhausted again",
			Description:      "Connection pool exhausted on primary database",
			Status:           models.StatusResolved,
			AffectedServices: []string{"database", "api-gateway"},
		},
		{
			ID:               "INC008",
			Title:            "Database connection pool exhausted again",
			Description:      "Connection pool exhausted on primary database",
			Status:           models.StatusOpen, // not resolved, excluded
			AffectedServices: []string{"database"},
		},
		{
			ID:          "INC011",
			Title:       "Unrelated frontend bug",
			Description: "Button misaligned on settings page",
			Status:      models.StatusResolved,
		},
	}

	matches := FindSimilar(target, candidates, 0.2, 5)
	assert.Len(t, matches, 1)
	assert.Equal(t, "INC007", matches[0].Incident.ID)
	assert.Greater(t, matches[0].Score, 0.5)
}

func TestFindSimilarTieBreakByID(t *testing.T) {
	target := &models.Incident{ID: "INC001", Title: "cache miss storm", Description: "cache miss storm"}
	twin := models.Incident{
		Title:       "cache miss storm",
		Description: "cache miss storm",
		Status:      models.StatusResolved,
	}
	a, b := twin, twin
	a.ID = "INC900"
	b.ID = "INC200"

	matches := FindSimilar(target, []*models.Incident{&a, &b}, 0.2, 5)
	assert.Len(t, matches, 2)
	assert.Equal(t, "INC200", matches[0].Incident.ID)
	assert.Equal(t, "INC900", matches[1].Incident.ID)
}

func TestFindSimilarMaxResults(t *testing.T) {
	target := &models.Incident{ID: "INC001", Title: "disk full", Description: "disk full on node"}
	var candidates []*models.Incident
	for _, id := range []string{"INC002", "INC003", "INC004"} {
		candidates = append(candidates, &models.Incident{
			ID:          id,
			Title:       "disk full",
			Description: "disk full on node",
			Status:      models.StatusResolved,
		})
	}
	matches := FindSimilar(target, candidates, 0.2, 2)
	assert.Len(t, matches, 2)
}
