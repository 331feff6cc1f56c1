package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/smartrecover/pkg/connectors/kb"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
)

// maxDocumentContentChars bounds the document body carried into results
// and prompt contexts. Truncation lands on a word boundary.
const maxDocumentContentChars = 2000

// KnowledgeBaseAgent retrieves documentation relevant to the incident.
type KnowledgeBaseAgent struct {
	connector kb.Connector
	maxDocs   int
}

// NewKnowledgeBaseAgent builds the knowledge-base agent.
func NewKnowledgeBaseAgent(connector kb.Connector, maxDocs int) *KnowledgeBaseAgent {
	return &KnowledgeBaseAgent{connector: connector, maxDocs: maxDocs}
}

func (a *KnowledgeBaseAgent) Name() string { return prompts.AgentKnowledgeBase }

func (a *KnowledgeBaseAgent) DefaultPrompt() string {
	return prompts.Default(prompts.AgentKnowledgeBase)
}

// Query searches the knowledge base using the incident title and
// description as the query text.
func (a *KnowledgeBaseAgent) Query(ctx context.Context, incident *models.Incident) (*models.ConfluenceResults, error) {
	query := strings.TrimSpace(incident.Title + " " + incident.Description)

	docs, err := a.connector.Search(ctx, query, incident.ID, a.maxDocs)
	if err != nil {
		return nil, fmt.Errorf("search knowledge base for %s: %w", incident.ID, err)
	}

	results := &models.ConfluenceResults{
		Source:                a.connector.Name(),
		IncidentID:            incident.ID,
		Documents:             make([]models.KnowledgeDocument, 0, len(docs)),
		KnowledgeBaseArticles: make([]string, 0, len(docs)),
	}
	for _, doc := range docs {
		doc.Content = truncateAtWord(doc.Content, maxDocumentContentChars)
		results.Documents = append(results.Documents, doc)
		results.KnowledgeBaseArticles = append(results.KnowledgeBaseArticles, doc.Title)
	}

	slog.DebugContext(ctx, "Knowledge documents retrieved", "incident_id", incident.ID, "count", len(docs))
	return results, nil
}

// truncateAtWord cuts s to at most limit characters, backing up to the
// last space so no word is split, and appends an ellipsis marker.
func truncateAtWord(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n\t") + "..."
}
