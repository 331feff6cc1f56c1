// Package kb provides the pluggable knowledge-base connectors: a mock
// backed by CSV fixtures plus a folder of markdown runbooks, and Confluence.
package kb

import (
	"context"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Connector is the capability set every knowledge-base backend implements.
type Connector interface {
	Name() string
	Search(ctx context.Context, query, incidentID string, maxResults int) ([]models.KnowledgeDocument, error)
	Get(ctx context.Context, docID string) (*models.KnowledgeDocument, error)
}

// New builds the knowledge-base connector selected by the configuration.
func New(cfg config.KBConfig) (Connector, error) {
	switch cfg.Source {
	case config.KnowledgeBaseMock:
		return NewMockConnector(cfg.Mock)
	case config.KnowledgeBaseConfluence:
		return NewConfluenceConnector(cfg.Confluence), nil
	default:
		return nil, fmt.Errorf("%w: knowledge base source %q", config.ErrInvalidValue, cfg.Source)
	}
}
