package kb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
)

func newTestKB(t *testing.T) *MockConnector {
	t.Helper()
	c, err := NewMockConnector(config.MockKBConfig{
		CSVPath:    filepath.Join("testdata", "confluence_docs.csv"),
		DocsFolder: filepath.Join("testdata", "docs"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMockSearchIncidentDocsFirst(t *testing.T) {
	c := newTestKB(t)

	docs, err := c.Search(t.Context(), "database connection pool exhausted", "INC001", 10)
	require.NoError(t, err)
	require.NotEmpty(t, docs)

	assert.Equal(t, "DOC-101", docs[0].DocID)
	assert.Equal(t, 1.0, docs[0].RelevanceScore)

	// The failover runbook matches "database" by keyword.
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.DocID)
	}
	assert.Contains(t, ids, "database-failover")
}

func TestMockSearchMaxResults(t *testing.T) {
	c := newTestKB(t)
	docs, err := c.Search(t.Context(), "database gateway timeouts", "INC001", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMockSearchNoIncident(t *testing.T) {
	c := newTestKB(t)
	docs, err := c.Search(t.Context(), "cache warmup checklist", "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "cache_warmup", docs[0].DocID)
}

func TestFrontMatterTitle(t *testing.T) {
	c := newTestKB(t)
	doc, err := c.Get(t.Context(), "database-failover")
	require.NoError(t, err)
	assert.Equal(t, "Database Failover Procedure", doc.Title)
}

func TestFileNameTitleFallback(t *testing.T) {
	c := newTestKB(t)
	doc, err := c.Get(t.Context(), "cache_warmup")
	require.NoError(t, err)
	assert.Equal(t, "Cache Warmup", doc.Title)
}

func TestGetNotFound(t *testing.T) {
	c := newTestKB(t)
	_, err := c.Get(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFactorySelectsVariant(t *testing.T) {
	c, err := New(config.KBConfig{Source: config.KnowledgeBaseMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", c.Name())

	c, err = New(config.KBConfig{
		Source:     config.KnowledgeBaseConfluence,
		Confluence: config.ConfluenceConfig{BaseURL: "https://example.atlassian.net/wiki"},
	})
	require.NoError(t, err)
	assert.Equal(t, "confluence", c.Name())

	_, err = New(config.KBConfig{Source: "notion"})
	assert.Error(t, err)
}
