package kb

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/similarity"
)

// MockConnector serves knowledge documents from a CSV fixture keyed by
// incident ID plus a folder of markdown/text runbooks. When watching is
// enabled, the runbook folder is reloaded on file changes.
type MockConnector struct {
	mu         sync.RWMutex
	byIncident map[string][]models.KnowledgeDocument
	textDocs   []models.KnowledgeDocument
	docsFolder string
	watcher    *fsnotify.Watcher
	done       chan struct{}
}

// NewMockConnector loads the fixtures. Both the CSV and the docs folder are
// optional; an empty connector is valid.
func NewMockConnector(cfg config.MockKBConfig) (*MockConnector, error) {
	c := &MockConnector{
		byIncident: make(map[string][]models.KnowledgeDocument),
		docsFolder: cfg.DocsFolder,
		done:       make(chan struct{}),
	}

	if cfg.CSVPath != "" {
		if err := c.loadCSV(cfg.CSVPath); err != nil {
			slog.Warn("No knowledge base CSV loaded", "path", cfg.CSVPath, "error", err)
		}
	}
	if cfg.DocsFolder != "" {
		c.loadTextDocuments()
	}
	if cfg.Watch && cfg.DocsFolder != "" {
		if err := c.watch(); err != nil {
			slog.Warn("Knowledge base folder watch disabled", "error", err)
		}
	}

	slog.Info("Mock knowledge base loaded",
		"incident_docs", len(c.byIncident), "text_docs", len(c.textDocs))
	return c, nil
}

func (c *MockConnector) Name() string { return "mock" }

func (c *MockConnector) loadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			continue
		}
		incidentID := strings.TrimSpace(rec[0])
		doc := models.KnowledgeDocument{
			DocID:   strings.TrimSpace(rec[1]),
			Title:   strings.TrimSpace(rec[2]),
			Content: strings.TrimSpace(rec[3]),
		}
		if doc.Title == "" {
			slog.Warn("Skipping knowledge document without title", "row", i+1)
			continue
		}
		c.byIncident[incidentID] = append(c.byIncident[incidentID], doc)
	}
	return nil
}

// loadTextDocuments scans the docs folder for .md/.txt files. The title
// comes from "---" front-matter when present, else from the file name.
func (c *MockConnector) loadTextDocuments() {
	var docs []models.KnowledgeDocument
	err := filepath.WalkDir(c.docsFolder, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to load knowledge document", "path", path, "error", err)
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), ext)
		docs = append(docs, models.KnowledgeDocument{
			DocID:   stem,
			Title:   titleFor(stem, string(content)),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		slog.Warn("Knowledge docs folder not loaded", "folder", c.docsFolder, "error", err)
		return
	}

	c.mu.Lock()
	c.textDocs = docs
	c.mu.Unlock()
	slog.Debug("Loaded knowledge documents", "folder", c.docsFolder, "count", len(docs))
}

func titleFor(stem, content string) string {
	if strings.HasPrefix(content, "---") {
		for _, line := range strings.Split(content, "\n")[1:] {
			if strings.TrimSpace(line) == "---" {
				break
			}
			if strings.HasPrefix(line, "title:") {
				return strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "title:")), `"`)
			}
		}
	}
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (c *MockConnector) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(c.docsFolder); err != nil {
		w.Close()
		return err
	}
	c.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					slog.Debug("Knowledge docs changed, reloading", "event", ev.String())
					c.loadTextDocuments()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("Knowledge docs watcher error", "error", err)
			case <-c.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the folder watcher, if any.
func (c *MockConnector) Close() error {
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// Search returns incident-specific CSV documents first, then runbook files
// ranked by keyword overlap with the query.
func (c *MockConnector) Search(_ context.Context, query, incidentID string, maxResults int) ([]models.KnowledgeDocument, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.KnowledgeDocument
	if incidentID != "" {
		for _, doc := range c.byIncident[incidentID] {
			doc.RelevanceScore = 1.0
			out = append(out, doc)
		}
	}

	queryTokens := similarity.Tokens(query)
	var ranked []models.KnowledgeDocument
	for _, doc := range c.textDocs {
		score := overlapScore(queryTokens, similarity.Tokens(doc.Title+" "+doc.Content))
		if score <= 0 {
			continue
		}
		doc.RelevanceScore = score
		ranked = append(ranked, doc)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		return ranked[i].DocID < ranked[j].DocID
	})
	out = append(out, ranked...)

	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// overlapScore is the fraction of query tokens found in the document.
func overlapScore(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if _, ok := doc[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func (c *MockConnector) Get(_ context.Context, docID string) (*models.KnowledgeDocument, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, docs := range c.byIncident {
		for _, doc := range docs {
			if doc.DocID == docID {
				cp := doc
				return &cp, nil
			}
		}
	}
	for _, doc := range c.textDocs {
		if doc.DocID == docID {
			cp := doc
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
}
