package kb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// ErrUpstream indicates the Confluence request failed.
var ErrUpstream = errors.New("knowledge base request failed")

// ConfluenceConnector searches Confluence via the CQL REST API.
type ConfluenceConnector struct {
	httpClient *http.Client
	baseURL    string
	username   string
	apiToken   string
	spaceKey   string
}

// NewConfluenceConnector creates a connector for one Confluence site.
func NewConfluenceConnector(cfg config.ConfluenceConfig) *ConfluenceConnector {
	return &ConfluenceConnector{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		apiToken:   cfg.APIToken,
		spaceKey:   cfg.SpaceKey,
	}
}

func (c *ConfluenceConnector) Name() string { return "confluence" }

type cqlSearchResult struct {
	Results []struct {
		Content struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"content"`
		Excerpt string `json:"excerpt"`
	} `json:"results"`
}

func (c *ConfluenceConnector) Search(ctx context.Context, query, _ string, maxResults int) ([]models.KnowledgeDocument, error) {
	cql := fmt.Sprintf(`text ~ %q`, query)
	if c.spaceKey != "" {
		cql += fmt.Sprintf(` AND space = %q`, c.spaceKey)
	}
	endpoint := fmt.Sprintf("%s/rest/api/search?cql=%s&limit=%d",
		c.baseURL, url.QueryEscape(cql), maxResults)

	var result cqlSearchResult
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	docs := make([]models.KnowledgeDocument, 0, len(result.Results))
	for _, r := range result.Results {
		docs = append(docs, models.KnowledgeDocument{
			DocID:   r.Content.ID,
			Title:   r.Content.Title,
			Content: stripMarkup(r.Excerpt),
		})
	}
	return docs, nil
}

type contentResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

func (c *ConfluenceConnector) Get(ctx context.Context, docID string) (*models.KnowledgeDocument, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s?expand=body.storage",
		c.baseURL, url.PathEscape(docID))

	var result contentResult
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &models.KnowledgeDocument{
		DocID:   result.ID,
		Title:   result.Title,
		Content: stripMarkup(result.Body.Storage.Value),
	}, nil
}

func (c *ConfluenceConnector) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: Confluence returned HTTP %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}

var markupRE = regexp.MustCompile(`<[^>]+>|@@@(?:hl|endhl)@@@`)

// stripMarkup removes storage-format tags and search-highlight markers.
func stripMarkup(s string) string {
	return strings.TrimSpace(markupRE.ReplaceAllString(s, ""))
}
