package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/similarity"
)

// JiraConnector reads incidents from Jira Service Management via the REST
// search API. Status updates go through the transitions endpoint. Log and
// event retrieval is not supported by this backend.
type JiraConnector struct {
	httpClient *http.Client
	baseURL    string
	email      string
	apiToken   string
	project    string
}

// NewJiraConnector creates a connector for one Jira site.
func NewJiraConnector(cfg config.JiraConfig, timeout time.Duration) *JiraConnector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &JiraConnector{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      cfg.Email,
		apiToken:   cfg.APIToken,
		project:    cfg.Project,
	}
}

func (c *JiraConnector) Name() string { return "jira" }

type jiraIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Created     string `json:"created"`
		Priority    struct {
			Name string `json:"name"`
		} `json:"priority"`
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Resolution struct {
			Description string `json:"description"`
		} `json:"resolution"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Components []struct {
			Name string `json:"name"`
		} `json:"components"`
	} `json:"fields"`
}

type jiraSearchResult struct {
	Issues []jiraIssue `json:"issues"`
}

func (c *JiraConnector) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	issues, err := c.search(ctx, fmt.Sprintf("project = %q ORDER BY created DESC", c.project))
	if err != nil {
		return nil, err
	}
	out := make([]*models.Incident, 0, len(issues))
	for i := range issues {
		out = append(out, jiraToIncident(&issues[i]))
	}
	return out, nil
}

func (c *JiraConnector) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	issues, err := c.search(ctx, fmt.Sprintf("key = %q", id))
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return jiraToIncident(&issues[0]), nil
}

// UpdateStatus resolves the transition whose target status matches, then
// performs it. Jira has no direct status write.
func (c *JiraConnector) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Incident, error) {
	var transitions struct {
		Transitions []struct {
			ID string `json:"id"`
			To struct {
				Name string `json:"name"`
			} `json:"to"`
		} `json:"transitions"`
	}
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s/transitions", c.baseURL, url.PathEscape(id))
	err := withRetry(ctx, "jira.get_transitions", func() error {
		return c.do(ctx, http.MethodGet, endpoint, nil, &transitions)
	})
	if err != nil {
		return nil, err
	}

	transitionID := ""
	for _, t := range transitions.Transitions {
		if jiraStatus(t.To.Name) == status {
			transitionID = t.ID
			break
		}
	}
	if transitionID == "" {
		return nil, fmt.Errorf("%w: no transition to status %q for %s", ErrUpstream, status, id)
	}

	body, _ := json.Marshal(map[string]any{
		"transition": map[string]string{"id": transitionID},
	})
	err = withRetry(ctx, "jira.transition", func() error {
		return c.do(ctx, http.MethodPost, endpoint, body, nil)
	})
	if err != nil {
		return nil, err
	}
	return c.GetIncident(ctx, id)
}

func (c *JiraConnector) FindSimilar(ctx context.Context, incident *models.Incident, threshold float64, k int) ([]models.SimilarIncident, error) {
	issues, err := c.search(ctx, fmt.Sprintf("project = %q AND statusCategory = Done", c.project))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*jiraIssue, len(issues))
	candidates := make([]*models.Incident, 0, len(issues))
	for i := range issues {
		inc := jiraToIncident(&issues[i])
		byID[inc.ID] = &issues[i]
		candidates = append(candidates, inc)
	}

	matches := similarity.FindSimilar(incident, candidates, threshold, k)
	out := make([]models.SimilarIncident, 0, len(matches))
	for _, m := range matches {
		si := models.SimilarIncident{
			TicketID:        m.Incident.ID,
			IncidentID:      m.Incident.ID,
			Title:           m.Incident.Title,
			Severity:        string(m.Incident.Severity),
			Status:          string(m.Incident.Status),
			Description:     m.Incident.Description,
			Source:          c.Name(),
			SimilarityScore: m.Score,
		}
		if issue := byID[m.Incident.ID]; issue != nil {
			si.Resolution = issue.Fields.Resolution.Description
		}
		if si.Description == "" && si.Resolution == "" {
			continue
		}
		out = append(out, si)
	}
	return out, nil
}

// FindChanges searches issues of type Change in the deploy window.
func (c *JiraConnector) FindChanges(ctx context.Context, incident *models.Incident, window ChangeWindow) ([]models.ChangeRecord, error) {
	issues, err := c.search(ctx, fmt.Sprintf("project = %q AND issuetype = Change", c.project))
	if err != nil {
		return nil, err
	}

	var out []models.ChangeRecord
	for i := range issues {
		deployedAt, err := parseJiraTime(issues[i].Fields.Created)
		if err != nil {
			continue
		}
		if !window.Contains(incident.CreatedAt, deployedAt) {
			continue
		}
		rec := models.ChangeRecord{
			ChangeID:    issues[i].Key,
			Description: issues[i].Fields.Summary,
			DeployedAt:  deployedAt,
		}
		if len(issues[i].Fields.Components) > 0 {
			rec.Service = issues[i].Fields.Components[0].Name
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *JiraConnector) FindLogs(context.Context, *models.Incident) ([]models.LogEntry, error) {
	return nil, ErrNotSupported
}

func (c *JiraConnector) FindEvents(context.Context, *models.Incident) ([]models.Event, error) {
	return nil, ErrNotSupported
}

func (c *JiraConnector) search(ctx context.Context, jql string) ([]jiraIssue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/search?jql=%s&maxResults=200", c.baseURL, url.QueryEscape(jql))
	var result jiraSearchResult
	err := withRetry(ctx, "jira.search", func() error {
		return c.do(ctx, http.MethodGet, endpoint, nil, &result)
	})
	if err != nil {
		return nil, err
	}
	return result.Issues, nil
}

func (c *JiraConnector) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return markTransient(fmt.Errorf("%w: %v", ErrUpstream, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return markTransient(fmt.Errorf("%w: Jira returned HTTP %d", ErrUpstream, resp.StatusCode))
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: Jira returned HTTP %d", ErrUpstream, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
	}
	return nil
}

func jiraToIncident(issue *jiraIssue) *models.Incident {
	createdAt, _ := parseJiraTime(issue.Fields.Created)
	services := make([]string, 0, len(issue.Fields.Components))
	for _, comp := range issue.Fields.Components {
		services = append(services, comp.Name)
	}
	return &models.Incident{
		ID:               issue.Key,
		Title:            issue.Fields.Summary,
		Description:      issue.Fields.Description,
		Severity:         jiraSeverity(issue.Fields.Priority.Name),
		Status:           jiraStatus(issue.Fields.Status.Name),
		CreatedAt:        createdAt,
		AffectedServices: services,
		Assignee:         issue.Fields.Assignee.DisplayName,
	}
}

func parseJiraTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02T15:04:05.000-0700", s); err == nil {
		return t, nil
	}
	return parseTime(s)
}

func jiraSeverity(priority string) models.Severity {
	switch strings.ToLower(priority) {
	case "highest", "blocker":
		return models.SeverityCritical
	case "high":
		return models.SeverityHigh
	case "medium":
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func jiraStatus(status string) models.Status {
	switch strings.ToLower(status) {
	case "done", "resolved", "closed":
		return models.StatusResolved
	case "in progress", "investigating":
		return models.StatusInvestigating
	default:
		return models.StatusOpen
	}
}
