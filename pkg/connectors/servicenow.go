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

// ServiceNowConnector reads incidents and change requests from the
// ServiceNow Table API with basic auth. Log and event retrieval is not
// supported by this backend.
type ServiceNowConnector struct {
	httpClient  *http.Client
	instanceURL string
	username    string
	password    string
}

// NewServiceNowConnector creates a connector for one ServiceNow instance.
func NewServiceNowConnector(cfg config.ServiceNowConfig, timeout time.Duration) *ServiceNowConnector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ServiceNowConnector{
		httpClient:  &http.Client{Timeout: timeout},
		instanceURL: strings.TrimRight(cfg.InstanceURL, "/"),
		username:    cfg.Username,
		password:    cfg.Password,
	}
}

func (c *ServiceNowConnector) Name() string { return "servicenow" }

type snIncidentRecord struct {
	SysID            string `json:"sys_id"`
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Severity         string `json:"severity"`
	State            string `json:"state"`
	SysCreatedOn     string `json:"sys_created_on"`
	CloseNotes       string `json:"close_notes"`
	CmdbCI           string `json:"cmdb_ci"`
	AssignedTo       string `json:"assigned_to"`
}

type snChangeRecord struct {
	Number           string `json:"number"`
	ShortDescription string `json:"short_description"`
	StartDate        string `json:"start_date"`
	CmdbCI           string `json:"cmdb_ci"`
}

func (c *ServiceNowConnector) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	var records []snIncidentRecord
	err := withRetry(ctx, "servicenow.list_incidents", func() error {
		return c.getTable(ctx, "incident", url.Values{"sysparm_limit": {"200"}}, &records)
	})
	if err != nil {
		return nil, err
	}

	out := make([]*models.Incident, 0, len(records))
	for i := range records {
		out = append(out, snToIncident(&records[i]))
	}
	return out, nil
}

func (c *ServiceNowConnector) GetIncident(ctx context.Context, id string) (*models.Incident, error) {
	rec, err := c.getIncidentRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return snToIncident(rec), nil
}

func (c *ServiceNowConnector) getIncidentRecord(ctx context.Context, id string) (*snIncidentRecord, error) {
	var records []snIncidentRecord
	q := url.Values{
		"sysparm_query": {"number=" + id},
		"sysparm_limit": {"1"},
	}
	err := withRetry(ctx, "servicenow.get_incident", func() error {
		return c.getTable(ctx, "incident", q, &records)
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &records[0], nil
}

func (c *ServiceNowConnector) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Incident, error) {
	rec, err := c.getIncidentRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(map[string]string{"state": statusToSNState(status)})
	endpoint := fmt.Sprintf("%s/api/now/table/incident/%s", c.instanceURL, rec.SysID)
	var updated struct {
		Result snIncidentRecord `json:"result"`
	}
	err = withRetry(ctx, "servicenow.update_status", func() error {
		return c.do(ctx, http.MethodPatch, endpoint, body, &updated)
	})
	if err != nil {
		return nil, err
	}
	return snToIncident(&updated.Result), nil
}

// FindSimilar lists resolved incidents from the instance and ranks them
// locally; ServiceNow's own text search is not relied upon for scoring.
func (c *ServiceNowConnector) FindSimilar(ctx context.Context, incident *models.Incident, threshold float64, k int) ([]models.SimilarIncident, error) {
	var records []snIncidentRecord
	q := url.Values{
		"sysparm_query": {"state=6^ORstate=7"}, // resolved / closed
		"sysparm_limit": {"200"},
	}
	err := withRetry(ctx, "servicenow.find_similar", func() error {
		return c.getTable(ctx, "incident", q, &records)
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*snIncidentRecord, len(records))
	candidates := make([]*models.Incident, 0, len(records))
	for i := range records {
		inc := snToIncident(&records[i])
		byID[inc.ID] = &records[i]
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
		if rec := byID[m.Incident.ID]; rec != nil {
			si.Resolution = rec.CloseNotes
		}
		if si.Description == "" && si.Resolution == "" {
			continue
		}
		out = append(out, si)
	}
	return out, nil
}

func (c *ServiceNowConnector) FindChanges(ctx context.Context, incident *models.Incident, window ChangeWindow) ([]models.ChangeRecord, error) {
	var records []snChangeRecord
	err := withRetry(ctx, "servicenow.find_changes", func() error {
		return c.getTable(ctx, "change_request", url.Values{"sysparm_limit": {"200"}}, &records)
	})
	if err != nil {
		return nil, err
	}

	var out []models.ChangeRecord
	for _, rec := range records {
		deployedAt, err := parseTime(rec.StartDate)
		if err != nil {
			continue
		}
		if !window.Contains(incident.CreatedAt, deployedAt) {
			continue
		}
		out = append(out, models.ChangeRecord{
			ChangeID:    rec.Number,
			Description: rec.ShortDescription,
			DeployedAt:  deployedAt,
			Service:     rec.CmdbCI,
		})
	}
	return out, nil
}

func (c *ServiceNowConnector) FindLogs(context.Context, *models.Incident) ([]models.LogEntry, error) {
	return nil, ErrNotSupported
}

func (c *ServiceNowConnector) FindEvents(context.Context, *models.Incident) ([]models.Event, error) {
	return nil, ErrNotSupported
}

func (c *ServiceNowConnector) getTable(ctx context.Context, table string, query url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/api/now/table/%s?%s", c.instanceURL, table, query.Encode())
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &envelope); err != nil {
		return err
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUpstream, table, err)
	}
	return nil
}

func (c *ServiceNowConnector) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
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
		return markTransient(fmt.Errorf("%w: ServiceNow returned HTTP %d", ErrUpstream, resp.StatusCode))
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: ServiceNow returned HTTP %d", ErrUpstream, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
	}
	return nil
}

func snToIncident(rec *snIncidentRecord) *models.Incident {
	createdAt, _ := parseTime(rec.SysCreatedOn)
	inc := &models.Incident{
		ID:          rec.Number,
		Title:       rec.ShortDescription,
		Description: rec.Description,
		Severity:    snSeverity(rec.Severity),
		Status:      snState(rec.State),
		CreatedAt:   createdAt,
		Assignee:    rec.AssignedTo,
	}
	if rec.CmdbCI != "" {
		inc.AffectedServices = []string{rec.CmdbCI}
	}
	return inc
}

func snSeverity(s string) models.Severity {
	switch s {
	case "1":
		return models.SeverityCritical
	case "2":
		return models.SeverityHigh
	case "3":
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func snState(s string) models.Status {
	switch s {
	case "1":
		return models.StatusOpen
	case "6", "7":
		return models.StatusResolved
	default:
		return models.StatusInvestigating
	}
}

func statusToSNState(s models.Status) string {
	switch s {
	case models.StatusOpen:
		return "1"
	case models.StatusResolved:
		return "6"
	default:
		return "2"
	}
}
