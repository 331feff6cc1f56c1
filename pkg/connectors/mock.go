package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/similarity"
)

// MockConnector serves deterministic incident data from CSV fixtures.
// Logs and events are generated on demand from a PRNG seeded by the
// incident ID, so repeated queries return identical results.
type MockConnector struct {
	mu        sync.RWMutex
	incidents map[string]*models.Incident
	tickets   map[string][]models.Ticket
	changes   map[string][]models.ChangeRecord
	locks     map[string]*sync.Mutex
}

// NewMockConnector loads the CSV fixtures from dataDir. incidents.csv is
// required; tickets and changes files are optional.
func NewMockConnector(dataDir string) (*MockConnector, error) {
	c := &MockConnector{
		incidents: make(map[string]*models.Incident),
		tickets:   make(map[string][]models.Ticket),
		changes:   make(map[string][]models.ChangeRecord),
		locks:     make(map[string]*sync.Mutex),
	}

	if err := c.loadIncidents(filepath.Join(dataDir, "incidents.csv")); err != nil {
		return nil, err
	}
	if err := c.loadTickets(filepath.Join(dataDir, "servicenow_tickets.csv")); err != nil {
		slog.Warn("No ServiceNow ticket fixtures loaded", "error", err)
	}
	if err := c.loadChanges(filepath.Join(dataDir, "change_correlations.csv")); err != nil {
		slog.Warn("No change correlation fixtures loaded", "error", err)
	}

	slog.Info("Mock connector loaded",
		"incidents", len(c.incidents),
		"ticket_sets", len(c.tickets),
		"change_sets", len(c.changes))
	return c, nil
}

func (c *MockConnector) Name() string { return "mock" }

func (c *MockConnector) loadIncidents(path string) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		createdAt, err := parseTime(row["created_at"])
		if err != nil {
			slog.Warn("Skipping incident with bad created_at",
				"id", row["id"], "value", row["created_at"])
			continue
		}
		inc := &models.Incident{
			ID:               row["id"],
			Title:            row["title"],
			Description:      row["description"],
			Severity:         models.Severity(row["severity"]),
			Status:           models.Status(row["status"]),
			CreatedAt:        createdAt,
			AffectedServices: splitServices(row["affected_services"]),
			Assignee:         row["assignee"],
		}
		c.incidents[inc.ID] = inc
	}
	return nil
}

func (c *MockConnector) loadTickets(path string) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		t := models.Ticket{
			TicketID:    row["ticket_id"],
			IncidentID:  row["incident_id"],
			Kind:        models.TicketKind(row["type"]),
			Resolution:  row["resolution"],
			Description: row["description"],
			Source:      row["source"],
		}
		c.tickets[t.IncidentID] = append(c.tickets[t.IncidentID], t)
	}
	return nil
}

func (c *MockConnector) loadChanges(path string) error {
	rows, err := readCSV(path)
	if err != nil {
		return err
	}
	for _, row := range rows {
		deployedAt, err := parseTime(row["deployed_at"])
		if err != nil {
			slog.Warn("Skipping change with bad deployed_at",
				"change_id", row["change_id"], "value", row["deployed_at"])
			continue
		}
		rec := models.ChangeRecord{
			ChangeID:    row["change_id"],
			Description: row["description"],
			DeployedAt:  deployedAt,
		}
		if s := row["correlation_score"]; s != "" {
			if score, err := strconv.ParseFloat(s, 64); err == nil {
				rec.Score = &score
			} else {
				slog.Warn("Ignoring bad correlation_score",
					"change_id", rec.ChangeID, "value", s)
			}
		}
		id := row["incident_id"]
		c.changes[id] = append(c.changes[id], rec)
	}
	return nil
}

func (c *MockConnector) ListIncidents(_ context.Context) ([]*models.Incident, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*models.Incident, 0, len(c.incidents))
	for _, inc := range c.incidents {
		cp := *inc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c *MockConnector) GetIncident(_ context.Context, id string) (*models.Incident, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	inc, ok := c.incidents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *inc
	return &cp, nil
}

// UpdateStatus serializes concurrent updates to one incident behind a
// per-incident lock. Readers see either the old or the new incident.
func (c *MockConnector) UpdateStatus(_ context.Context, id string, status models.Status) (*models.Incident, error) {
	lock := c.incidentLock(id)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	inc, ok := c.incidents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	now := time.Now().UTC()
	updated := *inc
	updated.Status = status
	updated.UpdatedAt = &now
	c.incidents[id] = &updated

	cp := updated
	return &cp, nil
}

func (c *MockConnector) incidentLock(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	c.locks[id] = l
	return l
}

// FindSimilar ranks resolved incidents by weighted Jaccard similarity and
// enriches matches with ticket resolutions when the fixtures carry one.
func (c *MockConnector) FindSimilar(ctx context.Context, incident *models.Incident, threshold float64, k int) ([]models.SimilarIncident, error) {
	candidates, err := c.ListIncidents(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	matches := similarity.FindSimilar(incident, candidates, threshold, k)
	out := make([]models.SimilarIncident, 0, len(matches))
	for _, m := range matches {
		si := models.SimilarIncident{
			IncidentID:      m.Incident.ID,
			Title:           m.Incident.Title,
			Severity:        string(m.Incident.Severity),
			Status:          string(m.Incident.Status),
			Description:     m.Incident.Description,
			Source:          c.Name(),
			SimilarityScore: m.Score,
		}
		for _, t := range c.tickets[m.Incident.ID] {
			if t.Kind != models.TicketSimilarIncident {
				continue
			}
			si.TicketID = t.TicketID
			si.Resolution = t.Resolution
			if t.Description != "" {
				si.Description = t.Description
			}
			if t.Source != "" {
				si.Source = t.Source
			}
			break
		}
		if si.Description == "" && si.Resolution == "" {
			continue
		}
		out = append(out, si)
	}
	return out, nil
}

func (c *MockConnector) FindChanges(_ context.Context, incident *models.Incident, window ChangeWindow) ([]models.ChangeRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.ChangeRecord
	for _, rec := range c.changes[incident.ID] {
		if !window.Contains(incident.CreatedAt, rec.DeployedAt) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

var logTemplates = []struct {
	level   string
	message string
}{
	{"ERROR", "Database connection timeout after 30s"},
	{"ERROR", "Failed to process payment transaction"},
	{"ERROR", "Authentication service unreachable"},
	{"WARN", "High memory usage detected: 85%"},
	{"WARN", "Response time exceeding threshold: 2500ms"},
	{"WARN", "Connection pool near capacity: 90%"},
	{"ERROR", "Null pointer exception in request handler"},
	{"INFO", "Service restart initiated"},
	{"ERROR", "Circuit breaker opened for external API"},
	{"WARN", "Disk space low: 15% remaining"},
	{"INFO", "Fallback cache activated"},
	{"ERROR", "Message queue connection lost"},
}

var logServices = []string{"api-gateway", "auth-service", "database", "payment-service", "user-service"}

// FindLogs generates log entries deterministically from the incident ID.
func (c *MockConnector) FindLogs(_ context.Context, incident *models.Incident) ([]models.LogEntry, error) {
	rng := seededRNG(incident.ID)
	n := 8 + rng.Intn(8)

	logs := make([]models.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		tpl := logTemplates[rng.Intn(len(logTemplates))]
		service := logServices[rng.Intn(len(logServices))]
		ts := incident.CreatedAt.Add(-time.Duration(5+rng.Intn(56)) * time.Minute)
		logs = append(logs, models.LogEntry{
			Timestamp: ts.Format(time.RFC3339),
			Level:     tpl.level,
			Service:   service,
			Message:   tpl.message,
			Source:    service + ".log",
		})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp > logs[j].Timestamp })
	return logs, nil
}

var eventTemplates = []struct {
	severity string
	typ      string
	message  string
}{
	{"CRITICAL", "Slow Transaction", "Response time exceeded 5000ms"},
	{"CRITICAL", "Error Rate Spike", "Error rate increased to 15% in last 5 minutes"},
	{"WARNING", "Memory Threshold", "Heap memory usage at 80%"},
	{"CRITICAL", "Service Down", "Health check failing for 3 consecutive attempts"},
	{"WARNING", "CPU Spike", "CPU utilization at 85% for 2 minutes"},
	{"INFO", "Deployment Event", "New version deployed successfully"},
	{"WARNING", "Slow Database Query", "Query execution time: 4200ms"},
	{"CRITICAL", "Circuit Breaker Open", "External service circuit breaker tripped"},
	{"WARNING", "Cache Miss Rate High", "Cache miss rate at 60%"},
	{"INFO", "Scale Event", "Auto-scaling triggered: added 2 instances"},
}

var eventApplications = []string{"Web-Application", "Mobile-API", "Payment-Gateway", "User-Service", "Analytics-Service"}

// FindEvents generates platform events deterministically from the incident ID.
func (c *MockConnector) FindEvents(_ context.Context, incident *models.Incident) ([]models.Event, error) {
	rng := seededRNG(incident.ID)
	n := 6 + rng.Intn(7)

	events := make([]models.Event, 0, n)
	for i := 0; i < n; i++ {
		tpl := eventTemplates[rng.Intn(len(eventTemplates))]
		app := eventApplications[rng.Intn(len(eventApplications))]
		ts := incident.CreatedAt.Add(-time.Duration(2+rng.Intn(44)) * time.Minute)
		events = append(events, models.Event{
			ID:          fmt.Sprintf("EVT-%05d", rng.Intn(100000)),
			Timestamp:   ts.Format(time.RFC3339),
			Type:        tpl.typ,
			Severity:    tpl.severity,
			Application: app,
			Message:     tpl.message,
			Details:     fmt.Sprintf("Detected in %s at %s", app, ts.Format("15:04:05")),
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp > events[j].Timestamp })
	return events, nil
}

// seededRNG derives a PRNG from the byte sum of the incident ID, so the
// same incident always yields the same logs and events.
func seededRNG(incidentID string) *rand.Rand {
	var seed int64
	for _, b := range []byte(incidentID) {
		seed += int64(b)
	}
	return rand.New(rand.NewSource(seed))
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
