// Package connectors provides the pluggable incident data sources: a
// CSV-backed mock, ServiceNow, and Jira. A factory selects the variant from
// configuration.
package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

var (
	// ErrNotFound indicates the requested incident does not exist.
	ErrNotFound = errors.New("incident not found")

	// ErrNotSupported indicates the backend has no such capability.
	// Agents treat it as an empty result, not a failure.
	ErrNotSupported = errors.New("operation not supported by connector")

	// ErrUpstream indicates the backend request failed.
	ErrUpstream = errors.New("upstream request failed")
)

// ChangeWindow bounds change retrieval around the incident creation time.
type ChangeWindow struct {
	Before time.Duration
	After  time.Duration
}

// Contains reports whether t falls inside the window around createdAt.
func (w ChangeWindow) Contains(createdAt, t time.Time) bool {
	return !t.Before(createdAt.Add(-w.Before)) && !t.After(createdAt.Add(w.After))
}

// IncidentConnector is the capability set every incident source implements.
// ServiceNow and Jira return ErrNotSupported for log and event retrieval.
type IncidentConnector interface {
	Name() string
	ListIncidents(ctx context.Context) ([]*models.Incident, error)
	GetIncident(ctx context.Context, id string) (*models.Incident, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Incident, error)
	FindSimilar(ctx context.Context, incident *models.Incident, threshold float64, k int) ([]models.SimilarIncident, error)
	FindChanges(ctx context.Context, incident *models.Incident, window ChangeWindow) ([]models.ChangeRecord, error)
	FindLogs(ctx context.Context, incident *models.Incident) ([]models.LogEntry, error)
	FindEvents(ctx context.Context, incident *models.Incident) ([]models.Event, error)
}

// New builds the incident connector selected by the configuration.
func New(cfg config.ConnectorConfig) (IncidentConnector, error) {
	switch cfg.Type {
	case config.ConnectorMock:
		return NewMockConnector(cfg.Mock.DataDir)
	case config.ConnectorServiceNow:
		return NewServiceNowConnector(cfg.ServiceNow, cfg.Timeout.D()), nil
	case config.ConnectorJira:
		return NewJiraConnector(cfg.Jira, cfg.Timeout.D()), nil
	default:
		return nil, fmt.Errorf("%w: incident connector type %q", config.ErrInvalidValue, cfg.Type)
	}
}
