// Package orchestrator runs the agent graph for one incident: a sequential
// chain of retrieval nodes followed by LLM synthesis. Retrieval nodes
// degrade gracefully — a failed agent leaves its slot empty and the chain
// continues; only a missing incident aborts the run.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/agents"
	"github.com/codeready-toolchain/smartrecover/pkg/cache"
	"github.com/codeready-toolchain/smartrecover/pkg/config"
	"github.com/codeready-toolchain/smartrecover/pkg/connectors"
	"github.com/codeready-toolchain/smartrecover/pkg/exclusions"
	"github.com/codeready-toolchain/smartrecover/pkg/llm"
	"github.com/codeready-toolchain/smartrecover/pkg/logging"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
	"github.com/codeready-toolchain/smartrecover/pkg/prompts"
)

// State is the shared object threaded through the graph nodes.
type State struct {
	IncidentID string
	UserQuery  string
	Incident   *models.Incident
	Data       *models.AgentData
	Synthesis  *models.ResolveResponse
}

// node is one step of the graph. Retrieval nodes return nil even when
// their agent fails; a non-nil error aborts the whole run.
type node struct {
	name string
	run  func(ctx context.Context, st *State) error
}

// Orchestrator wires the agents, cache, exclusion store, and LLM manager
// into the resolve and chat flows.
type Orchestrator struct {
	connector    connectors.IncidentConnector
	agents       *agents.Set
	cache        *cache.AgentCache
	exclusions   *exclusions.Store
	llm          *llm.Manager
	prompts      *prompts.Store
	cacheTTL     time.Duration
	contextItems int
}

// New builds the orchestrator. contextItems bounds the per-section item
// counts in rendered LLM contexts.
func New(
	connector connectors.IncidentConnector,
	set *agents.Set,
	agentCache *cache.AgentCache,
	excl *exclusions.Store,
	manager *llm.Manager,
	promptStore *prompts.Store,
	cfg config.CacheConfig,
	agentsCfg config.AgentsConfig,
) *Orchestrator {
	items := agentsCfg.ContextItems
	if items <= 0 {
		items = 5
	}
	return &Orchestrator{
		connector:    connector,
		agents:       set,
		cache:        agentCache,
		exclusions:   excl,
		llm:          manager,
		prompts:      promptStore,
		cacheTTL:     cfg.TTL.D(),
		contextItems: items,
	}
}

// nodes returns the retrieval chain in execution order.
func (o *Orchestrator) nodes() []node {
	return []node{
		{"servicenow", func(ctx context.Context, st *State) error {
			results, err := o.agents.ServiceNow.Query(ctx, st.Incident)
			if err != nil {
				slog.WarnContext(ctx, "ServiceNow agent failed", "incident_id", st.IncidentID, "error", err)
				return nil
			}
			st.Data.ServiceNowResults = results
			return nil
		}},
		{"knowledge-base", func(ctx context.Context, st *State) error {
			results, err := o.agents.KnowledgeBase.Query(ctx, st.Incident)
			if err != nil {
				slog.WarnContext(ctx, "Knowledge-base agent failed", "incident_id", st.IncidentID, "error", err)
				return nil
			}
			st.Data.ConfluenceResults = results
			return nil
		}},
		{"change-correlation", func(ctx context.Context, st *State) error {
			results, err := o.agents.ChangeCorrelation.Query(ctx, st.Incident)
			if err != nil {
				slog.WarnContext(ctx, "Change-correlation agent failed", "incident_id", st.IncidentID, "error", err)
				return nil
			}
			st.Data.ChangeResults = results
			return nil
		}},
		{"logs", func(ctx context.Context, st *State) error {
			results, err := o.agents.Logs.Query(ctx, st.Incident)
			if err != nil {
				slog.WarnContext(ctx, "Logs agent failed", "incident_id", st.IncidentID, "error", err)
				return nil
			}
			st.Data.LogsResults = results
			return nil
		}},
		{"events", func(ctx context.Context, st *State) error {
			results, err := o.agents.Events.Query(ctx, st.Incident)
			if err != nil {
				slog.WarnContext(ctx, "Events agent failed", "incident_id", st.IncidentID, "error", err)
				return nil
			}
			st.Data.EventsResults = results
			return nil
		}},
	}
}

// runGraph loads the incident, runs every retrieval node in order, caches
// the collected AgentData, and records accuracy counters. The returned
// data is the cached original — callers clone before filtering.
func (o *Orchestrator) runGraph(ctx context.Context, incidentID, userQuery string) (*State, error) {
	st := &State{IncidentID: incidentID, UserQuery: userQuery, Data: &models.AgentData{}}

	done := logging.Trace(ctx, "connector.get_incident", map[string]any{"incident_id": incidentID})
	incident, err := o.connector.GetIncident(ctx, incidentID)
	done(err)
	if err != nil {
		return nil, fmt.Errorf("load incident %s: %w", incidentID, err)
	}
	st.Incident = incident

	for _, n := range o.nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.DebugContext(ctx, "Running agent node", "node", n.name, "incident_id", incidentID)
		done := logging.Trace(ctx, "agent."+n.name, map[string]any{"incident_id": incidentID})
		err := n.run(ctx, st)
		done(err)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.name, err)
		}
	}

	o.recordReturned(st.Data)
	o.cache.Put(incidentID, st.Data, o.cacheTTL)
	return st, nil
}

// recordReturned bumps the accuracy counters for every item retrieved.
func (o *Orchestrator) recordReturned(data *models.AgentData) {
	if r := data.ServiceNowResults; r != nil {
		o.exclusions.RecordReturned(exclusions.CategorySimilarIncidents, len(r.SimilarIncidents))
	}
	if r := data.ConfluenceResults; r != nil {
		o.exclusions.RecordReturned(exclusions.CategoryKnowledgeDocuments, len(r.Documents))
	}
	if r := data.ChangeResults; r != nil {
		o.exclusions.RecordReturned(exclusions.CategoryChanges, len(r.AllCorrelations))
	}
	if r := data.LogsResults; r != nil {
		o.exclusions.RecordReturned(exclusions.CategoryLogs, len(r.Logs))
	}
	if r := data.EventsResults; r != nil {
		o.exclusions.RecordReturned(exclusions.CategoryEvents, len(r.Events))
	}
}

// fetchAgentData returns the incident's AgentData, from cache when fresh,
// else by running the retrieval graph. The result is a filtered clone;
// the cache always keeps the unfiltered original.
func (o *Orchestrator) fetchAgentData(ctx context.Context, incidentID, userQuery string) (*models.AgentData, error) {
	if data, ok := o.cache.Get(incidentID); ok {
		slog.DebugContext(ctx, "Using cached agent data", "incident_id", incidentID)
		filtered := data.Clone()
		o.exclusions.FilterAgentData(incidentID, filtered)
		return filtered, nil
	}

	st, err := o.runGraph(ctx, incidentID, userQuery)
	if err != nil {
		return nil, err
	}
	filtered := st.Data.Clone()
	o.exclusions.FilterAgentData(incidentID, filtered)
	return filtered, nil
}

// RetrieveContext runs the retrieval graph (no synthesis), caches the
// results, and returns the exclusion-filtered view.
func (o *Orchestrator) RetrieveContext(ctx context.Context, incidentID string) (*models.AgentData, error) {
	st, err := o.runGraph(ctx, incidentID, "")
	if err != nil {
		return nil, err
	}
	filtered := st.Data.Clone()
	o.exclusions.FilterAgentData(incidentID, filtered)
	return filtered, nil
}

// CachedAgentData returns the exclusion-filtered cached view, if any.
// It never triggers retrieval.
func (o *Orchestrator) CachedAgentData(incidentID string) (*models.AgentData, bool) {
	data, ok := o.cache.Get(incidentID)
	if !ok {
		return nil, false
	}
	filtered := data.Clone()
	o.exclusions.FilterAgentData(incidentID, filtered)
	return filtered, true
}
