// Package cache provides the per-incident TTL cache of agent results.
// Expired entries are cleaned up lazily on Get() — no background goroutine.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// DefaultTTL is used when Put is called with a non-positive ttl.
const DefaultTTL = 5 * time.Minute

type entry struct {
	data      *models.AgentData
	expiresAt time.Time
}

// AgentCache is a thread-safe in-memory cache mapping incident IDs to the
// AgentData gathered for them. Follow-up chat reuses cached results instead
// of re-running the agent graph.
type AgentCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	defaultTTL time.Duration
	now        func() time.Time
}

// New creates a cache with the given default TTL (DefaultTTL if <= 0).
func New(defaultTTL time.Duration) *AgentCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &AgentCache{
		entries:    make(map[string]*entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached AgentData if present and not expired.
// An expired entry is removed and reported as a miss.
func (c *AgentCache) Get(incidentID string) (*models.AgentData, bool) {
	c.mu.RLock()
	e, ok := c.entries[incidentID]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		// Expired — clean up lazily. Re-check under write lock: a concurrent
		// Put may have replaced the entry with a fresh one.
		c.mu.Lock()
		if current, ok := c.entries[incidentID]; ok && !c.now().Before(current.expiresAt) {
			delete(c.entries, incidentID)
		}
		c.mu.Unlock()
		slog.Debug("Cache expired", "incident_id", incidentID)
		return nil, false
	}

	return e.data, true
}

// Put stores AgentData with the given TTL (default TTL if <= 0).
func (c *AgentCache) Put(incidentID string, data *models.AgentData, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[incidentID] = &entry{data: data, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	slog.Debug("Cached agent results", "incident_id", incidentID, "ttl", ttl)
}

// Invalidate removes any entry for the incident.
func (c *AgentCache) Invalidate(incidentID string) {
	c.mu.Lock()
	if _, ok := c.entries[incidentID]; ok {
		delete(c.entries, incidentID)
		slog.Debug("Cache invalidated", "incident_id", incidentID)
	}
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *AgentCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the number of entries, including any not yet lazily expired.
func (c *AgentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
