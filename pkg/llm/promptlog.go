package llm

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// PromptLog is a bounded in-memory record of LLM invocations. When full,
// the oldest entry is dropped.
type PromptLog struct {
	mu      sync.Mutex
	entries []models.PromptLogEntry
	max     int
}

// NewPromptLog creates a log holding at most max entries (min 1).
func NewPromptLog(max int) *PromptLog {
	if max < 1 {
		max = 1
	}
	return &PromptLog{max: max}
}

// Append records one invocation, assigning ID and timestamp.
func (l *PromptLog) Append(entry models.PromptLogEntry) {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

// List returns the entries, newest first.
func (l *PromptLog) List() []models.PromptLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.PromptLogEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Clear discards all entries.
func (l *PromptLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Len returns the current entry count.
func (l *PromptLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
