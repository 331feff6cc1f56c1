// Package prompts holds the editable per-agent system prompts. Custom
// prompts persist as a single JSON document written with atomic rename;
// reads are served from memory.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// ErrUnknownAgent indicates a prompt operation named an unrecognized agent.
var ErrUnknownAgent = errors.New("unknown agent")

// Store maps agent names to their current prompts.
type Store struct {
	mu     sync.RWMutex
	custom map[string]string
	path   string
}

// NewStore loads any persisted custom prompts from path. A missing or
// unreadable file starts the store with defaults only.
func NewStore(path string) *Store {
	s := &Store{
		custom: make(map[string]string),
		path:   path,
	}
	if path == "" {
		return s
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Could not load custom prompts", "path", path, "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.custom); err != nil {
		slog.Warn("Ignoring malformed custom prompts file", "path", path, "error", err)
		s.custom = make(map[string]string)
	}
	return s
}

// Get returns the effective prompt for an agent: custom if set, else default.
func (s *Store) Get(agent string) (string, error) {
	if !KnownAgent(agent) {
		return "", fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.custom[agent]; ok {
		return p, nil
	}
	return Default(agent), nil
}

// Record returns the prompt record for one agent.
func (s *Store) Record(agent string) (models.PromptRecord, error) {
	if !KnownAgent(agent) {
		return models.PromptRecord{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record(agent), nil
}

func (s *Store) record(agent string) models.PromptRecord {
	rec := models.PromptRecord{Default: Default(agent), Current: Default(agent)}
	if p, ok := s.custom[agent]; ok {
		rec.Current = p
		rec.IsCustom = p != rec.Default
	}
	return rec
}

// List returns the records for every known agent, keyed by agent name.
func (s *Store) List() map[string]models.PromptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.PromptRecord, len(defaultPrompts))
	for agent := range defaultPrompts {
		out[agent] = s.record(agent)
	}
	return out
}

// Agents returns the known agent names, sorted.
func Agents() []string {
	out := make([]string, 0, len(defaultPrompts))
	for agent := range defaultPrompts {
		out = append(out, agent)
	}
	sort.Strings(out)
	return out
}

// Put sets a custom prompt. Setting the default text clears the custom flag.
func (s *Store) Put(agent, prompt string) error {
	if !KnownAgent(agent) {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}

	s.mu.Lock()
	if prompt == Default(agent) {
		delete(s.custom, agent)
	} else {
		s.custom[agent] = prompt
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return s.persist(snapshot)
}

// Reset restores an agent's prompt to its default. Idempotent.
func (s *Store) Reset(agent string) error {
	if !KnownAgent(agent) {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}

	s.mu.Lock()
	delete(s.custom, agent)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return s.persist(snapshot)
}

// ResetAll restores every agent's prompt to its default.
func (s *Store) ResetAll() error {
	s.mu.Lock()
	s.custom = make(map[string]string)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return s.persist(snapshot)
}

func (s *Store) snapshotLocked() map[string]string {
	out := make(map[string]string, len(s.custom))
	for k, v := range s.custom {
		out[k] = v
	}
	return out
}

// persist writes the custom prompts via temp file + atomic rename, so a
// crash never leaves a torn document.
func (s *Store) persist(custom map[string]string) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(custom, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prompts: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prompts directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prompts-*.json")
	if err != nil {
		return fmt.Errorf("create temp prompts file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write prompts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close prompts file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace prompts file: %w", err)
	}
	return nil
}
