package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefault(t *testing.T) {
	s := NewStore("")
	p, err := s.Get(AgentServiceNow)
	require.NoError(t, err)
	assert.Contains(t, p, "ServiceNow incident analysis expert")

	_, err = s.Get("remediation")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestPutAndRecord(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prompts.json"))

	require.NoError(t, s.Put(AgentLogs, "Only report errors."))
	rec, err := s.Record(AgentLogs)
	require.NoError(t, err)
	assert.Equal(t, "Only report errors.", rec.Current)
	assert.True(t, rec.IsCustom)
	assert.Equal(t, Default(AgentLogs), rec.Default)
}

func TestPutDefaultClearsCustomFlag(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prompts.json"))

	require.NoError(t, s.Put(AgentEvents, "custom"))
	require.NoError(t, s.Put(AgentEvents, Default(AgentEvents)))

	rec, err := s.Record(AgentEvents)
	require.NoError(t, err)
	assert.False(t, rec.IsCustom)
}

func TestResetIdempotent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "prompts.json"))

	require.NoError(t, s.Put(AgentOrchestrator, "custom"))
	require.NoError(t, s.Reset(AgentOrchestrator))
	require.NoError(t, s.Reset(AgentOrchestrator))

	rec, err := s.Record(AgentOrchestrator)
	require.NoError(t, err)
	assert.False(t, rec.IsCustom)
	assert.Equal(t, rec.Default, rec.Current)
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")

	s := NewStore(path)
	require.NoError(t, s.Put(AgentKnowledgeBase, "search harder"))

	reloaded := NewStore(path)
	p, err := reloaded.Get(AgentKnowledgeBase)
	require.NoError(t, err)
	assert.Equal(t, "search harder", p)
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path)
	p, err := s.Get(AgentOrchestrator)
	require.NoError(t, err)
	assert.Equal(t, Default(AgentOrchestrator), p)
}

func TestListCoversAllAgents(t *testing.T) {
	s := NewStore("")
	records := s.List()
	assert.Len(t, records, len(Agents()))
	for _, agent := range Agents() {
		assert.Contains(t, records, agent)
	}
}
