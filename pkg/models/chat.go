package models

import "time"

// ChatMessage is one turn of a follow-up conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResolveResponse is the structured synthesis result for an incident.
type ResolveResponse struct {
	IncidentID        string   `json:"incident_id"`
	Summary           string   `json:"summary"`
	ResolutionSteps   []string `json:"resolution_steps"`
	RelatedKnowledge  []string `json:"related_knowledge"`
	CorrelatedChanges []string `json:"correlated_changes"`
	Confidence        float64  `json:"confidence"`
}

// ExcludedItem marks a retrieved item the operator judged irrelevant.
type ExcludedItem struct {
	ItemID string `json:"item_id"`
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
}

// Prompt types recorded in the prompt log.
const (
	PromptTypeSynthesis = "synthesis"
	PromptTypeChat      = "chat"
)

// PromptLogEntry captures one LLM invocation for inspection.
type PromptLogEntry struct {
	ID                  string        `json:"id"`
	Timestamp           time.Time     `json:"timestamp"`
	IncidentID          string        `json:"incident_id"`
	PromptType          string        `json:"prompt_type"`
	SystemPrompt        string        `json:"system_prompt"`
	UserMessage         string        `json:"user_message"`
	ContextSummary      string        `json:"context_summary"`
	ConversationHistory []ChatMessage `json:"conversation_history,omitempty"`
}

// PromptRecord is one agent's prompt with its factory default.
type PromptRecord struct {
	Current  string `json:"current"`
	Default  string `json:"default"`
	IsCustom bool   `json:"is_custom"`
}
