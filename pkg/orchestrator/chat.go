package orchestrator

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/smartrecover/pkg/llm"
	"github.com/codeready-toolchain/smartrecover/pkg/models"
)

// ChatStream starts a streaming chat turn for the incident. Agent data
// comes from the cache when fresh; otherwise the retrieval graph runs
// first. The returned channel closes when the LLM stream ends or ctx is
// cancelled.
func (o *Orchestrator) ChatStream(ctx context.Context, incidentID, message string, history []models.ChatMessage) (<-chan llm.StreamChunk, error) {
	data, err := o.fetchAgentData(ctx, incidentID, message)
	if err != nil {
		return nil, err
	}

	renderedContext := renderContext(data, o.contextItems)
	systemPrompt := fmt.Sprintf(`You are an expert incident resolution assistant helping with incident %s.

You have access to the following information about this incident:

%s

Answer the user's questions based on this information. Be conversational, helpful, and concise.
If the user asks about specific details, provide them from the context above.
If you don't have the information, say so clearly.`, incidentID, renderedContext)

	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleAssistant
		if m.Role == "user" {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: message})

	return o.llm.Stream(ctx, systemPrompt, msgs, llm.LogMeta{
		IncidentID:     incidentID,
		PromptType:     models.PromptTypeChat,
		ContextSummary: renderedContext,
		History:        history,
	})
}
