package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate checks enum values, provider-specific required fields, and the
// numeric range tags on the struct.
func validate(cfg *Config) error {
	if !cfg.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: llm.provider %q", ErrInvalidValue, cfg.LLM.Provider)
	}
	if !cfg.IncidentConnector.Type.IsValid() {
		return fmt.Errorf("%w: incident_connector.type %q", ErrInvalidValue, cfg.IncidentConnector.Type)
	}
	if !cfg.KnowledgeBase.Source.IsValid() {
		return fmt.Errorf("%w: knowledge_base.source %q", ErrInvalidValue, cfg.KnowledgeBase.Source)
	}
	if !cfg.Logging.Level.IsValid() {
		return fmt.Errorf("%w: logging.level %q", ErrInvalidValue, cfg.Logging.Level)
	}

	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		if cfg.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: llm.openai.api_key (or OPENAI_API_KEY)", ErrMissingRequiredField)
		}
	case ProviderGemini:
		if cfg.LLM.Gemini.APIKey == "" {
			return fmt.Errorf("%w: llm.gemini.api_key (or GOOGLE_API_KEY)", ErrMissingRequiredField)
		}
	case ProviderOllama:
		if cfg.LLM.Ollama.BaseURL == "" {
			return fmt.Errorf("%w: llm.ollama.base_url", ErrMissingRequiredField)
		}
	}

	switch cfg.IncidentConnector.Type {
	case ConnectorServiceNow:
		sn := cfg.IncidentConnector.ServiceNow
		if sn.InstanceURL == "" || sn.Username == "" || sn.Password == "" {
			return fmt.Errorf("%w: incident_connector.servicenow credentials", ErrMissingRequiredField)
		}
	case ConnectorJira:
		j := cfg.IncidentConnector.Jira
		if j.BaseURL == "" || j.Email == "" || j.APIToken == "" {
			return fmt.Errorf("%w: incident_connector.jira credentials", ErrMissingRequiredField)
		}
	}

	if cfg.KnowledgeBase.Source == KnowledgeBaseConfluence {
		cf := cfg.KnowledgeBase.Confluence
		if cf.BaseURL == "" || cf.APIToken == "" {
			return fmt.Errorf("%w: knowledge_base.confluence credentials", ErrMissingRequiredField)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}
