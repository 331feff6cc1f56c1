package config

// LLMProvider selects the backing LLM service.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
	ProviderOllama LLMProvider = "ollama"
)

// IsValid reports whether the provider is one of the known values.
func (p LLMProvider) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderGemini, ProviderOllama:
		return true
	}
	return false
}

// ConnectorType selects the incident data source.
type ConnectorType string

const (
	ConnectorMock       ConnectorType = "mock"
	ConnectorServiceNow ConnectorType = "servicenow"
	ConnectorJira       ConnectorType = "jira"
)

// IsValid reports whether the connector type is one of the known values.
func (t ConnectorType) IsValid() bool {
	switch t {
	case ConnectorMock, ConnectorServiceNow, ConnectorJira:
		return true
	}
	return false
}

// KnowledgeBaseSource selects the knowledge-base backend.
type KnowledgeBaseSource string

const (
	KnowledgeBaseMock       KnowledgeBaseSource = "mock"
	KnowledgeBaseConfluence KnowledgeBaseSource = "confluence"
)

// IsValid reports whether the source is one of the known values.
func (s KnowledgeBaseSource) IsValid() bool {
	switch s {
	case KnowledgeBaseMock, KnowledgeBaseConfluence:
		return true
	}
	return false
}

// LogLevel is the configured minimum log level. "critical" is an
// application-level severity above slog's error.
type LogLevel string

const (
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
)

// IsValid reports whether the level is one of the known values.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError, LogLevelCritical:
		return true
	}
	return false
}
