// Package config loads and validates the layered application configuration:
// built-in defaults, then an optional YAML file, then environment overrides.
package config

// Config is the fully resolved application configuration.
type Config struct {
	LLM               LLMConfig        `yaml:"llm"`
	Logging           LoggingConfig    `yaml:"logging"`
	IncidentConnector ConnectorConfig  `yaml:"incident_connector"`
	KnowledgeBase     KBConfig         `yaml:"knowledge_base"`
	Cache             CacheConfig      `yaml:"cache"`
	Agents            AgentsConfig     `yaml:"agents"`
	Server            ServerConfig     `yaml:"server"`
	PromptsPath       string           `yaml:"prompts_path"`
	PromptLogs        PromptLogsConfig `yaml:"prompt_logs"`
}

// LLMConfig selects and configures the LLM provider.
type LLMConfig struct {
	Provider          LLMProvider  `yaml:"provider"`
	Timeout           Duration     `yaml:"timeout"`
	StreamIdleTimeout Duration     `yaml:"stream_idle_timeout"`
	OpenAI            OpenAIConfig `yaml:"openai"`
	Gemini            GeminiConfig `yaml:"gemini"`
	Ollama            OllamaConfig `yaml:"ollama"`
}

// OpenAIConfig holds OpenAI credentials and model selection.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// GeminiConfig holds Google Gemini credentials and model selection.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// OllamaConfig points at a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// LoggingConfig controls log level, tracing, and optional file output.
type LoggingConfig struct {
	Level         LogLevel `yaml:"level"`
	EnableTracing bool     `yaml:"enable_tracing"`
	File          string   `yaml:"file,omitempty"`
	MaxSizeMB     int      `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups    int      `yaml:"max_backups" validate:"min=0"`
}

// ConnectorConfig selects and configures the incident data source.
type ConnectorConfig struct {
	Type       ConnectorType    `yaml:"type"`
	Timeout    Duration         `yaml:"timeout"`
	Mock       MockConfig       `yaml:"mock"`
	ServiceNow ServiceNowConfig `yaml:"servicenow"`
	Jira       JiraConfig       `yaml:"jira"`
}

// MockConfig points the mock connector at its CSV fixtures.
type MockConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ServiceNowConfig holds ServiceNow REST API credentials.
type ServiceNowConfig struct {
	InstanceURL string `yaml:"instance_url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
}

// JiraConfig holds Jira REST API credentials.
type JiraConfig struct {
	BaseURL  string `yaml:"base_url"`
	Email    string `yaml:"email"`
	APIToken string `yaml:"api_token"`
	Project  string `yaml:"project"`
}

// KBConfig selects and configures the knowledge-base backend.
type KBConfig struct {
	Source     KnowledgeBaseSource `yaml:"source"`
	Mock       MockKBConfig        `yaml:"mock"`
	Confluence ConfluenceConfig    `yaml:"confluence"`
}

// MockKBConfig points the mock knowledge base at its fixtures.
type MockKBConfig struct {
	CSVPath    string `yaml:"csv_path"`
	DocsFolder string `yaml:"docs_folder"`
	Watch      bool   `yaml:"watch"`
}

// ConfluenceConfig holds Confluence REST API credentials.
type ConfluenceConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	APIToken string `yaml:"api_token"`
	SpaceKey string `yaml:"space_key"`
}

// CacheConfig controls the agent-result cache.
type CacheConfig struct {
	TTL Duration `yaml:"ttl"`
}

// AgentsConfig tunes retrieval limits and thresholds shared by the agents.
type AgentsConfig struct {
	MaxSimilarIncidents int      `yaml:"max_similar_incidents" validate:"min=1"`
	SimilarityThreshold float64  `yaml:"similarity_threshold" validate:"min=0,max=1"`
	MaxKnowledgeDocs    int      `yaml:"max_knowledge_docs" validate:"min=1"`
	MaxLogs             int      `yaml:"max_logs" validate:"min=1"`
	MaxEvents           int      `yaml:"max_events" validate:"min=1"`
	ContextItems        int      `yaml:"context_items" validate:"min=1"`
	ChangeWindowBefore  Duration `yaml:"change_window_before"`
	ChangeWindowAfter   Duration `yaml:"change_window_after"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

// PromptLogsConfig bounds the in-memory prompt log.
type PromptLogsConfig struct {
	MaxEntries int `yaml:"max_entries" validate:"min=1"`
}
