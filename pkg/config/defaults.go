package config

import "time"

// Built-in defaults applied before the YAML file and env overrides.
const (
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultGeminiModel  = "gemini-2.0-flash"
	DefaultOllamaModel  = "llama3.1"
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultServerPort   = 8000
	DefaultLogMaxSizeMB = 50
)

// DefaultConfig returns the built-in configuration baseline.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          ProviderOpenAI,
			Timeout:           Duration(60 * time.Second),
			StreamIdleTimeout: Duration(30 * time.Second),
			OpenAI:            OpenAIConfig{Model: DefaultOpenAIModel},
			Gemini:            GeminiConfig{Model: DefaultGeminiModel},
			Ollama: OllamaConfig{
				BaseURL: DefaultOllamaURL,
				Model:   DefaultOllamaModel,
			},
		},
		Logging: LoggingConfig{
			Level:         LogLevelInfo,
			EnableTracing: false,
			MaxSizeMB:     DefaultLogMaxSizeMB,
			MaxBackups:    3,
		},
		IncidentConnector: ConnectorConfig{
			Type:    ConnectorMock,
			Timeout: Duration(10 * time.Second),
			Mock:    MockConfig{DataDir: "deploy/data"},
		},
		KnowledgeBase: KBConfig{
			Source: KnowledgeBaseMock,
			Mock: MockKBConfig{
				CSVPath:    "deploy/data/confluence_docs.csv",
				DocsFolder: "deploy/data/docs",
			},
		},
		Cache: CacheConfig{
			TTL: Duration(5 * time.Minute),
		},
		Agents: AgentsConfig{
			MaxSimilarIncidents: 5,
			SimilarityThreshold: 0.2,
			MaxKnowledgeDocs:    5,
			MaxLogs:             20,
			MaxEvents:           20,
			ContextItems:        5,
			ChangeWindowBefore:  Duration(7 * 24 * time.Hour),
			ChangeWindowAfter:   Duration(time.Hour),
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: DefaultServerPort,
		},
		PromptsPath: "deploy/prompts.json",
		PromptLogs: PromptLogsConfig{
			MaxEntries: 100,
		},
	}
}
