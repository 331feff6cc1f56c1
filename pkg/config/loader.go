package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// knownTopLevelKeys is the closed set accepted at the root of the YAML file.
// An unknown top-level key fails the load; unknown nested keys only warn.
var knownTopLevelKeys = map[string]bool{
	"llm":                true,
	"logging":            true,
	"incident_connector": true,
	"knowledge_base":     true,
	"cache":              true,
	"agents":             true,
	"server":             true,
	"prompts_path":       true,
	"prompt_logs":        true,
}

// Load resolves the configuration in three layers: built-in defaults, the
// YAML file at path (skipped with a warning if path is empty or the file
// does not exist), and finally environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"llm_provider", cfg.LLM.Provider,
		"incident_connector", cfg.IncidentConnector.Type,
		"knowledge_base", cfg.KnowledgeBase.Source,
		"log_level", cfg.Logging.Level)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Configuration file not found, using defaults", "path", path)
			return nil
		}
		return NewLoadError(path, err)
	}

	data = expandEnvRefs(data)

	if err := checkUnknownKeys(data); err != nil {
		return NewLoadError(path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	// File values override defaults; unset file values keep defaults.
	if err := mergo.Merge(cfg, &fileCfg, mergo.WithOverride); err != nil {
		return NewLoadError(path, err)
	}
	return nil
}

// envRefPattern matches ${VAR} references in the raw YAML.
var envRefPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnvRefs substitutes ${VAR} references with the environment value
// before the YAML is parsed. Unset variables expand to the empty string.
func expandEnvRefs(data []byte) []byte {
	return envRefPattern.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(ref[2 : len(ref)-1])))
	})
}

// checkUnknownKeys rejects unknown top-level keys and warns on unknown
// nested keys under the known sections.
func checkUnknownKeys(data []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil
	}

	doc := root.Content[0]
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		if !knownTopLevelKeys[key] {
			return fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
		warnUnknownNested(key, doc.Content[i+1])
	}
	return nil
}

func warnUnknownNested(section string, node *yaml.Node) {
	if node.Kind != yaml.MappingNode {
		return
	}
	known := nestedKeysFor(section)
	if known == nil {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !known[key] {
			slog.Warn("Ignoring unknown configuration key",
				"section", section, "key", key)
		}
	}
}

func nestedKeysFor(section string) map[string]bool {
	switch section {
	case "llm":
		return map[string]bool{
			"provider": true, "timeout": true, "stream_idle_timeout": true,
			"openai": true, "gemini": true, "ollama": true,
		}
	case "logging":
		return map[string]bool{
			"level": true, "enable_tracing": true, "file": true,
			"max_size_mb": true, "max_backups": true,
		}
	case "incident_connector":
		return map[string]bool{
			"type": true, "timeout": true, "mock": true,
			"servicenow": true, "jira": true,
		}
	case "knowledge_base":
		return map[string]bool{"source": true, "mock": true, "confluence": true}
	case "cache":
		return map[string]bool{"ttl": true}
	case "agents":
		return map[string]bool{
			"max_similar_incidents": true, "similarity_threshold": true,
			"max_knowledge_docs": true, "max_logs": true, "max_events": true,
			"context_items": true,
			"change_window_before": true, "change_window_after": true,
		}
	case "server":
		return map[string]bool{"host": true, "port": true}
	case "prompt_logs":
		return map[string]bool{"max_entries": true}
	}
	return nil
}

// applyEnvOverrides applies the documented environment variables on top of
// the merged configuration. Env always wins.
func applyEnvOverrides(cfg *Config) {
	setStr := func(key string, target *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}

	if v, ok := os.LookupEnv("LLM_PROVIDER"); ok && v != "" {
		cfg.LLM.Provider = LLMProvider(strings.ToLower(v))
	}
	setStr("OPENAI_API_KEY", &cfg.LLM.OpenAI.APIKey)
	setStr("OPENAI_MODEL", &cfg.LLM.OpenAI.Model)
	setStr("OPENAI_BASE_URL", &cfg.LLM.OpenAI.BaseURL)
	setStr("GOOGLE_API_KEY", &cfg.LLM.Gemini.APIKey)
	setStr("GEMINI_MODEL", &cfg.LLM.Gemini.Model)
	setStr("GEMINI_BASE_URL", &cfg.LLM.Gemini.BaseURL)
	setStr("OLLAMA_BASE_URL", &cfg.LLM.Ollama.BaseURL)
	setStr("OLLAMA_MODEL", &cfg.LLM.Ollama.Model)

	if v, ok := os.LookupEnv("INCIDENT_CONNECTOR_TYPE"); ok && v != "" {
		cfg.IncidentConnector.Type = ConnectorType(strings.ToLower(v))
	}
	setStr("SERVICENOW_INSTANCE_URL", &cfg.IncidentConnector.ServiceNow.InstanceURL)
	setStr("SERVICENOW_USERNAME", &cfg.IncidentConnector.ServiceNow.Username)
	setStr("SERVICENOW_PASSWORD", &cfg.IncidentConnector.ServiceNow.Password)
	setStr("JIRA_BASE_URL", &cfg.IncidentConnector.Jira.BaseURL)
	setStr("JIRA_EMAIL", &cfg.IncidentConnector.Jira.Email)
	setStr("JIRA_API_TOKEN", &cfg.IncidentConnector.Jira.APIToken)
	setStr("JIRA_PROJECT", &cfg.IncidentConnector.Jira.Project)

	if v, ok := os.LookupEnv("KNOWLEDGE_BASE_SOURCE"); ok && v != "" {
		cfg.KnowledgeBase.Source = KnowledgeBaseSource(strings.ToLower(v))
	}
	setStr("KB_CSV_PATH", &cfg.KnowledgeBase.Mock.CSVPath)
	setStr("KB_DOCS_FOLDER", &cfg.KnowledgeBase.Mock.DocsFolder)
	setStr("CONFLUENCE_BASE_URL", &cfg.KnowledgeBase.Confluence.BaseURL)
	setStr("CONFLUENCE_USERNAME", &cfg.KnowledgeBase.Confluence.Username)
	setStr("CONFLUENCE_API_TOKEN", &cfg.KnowledgeBase.Confluence.APIToken)
	setStr("CONFLUENCE_SPACE_KEY", &cfg.KnowledgeBase.Confluence.SpaceKey)

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = LogLevel(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv("ENABLE_TRACING"); ok && v != "" {
		cfg.Logging.EnableTracing = v == "true" || v == "1"
	}
	setStr("LOG_FILE", &cfg.Logging.File)
}
