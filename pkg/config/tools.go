package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ToolConfig bundles the externally injected settings of the tool
// execution core: sandbox location, upstream endpoints, the HTTP fetch
// whitelist and the registry cache TTL.
type ToolConfig struct {
	SandboxRoot       string
	FetchWhitelist    []string
	SearchBaseURL     string
	TrendsHNBaseURL   string
	TrendsRedditURL   string
	TrendsGithubURL   string
	RegistryCacheTTL  time.Duration
	CallTimeout       time.Duration
	CodeExecTimeout   time.Duration
	HTTPFetchTimeout  time.Duration
	NodeBinary        string
	PythonBinary      string
}

// SetupToolEnv configures tool-core environment variables
func SetupToolEnv() {
	// Workspace sandbox
	bindEnvVariable("SANDBOX_ROOT", "/var/lib/mcp-registry/workspaces")
	bindEnvVariable("NODE_BINARY", "node")
	bindEnvVariable("PYTHON_BINARY", "python3")

	// Chat scope upstreams
	bindEnvVariable("FETCH_WHITELIST", "api.github.com api.openai.com wikipedia.org api.weather.gov newsapi.org jsonplaceholder.typicode.com")
	bindEnvVariable("SEARCH_BASE_URL", "https://api.duckduckgo.com")
	bindEnvVariable("TRENDS_HN_BASE_URL", "https://hn.algolia.com/api/v1")
	bindEnvVariable("TRENDS_REDDIT_BASE_URL", "https://www.reddit.com")
	bindEnvVariable("TRENDS_GITHUB_BASE_URL", "https://api.github.com")

	// Timeouts and caching
	bindEnvVariable("REGISTRY_CACHE_TTL", "5m")
	bindEnvVariable("TOOL_CALL_TIMEOUT", "30s")
	bindEnvVariable("CODE_EXECUTION_TIMEOUT", "30s")
	bindEnvVariable("HTTP_FETCH_TIMEOUT", "15s")
}

// GetToolConfig returns the tool core configuration from viper
func GetToolConfig() ToolConfig {
	return ToolConfig{
		SandboxRoot:      viper.GetString("SANDBOX_ROOT"),
		FetchWhitelist:   strings.Fields(viper.GetString("FETCH_WHITELIST")),
		SearchBaseURL:    viper.GetString("SEARCH_BASE_URL"),
		TrendsHNBaseURL:  viper.GetString("TRENDS_HN_BASE_URL"),
		TrendsRedditURL:  viper.GetString("TRENDS_REDDIT_BASE_URL"),
		TrendsGithubURL:  viper.GetString("TRENDS_GITHUB_BASE_URL"),
		RegistryCacheTTL: viper.GetDuration("REGISTRY_CACHE_TTL"),
		CallTimeout:      viper.GetDuration("TOOL_CALL_TIMEOUT"),
		CodeExecTimeout:  viper.GetDuration("CODE_EXECUTION_TIMEOUT"),
		HTTPFetchTimeout: viper.GetDuration("HTTP_FETCH_TIMEOUT"),
		NodeBinary:       viper.GetString("NODE_BINARY"),
		PythonBinary:     viper.GetString("PYTHON_BINARY"),
	}
}
