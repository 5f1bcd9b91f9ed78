package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

// Config is the root configuration for the crew runtime.
// Secrets (API keys) are NEVER read from the config file — env only.
type Config struct {
	Workspace string `json:"workspace,omitempty"`  // working directory (default: cwd)
	SkillsDir string `json:"skills_dir,omitempty"` // default: <workspace>/skills
	OutputDir string `json:"output_dir,omitempty"` // saved query results (default: <workspace>/output)

	Provider  ProviderConfig  `json:"provider,omitempty"`
	Search    SearchConfig    `json:"search,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Team      TeamConfig      `json:"team,omitempty"`
}

// ProviderConfig configures the LLM endpoint.
// APIKey comes from env API_KEY only.
type ProviderConfig struct {
	BaseURL      string  `json:"base_url,omitempty"` // overridden by env BASE_URL
	Model        string  `json:"model,omitempty"`    // overridden by env MODEL
	APIKey       string  `json:"-"`                  // from env API_KEY only
	MaxTokens    int     `json:"max_tokens,omitempty"`
	RateLimitRPS float64 `json:"rate_limit_rps,omitempty"` // 0 = unlimited
}

// SearchConfig configures the Tavily search client.
// APIKey comes from env TAVILY_API_KEY only.
type SearchConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"-"` // from env TAVILY_API_KEY only
}

// TelemetryConfig configures the OTLP trace exporter.
// Tracing is disabled when Endpoint is empty.
type TelemetryConfig struct {
	Endpoint string `json:"endpoint,omitempty"` // e.g. "localhost:4318"
	Insecure bool   `json:"insecure,omitempty"`
}

// TeamConfig tunes teammate scheduling.
type TeamConfig struct {
	Name            string `json:"name,omitempty"`              // default "crew"
	PollIntervalSec int    `json:"poll_interval_sec,omitempty"` // default 5
	IdleTimeoutSec  int    `json:"idle_timeout_sec,omitempty"`  // default 60
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		Workspace: cwd,
		Provider: ProviderConfig{
			MaxTokens: 8000,
		},
		Search: SearchConfig{
			BaseURL: "https://api.tavily.com",
		},
		Team: TeamConfig{
			Name:            "crew",
			PollIntervalSec: 5,
			IdleTimeoutSec:  60,
		},
	}
}

// Load reads the config file (JSON5), falling back to defaults when the file
// does not exist, then applies env overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDerived()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("MODEL"); v != "" {
		c.Provider.Model = v
	}
	c.Provider.APIKey = os.Getenv("API_KEY")
	c.Search.APIKey = os.Getenv("TAVILY_API_KEY")
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
}

func (c *Config) applyDerived() {
	if c.Workspace == "" {
		c.Workspace, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(c.Workspace); err == nil {
		c.Workspace = abs
	}
	if c.SkillsDir == "" {
		c.SkillsDir = filepath.Join(c.Workspace, "skills")
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.Workspace, "output")
	}
	if c.Team.Name == "" {
		c.Team.Name = "crew"
	}
	if c.Team.PollIntervalSec <= 0 {
		c.Team.PollIntervalSec = 5
	}
	if c.Team.IdleTimeoutSec <= 0 {
		c.Team.IdleTimeoutSec = 60
	}
	if c.Provider.MaxTokens <= 0 {
		c.Provider.MaxTokens = 8000
	}
}
