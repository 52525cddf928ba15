package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:            "0.0.0.0",
			Port:            18890,
			DebounceSeconds: 2,
			DedupeTTLMin:    20,
			DedupeMaxKeys:   5000,
		},
		Agent: AgentConfig{
			APIBase:           "https://api.groq.com/openai/v1",
			Model:             "llama-3.1-8b-instant",
			WhisperModel:      "whisper-large-v3",
			MaxTokens:         2048,
			Temperature:       0,
			MaxToolIterations: 5,
			WorkingLanguage:   "en-IN",
		},
		Sarvam: SarvamConfig{
			APIBase:    "https://api.sarvam.ai",
			TTSSpeaker: "meera",
			TTSModel:   "bulbul:v1",
		},
		Tools: ToolsConfig{
			DuckDuckGo:       DuckDuckGoConfig{Enabled: true, MaxResults: 5},
			DisasterRadiusKm: 50,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env are enough to run.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values; secrets are env-only.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	// Secrets
	envStr("AGRIBOT_GROQ_API_KEY", &c.Agent.APIKey)
	envStr("AGRIBOT_SARVAM_API_KEY", &c.Sarvam.APIKey)
	envStr("AGRIBOT_SERPAPI_API_KEY", &c.Tools.SerpAPIKey)
	envStr("AGRIBOT_OPENWEATHERMAP_API_KEY", &c.Tools.OpenWeatherMapKey)
	envStr("AGRIBOT_BRAVE_API_KEY", &c.Tools.Brave.APIKey)
	envStr("AGRIBOT_WPP_TOKEN", &c.WPPConnect.Token)

	// Channel endpoint
	envStr("AGRIBOT_WPP_BASE_URL", &c.WPPConnect.BaseURL)
	envStr("AGRIBOT_WPP_SESSION", &c.WPPConnect.Session)

	// Model overrides
	envStr("AGRIBOT_GROQ_API_BASE", &c.Agent.APIBase)
	envStr("AGRIBOT_MODEL", &c.Agent.Model)

	// Gateway host/port
	envStr("AGRIBOT_HOST", &c.Gateway.Host)
	if v := os.Getenv("AGRIBOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	// Debounce window (seconds). WAIT_TIME is the legacy name kept for
	// deployments migrating from the Python bot.
	for _, key := range []string{"AGRIBOT_WAIT_TIME", "WAIT_TIME"} {
		if v := os.Getenv(key); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				c.Gateway.DebounceSeconds = secs
				break
			}
		}
	}

	// Auto-enable Brave when a key is provided via env
	if c.Tools.Brave.APIKey != "" {
		c.Tools.Brave.Enabled = true
	}
}
