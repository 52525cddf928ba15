package config

// Config is the root configuration for the AgriBot webhook gateway.
type Config struct {
	Gateway    GatewayConfig    `json:"gateway"`
	Agent      AgentConfig      `json:"agent"`
	WPPConnect WPPConnectConfig `json:"wppconnect"`
	Sarvam     SarvamConfig     `json:"sarvam"`
	Tools      ToolsConfig      `json:"tools"`
}

// GatewayConfig configures the webhook HTTP surface and the inbound
// debounce window.
type GatewayConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	DebounceSeconds int    `json:"debounce_seconds"`          // quiet period before a sender's buffer flushes
	RateLimitRPM    int    `json:"rate_limit_rpm,omitempty"`  // per-sender webhook rate limit (0 = disabled)
	DedupeTTLMin    int    `json:"dedupe_ttl_min,omitempty"`  // message-ID dedupe window in minutes
	DedupeMaxKeys   int    `json:"dedupe_max_keys,omitempty"` // dedupe cache capacity
}

// AgentConfig configures the reasoning graph and its LLM backend.
// The Groq API is OpenAI-compatible; APIKey comes from env only.
type AgentConfig struct {
	APIKey            string  `json:"-"` // from env AGRIBOT_GROQ_API_KEY only
	APIBase           string  `json:"api_base,omitempty"`
	Model             string  `json:"model,omitempty"`
	WhisperModel      string  `json:"whisper_model,omitempty"` // transcription model for voice notes
	MaxTokens         int     `json:"max_tokens,omitempty"`
	Temperature       float64 `json:"temperature"`
	MaxToolIterations int     `json:"max_tool_iterations,omitempty"`
	WorkingLanguage   string  `json:"working_language,omitempty"` // language the graph reasons in
}

// WPPConnectConfig configures the outbound WhatsApp delivery channel.
// Token is a secret and comes from env only.
type WPPConnectConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Session string `json:"session,omitempty"`
	Token   string `json:"-"` // from env AGRIBOT_WPP_TOKEN only
}

// SarvamConfig configures the translation / detection / TTS collaborator.
type SarvamConfig struct {
	APIKey     string `json:"-"` // from env AGRIBOT_SARVAM_API_KEY only
	APIBase    string `json:"api_base,omitempty"`
	TTSSpeaker string `json:"tts_speaker,omitempty"`
	TTSModel   string `json:"tts_model,omitempty"`
}

// ToolsConfig configures the specialist data-fetching tools.
type ToolsConfig struct {
	SerpAPIKey        string           `json:"-"` // from env AGRIBOT_SERPAPI_API_KEY only
	OpenWeatherMapKey string           `json:"-"` // from env AGRIBOT_OPENWEATHERMAP_API_KEY only
	Brave             BraveConfig      `json:"brave,omitempty"`
	DuckDuckGo        DuckDuckGoConfig `json:"duckduckgo,omitempty"`
	DisasterRadiusKm  int              `json:"disaster_radius_km,omitempty"`
}

// BraveConfig configures the Brave web search provider.
type BraveConfig struct {
	APIKey     string `json:"-"` // from env AGRIBOT_BRAVE_API_KEY only
	Enabled    bool   `json:"enabled,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// DuckDuckGoConfig configures the DuckDuckGo fallback search provider.
type DuckDuckGoConfig struct {
	Enabled    bool `json:"enabled"`
	MaxResults int  `json:"max_results,omitempty"`
}

// HasLLM reports whether a reasoning backend is configured.
func (c *Config) HasLLM() bool {
	return c.Agent.APIKey != ""
}

// HasDelivery reports whether the WPPConnect channel is configured.
func (c *Config) HasDelivery() bool {
	return c.WPPConnect.BaseURL != "" && c.WPPConnect.Session != "" && c.WPPConnect.Token != ""
}
