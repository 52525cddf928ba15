package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextharvest/agribot/internal/agent"
	"github.com/nextharvest/agribot/internal/bus"
	"github.com/nextharvest/agribot/internal/config"
	"github.com/nextharvest/agribot/internal/pipeline"
	"github.com/nextharvest/agribot/internal/providers"
	"github.com/nextharvest/agribot/internal/sarvam"
	"github.com/nextharvest/agribot/internal/sessions"
	"github.com/nextharvest/agribot/internal/tools"
	"github.com/nextharvest/agribot/internal/webhook"
	"github.com/nextharvest/agribot/internal/wpp"
)

func runServe() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if !cfg.HasLLM() {
		slog.Warn("no Groq API key configured; reasoning and transcription will fail until AGRIBOT_GROQ_API_KEY is set")
	}
	if !cfg.HasDelivery() {
		slog.Warn("WPPConnect not fully configured; replies will fail until AGRIBOT_WPP_BASE_URL, AGRIBOT_WPP_SESSION, and AGRIBOT_WPP_TOKEN are set")
	}

	// Collaborators
	provider := providers.NewOpenAIProvider("groq", cfg.Agent.APIKey, cfg.Agent.APIBase, cfg.Agent.Model)
	transcriber := providers.NewWhisperTranscriber(cfg.Agent.APIKey, cfg.Agent.APIBase, cfg.Agent.WhisperModel, nil)
	translator := sarvam.NewClient(cfg.Sarvam.APIKey, cfg.Sarvam.APIBase, cfg.Sarvam.TTSSpeaker, cfg.Sarvam.TTSModel)
	delivery := wpp.New(cfg.WPPConnect.BaseURL, cfg.WPPConnect.Session, cfg.WPPConnect.Token)

	// Specialist tools
	toolsReg := tools.NewRegistry()
	toolsReg.Register(tools.NewMarketPriceTool(cfg.Tools.SerpAPIKey))
	toolsReg.Register(tools.NewWeatherTool(cfg.Tools.OpenWeatherMapKey))
	toolsReg.Register(tools.NewDisasterAlertsTool(cfg.Tools.DisasterRadiusKm))
	toolsReg.Register(tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveAPIKey:  cfg.Tools.Brave.APIKey,
		BraveEnabled: cfg.Tools.Brave.Enabled,
		DDGEnabled:   cfg.Tools.DuckDuckGo.Enabled,
	}))
	toolsReg.Register(tools.NewWebFetchTool())
	slog.Info("tools registered", "count", toolsReg.Len())

	// Reasoning graph with per-thread conversation memory
	runner := agent.NewRunner(agent.Config{
		Provider:      provider,
		Model:         cfg.Agent.Model,
		MaxIterations: cfg.Agent.MaxToolIterations,
		MaxTokens:     cfg.Agent.MaxTokens,
		Temperature:   cfg.Agent.Temperature,
		Tools:         toolsReg,
		Threads:       sessions.NewManager(),
	})

	// Event hub for WebSocket observers
	events := webhook.NewEventHub()

	pipe := pipeline.New(pipeline.Config{
		Translator:  translator,
		Reasoner:    runner,
		Deliverer:   delivery,
		Events:      events,
		WorkingLang: cfg.Agent.WorkingLanguage,
	})

	// Debouncer: the webhook pushes fragments, the pipeline consumes
	// merged messages after the quiet period.
	delay := time.Duration(cfg.Gateway.DebounceSeconds) * time.Second
	debouncer := bus.NewInboundDebouncer(delay, pipe.Process)
	defer debouncer.Stop()

	dedupe := bus.NewDedupeCache(
		time.Duration(cfg.Gateway.DedupeTTLMin)*time.Minute,
		cfg.Gateway.DedupeMaxKeys,
	)

	server := webhook.NewServer(webhook.ServerConfig{
		Host:         cfg.Gateway.Host,
		Port:         cfg.Gateway.Port,
		Debouncer:    debouncer,
		Transcriber:  transcriber,
		Deliverer:    delivery,
		Dedupe:       dedupe,
		RateLimitRPM: cfg.Gateway.RateLimitRPM,
		Events:       events,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("agribot starting", "version", Version,
		"debounce", delay, "model", cfg.Agent.Model,
		"working_language", cfg.Agent.WorkingLanguage)

	if err := server.Start(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}

	slog.Info("agribot stopped")
}
