package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nextharvest/agribot/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and collaborator health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("agribot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Gateway:")
	fmt.Printf("    %-18s %s:%d\n", "Listen:", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Printf("    %-18s %ds\n", "Debounce:", cfg.Gateway.DebounceSeconds)
	fmt.Printf("    %-18s %s\n", "Rate limit:", rpmStatus(cfg.Gateway.RateLimitRPM))

	fmt.Println()
	fmt.Println("  Collaborators:")
	fmt.Printf("    %-18s %s\n", "Groq LLM:", keyStatus(cfg.Agent.APIKey, "AGRIBOT_GROQ_API_KEY"))
	fmt.Printf("    %-18s %s (%s)\n", "Model:", cfg.Agent.Model, cfg.Agent.WhisperModel)
	fmt.Printf("    %-18s %s\n", "Sarvam:", keyStatus(cfg.Sarvam.APIKey, "AGRIBOT_SARVAM_API_KEY"))
	if cfg.HasDelivery() {
		fmt.Printf("    %-18s configured (%s, session %s)\n", "WPPConnect:", cfg.WPPConnect.BaseURL, cfg.WPPConnect.Session)
	} else {
		fmt.Printf("    %-18s NOT CONFIGURED (set AGRIBOT_WPP_BASE_URL, AGRIBOT_WPP_SESSION, AGRIBOT_WPP_TOKEN)\n", "WPPConnect:")
	}

	fmt.Println()
	fmt.Println("  Tools:")
	fmt.Printf("    %-18s %s\n", "Market prices:", keyStatus(cfg.Tools.SerpAPIKey, "AGRIBOT_SERPAPI_API_KEY"))
	fmt.Printf("    %-18s %s\n", "Weather:", keyStatus(cfg.Tools.OpenWeatherMapKey, "AGRIBOT_OPENWEATHERMAP_API_KEY"))
	fmt.Printf("    %-18s always available (public NDMA feed)\n", "Disaster alerts:")
	switch {
	case cfg.Tools.Brave.Enabled && cfg.Tools.Brave.APIKey != "":
		fmt.Printf("    %-18s brave (DuckDuckGo fallback: %v)\n", "Web search:", cfg.Tools.DuckDuckGo.Enabled)
	case cfg.Tools.DuckDuckGo.Enabled:
		fmt.Printf("    %-18s duckduckgo\n", "Web search:")
	default:
		fmt.Printf("    %-18s disabled\n", "Web search:")
	}
}

func keyStatus(key, envVar string) string {
	if key == "" {
		return fmt.Sprintf("NOT CONFIGURED (set %s)", envVar)
	}
	return "configured"
}

func rpmStatus(rpm int) string {
	if rpm <= 0 {
		return "disabled"
	}
	return fmt.Sprintf("%d rpm per sender", rpm)
}
