package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const openWeatherMapEndpoint = "https://api.openweathermap.org/data/2.5/weather"

// WeatherTool fetches the current weather for a location from
// OpenWeatherMap.
type WeatherTool struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewWeatherTool creates the weather tool. An empty key is allowed;
// executions then return an explanatory message.
func NewWeatherTool(apiKey string) *WeatherTool {
	return &WeatherTool{
		apiKey:   apiKey,
		endpoint: openWeatherMapEndpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *WeatherTool) Name() string { return "weather_forecast" }

func (t *WeatherTool) Description() string {
	return "Fetch the current weather forecast for a specified location."
}

func (t *WeatherTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "The city and state for the forecast, e.g. 'Bhubaneswar, Odisha'.",
			},
		},
		"required": []string{"location"},
	}
}

func (t *WeatherTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	location, _ := args["location"].(string)
	if location == "" {
		return ErrorResult("location is required")
	}
	if t.apiKey == "" {
		return NewResult("Error: weather forecast is unavailable. The OpenWeatherMap key is not set.")
	}

	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", t.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return ErrorResult("weather lookup failed to build request").WithError(err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return ErrorResult(fmt.Sprintf("error fetching weather data for %s: %v", location, err)).WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrorResult(fmt.Sprintf("weather lookup for %s returned HTTP %d", location, resp.StatusCode))
	}

	var data struct {
		Name    string `json:"name"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return ErrorResult("weather lookup returned unreadable data").WithError(err)
	}

	condition := "unknown"
	if len(data.Weather) > 0 {
		condition = data.Weather[0].Description
	}

	forecast := fmt.Sprintf(
		"Weather forecast for %s:\n- Condition: %s\n- Temperature: %.1f°C (feels like %.1f°C)\n- Humidity: %d%%\n- Wind Speed: %.1f m/s\n",
		data.Name, condition, data.Main.Temp, data.Main.FeelsLike, data.Main.Humidity, data.Wind.Speed,
	)
	return NewResult(forecast)
}
