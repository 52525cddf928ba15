package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const serpAPIEndpoint = "https://serpapi.com/search"

// MarketPriceTool looks up current mandi rates for a crop via SerpAPI.
type MarketPriceTool struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewMarketPriceTool creates the mandi price tool. An empty key is
// allowed; executions then return an explanatory message.
func NewMarketPriceTool(apiKey string) *MarketPriceTool {
	return &MarketPriceTool{
		apiKey:   apiKey,
		endpoint: serpAPIEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *MarketPriceTool) Name() string { return "market_price" }

func (t *MarketPriceTool) Description() string {
	return "Get current market prices (mandi rates) for an agricultural crop in a given location."
}

func (t *MarketPriceTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"crop_name": map[string]interface{}{
				"type":        "string",
				"description": "The name of the agricultural crop, e.g. 'potato', 'tomato'.",
			},
			"location": map[string]interface{}{
				"type":        "string",
				"description": "The city or mandi name for the price query, e.g. 'Lucknow'.",
			},
		},
		"required": []string{"crop_name", "location"},
	}
}

func (t *MarketPriceTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	crop, _ := args["crop_name"].(string)
	location, _ := args["location"].(string)
	if crop == "" || location == "" {
		return ErrorResult("crop_name and location are required")
	}
	if t.apiKey == "" {
		return NewResult("Error: market price lookup is not configured. Please set the SerpAPI key.")
	}

	query := fmt.Sprintf("today's %s price in %s mandi", crop, location)

	q := url.Values{}
	q.Set("q", query)
	q.Set("api_key", t.apiKey)
	q.Set("engine", "google")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return ErrorResult("market price lookup failed to build request").WithError(err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return ErrorResult(fmt.Sprintf("market price lookup failed: %v", err)).WithError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ErrorResult("market price lookup failed reading response").WithError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrorResult(fmt.Sprintf("market price lookup HTTP %d", resp.StatusCode))
	}

	return NewResult(summarizeSerpResponse(body, query))
}

// summarizeSerpResponse pulls the answer box and top organic snippets
// out of a SerpAPI google search response.
func summarizeSerpResponse(body []byte, query string) string {
	var parsed struct {
		AnswerBox struct {
			Answer  string `json:"answer"`
			Snippet string `json:"snippet"`
		} `json:"answer_box"`
		OrganicResults []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Sprintf("No structured price data found for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for %q:\n", query)

	if parsed.AnswerBox.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n", parsed.AnswerBox.Answer)
	} else if parsed.AnswerBox.Snippet != "" {
		fmt.Fprintf(&b, "Answer: %s\n", parsed.AnswerBox.Snippet)
	}

	count := 0
	for _, r := range parsed.OrganicResults {
		if r.Snippet == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, r.Snippet)
		count++
		if count >= 3 {
			break
		}
	}

	if count == 0 && parsed.AnswerBox.Answer == "" && parsed.AnswerBox.Snippet == "" {
		return fmt.Sprintf("No price data found for %q.", query)
	}

	return b.String()
}
