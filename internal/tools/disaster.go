package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NDMA's public CAP alert feed; address-wise lookup, no key required.
const ndmaAlertsEndpoint = "https://sachet.ndma.gov.in/cap_public_website/FetchAddressWiseAlerts"

// DisasterAlertsTool fetches active natural disaster alerts (floods,
// cyclones, heat waves) around a location from the NDMA feed.
type DisasterAlertsTool struct {
	endpoint string
	radiusKm int
	client   *http.Client
}

// NewDisasterAlertsTool creates the disaster alerts tool.
func NewDisasterAlertsTool(radiusKm int) *DisasterAlertsTool {
	if radiusKm <= 0 {
		radiusKm = 50
	}
	return &DisasterAlertsTool{
		endpoint: ndmaAlertsEndpoint,
		radiusKm: radiusKm,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *DisasterAlertsTool) Name() string { return "disaster_alerts" }

func (t *DisasterAlertsTool) Description() string {
	return "Fetch active natural disaster alerts (floods, cyclones, etc.) for a specific location in India."
}

func (t *DisasterAlertsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{
				"type":        "string",
				"description": "The location to check for alerts, e.g. 'Prayagraj, Uttar Pradesh'.",
			},
		},
		"required": []string{"location"},
	}
}

func (t *DisasterAlertsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	location, _ := args["location"].(string)
	if location == "" {
		return ErrorResult("location is required")
	}

	form := url.Values{}
	form.Set("address", location)
	form.Set("radius", fmt.Sprintf("%d", t.radiusKm))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return ErrorResult("disaster alert lookup failed to build request").WithError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return ErrorResult(fmt.Sprintf("unable to fetch disaster alerts for %s: %v", location, err)).WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrorResult(fmt.Sprintf("disaster alert lookup for %s returned HTTP %d", location, resp.StatusCode))
	}

	var alerts []struct {
		Event    string `json:"event"`
		Severity string `json:"severity"`
		Headline string `json:"headline"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&alerts); err != nil {
		return ErrorResult("disaster alert feed returned unreadable data").WithError(err)
	}

	if len(alerts) == 0 {
		return NewResult(fmt.Sprintf("No active disaster alerts found for %s.", location))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DISASTER ALERTS FOR %s:\n\n", strings.ToUpper(location))
	for i, a := range alerts {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- Event: %s\n", orNA(a.Event))
		fmt.Fprintf(&b, "  Severity: %s\n", orNA(a.Severity))
		fmt.Fprintf(&b, "  Headline: %s\n\n", orNA(a.Headline))
	}
	return NewResult(b.String())
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
