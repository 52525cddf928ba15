package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	fetchTimeoutSeconds = 30
	maxFetchBodyBytes   = 2 << 20 // 2MB cap on downloaded HTML
	maxExtractChars     = 4000
)

// WebFetchTool downloads a page and extracts its readable text, for
// following up on web_search results.
type WebFetchTool struct {
	client *http.Client
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{
		client: &http.Client{Timeout: fetchTimeoutSeconds * time.Second},
	}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }

func (t *WebFetchTool) Description() string {
	return "Fetch a web page and return its text content. Use after web_search to read a specific result."
}

func (t *WebFetchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Absolute http(s) URL of the page to fetch.",
			},
		},
		"required": []string{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return ErrorResult("url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ErrorResult(fmt.Sprintf("invalid URL %q: must be http or https", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ErrorResult(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("User-Agent", webSearchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return ErrorResult(fmt.Sprintf("fetch %s: %v", rawURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrorResult(fmt.Sprintf("fetch %s: HTTP %d", rawURL, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodyBytes))
	if err != nil {
		return ErrorResult(fmt.Sprintf("read %s: %v", rawURL, err))
	}

	text := extractPageText(string(body))
	if text == "" {
		return NewResult(fmt.Sprintf("Page %s contained no extractable text.", rawURL))
	}
	if len(text) > maxExtractChars {
		text = text[:maxExtractChars] + "\n[truncated]"
	}
	return NewResult(fmt.Sprintf("Content of %s:\n\n%s", rawURL, text))
}

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	blockBreakRe  = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|br)>|<br\s*/?>`)
	multiSpaceRe  = regexp.MustCompile(`[ \t]+`)
	multiBreakRe  = regexp.MustCompile(`\n{3,}`)
)

// extractPageText reduces HTML to plain text: scripts and styles removed,
// block elements become line breaks, remaining tags stripped.
func extractPageText(html string) string {
	s := scriptBlockRe.ReplaceAllString(html, "")
	s = styleBlockRe.ReplaceAllString(s, "")
	s = blockBreakRe.ReplaceAllString(s, "\n")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = multiSpaceRe.ReplaceAllString(s, " ")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	out := strings.Join(lines, "\n")
	return multiBreakRe.ReplaceAllString(out, "\n\n")
}
