package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// TavilyClient talks to the Tavily search API. The key travels in the
// request body, never in a URL.
type TavilyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewTavilyClient(baseURL, apiKey string) *TavilyClient {
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}
	return &TavilyClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Days        int    `json:"days,omitempty"`
	MaxResults  int    `json:"max_results"`
	IncludeAnswer bool `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func clampResults(n int) int {
	if n < 1 {
		return 5
	}
	if n > 10 {
		return 10
	}
	return n
}

func (c *TavilyClient) post(ctx context.Context, path string, req tavilyRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("TAVILY_API_KEY not set")
	}
	req.APIKey = c.apiKey
	req.IncludeAnswer = true

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tavily: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("tavily: decode response: %w", err)
	}
	return renderSearch(req.Query, &parsed), nil
}

func renderSearch(query string, resp *tavilyResponse) string {
	var b strings.Builder
	if resp.Answer != "" {
		b.WriteString("Answer: ")
		b.WriteString(resp.Answer)
		b.WriteString("\n\n")
	}
	if len(resp.Results) == 0 {
		b.WriteString("No results for: ")
		b.WriteString(query)
		return b.String()
	}
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Search runs a general web search.
func (c *TavilyClient) Search(ctx context.Context, query, depth string, maxResults int) (string, error) {
	return c.post(ctx, "/search", tavilyRequest{
		Query:       query,
		SearchDepth: depth,
		MaxResults:  clampResults(maxResults),
	})
}

// News searches recent news coverage.
func (c *TavilyClient) News(ctx context.Context, query string, days, maxResults int) (string, error) {
	if days <= 0 {
		days = 7
	}
	return c.post(ctx, "/search/news", tavilyRequest{
		Query:      query,
		Topic:      "news",
		Days:       days,
		MaxResults: clampResults(maxResults),
	})
}

// FactCheck is an advanced-depth search tuned for claim verification.
func (c *TavilyClient) FactCheck(ctx context.Context, claim string) (string, error) {
	return c.post(ctx, "/search", tavilyRequest{
		Query:       claim,
		SearchDepth: "advanced",
		MaxResults:  10,
	})
}

// SearchTool is the general tavily_search tool.
type SearchTool struct {
	client  *TavilyClient
	archive func(query, result string)
}

// NewSearchTool builds the search tool. archive, when non-nil, receives every
// successful result for persistence outside the conversation.
func NewSearchTool(client *TavilyClient, archive func(query, result string)) *SearchTool {
	return &SearchTool{client: client, archive: archive}
}

func (t *SearchTool) Name() string        { return "tavily_search" }
func (t *SearchTool) Description() string { return "Search the web" }
func (t *SearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Number of results (1-10)",
			},
			"search_depth": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"basic", "advanced"},
				"description": "Search depth",
			},
		},
		"required": []string{"query"},
	}
}

type searchArgs struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params searchArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Query, "query"); r != nil {
		return r
	}
	out, err := t.client.Search(ctx, params.Query, params.SearchDepth, params.MaxResults)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if t.archive != nil {
		t.archive(params.Query, out)
	}
	return NewResult(out)
}

// NewsTool is the tavily_news tool.
type NewsTool struct {
	client  *TavilyClient
	archive func(query, result string)
}

func NewNewsTool(client *TavilyClient, archive func(query, result string)) *NewsTool {
	return &NewsTool{client: client, archive: archive}
}

func (t *NewsTool) Name() string        { return "tavily_news" }
func (t *NewsTool) Description() string { return "Search recent news" }
func (t *NewsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "News query",
			},
			"days": map[string]interface{}{
				"type":        "integer",
				"description": "How many days back to search (default 7)",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Number of results (1-10)",
			},
		},
		"required": []string{"query"},
	}
}

type newsArgs struct {
	Query      string `json:"query"`
	Days       int    `json:"days"`
	MaxResults int    `json:"max_results"`
}

func (t *NewsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params newsArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Query, "query"); r != nil {
		return r
	}
	out, err := t.client.News(ctx, params.Query, params.Days, params.MaxResults)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if t.archive != nil {
		t.archive(params.Query, out)
	}
	return NewResult(out)
}

// FactCheckTool is the tavily_fact_check tool.
type FactCheckTool struct {
	client  *TavilyClient
	archive func(query, result string)
}

func NewFactCheckTool(client *TavilyClient, archive func(query, result string)) *FactCheckTool {
	return &FactCheckTool{client: client, archive: archive}
}

func (t *FactCheckTool) Name() string        { return "tavily_fact_check" }
func (t *FactCheckTool) Description() string { return "Verify a claim against web sources" }
func (t *FactCheckTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"claim": map[string]interface{}{
				"type":        "string",
				"description": "The claim to verify",
			},
		},
		"required": []string{"claim"},
	}
}

type factCheckArgs struct {
	Claim string `json:"claim"`
}

func (t *FactCheckTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	var params factCheckArgs
	if err := decodeArgs(args, &params); err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if r := requireString(params.Claim, "claim"); r != nil {
		return r
	}
	out, err := t.client.FactCheck(ctx, params.Claim)
	if err != nil {
		return ErrorResult(fmt.Sprintf("Error: %v", err)).WithError(err)
	}
	if t.archive != nil {
		t.archive(params.Claim, out)
	}
	return NewResult(out)
}
