package service

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

const duckDuckGoAPI = "https://api.duckduckgo.com/"

// DuckDuckGoSearcher implements WebSearcher against the DuckDuckGo Instant
// Answer API. Results are best-effort: a failed search returns an error the
// analyzer degrades around, never a hard failure of the analysis.
type DuckDuckGoSearcher struct {
	client *http.Client
}

// NewDuckDuckGoSearcher creates a DuckDuckGo-backed web searcher
func NewDuckDuckGoSearcher() *DuckDuckGoSearcher {
	return &DuckDuckGoSearcher{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Search returns up to maxResults result snippets formatted as readable text
func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string, maxResults int) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", duckDuckGoAPI+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API error: %d", resp.StatusCode)
	}

	var apiResp struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	var results []string
	if apiResp.AbstractText != "" {
		results = append(results, fmt.Sprintf("Title: %s\nSnippet: %s\nURL: %s",
			apiResp.Heading, apiResp.AbstractText, apiResp.AbstractURL))
	}
	for _, topic := range apiResp.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, fmt.Sprintf("Snippet: %s\nURL: %s", topic.Text, topic.FirstURL))
	}

	if len(results) == 0 {
		return "", fmt.Errorf("no external data found for '%s'", query)
	}

	return fmt.Sprintf("External search results for '%s':\n%s", query, strings.Join(results, "\n---\n")), nil
}
