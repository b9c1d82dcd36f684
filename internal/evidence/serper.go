// Package evidence implements the search agent: the iterative
// query-generation loop, a Serper-compatible search transport, and a
// SQLite-backed cache so repeated facts don't re-spend paid search calls.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hurttlocker/safe-eval/internal/retry"
)

// NoResultMsg is the sentinel returned when a search yields no usable
// snippet, matching query_serper.py's NO_RESULT_MSG.
const NoResultMsg = "No good Google Search result was found"

const serperURL = "https://google.serper.dev"

// Searcher issues one search query and returns a single concatenated
// evidence string.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SerperClient calls the Serper.dev search API: gl/hl/num/tbs params,
// X-API-KEY auth, organic/answerBox/knowledgeGraph snippet assembly.
type SerperClient struct {
	APIKey     string
	GL         string // geolocation, default "us"
	HL         string // language, default "en"
	NumResults int    // top-k organic snippets, default 3
	TBS        string // time-based search filter, optional
	HTTPClient *http.Client
	Policy     retry.Policy
}

// NewSerperClient builds a SerperClient with sensible defaults: gl=us,
// hl=en, and 3 organic results per query.
func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		APIKey:     apiKey,
		GL:         "us",
		HL:         "en",
		NumResults: 3,
		HTTPClient: http.DefaultClient,
		Policy:     retry.SearchTransport(),
	}
}

type serperResponse struct {
	AnswerBox *struct {
		Answer             string `json:"answer"`
		Snippet            string `json:"snippet"`
		SnippetHighlighted any    `json:"snippetHighlighted"`
	} `json:"answerBox"`
	KnowledgeGraph *struct {
		Title       string            `json:"title"`
		Type        string            `json:"type"`
		Description string            `json:"description"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"knowledgeGraph"`
	Organic []struct {
		Snippet    string            `json:"snippet"`
		Attributes map[string]string `json:"attributes"`
	} `json:"organic"`
}

// Search issues query against the Serper search endpoint, retrying
// transport failures with full-jitter backoff, and returns the
// concatenated snippet string.
func (c *SerperClient) Search(ctx context.Context, query string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("evidence: SerperClient requires an API key")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("gl", c.GL)
	params.Set("hl", c.HL)
	params.Set("num", strconv.Itoa(c.NumResults))
	if c.TBS != "" {
		params.Set("tbs", c.TBS)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var result serperResponse
	err := retry.Do(ctx, c.Policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperURL+"/search", strings.NewReader(params.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("X-API-KEY", c.APIKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("serper API error (status %d)", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return "", err
	}

	return parseSnippets(result, c.NumResults), nil
}

// parseSnippets assembles the answerBox, then knowledgeGraph, then the
// first k organic snippets into a single space-joined string, falling back
// to NoResultMsg if nothing was found — matching _parse_snippets exactly.
func parseSnippets(r serperResponse, k int) string {
	var snippets []string

	if r.AnswerBox != nil {
		if r.AnswerBox.Answer != "" {
			snippets = append(snippets, r.AnswerBox.Answer)
		}
		if r.AnswerBox.Snippet != "" {
			snippets = append(snippets, strings.ReplaceAll(r.AnswerBox.Snippet, "\n", " "))
		}
		if s, ok := r.AnswerBox.SnippetHighlighted.(string); ok && s != "" {
			snippets = append(snippets, s)
		}
	}

	if r.KnowledgeGraph != nil {
		kg := r.KnowledgeGraph
		if kg.Type != "" {
			snippets = append(snippets, fmt.Sprintf("%s: %s.", kg.Title, kg.Type))
		}
		if kg.Description != "" {
			snippets = append(snippets, kg.Description)
		}
		for attr, val := range kg.Attributes {
			snippets = append(snippets, fmt.Sprintf("%s %s: %s.", kg.Title, attr, val))
		}
	}

	if k < 0 || k > len(r.Organic) {
		k = len(r.Organic)
	}
	for _, res := range r.Organic[:k] {
		if res.Snippet != "" {
			snippets = append(snippets, res.Snippet)
		}
		for attr, val := range res.Attributes {
			snippets = append(snippets, fmt.Sprintf("%s: %s.", attr, val))
		}
	}

	if len(snippets) == 0 {
		return NoResultMsg
	}
	return strings.Join(snippets, " ")
}
