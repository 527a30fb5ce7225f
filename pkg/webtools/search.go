package webtools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
)

const defaultSearchLimit = 10

// SearchResult is one normalized search hit, independent of the engine
// that produced it.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// duckduckgoResponse covers the instant answer fields we consume.
type duckduckgoResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
		Topics   []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"Topics"`
	} `json:"RelatedTopics"`
}

// Search queries the configured search engine and normalizes its hits.
func (h *Handler) Search(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	query, err := call.RequiredString("query")
	if err != nil {
		return nil, err
	}
	engine := call.StringParam("engine", "duckduckgo")
	if engine != "duckduckgo" {
		return nil, dispatcher.Validationf("unsupported search engine %q", engine)
	}
	limit := int(call.NumberParam("limit", defaultSearchLimit))
	if limit <= 0 || limit > 25 {
		limit = defaultSearchLimit
	}

	endpoint := h.cfg.SearchBaseURL + "/?" + url.Values{
		"q":       {query},
		"format":  {"json"},
		"no_html": {"1"},
	}.Encode()

	var body duckduckgoResponse
	if err := h.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, limit)
	if body.AbstractText != "" {
		results = append(results, SearchResult{
			Title:       body.Heading,
			URL:         body.AbstractURL,
			Description: body.AbstractText,
			Source:      engine,
		})
	}
	for _, topic := range body.RelatedTopics {
		if len(results) >= limit {
			break
		}
		if topic.Text != "" && topic.FirstURL != "" {
			results = append(results, SearchResult{
				Title:       topic.Text,
				URL:         topic.FirstURL,
				Description: topic.Text,
				Source:      engine,
			})
			continue
		}
		// topic groups nest one level deep
		for _, sub := range topic.Topics {
			if len(results) >= limit {
				break
			}
			if sub.Text == "" || sub.FirstURL == "" {
				continue
			}
			results = append(results, SearchResult{
				Title:       sub.Text,
				URL:         sub.FirstURL,
				Description: sub.Text,
				Source:      engine,
			})
		}
	}

	return map[string]interface{}{
		"query":   query,
		"engine":  engine,
		"results": results,
		"count":   len(results),
	}, nil
}

// getJSON fetches and decodes a JSON upstream response. Network and
// upstream failures surface as API errors carrying the upstream detail.
func (h *Handler) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mcp-registry/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return dispatcher.APIErrorf("upstream request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dispatcher.APIErrorf("upstream returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dispatcher.APIErrorf("failed to decode upstream response: %v", err)
	}
	return nil
}
