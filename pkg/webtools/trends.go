package webtools

import (
	"context"
	"fmt"
	"net/url"

	"github.com/d4l-data4life/go-mcp-registry/pkg/dispatcher"
)

const defaultTrendsLimit = 10

// TrendItem is one normalized trending entry across all platforms.
type TrendItem struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Score  int    `json:"score"`
	Source string `json:"source"`
}

// GetTrends fetches trending items from one of the supported
// platforms. An empty upstream listing is a valid empty result, not an
// error.
func (h *Handler) GetTrends(ctx context.Context, call dispatcher.ToolCall) (interface{}, error) {
	platform, err := call.RequiredString("platform")
	if err != nil {
		return nil, err
	}
	limit := int(call.NumberParam("limit", defaultTrendsLimit))
	if limit <= 0 || limit > 50 {
		limit = defaultTrendsLimit
	}

	var items []TrendItem
	switch platform {
	case "hackernews":
		items, err = h.hackernewsTrends(ctx, limit)
	case "reddit":
		items, err = h.redditTrends(ctx, limit)
	case "github":
		items, err = h.githubTrends(ctx, limit)
	default:
		return nil, dispatcher.Validationf("unsupported platform %q (want hackernews, reddit or github)", platform)
	}
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"platform": platform,
		"items":    items,
		"count":    len(items),
	}, nil
}

func (h *Handler) hackernewsTrends(ctx context.Context, limit int) ([]TrendItem, error) {
	endpoint := h.cfg.TrendsHNBaseURL + "/search?" + url.Values{
		"tags":        {"front_page"},
		"hitsPerPage": {fmt.Sprint(limit)},
	}.Encode()

	var body struct {
		Hits []struct {
			Title    string `json:"title"`
			URL      string `json:"url"`
			ObjectID string `json:"objectID"`
			Points   int    `json:"points"`
		} `json:"hits"`
	}
	if err := h.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	items := make([]TrendItem, 0, len(body.Hits))
	for _, hit := range body.Hits {
		link := hit.URL
		if link == "" {
			// Ask HN and other self posts have no external URL
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		items = append(items, TrendItem{
			Title:  hit.Title,
			URL:    link,
			Score:  hit.Points,
			Source: "hackernews",
		})
	}
	return items, nil
}

func (h *Handler) redditTrends(ctx context.Context, limit int) ([]TrendItem, error) {
	endpoint := h.cfg.TrendsRedditURL + "/r/all/hot.json?" + url.Values{
		"limit": {fmt.Sprint(limit)},
	}.Encode()

	var body struct {
		Data struct {
			Children []struct {
				Data struct {
					Title     string `json:"title"`
					Permalink string `json:"permalink"`
					Score     int    `json:"score"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := h.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	items := make([]TrendItem, 0, len(body.Data.Children))
	for _, child := range body.Data.Children {
		items = append(items, TrendItem{
			Title:  child.Data.Title,
			URL:    h.cfg.TrendsRedditURL + child.Data.Permalink,
			Score:  child.Data.Score,
			Source: "reddit",
		})
	}
	return items, nil
}

func (h *Handler) githubTrends(ctx context.Context, limit int) ([]TrendItem, error) {
	endpoint := h.cfg.TrendsGithubURL + "/search/repositories?" + url.Values{
		"q":        {"stars:>1000"},
		"sort":     {"stars"},
		"order":    {"desc"},
		"per_page": {fmt.Sprint(limit)},
	}.Encode()

	var body struct {
		Items []struct {
			FullName    string `json:"full_name"`
			HTMLURL     string `json:"html_url"`
			Description string `json:"description"`
			Stars       int    `json:"stargazers_count"`
		} `json:"items"`
	}
	if err := h.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}

	items := make([]TrendItem, 0, len(body.Items))
	for _, repo := range body.Items {
		title := repo.FullName
		if repo.Description != "" {
			title = repo.FullName + ": " + repo.Description
		}
		items = append(items, TrendItem{
			Title:  title,
			URL:    repo.HTMLURL,
			Score:  repo.Stars,
			Source: "github",
		})
	}
	return items, nil
}
