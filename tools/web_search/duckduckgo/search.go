package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/mohammad-safakhou/deepresearch/tools/web_search/models"
	"github.com/mohammad-safakhou/deepresearch/utils"
)

// Search uses the DuckDuckGo instant-answer API, which needs no API key.
type Search struct{}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	url := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json", utils.UrlQuery(q))
	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var raw struct {
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for _, t := range raw.RelatedTopics {
		if len(out) >= k {
			break
		}
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		title := t.Text
		if idx := strings.Index(title, " - "); idx > 0 {
			title = title[:idx]
		}
		out = append(out, models.Result{
			Title:      title,
			URL:        t.FirstURL,
			Snippet:    t.Text,
			Source:     utils.Domain(t.FirstURL),
			SourceIcon: utils.SourceIcon(t.FirstURL),
		})
	}
	return out, nil
}
