package models

// Result is a single ranked web search hit.
type Result struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet"`
	Source     string `json:"source"`
	SourceIcon string `json:"source_icon"`
}
