package models

// NewsHeadline is a single news item surfaced for a category: a
// title/source/URL triple. No uniqueness or ordering is guaranteed beyond
// what the model or feed returned.
type NewsHeadline struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// Article holds the extracted, readable content of a fetched page. It is
// the input handed to the analysis prompt, never returned to API clients
// directly.
type Article struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	SiteName    string `json:"siteName,omitempty"`
	Byline      string `json:"byline,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
	TextContent string `json:"textContent"`
	Length      int    `json:"length"`
	Truncated   bool   `json:"truncated,omitempty"`
}
