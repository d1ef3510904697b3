package models

import "time"

// NewsArticle is one market-news headline shown in the dashboard side panel.
type NewsArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}
