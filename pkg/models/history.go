package models

import "time"

// HistoryItem pairs an analyzed URL with the time of analysis and the
// result. Entries are keyed by URL: re-submitting the same URL returns the
// stored entry instead of re-querying the model.
type HistoryItem struct {
	URL       string         `json:"url"`
	Timestamp time.Time      `json:"timestamp"`
	Result    AnalysisResult `json:"result"`
}
