package models

import "time"

// TrendSummary aggregates many per-video analyses for a period into a single
// narrative plus statistics. Always populated; the aggregator falls back to a
// templated summary when the AI call fails.
type TrendSummary struct {
	OverallTrend     string   `json:"overall_trend"`
	KeyThemes        []string `json:"key_themes"`
	MarketSentiment  string   `json:"market_sentiment"`
	HotTopics        []string `json:"hot_topics"`
	ConsensusView    string   `json:"consensus_view"`
	ContrarianViews  []string `json:"contrarian_views"`
	RiskFactors      []string `json:"risk_factors"`
	Opportunities    []string `json:"opportunities"`
	Summary          string   `json:"summary"`
	AverageSentiment float64  `json:"average_sentiment"`
	AnalysisCount    int      `json:"analysis_count"`
	Period           string   `json:"period"`
}

// Report is a persisted trend summary. Write-once, append-only history.
type Report struct {
	ID              int64     `json:"id"`
	ReportType      string    `json:"report_type"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Summary         string    `json:"summary"`
	KeyTrends       []string  `json:"key_trends"`
	MarketSentiment string    `json:"market_sentiment"`
	RangeStart      time.Time `json:"range_start"`
	RangeEnd        time.Time `json:"range_end"`
	CreatedAt       time.Time `json:"created_at"`
}
