package models

import "time"

type Keyword struct {
	ID        int64     `json:"id"`
	Keyword   string    `json:"keyword"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisResult is the rich single-record-per-video analysis produced by the
// AI analyzer. Keyword-scoped Analysis rows are derived from it.
type AnalysisResult struct {
	Summary           string   `json:"summary"`
	KeyInsights       []string `json:"key_insights"`
	SentimentScore    float64  `json:"sentiment_score"`
	ImportanceScore   float64  `json:"importance_score"`
	MentionedEntities []string `json:"mentioned_entities"`
	Topics            []string `json:"topics"`
	MarketOutlook     string   `json:"market_outlook"`
	ActionItems       []string `json:"action_items"`
}

// Analysis is one keyword's evaluation of one video. Rows are immutable once
// written; re-analysis appends rather than updates.
type Analysis struct {
	ID                int64     `json:"id"`
	VideoID           string    `json:"video_id"`
	KeywordID         int64     `json:"keyword_id"`
	Keyword           string    `json:"keyword"`
	Summary           string    `json:"summary"`
	SentimentScore    float64   `json:"sentiment_score"`
	ImportanceScore   float64   `json:"importance_score"`
	KeyInsights       []string  `json:"key_insights"`
	MentionedEntities []string  `json:"mentioned_entities"`
	CreatedAt         time.Time `json:"created_at"`
}

// CacheEntry indexes a stored rich analysis by a content-addressed key.
// The key changes exactly when the transcript text changes.
type CacheEntry struct {
	VideoID      string    `json:"video_id"`
	CacheKey     string    `json:"cache_key"`
	ModelVersion string    `json:"model_version"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int64     `json:"access_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// CacheStats summarizes store contents for status reporting.
type CacheStats struct {
	TotalVideos      int64   `json:"total_videos"`
	CachedAnalyses   int64   `json:"cached_analyses"`
	TotalTranscripts int64   `json:"total_transcripts"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
}
