package models

import "time"

type Channel struct {
	ChannelID       string    `json:"channel_id"`
	ChannelName     string    `json:"channel_name"`
	ChannelURL      string    `json:"channel_url"`
	Description     string    `json:"description"`
	SubscriberCount int64     `json:"subscriber_count"`
	VideoCount      int64     `json:"video_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Video struct {
	VideoID      string    `json:"video_id"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at"`
	Duration     string    `json:"duration"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	URL          string    `json:"url"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transcript holds the resolved caption text for a video, one row per video id.
// Re-resolving a transcript overwrites the previous text.
type Transcript struct {
	VideoID       string    `json:"video_id"`
	Text          string    `json:"text"`
	Language      string    `json:"language"`
	AutoGenerated bool      `json:"auto_generated"`
	Length        int       `json:"length"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
