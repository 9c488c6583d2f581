package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"insight-stack/internal/models"
)

// UpsertChannel creates a channel on first reference and updates it in place
// on re-discovery. Channels are never deleted.
func (s *Store) UpsertChannel(ctx context.Context, channel *models.Channel) error {
	if channel == nil || channel.ChannelID == "" {
		return errors.New("channel id is required")
	}
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (
            channel_id, channel_name, channel_url, description,
            subscriber_count, video_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(channel_id) DO UPDATE SET
            channel_name = excluded.channel_name,
            channel_url = excluded.channel_url,
            description = excluded.description,
            subscriber_count = excluded.subscriber_count,
            video_count = excluded.video_count,
            updated_at = excluded.updated_at`,
		channel.ChannelID,
		channel.ChannelName,
		channel.ChannelURL,
		channel.Description,
		channel.SubscriberCount,
		channel.VideoCount,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}
	return nil
}

// GetChannel returns the channel with the given external id, or nil when unknown.
func (s *Store) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT channel_id, channel_name, channel_url, description,
                subscriber_count, video_count, created_at, updated_at
         FROM channels WHERE channel_id = ?`, channelID)

	var (
		channel    models.Channel
		createdRaw string
		updatedRaw string
	)
	err := row.Scan(
		&channel.ChannelID,
		&channel.ChannelName,
		&channel.ChannelURL,
		&channel.Description,
		&channel.SubscriberCount,
		&channel.VideoCount,
		&createdRaw,
		&updatedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		channel.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		channel.UpdatedAt = t
	}
	return &channel, nil
}

// InsertVideo stores a video if its id is unseen. Dedup is by video id and
// first-seen wins: re-inserting an existing id is a no-op and reports
// created=false.
func (s *Store) InsertVideo(ctx context.Context, video *models.Video) (bool, error) {
	if video == nil || video.VideoID == "" {
		return false, errors.New("video id is required")
	}
	tagsJSON, err := encodeList(video.Tags)
	if err != nil {
		return false, err
	}
	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO videos (
            video_id, channel_id, title, description, published_at, duration,
            view_count, like_count, comment_count, video_url, tags_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.VideoID,
		video.ChannelID,
		video.Title,
		video.Description,
		formatTime(video.PublishedAt),
		video.Duration,
		video.ViewCount,
		video.LikeCount,
		video.CommentCount,
		video.URL,
		tagsJSON,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetVideo returns the video with the given external id, or nil when unknown.
func (s *Store) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, channel_id, title, description, published_at, duration,
                view_count, like_count, comment_count, video_url, tags_json, created_at, updated_at
         FROM videos WHERE video_id = ?`, videoID)

	var (
		video        models.Video
		publishedRaw sql.NullString
		tagsRaw      string
		createdRaw   string
		updatedRaw   string
	)
	err := row.Scan(
		&video.VideoID,
		&video.ChannelID,
		&video.Title,
		&video.Description,
		&publishedRaw,
		&video.Duration,
		&video.ViewCount,
		&video.LikeCount,
		&video.CommentCount,
		&video.URL,
		&tagsRaw,
		&createdRaw,
		&updatedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	video.Tags = decodeList(tagsRaw)
	if publishedRaw.Valid {
		if t, err := parseTimeString(publishedRaw.String); err == nil {
			video.PublishedAt = t
		}
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		video.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		video.UpdatedAt = t
	}
	return &video, nil
}

// CountVideos returns the number of stored videos.
func (s *Store) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM videos`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return count, nil
}

// SaveTranscript creates or overwrites the transcript for a video.
func (s *Store) SaveTranscript(ctx context.Context, transcript *models.Transcript) error {
	if transcript == nil || transcript.VideoID == "" {
		return errors.New("transcript video id is required")
	}
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (
            video_id, transcript_text, language, is_auto_generated,
            transcript_length, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(video_id) DO UPDATE SET
            transcript_text = excluded.transcript_text,
            language = excluded.language,
            is_auto_generated = excluded.is_auto_generated,
            transcript_length = excluded.transcript_length,
            updated_at = excluded.updated_at`,
		transcript.VideoID,
		transcript.Text,
		transcript.Language,
		boolToInt(transcript.AutoGenerated),
		len(transcript.Text),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// GetTranscript returns the transcript for a video, or nil when none is stored.
func (s *Store) GetTranscript(ctx context.Context, videoID string) (*models.Transcript, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, transcript_text, language, is_auto_generated,
                transcript_length, created_at, updated_at
         FROM transcripts WHERE video_id = ?`, videoID)

	var (
		transcript models.Transcript
		autoInt    int
		createdRaw string
		updatedRaw string
	)
	err := row.Scan(
		&transcript.VideoID,
		&transcript.Text,
		&transcript.Language,
		&autoInt,
		&transcript.Length,
		&createdRaw,
		&updatedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	transcript.AutoGenerated = autoInt != 0
	if t, err := parseTimeString(createdRaw); err == nil {
		transcript.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		transcript.UpdatedAt = t
	}
	return &transcript, nil
}

// EnsureKeyword returns the keyword row for text, creating it with the given
// category when missing.
func (s *Store) EnsureKeyword(ctx context.Context, keyword, category string) (*models.Keyword, error) {
	if keyword == "" {
		return nil, errors.New("keyword is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO keywords (keyword, category, created_at) VALUES (?, ?, ?)`,
		keyword, category, formatTime(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("ensure keyword: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, category, created_at FROM keywords WHERE keyword = ?`, keyword)
	var (
		kw         models.Keyword
		createdRaw string
	)
	if err := row.Scan(&kw.ID, &kw.Keyword, &kw.Category, &createdRaw); err != nil {
		return nil, fmt.Errorf("get keyword: %w", err)
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		kw.CreatedAt = t
	}
	return &kw, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
