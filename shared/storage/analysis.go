package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"insight-stack/internal/models"
)

// InsertKeywordAnalysis appends one keyword's evaluation of one video.
// Rows are immutable; callers dedup via HasKeywordAnalysis.
func (s *Store) InsertKeywordAnalysis(ctx context.Context, analysis *models.Analysis) error {
	if analysis == nil || analysis.VideoID == "" {
		return errors.New("analysis video id is required")
	}
	insightsJSON, err := encodeList(analysis.KeyInsights)
	if err != nil {
		return err
	}
	entitiesJSON, err := encodeList(analysis.MentionedEntities)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (
            video_id, keyword_id, summary, sentiment_score, importance_score,
            key_insights_json, mentioned_entities_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.VideoID,
		analysis.KeywordID,
		analysis.Summary,
		analysis.SentimentScore,
		analysis.ImportanceScore,
		insightsJSON,
		entitiesJSON,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// HasKeywordAnalysis reports whether a (video, keyword) analysis row exists.
func (s *Store) HasKeywordAnalysis(ctx context.Context, videoID string, keywordID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM analyses WHERE video_id = ? AND keyword_id = ?`,
		videoID, keywordID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check analysis: %w", err)
	}
	return count > 0, nil
}

// AnalysesBetween returns keyword analyses created within [from, to], optionally
// filtered to the given keyword texts, newest first.
func (s *Store) AnalysesBetween(ctx context.Context, from, to time.Time, keywords []string) ([]*models.Analysis, error) {
	query := `SELECT a.id, a.video_id, a.keyword_id, k.keyword, a.summary,
                     a.sentiment_score, a.importance_score,
                     a.key_insights_json, a.mentioned_entities_json, a.created_at
              FROM analyses a
              JOIN keywords k ON k.id = a.keyword_id
              WHERE a.created_at >= ? AND a.created_at <= ?`
	args := []any{formatTime(from), formatTime(to)}

	if len(keywords) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keywords)), ",")
		query += ` AND k.keyword IN (` + placeholders + `)`
		for _, kw := range keywords {
			args = append(args, kw)
		}
	}
	query += ` ORDER BY a.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.Analysis
	for rows.Next() {
		var (
			analysis    models.Analysis
			insightsRaw string
			entitiesRaw string
			createdRaw  string
		)
		if err := rows.Scan(
			&analysis.ID,
			&analysis.VideoID,
			&analysis.KeywordID,
			&analysis.Keyword,
			&analysis.Summary,
			&analysis.SentimentScore,
			&analysis.ImportanceScore,
			&insightsRaw,
			&entitiesRaw,
			&createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		analysis.KeyInsights = decodeList(insightsRaw)
		analysis.MentionedEntities = decodeList(entitiesRaw)
		if t, err := parseTimeString(createdRaw); err == nil {
			analysis.CreatedAt = t
		}
		analyses = append(analyses, &analysis)
	}
	return analyses, rows.Err()
}

// CachedAnalysis returns the stored rich analysis for a video when the cache
// index holds the same content-addressed key, bumping the access bookkeeping.
// A missing row or a key mismatch (transcript changed) is a miss, reported as
// (nil, nil).
func (s *Store) CachedAnalysis(ctx context.Context, videoID, cacheKey string) (*models.AnalysisResult, error) {
	var storedKey string
	err := s.db.QueryRowContext(ctx,
		`SELECT cache_key FROM analysis_cache WHERE video_id = ?`, videoID).Scan(&storedKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup cache index: %w", err)
	}
	if storedKey != cacheKey {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT summary, sentiment_score, importance_score, key_insights_json,
                mentioned_entities_json, topics_json, market_outlook, action_items_json
         FROM video_analyses WHERE video_id = ?`, videoID)

	var (
		result      models.AnalysisResult
		insightsRaw string
		entitiesRaw string
		topicsRaw   string
		actionsRaw  string
	)
	err = row.Scan(
		&result.Summary,
		&result.SentimentScore,
		&result.ImportanceScore,
		&insightsRaw,
		&entitiesRaw,
		&topicsRaw,
		&result.MarketOutlook,
		&actionsRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Cache row without an analysis row violates the store invariant;
		// treat as a miss so the analyzer repairs it.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cached analysis: %w", err)
	}
	result.KeyInsights = decodeList(insightsRaw)
	result.MentionedEntities = decodeList(entitiesRaw)
	result.Topics = decodeList(topicsRaw)
	result.ActionItems = decodeList(actionsRaw)

	_, err = s.db.ExecContext(ctx,
		`UPDATE analysis_cache SET last_accessed = ?, access_count = access_count + 1 WHERE video_id = ?`,
		formatTime(time.Now()), videoID)
	if err != nil {
		return nil, fmt.Errorf("touch cache index: %w", err)
	}
	return &result, nil
}

// SaveAnalysis persists a rich analysis result and its cache-index row in one
// transaction. The upsert is keyed by video id so concurrent analyses of the
// same video cannot both win the cache write.
func (s *Store) SaveAnalysis(ctx context.Context, videoID string, result *models.AnalysisResult, cacheKey, modelVersion string) error {
	if videoID == "" {
		return errors.New("video id is required")
	}
	if result == nil {
		return errors.New("analysis result is required")
	}

	insightsJSON, err := encodeList(result.KeyInsights)
	if err != nil {
		return err
	}
	entitiesJSON, err := encodeList(result.MentionedEntities)
	if err != nil {
		return err
	}
	topicsJSON, err := encodeList(result.Topics)
	if err != nil {
		return err
	}
	actionsJSON, err := encodeList(result.ActionItems)
	if err != nil {
		return err
	}

	now := formatTime(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin analysis tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO video_analyses (
            video_id, summary, sentiment_score, importance_score,
            key_insights_json, mentioned_entities_json, topics_json,
            market_outlook, action_items_json, model_version, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(video_id) DO UPDATE SET
            summary = excluded.summary,
            sentiment_score = excluded.sentiment_score,
            importance_score = excluded.importance_score,
            key_insights_json = excluded.key_insights_json,
            mentioned_entities_json = excluded.mentioned_entities_json,
            topics_json = excluded.topics_json,
            market_outlook = excluded.market_outlook,
            action_items_json = excluded.action_items_json,
            model_version = excluded.model_version,
            updated_at = excluded.updated_at`,
		videoID,
		result.Summary,
		result.SentimentScore,
		result.ImportanceScore,
		insightsJSON,
		entitiesJSON,
		topicsJSON,
		result.MarketOutlook,
		actionsJSON,
		modelVersion,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert video analysis: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_cache (
            video_id, cache_key, model_version, last_accessed, access_count, created_at
        ) VALUES (?, ?, ?, ?, 0, ?)
        ON CONFLICT(video_id) DO UPDATE SET
            cache_key = excluded.cache_key,
            model_version = excluded.model_version,
            last_accessed = excluded.last_accessed`,
		videoID,
		cacheKey,
		modelVersion,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert cache index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit analysis: %w", err)
	}
	return nil
}

// CacheEntry returns the cache-index row for a video, or nil when absent.
func (s *Store) CacheEntry(ctx context.Context, videoID string) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, cache_key, model_version, last_accessed, access_count, created_at
         FROM analysis_cache WHERE video_id = ?`, videoID)

	var (
		entry       models.CacheEntry
		accessedRaw string
		createdRaw  string
	)
	err := row.Scan(&entry.VideoID, &entry.CacheKey, &entry.ModelVersion, &accessedRaw, &entry.AccessCount, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	if t, err := parseTimeString(accessedRaw); err == nil {
		entry.LastAccessed = t
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = t
	}
	return &entry, nil
}

// Stats summarizes store contents for status reporting.
func (s *Store) Stats(ctx context.Context) (*models.CacheStats, error) {
	stats := &models.CacheStats{}
	queries := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(1) FROM videos`, &stats.TotalVideos},
		{`SELECT COUNT(1) FROM video_analyses`, &stats.CachedAnalyses},
		{`SELECT COUNT(1) FROM transcripts`, &stats.TotalTranscripts},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("store stats: %w", err)
		}
	}
	if stats.TotalVideos > 0 {
		stats.CacheHitRate = float64(stats.CachedAnalyses) / float64(stats.TotalVideos) * 100
	}
	return stats, nil
}
