package trendwatcher

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"insight-stack/internal/models"
	"insight-stack/shared/ai"
	"insight-stack/shared/config"
	"insight-stack/shared/storage"
)

// VideoSource is the slice of the YouTube client the collector depends on.
type VideoSource interface {
	ChannelDetails(ctx context.Context, channelID string) (*models.Channel, error)
	ChannelVideos(ctx context.Context, channelID string, since time.Time, maxResults int64) ([]*models.Video, error)
	SearchVideos(ctx context.Context, query string, since time.Time, maxResults int64) ([]*models.Video, error)
}

// TranscriptResolver resolves caption text for a video, returning (nil, nil)
// when none exists.
type TranscriptResolver interface {
	Resolve(ctx context.Context, videoID string) (*models.Transcript, error)
}

// VideoAnalyzer produces the cached per-video analysis.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, req ai.AnalysisRequest) (*models.AnalysisResult, bool, error)
}

// RunSummary counts what one collection pass accomplished.
type RunSummary struct {
	ChannelsProcessed   int
	VideosCollected     int
	TranscriptsResolved int
	VideosAnalyzed      int
	CacheHits           int
	AnalysisRows        int
	Failures            int
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("%d channels, %d new videos, %d transcripts, %d analyzed (%d cached), %d keyword rows, %d failures",
		s.ChannelsProcessed, s.VideosCollected, s.TranscriptsResolved, s.VideosAnalyzed, s.CacheHits, s.AnalysisRows, s.Failures)
}

// Collector runs one ingestion pass: discover videos from configured channels
// and keyword searches, persist them, resolve transcripts, and analyze.
// Individual failures are logged and counted; only store-level errors abort
// a run.
type Collector struct {
	videos      VideoSource
	transcripts TranscriptResolver
	analyzer    VideoAnalyzer
	store       *storage.Store
	cfg         *config.CollectionConfig
}

func NewCollector(videos VideoSource, transcripts TranscriptResolver, analyzer VideoAnalyzer, store *storage.Store, cfg *config.CollectionConfig) *Collector {
	return &Collector{
		videos:      videos,
		transcripts: transcripts,
		analyzer:    analyzer,
		store:       store,
		cfg:         cfg,
	}
}

// pendingVideo tracks a discovered video and the keywords it should be
// evaluated against.
type pendingVideo struct {
	video    *models.Video
	keywords map[string]*models.Keyword
}

// Run executes one full collection pass. Re-running over the same window is
// safe: videos dedup by id with first-seen wins, and keyword analyses are
// skipped when a row already exists.
func (c *Collector) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{}
	since := time.Now().Add(-time.Duration(c.cfg.LookbackHours) * time.Hour)
	pending := make(map[string]*pendingVideo)

	keywordRows, err := c.ensureKeywords(ctx)
	if err != nil {
		return nil, err
	}

	c.collectChannels(ctx, since, pending, keywordRows, summary)
	c.collectSearches(ctx, since, pending, keywordRows, summary)

	for _, entry := range pending {
		if err := c.processVideo(ctx, entry, summary); err != nil {
			return nil, err
		}
	}

	log.Printf("Collection pass complete: %s", summary)
	return summary, nil
}

func (c *Collector) ensureKeywords(ctx context.Context) (map[string]*models.Keyword, error) {
	rows := make(map[string]*models.Keyword, len(c.cfg.Keywords))
	for _, keyword := range c.cfg.Keywords {
		row, err := c.store.EnsureKeyword(ctx, keyword, c.cfg.KeywordCategory)
		if err != nil {
			return nil, fmt.Errorf("ensure keyword %q: %w", keyword, err)
		}
		rows[keyword] = row
	}
	return rows, nil
}

func (c *Collector) collectChannels(ctx context.Context, since time.Time, pending map[string]*pendingVideo, keywordRows map[string]*models.Keyword, summary *RunSummary) {
	for _, channelID := range c.cfg.Channels {
		channel, err := c.videos.ChannelDetails(ctx, channelID)
		if err != nil {
			// Keep a stub row so the video foreign key holds and the
			// channel picks up real metadata on a later pass.
			log.Printf("⚠️ Failed to fetch channel %s: %v", channelID, err)
			summary.Failures++
			channel = &models.Channel{ChannelID: channelID, ChannelName: channelID}
		}
		if err := c.store.UpsertChannel(ctx, channel); err != nil {
			log.Printf("⚠️ Failed to store channel %s: %v", channelID, err)
			summary.Failures++
			continue
		}

		videos, err := c.videos.ChannelVideos(ctx, channelID, since, c.cfg.MaxVideosPerChannel)
		if err != nil {
			log.Printf("⚠️ Failed to list videos for channel %s: %v", channelID, err)
			summary.Failures++
			continue
		}
		summary.ChannelsProcessed++

		for _, video := range videos {
			if video.ChannelID == "" {
				video.ChannelID = channelID
			}
			// Channel uploads are matched against every configured keyword
			// that appears in their metadata.
			entry := c.addPending(pending, video)
			for keyword, row := range keywordRows {
				if videoMentions(video, keyword) {
					entry.keywords[keyword] = row
				}
			}
		}
	}
}

func (c *Collector) collectSearches(ctx context.Context, since time.Time, pending map[string]*pendingVideo, keywordRows map[string]*models.Keyword, summary *RunSummary) {
	for keyword, row := range keywordRows {
		videos, err := c.videos.SearchVideos(ctx, keyword, since, c.cfg.MaxVideosPerSearch)
		if err != nil {
			log.Printf("⚠️ Search failed for keyword %q: %v", keyword, err)
			summary.Failures++
			continue
		}

		for _, video := range videos {
			if err := c.ensureChannelRow(ctx, video); err != nil {
				log.Printf("⚠️ Failed to store channel for video %s: %v", video.VideoID, err)
				summary.Failures++
				continue
			}
			entry := c.addPending(pending, video)
			entry.keywords[keyword] = row
		}
	}
}

func (c *Collector) addPending(pending map[string]*pendingVideo, video *models.Video) *pendingVideo {
	if entry, ok := pending[video.VideoID]; ok {
		return entry
	}
	entry := &pendingVideo{video: video, keywords: make(map[string]*models.Keyword)}
	pending[video.VideoID] = entry
	return entry
}

// ensureChannelRow creates a stub channel row for search results whose
// channel is not in the configured list.
func (c *Collector) ensureChannelRow(ctx context.Context, video *models.Video) error {
	if video.ChannelID == "" {
		return fmt.Errorf("video %s has no channel id", video.VideoID)
	}
	existing, err := c.store.GetChannel(ctx, video.ChannelID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return c.store.UpsertChannel(ctx, &models.Channel{
		ChannelID:   video.ChannelID,
		ChannelName: video.ChannelTitle,
		ChannelURL:  fmt.Sprintf("https://www.youtube.com/channel/%s", video.ChannelID),
	})
}

func (c *Collector) processVideo(ctx context.Context, entry *pendingVideo, summary *RunSummary) error {
	video := entry.video

	created, err := c.store.InsertVideo(ctx, video)
	if err != nil {
		return fmt.Errorf("store video %s: %w", video.VideoID, err)
	}
	if created {
		summary.VideosCollected++
	}

	transcript, err := c.resolveTranscript(ctx, video.VideoID, summary)
	if err != nil {
		log.Printf("⚠️ Transcript resolution failed for %s: %v", video.VideoID, err)
		summary.Failures++
	}

	// Without captions the title and description still carry enough signal
	// for a coarse analysis.
	text := ""
	if transcript != nil {
		text = transcript.Text
	}
	if text == "" {
		text = strings.TrimSpace(video.Title + "\n\n" + video.Description)
	}

	keywords := make([]string, 0, len(entry.keywords))
	for keyword := range entry.keywords {
		keywords = append(keywords, keyword)
	}

	result, cached, err := c.analyzer.Analyze(ctx, ai.AnalysisRequest{
		VideoID:     video.VideoID,
		Title:       video.Title,
		ChannelName: video.ChannelTitle,
		Transcript:  text,
		Keywords:    keywords,
	})
	if err != nil {
		return fmt.Errorf("analyze video %s: %w", video.VideoID, err)
	}
	summary.VideosAnalyzed++
	if cached {
		summary.CacheHits++
	}

	for keyword, row := range entry.keywords {
		exists, err := c.store.HasKeywordAnalysis(ctx, video.VideoID, row.ID)
		if err != nil {
			return fmt.Errorf("check keyword analysis for %s: %w", video.VideoID, err)
		}
		if exists {
			continue
		}
		analysis := &models.Analysis{
			VideoID:           video.VideoID,
			KeywordID:         row.ID,
			Keyword:           keyword,
			Summary:           result.Summary,
			SentimentScore:    result.SentimentScore,
			ImportanceScore:   result.ImportanceScore,
			KeyInsights:       result.KeyInsights,
			MentionedEntities: result.MentionedEntities,
		}
		if err := c.store.InsertKeywordAnalysis(ctx, analysis); err != nil {
			return fmt.Errorf("store keyword analysis for %s: %w", video.VideoID, err)
		}
		summary.AnalysisRows++
	}
	return nil
}

// resolveTranscript returns the stored transcript when present, resolving and
// persisting it otherwise. A video without captions yields nil without error.
func (c *Collector) resolveTranscript(ctx context.Context, videoID string, summary *RunSummary) (*models.Transcript, error) {
	stored, err := c.store.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return stored, nil
	}

	resolved, err := c.transcripts.Resolve(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}

	if err := c.store.SaveTranscript(ctx, resolved); err != nil {
		return nil, err
	}
	summary.TranscriptsResolved++
	return resolved, nil
}

func videoMentions(video *models.Video, keyword string) bool {
	needle := strings.ToLower(keyword)
	if strings.Contains(strings.ToLower(video.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(video.Description), needle) {
		return true
	}
	for _, tag := range video.Tags {
		if strings.EqualFold(tag, keyword) {
			return true
		}
	}
	return false
}
