package trendwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"insight-stack/internal/models"
	"insight-stack/shared/ai"
	"insight-stack/shared/config"
	"insight-stack/shared/storage"
)

type fakeVideoSource struct {
	channels      map[string]*models.Channel
	channelVideos map[string][]*models.Video
	searchResults map[string][]*models.Video
	channelErr    error
	searchErr     error
}

func (f *fakeVideoSource) ChannelDetails(ctx context.Context, channelID string) (*models.Channel, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	channel, ok := f.channels[channelID]
	if !ok {
		return nil, errors.New("channel not found")
	}
	return channel, nil
}

func (f *fakeVideoSource) ChannelVideos(ctx context.Context, channelID string, since time.Time, maxResults int64) ([]*models.Video, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	return f.channelVideos[channelID], nil
}

func (f *fakeVideoSource) SearchVideos(ctx context.Context, query string, since time.Time, maxResults int64) ([]*models.Video, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[query], nil
}

type fakeResolver struct {
	transcripts map[string]*models.Transcript
	err         error
	calls       int
}

func (f *fakeResolver) Resolve(ctx context.Context, videoID string) (*models.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.transcripts[videoID], nil
}

type fakeAnalyzer struct {
	requests []ai.AnalysisRequest
	result   *models.AnalysisResult
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req ai.AnalysisRequest) (*models.AnalysisResult, bool, error) {
	f.requests = append(f.requests, req)
	result := f.result
	if result == nil {
		result = &models.AnalysisResult{Summary: "fake analysis", SentimentScore: 0.5}
	}
	return result, false, nil
}

func newCollectorStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testCollectionConfig() *config.CollectionConfig {
	return &config.CollectionConfig{
		Channels:            []string{"chan1"},
		Keywords:            []string{"stocks"},
		KeywordCategory:     "investment",
		LookbackHours:       24,
		MaxVideosPerChannel: 50,
		MaxVideosPerSearch:  30,
	}
}

func testVideoSource() *fakeVideoSource {
	return &fakeVideoSource{
		channels: map[string]*models.Channel{
			"chan1": {ChannelID: "chan1", ChannelName: "Invest Daily", SubscriberCount: 1000},
		},
		channelVideos: map[string][]*models.Video{
			"chan1": {
				{VideoID: "vid1", ChannelID: "chan1", ChannelTitle: "Invest Daily", Title: "Why stocks will rally", PublishedAt: time.Now()},
			},
		},
		searchResults: map[string][]*models.Video{
			"stocks": {
				{VideoID: "vid2", ChannelID: "chan2", ChannelTitle: "Other Channel", Title: "Market outlook", Description: "A look at the market", PublishedAt: time.Now()},
			},
		},
	}
}

func TestCollectorRun(t *testing.T) {
	store := newCollectorStore(t)
	resolver := &fakeResolver{
		transcripts: map[string]*models.Transcript{
			"vid1": {VideoID: "vid1", Text: "the full transcript", Language: "en", AutoGenerated: true},
		},
	}
	analyzer := &fakeAnalyzer{}
	collector := NewCollector(testVideoSource(), resolver, analyzer, store, testCollectionConfig())
	ctx := context.Background()

	summary, err := collector.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.ChannelsProcessed != 1 {
		t.Errorf("ChannelsProcessed = %d, expected 1", summary.ChannelsProcessed)
	}
	if summary.VideosCollected != 2 {
		t.Errorf("VideosCollected = %d, expected 2", summary.VideosCollected)
	}
	if summary.TranscriptsResolved != 1 {
		t.Errorf("TranscriptsResolved = %d, expected 1", summary.TranscriptsResolved)
	}
	if summary.VideosAnalyzed != 2 {
		t.Errorf("VideosAnalyzed = %d, expected 2", summary.VideosAnalyzed)
	}
	// vid1 mentions "stocks" in its title, vid2 came from the search.
	if summary.AnalysisRows != 2 {
		t.Errorf("AnalysisRows = %d, expected 2", summary.AnalysisRows)
	}
	if summary.Failures != 0 {
		t.Errorf("Failures = %d, expected 0", summary.Failures)
	}

	// Search results from unconfigured channels get a stub channel row.
	stub, err := store.GetChannel(ctx, "chan2")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if stub == nil || stub.ChannelName != "Other Channel" {
		t.Errorf("Expected stub channel for chan2, got %+v", stub)
	}

	transcript, err := store.GetTranscript(ctx, "vid1")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if transcript == nil || transcript.Text != "the full transcript" {
		t.Errorf("Transcript not persisted: %+v", transcript)
	}

	// vid2 has no captions; the analyzer gets title and description instead.
	for _, req := range analyzer.requests {
		switch req.VideoID {
		case "vid1":
			if req.Transcript != "the full transcript" {
				t.Errorf("vid1 analyzed with %q", req.Transcript)
			}
		case "vid2":
			if !strings.Contains(req.Transcript, "Market outlook") || !strings.Contains(req.Transcript, "A look at the market") {
				t.Errorf("vid2 fallback text missing metadata: %q", req.Transcript)
			}
		}
	}
}

func TestCollectorRunIsIdempotent(t *testing.T) {
	store := newCollectorStore(t)
	resolver := &fakeResolver{
		transcripts: map[string]*models.Transcript{
			"vid1": {VideoID: "vid1", Text: "the full transcript", Language: "en"},
		},
	}
	collector := NewCollector(testVideoSource(), resolver, &fakeAnalyzer{}, store, testCollectionConfig())
	ctx := context.Background()

	if _, err := collector.Run(ctx); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	resolverCallsAfterFirst := resolver.calls

	second, err := collector.Run(ctx)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if second.VideosCollected != 0 {
		t.Errorf("Second run collected %d videos, expected 0", second.VideosCollected)
	}
	if second.AnalysisRows != 0 {
		t.Errorf("Second run wrote %d keyword rows, expected 0", second.AnalysisRows)
	}
	if second.TranscriptsResolved != 0 {
		t.Errorf("Second run resolved %d transcripts, expected 0", second.TranscriptsResolved)
	}
	// vid1's transcript is already stored, so only vid2 is retried.
	if resolver.calls != resolverCallsAfterFirst+1 {
		t.Errorf("Resolver called %d times on second run, expected 1", resolver.calls-resolverCallsAfterFirst)
	}

	count, err := store.CountVideos(ctx)
	if err != nil {
		t.Fatalf("CountVideos failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 videos after two runs, got %d", count)
	}
}

func TestCollectorToleratesChannelFailures(t *testing.T) {
	store := newCollectorStore(t)
	source := testVideoSource()
	source.channelErr = errors.New("channel API down")
	collector := NewCollector(source, &fakeResolver{}, &fakeAnalyzer{}, store, testCollectionConfig())
	ctx := context.Background()

	summary, err := collector.Run(ctx)
	if err != nil {
		t.Fatalf("Run must tolerate channel failures: %v", err)
	}
	if summary.Failures == 0 {
		t.Error("Channel failures must be counted")
	}
	// Search still ran.
	if summary.VideosCollected != 1 {
		t.Errorf("Expected the search video to be collected, got %d", summary.VideosCollected)
	}

	// The failed channel still gets a stub row for later passes.
	stub, err := store.GetChannel(ctx, "chan1")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if stub == nil || stub.ChannelName != "chan1" {
		t.Errorf("Expected stub channel row, got %+v", stub)
	}
}

func TestCollectorToleratesSearchFailures(t *testing.T) {
	store := newCollectorStore(t)
	source := testVideoSource()
	source.searchErr = errors.New("search quota exhausted")
	resolver := &fakeResolver{}
	collector := NewCollector(source, resolver, &fakeAnalyzer{}, store, testCollectionConfig())

	summary, err := collector.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must tolerate search failures: %v", err)
	}
	if summary.Failures == 0 {
		t.Error("Search failures must be counted")
	}
	if summary.VideosCollected != 1 {
		t.Errorf("Expected the channel video to be collected, got %d", summary.VideosCollected)
	}
}

func TestCollectorToleratesTranscriptFailures(t *testing.T) {
	store := newCollectorStore(t)
	resolver := &fakeResolver{err: errors.New("timedtext unreachable")}
	analyzer := &fakeAnalyzer{}
	collector := NewCollector(testVideoSource(), resolver, analyzer, store, testCollectionConfig())

	summary, err := collector.Run(context.Background())
	if err != nil {
		t.Fatalf("Run must tolerate transcript failures: %v", err)
	}
	if summary.Failures != 2 {
		t.Errorf("Expected 2 transcript failures, got %d", summary.Failures)
	}
	// Analysis still happens on metadata text.
	if summary.VideosAnalyzed != 2 {
		t.Errorf("Expected both videos analyzed, got %d", summary.VideosAnalyzed)
	}
	for _, req := range analyzer.requests {
		if req.Transcript == "" {
			t.Errorf("Video %s analyzed with empty text", req.VideoID)
		}
	}
}
