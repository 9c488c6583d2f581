package ai

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"insight-stack/internal/models"
)

// AnalysisStore is the cache surface the analyzer needs from the content store.
type AnalysisStore interface {
	CachedAnalysis(ctx context.Context, videoID, cacheKey string) (*models.AnalysisResult, error)
	SaveAnalysis(ctx context.Context, videoID string, result *models.AnalysisResult, cacheKey, modelVersion string) error
}

// AnalysisRequest carries one video's content into analysis.
type AnalysisRequest struct {
	VideoID     string
	Title       string
	ChannelName string
	Transcript  string
	Keywords    []string
}

// Analyzer produces per-video investment analyses, consulting the content
// store's cache before spending a model call.
type Analyzer struct {
	generator          Generator
	store              AnalysisStore
	modelVersion       string
	disabled           bool
	maxTranscriptChars int
}

type AnalyzerOptions struct {
	ModelVersion       string
	Disabled           bool
	MaxTranscriptChars int
}

func NewAnalyzer(generator Generator, store AnalysisStore, opts AnalyzerOptions) *Analyzer {
	if opts.MaxTranscriptChars <= 0 {
		opts.MaxTranscriptChars = 15000
	}
	return &Analyzer{
		generator:          generator,
		store:              store,
		modelVersion:       opts.ModelVersion,
		disabled:           opts.Disabled,
		maxTranscriptChars: opts.MaxTranscriptChars,
	}
}

// CacheKey derives the content-addressed cache key for a video's transcript:
// the video id joined with a truncated digest of the transcript text, so a
// changed transcript invalidates the cached analysis for the same video.
func CacheKey(videoID, transcript string) string {
	sum := md5.Sum([]byte(transcript))
	return videoID + "_" + hex.EncodeToString(sum[:])[:16]
}

// Analyze returns the analysis for one video, serving from cache when the
// stored key matches the current transcript. On any model or decode failure
// it returns a neutral degraded result instead of an error, and does NOT
// cache it, so the next run retries the model. The returned bool reports a
// cache hit.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, bool, error) {
	if req.VideoID == "" {
		return nil, false, fmt.Errorf("video id is required")
	}

	cacheKey := CacheKey(req.VideoID, req.Transcript)

	cached, err := a.store.CachedAnalysis(ctx, req.VideoID, cacheKey)
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup for %s: %w", req.VideoID, err)
	}
	if cached != nil {
		return cached, true, nil
	}

	if a.disabled || a.generator == nil {
		log.Printf("⚠️ Analyzer disabled, returning neutral result for video %s", req.VideoID)
		return degradedResult(req), false, nil
	}

	result, err := a.analyzeWithModel(ctx, req)
	if err != nil {
		log.Printf("⚠️ Analysis failed for video %s, using degraded result: %v", req.VideoID, err)
		return degradedResult(req), false, nil
	}

	if err := a.store.SaveAnalysis(ctx, req.VideoID, result, cacheKey, a.modelVersion); err != nil {
		return nil, false, fmt.Errorf("save analysis for %s: %w", req.VideoID, err)
	}
	return result, false, nil
}

func (a *Analyzer) analyzeWithModel(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
	prompt := a.buildPrompt(req)

	response, err := a.generator.Generate(ctx, analysisSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Summary           string   `json:"summary"`
		KeyInsights       []string `json:"key_insights"`
		SentimentScore    float64  `json:"sentiment_score"`
		ImportanceScore   float64  `json:"importance_score"`
		MentionedEntities []string `json:"mentioned_entities"`
		Topics            []string `json:"topics"`
		MarketOutlook     string   `json:"market_outlook"`
		ActionItems       []string `json:"action_items"`
	}
	if err := decodeJSONObject(response, &parsed); err != nil {
		return nil, err
	}

	return &models.AnalysisResult{
		Summary:           parsed.Summary,
		KeyInsights:       parsed.KeyInsights,
		SentimentScore:    clamp(parsed.SentimentScore, -1, 1),
		ImportanceScore:   clamp(parsed.ImportanceScore, 0, 1),
		MentionedEntities: parsed.MentionedEntities,
		Topics:            parsed.Topics,
		MarketOutlook:     parsed.MarketOutlook,
		ActionItems:       parsed.ActionItems,
	}, nil
}

const analysisSystemPrompt = `You are a financial content analyst. You read video transcripts from investment channels and produce a structured analysis. Respond with a single JSON object and nothing else, using this shape:
{
  "summary": "2-3 sentence summary of the video",
  "key_insights": ["insight", ...],
  "sentiment_score": -1.0 to 1.0,
  "importance_score": 0.0 to 1.0,
  "mentioned_entities": ["ticker or company", ...],
  "topics": ["topic", ...],
  "market_outlook": "short free-form outlook",
  "action_items": ["actionable takeaway", ...]
}`

func (a *Analyzer) buildPrompt(req AnalysisRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Video: %s\n", req.Title)
	if req.ChannelName != "" {
		fmt.Fprintf(&sb, "Channel: %s\n", req.ChannelName)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&sb, "Keywords of interest: %s\n", strings.Join(req.Keywords, ", "))
	}
	sb.WriteString("\nTranscript:\n")
	sb.WriteString(truncateString(req.Transcript, a.maxTranscriptChars))
	return sb.String()
}

// degradedResult is the neutral stand-in used when the model is unavailable
// or its output cannot be decoded. It is never written to the cache.
func degradedResult(req AnalysisRequest) *models.AnalysisResult {
	summary := "Analysis unavailable"
	if req.Title != "" {
		summary = fmt.Sprintf("Analysis unavailable for %q", req.Title)
	}
	return &models.AnalysisResult{
		Summary:           summary,
		KeyInsights:       []string{},
		SentimentScore:    0,
		ImportanceScore:   0,
		MentionedEntities: []string{},
		Topics:            []string{},
		MarketOutlook:     "",
		ActionItems:       []string{},
	}
}
