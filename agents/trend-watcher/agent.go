package trendwatcher

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"insight-stack/agents/trend-watcher/youtube"
	"insight-stack/internal/models"
	"insight-stack/shared/ai"
	"insight-stack/shared/config"
	"insight-stack/shared/scheduler"
	"insight-stack/shared/storage"
)

// TrendMetrics reports the outcome of one run for monitoring.
type TrendMetrics struct {
	RunSummary
	ReportGenerated bool
}

func (m *TrendMetrics) GetSummary() string {
	report := "no report"
	if m.ReportGenerated {
		report = "report saved"
	}
	return fmt.Sprintf("%s, %s", m.RunSummary.String(), report)
}

// TrendWatcherAgent ingests investment videos, analyzes them, and writes a
// trend report for the lookback window.
type TrendWatcherAgent struct {
	config    *config.Config
	store     *storage.Store
	collector *Collector
	trends    *ai.TrendAnalyzer
}

func New(cfg *config.Config) *TrendWatcherAgent {
	return &TrendWatcherAgent{config: cfg}
}

func (a *TrendWatcherAgent) Name() string {
	return "trend-watcher"
}

// Initialize wires the store, YouTube client, and analyzers. Kept out of New
// so construction never touches the network or disk.
func (a *TrendWatcherAgent) Initialize() error {
	ctx := context.Background()

	store, err := storage.Open(a.config.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open content store: %w", err)
	}
	a.store = store

	client, err := youtube.NewClient(ctx, &a.config.YouTube)
	if err != nil {
		return fmt.Errorf("failed to create YouTube client: %w", err)
	}

	var generator ai.Generator
	if !a.config.AI.Disabled {
		gemini, err := ai.NewGeminiGenerator(ctx, a.config.AI.GeminiAPIKey, a.config.AI.Model)
		if err != nil {
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		generator = gemini
	}

	analyzer := ai.NewAnalyzer(generator, store, ai.AnalyzerOptions{
		ModelVersion:       a.config.AI.Model,
		Disabled:           a.config.AI.Disabled,
		MaxTranscriptChars: a.config.AI.MaxTranscriptChars,
	})
	resolver := youtube.NewResolver(youtube.NewTimedtextSource(), a.config.YouTube.PreferredLanguage)

	a.collector = NewCollector(client, resolver, analyzer, store, &a.config.Collection)
	a.trends = ai.NewTrendAnalyzer(generator, a.config.AI.Disabled)

	log.Printf("✅ %s initialized (db: %s)", a.Name(), a.config.Storage.DatabasePath)
	return nil
}

// RunOnce executes one collection pass and writes the trend report.
func (a *TrendWatcherAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	start := time.Now()

	summary, err := a.collector.Run(ctx)
	if err != nil {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(start))
		}
		return err
	}

	metrics := &TrendMetrics{RunSummary: *summary}

	to := time.Now()
	from := to.Add(-time.Duration(a.config.Collection.LookbackHours) * time.Hour)
	analyses, err := a.store.AnalysesBetween(ctx, from, to, a.config.Collection.Keywords)
	if err != nil {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(start))
		}
		return fmt.Errorf("load analyses for report: %w", err)
	}

	trendSummary := a.trends.Summarize(ctx, analyses, a.config.Collection.LookbackWindow())
	report := buildReport(trendSummary, from, to)
	if err := a.store.InsertReport(ctx, report); err != nil {
		if events != nil && events.OnCriticalFailure != nil {
			events.OnCriticalFailure(err, time.Since(start))
		}
		return fmt.Errorf("save report: %w", err)
	}
	metrics.ReportGenerated = true
	log.Printf("📊 Report %d saved: %s sentiment %.2f over %d analyses",
		report.ID, trendSummary.MarketSentiment, trendSummary.AverageSentiment, trendSummary.AnalysisCount)

	duration := time.Since(start)
	if summary.Failures > 0 && events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(fmt.Errorf("%d item failures during collection", summary.Failures), duration)
	}
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}
	return nil
}

// Stats exposes store counters for the monitoring status endpoint.
func (a *TrendWatcherAgent) Stats(ctx context.Context) (*models.CacheStats, error) {
	if a.store == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	return a.store.Stats(ctx)
}

// Close releases the content store.
func (a *TrendWatcherAgent) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func buildReport(summary *models.TrendSummary, from, to time.Time) *models.Report {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Market Trend Report (%s)\n\n", summary.Period)
	fmt.Fprintf(&sb, "Overall trend: %s (average sentiment %.2f across %d analyses)\n\n",
		summary.OverallTrend, summary.AverageSentiment, summary.AnalysisCount)

	if summary.Summary != "" {
		sb.WriteString(summary.Summary)
		sb.WriteString("\n\n")
	}
	writeSection(&sb, "Key themes", summary.KeyThemes)
	writeSection(&sb, "Hot topics", summary.HotTopics)
	if summary.ConsensusView != "" {
		fmt.Fprintf(&sb, "Consensus: %s\n\n", summary.ConsensusView)
	}
	writeSection(&sb, "Contrarian views", summary.ContrarianViews)
	writeSection(&sb, "Risks", summary.RiskFactors)
	writeSection(&sb, "Opportunities", summary.Opportunities)

	return &models.Report{
		ReportType:      "daily",
		Title:           fmt.Sprintf("Market Trend Report %s", to.Format("2006-01-02")),
		Content:         sb.String(),
		Summary:         summary.Summary,
		KeyTrends:       summary.KeyThemes,
		MarketSentiment: summary.MarketSentiment,
		RangeStart:      from,
		RangeEnd:        to,
	}
}

func writeSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
	sb.WriteString("\n")
}
