package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"insight-stack/internal/models"
)

// Track describes one caption track available for a video.
type Track struct {
	Language string
	Name     string
	Auto     bool
}

// TrackSource lists and fetches caption tracks. The production implementation
// talks to the timedtext endpoint; tests substitute a fake.
type TrackSource interface {
	ListTracks(ctx context.Context, videoID string) ([]Track, error)
	FetchTranscript(ctx context.Context, videoID string, track Track) (string, error)
}

// Resolver picks the best caption track for a video by walking language
// priorities: the configured language first, then English, Japanese, and
// Chinese variants. Within each pass auto-generated tracks are preferred
// because the channels tracked here rarely publish manual captions.
type Resolver struct {
	source     TrackSource
	priorities [][]string
}

func NewResolver(source TrackSource, preferredLanguage string) *Resolver {
	priorities := [][]string{
		{"en"},
		{"ja"},
		{"zh", "zh-Hans", "zh-Hant", "zh-CN", "zh-TW"},
	}
	if preferredLanguage != "" {
		priorities = append([][]string{{preferredLanguage}}, priorities...)
	}
	return &Resolver{source: source, priorities: priorities}
}

// Resolve returns the transcript for a video, or (nil, nil) when the video
// has no caption tracks at all. A video without captions is an expected
// condition, not an error.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (*models.Transcript, error) {
	tracks, err := r.source.ListTracks(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("list caption tracks for %s: %w", videoID, err)
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	// Pass 1: auto-generated tracks in priority language order.
	for _, languages := range r.priorities {
		for _, track := range tracks {
			if track.Auto && matchesAny(track.Language, languages) {
				if transcript := r.fetch(ctx, videoID, track); transcript != nil {
					return transcript, nil
				}
			}
		}
	}

	// Pass 2: manual tracks in priority language order.
	for _, languages := range r.priorities {
		for _, track := range tracks {
			if !track.Auto && matchesAny(track.Language, languages) {
				if transcript := r.fetch(ctx, videoID, track); transcript != nil {
					return transcript, nil
				}
			}
		}
	}

	// Pass 3: whatever exists, auto first. If the auto track cannot be
	// fetched, fall through to the first manual track before giving up.
	first := tracks[0]
	for _, track := range tracks {
		if track.Auto {
			first = track
			break
		}
	}
	if transcript := r.fetch(ctx, videoID, first); transcript != nil {
		return transcript, nil
	}
	if first.Auto {
		for _, track := range tracks {
			if !track.Auto {
				if transcript := r.fetch(ctx, videoID, track); transcript != nil {
					return transcript, nil
				}
				break
			}
		}
	}

	log.Printf("No fetchable caption track for video %s (%d tracks listed)", videoID, len(tracks))
	return nil, nil
}

func (r *Resolver) fetch(ctx context.Context, videoID string, track Track) *models.Transcript {
	text, err := r.source.FetchTranscript(ctx, videoID, track)
	if err != nil {
		log.Printf("Failed to fetch %s captions (%s) for %s: %v", kindLabel(track), track.Language, videoID, err)
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &models.Transcript{
		VideoID:       videoID,
		Text:          text,
		Language:      track.Language,
		AutoGenerated: track.Auto,
		Length:        len(text),
	}
}

func kindLabel(track Track) string {
	if track.Auto {
		return "auto"
	}
	return "manual"
}

func matchesAny(trackLanguage string, languages []string) bool {
	for _, language := range languages {
		if strings.EqualFold(trackLanguage, language) ||
			strings.HasPrefix(strings.ToLower(trackLanguage), strings.ToLower(language)+"-") {
			return true
		}
	}
	return false
}

const timedtextBaseURL = "https://video.google.com/timedtext"

// TimedtextSource fetches caption tracks from the public timedtext endpoint,
// which needs no API quota.
type TimedtextSource struct {
	httpClient *http.Client
	baseURL    string
}

func NewTimedtextSource() *TimedtextSource {
	return &TimedtextSource{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    timedtextBaseURL,
	}
}

type trackList struct {
	Tracks []struct {
		LangCode string `xml:"lang_code,attr"`
		Name     string `xml:"name,attr"`
		Kind     string `xml:"kind,attr"`
	} `xml:"track"`
}

func (s *TimedtextSource) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	query := url.Values{}
	query.Set("type", "list")
	query.Set("v", videoID)

	body, err := s.get(ctx, query)
	if err != nil {
		return nil, err
	}
	// Videos with captions disabled return an empty body.
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse track list: %w", err)
	}

	tracks := make([]Track, 0, len(list.Tracks))
	for _, item := range list.Tracks {
		tracks = append(tracks, Track{
			Language: item.LangCode,
			Name:     item.Name,
			Auto:     item.Kind == "asr",
		})
	}
	return tracks, nil
}

type captionDocument struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

func (s *TimedtextSource) FetchTranscript(ctx context.Context, videoID string, track Track) (string, error) {
	query := url.Values{}
	query.Set("v", videoID)
	query.Set("lang", track.Language)
	if track.Name != "" {
		query.Set("name", track.Name)
	}
	if track.Auto {
		query.Set("kind", "asr")
	}

	body, err := s.get(ctx, query)
	if err != nil {
		return "", err
	}

	var doc captionDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("parse captions: %w", err)
	}

	parts := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (s *TimedtextSource) get(ctx context.Context, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timedtext request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext request returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
