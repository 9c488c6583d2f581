package youtube

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"insight-stack/internal/models"
	"insight-stack/shared/config"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Client wraps the YouTube Data API with credential rotation. In API-key mode
// one service handle is built per key and cached; when no keys are configured
// it falls back to a single OAuth-authenticated service.
type Client struct {
	rotator *Rotator
	fixed   *youtube.Service

	mu       sync.Mutex
	services map[string]*youtube.Service
}

func NewClient(ctx context.Context, cfg *config.YouTubeConfig) (*Client, error) {
	if len(cfg.APIKeys) > 0 {
		rotator, err := NewRotator(cfg.APIKeys)
		if err != nil {
			return nil, err
		}
		log.Printf("YouTube client using API key pool of %d", rotator.Size())
		return &Client{
			rotator:  rotator,
			services: make(map[string]*youtube.Service),
		}, nil
	}

	service, err := newOAuthService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("YouTube client using OAuth credentials")
	return &Client{fixed: service}, nil
}

func (c *Client) serviceFor(ctx context.Context, apiKey string) (*youtube.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if service, ok := c.services[apiKey]; ok {
		return service, nil
	}
	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	c.services[apiKey] = service
	return service, nil
}

// withService runs fn against an API service, rotating credentials when the
// current one is out of quota.
func (c *Client) withService(ctx context.Context, fn func(service *youtube.Service) error) error {
	if c.fixed != nil {
		return fn(c.fixed)
	}
	return c.rotator.Execute(func(credential string) error {
		service, err := c.serviceFor(ctx, credential)
		if err != nil {
			return err
		}
		return fn(service)
	})
}

// ChannelDetails fetches a channel's metadata.
func (c *Client) ChannelDetails(ctx context.Context, channelID string) (*models.Channel, error) {
	var channel *models.Channel
	err := c.withService(ctx, func(service *youtube.Service) error {
		response, err := service.Channels.List([]string{"snippet", "statistics"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to get channel %s: %w", channelID, err)
		}
		if len(response.Items) == 0 {
			return fmt.Errorf("channel %s not found", channelID)
		}

		item := response.Items[0]
		channel = &models.Channel{
			ChannelID:   item.Id,
			ChannelName: item.Snippet.Title,
			ChannelURL:  fmt.Sprintf("https://www.youtube.com/channel/%s", item.Id),
			Description: item.Snippet.Description,
		}
		if item.Statistics != nil {
			channel.SubscriberCount = int64(item.Statistics.SubscriberCount)
			channel.VideoCount = int64(item.Statistics.VideoCount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// ChannelVideos returns videos published on a channel since the given time,
// walking the channel's uploads playlist.
func (c *Client) ChannelVideos(ctx context.Context, channelID string, since time.Time, maxResults int64) ([]*models.Video, error) {
	var videos []*models.Video
	err := c.withService(ctx, func(service *youtube.Service) error {
		channelsResponse, err := service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to get uploads playlist for %s: %w", channelID, err)
		}
		if len(channelsResponse.Items) == 0 {
			return fmt.Errorf("channel %s not found", channelID)
		}
		details := channelsResponse.Items[0].ContentDetails
		if details == nil || details.RelatedPlaylists == nil || details.RelatedPlaylists.Uploads == "" {
			log.Printf("Channel %s has no uploads playlist", channelID)
			videos = []*models.Video{}
			return nil
		}
		playlistID := details.RelatedPlaylists.Uploads

		playlistResponse, err := service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(playlistID).
			MaxResults(maxResults).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to list uploads for %s: %w", channelID, err)
		}

		var videoIDs []string
		for _, item := range playlistResponse.Items {
			publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			if err != nil || publishedAt.Before(since) {
				continue
			}
			videoIDs = append(videoIDs, item.Snippet.ResourceId.VideoId)
		}

		videos, err = c.videoDetails(ctx, service, videoIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// SearchVideos returns videos matching a keyword query, published since the
// given time, newest first.
func (c *Client) SearchVideos(ctx context.Context, query string, since time.Time, maxResults int64) ([]*models.Video, error) {
	var videos []*models.Video
	err := c.withService(ctx, func(service *youtube.Service) error {
		searchResponse, err := service.Search.List([]string{"snippet"}).
			Q(query).
			Type("video").
			Order("date").
			PublishedAfter(since.UTC().Format(time.RFC3339)).
			MaxResults(maxResults).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to search %q: %w", query, err)
		}

		var videoIDs []string
		for _, item := range searchResponse.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				videoIDs = append(videoIDs, item.Id.VideoId)
			}
		}

		videos, err = c.videoDetails(ctx, service, videoIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// videoDetails resolves full metadata for the given video ids in batches.
func (c *Client) videoDetails(ctx context.Context, service *youtube.Service, videoIDs []string) ([]*models.Video, error) {
	if len(videoIDs) == 0 {
		return []*models.Video{}, nil
	}

	const batchSize = 50
	var videos []*models.Video
	for i := 0; i < len(videoIDs); i += batchSize {
		end := i + batchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		response, err := service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(strings.Join(videoIDs[i:end], ",")).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get video details: %w", err)
		}

		for _, item := range response.Items {
			videos = append(videos, videoFromItem(item))
		}
	}
	return videos, nil
}

func videoFromItem(item *youtube.Video) *models.Video {
	video := &models.Video{
		VideoID: item.Id,
		URL:     fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.Id),
	}
	if item.Snippet != nil {
		video.ChannelID = item.Snippet.ChannelId
		video.ChannelTitle = item.Snippet.ChannelTitle
		video.Title = item.Snippet.Title
		video.Description = item.Snippet.Description
		video.Tags = item.Snippet.Tags
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			video.PublishedAt = publishedAt
		}
	}
	if item.ContentDetails != nil {
		video.Duration = item.ContentDetails.Duration
	}
	if item.Statistics != nil {
		video.ViewCount = int64(item.Statistics.ViewCount)
		video.LikeCount = int64(item.Statistics.LikeCount)
		video.CommentCount = int64(item.Statistics.CommentCount)
	}
	return video
}
