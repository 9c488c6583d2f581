package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	AI         AIConfig         `yaml:"ai"`
	Collection CollectionConfig `yaml:"collection"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type YouTubeConfig struct {
	// APIKeys is the credential pool rotated through on quota exhaustion.
	APIKeys []string `yaml:"api_keys"`
	// OAuth fields are the fallback credential mode when no API keys are set.
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
	// PreferredLanguage is the first language tried when resolving transcripts.
	PreferredLanguage string `yaml:"preferred_language"`
}

type AIConfig struct {
	GeminiAPIKey       string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model              string `yaml:"model"`
	Disabled           bool   `yaml:"disabled"`
	MaxTranscriptChars int    `yaml:"max_transcript_chars"`
}

type CollectionConfig struct {
	Channels            []string `yaml:"channels"`
	Keywords            []string `yaml:"keywords"`
	KeywordCategory     string   `yaml:"keyword_category"`
	LookbackHours       int      `yaml:"lookback_hours"`
	MaxVideosPerChannel int64    `yaml:"max_videos_per_channel"`
	MaxVideosPerSearch  int64    `yaml:"max_videos_per_search"`
}

type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	if len(cfg.YouTube.APIKeys) == 0 {
		cfg.YouTube.APIKeys = splitKeys(os.Getenv("YOUTUBE_API_KEYS"))
	}
	if cfg.YouTube.ClientID == "" {
		cfg.YouTube.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cfg.YouTube.ClientSecret == "" {
		cfg.YouTube.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if cfg.YouTube.TokenFile == "" {
		cfg.YouTube.TokenFile = "youtube_token.json"
	}
	if cfg.YouTube.PreferredLanguage == "" {
		cfg.YouTube.PreferredLanguage = "ko"
	}
	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.5-flash"
	}
	if cfg.AI.MaxTranscriptChars == 0 {
		cfg.AI.MaxTranscriptChars = 4000
	}
	if cfg.Collection.LookbackHours == 0 {
		cfg.Collection.LookbackHours = 24
	}
	if cfg.Collection.KeywordCategory == "" {
		cfg.Collection.KeywordCategory = "investment"
	}
	if cfg.Collection.MaxVideosPerChannel == 0 {
		cfg.Collection.MaxVideosPerChannel = 50
	}
	if cfg.Collection.MaxVideosPerSearch == 0 {
		cfg.Collection.MaxVideosPerSearch = 30
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/insights.db"
	}
	if cfg.Monitoring.HealthPort == 0 {
		cfg.Monitoring.HealthPort = 8080
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.YouTube.APIKeys) == 0 && (c.YouTube.ClientID == "" || c.YouTube.ClientSecret == "") {
		return fmt.Errorf("YouTube credentials are required (set YOUTUBE_API_KEYS or an OAuth client)")
	}
	if !c.AI.Disabled && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if len(c.Collection.Channels) == 0 && len(c.Collection.Keywords) == 0 {
		return fmt.Errorf("at least one channel or keyword must be configured")
	}
	return nil
}

// LookbackWindow returns the configured lookback as a string suitable for
// labeling reports, e.g. "last 24 hours".
func (c *CollectionConfig) LookbackWindow() string {
	return fmt.Sprintf("last %d hours", c.LookbackHours)
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
