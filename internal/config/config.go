package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"DailyKnowledge/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "DAILY_KNOWLEDGE_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	llmProviderEnv    = "LLM_PROVIDER"
	llmAPIKeyEnv      = "LLM_API_KEY"
	legacyAPIKeyEnv   = "API_KEY"
	llmModelEnv       = "LLM_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	LLM           LLMConfig          `yaml:"llm"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Feeds         []FeedGroupConfig  `yaml:"feeds"`
	Notifications NotificationConfig `yaml:"notifications"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Metrics       MetricsConfig      `yaml:"metrics"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig selects the SQL driver and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the daily fetch should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LLMConfig defines how to reach the summarization service.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Endpoint       string        `yaml:"endpoint"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"apiKey"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxTokens      int           `yaml:"maxTokens"`
	OutputLanguage string        `yaml:"outputLanguage"`
}

// PipelineConfig bounds the fetch and curation stages.
type PipelineConfig struct {
	ItemsPerSource int           `yaml:"itemsPerSource"`
	FetchTimeout   time.Duration `yaml:"fetchTimeout"`
	UserAgent      string        `yaml:"userAgent"`
	MaxPicks       int           `yaml:"maxPicks"`
	SnippetLength  int           `yaml:"snippetLength"`
	Concurrency    int           `yaml:"concurrency"`
}

// FeedGroupConfig lists the feeds of one category.
type FeedGroupConfig struct {
	Category string       `yaml:"category"`
	Feeds    []FeedConfig `yaml:"feeds"`
}

// FeedConfig is one named feed endpoint.
type FeedConfig struct {
	Source string `yaml:"source"`
	RSSURL string `yaml:"rss_url"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// ArchiveConfig points at the directory for daily JSON summaries; empty disables it.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// MetricsConfig sets the listen address of the metrics endpoint; empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration (if present), a .env file (if present) and
// applies environment overrides. An empty path falls back to DAILY_KNOWLEDGE_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate rejects feed registries and bounds the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	for _, group := range c.Feeds {
		if _, err := domain.ParseCategory(group.Category); err != nil {
			errs = append(errs, fmt.Errorf("feeds: %w", err))
			continue
		}
		for _, feed := range group.Feeds {
			if feed.Source == "" {
				errs = append(errs, fmt.Errorf("feeds: %s has a feed without a source name", group.Category))
			}
			u, err := url.Parse(feed.RSSURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, fmt.Errorf("feeds: %s/%s has invalid rss_url %q", group.Category, feed.Source, feed.RSSURL))
			}
		}
	}

	if c.Pipeline.ItemsPerSource <= 0 {
		errs = append(errs, errors.New("pipeline: itemsPerSource must be positive"))
	}
	if c.Pipeline.MaxPicks <= 0 {
		errs = append(errs, errors.New("pipeline: maxPicks must be positive"))
	}
	if c.Pipeline.FetchTimeout <= 0 {
		errs = append(errs, errors.New("pipeline: fetchTimeout must be positive"))
	}
	if c.Pipeline.Concurrency <= 0 {
		errs = append(errs, errors.New("pipeline: concurrency must be positive"))
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database: unsupported driver %q", c.Database.Driver))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(llmProviderEnv); v != "" {
		c.LLM.switchProvider(v)
	}
	if v := os.Getenv(legacyAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

// switchProvider changes the provider and resets Endpoint and Model to the
// new provider's defaults; explicit values are applied afterwards.
func (l *LLMConfig) switchProvider(provider string) {
	provider = strings.TrimSpace(provider)
	if strings.EqualFold(provider, l.Provider) {
		return
	}
	l.Provider = provider
	l.Endpoint, l.Model = "", ""
	if defaults := defaultConfig().LLM; strings.EqualFold(provider, defaults.Provider) {
		l.Endpoint, l.Model = defaults.Endpoint, defaults.Model
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.LLM.Provider != "" {
		base.LLM.switchProvider(override.LLM.Provider)
	}
	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}
	if override.LLM.OutputLanguage != "" {
		base.LLM.OutputLanguage = override.LLM.OutputLanguage
	}

	if override.Pipeline.ItemsPerSource != 0 {
		base.Pipeline.ItemsPerSource = override.Pipeline.ItemsPerSource
	}
	if override.Pipeline.FetchTimeout != 0 {
		base.Pipeline.FetchTimeout = override.Pipeline.FetchTimeout
	}
	if override.Pipeline.UserAgent != "" {
		base.Pipeline.UserAgent = override.Pipeline.UserAgent
	}
	if override.Pipeline.MaxPicks != 0 {
		base.Pipeline.MaxPicks = override.Pipeline.MaxPicks
	}
	if override.Pipeline.SnippetLength != 0 {
		base.Pipeline.SnippetLength = override.Pipeline.SnippetLength
	}
	if override.Pipeline.Concurrency != 0 {
		base.Pipeline.Concurrency = override.Pipeline.Concurrency
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Archive.Dir != "" {
		base.Archive.Dir = override.Archive.Dir
	}
	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "daily-knowledge.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 7 * * *", Timezone: defaultTimezone, location: tz},
		LLM: LLMConfig{
			Provider:       "openai",
			Endpoint:       "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			Timeout:        60 * time.Second,
			MaxTokens:      4096,
			OutputLanguage: "English",
		},
		Pipeline: PipelineConfig{
			ItemsPerSource: 3,
			FetchTimeout:   5 * time.Second,
			UserAgent:      "DailyKnowledgeBot/1.0",
			MaxPicks:       5,
			SnippetLength:  300,
			Concurrency:    3,
		},
		Feeds:   defaultFeeds(),
		Archive: ArchiveConfig{Dir: "data"},
		Metrics: MetricsConfig{Addr: ":9108"},
	}
}

func defaultFeeds() []FeedGroupConfig {
	return []FeedGroupConfig{
		{
			Category: string(domain.CategoryWorld),
			Feeds: []FeedConfig{
				{Source: "Reuters World News", RSSURL: "https://feeds.reuters.com/Reuters/worldNews"},
				{Source: "BBC News World", RSSURL: "http://feeds.bbci.co.uk/news/world/rss.xml"},
				{Source: "CNN World News", RSSURL: "http://rss.cnn.com/rss/edition_world.rss"},
			},
		},
		{
			Category: string(domain.CategoryTech),
			Feeds: []FeedConfig{
				{Source: "WIRED Tech", RSSURL: "https://www.wired.com/feed/category/technology/latest/rss"},
				{Source: "Ars Technica All News", RSSURL: "https://arstechnica.com/rss-feeds/all-news"},
				{Source: "Ars Technica Technology Lab", RSSURL: "https://arstechnica.com/rss-feeds/technology-lab"},
			},
		},
		{
			Category: string(domain.CategoryAI),
			Feeds: []FeedConfig{
				{Source: "WIRED AI", RSSURL: "https://www.wired.com/category/artificial-intelligence/rss"},
				{Source: "IEEE Spectrum AI", RSSURL: "https://spectrum.ieee.org/feeds/topic/artificial-intelligence.rss"},
				{Source: "Ars Technica AI", RSSURL: "https://arstechnica.com/ai/feed/"},
			},
		},
		{
			Category: string(domain.CategoryBusiness),
			Feeds: []FeedConfig{
				{Source: "Financial Times Business", RSSURL: "http://www.ft.com/rss/world"},
				{Source: "BBC News Business", RSSURL: "http://feeds.bbci.co.uk/news/business/rss.xml"},
				{Source: "CNN Business", RSSURL: "http://rss.cnn.com/rss/edition_business.rss"},
			},
		},
		{
			Category: string(domain.CategoryHumanities),
			Feeds: []FeedConfig{
				{Source: "WIRED Culture", RSSURL: "https://www.wired.com/feed/category/culture/latest/rss"},
				{Source: "BBC Entertainment & Arts", RSSURL: "http://feeds.bbci.co.uk/news/entertainment_and_arts/rss.xml"},
				{Source: "The Guardian Culture", RSSURL: "https://www.theguardian.com/world/culture/rss"},
			},
		},
		{
			Category: string(domain.CategoryIdeas),
			Feeds: []FeedConfig{
				{Source: "WIRED Ideas", RSSURL: "https://www.wired.com/feed/category/ideas/latest/rss"},
				{Source: "Medium Ideas", RSSURL: "https://medium.com/feed/tag/ideas"},
				{Source: "Aeon Magazine", RSSURL: "https://aeon.co/feed"},
			},
		},
	}
}
