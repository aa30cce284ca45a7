package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error, default info
	Format string `yaml:"format"` // json|text, default json
}

type CommonHTTP struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"` // retry attempts (e.g. 3)
	Backoff    time.Duration `yaml:"backoff"`     // initial backoff (e.g. 500ms)
	MaxBackoff time.Duration `yaml:"max_backoff"` // cap (e.g. 5s)
}

type RedditConfig struct {
	BaseURL    string        `yaml:"base_url"` // default https://oauth.reddit.com
	Token      string        `yaml:"token"`
	Subreddits []string      `yaml:"subreddits"`
	Interval   time.Duration `yaml:"interval"` // default 1m
	PageLimit  int           `yaml:"page_limit"`
	HTTP       CommonHTTP    `yaml:"http"`
	Retry      RetryConfig   `yaml:"retry"`
}

type DiscordConfig struct {
	BaseURL  string        `yaml:"base_url"` // default https://discord.com/api/v10
	BotToken string        `yaml:"bot_token"`
	Channels []string      `yaml:"channels"`
	Interval time.Duration `yaml:"interval"` // default 30s
	HTTP     CommonHTTP    `yaml:"http"`
	Retry    RetryConfig   `yaml:"retry"`
}

type FacebookConfig struct {
	BaseURL  string        `yaml:"base_url"` // default https://graph.facebook.com/v17.0
	Token    string        `yaml:"token"`
	Pages    []string      `yaml:"pages"`
	Groups   []string      `yaml:"groups"`
	Interval time.Duration `yaml:"interval"` // default 5m
	HTTP     CommonHTTP    `yaml:"http"`
	Retry    RetryConfig   `yaml:"retry"`
}

type CrawlerConfig struct {
	Type     string         `yaml:"type"` // reddit | discord | facebook_page | facebook_group
	Reddit   RedditConfig   `yaml:"reddit"`
	Discord  DiscordConfig  `yaml:"discord"`
	Facebook FacebookConfig `yaml:"facebook"`
}

type ClassifierConfig struct {
	BaseURL string        `yaml:"base_url"` // default https://api.groq.com/openai/v1
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type WhatsAppConfig struct {
	PhoneNumberID string `yaml:"phone_number_id"`
}

type DispatchConfig struct {
	RedditToken   string         `yaml:"reddit_token"`
	DiscordToken  string         `yaml:"discord_token"`
	FacebookToken string         `yaml:"facebook_token"`
	WhatsApp      WhatsAppConfig `yaml:"whatsapp"`
	HTTP          CommonHTTP     `yaml:"http"`
}

type AdsConfig struct {
	Enable           bool          `yaml:"enable"`
	BaseURL          string        `yaml:"base_url"` // default https://graph.facebook.com/v17.0
	Token            string        `yaml:"token"`
	AccountID        string        `yaml:"account_id"`
	PageID           string        `yaml:"page_id"`
	WebsiteURL       string        `yaml:"website_url"`
	DailyBudgetCents int           `yaml:"daily_budget_cents"` // default 5000
	BidCents         int           `yaml:"bid_cents"`          // default 500
	Countries        []string      `yaml:"countries"`          // default ["US"]
	RunWindow        time.Duration `yaml:"run_window"`         // default 168h
	HTTP             CommonHTTP    `yaml:"http"`
	Retry            RetryConfig   `yaml:"retry"`
}

type TrackerConfig struct {
	Enable   bool          `yaml:"enable"`
	Interval time.Duration `yaml:"interval"` // default 1h
}

type DedupConfig struct {
	Enable  bool          `yaml:"enable"`
	TTL     time.Duration `yaml:"ttl"`      // e.g. 168h (7d)
	MaxKeys int           `yaml:"max_keys"` // cap to bound memory
}

type PipelineConfig struct {
	QueueSize          int           `yaml:"queue_size"`           // bounded event queue, default 256
	HighValueThreshold int           `yaml:"high_value_threshold"` // ad-creation score cutoff, default 70
	Retention          time.Duration `yaml:"retention"`            // analytics log retention, default 720h
}

type StateConfig struct {
	Path string `yaml:"path"` // watermark cursor file; empty = in-memory only
}

type ServerConfig struct {
	ListenAddress string        `yaml:"listen_address"` // default :9105
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Crawlers   []CrawlerConfig  `yaml:"crawlers"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Ads        AdsConfig        `yaml:"ads"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	State      StateConfig      `yaml:"state"`
	Server     ServerConfig     `yaml:"server"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}
	if len(c.Crawlers) == 0 {
		return c, errors.New("no crawlers configured")
	}
	for i, cc := range c.Crawlers {
		switch cc.Type {
		case "reddit", "discord", "facebook_page", "facebook_group":
		default:
			return c, fmt.Errorf("crawler %d: unknown type %q", i, cc.Type)
		}
	}
	if c.Classifier.Model == "" {
		return c, errors.New("classifier.model is required")
	}
	if c.Ads.Enable && (c.Ads.AccountID == "" || c.Ads.PageID == "") {
		return c, errors.New("ads.account_id and ads.page_id are required when ads are enabled")
	}
	return c, nil
}
