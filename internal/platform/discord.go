package platform

import (
	"context"
	"net/http"
	"strings"
	"time"

	"salesradar/internal/config"
	"salesradar/internal/model"
	"salesradar/internal/util"
)

type discordStrategy struct {
	cfg    config.DiscordConfig
	client *http.Client
	policy util.RetryPolicy
}

func NewDiscord(cfg config.DiscordConfig) Strategy {
	to := cfg.HTTP.Timeout
	if to == 0 {
		to = 15 * time.Second
	}
	return &discordStrategy{cfg: cfg, client: util.NewHTTPClient(to), policy: retryPolicy(cfg.Retry)}
}

func (d *discordStrategy) Platform() model.Platform { return model.PlatformDiscord }
func (d *discordStrategy) Targets() []string        { return d.cfg.Channels }

func (d *discordStrategy) Interval() time.Duration {
	if d.cfg.Interval > 0 {
		return d.cfg.Interval
	}
	return 30 * time.Second
}

func (d *discordStrategy) baseURL() string {
	if b := strings.TrimRight(d.cfg.BaseURL, "/"); b != "" {
		return b
	}
	return "https://discord.com/api/v10"
}

type discordMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	ChannelID string `json:"channel_id"`
	Timestamp string `json:"timestamp"`
	Author    struct {
		Username string `json:"username"`
	} `json:"author"`
}

func (d *discordStrategy) FetchSince(ctx context.Context, target string, since time.Time) ([]model.ContentEvent, error) {
	url := d.baseURL() + "/channels/" + target + "/messages?limit=50"
	headers := map[string]string{"Authorization": "Bot " + d.cfg.BotToken}
	if ua := d.cfg.HTTP.UserAgent; ua != "" {
		headers["User-Agent"] = ua
	}
	var msgs []discordMessage
	if err := getJSON(ctx, d.client, d.policy, url, headers, &msgs); err != nil {
		return nil, err
	}

	evs := make([]model.ContentEvent, 0, len(msgs))
	for _, m := range msgs {
		created, err := parseTimeFlexible(m.Timestamp)
		if err != nil || !created.After(since) {
			continue
		}
		evs = append(evs, model.ContentEvent{
			Platform:   model.PlatformDiscord,
			Kind:       model.KindPost,
			ExternalID: m.ID,
			Text:       m.Content,
			Target:     target,
			Author:     m.Author.Username,
			CreatedAt:  created,
			URL:        "https://discord.com/channels/@me/" + target + "/" + m.ID,
			Raw:        map[string]any{"channel_id": m.ChannelID},
		})
	}
	sortAscending(evs)
	return evs, nil
}

// Discord channel messages are flat; threads are separate channels and
// get registered as their own targets.
func (d *discordStrategy) FetchReplies(ctx context.Context, parent model.ContentEvent) ([]model.ContentEvent, error) {
	return nil, nil
}
