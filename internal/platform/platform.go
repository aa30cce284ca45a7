package platform

import (
	"context"
	"fmt"
	"time"

	"salesradar/internal/config"
	"salesradar/internal/model"
)

// Strategy is the per-platform fetch/parse behavior. The crawl-cycle
// algorithm lives in internal/crawler and is shared by all variants.
type Strategy interface {
	Platform() model.Platform
	// Targets returns the configured target ids (subreddits, channels,
	// page or group ids) for this strategy.
	Targets() []string
	// Interval is the polling cadence for this platform.
	Interval() time.Duration
	// FetchSince returns top-level items for target created after
	// since, ascending by creation time. Failure is an error, never an
	// empty slice.
	FetchSince(ctx context.Context, target string, since time.Time) ([]model.ContentEvent, error)
	// FetchReplies returns the reply items nested under parent,
	// ascending by creation time, with ParentID set.
	FetchReplies(ctx context.Context, parent model.ContentEvent) ([]model.ContentEvent, error)
}

func NewFromConfig(c config.CrawlerConfig) (Strategy, error) {
	switch c.Type {
	case "reddit":
		return NewReddit(c.Reddit), nil
	case "discord":
		return NewDiscord(c.Discord), nil
	case "facebook_page":
		return NewFacebook(c.Facebook, false), nil
	case "facebook_group":
		return NewFacebook(c.Facebook, true), nil
	default:
		return nil, fmt.Errorf("unknown crawler type: %s", c.Type)
	}
}
