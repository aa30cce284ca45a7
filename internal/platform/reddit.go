package platform

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"salesradar/internal/config"
	"salesradar/internal/model"
	"salesradar/internal/util"
)

type redditStrategy struct {
	cfg    config.RedditConfig
	client *http.Client
	policy util.RetryPolicy
}

func NewReddit(cfg config.RedditConfig) Strategy {
	to := cfg.HTTP.Timeout
	if to == 0 {
		to = 15 * time.Second
	}
	return &redditStrategy{cfg: cfg, client: util.NewHTTPClient(to), policy: retryPolicy(cfg.Retry)}
}

func (r *redditStrategy) Platform() model.Platform { return model.PlatformReddit }
func (r *redditStrategy) Targets() []string        { return r.cfg.Subreddits }

func (r *redditStrategy) Interval() time.Duration {
	if r.cfg.Interval > 0 {
		return r.cfg.Interval
	}
	return time.Minute
}

func (r *redditStrategy) baseURL() string {
	if b := strings.TrimRight(r.cfg.BaseURL, "/"); b != "" {
		return b
	}
	return "https://oauth.reddit.com"
}

func (r *redditStrategy) headers() map[string]string {
	ua := r.cfg.HTTP.UserAgent
	if ua == "" {
		ua = "salesradar/1.0"
	}
	return map[string]string{
		"Authorization": "Bearer " + r.cfg.Token,
		"User-Agent":    ua,
	}
}

// redditListing matches the {"data":{"children":[{"kind","data"}]}} shape.
type redditListing struct {
	Data struct {
		Children []redditThing `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	Kind string         `json:"kind"`
	Data map[string]any `json:"data"`
}

func (r *redditStrategy) FetchSince(ctx context.Context, target string, since time.Time) ([]model.ContentEvent, error) {
	limit := r.cfg.PageLimit
	if limit <= 0 {
		limit = 25
	}
	url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", r.baseURL(), target, limit)
	var listing redditListing
	if err := getJSON(ctx, r.client, r.policy, url, r.headers(), &listing); err != nil {
		return nil, err
	}

	evs := make([]model.ContentEvent, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		m := child.Data
		created := epochToTime(m["created_utc"])
		if !created.After(since) {
			continue
		}
		title := pickStr(m, "title")
		selftext := pickStr(m, "selftext")
		text := title
		if selftext != "" {
			text = title + "\n" + selftext
		}
		evs = append(evs, model.ContentEvent{
			Platform:   model.PlatformReddit,
			Kind:       model.KindPost,
			ExternalID: pickStr(m, "name"), // fullname, t3_...
			Text:       text,
			Target:     target,
			Author:     pickStr(m, "author"),
			CreatedAt:  created,
			URL:        "https://reddit.com" + pickStr(m, "permalink"),
			Raw:        m,
		})
	}
	sortAscending(evs)
	return evs, nil
}

func (r *redditStrategy) FetchReplies(ctx context.Context, parent model.ContentEvent) ([]model.ContentEvent, error) {
	id := pickStr(parent.Raw, "id")
	if id == "" {
		id = strings.TrimPrefix(parent.ExternalID, "t3_")
	}
	url := r.baseURL() + "/comments/" + id + ".json"
	// Reddit returns a two-element array: post listing, then comments.
	var pages []redditListing
	if err := getJSON(ctx, r.client, r.policy, url, r.headers(), &pages); err != nil {
		return nil, err
	}
	if len(pages) < 2 {
		return nil, nil
	}

	var evs []model.ContentEvent
	var walk func(children []redditThing)
	walk = func(children []redditThing) {
		for _, child := range children {
			if child.Kind != "t1" { // t1 is a comment
				continue
			}
			m := child.Data
			evs = append(evs, model.ContentEvent{
				Platform:   model.PlatformReddit,
				Kind:       model.KindComment,
				ExternalID: pickStr(m, "name"), // t1_...
				Text:       pickStr(m, "body"),
				Target:     parent.Target,
				ParentID:   parent.ExternalID,
				Author:     pickStr(m, "author"),
				CreatedAt:  epochToTime(m["created_utc"]),
				URL:        parent.URL + pickStr(m, "id"),
				Raw:        m,
			})
			// reply chains nest another listing under "replies"
			if rep, ok := m["replies"].(map[string]any); ok {
				if data, ok := rep["data"].(map[string]any); ok {
					if arr, ok := data["children"].([]any); ok {
						nested := make([]redditThing, 0, len(arr))
						for _, it := range arr {
							if cm, ok := it.(map[string]any); ok {
								kind, _ := cm["kind"].(string)
								if dm, ok := cm["data"].(map[string]any); ok {
									nested = append(nested, redditThing{Kind: kind, Data: dm})
								}
							}
						}
						walk(nested)
					}
				}
			}
		}
	}
	walk(pages[1].Data.Children)
	sortAscending(evs)
	return evs, nil
}
