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

// facebookStrategy covers both pages and groups; the two differ only
// in the kind they stamp and the permalink shape.
type facebookStrategy struct {
	cfg    config.FacebookConfig
	group  bool
	client *http.Client
	policy util.RetryPolicy
}

func NewFacebook(cfg config.FacebookConfig, group bool) Strategy {
	to := cfg.HTTP.Timeout
	if to == 0 {
		to = 15 * time.Second
	}
	return &facebookStrategy{cfg: cfg, group: group, client: util.NewHTTPClient(to), policy: retryPolicy(cfg.Retry)}
}

func (f *facebookStrategy) Platform() model.Platform {
	if f.group {
		return model.PlatformFacebookGroup
	}
	return model.PlatformFacebook
}

func (f *facebookStrategy) Targets() []string {
	if f.group {
		return f.cfg.Groups
	}
	return f.cfg.Pages
}

func (f *facebookStrategy) Interval() time.Duration {
	if f.cfg.Interval > 0 {
		return f.cfg.Interval
	}
	return 5 * time.Minute
}

func (f *facebookStrategy) baseURL() string {
	if b := strings.TrimRight(f.cfg.BaseURL, "/"); b != "" {
		return b
	}
	return "https://graph.facebook.com/v17.0"
}

func (f *facebookStrategy) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer " + f.cfg.Token}
	if ua := f.cfg.HTTP.UserAgent; ua != "" {
		h["User-Agent"] = ua
	}
	return h
}

func (f *facebookStrategy) postKind() model.Kind {
	if f.group {
		return model.KindGroupPost
	}
	return model.KindPost
}

func (f *facebookStrategy) commentKind() model.Kind {
	if f.group {
		return model.KindGroupComment
	}
	return model.KindComment
}

func (f *facebookStrategy) postURL(target, id string) string {
	if f.group {
		return fmt.Sprintf("https://facebook.com/groups/%s/posts/%s", target, id)
	}
	return "https://facebook.com/" + id
}

// graphPage matches the {"data":[{...}]} envelope of feed and comment
// edges.
type graphPage struct {
	Data []map[string]any `json:"data"`
}

func (f *facebookStrategy) FetchSince(ctx context.Context, target string, since time.Time) ([]model.ContentEvent, error) {
	url := fmt.Sprintf("%s/%s/feed?fields=id,message,created_time,from&since=%d&limit=25",
		f.baseURL(), target, since.Unix())
	var page graphPage
	if err := getJSON(ctx, f.client, f.policy, url, f.headers(), &page); err != nil {
		return nil, err
	}

	evs := make([]model.ContentEvent, 0, len(page.Data))
	for _, m := range page.Data {
		created, err := parseTimeFlexible(pickStr(m, "created_time"))
		if err != nil || !created.After(since) {
			continue
		}
		id := pickStr(m, "id")
		evs = append(evs, model.ContentEvent{
			Platform:   f.Platform(),
			Kind:       f.postKind(),
			ExternalID: id,
			Text:       pickStr(m, "message"),
			Target:     target,
			Author:     graphAuthor(m),
			CreatedAt:  created,
			URL:        f.postURL(target, id),
			Raw:        m,
		})
	}
	sortAscending(evs)
	return evs, nil
}

func (f *facebookStrategy) FetchReplies(ctx context.Context, parent model.ContentEvent) ([]model.ContentEvent, error) {
	url := fmt.Sprintf("%s/%s/comments?fields=id,message,created_time,from&limit=50",
		f.baseURL(), parent.ExternalID)
	var page graphPage
	if err := getJSON(ctx, f.client, f.policy, url, f.headers(), &page); err != nil {
		return nil, err
	}

	evs := make([]model.ContentEvent, 0, len(page.Data))
	for _, m := range page.Data {
		created, err := parseTimeFlexible(pickStr(m, "created_time"))
		if err != nil {
			continue
		}
		id := pickStr(m, "id")
		evs = append(evs, model.ContentEvent{
			Platform:   parent.Platform,
			Kind:       f.commentKind(),
			ExternalID: id,
			Text:       pickStr(m, "message"),
			Target:     parent.Target,
			ParentID:   parent.ExternalID,
			Author:     graphAuthor(m),
			CreatedAt:  created,
			URL:        "https://facebook.com/" + id,
			Raw:        m,
		})
	}
	sortAscending(evs)
	return evs, nil
}

func graphAuthor(m map[string]any) string {
	if from, ok := m["from"].(map[string]any); ok {
		if name := pickStr(from, "name"); name != "" {
			return name
		}
	}
	return "Unknown"
}
