package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesradar/internal/config"
	"salesradar/internal/model"
)

func TestNewFromConfig(t *testing.T) {
	for _, typ := range []string{"reddit", "discord", "facebook_page", "facebook_group"} {
		s, err := NewFromConfig(config.CrawlerConfig{Type: typ})
		require.NoError(t, err, typ)
		require.NotNil(t, s, typ)
	}
	_, err := NewFromConfig(config.CrawlerConfig{Type: "myspace"})
	assert.Error(t, err)
}

func TestRedditFetchSince(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/r/golang/new.json", r.URL.Path)
		assert.Equal(t, "Bearer reddit-token", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `{"data":{"children":[
			{"kind":"t3","data":{"name":"t3_new","title":"Need a CRM","selftext":"any recs?","author":"alice","created_utc":%d,"permalink":"/r/golang/1"}},
			{"kind":"t3","data":{"name":"t3_old","title":"old","author":"bob","created_utc":%d,"permalink":"/r/golang/2"}}
		]}}`, base.Add(time.Minute).Unix(), base.Add(-time.Hour).Unix())
	}))
	defer srv.Close()

	s := NewReddit(config.RedditConfig{BaseURL: srv.URL, Token: "reddit-token", Subreddits: []string{"golang"}})
	evs, err := s.FetchSince(context.Background(), "golang", base)
	require.NoError(t, err)

	require.Len(t, evs, 1, "items at or before the boundary are dropped")
	ev := evs[0]
	assert.Equal(t, model.PlatformReddit, ev.Platform)
	assert.Equal(t, model.KindPost, ev.Kind)
	assert.Equal(t, "t3_new", ev.ExternalID)
	assert.Equal(t, "Need a CRM\nany recs?", ev.Text)
	assert.Equal(t, "alice", ev.Author)
	assert.Equal(t, "golang", ev.Target)
	assert.True(t, ev.CreatedAt.Equal(base.Add(time.Minute)))
}

func TestRedditFetchRepliesWalksNested(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comments/abc.json", r.URL.Path)
		fmt.Fprintf(w, `[
			{"data":{"children":[]}},
			{"data":{"children":[
				{"kind":"t1","data":{"name":"t1_b","body":"second","author":"bob","created_utc":%d,
					"replies":{"data":{"children":[
						{"kind":"t1","data":{"name":"t1_c","body":"nested","author":"carol","created_utc":%d}}
					]}}}},
				{"kind":"t1","data":{"name":"t1_a","body":"first","author":"alice","created_utc":%d}},
				{"kind":"more","data":{}}
			]}}
		]`, base.Add(2*time.Minute).Unix(), base.Add(3*time.Minute).Unix(), base.Add(time.Minute).Unix())
	}))
	defer srv.Close()

	s := NewReddit(config.RedditConfig{BaseURL: srv.URL})
	parent := model.ContentEvent{
		Platform:   model.PlatformReddit,
		ExternalID: "t3_abc",
		Target:     "golang",
		URL:        "https://reddit.com/r/golang/1/",
		Raw:        map[string]any{"id": "abc"},
	}
	evs, err := s.FetchReplies(context.Background(), parent)
	require.NoError(t, err)

	require.Len(t, evs, 3, "nested replies are flattened, non-comments skipped")
	assert.Equal(t, "t1_a", evs[0].ExternalID, "ascending by creation time")
	assert.Equal(t, "t1_b", evs[1].ExternalID)
	assert.Equal(t, "t1_c", evs[2].ExternalID)
	for _, ev := range evs {
		assert.Equal(t, model.KindComment, ev.Kind)
		assert.Equal(t, "t3_abc", ev.ParentID)
		assert.Equal(t, "golang", ev.Target)
	}
}

func TestFacebookFetchSince(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page1/feed", r.URL.Path)
		assert.Equal(t, fmt.Sprint(base.Unix()), r.URL.Query().Get("since"))
		fmt.Fprintf(w, `{"data":[
			{"id":"p2","message":"later","created_time":%q,"from":{"name":"Beth"}},
			{"id":"p1","message":"earlier","created_time":%q,"from":{"name":"Ann"}}
		]}`, base.Add(2*time.Minute).Format(time.RFC3339), base.Add(time.Minute).Format(time.RFC3339))
	}))
	defer srv.Close()

	s := NewFacebook(config.FacebookConfig{BaseURL: srv.URL, Pages: []string{"page1"}}, false)
	evs, err := s.FetchSince(context.Background(), "page1", base)
	require.NoError(t, err)

	require.Len(t, evs, 2)
	assert.Equal(t, "p1", evs[0].ExternalID, "ascending by creation time")
	assert.Equal(t, "p2", evs[1].ExternalID)
	assert.Equal(t, model.PlatformFacebook, evs[0].Platform)
	assert.Equal(t, model.KindPost, evs[0].Kind)
	assert.Equal(t, "Ann", evs[0].Author)
}

func TestFacebookGroupKindsAndReplies(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/grp1_post1/comments", r.URL.Path)
		fmt.Fprintf(w, `{"data":[
			{"id":"c1","message":"me too","created_time":%q,"from":{"name":"Cody"}},
			{"id":"c2","message":"same here","created_time":%q}
		]}`, base.Add(time.Minute).Format(time.RFC3339), base.Add(2*time.Minute).Format(time.RFC3339))
	}))
	defer srv.Close()

	s := NewFacebook(config.FacebookConfig{BaseURL: srv.URL, Groups: []string{"grp1"}}, true)
	assert.Equal(t, model.PlatformFacebookGroup, s.Platform())

	parent := model.ContentEvent{
		Platform:   model.PlatformFacebookGroup,
		ExternalID: "grp1_post1",
		Target:     "grp1",
	}
	evs, err := s.FetchReplies(context.Background(), parent)
	require.NoError(t, err)

	require.Len(t, evs, 2)
	assert.Equal(t, model.KindGroupComment, evs[0].Kind)
	assert.Equal(t, "grp1_post1", evs[0].ParentID)
	assert.Equal(t, "Cody", evs[0].Author)
	assert.Equal(t, "Unknown", evs[1].Author, "missing from block falls back")
}

func TestDiscordFetchSince(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/chan1/messages", r.URL.Path)
		assert.Equal(t, "Bot discord-token", r.Header.Get("Authorization"))
		fmt.Fprintf(w, `[
			{"id":"m2","content":"anyone know a good tool?","timestamp":%q,"author":{"username":"dana"}},
			{"id":"m1","content":"old message","timestamp":%q,"author":{"username":"eve"}}
		]`, base.Add(time.Minute).Format(time.RFC3339), base.Add(-time.Hour).Format(time.RFC3339))
	}))
	defer srv.Close()

	s := NewDiscord(config.DiscordConfig{BaseURL: srv.URL, BotToken: "discord-token", Channels: []string{"chan1"}})
	evs, err := s.FetchSince(context.Background(), "chan1", base)
	require.NoError(t, err)

	require.Len(t, evs, 1)
	assert.Equal(t, "m2", evs[0].ExternalID)
	assert.Equal(t, "dana", evs[0].Author)

	replies, err := s.FetchReplies(context.Background(), evs[0])
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestFetchSinceRetriesServerErrors(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data":{"children":[]}}`)
	}))
	defer srv.Close()

	s := NewReddit(config.RedditConfig{
		BaseURL: srv.URL,
		Retry:   config.RetryConfig{MaxRetries: 2, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	})
	_, err := s.FetchSince(context.Background(), "golang", base)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchSinceDoesNotRetryClientErrors(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewReddit(config.RedditConfig{
		BaseURL: srv.URL,
		Retry:   config.RetryConfig{MaxRetries: 3, Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	})
	_, err := s.FetchSince(context.Background(), "golang", base)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
