package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salesradar/internal/config"
	"salesradar/internal/util"
)

func httpClientFor(cfg config.DispatchConfig) *http.Client {
	to := cfg.HTTP.Timeout
	if to == 0 {
		to = 15 * time.Second
	}
	return util.NewHTTPClient(to)
}

func postJSON(ctx context.Context, client *http.Client, u string, headers map[string]string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	if err := util.StatusError("send", resp); err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RedditTransport replies to a post or comment by fullname (thing id).
type RedditTransport struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewRedditTransport(cfg config.DispatchConfig) *RedditTransport {
	return &RedditTransport{BaseURL: "https://oauth.reddit.com", Token: cfg.RedditToken, client: httpClientFor(cfg)}
}

func (t *RedditTransport) Name() string { return "reddit" }

func (t *RedditTransport) Send(ctx context.Context, recipient, text string, meta map[string]any) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", recipient)
	form.Set("text", text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(t.BaseURL, "/")+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+t.Token)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	if err := util.StatusError("reddit send", resp); err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var out struct {
		JSON struct {
			Data struct {
				Things []struct {
					Data struct {
						Name string `json:"name"`
					} `json:"data"`
				} `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.JSON.Data.Things) == 0 {
		return "", fmt.Errorf("reddit send: no comment in response")
	}
	return out.JSON.Data.Things[0].Data.Name, nil
}

// DiscordTransport posts a message to a channel.
type DiscordTransport struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewDiscordTransport(cfg config.DispatchConfig) *DiscordTransport {
	return &DiscordTransport{BaseURL: "https://discord.com/api/v10", Token: cfg.DiscordToken, client: httpClientFor(cfg)}
}

func (t *DiscordTransport) Name() string { return "discord" }

func (t *DiscordTransport) Send(ctx context.Context, recipient, text string, meta map[string]any) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	u := strings.TrimRight(t.BaseURL, "/") + "/channels/" + recipient + "/messages"
	err := postJSON(ctx, t.client, u, map[string]string{"Authorization": "Bot " + t.Token},
		map[string]any{"content": text}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// FacebookTransport comments under a post or comment via the graph API.
type FacebookTransport struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewFacebookTransport(cfg config.DispatchConfig) *FacebookTransport {
	return &FacebookTransport{BaseURL: "https://graph.facebook.com/v17.0", Token: cfg.FacebookToken, client: httpClientFor(cfg)}
}

func (t *FacebookTransport) Name() string { return "facebook" }

func (t *FacebookTransport) Send(ctx context.Context, recipient, text string, meta map[string]any) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	u := strings.TrimRight(t.BaseURL, "/") + "/" + recipient + "/comments"
	err := postJSON(ctx, t.client, u, map[string]string{"Authorization": "Bearer " + t.Token},
		map[string]any{"message": text}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// WhatsAppTransport sends a text message to a phone number through the
// business messages endpoint.
type WhatsAppTransport struct {
	BaseURL       string
	Token         string
	PhoneNumberID string
	client        *http.Client
}

func NewWhatsAppTransport(cfg config.DispatchConfig) *WhatsAppTransport {
	return &WhatsAppTransport{
		BaseURL:       "https://graph.facebook.com/v22.0",
		Token:         cfg.FacebookToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		client:        httpClientFor(cfg),
	}
}

func (t *WhatsAppTransport) Name() string { return "whatsapp" }

func (t *WhatsAppTransport) Send(ctx context.Context, recipient, text string, meta map[string]any) (string, error) {
	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	u := strings.TrimRight(t.BaseURL, "/") + "/" + t.PhoneNumberID + "/messages"
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	err := postJSON(ctx, t.client, u, map[string]string{"Authorization": "Bearer " + t.Token}, payload, &out)
	if err != nil {
		return "", err
	}
	if len(out.Messages) == 0 {
		return "", fmt.Errorf("whatsapp send: no message id in response")
	}
	return out.Messages[0].ID, nil
}
