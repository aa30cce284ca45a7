package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salesradar/internal/config"
	"salesradar/internal/util"
)

// graphClient implements Client against the marketing graph API.
type graphClient struct {
	cfg    config.AdsConfig
	client *http.Client
	policy util.RetryPolicy
}

func NewGraphClient(cfg config.AdsConfig) Client {
	to := cfg.HTTP.Timeout
	if to == 0 {
		to = 20 * time.Second
	}
	return &graphClient{
		cfg:    cfg,
		client: util.NewHTTPClient(to),
		policy: util.RetryPolicy{MaxRetries: cfg.Retry.MaxRetries, Initial: cfg.Retry.Backoff, Max: cfg.Retry.MaxBackoff},
	}
}

func (g *graphClient) baseURL() string {
	if b := strings.TrimRight(g.cfg.BaseURL, "/"); b != "" {
		return b
	}
	return "https://graph.facebook.com/v17.0"
}

// create posts body to path and returns the new resource id.
func (g *graphClient) create(ctx context.Context, path string, body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	var id string
	err = util.Retry(ctx, g.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL()+path, bytes.NewReader(raw))
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		if err := util.StatusError("graph", resp); err != nil {
			if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
				return util.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()
		var out struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return util.Permanent(err)
		}
		if out.ID == "" {
			return util.Permanent(fmt.Errorf("graph: empty id from %s", path))
		}
		id = out.ID
		return nil
	})
	return id, err
}

func (g *graphClient) CreateCreative(ctx context.Context, spec CreativeSpec) (string, error) {
	body := map[string]any{
		"name": spec.Name,
		"object_story_spec": map[string]any{
			"page_id": spec.PageID,
			"link_data": map[string]any{
				"message":   spec.Body,
				"link":      spec.Link,
				"name":      spec.Headline,
				"image_url": spec.ImageURL,
				"call_to_action": map[string]any{
					"type": "LEARN_MORE",
				},
			},
		},
	}
	return g.create(ctx, "/act_"+g.cfg.AccountID+"/adcreatives", body)
}

func (g *graphClient) CreateCampaign(ctx context.Context, spec CampaignSpec) (string, error) {
	body := map[string]any{
		"name":                  spec.Name,
		"objective":             spec.Objective,
		"status":                spec.Status,
		"special_ad_categories": []string{},
	}
	return g.create(ctx, "/act_"+g.cfg.AccountID+"/campaigns", body)
}

func (g *graphClient) CreateAdSet(ctx context.Context, spec AdSetSpec) (string, error) {
	body := map[string]any{
		"name":              spec.Name,
		"campaign_id":       spec.CampaignID,
		"daily_budget":      spec.DailyBudgetCents,
		"targeting":         spec.Targeting,
		"optimization_goal": spec.OptimizationGoal,
		"billing_event":     spec.BillingEvent,
		"bid_amount":        spec.BidCents,
		"start_time":        spec.StartTime.Format(time.RFC3339),
		"end_time":          spec.EndTime.Format(time.RFC3339),
		"status":            spec.Status,
	}
	return g.create(ctx, "/act_"+g.cfg.AccountID+"/adsets", body)
}

func (g *graphClient) CreateAd(ctx context.Context, spec AdSpec) (string, error) {
	body := map[string]any{
		"name":     spec.Name,
		"adset_id": spec.AdSetID,
		"creative": map[string]any{"creative_id": spec.CreativeID},
		"status":   spec.Status,
	}
	return g.create(ctx, "/act_"+g.cfg.AccountID+"/ads", body)
}

// AdInsights are the per-ad stats rows used by the tracker.
type AdInsights struct {
	Impressions int
	Clicks      int
	Spend       float64
	Conversions int
}

// InsightsFetcher reads delivery stats for one ad.
type InsightsFetcher interface {
	FetchAdInsights(ctx context.Context, adID string) (AdInsights, error)
}

func (g *graphClient) FetchAdInsights(ctx context.Context, adID string) (AdInsights, error) {
	u := fmt.Sprintf("%s/%s/insights?fields=impressions,clicks,spend,actions&date_preset=last_7_days", g.baseURL(), adID)
	var rows struct {
		Data []struct {
			Impressions string `json:"impressions"`
			Clicks      string `json:"clicks"`
			Spend       string `json:"spend"`
			Actions     []struct {
				ActionType string `json:"action_type"`
				Value      string `json:"value"`
			} `json:"actions"`
		} `json:"data"`
	}
	err := util.Retry(ctx, g.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		if err := util.StatusError("graph insights", resp); err != nil {
			if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
				return util.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()
		return json.NewDecoder(resp.Body).Decode(&rows)
	})
	if err != nil {
		return AdInsights{}, err
	}
	if len(rows.Data) == 0 {
		return AdInsights{}, nil
	}
	row := rows.Data[0]
	ins := AdInsights{
		Impressions: atoiLoose(row.Impressions),
		Clicks:      atoiLoose(row.Clicks),
		Spend:       atofLoose(row.Spend),
	}
	// conversions = purchase + offsite_conversion action values
	for _, a := range row.Actions {
		if a.ActionType == "purchase" || a.ActionType == "offsite_conversion" {
			ins.Conversions += atoiLoose(a.Value)
		}
	}
	return ins, nil
}

func atoiLoose(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func atofLoose(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
