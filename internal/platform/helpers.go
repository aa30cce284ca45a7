package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"salesradar/internal/config"
	"salesradar/internal/model"
	"salesradar/internal/util"
)

// pickStr returns the first non-empty string value among keys.
func pickStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				s2 := strings.TrimSpace(s)
				if s2 != "" {
					return s2
				}
			}
		}
	}
	return ""
}

// parseTimeFlexible handles RFC3339, epoch seconds and common layouts.
func parseTimeFlexible(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05-0700", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time: %s", s)
}

func epochToTime(v any) time.Time {
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0).UTC()
	case int64:
		return time.Unix(vv, 0).UTC()
	case json.Number:
		if sec, err := vv.Int64(); err == nil {
			return time.Unix(sec, 0).UTC()
		}
	}
	return time.Time{}
}

func retryPolicy(r config.RetryConfig) util.RetryPolicy {
	return util.RetryPolicy{MaxRetries: r.MaxRetries, Initial: r.Backoff, Max: r.MaxBackoff}
}

// getJSON performs a GET with retries and decodes the body into out.
// A fresh request is built per attempt to avoid drained Body issues.
func getJSON(ctx context.Context, client *http.Client, policy util.RetryPolicy, url string, headers map[string]string, out any) error {
	var raw []byte
	err := util.Retry(ctx, policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return util.Permanent(err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		if err := util.StatusError("fetch", resp); err != nil {
			if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
				return util.Permanent(err)
			}
			return err
		}
		b, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		raw = b
		return nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// sortAscending orders events by source creation time, oldest first.
func sortAscending(evs []model.ContentEvent) {
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].CreatedAt.Before(evs[j].CreatedAt) })
}
