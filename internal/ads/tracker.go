package ads

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"salesradar/internal/analytics"
)

// Tracker periodically pulls delivery stats for every created ad and
// feeds them into the analytics recorder. Stats failures are logged
// and retried next round; they never reach the pipeline.
type Tracker struct {
	fetcher  InsightsFetcher
	recorder *analytics.Recorder
	interval time.Duration
	log      *logrus.Entry

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewTracker(fetcher InsightsFetcher, recorder *analytics.Recorder, interval time.Duration, log *logrus.Logger) *Tracker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Tracker{
		fetcher:  fetcher,
		recorder: recorder,
		interval: interval,
		log:      log.WithField("component", "ad_tracker"),
	}
}

// Start runs an immediate refresh, then recurring ones. Re-entrant
// Start replaces the previous schedule.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.mu.Unlock()

	go func() {
		t.refresh(ctx)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.refresh(ctx)
			}
		}
	}()
	t.log.WithField("interval", t.interval.String()).Info("ad performance tracking started")
}

func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.log.Info("ad performance tracking stopped")
}

func (t *Tracker) refresh(ctx context.Context) {
	for _, adID := range t.recorder.AdIDs() {
		ins, err := t.fetcher.FetchAdInsights(ctx, adID)
		if err != nil {
			t.log.WithField("ad_id", adID).WithError(err).Warn("fetch ad insights")
			continue
		}
		t.recorder.UpdateAdPerformance(adID, analytics.AdPerformance{
			Impressions: ins.Impressions,
			Clicks:      ins.Clicks,
			Conversions: ins.Conversions,
			Spend:       ins.Spend,
		})
	}
}
