package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"salesradar/internal/metrics"
	"salesradar/internal/model"
	"salesradar/internal/platform"
	"salesradar/internal/store"
)

// Handler receives every emitted event. The call blocks until the
// pipeline has accepted the event; that completion signal is the
// crawler's backpressure.
type Handler func(model.ContentEvent)

// Crawler runs the shared poll-cycle algorithm over one platform
// strategy. It owns the polling cadence and the watermarks of its
// targets; nothing else writes them.
type Crawler struct {
	strategy platform.Strategy
	marks    *store.Watermarks
	dedup    *store.Dedup // optional cross-cycle guard
	metrics  *metrics.Metrics
	log      *logrus.Entry
	handler  Handler
	now      func() time.Time

	mu      sync.Mutex
	targets []string
	tset    map[string]struct{}
	cancel  context.CancelFunc
}

func New(strategy platform.Strategy, marks *store.Watermarks, dedup *store.Dedup, m *metrics.Metrics, log *logrus.Logger) *Crawler {
	c := &Crawler{
		strategy: strategy,
		marks:    marks,
		dedup:    dedup,
		metrics:  m,
		log:      log.WithField("component", "crawler").WithField("platform", string(strategy.Platform())),
		now:      time.Now,
		tset:     make(map[string]struct{}),
	}
	c.AddTargets(strategy.Targets())
	return c
}

// OnContent registers the single content handler. Must be called
// before Start.
func (c *Crawler) OnContent(h Handler) { c.handler = h }

// AddTargets union-merges ids into the managed set. A newly added
// target starts its watermark at now: history before registration is
// never backfilled, which bounds first-poll cost and avoids a mass
// dispatch on startup.
func (c *Crawler) AddTargets(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if _, ok := c.tset[id]; ok {
			continue
		}
		c.tset[id] = struct{}{}
		c.targets = append(c.targets, id)
		c.marks.Init(c.key(id), c.now().UTC())
	}
}

func (c *Crawler) key(target string) string {
	return store.Key(string(c.strategy.Platform()), target)
}

// Start performs one poll cycle synchronously, then schedules
// recurring cycles at the strategy's interval. Calling Start again
// cancels and replaces the previous schedule. Fetches run under ctx,
// not under the schedule: Stop prevents future cycles but lets the
// in-flight one complete.
func (c *Crawler) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	schedCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	c.runCycle(ctx)

	go func() {
		ticker := time.NewTicker(c.strategy.Interval())
		defer ticker.Stop()
		for {
			select {
			case <-schedCtx.Done():
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.runCycle(ctx)
			}
		}
	}()
	c.log.WithField("interval", c.strategy.Interval().String()).Info("crawler started")
}

// RunOnce executes a single poll cycle synchronously.
func (c *Crawler) RunOnce(ctx context.Context) { c.runCycle(ctx) }

// Stop cancels scheduling. An in-flight cycle is allowed to complete.
func (c *Crawler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.log.Info("crawler stopped")
}

func (c *Crawler) snapshotTargets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.targets))
	copy(out, c.targets)
	return out
}

// runCycle polls every target once. Per target: fetch items newer than
// the watermark, emit each in ascending creation order followed by its
// qualifying replies, then mark the target for advancement. Watermarks
// move to the cycle-start wall clock, not to the max item timestamp,
// and only after the whole cycle has enumerated its targets. A failed
// target keeps its old watermark and never aborts the others.
func (c *Crawler) runCycle(ctx context.Context) {
	start := c.now().UTC()
	pname := string(c.strategy.Platform())
	defer func() {
		c.metrics.CycleDuration.WithLabelValues(pname).Observe(time.Since(start).Seconds())
		c.metrics.PollCycles.WithLabelValues(pname).Inc()
	}()

	seen := make(map[string]struct{}) // (platform, externalId) guard for this cycle
	var advance []string

	for _, target := range c.snapshotTargets() {
		key := c.key(target)
		wm, _ := c.marks.Get(key)
		tlog := c.log.WithField("target", target)

		items, err := c.strategy.FetchSince(ctx, target, wm)
		if err != nil {
			tlog.WithError(err).Warn("fetch failed, watermark not advanced")
			c.metrics.FetchErrors.WithLabelValues(pname, target).Inc()
			continue
		}

		failed := false
		emitted := 0
		for _, item := range items {
			if !item.CreatedAt.After(wm) {
				continue
			}
			emitted += c.emit(item, seen)

			replies, err := c.strategy.FetchReplies(ctx, item)
			if err != nil {
				tlog.WithError(err).Warn("reply fetch failed, watermark not advanced")
				c.metrics.FetchErrors.WithLabelValues(pname, target).Inc()
				failed = true
				break
			}
			for _, rep := range replies {
				if rep.CreatedAt.After(wm) {
					emitted += c.emit(rep, seen)
				}
			}
		}
		if failed {
			continue
		}
		if emitted > 0 {
			tlog.WithField("events", emitted).Debug("cycle emitted events")
		}
		advance = append(advance, key)
	}

	// Advance-after-emit: a crash mid-cycle re-delivers instead of
	// silently dropping.
	for _, key := range advance {
		c.marks.Advance(key, start)
	}
}

func (c *Crawler) emit(ev model.ContentEvent, seen map[string]struct{}) int {
	key := ev.Key()
	if _, dup := seen[key]; dup {
		return 0
	}
	seen[key] = struct{}{}
	if c.dedup != nil {
		if c.dedup.Seen(key) {
			return 0
		}
		c.dedup.Mark(key)
	}
	c.metrics.EventsDiscovered.WithLabelValues(string(ev.Platform), string(ev.Kind)).Inc()
	if c.handler != nil {
		c.handler(ev)
	}
	return 1
}
