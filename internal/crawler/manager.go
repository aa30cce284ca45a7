package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"salesradar/internal/ads"
	"salesradar/internal/analytics"
	"salesradar/internal/classify"
	"salesradar/internal/dispatch"
	"salesradar/internal/metrics"
	"salesradar/internal/model"
)

// Manager fans crawler output through a bounded queue into the
// classification and response pipeline. The queue is the system's
// backpressure: when it is full, crawler handlers block and poll
// cycles slow down instead of events being dropped.
type Manager struct {
	crawlers   []*Crawler
	classifier classify.Classifier
	generator  classify.ReplyGenerator
	dispatcher *dispatch.Dispatcher
	builder    *ads.Builder // nil when ad provisioning is disabled
	recorder   *analytics.Recorder
	metrics    *metrics.Metrics
	log        *logrus.Entry

	threshold int
	queue     chan model.ContentEvent

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type ManagerOptions struct {
	Classifier     classify.Classifier
	Generator      classify.ReplyGenerator
	Dispatcher     *dispatch.Dispatcher
	Builder        *ads.Builder
	Recorder       *analytics.Recorder
	Metrics        *metrics.Metrics
	QueueSize      int
	ScoreThreshold int
}

func NewManager(crawlers []*Crawler, opts ManagerOptions, log *logrus.Logger) *Manager {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.ScoreThreshold <= 0 {
		opts.ScoreThreshold = 70
	}
	m := &Manager{
		crawlers:   crawlers,
		classifier: opts.Classifier,
		generator:  opts.Generator,
		dispatcher: opts.Dispatcher,
		builder:    opts.Builder,
		recorder:   opts.Recorder,
		metrics:    opts.Metrics,
		log:        log.WithField("component", "manager"),
		threshold:  opts.ScoreThreshold,
		queue:      make(chan model.ContentEvent, opts.QueueSize),
	}
	for _, c := range crawlers {
		c.OnContent(m.enqueue)
	}
	return m
}

// StartAll launches the pipeline worker and every crawler. Each
// crawler starts in its own goroutine so one platform's synchronous
// first cycle never delays the others.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case ev := <-m.queue:
				m.metrics.QueueDepth.Set(float64(len(m.queue)))
				m.process(runCtx, ev)
			}
		}
	}()

	for _, c := range m.crawlers {
		c := c
		go c.Start(runCtx)
	}
	m.log.WithField("crawlers", len(m.crawlers)).Info("pipeline started")
}

// RunOnce executes a single poll cycle on every crawler, processing
// events inline instead of through the queue.
func (m *Manager) RunOnce(ctx context.Context) {
	for _, c := range m.crawlers {
		c.OnContent(func(ev model.ContentEvent) { m.process(ctx, ev) })
		c.RunOnce(ctx)
		c.OnContent(m.enqueue)
	}
}

// StopAll stops the crawlers, lets the worker drain the queue, then
// cancels it and waits for exit.
func (m *Manager) StopAll() {
	for _, c := range m.crawlers {
		c.Stop()
	}
	for len(m.queue) > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
	m.wg.Wait()
	m.log.Info("pipeline stopped")
}

func (m *Manager) enqueue(ev model.ContentEvent) {
	m.queue <- ev
	m.metrics.QueueDepth.Set(float64(len(m.queue)))
}

// process runs one event through classification, response dispatch,
// and ad provisioning. A classification failure degrades to a
// low-intent verdict; a response failure never blocks the ad path and
// vice versa. Errors end up in the recorder, not back in the crawler.
func (m *Manager) process(ctx context.Context, ev model.ContentEvent) {
	elog := m.log.WithFields(logrus.Fields{
		"platform": string(ev.Platform),
		"id":       ev.ExternalID,
	})

	verdict, err := m.classifier.Classify(ctx, ev.Text)
	if err != nil {
		elog.WithError(err).Warn("classification failed, treating as low intent")
		m.metrics.Classifications.WithLabelValues("error").Inc()
		verdict = model.LowIntent("classification failed: " + err.Error())
	} else if verdict.IsHighIntent {
		m.metrics.Classifications.WithLabelValues("high_intent").Inc()
	} else {
		m.metrics.Classifications.WithLabelValues("low_intent").Inc()
	}

	recordID := m.recorder.LogDetection(ev, verdict)
	if !verdict.IsHighIntent {
		return
	}
	elog.WithField("score", verdict.IntentScore).Info("high intent content detected")

	m.respond(ctx, recordID, ev, verdict, elog)

	if m.builder != nil && ev.Platform.SupportsAds() && verdict.IntentScore > m.threshold {
		m.provision(ctx, recordID, ev, verdict, elog)
	}
}

func (m *Manager) respond(ctx context.Context, recordID string, ev model.ContentEvent, verdict model.IntentVerdict, elog *logrus.Entry) {
	pname := string(ev.Platform)

	text, err := m.generator.GenerateReply(ctx, ev.Text, ev.Platform, verdict)
	if err != nil {
		elog.WithError(err).Warn("response generation failed")
		m.metrics.ResponsesSent.WithLabelValues(pname, "generation_error").Inc()
		m.recorder.LogResponse(recordID, ev, "", "", err)
		return
	}

	deliveryID, err := m.dispatcher.Send(ctx, ev.Platform, dispatch.RecipientFor(ev), text, ev.Raw)
	if err != nil {
		elog.WithError(err).Warn("response dispatch failed")
		m.metrics.ResponsesSent.WithLabelValues(pname, "error").Inc()
	} else {
		m.metrics.ResponsesSent.WithLabelValues(pname, "ok").Inc()
	}
	m.recorder.LogResponse(recordID, ev, deliveryID, text, err)
}

func (m *Manager) provision(ctx context.Context, recordID string, ev model.ContentEvent, verdict model.IntentVerdict, elog *logrus.Entry) {
	res := m.builder.Build(ctx, ev, verdict)
	if res.Succeeded() {
		elog.WithField("ad_id", res.AdID).Info("ad campaign created")
		m.metrics.AdsCreated.WithLabelValues("ok").Inc()
		m.recorder.LogAdCreation(recordID, ev, res.AdID, nil)
		return
	}
	elog.WithError(res.Err).WithFields(logrus.Fields{
		"stage":       string(res.Stage),
		"creative_id": res.CreativeID,
		"campaign_id": res.CampaignID,
		"adset_id":    res.AdSetID,
	}).Warn("ad campaign creation failed")
	m.metrics.AdsCreated.WithLabelValues("failed").Inc()
	m.recorder.LogAdCreation(recordID, ev, "", res.Err)
}
