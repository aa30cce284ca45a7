package ads

import (
	"context"
	"fmt"
	"time"

	"salesradar/internal/config"
	"salesradar/internal/model"
)

// Stage is a state of one ad-creation job. Stages are strictly
// ordered; a job never skips or reorders them.
type Stage string

const (
	StageStart           Stage = "START"
	StageCreativeCreated Stage = "CREATIVE_CREATED"
	StageCampaignCreated Stage = "CAMPAIGN_CREATED"
	StageAdSetCreated    Stage = "ADSET_CREATED"
	StageAdCreated       Stage = "AD_CREATED"
)

// StageError tags a submission failure with the resource whose
// creation failed.
type StageError struct {
	Op  string // creative | campaign | adset | ad
	Err error
}

func (e *StageError) Error() string { return fmt.Sprintf("ad stage %s: %v", e.Op, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Result is the terminal report of one job. On failure it names the
// stage reached and keeps every id created so far: orphaned resources
// are never rolled back automatically, they are reported so cleanup
// can happen out of band. Automatic deletion could destroy a resource
// a human already started adjusting.
type Result struct {
	Stage      Stage
	CreativeID string
	CampaignID string
	AdSetID    string
	AdID       string
	Err        error
}

func (r Result) Succeeded() bool { return r.Stage == StageAdCreated && r.Err == nil }

// CreativeSpec is the stage-1 submission payload.
type CreativeSpec struct {
	Name     string
	PageID   string
	Headline string
	Body     string
	Link     string
	ImageURL string
}

// CampaignSpec is the stage-2 submission payload.
type CampaignSpec struct {
	Name      string
	Objective string
	Status    string
}

// AdSetSpec is the stage-3 submission payload.
type AdSetSpec struct {
	Name             string
	CampaignID       string
	DailyBudgetCents int
	BidCents         int
	Targeting        Targeting
	OptimizationGoal string
	BillingEvent     string
	StartTime        time.Time
	EndTime          time.Time
	Status           string
}

// AdSpec is the stage-4 submission payload.
type AdSpec struct {
	Name       string
	AdSetID    string
	CreativeID string
	Status     string
}

// Client is the ad-platform boundary: four submission calls, each
// returning an external id or an error.
type Client interface {
	CreateCreative(ctx context.Context, spec CreativeSpec) (string, error)
	CreateCampaign(ctx context.Context, spec CampaignSpec) (string, error)
	CreateAdSet(ctx context.Context, spec AdSetSpec) (string, error)
	CreateAd(ctx context.Context, spec AdSpec) (string, error)
}

// Builder sequences the four-stage resource chain for one qualifying
// verdict. It performs no deduplication against repeated invocation
// for the same event; the caller gates on the score threshold once per
// event.
type Builder struct {
	client Client
	cfg    config.AdsConfig
	now    func() time.Time
}

func NewBuilder(client Client, cfg config.AdsConfig) *Builder {
	return &Builder{client: client, cfg: cfg, now: time.Now}
}

// Build runs the job to its terminal state. Every id created before a
// failure is preserved in the result.
func (b *Builder) Build(ctx context.Context, ev model.ContentEvent, v model.IntentVerdict) Result {
	res := Result{Stage: StageStart}
	now := b.now().UTC()
	date := now.Format("2006-01-02")
	topic := firstTopic(v)

	link := b.cfg.WebsiteURL
	if link == "" {
		link = "https://example.com"
	}
	creativeID, err := b.client.CreateCreative(ctx, CreativeSpec{
		Name:     fmt.Sprintf("Creative_%s_%s", topic, date),
		PageID:   b.cfg.PageID,
		Headline: Headline(v),
		Body:     Body(v),
		Link:     link,
		ImageURL: ProductImage(firstProduct(v)),
	})
	if err != nil {
		res.Err = &StageError{Op: "creative", Err: err}
		return res
	}
	res.CreativeID = creativeID
	res.Stage = StageCreativeCreated

	campaignID, err := b.client.CreateCampaign(ctx, CampaignSpec{
		Name:      fmt.Sprintf("Auto_Intent_%s_%s", date, topic),
		Objective: "CONVERSIONS",
		Status:    "ACTIVE",
	})
	if err != nil {
		res.Err = &StageError{Op: "campaign", Err: err}
		return res
	}
	res.CampaignID = campaignID
	res.Stage = StageCampaignCreated

	budget := b.cfg.DailyBudgetCents
	if budget <= 0 {
		budget = 5000
	}
	bid := b.cfg.BidCents
	if bid <= 0 {
		bid = 500
	}
	window := b.cfg.RunWindow
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	adSetID, err := b.client.CreateAdSet(ctx, AdSetSpec{
		Name:             fmt.Sprintf("AdSet_%s_%d", topic, v.IntentScore),
		CampaignID:       campaignID,
		DailyBudgetCents: budget,
		BidCents:         bid,
		Targeting:        BuildTargeting(v, b.cfg.Countries),
		OptimizationGoal: "CONVERSIONS",
		BillingEvent:     "IMPRESSIONS",
		StartTime:        now,
		EndTime:          now.Add(window),
		Status:           "ACTIVE",
	})
	if err != nil {
		res.Err = &StageError{Op: "adset", Err: err}
		return res
	}
	res.AdSetID = adSetID
	res.Stage = StageAdSetCreated

	adID, err := b.client.CreateAd(ctx, AdSpec{
		Name:       fmt.Sprintf("Ad_%s_%s", topic, date),
		AdSetID:    adSetID,
		CreativeID: creativeID,
		Status:     "ACTIVE",
	})
	if err != nil {
		res.Err = &StageError{Op: "ad", Err: err}
		return res
	}
	res.AdID = adID
	res.Stage = StageAdCreated
	return res
}

func firstProduct(v model.IntentVerdict) string {
	if len(v.RelevantProducts) > 0 {
		return v.RelevantProducts[0]
	}
	return "default"
}
