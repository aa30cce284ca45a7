package analytics

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"salesradar/internal/model"
)

// DispatchRecord links one content event, its verdict and the outcome
// of each downstream action. Created when the verdict is produced;
// each outcome field is written exactly once; records are never
// deleted by the pipeline (retention is PruneOlderThan's job).
type DispatchRecord struct {
	ID         string
	Event      model.ContentEvent
	Verdict    model.IntentVerdict
	DetectedAt time.Time

	ResponseID  string // delivery id on success
	ResponseErr string
	AdID        string
	AdErr       string
}

// Response is the append-only log entry for one dispatched reply.
type Response struct {
	ID         string
	Platform   model.Platform
	ContentID  string
	DeliveryID string
	Text       string
	At         time.Time
	Engagement *Engagement
}

// AdCreation is the append-only log entry for one provisioned ad.
type AdCreation struct {
	ID          string
	Platform    model.Platform
	ContentID   string
	AdID        string
	At          time.Time
	Performance *AdPerformance
}

type Engagement struct {
	Clicks      int
	Replies     int
	Conversions int
	UpdatedAt   time.Time
}

type AdPerformance struct {
	Impressions int
	Clicks      int
	Conversions int
	Spend       float64
	UpdatedAt   time.Time
}

// Recorder is the append-only analytics store. It is the only
// structure in the pipeline with concurrent multi-writer access;
// updates are per-record atomic under one mutex. Nothing here ever
// returns an error into the pipeline.
type Recorder struct {
	mu         sync.Mutex
	detections []*DispatchRecord
	responses  []*Response
	ads        []*AdCreation
	byID       map[string]*DispatchRecord
	respByID   map[string]*Response
	adByAdID   map[string]*AdCreation
}

func NewRecorder() *Recorder {
	return &Recorder{
		byID:     make(map[string]*DispatchRecord),
		respByID: make(map[string]*Response),
		adByAdID: make(map[string]*AdCreation),
	}
}

// LogDetection opens the dispatch record for one classified event and
// returns its id.
func (r *Recorder) LogDetection(ev model.ContentEvent, v model.IntentVerdict) string {
	rec := &DispatchRecord{
		ID:         uuid.NewString(),
		Event:      ev,
		Verdict:    v,
		DetectedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detections = append(r.detections, rec)
	r.byID[rec.ID] = rec
	return rec.ID
}

// LogResponse records the reply-dispatch outcome on the dispatch
// record and, on success, appends to the response log. Returns the
// response log id ("" on failure outcomes).
func (r *Recorder) LogResponse(recordID string, ev model.ContentEvent, deliveryID, text string, sendErr error) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.byID[recordID]
	if sendErr != nil {
		if rec != nil && rec.ResponseID == "" && rec.ResponseErr == "" {
			rec.ResponseErr = sendErr.Error()
		}
		return ""
	}
	if rec != nil && rec.ResponseID == "" && rec.ResponseErr == "" {
		rec.ResponseID = deliveryID
	}
	resp := &Response{
		ID:         uuid.NewString(),
		Platform:   ev.Platform,
		ContentID:  ev.ExternalID,
		DeliveryID: deliveryID,
		Text:       text,
		At:         time.Now().UTC(),
	}
	r.responses = append(r.responses, resp)
	r.respByID[resp.ID] = resp
	return resp.ID
}

// LogAdCreation records the ad-creation outcome. adErr carries the
// stage-tagged failure; adID is the terminal ad id on success.
func (r *Recorder) LogAdCreation(recordID string, ev model.ContentEvent, adID string, adErr error) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.byID[recordID]
	if adErr != nil {
		if rec != nil && rec.AdID == "" && rec.AdErr == "" {
			rec.AdErr = adErr.Error()
		}
		return ""
	}
	if rec != nil && rec.AdID == "" && rec.AdErr == "" {
		rec.AdID = adID
	}
	ad := &AdCreation{
		ID:        uuid.NewString(),
		Platform:  ev.Platform,
		ContentID: ev.ExternalID,
		AdID:      adID,
		At:        time.Now().UTC(),
	}
	r.ads = append(r.ads, ad)
	r.adByAdID[adID] = ad
	return ad.ID
}

// UpdateEngagement merges engagement numbers into one response record.
func (r *Recorder) UpdateEngagement(responseID string, e Engagement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp := r.respByID[responseID]
	if resp == nil {
		return
	}
	e.UpdatedAt = time.Now().UTC()
	if resp.Engagement == nil {
		resp.Engagement = &e
		return
	}
	resp.Engagement.Clicks = e.Clicks
	resp.Engagement.Replies = e.Replies
	resp.Engagement.Conversions = e.Conversions
	resp.Engagement.UpdatedAt = e.UpdatedAt
}

// UpdateAdPerformance merges the latest platform stats into one ad
// record, keyed by the external ad id.
func (r *Recorder) UpdateAdPerformance(adID string, p AdPerformance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad := r.adByAdID[adID]
	if ad == nil {
		return
	}
	p.UpdatedAt = time.Now().UTC()
	ad.Performance = &p
}

// AdIDs returns the external ids of every ad created so far.
func (r *Recorder) AdIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.ads))
	for _, a := range r.ads {
		out = append(out, a.AdID)
	}
	return out
}

// Record returns a copy of one dispatch record, for diagnostics and
// tests.
func (r *Recorder) Record(recordID string) (DispatchRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.byID[recordID]
	if rec == nil {
		return DispatchRecord{}, false
	}
	return *rec, true
}

// PruneOlderThan drops log entries older than cutoff. Dispatch records
// stay reachable until pruned; nothing else deletes them.
func (r *Recorder) PruneOlderThan(cutoff time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dets := r.detections[:0]
	for _, d := range r.detections {
		if d.DetectedAt.Before(cutoff) {
			delete(r.byID, d.ID)
			continue
		}
		dets = append(dets, d)
	}
	r.detections = dets
	resps := r.responses[:0]
	for _, resp := range r.responses {
		if resp.At.Before(cutoff) {
			delete(r.respByID, resp.ID)
			continue
		}
		resps = append(resps, resp)
	}
	r.responses = resps
	ads := r.ads[:0]
	for _, a := range r.ads {
		if a.At.Before(cutoff) {
			delete(r.adByAdID, a.AdID)
			continue
		}
		ads = append(ads, a)
	}
	r.ads = ads
}
