package analytics

// AdStats are the derived aggregates over every ad record.
type AdStats struct {
	TotalAds           int     `json:"totalAds"`
	AdsWithImpressions int     `json:"adsWithImpressions"`
	TotalImpressions   int     `json:"totalImpressions"`
	TotalClicks        int     `json:"totalClicks"`
	TotalConversions   int     `json:"totalConversions"`
	TotalSpend         float64 `json:"totalSpend"`
	CTR                float64 `json:"ctr"`
	CVR                float64 `json:"cvr"`
	CPA                float64 `json:"cpa"`
}

// PipelineStats are the derived aggregates over the whole pipeline.
type PipelineStats struct {
	TotalDetections      int     `json:"totalDetections"`
	HighIntentCount      int     `json:"highIntentCount"`
	HighIntentPercentage float64 `json:"highIntentPercentage"`
	AvgIntentScore       float64 `json:"avgIntentScore"`
	TotalResponses       int     `json:"totalResponses"`
	EngagementRate       float64 `json:"engagementRate"`
	Ads                  AdStats `json:"ads"`
}

func (r *Recorder) adStatsLocked() AdStats {
	s := AdStats{TotalAds: len(r.ads)}
	for _, a := range r.ads {
		p := a.Performance
		if p == nil {
			continue
		}
		if p.Impressions > 0 {
			s.AdsWithImpressions++
		}
		s.TotalImpressions += p.Impressions
		s.TotalClicks += p.Clicks
		s.TotalConversions += p.Conversions
		s.TotalSpend += p.Spend
	}
	if s.TotalImpressions > 0 {
		s.CTR = float64(s.TotalClicks) / float64(s.TotalImpressions) * 100
	}
	if s.TotalClicks > 0 {
		s.CVR = float64(s.TotalConversions) / float64(s.TotalClicks) * 100
	}
	if s.TotalConversions > 0 {
		s.CPA = s.TotalSpend / float64(s.TotalConversions)
	}
	return s
}

// Stats snapshots the derived aggregates. Implements the /stats source.
func (r *Recorder) Stats() any {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := PipelineStats{
		TotalDetections: len(r.detections),
		TotalResponses:  len(r.responses),
		Ads:             r.adStatsLocked(),
	}
	var scoreSum int
	for _, d := range r.detections {
		if d.Verdict.IsHighIntent {
			s.HighIntentCount++
		}
		scoreSum += d.Verdict.IntentScore
	}
	if s.TotalDetections > 0 {
		s.HighIntentPercentage = float64(s.HighIntentCount) / float64(s.TotalDetections) * 100
		s.AvgIntentScore = float64(scoreSum) / float64(s.TotalDetections)
	}
	var engaged int
	for _, resp := range r.responses {
		if resp.Engagement != nil {
			engaged++
		}
	}
	if s.TotalResponses > 0 {
		s.EngagementRate = float64(engaged) / float64(s.TotalResponses) * 100
	}
	return s
}
