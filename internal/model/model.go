package model

import "time"

// Platform identifies the origin social network of a content item.
type Platform string

const (
	PlatformReddit        Platform = "reddit"
	PlatformDiscord       Platform = "discord"
	PlatformFacebook      Platform = "facebook"
	PlatformFacebookGroup Platform = "facebook_group"
)

// SupportsAds reports whether paid campaigns can be provisioned for
// content discovered on this platform.
func (p Platform) SupportsAds() bool {
	return p == PlatformFacebook || p == PlatformFacebookGroup
}

// Kind distinguishes top-level items from replies.
type Kind string

const (
	KindPost         Kind = "post"
	KindComment      Kind = "comment"
	KindGroupPost    Kind = "group_post"
	KindGroupComment Kind = "group_comment"
)

// ContentEvent is the normalized representation for all platforms.
type ContentEvent struct {
	Platform   Platform
	Kind       Kind
	ExternalID string // platform-native id, unique within platform
	Text       string
	Target     string // subreddit / channel / page / group id
	ParentID   string // set for replies
	Author     string
	CreatedAt  time.Time // source-reported timestamp (platform clock)
	URL        string
	Raw        map[string]any // original payload, not interpreted here
}

// Key returns the de-dup key for this event.
func (e ContentEvent) Key() string { return string(e.Platform) + "::" + e.ExternalID }

// Urgency buckets how soon the author seems to want a solution.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// IntentVerdict is the classifier's structured output for one event.
type IntentVerdict struct {
	IsHighIntent     bool     `json:"isHighIntent"`
	IntentScore      int      `json:"intentScore"` // 0..100
	Topics           []string `json:"topics"`
	RelevantProducts []string `json:"relevantProducts"`
	Urgency          Urgency  `json:"urgency"`
	Reasoning        string   `json:"reasoning"`
}

// LowIntent is the verdict substituted when classification fails.
func LowIntent(reason string) IntentVerdict {
	return IntentVerdict{Urgency: UrgencyLow, Reasoning: reason}
}
