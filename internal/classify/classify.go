// Package classify holds the pipeline's opaque-text-intelligence
// boundary: intent classification and reply generation. Both are
// best-effort; the caller substitutes model.LowIntent on failure.
package classify

import (
	"context"

	"salesradar/internal/model"
)

type Classifier interface {
	Classify(ctx context.Context, text string) (model.IntentVerdict, error)
}

type ReplyGenerator interface {
	GenerateReply(ctx context.Context, originalText string, platform model.Platform, verdict model.IntentVerdict) (string, error)
}
