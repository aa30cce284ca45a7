// Package dispatch delivers generated replies back to the platform the
// content came from. Platform selection is a pure mapping; an
// unregistered platform is a caller error, not a retryable condition.
package dispatch

import (
	"context"
	"fmt"

	"salesradar/internal/model"
)

var ErrUnsupportedPlatform = fmt.Errorf("dispatch: unsupported platform")

// Transport sends one message to a platform-native recipient and
// returns the platform's delivery id.
type Transport interface {
	Name() string
	Send(ctx context.Context, recipient, text string, meta map[string]any) (string, error)
}

type Dispatcher struct {
	transports map[model.Platform]Transport
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{transports: make(map[model.Platform]Transport)}
}

func (d *Dispatcher) Register(p model.Platform, t Transport) {
	d.transports[p] = t
}

func (d *Dispatcher) Send(ctx context.Context, platform model.Platform, recipient, text string, meta map[string]any) (string, error) {
	t, ok := d.transports[platform]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platform)
	}
	return t.Send(ctx, recipient, text, meta)
}

// RecipientFor maps an event to the platform-appropriate addressing
// scheme: thread/comment id for reddit, channel id for discord, post
// or comment id for facebook.
func RecipientFor(ev model.ContentEvent) string {
	switch ev.Platform {
	case model.PlatformDiscord:
		return ev.Target
	default:
		return ev.ExternalID
	}
}
