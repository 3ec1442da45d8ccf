package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Multi delivers to several channels in order. Every channel is attempted
// even when an earlier one fails.
type Multi []Deliverer

// Name implements Deliverer.
func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, d := range m {
		names[i] = d.Name()
	}
	return strings.Join(names, "+")
}

// Deliver implements Deliverer. The result is delivered only if every
// channel succeeded; StatusCode is the first non-zero code seen.
func (m Multi) Deliver(ctx context.Context, msg Message) (Result, error) {
	res := Result{Delivered: true}
	var errs []error

	for _, d := range m {
		r, err := d.Deliver(ctx, msg)
		if res.StatusCode == 0 {
			res.StatusCode = r.StatusCode
		}
		if err != nil {
			res.Delivered = false
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		if !r.Delivered {
			res.Delivered = false
		}
	}

	return res, errors.Join(errs...)
}

// Noop accepts every message without sending it.
type Noop struct{}

// Name implements Deliverer.
func (Noop) Name() string { return "none" }

// Deliver implements Deliverer.
func (Noop) Deliver(_ context.Context, msg Message) (Result, error) {
	logger.Debug("no notification channel configured", "title", msg.Title, "sections", len(msg.Sections))
	return Result{Delivered: true}, nil
}

// Channels describes which deliverers to build.
type Channels struct {
	DiscordWebhookURL string
	NtfyURL           string
	Desktop           bool
	Timeout           time.Duration
}

// FromChannels builds a deliverer for every configured channel. With none
// configured it returns Noop; with one it returns that deliverer directly.
func FromChannels(c Channels) Deliverer {
	var ds Multi
	if u := strings.TrimSpace(c.DiscordWebhookURL); u != "" {
		ds = append(ds, NewDiscord(u, c.Timeout))
	}
	if u := strings.TrimSpace(c.NtfyURL); u != "" {
		ds = append(ds, NewNtfy(u, c.Timeout))
	}
	if c.Desktop {
		ds = append(ds, NewDesktop())
	}

	switch len(ds) {
	case 0:
		return Noop{}
	case 1:
		return ds[0]
	default:
		return ds
	}
}

var (
	_ Deliverer = Multi(nil)
	_ Deliverer = Noop{}
)
