package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/beeep"
)

// Desktop raises a local desktop notification with a one-line summary.
type Desktop struct {
	notify func(title, message string) error
}

// NewDesktop returns a deliverer backed by the platform notifier.
func NewDesktop() *Desktop {
	return &Desktop{notify: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

// Name implements Deliverer.
func (d *Desktop) Name() string { return "desktop" }

// Deliver implements Deliverer. The first section names the first change;
// the summary section is always last.
func (d *Desktop) Deliver(ctx context.Context, msg Message) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	changes := len(msg.Sections) - 1
	if changes < 0 {
		changes = 0
	}
	body := fmt.Sprintf("%d mod change(s) detected", changes)
	if changes > 0 {
		body += ": " + stripMarkdown(msg.Sections[0].Name)
		if changes > 1 {
			body += fmt.Sprintf(" and %d more", changes-1)
		}
	}

	if err := d.notify(stripMarkdown(msg.Title), body); err != nil {
		return Result{}, fmt.Errorf("desktop notification: %w", err)
	}
	return Result{Delivered: true}, nil
}

// stripMarkdown drops bold markers. Underscores stay, mod names use them.
func stripMarkdown(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

var _ Deliverer = (*Desktop)(nil)
