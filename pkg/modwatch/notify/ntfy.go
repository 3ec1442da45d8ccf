package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Ntfy publishes messages to an ntfy topic URL as markdown.
type Ntfy struct {
	endpoint string
	client   *http.Client
}

// NewNtfy returns a deliverer for the topic URL. A non-positive timeout
// defaults to ten seconds.
func NewNtfy(topicURL string, timeout time.Duration) *Ntfy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Ntfy{
		endpoint: topicURL,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Deliverer.
func (n *Ntfy) Name() string { return "ntfy" }

// Deliver implements Deliverer.
func (n *Ntfy) Deliver(ctx context.Context, msg Message) (Result, error) {
	tags := []string{"modwatch", "tractor"}
	priority := "default"
	if msg.Color == ColorAdded {
		tags = append(tags, "new")
		priority = "high"
	}

	headers := map[string]string{
		"Title":    msg.Title,
		"Tags":     strings.Join(tags, ","),
		"Markdown": "yes",
	}
	if priority != "default" {
		headers["Priority"] = priority
	}

	res, err := post(ctx, n.client, n.endpoint, "text/markdown; charset=utf-8", strings.NewReader(msg.PlainText()), headers)
	if err != nil {
		return res, fmt.Errorf("ntfy: %w", err)
	}
	return res, nil
}

var _ Deliverer = (*Ntfy)(nil)
