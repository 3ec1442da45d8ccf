package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// Discord webhook limits.
const (
	discordMaxFields     = 25
	discordMaxEmbeds     = 10
	discordMaxFieldName  = 256
	discordMaxFieldValue = 1024
	discordMaxTitle      = 256
	discordMaxFooter     = 2048
	discordMaxChars      = 6000
)

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title     string         `json:"title,omitempty"`
	Color     int            `json:"color"`
	Timestamp string         `json:"timestamp,omitempty"`
	Footer    *discordFooter `json:"footer,omitempty"`
	Fields    []discordField `json:"fields"`
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

// Discord posts messages to a Discord webhook as embeds.
type Discord struct {
	url    string
	client *http.Client
}

// NewDiscord returns a deliverer for webhookURL. A non-positive timeout
// defaults to ten seconds.
func NewDiscord(webhookURL string, timeout time.Duration) *Discord {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Discord{
		url:    webhookURL,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Deliverer.
func (d *Discord) Name() string { return "discord" }

// Deliver posts msg. Messages with more sections than one embed holds are
// split across embeds, and across requests once a request reaches the
// embed count or character limit.
func (d *Discord) Deliver(ctx context.Context, msg Message) (Result, error) {
	var res Result
	for _, embeds := range discordRequests(msg) {
		r, err := d.send(ctx, discordPayload{Embeds: embeds})
		res = r
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// SendText posts a plain content message.
func (d *Discord) SendText(ctx context.Context, text string) (Result, error) {
	return d.send(ctx, discordPayload{Content: text})
}

func (d *Discord) send(ctx context.Context, payload discordPayload) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode discord payload: %w", err)
	}

	res, err := post(ctx, d.client, d.url, "application/json", bytes.NewReader(body), nil)
	if err != nil {
		return res, fmt.Errorf("discord webhook: %w", err)
	}
	return res, nil
}

// discordRequests lays msg out as request bodies. Each request holds at
// most discordMaxEmbeds embeds of at most discordMaxFields fields, and at
// most discordMaxChars characters across titles, fields and footers. The
// first embed carries the title and the last one the footer and timestamp.
func discordRequests(msg Message) [][]discordEmbed {
	title := truncate(msg.Title, discordMaxTitle)
	footer := truncate(msg.Footer, discordMaxFooter)

	// Room for the footer is kept in every request; only the last one
	// gets it, but which one is last is not known until the end.
	reserved := utf8.RuneCountInString(footer)

	var (
		requests [][]discordEmbed
		current  []discordEmbed
		used     int
	)
	open := func() {
		current = append(current, discordEmbed{Color: msg.Color, Fields: []discordField{}})
	}
	flush := func() {
		requests = append(requests, current)
		current = nil
		used = reserved
		open()
	}

	used = reserved
	open()
	current[0].Title = title
	used += utf8.RuneCountInString(title)

	for _, s := range msg.Sections {
		f := discordField{
			Name:  truncate(s.Name, discordMaxFieldName),
			Value: truncate(s.Value, discordMaxFieldValue),
		}
		size := utf8.RuneCountInString(f.Name) + utf8.RuneCountInString(f.Value)

		switch {
		case used+size > discordMaxChars:
			flush()
		case len(current[len(current)-1].Fields) == discordMaxFields:
			if len(current) == discordMaxEmbeds {
				flush()
			} else {
				open()
			}
		}

		last := &current[len(current)-1]
		last.Fields = append(last.Fields, f)
		used += size
	}
	requests = append(requests, current)

	final := requests[len(requests)-1]
	last := &final[len(final)-1]
	if !msg.Timestamp.IsZero() {
		last.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	if footer != "" {
		last.Footer = &discordFooter{Text: footer}
	}
	return requests
}

// truncate shortens s to at most limit runes, marking the cut with an
// ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

var _ Deliverer = (*Discord)(nil)
