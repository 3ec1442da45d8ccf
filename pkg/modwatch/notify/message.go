// Package notify renders mod changes into a structured message and delivers
// it to webhook and desktop channels.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/jamesainslie/modwatch/pkg/modwatch/diff"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// DefaultTitle is the message title used when none is configured.
const DefaultTitle = "🚜 Farming Simulator 25 - Mod Changes Detected"

// Message colors.
const (
	ColorAdded   = 0x00FF00
	ColorChanged = 0xFF9900
)

const footerLayout = "2006-01-02 03:04 PM"

// Section is one titled block of a message.
type Section struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Message is a channel-independent rendering of a change report.
type Message struct {
	Title     string    `json:"title" yaml:"title"`
	Color     int       `json:"color" yaml:"color"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Sections  []Section `json:"sections" yaml:"sections"`
	Footer    string    `json:"footer" yaml:"footer"`
}

// BuildOptions tunes message rendering.
type BuildOptions struct {
	// Title overrides DefaultTitle when non-empty.
	Title string
	// Now is the check time. Zero means time.Now().
	Now time.Time
}

// Build renders changes plus a summary of the current inventory.
//
// Sections follow the order of changes, with the server summary last.
func Build(changes []diff.Change, current *types.Inventory, opts BuildOptions) Message {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DefaultTitle
	}

	color := ColorChanged
	if diff.HasAdditions(changes) {
		color = ColorAdded
	}

	sections := make([]Section, 0, len(changes)+1)
	for _, c := range changes {
		sections = append(sections, changeSection(c))
	}
	sections = append(sections, summarySection(current))

	return Message{
		Title:     title,
		Color:     color,
		Timestamp: now,
		Sections:  sections,
		Footer:    "Checked at " + now.Format(footerLayout),
	}
}

func changeSection(c diff.Change) Section {
	var label string
	switch c.Kind {
	case diff.Added:
		label = "✅ **[ADDED]**"
	case diff.Removed:
		label = "🗑️ **[REMOVED]**"
	default:
		label = "🔄 **[UPDATED]**"
	}

	version := c.Record.Version
	if c.Kind == diff.Updated {
		version = fmt.Sprintf("%s (was %s)", version, c.PreviousVersion)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Title:** %s\n", c.Record.Title)
	fmt.Fprintf(&b, "**Version:** %s\n", version)
	fmt.Fprintf(&b, "**Author:** %s\n", c.Record.Author)
	fmt.Fprintf(&b, "**Size:** %s", types.FormatSize(c.Record.Filesize))

	return Section{
		Name:  label + " " + c.Name,
		Value: b.String(),
	}
}

func summarySection(current *types.Inventory) Section {
	return Section{
		Name: "📊 Current Server Status",
		Value: fmt.Sprintf("**Total Mods on Server:** %d\n**Total Size:** %s",
			current.Len(), types.FormatSize(current.TotalSize())),
	}
}

// PlainText flattens the message into markdown for channels without rich
// layouts.
func (m Message) PlainText() string {
	var b strings.Builder
	for i, s := range m.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Name)
		b.WriteString("\n")
		b.WriteString(s.Value)
	}
	if m.Footer != "" {
		b.WriteString("\n\n_")
		b.WriteString(m.Footer)
		b.WriteString("_")
	}
	return b.String()
}

// Headline summarizes the message in one line.
func Headline(changes []diff.Change) string {
	s := diff.Summarize(changes)
	return fmt.Sprintf("%d added, %d updated, %d removed", s.Added, s.Updated, s.Removed)
}
