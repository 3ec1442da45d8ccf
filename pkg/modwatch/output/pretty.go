package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatChanges(r))
	w.WriteString("\n")
	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source)))

	info := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Protocol:"), ValueStyle.Render(r.Protocol)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Scanned:"), ValueStyle.Render(
			fmt.Sprintf("%d archives in %s", r.Stats.Archives, formatDuration(r.Stats.Duration.Seconds())))),
	}
	if r.Stats.FetchFailed > 0 {
		info = append(info, WarningStyle.Render(fmt.Sprintf("%d unreadable", r.Stats.FetchFailed)))
	}
	lines = append(lines, strings.Join(info, "  "))

	if r.DryRun {
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run: nothing was sent or saved"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatChanges renders the change table, or a note when nothing changed.
func (f *PrettyFormatter) formatChanges(r *Result) string {
	if len(r.Changes) == 0 {
		return MutedStyle.Render("  No mod changes detected") + "\n"
	}

	added, updated, removed := r.Counts()
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Changes"))
	sb.WriteString("  ")
	sb.WriteString(kindStyle("added").Render(itoa(added) + " added"))
	sb.WriteString("  ")
	sb.WriteString(kindStyle("updated").Render(itoa(updated) + " updated"))
	sb.WriteString("  ")
	sb.WriteString(kindStyle("removed").Render(itoa(removed) + " removed"))
	sb.WriteString("\n")

	sb.WriteString(RenderTable(
		[]string{"CHANGE", "ARCHIVE", "TITLE", "VERSION", "AUTHOR", "SIZE"},
		changeRows(r.Changes),
		[]Alignment{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight},
	))
	sb.WriteString("\n")
	return sb.String()
}

// formatFooter builds the footer box with the server summary and delivery
// status.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Mods:"), ValueStyle.Render(itoa(r.TotalMods))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Total:"), SizeStyle.Render(types.FormatSize(r.TotalSize))),
		f.formatDelivery(r),
	}
	if !r.DryRun && !r.Saved {
		parts = append(parts, ErrorStyle.Render("snapshot not saved"))
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatDelivery(r *Result) string {
	d := r.Delivery
	switch {
	case r.DryRun:
		return MutedStyle.Render("notify: dry run")
	case d.Error != "":
		return ErrorStyle.Render("notify: failed (" + d.Channel + ")")
	case d.Skipped:
		return MutedStyle.Render("notify: nothing to send")
	case d.Delivered:
		return SuccessStyle.Render("notify: sent via " + d.Channel)
	default:
		return WarningStyle.Render("notify: not delivered")
	}
}

// formatDuration formats seconds in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
