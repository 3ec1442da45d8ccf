package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter formats output as an aligned, uncolored table followed by a
// summary line. It is meant for logs and scripts.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := tw.Write([]byte("CHANGE\tARCHIVE\tVERSION\tSIZE\n")); err != nil {
		return err
	}
	for _, row := range changeRows(r.Changes) {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row[0], row[1], row[3], row[5]); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	added, updated, removed := r.Counts()
	fmt.Fprintf(w, "\n%d added, %d updated, %d removed; %d mods on server\n", added, updated, removed, r.TotalMods)
	if r.DryRun {
		w.WriteString("dry run: nothing sent or saved\n")
	} else if r.Delivery.Error != "" {
		fmt.Fprintf(w, "notification failed: %s\n", r.Delivery.Error)
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
