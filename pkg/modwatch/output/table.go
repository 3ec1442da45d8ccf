package output

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

// Alignment is a column alignment for RenderTable.
type Alignment int

// Column alignments.
const (
	AlignLeft Alignment = iota
	AlignRight
)

// RenderTable draws rows under headers with rounded borders. Short rows are
// padded with empty cells.
func RenderTable(headers []string, rows [][]string, aligns []Alignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// ModTable renders an inventory as a table in inventory order.
func ModTable(inv *types.Inventory) string {
	rows := make([][]string, 0, inv.Len())
	for name, rec := range inv.All() {
		rows = append(rows, []string{name, rec.Title, rec.Version, rec.Author, types.FormatSize(rec.Filesize)})
	}
	return RenderTable(
		[]string{"ARCHIVE", "TITLE", "VERSION", "AUTHOR", "SIZE"},
		rows,
		[]Alignment{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight},
	)
}

func changeRows(changes []Change) [][]string {
	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		version := c.Version
		if c.PreviousVersion != "" {
			version = c.PreviousVersion + " → " + c.Version
		}
		rows = append(rows, []string{c.Kind, c.Name, c.Title, version, c.Author, c.SizeHuman})
	}
	return rows
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
