package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// statusColors maps rendered status strings to terminal colors.
var statusColors = map[string]text.Colors{
	"in library":               {text.FgGreen},
	"results":                  {text.FgGreen},
	"online":                   {text.FgGreen},
	"not in library":           {text.FgRed},
	"offline":                  {text.FgRed},
	"request failed":           {text.FgYellow},
	"detection failed":         {text.FgYellow},
	"scan request failed":      {text.FgYellow},
	"error":                    {text.FgYellow},
	"not configured":           {text.Faint},
	"unbound":                  {text.Faint},
	"episode info unavailable": {text.Faint},
}

// colorStatus colors a status for terminals and leaves it untouched otherwise.
func colorStatus(w io.Writer, status string) string {
	colors, ok := statusColors[status]
	if !ok || !isTerminal(w) {
		return status
	}
	return colors.Sprint(status)
}
