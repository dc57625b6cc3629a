package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. MaxWidth wraps longer cells; zero
// leaves the column unbounded.
type column struct {
	Header   string
	Right    bool
	MaxWidth int
}

// tableView is a go-pretty table with distq's column shaping.
type tableView struct {
	Columns []column
	Rows    [][]string
	Footer  string
}

// valueColumnWidth wraps free-form values such as metadata. Entry ids are
// never wrapped so they can be copied from the output; an id is under 72
// characters.
const valueColumnWidth = 72

func (v tableView) render() string {
	if len(v.Columns) == 0 {
		return ""
	}

	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	tw := table.NewWriter()
	tw.SetStyle(style)

	header := make(table.Row, len(v.Columns))
	configs := make([]table.ColumnConfig, len(v.Columns))
	for i, col := range v.Columns {
		header[i] = col.Header
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if col.Right {
			cfg.Align = text.AlignRight
			cfg.AlignFooter = text.AlignRight
		}
		if col.MaxWidth > 0 {
			cfg.WidthMax = col.MaxWidth
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs[i] = cfg
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range v.Rows {
		r := make(table.Row, len(v.Columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	if v.Footer != "" {
		// Identical cells auto-merge into one footer spanning the table.
		footer := make(table.Row, len(v.Columns))
		for i := range footer {
			footer[i] = v.Footer
		}
		tw.AppendFooter(footer, table.RowConfig{AutoMerge: true})
	}

	return tw.Render() + "\n"
}

// fieldTable renders label/value pairs such as an entry's attributes.
func fieldTable(keyHeader string, rows [][]string) string {
	return tableView{
		Columns: []column{{Header: keyHeader}, {Header: "Value", MaxWidth: valueColumnWidth}},
		Rows:    rows,
	}.render()
}
