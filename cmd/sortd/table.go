package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// renderTable draws the rounded result tables used by the analyze and
// consistency commands. Rows shorter than the header are padded so a missing
// subcategory still renders as an empty cell.
func renderTable(headers []string, rows [][]string) string {
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)

	for _, row := range rows {
		cells := make(table.Row, len(headers))
		for i := range cells {
			if i < len(row) {
				cells[i] = row[i]
			} else {
				cells[i] = ""
			}
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}
