// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package pdfdoc

import (
	"github.com/crisislab/reliefweb-ingest/pkg/extract"
)

// columnGap is the horizontal gap, in points, that separates table cells.
// Word gaps inside prose stay well below it.
const columnGap = 18.0

// minTableRows is the minimum run of aligned multi-cell rows that counts
// as a table.
const minTableRows = 2

// detectTables scans rows top to bottom for runs of consecutive rows that
// split into two or more cells. Each run becomes one table; cell grids may
// be ragged since rows keep their own cell count.
func detectTables(pageNum int, rows []row) []extract.Table {
	var tables []extract.Table
	var grid [][]string

	flush := func() {
		if len(grid) >= minTableRows {
			tables = append(tables, extract.Table{
				Page:   pageNum,
				Number: len(tables) + 1,
				Data:   grid,
			})
		}
		grid = nil
	}

	for _, r := range rows {
		cells := cellsOf(r)
		if len(cells) >= 2 {
			grid = append(grid, cells)
			continue
		}
		flush()
	}
	flush()

	return tables
}

// cellsOf merges a row's words into cells: consecutive words separated by
// less than columnGap belong to the same cell.
func cellsOf(r row) []string {
	var cells []string
	var cell string
	var end float64

	for i, w := range r.words {
		if i == 0 || w.x-end < columnGap {
			if cell != "" {
				cell += " "
			}
			cell += w.text
		} else {
			cells = append(cells, cell)
			cell = w.text
		}
		end = w.end
	}
	if cell != "" {
		cells = append(cells, cell)
	}
	return cells
}
