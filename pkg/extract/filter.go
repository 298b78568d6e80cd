// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package extract filters raw PDF page text down to body prose.
//
// PDF text streams interleave body text with content that belongs to
// tables, figure captions and source attribution lines. FilterPage removes
// those so that only readable prose survives; BuildDocument joins pages
// into a single document string.
package extract

import (
	"regexp"
	"strings"
)

// Table is a grid of cell strings extracted from one page. Rows may have
// unequal lengths and cells may be empty.
type Table struct {
	Page   int        `json:"page"`
	Number int        `json:"table_number"`
	Data   [][]string `json:"data"`
}

// captionRe matches figure/table caption lines such as "Figure 3: ..." or
// "Tabella 2". The keyword must be followed by a number, so prose like
// "My Table of contents" is kept.
var captionRe = regexp.MustCompile(`(?i)^\s*(figure|fig\.?|table|tabella|tbl\.?|immagine|image|photo|foto)\s*\d+`)

// attributionRe matches source attribution lines such as "Source: UNHCR"
// or "Fonte: OCHA". The colon is required, so "Sources differ" is kept.
var attributionRe = regexp.MustCompile(`(?i)^\s*(source|fonte)\s*:`)

// FilterPage splits rawText into lines and drops table echo, captions and
// attribution lines. Lines are trimmed; empty lines are discarded. The
// returned slice preserves source order and never contains an empty or
// whitespace-only line.
//
// A line counts as table echo when more than half of its whitespace-
// separated tokens exactly equal some cell string of a table on the same
// page. This is a heuristic for tabular data leaking into the linear text
// stream, not a structural table detector.
func FilterPage(rawText string, tables []Table) []string {
	cells := cellSet(tables)

	var filtered []string
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if len(cells) > 0 && isTableEcho(line, cells) {
			continue
		}
		if captionRe.MatchString(line) {
			continue
		}
		if attributionRe.MatchString(line) {
			continue
		}

		filtered = append(filtered, line)
	}
	return filtered
}

// cellSet collects every distinct trimmed cell string across all tables.
func cellSet(tables []Table) map[string]struct{} {
	if len(tables) == 0 {
		return nil
	}
	cells := make(map[string]struct{})
	for _, table := range tables {
		for _, row := range table.Data {
			for _, cell := range row {
				cell = strings.TrimSpace(cell)
				if cell != "" {
					cells[cell] = struct{}{}
				}
			}
		}
	}
	return cells
}

// isTableEcho reports whether strictly more than half of the line's tokens
// appear verbatim in the page's table cells.
func isTableEcho(line string, cells map[string]struct{}) bool {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false
	}
	overlap := 0
	for _, token := range tokens {
		if _, ok := cells[token]; ok {
			overlap++
		}
	}
	return float64(overlap)/float64(len(tokens)) > 0.5
}

// BuildDocument joins per-page filtered line sequences into one document.
// Lines within a page are joined with a newline; pages are separated by a
// blank line. Pages with no surviving lines contribute nothing, not even
// a separator.
func BuildDocument(pages [][]string) string {
	var parts []string
	for _, lines := range pages {
		if len(lines) == 0 {
			continue
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
