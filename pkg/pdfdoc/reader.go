// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package pdfdoc reads PDF content into per-page text lines and table
// grids.
//
// Text is reconstructed from the positional content stream: glyph runs are
// grouped into rows by Y coordinate, joined into words by X gaps, and
// emitted in reading order (top to bottom, left to right). Rows whose
// words align into multiple columns across consecutive rows are also
// collected as tables, since that is how tabular data appears in the
// linear stream.
package pdfdoc

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/crisislab/reliefweb-ingest/pkg/extract"
)

// Page is one unit of a PDF's extracted content.
type Page struct {
	Number int
	Text   string // reading-order lines joined with newlines
	Tables []extract.Table
}

// PageError reports a page that could not be read. The page still appears
// in the result with no lines and no tables.
type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

// ExtractPages parses a PDF and returns its pages in order. Unreadable
// pages yield an empty Page and a PageError; they never abort the
// document. A non-nil error is returned only when the document itself
// cannot be opened.
func ExtractPages(content []byte) ([]Page, []PageError, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]Page, 0, numPages)
	var pageErrs []PageError

	for i := 1; i <= numPages; i++ {
		page, err := extractPage(reader, i)
		if err != nil {
			pageErrs = append(pageErrs, PageError{Page: i, Err: err})
			pages = append(pages, Page{Number: i})
			continue
		}
		pages = append(pages, page)
	}

	return pages, pageErrs, nil
}

// extractPage reads one page. The pdf library panics on some malformed
// content streams, so the panic is converted to a page error.
func extractPage(reader *pdf.Reader, num int) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream: %v", r)
		}
	}()

	p := reader.Page(num)
	if p.V.IsNull() {
		return Page{}, fmt.Errorf("missing page object")
	}

	rows := buildRows(p.Content().Text)
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.text())
	}

	return Page{
		Number: num,
		Text:   strings.Join(lines, "\n"),
		Tables: detectTables(num, rows),
	}, nil
}

// word is a horizontally contiguous run of glyphs.
type word struct {
	x    float64 // left edge
	end  float64 // right edge
	text string
}

// row is one visual line: words ordered left to right.
type row struct {
	y     float64
	words []word
}

func (r row) text() string {
	parts := make([]string, len(r.words))
	for i, w := range r.words {
		parts[i] = w.text
	}
	return strings.Join(parts, " ")
}

// rowTolerance is the Y distance within which glyphs belong to the same
// visual line.
const rowTolerance = 3.0

// buildRows groups glyph runs into rows by Y coordinate and merges them
// into words by X gap. Rows come back top to bottom.
func buildRows(texts []pdf.Text) []row {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.S) != "" {
			runs = append(runs, t)
		}
	}
	if len(runs) == 0 {
		return nil
	}

	// PDF Y grows upward: sort top-down first, then left to right.
	sort.SliceStable(runs, func(i, j int) bool {
		if diff := runs[i].Y - runs[j].Y; diff > rowTolerance || diff < -rowTolerance {
			return runs[i].Y > runs[j].Y
		}
		return runs[i].X < runs[j].X
	})

	var rows []row
	current := row{y: runs[0].Y}
	for _, t := range runs {
		if current.words != nil && current.y-t.Y > rowTolerance {
			rows = append(rows, current)
			current = row{y: t.Y}
		}
		current.words = appendRun(current.words, t)
	}
	rows = append(rows, current)
	return rows
}

// appendRun merges a glyph run into the row's last word when the
// horizontal gap is small, otherwise starts a new word.
func appendRun(words []word, t pdf.Text) []word {
	gapLimit := t.FontSize * 0.3
	if gapLimit <= 0 {
		gapLimit = 2.0
	}

	if n := len(words); n > 0 {
		last := &words[n-1]
		if t.X-last.end <= gapLimit {
			last.text += t.S
			if e := t.X + t.W; e > last.end {
				last.end = e
			}
			return words
		}
	}
	return append(words, word{x: t.X, end: t.X + t.W, text: t.S})
}
