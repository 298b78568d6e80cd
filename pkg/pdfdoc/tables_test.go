// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package pdfdoc

import (
	"reflect"
	"testing"
)

func makeRow(y float64, cells ...[2]any) row {
	r := row{y: y}
	for _, c := range cells {
		x := c[0].(float64)
		text := c[1].(string)
		r.words = append(r.words, word{x: x, end: x + 10, text: text})
	}
	return r
}

func TestCellsOf(t *testing.T) {
	// Two words close together, then a large gap to a third.
	r := makeRow(700,
		[2]any{10.0, "Total"},
		[2]any{25.0, "damage"},
		[2]any{200.0, "1500"},
	)

	got := cellsOf(r)
	want := []string{"Total damage", "1500"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cellsOf = %v, want %v", got, want)
	}
}

func TestCellsOf_SingleCell(t *testing.T) {
	r := makeRow(700, [2]any{10.0, "A"}, [2]any{22.0, "sentence"})
	if got := cellsOf(r); len(got) != 1 {
		t.Errorf("cellsOf = %v, want one cell", got)
	}
}

func TestDetectTables(t *testing.T) {
	rows := []row{
		makeRow(700, [2]any{10.0, "Prose"}, [2]any{22.0, "line."}),
		makeRow(680, [2]any{10.0, "Region"}, [2]any{200.0, "Affected"}),
		makeRow(660, [2]any{10.0, "North"}, [2]any{200.0, "1200"}),
		makeRow(640, [2]any{10.0, "South"}, [2]any{200.0, "3400"}),
		makeRow(620, [2]any{10.0, "Closing"}, [2]any{22.0, "prose."}),
	}

	tables := detectTables(3, rows)
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}

	table := tables[0]
	if table.Page != 3 || table.Number != 1 {
		t.Errorf("table provenance = page %d number %d", table.Page, table.Number)
	}
	want := [][]string{
		{"Region", "Affected"},
		{"North", "1200"},
		{"South", "3400"},
	}
	if !reflect.DeepEqual(table.Data, want) {
		t.Errorf("table data = %v, want %v", table.Data, want)
	}
}

func TestDetectTables_SingleRowIgnored(t *testing.T) {
	rows := []row{
		makeRow(700, [2]any{10.0, "Prose"}),
		makeRow(680, [2]any{10.0, "Left"}, [2]any{200.0, "Right"}),
		makeRow(660, [2]any{10.0, "More"}, [2]any{22.0, "prose"}),
	}

	if tables := detectTables(1, rows); len(tables) != 0 {
		t.Errorf("got %v, want no tables from an isolated aligned row", tables)
	}
}

func TestDetectTables_MultipleTables(t *testing.T) {
	rows := []row{
		makeRow(700, [2]any{10.0, "A"}, [2]any{200.0, "1"}),
		makeRow(680, [2]any{10.0, "B"}, [2]any{200.0, "2"}),
		makeRow(660, [2]any{10.0, "prose"}),
		makeRow(640, [2]any{10.0, "C"}, [2]any{200.0, "3"}),
		makeRow(620, [2]any{10.0, "D"}, [2]any{200.0, "4"}),
	}

	tables := detectTables(1, rows)
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}
	if tables[0].Number != 1 || tables[1].Number != 2 {
		t.Errorf("table numbers = %d, %d", tables[0].Number, tables[1].Number)
	}
}

func TestRowText(t *testing.T) {
	r := makeRow(700, [2]any{10.0, "Hello"}, [2]any{60.0, "world"})
	if got := r.text(); got != "Hello world" {
		t.Errorf("text = %q", got)
	}
}
