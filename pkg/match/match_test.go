// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package match

import (
	"encoding/json"
	"testing"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
)

func report(id, title string, files ...schema.FileDescriptor) *schema.Report {
	return &schema.Report{
		ReliefWebID: schema.FlexID(id),
		Title:       title,
		Files:       files,
	}
}

func saved(name string) schema.FileDescriptor {
	return schema.FileDescriptor{SavedFilename: name}
}

func TestMatch_ExactFilename(t *testing.T) {
	reports := []*schema.Report{
		report("1", "Other"),
		report("2", "Target", saved("12345_report.pdf")),
	}

	got, pass := Match("12345_Report.PDF", reports)
	if got != reports[1] || pass != PassExact {
		t.Fatalf("Match = (%v, %d), want (reports[1], %d)", got, pass, PassExact)
	}
}

func TestMatch_ExactFilenameFallsBackToFilenameField(t *testing.T) {
	reports := []*schema.Report{
		report("1", "Target", schema.FileDescriptor{Filename: "doc.pdf"}),
	}

	got, pass := Match("doc.pdf", reports)
	if got != reports[0] || pass != PassExact {
		t.Fatalf("Match = (%v, %d), want filename-field hit at pass 1", got, pass)
	}
}

func TestMatch_WithoutExtension(t *testing.T) {
	reports := []*schema.Report{
		report("1", "Target", saved("12345_flood_update.pdf")),
	}

	got, pass := Match("12345_flood_update", reports)
	if got != reports[0] || pass != PassNoExtension {
		t.Fatalf("Match = (%v, %d), want pass %d", got, pass, PassNoExtension)
	}
}

func TestMatch_IDPrefix(t *testing.T) {
	reports := []*schema.Report{
		report("1", "Other", saved("99_1_something_else.pdf")),
		report("2", "Target", saved("12345_1_flood_update_v2.pdf")),
	}

	got, pass := Match("12345_1_flood.pdf", reports)
	if got != reports[1] || pass != PassIDPrefix {
		t.Fatalf("Match = (%v, %d), want pass %d", got, pass, PassIDPrefix)
	}
}

func TestMatch_ReliefWebID(t *testing.T) {
	reports := []*schema.Report{
		report("999", "Other"),
		report("12345", "Target"),
	}

	got, pass := Match("12345_anything.pdf", reports)
	if got != reports[1] || pass != PassReliefWebID {
		t.Fatalf("Match = (%v, %d), want pass %d", got, pass, PassReliefWebID)
	}
}

func TestMatch_ReliefWebID_NumericJSON(t *testing.T) {
	var r schema.Report
	if err := json.Unmarshal([]byte(`{"reliefweb_id": 12345, "title": "t"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, pass := Match("12345.pdf", []*schema.Report{&r})
	if got != &r || pass != PassReliefWebID {
		t.Fatalf("Match = (%v, %d), want numeric id hit at pass %d", got, pass, PassReliefWebID)
	}
}

func TestMatch_TitleFallback(t *testing.T) {
	reports := []*schema.Report{
		report("1", "Unrelated Situation Report"),
		report("2", "Annual Flood Assessment Haiti 2023"),
	}

	got, pass := Match("999_88_annual_flood_assessment_haiti.pdf", reports)
	if got != reports[1] || pass != PassTitle {
		t.Fatalf("Match = (%v, %d), want pass %d", got, pass, PassTitle)
	}
}

func TestMatch_TitleFallback_ContainmentEitherDirection(t *testing.T) {
	// Normalized title is a substring of the normalized filename label.
	reports := []*schema.Report{
		report("42", "Flood Assessment"),
	}

	got, pass := Match("1_2_flood_assessment_haiti_final.pdf", reports)
	if got != reports[0] || pass != PassTitle {
		t.Fatalf("Match = (%v, %d), want pass %d", got, pass, PassTitle)
	}
}

func TestMatch_TitleFallback_ShortLabelRejected(t *testing.T) {
	reports := []*schema.Report{
		report("42", "Flood 2023"),
	}

	// Normalized label "flood2023" is 9 characters, below the floor.
	got, pass := Match("1_2_flood_2023.pdf", reports)
	if got != nil || pass != 0 {
		t.Fatalf("Match = (%v, %d), want no match for short label", got, pass)
	}
}

func TestMatch_TitleFallback_EmptyTitleSkipped(t *testing.T) {
	reports := []*schema.Report{
		report("101", ""),
		report("102", "!!!"), // normalizes to empty
	}

	got, pass := Match("1_2_annual_flood_assessment.pdf", reports)
	if got != nil || pass != 0 {
		t.Fatalf("Match = (%v, %d), want empty titles to contribute nothing", got, pass)
	}
}

func TestMatch_PassOrdering(t *testing.T) {
	// Record A hits pass 1; record B would hit pass 5. A must win even
	// though B comes first in input order.
	b := report("2", "Twelve Three Four Five Report")
	a := report("1", "A", saved("12345_report.pdf"))

	got, pass := Match("12345_report.pdf", []*schema.Report{b, a})
	if got != a || pass != PassExact {
		t.Fatalf("Match = (%v, %d), want pass-1 winner", got, pass)
	}
}

func TestMatch_FirstReportWinsWithinPass(t *testing.T) {
	first := report("1", "Annual Flood Assessment Haiti")
	second := report("2", "Annual Flood Assessment Haiti 2023")

	got, pass := Match("9_9_annual_flood_assessment_haiti.pdf", []*schema.Report{first, second})
	if got != first || pass != PassTitle {
		t.Fatalf("Match = (%v, %d), want first report in input order", got, pass)
	}
}

func TestMatch_NoReports(t *testing.T) {
	got, pass := Match("anything.pdf", nil)
	if got != nil || pass != 0 {
		t.Fatalf("Match = (%v, %d), want no match", got, pass)
	}
}

func TestMatch_StructurallyIncompleteReports(t *testing.T) {
	reports := []*schema.Report{
		{},                        // no files, no id, no title
		report("", "", saved("")), // empty saved name
	}

	got, pass := Match("12345_report_with_long_name.pdf", reports)
	if got != nil || pass != 0 {
		t.Fatalf("Match = (%v, %d), want no match from incomplete reports", got, pass)
	}
}

func TestMatch_NoMatch(t *testing.T) {
	reports := []*schema.Report{
		report("1", "Cyclone Response Plan", saved("1_cyclone.pdf")),
	}

	got, pass := Match("zzz.pdf", reports)
	if got != nil || pass != 0 {
		t.Fatalf("Match = (%v, %d), want no match", got, pass)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Annual Flood Assessment Haiti 2023", "annualfloodassessmenthaiti2023"},
		{"annual_flood_assessment_haiti", "annualfloodassessmenthaiti"},
		{"  UPPER-case; punct!  ", "uppercasepunct"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
