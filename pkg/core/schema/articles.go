// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"github.com/crisislab/reliefweb-ingest/pkg/extract"
)

// Article is the flat output shape: one entry per PDF (with extracted
// text and the projected metadata of its matched report) or per report
// that never matched a PDF.
type Article struct {
	PDFFilename   string   `json:"pdf_filename"`
	HasPDF        bool     `json:"has_pdf"`
	PDFText       string   `json:"pdf_text"`
	PDFTextLength int      `json:"pdf_text_length"`
	Title         string   `json:"title"`
	Date          DateInfo `json:"date"`
	URL           string   `json:"url"`
	Sources       []string `json:"sources"`
	Countries     []string `json:"countries"`
	Disasters     []string `json:"disasters"`
	Language      string   `json:"language"`
	BodyText      string   `json:"body_text"`
}

// PDFTables groups the tables extracted from one PDF for the output
// document.
type PDFTables struct {
	PDFFilename string          `json:"pdf_filename"`
	Tables      []extract.Table `json:"tables"`
}

// MatchStats counts how each PDF was associated with its report.
type MatchStats struct {
	Exact       int `json:"exact_match"`
	Partial     int `json:"partial_match"`
	IDPrefix    int `json:"id_match"`
	ReliefWebID int `json:"reliefweb_id_match"`
	Title       int `json:"title_match"`
	NoMatch     int `json:"no_match"`
}

// ProcessingMetadata records how an output document was produced.
type ProcessingMetadata struct {
	ProcessingDate     string     `json:"processing_date"`
	SourceJSON         string     `json:"source_json"`
	PDFDirectory       string     `json:"pdf_directory"`
	TotalPDFsFound     int        `json:"total_pdfs_found"`
	TotalReports       int        `json:"total_reports"`
	MatchingStatistics MatchStats `json:"matching_statistics"`
}

// OutputDocument is the merged full-text JSON produced by a processing
// run.
type OutputDocument struct {
	DisNo              string             `json:"DisNo"`
	DisasterType       string             `json:"disaster_type"`
	Country            string             `json:"country"`
	ISO2               string             `json:"iso2"`
	Location           string             `json:"location"`
	StartDate          string             `json:"start_dt"`
	Query              string             `json:"query"`
	Articles           []Article          `json:"articles"`
	NDocuments         int                `json:"n_documents"`
	PDFTables          []PDFTables        `json:"pdf_tables"`
	ProcessingMetadata ProcessingMetadata `json:"processing_metadata"`
}
