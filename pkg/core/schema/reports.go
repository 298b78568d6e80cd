// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the wire types for ReliefWeb report metadata,
// processed articles and job API payloads.
//
// Report metadata arrives in inconsistent shapes depending on the export
// that produced it: identifiers may be numbers or strings, source and
// language entries may be structured objects or plain strings, and body
// text may live at the top level or nested under "content". The flexible
// types in this file normalize those shapes during decoding so the rest of
// the system sees one canonical form.
package schema

import (
	"encoding/json"
	"strings"
)

// FlexID is a report identifier that decodes from either a JSON string or
// a JSON number and always marshals as a string.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

func (id FlexID) String() string { return string(id) }

// NameList decodes from either a list of plain strings or a list of
// name-bearing objects ({"name": "..."}). Entries without a name project
// to the empty string so positions are preserved.
type NameList []string

func (l *NameList) UnmarshalJSON(data []byte) error {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*l = plain
		return nil
	}
	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	*l = names
	return nil
}

// NameOrString decodes from either a name-bearing object or a plain
// string and exposes the name.
type NameOrString string

func (n *NameOrString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = NameOrString(s)
		return nil
	}
	var entry struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		// Unexpected shape: keep the raw token so nothing is lost.
		*n = NameOrString(strings.Trim(string(data), `"`))
		return nil
	}
	*n = NameOrString(entry.Name)
	return nil
}

func (n NameOrString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(n))
}

func (n NameOrString) String() string { return string(n) }

// DateInfo carries the three report date sub-fields. All three are always
// present when marshaled; missing inputs decode to empty strings.
type DateInfo struct {
	Created  string `json:"created"`
	Changed  string `json:"changed"`
	Original string `json:"original"`
}

// FileDescriptor describes one file attached to a report.
type FileDescriptor struct {
	Filename      string `json:"filename,omitempty"`
	SavedFilename string `json:"saved_filename,omitempty"`
	Path          string `json:"path,omitempty"`
	URL           string `json:"url,omitempty"`
	Size          int64  `json:"size,omitempty"`
}

// SavedName returns the name the file was saved under, preferring
// saved_filename over filename. Empty when neither is set.
func (f FileDescriptor) SavedName() string {
	if f.SavedFilename != "" {
		return f.SavedFilename
	}
	return f.Filename
}

// ReportContent is the nested content block some exports use for body text.
type ReportContent struct {
	BodyText string `json:"body_text"`
}

// Report is one externally sourced metadata record describing a document.
// Reports are immutable inputs: matching and projection never modify them.
type Report struct {
	ReliefWebID FlexID           `json:"reliefweb_id"`
	Title       string           `json:"title"`
	Date        DateInfo         `json:"date"`
	URL         string           `json:"url,omitempty"`
	URLAlias    string           `json:"url_alias,omitempty"`
	Sources     NameList         `json:"sources,omitempty"`
	Source      NameList         `json:"source,omitempty"`
	Countries   NameList         `json:"countries,omitempty"`
	Disasters   NameList         `json:"disasters,omitempty"`
	Language    NameOrString     `json:"language,omitempty"`
	BodyText    string           `json:"body_text,omitempty"`
	Content     *ReportContent   `json:"content,omitempty"`
	Files       []FileDescriptor `json:"files,omitempty"`
}

// SourceNames returns the source name list, accepting both the "sources"
// and the older "source" field spelling.
func (r *Report) SourceNames() []string {
	if len(r.Sources) > 0 {
		return r.Sources
	}
	return r.Source
}

// Body returns the body text, falling back to the nested content block.
func (r *Report) Body() string {
	if r.BodyText != "" {
		return r.BodyText
	}
	if r.Content != nil {
		return r.Content.BodyText
	}
	return ""
}

// PageURL returns the canonical report URL, falling back to the alias.
func (r *Report) PageURL() string {
	if r.URL != "" {
		return r.URL
	}
	return r.URLAlias
}

// EmdatEvent is the optional EM-DAT event header carried by some source
// documents.
type EmdatEvent struct {
	DisNo        string `json:"DisNo"`
	DisasterType string `json:"disaster_type"`
	Country      string `json:"country"`
	ISO2         string `json:"iso2"`
	Location     string `json:"location"`
	StartDate    string `json:"start_dt"`
	Query        string `json:"query"`
}

// SourceDocument is the metadata JSON a fetch job writes and a processing
// job consumes.
type SourceDocument struct {
	Disaster       string      `json:"disaster,omitempty"`
	Country        string      `json:"country,omitempty"`
	CountryCode    string      `json:"country_code,omitempty"`
	TotalDocuments int         `json:"total_documents,omitempty"`
	TotalPDFs      int         `json:"total_pdfs,omitempty"`
	FetchedOn      string      `json:"fetched_on,omitempty"`
	EmdatEvent     *EmdatEvent `json:"emdat_event,omitempty"`
	Reports        []*Report   `json:"reports"`
}
