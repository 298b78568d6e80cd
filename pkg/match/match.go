// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

// Package match associates a PDF filename with the one metadata report it
// describes.
//
// Filenames in the wild follow several conventions at once: some are the
// exact saved name recorded in the report, some differ only in extension
// or casing, some carry an identifier prefix, and some are a mangled form
// of the report title. Match runs five successively looser passes and
// returns the first hit; within a pass the first report in input order
// wins. Matching is query-only and never modifies the reports.
package match

import (
	"strings"

	"github.com/crisislab/reliefweb-ingest/pkg/core/schema"
)

// Pass numbers returned by Match, in priority order.
const (
	PassExact       = 1 // exact saved filename, case-insensitive
	PassNoExtension = 2 // equal after stripping ".pdf" and lower-casing
	PassIDPrefix    = 3 // saved filename starts with the two-segment prefix
	PassReliefWebID = 4 // first segment equals the report identifier
	PassTitle       = 5 // normalized title containment fallback
)

// passFn is one matching strategy. It returns the first report satisfying
// the strategy, or nil.
type passFn func(filename string, reports []*schema.Report) *schema.Report

var passes = []passFn{
	matchExactFilename,
	matchWithoutExtension,
	matchIDPrefix,
	matchReliefWebID,
	matchNormalizedTitle,
}

// Match returns the report the filename describes together with the pass
// number (1-5) that found it, or (nil, 0) when no pass produces a hit.
// Reports missing the fields a pass needs contribute nothing to that pass.
func Match(filename string, reports []*schema.Report) (*schema.Report, int) {
	for i, pass := range passes {
		if r := pass(filename, reports); r != nil {
			return r, i + 1
		}
	}
	return nil, 0
}

// eachSavedName calls fn with every non-empty saved name of the report's
// file descriptors, stopping early when fn returns true.
func eachSavedName(r *schema.Report, fn func(saved string) bool) bool {
	for _, f := range r.Files {
		saved := f.SavedName()
		if saved == "" {
			continue
		}
		if fn(saved) {
			return true
		}
	}
	return false
}

func matchExactFilename(filename string, reports []*schema.Report) *schema.Report {
	want := strings.ToLower(filename)
	for _, r := range reports {
		if eachSavedName(r, func(saved string) bool {
			return strings.ToLower(saved) == want
		}) {
			return r
		}
	}
	return nil
}

// stripPDF lower-cases s and removes every ".pdf" occurrence, not just a
// trailing extension, since some saved names embed it mid-string.
func stripPDF(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), ".pdf", "")
}

func matchWithoutExtension(filename string, reports []*schema.Report) *schema.Report {
	want := stripPDF(filename)
	for _, r := range reports {
		if eachSavedName(r, func(saved string) bool {
			return stripPDF(saved) == want
		}) {
			return r
		}
	}
	return nil
}

// segments splits the extension-stripped filename on underscores.
func segments(filename string) []string {
	return strings.Split(stripPDF(filename), "_")
}

func matchIDPrefix(filename string, reports []*schema.Report) *schema.Report {
	parts := segments(filename)
	if len(parts) < 2 {
		return nil
	}
	prefix := parts[0] + "_" + parts[1]
	for _, r := range reports {
		if eachSavedName(r, func(saved string) bool {
			return strings.HasPrefix(strings.ToLower(saved), prefix)
		}) {
			return r
		}
	}
	return nil
}

func matchReliefWebID(filename string, reports []*schema.Report) *schema.Report {
	parts := segments(filename)
	if len(parts) == 0 || parts[0] == "" {
		return nil
	}
	candidate := parts[0]
	for _, r := range reports {
		if id := r.ReliefWebID.String(); id != "" && id == candidate {
			return r
		}
	}
	return nil
}

// titleMatchMinLength is the floor below which the normalized filename
// label is considered too short to match titles safely.
const titleMatchMinLength = 10

func matchNormalizedTitle(filename string, reports []*schema.Report) *schema.Report {
	parts := segments(filename)

	// Drop the two identifier segments when present; otherwise use the
	// whole extension-stripped name.
	label := stripPDF(filename)
	if len(parts) >= 3 {
		label = strings.Join(parts[2:], "_")
	}

	name := normalize(label)
	if len(name) <= titleMatchMinLength {
		return nil
	}

	for _, r := range reports {
		title := normalize(r.Title)
		if title == "" {
			continue
		}
		// Containment in either direction tolerates truncated and
		// suffixed titles, at the cost of precision on short ones.
		if strings.Contains(title, name) || strings.Contains(name, title) {
			return r
		}
	}
	return nil
}

// normalize lower-cases s and strips every character that is not a
// lowercase ASCII letter or digit.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
