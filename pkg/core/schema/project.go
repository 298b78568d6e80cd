// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// ArticleFromReport projects a report's heterogeneous metadata into the
// flat article shape. The projection is identical for matched and
// unmatched reports and is a pure function of the report: projecting the
// same report twice yields identical output. The three date sub-fields
// are always populated, defaulting to empty strings.
//
// The PDF-related article fields (pdf_filename, has_pdf, pdf_text) are the
// caller's to fill; a report projected on its own describes a text-less
// article.
func ArticleFromReport(r *Report) Article {
	if r == nil {
		return emptyArticle()
	}
	return Article{
		Title:     r.Title,
		Date:      r.Date,
		URL:       r.PageURL(),
		Sources:   nonNil(r.SourceNames()),
		Countries: nonNil(r.Countries),
		Disasters: nonNil(r.Disasters),
		Language:  r.Language.String(),
		BodyText:  r.Body(),
	}
}

// emptyArticle is the projection of "no report": every field present,
// every value empty.
func emptyArticle() Article {
	return Article{
		Sources:   []string{},
		Countries: []string{},
		Disasters: []string{},
	}
}

// nonNil keeps list fields as JSON arrays rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
