// Copyright ReliefWeb Ingest Authors
// SPDX-License-Identifier: Apache-2.0

package reliefweb

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// htmlToText strips HTML markup and returns the visible text content.
// Script and style elements are skipped entirely; malformed input falls
// back to the raw string.
func htmlToText(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return string(content)
	}

	var sb strings.Builder
	collectText(doc, &sb)
	return strings.TrimSpace(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(text)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
