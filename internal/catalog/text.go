package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText flattens an HTML description into text. Input without markup is
// returned trimmed.
func PlainText(description string) string {
	description = strings.TrimSpace(description)
	if !strings.ContainsAny(description, "<&") {
		return description
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return description
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
