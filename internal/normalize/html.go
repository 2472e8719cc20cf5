package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelectors = "p, div, li, ul, ol, br, h1, h2, h3, h4, h5, h6, tr"

// StripHTML returns the visible text of an HTML fragment. Block elements end
// a line; whitespace inside a line is collapsed and blank lines dropped.
// Plain text passes through with the same whitespace cleanup.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return cleanLines(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return cleanLines(s)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find(blockSelectors).Each(func(_ int, sel *goquery.Selection) {
		sel.AfterHtml("\n")
	})
	return cleanLines(doc.Text())
}

func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = collapse(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
