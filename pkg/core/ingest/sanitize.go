// Package ingest normalizes uploaded document content into plain text the
// extraction and retrieval layers can work with.
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe   = regexp.MustCompile(`[ \t]{2,}`)
)

// SanitizeHTML strips markup from an HTML document and returns readable
// plain text. Tables become tab-separated rows so statement figures keep
// their label-value pairing; script, style and hidden noise are dropped.
func SanitizeHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, head, iframe").Remove()

	// Flatten tables row by row before the generic text pass so cells do
	// not run together.
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		var rows []string
		table.Find("tr").Each(func(j int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(k int, cell *goquery.Selection) {
				if text := strings.TrimSpace(cell.Text()); text != "" {
					cells = append(cells, text)
				}
			})
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, "\t"))
			}
		})
		table.ReplaceWithHtml("<p>" + strings.Join(rows, "\n") + "</p>")
	})

	// Block elements end lines; inline markup just contributes text.
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, li, br").Each(func(i int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	text := doc.Text()
	return NormalizeText(text), nil
}

// NormalizeText collapses runaway whitespace while preserving paragraph
// breaks the chunker splits on.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// IsHTML sniffs whether uploaded content is markup rather than plain text.
func IsHTML(filename, content string) bool {
	lower := strings.ToLower(filename)
	if strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(content))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}
