package normalisers

import (
	"html"
	"regexp"
	"strings"
)

var (
	htmlDropBlocks = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg)[^>]*>.*?</(script|style|noscript|head|svg)>`)
	htmlComments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlBlockOpen  = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	htmlBlockClose = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	htmlLineBreak  = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	htmlCell       = regexp.MustCompile(`(?i)</t[dh]>`)
	htmlTags       = regexp.MustCompile(`<[^>]+>`)
)

// HTMLNormaliser extracts readable text from HTML. Block elements become
// paragraph breaks so the chunker can split on them.
type HTMLNormaliser struct{}

func (n *HTMLNormaliser) Normalise(content string, mimeType string) string {
	content = htmlDropBlocks.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")
	content = htmlBlockOpen.ReplaceAllString(content, "\n\n")
	content = htmlBlockClose.ReplaceAllString(content, "\n\n")
	content = htmlLineBreak.ReplaceAllString(content, "\n")
	content = htmlCell.ReplaceAllString(content, " ")
	content = htmlTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	// Source indentation inside blocks is noise.
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}

	return cleanWhitespace(strings.Join(lines, "\n"))
}

func (n *HTMLNormaliser) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (n *HTMLNormaliser) Priority() int {
	return 50
}
