package normalisers

import (
	"regexp"
	"strings"
)

var (
	multiSpaces   = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	trailingSpace = regexp.MustCompile(`(?m)[ \t]+$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// cleanWhitespace unifies line endings, collapses horizontal whitespace and
// limits blank lines to one between paragraphs.
func cleanWhitespace(content string) string {
	content = strings.TrimPrefix(content, "\uFEFF")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = multiSpaces.ReplaceAllString(content, " ")
	content = trailingSpace.ReplaceAllString(content, "")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// PlaintextNormaliser handles plain text content.
type PlaintextNormaliser struct{}

func (n *PlaintextNormaliser) Normalise(content string, mimeType string) string {
	return cleanWhitespace(content)
}

func (n *PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain", "*/*"} // Fallback for any type
}

func (n *PlaintextNormaliser) Priority() int {
	return 1
}
