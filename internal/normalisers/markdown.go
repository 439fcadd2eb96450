package normalisers

import (
	"regexp"
	"strings"
)

var (
	mdFence      = regexp.MustCompile("(?m)^```[^\n]*$")
	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeading    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdBlockquote = regexp.MustCompile(`(?m)^>[ \t]?`)
	mdRule       = regexp.MustCompile(`(?m)^[ \t]*[-*_]{3,}[ \t]*$`)
	mdBullet     = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	mdEmphasis   = regexp.MustCompile(`(\*\*|__|\*|~~)`)
	mdTableSep   = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t:|-]+\|[ \t:|-]*$`)
)

// MarkdownNormaliser strips Markdown syntax and keeps the text. Numbered list
// markers are kept since legal texts cite clauses by number.
type MarkdownNormaliser struct{}

func (n *MarkdownNormaliser) Normalise(content string, mimeType string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	content = mdFence.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = mdTableSep.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "$1- ")
	content = mdEmphasis.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "`", "")

	return cleanWhitespace(content)
}

func (n *MarkdownNormaliser) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (n *MarkdownNormaliser) Priority() int {
	return 50
}
