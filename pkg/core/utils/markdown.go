package utils

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"
)

// CleanMarkdown strips an outer code fence from model-generated text so the
// stored answer is pure Markdown ready for rendering. Any fence language tag
// is handled (```markdown, ```json, bare ```), as is a truncated response
// that opened a fence but never closed it.
func CleanMarkdown(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	// Drop the opening fence line together with its language tag.
	if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
		cleaned = cleaned[i+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(cleaned, "```"))
	}
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// ValidateMarkdown checks that the string parses as Markdown. Goldmark is
// very permissive, so this only rejects pathological input.
func ValidateMarkdown(input string) bool {
	parser := goldmark.DefaultParser()
	reader := text.NewReader([]byte(input))
	return parser.Parse(reader) != nil
}
