package rag

import "strings"

const (
	chunkSize    = 3000 // characters, roughly 750 tokens
	chunkOverlap = 300
)

// ChunkText splits extracted document text into retrieval-sized fragments.
// Splitting prefers financial document structure: page and sheet markers,
// ALL-CAPS statement headers and markdown headings start new sections,
// oversized sections break on paragraph boundaries, and adjacent chunks
// share a trailing overlap so figures near a boundary stay queryable.
func ChunkText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sections := splitSections(text)

	var chunks []string
	for _, section := range sections {
		if len(section) <= chunkSize {
			if s := strings.TrimSpace(section); s != "" {
				chunks = append(chunks, s)
			}
			continue
		}
		var current string
		for _, para := range strings.Split(section, "\n\n") {
			if len(current)+len(para) <= chunkSize {
				if current == "" {
					current = para
				} else {
					current += "\n\n" + para
				}
			} else {
				if s := strings.TrimSpace(current); s != "" {
					chunks = append(chunks, s)
				}
				current = para
			}
		}
		if s := strings.TrimSpace(current); s != "" {
			chunks = append(chunks, s)
		}
	}

	// Prepend a slice of the previous chunk so boundary content is
	// retrievable from both sides.
	overlapped := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if i > 0 && len(chunks[i-1]) > chunkOverlap {
			chunk = chunks[i-1][len(chunks[i-1])-chunkOverlap:] + "\n" + chunk
		}
		overlapped = append(overlapped, chunk)
	}
	return overlapped
}

// splitSections breaks the text before lines that look like section
// headers. Line scanning instead of a lookahead pattern; the header shapes
// are simple prefixes plus the ALL-CAPS heuristic.
func splitSections(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
	}

	for i, line := range lines {
		if i > 0 && isSectionHeader(line) {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return sections
}

func isSectionHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "--- PAGE") || strings.HasPrefix(trimmed, "=== SHEET") {
		return true
	}
	if strings.HasPrefix(trimmed, "#") {
		rest := strings.TrimLeft(trimmed, "#")
		return len(trimmed)-len(rest) <= 3 && strings.HasPrefix(rest, " ")
	}
	return isAllCapsHeading(trimmed)
}

// isAllCapsHeading reports whether the line reads like "BALANCE SHEET" or
// "INCOME STATEMENT:", at least six letters with no lowercase.
func isAllCapsHeading(s string) bool {
	s = strings.TrimSuffix(s, ":")
	letters := 0
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			letters++
		case r >= 'a' && r <= 'z':
			return false
		case r == ' ':
		default:
			return false
		}
	}
	return letters >= 6
}
