package extract

import (
	"strings"
	"unicode"

	"github.com/siongang/study-agent/core"
)

const (
	// tocScanPages bounds how deep into a document the TOC search looks.
	tocScanPages = 30
	// tocMaxSpan bounds how many consecutive pages one TOC may span.
	tocMaxSpan = 5
	// tocMinNumberedLines is how many page-numbered lines make a page look
	// like TOC continuation.
	tocMinNumberedLines = 3
)

// DetectTOCPages locates the table of contents within the first pages of an
// extracted document. It returns the 1-indexed candidate pages and their
// concatenated text, or nil when no TOC is found.
//
// Detection is keyword-driven: a page mentioning "table of contents" (or a
// bare "contents" heading) starts the span, and following pages are included
// while they keep the dotted page-numbered look of a TOC.
func DetectTOCPages(text *core.ExtractedText) ([]int, string) {
	limit := text.NumPages
	if limit > tocScanPages {
		limit = tocScanPages
	}

	start := -1
	for i := 0; i < limit; i++ {
		if pageMentionsTOC(text.Pages[i]) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ""
	}

	pages := []int{start + 1}
	for i := start + 1; i < text.NumPages && len(pages) < tocMaxSpan; i++ {
		if !looksLikeTOCContinuation(text.Pages[i]) {
			break
		}
		pages = append(pages, i+1)
	}

	var b strings.Builder
	for _, p := range pages {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text.Pages[p-1])
	}
	return pages, b.String()
}

func pageMentionsTOC(page string) bool {
	lower := strings.ToLower(page)
	if strings.Contains(lower, "table of contents") {
		return true
	}
	for _, line := range strings.Split(lower, "\n") {
		if strings.TrimSpace(line) == "contents" {
			return true
		}
	}
	return false
}

// looksLikeTOCContinuation reports whether a page keeps the TOC shape:
// several lines that end in a page number.
func looksLikeTOCContinuation(page string) bool {
	numbered := 0
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if endsWithNumber(line) {
			numbered++
			if numbered >= tocMinNumberedLines {
				return true
			}
		}
	}
	return false
}

func endsWithNumber(line string) bool {
	runes := []rune(line)
	i := len(runes) - 1
	digits := 0
	for i >= 0 && unicode.IsDigit(runes[i]) {
		digits++
		i--
	}
	return digits > 0
}
