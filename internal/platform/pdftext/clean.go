package pdftext

import (
	"regexp"
	"strings"
)

var (
	reSpaces     = regexp.MustCompile(`[ \t]+`)
	reManyBreaks = regexp.MustCompile(`\n{3,}`)
	reHyphenated = regexp.MustCompile(`(\w+)-[ \t]*\n\s*(\w+)`)
	rePageNumber = regexp.MustCompile(`\n\d+\n`)
)

// CleanText normalizes extracted PDF text: runs of blanks collapse to one
// space, 3+ newlines collapse to a paragraph break, words hyphenated across a
// line break are rejoined and bare page-number lines are dropped.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = reSpaces.ReplaceAllString(s, " ")
	s = reManyBreaks.ReplaceAllString(s, "\n\n")
	s = reHyphenated.ReplaceAllString(s, "$1$2")
	s = rePageNumber.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// GuessTitle returns the first plausible heading line of the text.
func GuessTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 4 || len(line) > 200 {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "arxiv:") {
			continue
		}
		return line
	}
	return ""
}
