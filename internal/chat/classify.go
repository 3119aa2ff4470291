package chat

import (
	"strings"
	"unicode"
)

// questionLeadWords are the interrogative/aggregation words that route a
// turn to the summary path instead of extraction.
var questionLeadWords = []string{
	"how", "what", "show", "list", "sum", "calculate", "analyze", "total", "spent",
}

// IsQuestion reports whether the text asks about existing records rather
// than logging new spending. Matching is a case-insensitive check on the
// first word. "spent" leads both statements ("Spent 500 on dinner") and
// questions, so it only counts when the turn ends with a question mark.
func IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	first := strings.ToLower(trimmed)
	if idx := strings.IndexFunc(first, func(r rune) bool { return !unicode.IsLetter(r) }); idx != -1 {
		first = first[:idx]
	}

	for _, w := range questionLeadWords {
		if first != w {
			continue
		}
		if w == "spent" {
			return strings.HasSuffix(trimmed, "?")
		}
		return true
	}
	return false
}
