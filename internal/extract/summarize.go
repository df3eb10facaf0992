package extract

import "strings"

// DefaultSummaryBudget is the rune budget for Summarize.
const DefaultSummaryBudget = 400

// Summarize produces a short extractive summary: leading sentences
// accumulated greedily until the rune budget would be exceeded. The
// summary never cuts a sentence in half; when not even the first
// sentence fits, it is truncated on a word boundary with an ellipsis.
func Summarize(text string, budget int) string {
	if budget <= 0 {
		budget = DefaultSummaryBudget
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	sentences := splitSentences(text)

	var b strings.Builder
	used := 0
	for _, s := range sentences {
		n := len([]rune(s))
		sep := 0
		if used > 0 {
			sep = 1
		}
		if used+sep+n > budget {
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		used += sep + n
	}

	if b.Len() > 0 {
		return b.String()
	}
	return truncateWords(sentences[0], budget)
}

// splitSentences segments on terminal punctuation followed by a space.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 == len(runes) || runes[i+1] == ' ' {
				s := strings.TrimSpace(string(runes[start : i+1]))
				if s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// truncateWords cuts a sentence to the budget on a word boundary,
// appending an ellipsis when anything was dropped.
func truncateWords(s string, budget int) string {
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	cut := budget
	if cut > 1 {
		cut-- // room for the ellipsis
	}
	truncated := string(runes[:cut])
	if idx := strings.LastIndexByte(truncated, ' '); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "…"
}
