// Package textparse implements the small set of output-extraction helpers
// shared by every few-shot pipeline stage (decontext, relevance, verdict,
// evidence): pulling a fenced code block or a bracketed token out of raw
// model text. Grounded on common/utils.py's extract_first_code_block and
// extract_first_square_brackets.
package textparse

import "strings"

// ExtractFirstFencedBlock returns the contents of the first ``` ... ```
// fenced block in text (language-agnostic: an optional language tag on the
// opening fence is discarded), trimmed of surrounding whitespace. ok is
// false if no closed fence pair is found.
func ExtractFirstFencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start == -1 {
		return "", false
	}
	rest := text[start+3:]

	// skip an optional language tag up to the first newline
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}

	return strings.TrimSpace(rest[:end]), true
}

// ExtractFirstSquareBrackets returns the contents of the first [ ... ]
// bracketed span in text, matching common/utils.py's
// extract_first_square_brackets (non-greedy, no nesting support).
func ExtractFirstSquareBrackets(text string) (string, bool) {
	start := strings.Index(text, "[")
	if start == -1 {
		return "", false
	}
	end := strings.Index(text[start+1:], "]")
	if end == -1 {
		return "", false
	}
	return text[start+1 : start+1+end], true
}
