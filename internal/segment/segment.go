// Package segment splits a long-form response into sentences: paragraph
// splitting, sentence tokenization, and an initials-repair pass that keeps
// "J. K. Rowling" from being split mid-name.
package segment

import (
	"regexp"
	"strings"
)

var initialsRe = regexp.MustCompile(`[A-Z]\.\s?[A-Z]\.`)

// sentenceEndRe splits on a simple sentence boundary: '.', '!', or '?'
// followed by whitespace; what follows the whitespace is not checked, and
// lowercase continuations are glued back by fixSentenceSplitter. This mirrors
// nltk's punkt tokenizer closely enough for SAFE's purposes (short,
// well-formed LLM responses) without pulling in a statistical tokenizer.
var sentenceEndRe = regexp.MustCompile(`(?:[.!?])\s+`)

// Result is the output of Segment: the flattened sentence list plus the
// indices into it where a new paragraph begins (excluding index 0).
type Result struct {
	Sentences  []string
	ParaBreaks []int
}

// Segment splits generation into paragraphs (each non-blank line is one
// paragraph; blank lines are skipped), then sentences
// within each paragraph, repairing initials-induced false splits along the
// way. Calling Segment twice on the same input always returns the same
// result.
func Segment(generation string) Result {
	var sentences []string
	var paraBreaks []int

	paraIdx := 0
	for _, rawPara := range strings.Split(generation, "\n") {
		para := strings.TrimSpace(rawPara)
		if para == "" {
			continue
		}
		if paraIdx > 0 {
			paraBreaks = append(paraBreaks, len(sentences))
		}
		paraIdx++

		initials := detectInitials(para)
		curr := tokenizeSentences(para)
		curr = fixSentenceSplitter(curr, initials)
		sentences = append(sentences, curr...)
	}

	return Result{Sentences: sentences, ParaBreaks: paraBreaks}
}

// detectInitials finds "X. Y."-shaped initial sequences, the pattern
// fixSentenceSplitter uses to re-merge sentences a naive tokenizer split
// between the two initials.
func detectInitials(text string) []string {
	return initialsRe.FindAllString(text, -1)
}

var singleInitialRe = regexp.MustCompile(`(?:^|\s)([A-Z])$`)

// tokenizeSentences performs a naive sentence split on '.', '!', '?'
// boundaries, skipping boundaries immediately after a single capital letter
// ("J.", "K.") since those are almost always initials, not sentence ends —
// the case third_party/factscore/atomic_facts.py instead handles after the
// fact via detect_initials/fix_sentence_splitter re-merging.
func tokenizeSentences(para string) []string {
	para = strings.TrimSpace(para)
	if para == "" {
		return nil
	}

	idxs := sentenceEndRe.FindAllStringIndex(para, -1)
	if len(idxs) == 0 {
		return []string{para}
	}

	var out []string
	start := 0
	for _, m := range idxs {
		candidate := para[start : m[0]+1]
		beforeDot := strings.TrimSuffix(candidate, ".")
		if singleInitialRe.MatchString(beforeDot) {
			continue
		}
		out = append(out, strings.TrimSpace(candidate))
		start = m[1]
	}
	if rest := strings.TrimSpace(para[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// fixSentenceSplitter repairs two classes of false sentence boundary: (1) an
// initials sequence like "J. K." split across two tokenizer outputs, merged
// back together; (2) short fragments (<=1 word) or a lowercase-starting
// continuation, glued onto the neighboring sentence. Grounded on
// third_party/factscore/atomic_facts.py's fix_sentence_splitter.
func fixSentenceSplitter(curr []string, initials []string) []string {
	for _, initial := range initials {
		found := false
		for _, s := range curr {
			if strings.Contains(s, initial) {
				found = true
				break
			}
		}
		if found {
			continue
		}

		parts := strings.SplitN(initial, ".", 2)
		if len(parts) != 2 {
			continue
		}
		alpha1 := strings.TrimSpace(parts[0])
		alpha2 := strings.TrimSpace(strings.TrimSuffix(parts[1], "."))

		for i := 0; i < len(curr)-1; i++ {
			if strings.HasSuffix(curr[i], alpha1+".") && strings.HasPrefix(curr[i+1], alpha2+".") {
				merged := curr[i] + " " + curr[i+1]
				curr = append(append(append([]string{}, curr[:i]...), merged), curr[i+2:]...)
				break
			}
		}
	}

	var sentences []string
	combineWithPrevious := false

	for idx, sent := range curr {
		words := len(strings.Fields(sent))
		switch {
		case words <= 1 && idx == 0:
			combineWithPrevious = true
			sentences = append(sentences, sent)
		case words <= 1:
			sentences[len(sentences)-1] += " " + sent
		case sent != "" && isLowerAlphaStart(sent) && idx > 0:
			sentences[len(sentences)-1] += " " + sent
			combineWithPrevious = false
		case combineWithPrevious:
			sentences[len(sentences)-1] += " " + sent
			combineWithPrevious = false
		default:
			sentences = append(sentences, sent)
		}
	}

	return sentences
}

func isLowerAlphaStart(s string) bool {
	r := []rune(s)
	if len(r) == 0 {
		return false
	}
	first := r[0]
	return first >= 'a' && first <= 'z'
}
