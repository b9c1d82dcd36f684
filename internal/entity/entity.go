// Package entity implements regex-driven numeric/date/ordinal entity
// detection, used by internal/atomicfacts' postprocessing step to gate
// generated facts against the entities present in their source sentence.
package entity

import (
	"regexp"
	"strconv"
	"strings"
)

var months = map[string]bool{
	"january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true,
	"september": true, "october": true, "november": true, "december": true,
}

var (
	articleRe = regexp.MustCompile(`\b(a|an|the)\b`)
	punctRe   = regexp.MustCompile(`[^\w\s-]`)
	numericRe = regexp.MustCompile(`\b\d+\b`)
	// ordinal/date-ish tokens: plain integers, or integers with an ordinal
	// suffix (1st, 2nd, 3rd, 4th, ...).
	ordinalRe = regexp.MustCompile(`^\d+(st|nd|rd|th)?$`)
)

// NormalizeAnswer lowercases s, strips punctuation and articles, and
// collapses whitespace, used by IsDate to decide whether a token is an
// ordinary word or a date/number fragment.
func NormalizeAnswer(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, "")
	s = articleRe.ReplaceAllString(s, " ")
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// IsNum reports whether text parses as an integer.
func IsNum(text string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(text))
	return err == nil
}

// IsDate reports whether every whitespace-separated token in text is either
// an integer or a month name, after normalization.
func IsDate(text string) bool {
	norm := NormalizeAnswer(text)
	if norm == "" {
		return false
	}
	for _, tok := range strings.Fields(norm) {
		if !IsNum(tok) && !months[tok] {
			return false
		}
	}
	return true
}

// ExtractNumericValues returns the set of bare integer substrings in text.
func ExtractNumericValues(text string) map[string]bool {
	out := map[string]bool{}
	for _, m := range numericRe.FindAllString(text, -1) {
		out[m] = true
	}
	return out
}

// Detect returns the set of date/numeric/ordinal entity strings found in
// text: a regex-only stand-in restricted to
// DATE/TIME/PERCENT/MONEY/QUANTITY/ORDINAL/CARDINAL-style entities.
// Hyphenated entities are split into parts.
func Detect(text string) map[string]bool {
	entities := map[string]bool{}

	addToEntities := func(s string) {
		if strings.Contains(s, "-") {
			for _, part := range strings.Split(s, "-") {
				part = strings.TrimSpace(part)
				if part != "" {
					entities[part] = true
				}
			}
		} else {
			entities[s] = true
		}
	}

	for _, tok := range strings.Fields(text) {
		stripped := strings.Trim(tok, ".,;:!?()\"'")
		if stripped == "" {
			continue
		}
		if IsDate(stripped) || ordinalRe.MatchString(strings.ToLower(stripped)) || months[strings.ToLower(stripped)] {
			addToEntities(stripped)
		}
	}

	for v := range ExtractNumericValues(text) {
		found := false
		for e := range entities {
			if strings.Contains(e, v) {
				found = true
				break
			}
		}
		if !found {
			entities[v] = true
		}
	}

	return entities
}
