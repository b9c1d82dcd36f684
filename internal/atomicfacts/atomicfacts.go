// Package atomicfacts breaks each sentence of a segmented response into a
// list of singular, independently-checkable facts via few-shot LLM
// prompting, with BM25-retrieved demonstrations and entity-gated
// postprocessing.
package atomicfacts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hurttlocker/safe-eval/internal/bm25"
	"github.com/hurttlocker/safe-eval/internal/entity"
	"github.com/hurttlocker/safe-eval/internal/llm"
)

// numFixedDemos and numRetrievedDemos are the fixed and BM25-retrieved
// demonstration counts used for biography-style long-form responses; this
// port only targets that case, so no alternate demo-count branch exists.
const (
	numFixedDemos     = 7
	numRetrievedDemos = 1
)

const instruction = `Instructions:
1. You are given a sentence. Your task is to break the sentence down into a list of atomic facts.
2. An atomic fact is a sentence containing a singular piece of information.
3. Each atomic fact in the outputted list should check a different piece of information.
4. Use the previous examples to learn how to do this.
5. You should only output the atomic facts as a list, with each item starting with "- ". Do not include other formatting.
6. Your task is to do this for the last sentence that is given.
`

// Pair is one sentence and the atomic facts extracted from it.
type Pair struct {
	Sentence string
	Facts    []string
}

var bmIndex *bm25.Index

func init() {
	keys := make([]string, len(demoOrder))
	for i, d := range demoOrder {
		keys[i] = d.Sentence
	}
	bmIndex = bm25.NewIndex(keys)
}

// Generator extracts atomic facts from segmented sentences.
type Generator struct {
	Client *llm.Client
}

// NewGenerator builds a Generator backed by client.
func NewGenerator(client *llm.Client) *Generator {
	return &Generator{Client: client}
}

// Run converts a full generation's sentences into (sentence, facts) pairs,
// after entity-gated postprocessing, mirroring
// get_atomic_facts_from_paragraph's is_bio branch.
func (g *Generator) Run(ctx context.Context, sentences []string, paraBreaks []int) ([]Pair, []int, error) {
	pairs := make([]Pair, 0, len(sentences))

	for _, sent := range sentences {
		trimmed := strings.TrimSpace(sent)
		if strings.HasPrefix(trimmed, "This sentence does not contain any facts") {
			pairs = append(pairs, Pair{Sentence: sent, Facts: nil})
			continue
		}

		facts, err := g.extractSentence(ctx, trimmed)
		if err != nil {
			return nil, nil, err
		}
		pairs = append(pairs, Pair{Sentence: sent, Facts: facts})
	}

	return postprocess(pairs, paraBreaks)
}

// extractSentence retrieves demos, builds the few-shot prompt, and parses
// the model's bullet-list response for a single sentence.
func (g *Generator) extractSentence(ctx context.Context, sentence string) ([]string, error) {
	if cached, ok := demoByKey[sentence]; ok {
		// The sentence is itself one of the demonstrations: reuse its
		// known facts instead of asking the model to re-derive them.
		return cached, nil
	}

	prompt := g.buildPrompt(sentence)

	output, err := g.Client.Generate(ctx, instruction+prompt, 0)
	if err != nil {
		return nil, err
	}

	facts := parseBulletList(output, "- ")
	if len(facts) == 0 {
		facts = parseBulletList(output, "* ")
	}
	return facts, nil
}

// buildPrompt assembles the numFixedDemos fixed examples, numRetrievedDemos
// BM25-retrieved examples, then the evaluation sentence, exactly as
// get_init_atomic_facts_from_sentence's prompt-construction loop does.
func (g *Generator) buildPrompt(sentence string) string {
	var sb strings.Builder

	n := numFixedDemos
	if n > len(demoOrder) {
		n = len(demoOrder)
	}
	for i := 0; i < n; i++ {
		writeDemo(&sb, demoOrder[i].Sentence, demoOrder[i].Facts)
	}

	added := 0
	for _, idx := range bmIndex.TopN(sentence, len(demoOrder)) {
		if added >= numRetrievedDemos {
			break
		}
		if idx < n {
			continue // already included as a fixed demo; don't duplicate
		}
		writeDemo(&sb, demoOrder[idx].Sentence, demoOrder[idx].Facts)
		added++
	}

	sb.WriteString(fmt.Sprintf("Please breakdown the following sentence into independent facts: %s\n", sentence))
	return sb.String()
}

func writeDemo(sb *strings.Builder, sentence string, facts []string) {
	sb.WriteString(fmt.Sprintf("Please breakdown the following sentence into independent facts: %s\n", sentence))
	for _, f := range facts {
		sb.WriteString("- " + f + "\n")
	}
	sb.WriteString("\n")
}

// parseBulletList extracts list items from text introduced by sep (e.g.
// "- " or "* "), matching text_to_sentences: drop everything before the
// first item, trim each item to its own line, and ensure the final item
// ends with a period.
func parseBulletList(text, sep string) []string {
	parts := strings.Split(text, sep)
	if len(parts) <= 1 {
		return nil
	}
	parts = parts[1:]

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if idx := strings.Index(p, "\n"); idx >= 0 {
			p = p[:idx]
		}
		p = strings.TrimRight(strings.TrimSpace(p), "\n")
		if p == "" {
			continue
		}
		out = append(out, p)
	}

	if len(out) > 0 {
		last := out[len(out)-1]
		if !strings.HasSuffix(last, ".") {
			out[len(out)-1] = last + "."
		}
	}

	return out
}

// postprocessVerbs lists sentence endings treated as likely redundant with
// an adjacent fact ("X was born." duplicating "X was born in 1977."),
// except permittedVerbs which are allowed through unchanged.
var postprocessVerbs = []string{
	"born.", " appointed.", " characterized.", " described.", " known.",
	" member.", " advocate.", "served.", "elected.",
}

var permittedVerbs = []string{"founding member."}

// postprocess applies sentence-fragment gluing (for stray single-word
// "sentences" produced by splitter edge cases) and entity-gated fact
// filtering, matching postprocess_atomic_facts.
func postprocess(pairs []Pair, paraBreaks []int) ([]Pair, []int, error) {
	breakSet := make(map[int]bool, len(paraBreaks))
	for _, b := range paraBreaks {
		breakSet[b] = true
	}

	merged := make([]Pair, 0, len(pairs))
	newBreaks := make([]int, 0, len(paraBreaks))

	for i, p := range pairs {
		sent := strings.TrimSpace(p.Sentence)
		if len(strings.Fields(sent)) == 1 && !breakSet[i] && i > 0 && len(merged) > 0 {
			merged[len(merged)-1].Sentence += " " + sent
			merged[len(merged)-1].Facts = append(merged[len(merged)-1].Facts, p.Facts...)
			continue
		}
		if breakSet[i] {
			newBreaks = append(newBreaks, len(merged))
		}
		merged = append(merged, Pair{Sentence: sent, Facts: p.Facts})
	}

	out := make([]Pair, 0, len(merged))
	for _, p := range merged {
		out = append(out, Pair{Sentence: p.Sentence, Facts: gateFacts(p.Sentence, p.Facts)})
	}

	return out, newBreaks, nil
}

// gateFacts drops verb-ending facts redundant with a sibling fact, rewrites
// facts that introduce an entity not present in the source sentence (when a
// prefix match exists), drops facts introducing a genuinely new entity, and
// deduplicates. If gating removes coverage of an entity present in the
// source sentence, it reverts to the original fact list rather than risk
// losing valid facts.
func gateFacts(sentence string, facts []string) []string {
	sentEntities := entity.Detect(sentence)

	coveredEntities := map[string]bool{}
	newFacts := make([]string, 0, len(facts))

	for i, fact := range facts {
		if endsWithAny(fact, postprocessVerbs) && !endsWithAny(fact, permittedVerbs) {
			redundant := false
			for j, other := range facts {
				if j == i {
					continue
				}
				if strings.Contains(other, strings.TrimSuffix(fact, ".")) {
					redundant = true
					break
				}
			}
			if redundant {
				continue
			}
		}

		factEntities := entity.Detect(fact)
		var newEntities []string
		for e := range factEntities {
			if sentEntities[e] {
				coveredEntities[e] = true
			} else {
				newEntities = append(newEntities, e)
			}
		}
		sort.Strings(newEntities)

		sentEntityKeys := make([]string, 0, len(sentEntities))
		for e := range sentEntities {
			sentEntityKeys = append(sentEntityKeys, e)
		}
		sort.Strings(sentEntityKeys)

		doPass := false
		for _, ne := range newEntities {
			var preEnt string
			for _, e := range sentEntityKeys {
				if strings.HasPrefix(e, ne) {
					preEnt = e
					break
				}
			}
			if preEnt == "" {
				doPass = true
				break
			}
			fact = strings.ReplaceAll(fact, ne, preEnt)
			coveredEntities[preEnt] = true
		}
		if doPass {
			continue
		}

		if contains(newFacts, fact) {
			continue
		}
		newFacts = append(newFacts, fact)
	}

	if len(sentEntities) != len(coveredEntities) {
		return facts
	}
	for e := range sentEntities {
		if !coveredEntities[e] {
			return facts
		}
	}

	return newFacts
}

func endsWithAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func contains(ss []string, target string) bool {
	for _, s := range ss {
		if s == target {
			return true
		}
	}
	return false
}
