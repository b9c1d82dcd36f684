// Package verdict resolves a final verdict for a fact: given the fact and
// its gathered evidence trail, it asks the model to reason and emit a
// Supported/Not Supported label.
package verdict

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hurttlocker/safe-eval/internal/evidence"
	"github.com/hurttlocker/safe-eval/internal/llm"
	"github.com/hurttlocker/safe-eval/internal/textparse"
)

// Label is a resolved Supported/Not Supported verdict.
type Label string

const (
	Supported    Label = "Supported"
	NotSupported Label = "Not Supported"
)

const promptTemplate = `Instructions:
1. You have been given a STATEMENT and some KNOWLEDGE points.
2. Determine whether the given STATEMENT is supported by the given KNOWLEDGE. The STATEMENT does not need to be explicitly supported by the KNOWLEDGE, but should be strongly implied by the KNOWLEDGE.
3. Before showing your answer, think step-by-step and show your specific reasoning. As part of your reasoning, summarize the main points of the KNOWLEDGE.
4. If the STATEMENT is supported by the KNOWLEDGE, be sure to show the supporting evidence.
5. After stating your reasoning, restate the STATEMENT and then determine your final answer based on your reasoning and the STATEMENT.
6. Your final answer should be either "%s" or "%s". Wrap your final answer in square brackets.

KNOWLEDGE:
%s

STATEMENT:
%s
`

var nonAlnumRe = regexp.MustCompile(`[^\w\s]`)

// Answer is a resolved verdict plus the raw model response it came from.
type Answer struct {
	Response string
	Label    Label
}

// Resolver resolves a Supported/Not Supported verdict from an evidence
// trail.
type Resolver struct {
	Client     *llm.Client
	MaxRetries int
}

// New builds a Resolver with the given parse-retry budget.
func New(client *llm.Client, maxRetries int) *Resolver {
	return &Resolver{Client: client, MaxRetries: maxRetries}
}

// Resolve asks the model to judge fact against the concatenated evidence
// trail. On persistent parse failure after MaxRetries attempts, it returns
// (nil, trace, nil): the fact receives no annotation and is excluded from
// counts, rather than erroring the whole pipeline.
func (r *Resolver) Resolve(ctx context.Context, fact string, trail []evidence.SearchStep) (*Answer, []string, error) {
	knowledge := "N/A"
	if len(trail) > 0 {
		parts := make([]string, len(trail))
		for i, s := range trail {
			parts[i] = s.Result
		}
		knowledge = strings.Join(parts, "\n")
	}

	prompt := fmt.Sprintf(promptTemplate, Supported, NotSupported, knowledge, fact)

	attempts := r.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	var trace []string
	for i := 0; i < attempts; i++ {
		out, err := r.Client.Generate(ctx, prompt, 0)
		if err != nil {
			return nil, trace, err
		}
		trace = append(trace, out)

		raw, ok := textparse.ExtractFirstSquareBrackets(out)
		if !ok {
			continue
		}
		cleaned := strings.TrimSpace(nonAlnumRe.ReplaceAllString(raw, ""))

		switch cleaned {
		case string(Supported):
			return &Answer{Response: out, Label: Supported}, trace, nil
		case string(NotSupported):
			return &Answer{Response: out, Label: NotSupported}, trace, nil
		}
	}

	return nil, trace, nil
}
