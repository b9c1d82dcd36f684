// Package relevance decides whether a self-contained fact's subject relates
// to the prompt's subject in the manner the response describes, using an
// LLM prompt with a `[Foo]`/`[Not Foo]` marker convention.
package relevance

import (
	"context"
	"fmt"
	"strings"

	"github.com/hurttlocker/safe-eval/internal/llm"
	"github.com/hurttlocker/safe-eval/internal/textparse"
)

const relevantMarker = "Foo"
const notRelevantMarker = "Not Foo"

const promptTemplate = `In a given RESPONSE, two subjects are considered "{%s}" if the RESPONSE contains information that explains how the two subjects are related.
Instructions:
1. The following STATEMENT was extracted from the broader context of the RESPONSE to the given QUESTION.
2. First, state the broad subject of the STATEMENT and the broad subject of the QUESTION.
3. Next, determine whether the subject of the STATEMENT and the subject of the QUESTION should be considered %s, based on the given definition.
4. Before showing your answer, think step-by-step and show your specific reasoning.
5. If the subjects should be considered %s, say "[%s]" at the end. If the subjects should not be considered %s, say "[%s]" at the end.
6. Your task is to do this for the STATEMENT and QUESTION under "Your Task".

QUESTION:
%s

RESPONSE:
%s

STATEMENT:
%s
`

// Classifier decides whether a fact is relevant to its originating prompt.
type Classifier struct {
	Client     *llm.Client
	MaxRetries int
}

// New builds a Classifier with the given parse-retry budget.
func New(client *llm.Client, maxRetries int) *Classifier {
	return &Classifier{Client: client, MaxRetries: maxRetries}
}

// IsRelevant decides whether fact is relevant to prompt, given response for
// context. On persistent parse failure after MaxRetries attempts it
// defaults to relevant — a deliberately conservative fallback that forces
// the fact through rating rather than silently dropping it — returning the
// raw model outputs attempted as a debug trace.
func (c *Classifier) IsRelevant(ctx context.Context, prompt, response, fact string) (relevant bool, trace []string, err error) {
	p := fmt.Sprintf(promptTemplate,
		relevantMarker,
		relevantMarker, relevantMarker, relevantMarker, relevantMarker, notRelevantMarker,
		prompt, response, fact,
	)

	attempts := c.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		out, genErr := c.Client.Generate(ctx, p, 0)
		if genErr != nil {
			return false, trace, genErr
		}
		trace = append(trace, out)

		if token, ok := textparse.ExtractFirstSquareBrackets(out); ok {
			switch {
			case strings.EqualFold(strings.TrimSpace(token), relevantMarker):
				return true, trace, nil
			case strings.EqualFold(strings.TrimSpace(token), notRelevantMarker):
				return false, trace, nil
			}
		}
	}

	return true, trace, nil
}
