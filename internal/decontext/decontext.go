// Package decontext rewrites an atomic fact to stand on its own, replacing
// pronouns, partial names, and demonstratives with information drawn only
// from the enclosing response.
package decontext

import (
	"context"
	"fmt"

	"github.com/hurttlocker/safe-eval/internal/llm"
	"github.com/hurttlocker/safe-eval/internal/textparse"
)

const promptTemplate = `Vague references include but are not limited to:
- Pronouns (e.g., "his", "they", "it")
- Incomplete names (e.g., "Jeff..." where the full name is Jeff Bezos)
- Unknown entities (e.g., "this event" without referring to what event)
- Incomplete dates (e.g., "in 2010" without referring to what month or day)
- Partial details (e.g., referencing a previous entity with only partial detail)

Instructions:
1. The following STATEMENT has been extracted from the broader context of the RESPONSE.
2. Modify the STATEMENT by replacing vague references with specific information from the RESPONSE that makes the STATEMENT standalone.
3. You must not change any of the factual claims made by the original STATEMENT.
4. You must not introduce any new facts not stated by the original STATEMENT.
5. Output your revised statement in a single fenced code block, and nothing else.

RESPONSE:
%s

STATEMENT:
%s
`

// Decontextualizer rewrites atomic facts to be self-contained.
type Decontextualizer struct {
	Client     *llm.Client
	MaxRetries int
}

// New builds a Decontextualizer with the given parse-retry budget.
func New(client *llm.Client, maxRetries int) *Decontextualizer {
	return &Decontextualizer{Client: client, MaxRetries: maxRetries}
}

// Decontextualize rewrites fact against response, retrying up to
// MaxRetries times on an unparsable response. On persistent parse failure
// it returns the original fact unchanged, along with every raw model output
// attempted, as a debug trace.
func (d *Decontextualizer) Decontextualize(ctx context.Context, response, fact string) (revised string, trace []string, err error) {
	prompt := fmt.Sprintf(promptTemplate, response, fact)

	attempts := d.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		out, genErr := d.Client.Generate(ctx, prompt, 0)
		if genErr != nil {
			return "", trace, genErr
		}
		trace = append(trace, out)

		if block, ok := textparse.ExtractFirstFencedBlock(out); ok {
			return block, trace, nil
		}
	}

	return fact, trace, nil
}
