package evidence

import (
	"context"
	"fmt"
	"strings"

	"github.com/hurttlocker/safe-eval/internal/llm"
	"github.com/hurttlocker/safe-eval/internal/textparse"
)

// SearchStep is one {query, result} pair in a fact's evidence trail,
// matching eval/safe/rate_atomic_fact.py's GoogleSearchResult.
type SearchStep struct {
	Query  string
	Result string
}

const nextSearchTemplate = `Instructions:
1. You have been given a STATEMENT and some KNOWLEDGE points.
2. Your goal is to try to find evidence that either supports or does not support the factual accuracy of the given STATEMENT.
3. To do this, you are allowed to issue ONE Google Search query that you think will allow you to find additional useful evidence.
4. Your query should aim to obtain new information that does not appear in the KNOWLEDGE. This new information should be useful for determining the factual accuracy of the given STATEMENT.
5. Format your final query by putting it in a markdown code block.

KNOWLEDGE:
%s

STATEMENT:
%s
`

// Agent drives the iterative query-generation loop: generate a search
// query, run it against Searcher, append to the evidence trail, and repeat
// up to MaxSteps times.
type Agent struct {
	Client     *llm.Client
	Searcher   Searcher
	MaxSteps   int
	MaxRetries int
}

// New builds an Agent with the given per-fact step budget and per-call
// parse-retry budget.
func New(client *llm.Client, searcher Searcher, maxSteps, maxRetries int) *Agent {
	return &Agent{Client: client, Searcher: searcher, MaxSteps: maxSteps, MaxRetries: maxRetries}
}

// GatherEvidence runs the search loop for fact, returning whatever steps
// were gathered before either MaxSteps was reached or query generation
// failed to parse after MaxRetries attempts — a persistent parse failure
// aborts only this fact's rating, returning what evidence was gathered so
// far rather than failing the whole run.
func (a *Agent) GatherEvidence(ctx context.Context, fact string) ([]SearchStep, error) {
	var steps []SearchStep

	for i := 0; i < a.MaxSteps; i++ {
		query, ok, err := a.nextQuery(ctx, fact, steps)
		if err != nil {
			// Transport failure aborts only this fact's rating; return what
			// has been gathered so far rather than propagating.
			return steps, nil
		}
		if !ok {
			break
		}

		result, err := a.Searcher.Search(ctx, query)
		if err != nil {
			return steps, nil
		}

		steps = append(steps, SearchStep{Query: query, Result: result})
	}

	return steps, nil
}

// nextQuery asks the model for one new search query, retrying up to
// MaxRetries times on a parse failure.
func (a *Agent) nextQuery(ctx context.Context, fact string, past []SearchStep) (string, bool, error) {
	knowledge := "N/A"
	if len(past) > 0 {
		parts := make([]string, len(past))
		for i, s := range past {
			parts[i] = s.Result
		}
		knowledge = strings.Join(parts, "\n")
	}

	prompt := fmt.Sprintf(nextSearchTemplate, knowledge, fact)

	attempts := a.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		out, err := a.Client.Generate(ctx, prompt, 0)
		if err != nil {
			return "", false, err
		}
		if query, ok := textparse.ExtractFirstFencedBlock(out); ok && query != "" {
			return query, true, nil
		}
	}

	return "", false, nil
}
