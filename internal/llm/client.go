package llm

import (
	"context"

	"github.com/hurttlocker/safe-eval/internal/retry"
	"github.com/hurttlocker/safe-eval/internal/safeerr"
)

// Client wraps a Provider with the retry policy every pipeline stage shares:
// on transport failure, retry with full-jitter backoff until retry.LLMTransport's
// budget is exhausted, then surface a safeerr KindTransport error. Grounded on
// common/modeling.py's Model.generate, which retries indefinitely against
// rate limits rather than failing a single call.
type Client struct {
	Provider Provider
	Policy   retry.Policy
}

// NewClient wraps p with the default LLM transport retry policy.
func NewClient(p Provider) *Client {
	return &Client{Provider: p, Policy: retry.LLMTransport()}
}

// Generate issues a single completion request at the given temperature,
// retrying transport failures; every other CompletionOpts field is left at
// its zero value. Use Complete for full control.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	return c.Complete(ctx, prompt, CompletionOpts{Temperature: temperature})
}

// Complete issues a single completion request with full opts control,
// retrying transport failures per c.Policy.
func (c *Client) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	var out string
	err := retry.Do(ctx, c.Policy, func(ctx context.Context) error {
		text, err := c.Provider.Complete(ctx, prompt, opts)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", safeerr.Transport(c.Provider.Name(), err)
	}
	return out, nil
}

// FakeProvider is a deterministic Provider double for unit tests, modeled on
// common/modeling.py's FakeModel: it returns canned responses in sequence
// (or a single static response repeated) instead of making network calls.
type FakeProvider struct {
	ProviderName string
	Responses    []string // consumed in order, one per Complete call
	StaticReply  string   // used once Responses is exhausted, or always if Responses is empty
	Err          error    // if set, every call returns this error instead
	Calls        []string // records every prompt passed to Complete, for assertions

	next int
}

func (f *FakeProvider) Name() string {
	if f.ProviderName != "" {
		return f.ProviderName
	}
	return "fake/static"
}

func (f *FakeProvider) Complete(_ context.Context, prompt string, _ CompletionOpts) (string, error) {
	f.Calls = append(f.Calls, prompt)
	if f.Err != nil {
		return "", f.Err
	}
	if f.next < len(f.Responses) {
		r := f.Responses[f.next]
		f.next++
		return r, nil
	}
	return f.StaticReply, nil
}
