// Package safeerr implements a five-kind error taxonomy: Input, Transport,
// Parse, Pipeline, and I/O errors. Input errors (malformed results JSON,
// K<=0, negative counts) use github.com/ZanzyTHEbar/errbuilder-go for
// structured, code-tagged construction. The other kinds vary too much per
// call site (provider name, retry count, parse target) to benefit from a
// fixed builder shape, so they use a thin Kind-tagged wrapper instead.
package safeerr

import (
	"errors"
	"fmt"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"
)

// Kind classifies an error by behavior rather than by Go type: what should
// happen when this error surfaces.
type Kind string

const (
	// KindInput: malformed results JSON, missing required fields, negative
	// counts, K<=0. Surfaced; aborts the batch.
	KindInput Kind = "input"
	// KindTransport: LLM or search provider non-success after exhausting
	// retry.Do's attempts.
	KindTransport Kind = "transport"
	// KindParse: model output didn't match the expected bracketed or
	// fenced-code-block pattern, after exhausting max_retries.
	KindParse Kind = "parse"
	// KindPipeline: unexpected exception inside the per-fact workflow,
	// after exhausting MAX_PIPELINE_RETRIES.
	KindPipeline Kind = "pipeline"
	// KindIO: checkpoint write/read failure.
	KindIO Kind = "io"
)

// Error tags an underlying error with a Kind so callers can branch on
// taxonomy (e.g. "abort the batch" vs "drop this fact and continue")
// without string-matching messages.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err (or anything it wraps) is a safeerr.Error of kind k.
func Is(err error, k Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == k
	}
	return false
}

// Input builds a KindInput error using errbuilder-go, the way the example
// provider config validation builds its own invalid-argument errors:
// errbuilder.New().WithMsg(...).WithCode(...).WithDetails(...).
func Input(msg string, details map[string]string) error {
	b := errbuilder.New().WithMsg(msg).WithCode(errbuilder.CodeInvalidArgument)
	if len(details) > 0 {
		em := errbuilder.ErrorMap{}
		for k, v := range details {
			em[k] = errors.New(v)
		}
		b = b.WithDetails(errbuilder.NewErrDetails(em))
	}
	return &Error{Kind: KindInput, Err: b}
}

// Transport wraps a provider-transport failure.
func Transport(provider string, err error) error {
	return &Error{Kind: KindTransport, Err: fmt.Errorf("%s: %w", provider, err)}
}

// Parse builds a KindParse error describing what failed to parse.
func Parse(what string) error {
	return &Error{Kind: KindParse, Err: fmt.Errorf("could not parse %s from model output", what)}
}

// Pipeline wraps an unexpected per-fact workflow failure.
func Pipeline(err error) error {
	return &Error{Kind: KindPipeline, Err: err}
}

// IO wraps a checkpoint I/O failure.
func IO(op string, err error) error {
	return &Error{Kind: KindIO, Err: fmt.Errorf("%s: %w", op, err)}
}
