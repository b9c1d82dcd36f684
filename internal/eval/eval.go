// Package eval composes the segmentation, fact-extraction,
// decontextualization, relevance-classification, evidence-gathering, and
// verdict-resolution stages into one evaluation per (prompt, response),
// then fans that out across many responses with bounded concurrency,
// ordered output, and incremental checkpointing.
package eval

import (
	"context"

	"go.uber.org/zap"

	"github.com/hurttlocker/safe-eval/internal/atomicfacts"
	"github.com/hurttlocker/safe-eval/internal/decontext"
	"github.com/hurttlocker/safe-eval/internal/evidence"
	"github.com/hurttlocker/safe-eval/internal/logging"
	"github.com/hurttlocker/safe-eval/internal/metrics"
	"github.com/hurttlocker/safe-eval/internal/relevance"
	"github.com/hurttlocker/safe-eval/internal/safeerr"
	"github.com/hurttlocker/safe-eval/internal/segment"
	"github.com/hurttlocker/safe-eval/internal/verdict"
)

// Annotation is the terminal label a Checked Statement receives.
type Annotation string

const (
	Supported    Annotation = "Supported"
	NotSupported Annotation = "Not Supported"
	Irrelevant   Annotation = "Irrelevant"
)

// ResponseRecord is one immutable (prompt, response) pair entering the
// Batch Orchestrator.
type ResponseRecord struct {
	Prompt   string
	Response string
}

// CheckedStatement is the canonical per-fact record emitted by the
// Per-Response Orchestrator. Invariant: Annotation == Irrelevant iff
// RateTrace is nil.
type CheckedStatement struct {
	Sentence               string
	AtomicFact              string
	SelfContainedAtomicFact string
	RelevanceTrace          []string
	RateTrace               []string
	Annotation              Annotation
}

// SentenceFacts pairs one segmented sentence with its extracted atomic
// facts, before any were dropped by exhausted pipeline retries or a
// persistent verdict parse failure.
type SentenceFacts struct {
	Sentence    string
	AtomicFacts []string
}

// Counts is the annotation histogram over one response's Checked
// Statements.
type Counts struct {
	Supported    int
	NotSupported int
	Irrelevant   int
}

// ResponseEvaluation is one response's full evaluation. Evaluated is false
// for the sentinel "not evaluated" slot a failed Batch Orchestrator task
// leaves behind: every other field is then a zero value and must not be
// read.
type ResponseEvaluation struct {
	Prompt                  string
	Response                string
	SentencesAndAtomicFacts []SentenceFacts
	CheckedStatements       []CheckedStatement
	Counts                  Counts
	F1AtK                   float64
	Evaluated               bool
}

// ResponseEvaluator evaluates one response record at a time. Orchestrator
// is the production implementation; the Batch Orchestrator depends on this
// narrower interface so tests can substitute a fake that fails
// deterministically for specific records.
type ResponseEvaluator interface {
	Evaluate(ctx context.Context, rec ResponseRecord) (ResponseEvaluation, error)
}

// Orchestrator composes the pipeline stages for one response at a time.
type Orchestrator struct {
	Facts           *atomicfacts.Generator
	Decontext       *decontext.Decontextualizer
	Relevance       *relevance.Classifier
	Agent           *evidence.Agent
	Verdict         *verdict.Resolver
	MaxClaims       int // K, the factuality budget F1@K is computed against
	PipelineRetries int // MAX_PIPELINE_RETRIES
}

// New builds an Orchestrator from its component stages.
func New(facts *atomicfacts.Generator, dec *decontext.Decontextualizer, rel *relevance.Classifier, agent *evidence.Agent, ver *verdict.Resolver, maxClaims, pipelineRetries int) *Orchestrator {
	return &Orchestrator{
		Facts:           facts,
		Decontext:       dec,
		Relevance:       rel,
		Agent:           agent,
		Verdict:         ver,
		MaxClaims:       maxClaims,
		PipelineRetries: pipelineRetries,
	}
}

// Evaluate runs the full pipeline for one (prompt, response) pair and
// aggregates its Checked Statements into counts and F1@K.
func (o *Orchestrator) Evaluate(ctx context.Context, rec ResponseRecord) (ResponseEvaluation, error) {
	seg := segment.Segment(rec.Response)

	pairs, _, err := o.Facts.Run(ctx, seg.Sentences, seg.ParaBreaks)
	if err != nil {
		return ResponseEvaluation{}, err
	}

	eval := ResponseEvaluation{Prompt: rec.Prompt, Response: rec.Response}

	for _, p := range pairs {
		eval.SentencesAndAtomicFacts = append(eval.SentencesAndAtomicFacts, SentenceFacts{
			Sentence:    p.Sentence,
			AtomicFacts: p.Facts,
		})

		for _, fact := range p.Facts {
			cs, ok := o.evaluateFact(ctx, rec, p.Sentence, fact)
			if !ok || cs == nil {
				continue
			}
			eval.CheckedStatements = append(eval.CheckedStatements, *cs)
		}
	}

	eval.Counts = histogram(eval.CheckedStatements)

	result, err := metrics.Calculate(eval.Counts.Supported, eval.Counts.NotSupported, o.MaxClaims)
	if err != nil {
		return ResponseEvaluation{}, err
	}
	eval.F1AtK = metrics.RoundScalar(result.F1)
	eval.Evaluated = true

	return eval, nil
}

// evaluateFact wraps one fact's decontextualize-through-verdict workflow in
// up to PipelineRetries attempts over unexpected errors. ok=false means
// every attempt errored and the fact is dropped
// (logged, not propagated); ok=true with a nil *CheckedStatement means the
// Verdict Resolver itself already decided, per its own contract, that this
// fact gets no annotation.
func (o *Orchestrator) evaluateFact(ctx context.Context, rec ResponseRecord, sentence, fact string) (*CheckedStatement, bool) {
	attempts := o.PipelineRetries
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		cs, err := o.runFact(ctx, rec, sentence, fact)
		if err == nil {
			return cs, true
		}
		lastErr = err
	}

	logging.L().Warn("dropping atomic fact after pipeline retries exhausted",
		zap.String("fact", fact), zap.Error(lastErr))
	return nil, false
}

// runFact decontextualizes fact, then either stops at Irrelevant or goes on
// through evidence gathering and verdict resolution. A non-nil error here
// is always a KindPipeline error eligible for retry by evaluateFact; the
// Verdict Resolver's own "no annotation" outcome is signalled by a nil
// *CheckedStatement with a nil error instead, since it is not a failure to
// retry.
func (o *Orchestrator) runFact(ctx context.Context, rec ResponseRecord, sentence, fact string) (*CheckedStatement, error) {
	selfContained, _, err := o.Decontext.Decontextualize(ctx, rec.Response, fact)
	if err != nil {
		return nil, safeerr.Pipeline(err)
	}

	relevant, relTrace, err := o.Relevance.IsRelevant(ctx, rec.Prompt, rec.Response, selfContained)
	if err != nil {
		return nil, safeerr.Pipeline(err)
	}

	cs := &CheckedStatement{
		Sentence:                sentence,
		AtomicFact:              fact,
		SelfContainedAtomicFact: selfContained,
		RelevanceTrace:          relTrace,
	}

	if !relevant {
		cs.Annotation = Irrelevant
		return cs, nil
	}

	trail, err := o.Agent.GatherEvidence(ctx, selfContained)
	if err != nil {
		return nil, safeerr.Pipeline(err)
	}

	answer, rateTrace, err := o.Verdict.Resolve(ctx, selfContained, trail)
	if err != nil {
		return nil, safeerr.Pipeline(err)
	}
	if answer == nil {
		// Persistent parse failure: no annotation, fact excluded from
		// counts. This is a designed outcome, not a pipeline failure, so it
		// is not retried.
		return nil, nil
	}

	cs.RateTrace = rateTrace
	cs.Annotation = Annotation(answer.Label)
	return cs, nil
}

func histogram(statements []CheckedStatement) Counts {
	var c Counts
	for _, s := range statements {
		switch s.Annotation {
		case Supported:
			c.Supported++
		case NotSupported:
			c.NotSupported++
		case Irrelevant:
			c.Irrelevant++
		}
	}
	return c
}
