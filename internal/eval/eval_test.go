package eval

import (
	"context"
	"testing"

	"github.com/hurttlocker/safe-eval/internal/atomicfacts"
	"github.com/hurttlocker/safe-eval/internal/decontext"
	"github.com/hurttlocker/safe-eval/internal/evidence"
	"github.com/hurttlocker/safe-eval/internal/llm"
	"github.com/hurttlocker/safe-eval/internal/relevance"
	"github.com/hurttlocker/safe-eval/internal/verdict"
)

type staticSearcher struct{ result string }

func (s *staticSearcher) Search(_ context.Context, _ string) (string, error) {
	return s.result, nil
}

func newTestOrchestrator(t *testing.T, factReplies, relevanceReplies, verdictReplies []string) *Orchestrator {
	t.Helper()

	factsFP := &llm.FakeProvider{Responses: factReplies}
	decontextFP := &llm.FakeProvider{StaticReply: "```\nrevised fact\n```"}
	relevanceFP := &llm.FakeProvider{Responses: relevanceReplies}
	agentFP := &llm.FakeProvider{StaticReply: "```\nsome search query\n```"}
	verdictFP := &llm.FakeProvider{Responses: verdictReplies}

	facts := atomicfacts.NewGenerator(llm.NewClient(factsFP))
	dec := decontext.New(llm.NewClient(decontextFP), 2)
	rel := relevance.New(llm.NewClient(relevanceFP), 2)
	agent := evidence.New(llm.NewClient(agentFP), &staticSearcher{result: "some evidence"}, 1, 1)
	ver := verdict.New(llm.NewClient(verdictFP), 2)

	return New(facts, dec, rel, agent, ver, 100, 3)
}

func TestEvaluate_MixedAnnotations(t *testing.T) {
	o := newTestOrchestrator(t,
		[]string{
			"- Lanny Flaherty is American.\n- Lanny Flaherty is an actor.\n",
			"- Lanny Flaherty appeared in Signs.\n",
		},
		[]string{"[Foo]", "[Foo]", "[Not Foo]"},
		[]string{"[Supported]", "[Not Supported]"},
	)

	rec := ResponseRecord{
		Prompt:   "Who is Lanny Flaherty?",
		Response: "Lanny Flaherty is an American actor. He appeared in Signs.",
	}

	eval, err := o.Evaluate(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eval.Evaluated {
		t.Fatal("expected Evaluated == true")
	}
	if len(eval.CheckedStatements) != 3 {
		t.Fatalf("expected 3 checked statements, got %d", len(eval.CheckedStatements))
	}
	if eval.Counts != (Counts{Supported: 1, NotSupported: 1, Irrelevant: 1}) {
		t.Fatalf("unexpected counts: %+v", eval.Counts)
	}
	for _, cs := range eval.CheckedStatements {
		if cs.Annotation == Irrelevant && cs.RateTrace != nil {
			t.Errorf("irrelevant statement must have nil RateTrace, got %v", cs.RateTrace)
		}
		if cs.Annotation != Irrelevant && cs.RateTrace == nil {
			t.Errorf("non-irrelevant statement must have a RateTrace")
		}
	}
}

func TestEvaluate_EmptyResponseYieldsZeroCounts(t *testing.T) {
	o := newTestOrchestrator(t, nil, nil, nil)

	eval, err := o.Evaluate(context.Background(), ResponseRecord{Prompt: "p", Response: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eval.CheckedStatements) != 0 {
		t.Fatalf("expected no checked statements, got %d", len(eval.CheckedStatements))
	}
	if eval.Counts != (Counts{}) {
		t.Fatalf("expected zero counts, got %+v", eval.Counts)
	}
	if eval.F1AtK != 0 {
		t.Fatalf("expected F1@K 0, got %v", eval.F1AtK)
	}
}

func TestEvaluate_AllIrrelevant(t *testing.T) {
	o := newTestOrchestrator(t,
		[]string{"- Fact one.\n- Fact two.\n- Fact three.\n"},
		[]string{"[Not Foo]", "[Not Foo]", "[Not Foo]"},
		nil,
	)

	rec := ResponseRecord{Prompt: "p", Response: "One sentence with three facts."}
	eval, err := o.Evaluate(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Counts != (Counts{Irrelevant: 3}) {
		t.Fatalf("expected all-irrelevant counts, got %+v", eval.Counts)
	}
	if eval.F1AtK != 0 {
		t.Fatalf("expected F1@K 0, got %v", eval.F1AtK)
	}
}

func TestEvaluate_VerdictPersistentParseFailureDropsFact(t *testing.T) {
	o := newTestOrchestrator(t,
		[]string{"- Fact one.\n"},
		[]string{"[Foo]"},
		[]string{"no brackets at all", "still nothing"},
	)

	rec := ResponseRecord{Prompt: "p", Response: "One sentence."}
	eval, err := o.Evaluate(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eval.CheckedStatements) != 0 {
		t.Fatalf("expected the fact to be dropped, got %d statements", len(eval.CheckedStatements))
	}
}
