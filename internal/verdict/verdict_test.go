package verdict

import (
	"context"
	"testing"

	"github.com/hurttlocker/safe-eval/internal/evidence"
	"github.com/hurttlocker/safe-eval/internal/llm"
)

func TestResolve_Supported(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "Reasoning here. [Supported]"}
	r := New(llm.NewClient(fp), 3)

	answer, trace, err := r.Resolve(context.Background(), "Thierry Henry was born in 1977.", []evidence.SearchStep{
		{Query: "thierry henry birth year", Result: "Thierry Henry was born on 17 August 1977."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil || answer.Label != Supported {
		t.Fatalf("expected Supported, got %+v", answer)
	}
	if len(trace) != 1 {
		t.Errorf("expected 1 trace entry, got %d", len(trace))
	}
}

func TestResolve_NotSupported(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "No evidence found. [Not Supported]"}
	r := New(llm.NewClient(fp), 3)

	answer, _, err := r.Resolve(context.Background(), "fact", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil || answer.Label != NotSupported {
		t.Fatalf("expected NotSupported, got %+v", answer)
	}
}

func TestResolve_PersistentParseFailureReturnsNil(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "no brackets anywhere"}
	r := New(llm.NewClient(fp), 2)

	answer, trace, err := r.Resolve(context.Background(), "fact", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != nil {
		t.Errorf("expected nil answer on persistent parse failure, got %+v", answer)
	}
	if len(trace) != 2 {
		t.Errorf("expected 2 attempts in trace, got %d", len(trace))
	}
}

func TestResolve_StripsPunctuationFromLabel(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "Final answer: [Supported.]"}
	r := New(llm.NewClient(fp), 1)

	answer, _, err := r.Resolve(context.Background(), "fact", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == nil || answer.Label != Supported {
		t.Fatalf("expected Supported after stripping punctuation, got %+v", answer)
	}
}
