package relevance

import (
	"context"
	"testing"

	"github.com/hurttlocker/safe-eval/internal/llm"
)

func TestIsRelevant_True(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "The subjects are clearly related. [Foo]"}
	c := New(llm.NewClient(fp), 3)

	relevant, trace, err := c.IsRelevant(context.Background(), "Who is Thierry Henry?", "Thierry Henry was born in France.", "Thierry Henry was born in France.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !relevant {
		t.Error("expected relevant=true")
	}
	if len(trace) != 1 {
		t.Errorf("expected 1 trace entry, got %d", len(trace))
	}
}

func TestIsRelevant_False(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "Unrelated topics. [Not Foo]"}
	c := New(llm.NewClient(fp), 3)

	relevant, _, err := c.IsRelevant(context.Background(), "Who is Thierry Henry?", "some response", "an unrelated fact about gardening")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if relevant {
		t.Error("expected relevant=false")
	}
}

func TestIsRelevant_DefaultsTrueOnPersistentParseFailure(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "no brackets in this output at all"}
	c := New(llm.NewClient(fp), 2)

	relevant, trace, err := c.IsRelevant(context.Background(), "q", "r", "fact")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !relevant {
		t.Error("expected conservative default relevant=true")
	}
	if len(trace) != 2 {
		t.Errorf("expected 2 attempts in trace, got %d", len(trace))
	}
}
