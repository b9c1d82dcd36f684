package decontext

import (
	"context"
	"testing"

	"github.com/hurttlocker/safe-eval/internal/llm"
)

func TestDecontextualize_Success(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "```\nThierry Henry made his debut with Monaco in 1994.\n```"}
	d := New(llm.NewClient(fp), 3)

	revised, trace, err := d.Decontextualize(context.Background(), "Thierry Henry joined Monaco. He made his debut there in 1994.", "He made his debut there in 1994.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revised != "Thierry Henry made his debut with Monaco in 1994." {
		t.Errorf("unexpected revision: %q", revised)
	}
	if len(trace) != 1 {
		t.Errorf("expected 1 trace entry, got %d", len(trace))
	}
}

func TestDecontextualize_FallsBackToOriginalOnParseFailure(t *testing.T) {
	fp := &llm.FakeProvider{StaticReply: "no fenced block here"}
	d := New(llm.NewClient(fp), 3)

	original := "He made his debut there in 1994."
	revised, trace, err := d.Decontextualize(context.Background(), "some response", original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revised != original {
		t.Errorf("expected fallback to original fact, got %q", revised)
	}
	if len(trace) != 3 {
		t.Errorf("expected 3 retry attempts in trace, got %d", len(trace))
	}
}

func TestDecontextualize_RetriesThenSucceeds(t *testing.T) {
	fp := &llm.FakeProvider{Responses: []string{"garbage", "```\nrevised.\n```"}}
	d := New(llm.NewClient(fp), 3)

	revised, _, err := d.Decontextualize(context.Background(), "response", "fact")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revised != "revised." {
		t.Errorf("unexpected revision: %q", revised)
	}
}
