package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hurttlocker/safe-eval/internal/retry"
	"github.com/hurttlocker/safe-eval/internal/safeerr"
)

func TestClientGenerateSuccess(t *testing.T) {
	fp := &FakeProvider{StaticReply: "hello world"}
	c := NewClient(fp)

	out, err := c.Generate(context.Background(), "say hi", 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Errorf("unexpected output: %q", out)
	}
	if len(fp.Calls) != 1 || fp.Calls[0] != "say hi" {
		t.Errorf("unexpected calls: %v", fp.Calls)
	}
}

func TestClientSequentialResponses(t *testing.T) {
	fp := &FakeProvider{Responses: []string{"first", "second"}, StaticReply: "fallback"}
	c := NewClient(fp)

	out1, _ := c.Generate(context.Background(), "q1", 0)
	out2, _ := c.Generate(context.Background(), "q2", 0)
	out3, _ := c.Generate(context.Background(), "q3", 0)

	if out1 != "first" || out2 != "second" || out3 != "fallback" {
		t.Errorf("unexpected sequence: %q %q %q", out1, out2, out3)
	}
}

func TestClientRetriesThenFails(t *testing.T) {
	fp := &FakeProvider{ProviderName: "fake/broken", Err: errors.New("connection refused")}
	c := &Client{Provider: fp, Policy: retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}}

	_, err := c.Generate(context.Background(), "q", 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !safeerr.Is(err, safeerr.KindTransport) {
		t.Errorf("expected KindTransport, got %v", err)
	}
	if len(fp.Calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(fp.Calls))
	}
}

func TestClientContextCancellation(t *testing.T) {
	fp := &FakeProvider{Err: errors.New("down")}
	c := &Client{Provider: fp, Policy: retry.Policy{MaxAttempts: 1000, BaseDelay: time.Second, MaxDelay: time.Second}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, "q", 0)
	if err == nil {
		t.Fatal("expected error")
	}
}
