package textparse

import "testing"

func TestExtractFirstFencedBlock(t *testing.T) {
	text := "Here is the answer:\n```\nThierry Henry was born in 1977.\n```\nsome trailing text"
	got, ok := ExtractFirstFencedBlock(text)
	if !ok {
		t.Fatal("expected a fenced block to be found")
	}
	if got != "Thierry Henry was born in 1977." {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractFirstFencedBlock_WithLanguageTag(t *testing.T) {
	text := "```text\nrevised fact here\n```"
	got, ok := ExtractFirstFencedBlock(text)
	if !ok || got != "revised fact here" {
		t.Errorf("unexpected result: %q, %v", got, ok)
	}
}

func TestExtractFirstFencedBlock_NoFence(t *testing.T) {
	if _, ok := ExtractFirstFencedBlock("no code block here"); ok {
		t.Error("expected no fence to be found")
	}
}

func TestExtractFirstFencedBlock_Unclosed(t *testing.T) {
	if _, ok := ExtractFirstFencedBlock("```\nunterminated"); ok {
		t.Error("expected unclosed fence to fail")
	}
}

func TestExtractFirstSquareBrackets(t *testing.T) {
	got, ok := ExtractFirstSquareBrackets("My answer is [Foo], not [Bar].")
	if !ok || got != "Foo" {
		t.Errorf("unexpected extraction: %q, %v", got, ok)
	}
}

func TestExtractFirstSquareBrackets_None(t *testing.T) {
	if _, ok := ExtractFirstSquareBrackets("no brackets"); ok {
		t.Error("expected no brackets to be found")
	}
}
