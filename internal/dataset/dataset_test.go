package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hurttlocker/safe-eval/internal/eval"
)

func TestSplitAnswers(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"Paris", []string{"Paris"}},
		{"Paris; Lutetia; City of Light", []string{"Paris", "Lutetia", "City of Light"}},
	}
	for _, c := range cases {
		p := PromptEntry{CorrectAnswers: c.in}
		got := p.CorrectAnswerList()
		if len(got) != len(c.want) {
			t.Fatalf("splitAnswers(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitAnswers(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestAlreadyEvaluated(t *testing.T) {
	p := PromptEntry{}
	if p.AlreadyEvaluated(1) || p.AlreadyEvaluated(2) {
		t.Fatal("fresh entry should report no side evaluated")
	}

	p.Side1Eval = &EvalBlock{Supported: 1}
	if !p.AlreadyEvaluated(1) {
		t.Error("expected side 1 to be already evaluated")
	}
	if p.AlreadyEvaluated(2) {
		t.Error("expected side 2 to remain unevaluated")
	}
	if p.AlreadyEvaluated(3) {
		t.Error("expected an unknown side to report false")
	}
}

func TestToEvalBlock(t *testing.T) {
	re := eval.ResponseEvaluation{
		SentencesAndAtomicFacts: []eval.SentenceFacts{
			{Sentence: "s1", AtomicFacts: []string{"f1", "f2"}},
			{Sentence: "s2", AtomicFacts: []string{"f3"}},
		},
		CheckedStatements: []eval.CheckedStatement{
			{AtomicFact: "f1", Annotation: eval.Supported},
			{AtomicFact: "f2", Annotation: eval.NotSupported},
			{AtomicFact: "f3", Annotation: eval.Irrelevant},
		},
		Counts:    eval.Counts{Supported: 1, NotSupported: 1, Irrelevant: 1},
		F1AtK:     0.5,
		Evaluated: true,
	}

	b := ToEvalBlock(re, 100)
	if b.NumClaims != 3 {
		t.Errorf("NumClaims = %d, want 3", b.NumClaims)
	}
	if b.Supported != 1 || b.NotSupported != 1 || b.Irrelevant != 1 {
		t.Errorf("counts did not mirror eval.Counts: %+v", b)
	}
	if b.F1Key != "f1_100" {
		t.Errorf("F1Key = %q, want f1_100", b.F1Key)
	}
	if b.F1 != 0.5 {
		t.Errorf("F1 = %v, want 0.5", b.F1)
	}
}

func TestEvalBlockMarshalRoundTrip(t *testing.T) {
	b := ToEvalBlock(eval.ResponseEvaluation{
		SentencesAndAtomicFacts: []eval.SentenceFacts{{Sentence: "s", AtomicFacts: []string{"f"}}},
		CheckedStatements:       []eval.CheckedStatement{{AtomicFact: "f", Annotation: eval.Supported}},
		Counts:                  eval.Counts{Supported: 1},
		F1AtK:                   0.392,
	}, 100)

	raw, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("unmarshal to map: %v", err)
	}
	if _, ok := asMap["f1_100"]; !ok {
		t.Fatalf("expected dynamic f1_100 key in marshaled output, got %v", asMap)
	}

	var back EvalBlock
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal back into EvalBlock: %v", err)
	}
	if back.Supported != 1 || back.NumClaims != 1 {
		t.Errorf("round-tripped block mismatch: %+v", back)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")

	original := `{
		"side_1": "model-a",
		"side_2": "model-b",
		"per_prompt_data": [
			{
				"prompt": "What is the capital of France?",
				"side1_response": "Paris is the capital of France.",
				"side2_response": "Lyon is the capital of France.",
				"correct_answers": "Paris",
				"incorrect_answers": "Lyon; Marseille"
			}
		],
		"autoeval_configs": {"rater_model": "openai:gpt-4"},
		"total_runtime": 12.5
	}`
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Side1 != "model-a" || doc.Side2 != "model-b" {
		t.Fatalf("unexpected side labels: %+v", doc)
	}
	if len(doc.PerPromptData) != 1 {
		t.Fatalf("expected 1 prompt entry, got %d", len(doc.PerPromptData))
	}
	entry := doc.PerPromptData[0]
	if got := entry.IncorrectAnswerList(); len(got) != 2 || got[0] != "Lyon" || got[1] != "Marseille" {
		t.Fatalf("unexpected incorrect answer split: %v", got)
	}
	if _, ok := doc.Extra["autoeval_configs"]; !ok {
		t.Fatalf("expected autoeval_configs preserved in Extra, got %v", doc.Extra)
	}
	if doc.TotalRuntime != 12.5 {
		t.Errorf("TotalRuntime = %v, want 12.5", doc.TotalRuntime)
	}

	entry.Side1Eval = &EvalBlock{Supported: 1, F1Key: "f1_100", F1: 1.0}
	doc.PerPromptData[0] = entry

	outPath := filepath.Join(dir, "results_out.json")
	if err := Save(outPath, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(outPath)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.Extra["autoeval_configs"]; !ok {
		t.Fatalf("expected autoeval_configs to survive a save/reload cycle, got %v", reloaded.Extra)
	}
	if !reloaded.PerPromptData[0].AlreadyEvaluated(1) {
		t.Error("expected side 1 eval block to survive save/reload")
	}
	if reloaded.PerPromptData[0].AlreadyEvaluated(2) {
		t.Error("expected side 2 to remain unevaluated after reload")
	}
}

func TestLoadRejectsMissingPerPromptData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"side_1":"a","side_2":"b"}`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for missing per_prompt_data")
	}
}
