// Package dataset loads and saves the results JSON that is safe-eval's
// external on-disk format: a `{side_1, side_2, per_prompt_data: [...]}`
// document, each per-prompt entry carrying the two sides' responses plus,
// once rated, a `side<N>_posthoc_eval_data` block. The `'; '`-delimited
// multi-valued answer field convention is kept isolated to this package.
package dataset

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/hurttlocker/safe-eval/internal/eval"
	"github.com/hurttlocker/safe-eval/internal/safeerr"
)

// answerSplit is the multi-valued-field delimiter: correct_answers/
// incorrect_answers are stored as one "; "-joined string and split back
// into a list on load.
const answerSplit = "; "

// PromptEntry is one element of per_prompt_data: the two candidate
// responses for a prompt, plus whatever posthoc evaluation data has been
// attached by a previous or current run.
type PromptEntry struct {
	Prompt           string `json:"prompt"`
	Side1Response    string `json:"side1_response"`
	Side2Response    string `json:"side2_response"`
	CorrectAnswers   string `json:"correct_answers,omitempty"`
	IncorrectAnswers string `json:"incorrect_answers,omitempty"`

	Side1Eval *EvalBlock `json:"side1_posthoc_eval_data,omitempty"`
	Side2Eval *EvalBlock `json:"side2_posthoc_eval_data,omitempty"`

	// Extra preserves any fields the schema doesn't name: additional
	// fields round-trip through Load/Save unmodified.
	Extra map[string]json.RawMessage `json:"-"`
}

// CorrectAnswerList splits CorrectAnswers on the "; " delimiter.
func (p PromptEntry) CorrectAnswerList() []string {
	return splitAnswers(p.CorrectAnswers)
}

// IncorrectAnswerList splits IncorrectAnswers on the "; " delimiter.
func (p PromptEntry) IncorrectAnswerList() []string {
	return splitAnswers(p.IncorrectAnswers)
}

func splitAnswers(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	return strings.Split(field, answerSplit)
}

// EvalBlock is the `side<N>_posthoc_eval_data` block: the per-response
// evaluation, flattened for the results-JSON shape (top-level
// Supported/Not Supported/Irrelevant counts rather than a nested Counts
// object). The F1@K figure is keyed dynamically as `f1_<K>`, which the
// struct tag system can't express, so EvalBlock marshals by hand.
type EvalBlock struct {
	NumClaims               int
	SentencesAndAtomicFacts []eval.SentenceFacts
	AllAtomicFacts          []string
	CheckedStatements       []eval.CheckedStatement
	Supported               int
	NotSupported            int
	Irrelevant              int
	F1Key                   string // e.g. "f1_100"
	F1                      float64
}

// ToEvalBlock converts a Response Evaluation into the on-disk EvalBlock
// shape. maxClaims is K, used only to name the dynamic f1_<K> key.
func ToEvalBlock(e eval.ResponseEvaluation, maxClaims int) EvalBlock {
	allFacts := make([]string, 0, len(e.CheckedStatements))
	for _, sf := range e.SentencesAndAtomicFacts {
		allFacts = append(allFacts, sf.AtomicFacts...)
	}

	return EvalBlock{
		NumClaims:               len(allFacts),
		SentencesAndAtomicFacts: e.SentencesAndAtomicFacts,
		AllAtomicFacts:          allFacts,
		CheckedStatements:       e.CheckedStatements,
		Supported:               e.Counts.Supported,
		NotSupported:            e.Counts.NotSupported,
		Irrelevant:              e.Counts.Irrelevant,
		F1Key:                   "f1_" + strconv.Itoa(maxClaims),
		F1:                      e.F1AtK,
	}
}

// MarshalJSON emits the fixed fields plus the dynamic f1_<K> key.
func (b EvalBlock) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"num_claims":                b.NumClaims,
		"sentences_and_atomic_facts": b.SentencesAndAtomicFacts,
		"all_atomic_facts":          b.AllAtomicFacts,
		"checked_statements":        b.CheckedStatements,
		"Supported":                 b.Supported,
		"Not Supported":             b.NotSupported,
		"Irrelevant":                b.Irrelevant,
	}
	if b.F1Key != "" {
		out[b.F1Key] = b.F1
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the fixed fields and the dynamic f1_<K> key,
// restoring F1Key and F1 so a loaded block can be compared and re-saved
// under the same key.
func (b *EvalBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		NumClaims               int                     `json:"num_claims"`
		SentencesAndAtomicFacts []eval.SentenceFacts    `json:"sentences_and_atomic_facts"`
		AllAtomicFacts          []string                `json:"all_atomic_facts"`
		CheckedStatements       []eval.CheckedStatement `json:"checked_statements"`
		Supported               int                     `json:"Supported"`
		NotSupported            int                     `json:"Not Supported"`
		Irrelevant              int                     `json:"Irrelevant"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.NumClaims = raw.NumClaims
	b.SentencesAndAtomicFacts = raw.SentencesAndAtomicFacts
	b.AllAtomicFacts = raw.AllAtomicFacts
	b.CheckedStatements = raw.CheckedStatements
	b.Supported = raw.Supported
	b.NotSupported = raw.NotSupported
	b.Irrelevant = raw.Irrelevant

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	for k, v := range keys {
		if !strings.HasPrefix(k, "f1_") {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			b.F1Key, b.F1 = k, f
		}
	}
	return nil
}


// AlreadyEvaluated reports whether entry already carries posthoc eval data
// for side (1 or 2), matching run_eval.py's add_rating skip-if-present
// check so repeated runs against a checkpoint don't re-rate a side.
func (p PromptEntry) AlreadyEvaluated(side int) bool {
	switch side {
	case 1:
		return p.Side1Eval != nil
	case 2:
		return p.Side2Eval != nil
	default:
		return false
	}
}

// Document is the full results JSON: two side labels plus the ordered
// per-prompt entries, with whatever aggregate/config fields a prior run
// stamped on it preserved via Extra.
type Document struct {
	Side1         string        `json:"side_1"`
	Side2         string        `json:"side_2"`
	PerPromptData []PromptEntry `json:"per_prompt_data"`
	TotalRuntime  float64       `json:"total_runtime,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Load reads and parses a results JSON file.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, safeerr.IO("read results JSON", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, safeerr.Input("malformed results JSON: "+err.Error(), nil)
	}
	if doc.PerPromptData == nil {
		return nil, safeerr.Input("results JSON missing per_prompt_data", nil)
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(raw, &extra); err == nil {
		delete(extra, "side_1")
		delete(extra, "side_2")
		delete(extra, "per_prompt_data")
		delete(extra, "total_runtime")
		doc.Extra = extra
	}

	return &doc, nil
}

// Save serializes doc back to path, merging Extra fields onto the
// top-level object so fields the schema doesn't name round-trip
// unchanged.
func Save(path string, doc *Document) error {
	base, err := json.Marshal(doc)
	if err != nil {
		return safeerr.IO("marshal results JSON", err)
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return safeerr.IO("remarshal results JSON", err)
	}
	for k, v := range doc.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return safeerr.IO("marshal results JSON", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return safeerr.IO("write results JSON", err)
	}
	return nil
}
