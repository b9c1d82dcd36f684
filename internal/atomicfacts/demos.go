package atomicfacts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed demos/demons.json
var embeddedDemos embed.FS

// demoCorpus is an ordered sentence->atomic-facts demonstration set, loaded
// once at package init from the embedded JSON. Ordering matters: the first
// n=7 demos are always included verbatim in every few-shot prompt (matching
// third_party/factscore/atomic_facts.py's `for i in range(n)` over
// `list(demons.keys())`), so map iteration order is not good enough — we
// keep both the map (for looking up a known demo sentence's facts by key)
// and the insertion-ordered slice, which the BM25 index is built from.
type demo struct {
	Sentence string
	Facts    []string
}

var (
	demoOrder []demo
	demoByKey map[string][]string
)

func init() {
	b, err := embeddedDemos.ReadFile("demos/demons.json")
	if err != nil {
		panic(fmt.Sprintf("atomicfacts: reading embedded demo corpus: %v", err))
	}

	// decode into an ordered structure key by key, since encoding/json's map
	// decoding loses key order; a json.Decoder reading tokens one at a time
	// preserves it.
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil { // consume opening '{'
		panic(fmt.Sprintf("atomicfacts: decoding demo corpus: %v", err))
	}

	demoByKey = map[string][]string{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			panic(fmt.Sprintf("atomicfacts: decoding demo key: %v", err))
		}
		key, _ := keyTok.(string)

		var facts []string
		if err := dec.Decode(&facts); err != nil {
			panic(fmt.Sprintf("atomicfacts: decoding demo facts for %q: %v", key, err))
		}

		demoOrder = append(demoOrder, demo{Sentence: key, Facts: facts})
		demoByKey[key] = facts
	}
}
