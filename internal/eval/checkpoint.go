package eval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/hurttlocker/safe-eval/internal/safeerr"
)

// BatchResult is the ordered output of the Batch Orchestrator: one
// ResponseEvaluation per input ResponseRecord, index-aligned.
type BatchResult struct {
	Evaluations []ResponseEvaluation `json:"evaluations"`
}

// checkpoint serializes a BatchResult to path under a single writer lock,
// via a temp-file-then-rename so a concurrent reader always observes
// either the pre- or post-write file in full.
type checkpoint struct {
	path string
	mu   sync.Mutex
}

func newCheckpoint(path string) *checkpoint {
	return &checkpoint{path: path}
}

// Save atomically replaces the checkpoint file's contents with result.
func (c *checkpoint) Save(result BatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return safeerr.IO("marshal checkpoint", err)
	}

	dir := filepath.Dir(c.path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, ".safe-eval-checkpoint-*.tmp")
	if err != nil {
		return safeerr.IO("create checkpoint temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return safeerr.IO("write checkpoint temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return safeerr.IO("close checkpoint temp file", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return safeerr.IO("atomic checkpoint replace", err)
	}
	return nil
}

func cloneBatchResult(r BatchResult) BatchResult {
	out := BatchResult{Evaluations: make([]ResponseEvaluation, len(r.Evaluations))}
	copy(out.Evaluations, r.Evaluations)
	return out
}
