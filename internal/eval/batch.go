package eval

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hurttlocker/safe-eval/internal/logging"
)

// BatchOrchestrator fans a per-response evaluator out over many response
// records with bounded concurrency, ordered output, and incremental
// checkpointing.
type BatchOrchestrator struct {
	Evaluator      ResponseEvaluator
	Workers        int    // pool width; <=1 runs sequentially
	CheckpointPath string // empty disables checkpointing
}

// NewBatch builds a BatchOrchestrator with the given per-response
// evaluator, pool width, and checkpoint file path.
func NewBatch(e ResponseEvaluator, workers int, checkpointPath string) *BatchOrchestrator {
	return &BatchOrchestrator{Evaluator: e, Workers: workers, CheckpointPath: checkpointPath}
}

// Run evaluates every record, returning a BatchResult whose Evaluations
// slice is index-aligned with records: a task that fails leaves its slot
// at the zero ResponseEvaluation{} sentinel (Evaluated == false) rather
// than aborting the batch.
func (b *BatchOrchestrator) Run(ctx context.Context, records []ResponseRecord) (BatchResult, error) {
	result := BatchResult{Evaluations: make([]ResponseEvaluation, len(records))}

	var cp *checkpoint
	if b.CheckpointPath != "" {
		cp = newCheckpoint(b.CheckpointPath)
	}

	if b.Workers <= 1 {
		b.runSequential(ctx, records, &result, cp)
		return result, ctx.Err()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Workers)

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			evaluation, err := b.Evaluator.Evaluate(gctx, rec)
			if err != nil {
				logging.L().Warn("response evaluation failed, leaving sentinel slot",
					zap.Int("index", i), zap.Error(err))
				return nil // a failed task yields no result; the batch continues.
			}

			mu.Lock()
			result.Evaluations[i] = evaluation
			snap := cloneBatchResult(result)
			mu.Unlock()

			if cp != nil {
				if err := cp.Save(snap); err != nil {
					logging.L().Error("checkpoint write failed", zap.Error(err))
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return result, ctx.Err()
}

// runSequential is the concurrency-disabled fallback: identical semantics,
// minus parallelism.
func (b *BatchOrchestrator) runSequential(ctx context.Context, records []ResponseRecord, result *BatchResult, cp *checkpoint) {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return
		}

		evaluation, err := b.Evaluator.Evaluate(ctx, rec)
		if err != nil {
			logging.L().Warn("response evaluation failed, leaving sentinel slot",
				zap.Int("index", i), zap.Error(err))
			continue
		}

		result.Evaluations[i] = evaluation

		if cp != nil {
			if err := cp.Save(cloneBatchResult(*result)); err != nil {
				logging.L().Error("checkpoint write failed", zap.Error(err))
			}
		}
	}
}
