package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"

	"github.com/hurttlocker/safe-eval/internal/atomicfacts"
	"github.com/hurttlocker/safe-eval/internal/config"
	"github.com/hurttlocker/safe-eval/internal/dataset"
	"github.com/hurttlocker/safe-eval/internal/decontext"
	"github.com/hurttlocker/safe-eval/internal/eval"
	"github.com/hurttlocker/safe-eval/internal/evidence"
	"github.com/hurttlocker/safe-eval/internal/llm"
	"github.com/hurttlocker/safe-eval/internal/logging"
	"github.com/hurttlocker/safe-eval/internal/relevance"
	"github.com/hurttlocker/safe-eval/internal/verdict"
	"go.uber.org/zap"
)

// evalFlags holds the eval subcommand's CLI surface: --result_path,
// --eval_side1, --eval_side2, --parallelize, --max_claim, and the pipeline
// budget overrides.
type evalFlags struct {
	resultPath string
	evalSide1  bool
	evalSide2  bool
	parallel   int
	maxClaim   int
	raterModel string
	maxSteps   int
	maxRetries int
}

func newEvalCmd(configPath *string) *cobra.Command {
	f := &evalFlags{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Rate one or both sides of a results JSON file for factuality",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), *configPath, f)
		},
	}

	cmd.Flags().StringVar(&f.resultPath, "result_path", "", "path to the results JSON file (required)")
	cmd.Flags().BoolVar(&f.evalSide1, "eval_side1", false, "evaluate side_1 responses")
	cmd.Flags().BoolVar(&f.evalSide2, "eval_side2", false, "evaluate side_2 responses")
	cmd.Flags().IntVar(&f.parallel, "parallelize", 0, "batch worker count (0 = resolved default, 25)")
	cmd.Flags().IntVar(&f.maxClaim, "max_claim", 0, "K, the per-response claim budget for F1@K (0 = resolved default, 100)")
	cmd.Flags().StringVar(&f.raterModel, "rater_model", "", "provider:model for the rater LLM, e.g. openai:gpt-4-0125-preview")
	cmd.Flags().IntVar(&f.maxSteps, "max_steps", 0, "search-agent iteration budget per fact")
	cmd.Flags().IntVar(&f.maxRetries, "max_retries", 0, "parse-retry budget per LLM call site")
	_ = cmd.MarkFlagRequired("result_path")

	return cmd
}

func runEval(ctx context.Context, configPath string, f *evalFlags) error {
	if !f.evalSide1 && !f.evalSide2 {
		return fmt.Errorf("at least one of --eval_side1 or --eval_side2 is required")
	}

	opts := config.ResolveOptions{
		ConfigPath:    configPath,
		CLIRaterModel: f.raterModel,
	}
	if f.parallel > 0 {
		opts.CLIWorkers = itoa(f.parallel)
	}
	if f.maxClaim > 0 {
		opts.CLIMaxClaims = itoa(f.maxClaim)
	}
	if f.maxSteps > 0 {
		opts.CLIMaxSteps = itoa(f.maxSteps)
	}
	if f.maxRetries > 0 {
		opts.CLIMaxRetries = itoa(f.maxRetries)
	}

	cfg, err := config.ResolveConfig(opts)
	if err != nil {
		return fmt.Errorf("resolving config: %w", err)
	}

	orchestrator, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	doc, err := dataset.Load(f.resultPath)
	if err != nil {
		return err
	}
	stampAutoevalConfig(doc, cfg)

	sides := []int{}
	if f.evalSide1 {
		sides = append(sides, 1)
	}
	if f.evalSide2 {
		sides = append(sides, 2)
	}

	id := runID()
	checkpointPath := filepath.Join(cfg.CheckpointDir.Value, "safe-eval-"+id+".checkpoint.json")
	workers := cfg.Workers.IntValue(25)
	maxClaims := cfg.MaxClaims.IntValue(100)

	for _, side := range sides {
		records := make([]eval.ResponseRecord, 0, len(doc.PerPromptData))
		indices := make([]int, 0, len(doc.PerPromptData))
		for i, entry := range doc.PerPromptData {
			if entry.AlreadyEvaluated(side) {
				continue
			}
			response := entry.Side1Response
			if side == 2 {
				response = entry.Side2Response
			}
			records = append(records, eval.ResponseRecord{Prompt: entry.Prompt, Response: response})
			indices = append(indices, i)
		}
		if len(records) == 0 {
			logging.L().Info("skipping side: every entry already rated", zap.Int("side", side))
			continue
		}

		logging.L().Info("evaluating side", zap.Int("side", side), zap.Int("count", len(records)), zap.Int("workers", workers))

		batch := eval.NewBatch(orchestrator, workers, checkpointPath)

		var bar *progressbar.ProgressBar
		if workers <= 1 {
			bar = progressbar.New(len(records))
		}

		results, err := runWithProgress(ctx, batch, records, bar)
		if err != nil {
			return fmt.Errorf("evaluating side %d: %w", side, err)
		}

		for j, idx := range indices {
			block := dataset.ToEvalBlock(results.Evaluations[j], maxClaims)
			if side == 1 {
				doc.PerPromptData[idx].Side1Eval = &block
			} else {
				doc.PerPromptData[idx].Side2Eval = &block
			}
		}
	}

	if err := dataset.Save(f.resultPath, doc); err != nil {
		return err
	}

	return nil
}

// runWithProgress runs batch.Run and, when bar is non-nil (sequential mode
// only), advances it by the full record count once batch.Run returns; the
// bar does not advance per record while the batch is running.
func runWithProgress(ctx context.Context, batch *eval.BatchOrchestrator, records []eval.ResponseRecord, bar *progressbar.ProgressBar) (eval.BatchResult, error) {
	if bar == nil {
		return batch.Run(ctx, records)
	}
	result, err := batch.Run(ctx, records)
	_ = bar.Add(len(records))
	return result, err
}

// buildOrchestrator wires the five pipeline stages from a resolved config,
// the way internal/eval/eval_test.go's newTestOrchestrator wires fakes for
// tests but against real providers.
func buildOrchestrator(cfg config.ResolvedConfig) (*eval.Orchestrator, error) {
	providerCfg, err := llm.ParseModelName(cfg.RaterModel.Value)
	if err != nil {
		return nil, err
	}
	if key := cfg.APIKeyForProvider(cfg.RaterModel.Value); key.Value != "" {
		providerCfg.APIKey = key.Value
	}
	provider, err := llm.NewProvider(providerCfg)
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(provider)

	maxSteps := cfg.MaxSteps.IntValue(5)
	maxRetries := cfg.MaxRetries.IntValue(10)
	pipelineRetries := cfg.PipelineRetries.IntValue(3)
	maxClaims := cfg.MaxClaims.IntValue(100)

	searcher, err := buildSearcher(cfg)
	if err != nil {
		return nil, err
	}

	facts := atomicfacts.NewGenerator(client)
	dec := decontext.New(client, maxRetries)
	rel := relevance.New(client, maxRetries)
	agent := evidence.New(client, searcher, maxSteps, maxRetries)
	ver := verdict.New(client, maxRetries)

	return eval.New(facts, dec, rel, agent, ver, maxClaims, pipelineRetries), nil
}

func buildSearcher(cfg config.ResolvedConfig) (evidence.Searcher, error) {
	key := cfg.SearchAPIKey.Value
	serper := evidence.NewSerperClient(key)
	cache, err := evidence.OpenCache(cfg.CachePath.Value, serper)
	if err != nil {
		return nil, err
	}
	return cache, nil
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

// stampAutoevalConfig echoes the resolved run configuration onto the
// output document, matching run_eval.py's
// result_data['autoeval_configs'] = utils.get_attributes(safe_config)
// stamp for reproducibility. ResolvedConfig's secret fields are already
// tagged json:"-", so nothing sensitive is written.
func stampAutoevalConfig(doc *dataset.Document, cfg config.ResolvedConfig) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if doc.Extra == nil {
		doc.Extra = map[string]json.RawMessage{}
	}
	doc.Extra["autoeval_configs"] = data
}
