package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hurttlocker/safe-eval/internal/dataset"
	"github.com/hurttlocker/safe-eval/internal/metrics"
)

// newCorrelateCmd supplements the distilled spec with
// eval/correlation_vs_factscore.py's comparison harness: Pearson/Spearman
// correlation between two already-scored results files' F1@K figures,
// matched by prompt index.
func newCorrelateCmd() *cobra.Command {
	var pathA, pathB string
	var side int

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Correlate F1@K scores between two rated results files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrelate(pathA, pathB, side)
		},
	}

	cmd.Flags().StringVar(&pathA, "a", "", "first results JSON file (required)")
	cmd.Flags().StringVar(&pathB, "b", "", "second results JSON file (required)")
	cmd.Flags().IntVar(&side, "side", 1, "which side's posthoc eval data to compare (1 or 2)")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")

	return cmd
}

func runCorrelate(pathA, pathB string, side int) error {
	docA, err := dataset.Load(pathA)
	if err != nil {
		return err
	}
	docB, err := dataset.Load(pathB)
	if err != nil {
		return err
	}
	if len(docA.PerPromptData) != len(docB.PerPromptData) {
		return fmt.Errorf("correlate: %s has %d prompts, %s has %d; files must cover the same prompt set",
			pathA, len(docA.PerPromptData), pathB, len(docB.PerPromptData))
	}

	var x, y []float64
	for i := range docA.PerPromptData {
		a := evalBlockForSide(docA.PerPromptData[i], side)
		b := evalBlockForSide(docB.PerPromptData[i], side)
		if a == nil || b == nil {
			continue
		}
		x = append(x, a.F1)
		y = append(y, b.F1)
	}

	pearson := metrics.Pearson(x, y)
	spearman := metrics.Spearman(x, y)

	fmt.Printf("n = %d\n", len(x))
	fmt.Printf("pearson  r = %.4f  p = %.4g\n", pearson.Statistic, metrics.RoundToSigfigs(pearson.PValue, 3))
	fmt.Printf("spearman r = %.4f  p = %.4g\n", spearman.Statistic, metrics.RoundToSigfigs(spearman.PValue, 3))

	return nil
}

func evalBlockForSide(p dataset.PromptEntry, side int) *dataset.EvalBlock {
	if side == 2 {
		return p.Side2Eval
	}
	return p.Side1Eval
}
