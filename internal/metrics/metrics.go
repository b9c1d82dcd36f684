// Package metrics turns a response's Supported/Not-Supported/Irrelevant
// histogram into precision, recall, and F1@K, plus rounding and
// correlation helpers for comparing scored runs against human ratings.
package metrics

import (
	"math"
	"strconv"

	"github.com/hurttlocker/safe-eval/internal/safeerr"
)

// DefaultMaxClaims is the default per-response claim budget (K).
const DefaultMaxClaims = 100

// Result holds the three figures derived from one response's label counts.
type Result struct {
	Precision float64
	Recall    float64
	F1 float64
}

// Calculate computes precision, recall, and F1@K from label counts:
//
//	precision = S / (S+N), or 0 if S+N == 0
//	recall    = min(1, S/K)
//	f1@K      = 2*P*R / (P+R), or 0 if S == 0
//
// It rejects maxClaims <= 0 or negative counts as an Input error.
func Calculate(supported, notSupported, maxClaims int) (Result, error) {
	if maxClaims <= 0 {
		return Result{}, safeerr.Input("max_claims must be positive", map[string]string{
			"max_claims": strconv.Itoa(maxClaims),
		})
	}
	if supported < 0 || notSupported < 0 {
		return Result{}, safeerr.Input("cannot have negative numbers of claims", map[string]string{
			"supported":     strconv.Itoa(supported),
			"not_supported": strconv.Itoa(notSupported),
		})
	}

	if supported == 0 {
		return Result{}, nil
	}

	precision := float64(supported) / float64(supported+notSupported)
	recall := math.Min(1, float64(supported)/float64(maxClaims))
	f1 := 2 * precision * recall / (precision + recall)

	return Result{Precision: precision, Recall: recall, F1: f1}, nil
}

// RoundToSigfigs rounds v to the given number of significant figures. v ==
// 0 or sigfigs <= 0 returns 0; NaN passes through unchanged.
func RoundToSigfigs(v float64, sigfigs int) float64 {
	if v == 0 || sigfigs <= 0 {
		return 0
	}
	if math.IsNaN(v) {
		return v
	}
	decimals := sigfigs - int(math.Floor(math.Log10(math.Abs(v)))) - 1
	return roundToDecimals(v, decimals)
}

// RoundScalar rounds v to 3 decimal places, the convention used for
// reported scalar metrics (as opposed to p-values, which use sigfigs).
func RoundScalar(v float64) float64 {
	return roundToDecimals(v, 3)
}

func roundToDecimals(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
