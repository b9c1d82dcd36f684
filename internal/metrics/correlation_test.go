package metrics

import (
	"math"
	"testing"
)

func TestPearson_PerfectPositiveCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	c := Pearson(x, y)
	if math.Abs(c.Statistic-1) > 1e-9 {
		t.Errorf("expected r=1, got %v", c.Statistic)
	}
}

func TestPearson_PerfectNegativeCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{5, 4, 3, 2, 1}

	c := Pearson(x, y)
	if math.Abs(c.Statistic+1) > 1e-9 {
		t.Errorf("expected r=-1, got %v", c.Statistic)
	}
}

func TestPearson_FewerThanTwoPointsIsNaN(t *testing.T) {
	c := Pearson([]float64{1}, []float64{1})
	if !math.IsNaN(c.Statistic) || !math.IsNaN(c.PValue) {
		t.Errorf("expected NaN/NaN, got %+v", c)
	}
}

func TestSpearman_MonotonicNonLinear(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 4, 9, 16, 25}

	c := Spearman(x, y)
	if math.Abs(c.Statistic-1) > 1e-9 {
		t.Errorf("expected rank correlation 1, got %v", c.Statistic)
	}
}

func TestSpearman_FewerThanTwoPointsIsNaN(t *testing.T) {
	c := Spearman(nil, nil)
	if !math.IsNaN(c.Statistic) || !math.IsNaN(c.PValue) {
		t.Errorf("expected NaN/NaN, got %+v", c)
	}
}

func TestSpearman_TiesUseAverageRank(t *testing.T) {
	x := []float64{1, 2, 2, 3}
	y := []float64{1, 2, 2, 3}

	c := Spearman(x, y)
	if math.Abs(c.Statistic-1) > 1e-9 {
		t.Errorf("expected r=1 for identical tied series, got %v", c.Statistic)
	}
}
