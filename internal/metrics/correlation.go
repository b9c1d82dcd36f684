package metrics

import "math"

// Correlation is one (statistic, p_value) pair. Fewer than two paired
// observations yields {NaN, NaN} rather than an error.
type Correlation struct {
	Statistic float64
	PValue    float64
}

// Pearson computes the Pearson product-moment correlation coefficient
// between x and y and a two-sided p-value via the Student's t
// approximation (t = r*sqrt((n-2)/(1-r^2)), df = n-2), the same
// approximation scipy.stats.pearsonr uses internally.
func Pearson(x, y []float64) Correlation {
	n := len(x)
	if n != len(y) || n < 2 {
		return Correlation{Statistic: math.NaN(), PValue: math.NaN()}
	}

	mx, my := mean(x), mean(y)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}

	if sxx == 0 || syy == 0 {
		return Correlation{Statistic: math.NaN(), PValue: math.NaN()}
	}

	r := sxy / math.Sqrt(sxx*syy)
	return Correlation{Statistic: r, PValue: tTestPValue(r, n)}
}

// Spearman computes Spearman's rank correlation coefficient: Pearson's
// correlation applied to the rank-transformed series, with the same
// t-distribution p-value approximation used for Pearson (scipy uses the
// identical approximation for n >= ~10; smaller samples trade some
// precision for a single, auditable formula).
func Spearman(x, y []float64) Correlation {
	n := len(x)
	if n != len(y) || n < 2 {
		return Correlation{Statistic: math.NaN(), PValue: math.NaN()}
	}
	return Pearson(rank(x), rank(y))
}

func mean(xs []float64) float64 {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// rank assigns fractional (average) ranks to xs, breaking ties by the mean
// of the tied positions' ranks, matching scipy.stats.rankdata's default
// 'average' method.
func rank(xs []float64) []float64 {
	type indexed struct {
		val float64
		idx int
	}
	sorted := make([]indexed, len(xs))
	for i, v := range xs {
		sorted[i] = indexed{val: v, idx: i}
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].val > sorted[j].val; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	ranks := make([]float64, len(xs))
	i := 0
	for i < len(sorted) {
		j := i
		for j < len(sorted) && sorted[j].val == sorted[i].val {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[sorted[k].idx] = avgRank
		}
		i = j
	}
	return ranks
}

// tTestPValue computes the two-sided p-value for a Pearson/Spearman
// correlation coefficient r over n paired samples, via the Student's t
// distribution with n-2 degrees of freedom.
func tTestPValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}

	t := r * math.Sqrt(df/(1-r*r))
	// Two-sided p-value = regularized incomplete beta I_x(df/2, 1/2)
	// evaluated at x = df/(df+t^2), the standard t-distribution survival
	// function identity.
	x := df / (df + t*t)
	return incompleteBeta(x, df/2, 0.5)
}

// incompleteBeta evaluates the regularized incomplete beta function I_x(a,b)
// via the continued-fraction expansion (Numerical Recipes' betacf), the
// standard way to compute Student's t and F distribution tails without a
// full statistics library.
func incompleteBeta(x, a, b float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lbeta := lgamma(a+b) - lgamma(a) - lgamma(b) +
		a*math.Log(x) + b*math.Log(1-x)
	front := math.Exp(lbeta)

	if x < (a+1)/(a+b+2) {
		return front * betacf(x, a, b) / a
	}
	return 1 - front*betacf(1-x, b, a)/b
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

// betacf is the continued-fraction factor in the incomplete beta function,
// evaluated via the modified Lentz algorithm.
func betacf(x, a, b float64) float64 {
	const (
		maxIter = 200
		eps     = 3e-14
		fpmin   = 1e-300
	)

	qab := a + b
	qap := a + 1
	qam := a - 1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < fpmin {
		d = fpmin
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < eps {
			break
		}
	}

	return h
}
