package sunsky

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// discreteDistribution selects an index with probability proportional to a
// weight table. Sampling consumes a uniform variate and hands back the
// unused residual so callers can reuse it for another dimension.
type discreteDistribution struct {
	cdf   []float64
	total float64
}

func newDiscreteDistribution(weights []float64) discreteDistribution {
	cdf := make([]float64, len(weights))
	floats.CumSum(cdf, weights)
	total := 0.0
	if len(cdf) > 0 {
		total = cdf[len(cdf)-1]
	}
	return discreteDistribution{cdf: cdf, total: total}
}

// sampleReuse maps u in [0,1) to an index and a rescaled uniform residual.
func (d discreteDistribution) sampleReuse(u float64) (int, float64) {
	x := u * d.total
	i := sort.SearchFloat64s(d.cdf, x)
	if i >= len(d.cdf) {
		i = len(d.cdf) - 1
	}
	lo := 0.0
	if i > 0 {
		lo = d.cdf[i-1]
	}
	rem := 0.0
	if w := d.cdf[i] - lo; w > 0 {
		rem = clamp((x-lo)/w, 0, oneMinusEpsilon)
	}
	return i, rem
}

// continuousDistribution is a piecewise-linear density over [min, max] with
// uniformly spaced nodes, supporting inverse-CDF sampling.
type continuousDistribution struct {
	min, max float64
	pdf      []float64 // node densities, normalized to unit integral
	cdf      []float64 // cdf[i] = integral over the first i segments
}

func newContinuousDistribution(min, max float64, values []float64) (continuousDistribution, error) {
	if len(values) < 2 {
		return continuousDistribution{}, fmt.Errorf("continuous distribution needs at least 2 nodes, got %d", len(values))
	}
	if max <= min {
		return continuousDistribution{}, fmt.Errorf("invalid range [%g, %g]", min, max)
	}
	for _, v := range values {
		if v < 0 || math.IsNaN(v) {
			return continuousDistribution{}, fmt.Errorf("negative or NaN density value %g", v)
		}
	}

	n := len(values)
	dx := (max - min) / float64(n-1)
	cdf := make([]float64, n)
	for i := 1; i < n; i++ {
		cdf[i] = cdf[i-1] + 0.5*(values[i-1]+values[i])*dx
	}
	total := cdf[n-1]
	if total <= 0 {
		return continuousDistribution{}, fmt.Errorf("all-zero density")
	}

	pdf := make([]float64, n)
	for i, v := range values {
		pdf[i] = v / total
	}
	for i := range cdf {
		cdf[i] /= total
	}
	return continuousDistribution{min: min, max: max, pdf: pdf, cdf: cdf}, nil
}

// sample inverts the CDF at u and returns the position along with the
// density there.
func (d continuousDistribution) sample(u float64) (x, pdf float64) {
	u = clamp(u, 0, oneMinusEpsilon)
	i := sort.SearchFloat64s(d.cdf, u)
	if i > 0 {
		i--
	}
	if i >= len(d.cdf)-1 {
		i = len(d.cdf) - 2
	}

	n := len(d.pdf)
	dx := (d.max - d.min) / float64(n-1)
	p0, p1 := d.pdf[i], d.pdf[i+1]
	rem := u - d.cdf[i]

	// Solve rem = dx*(p0*t + 0.5*(p1-p0)*t^2) for t in [0,1].
	var t float64
	if math.Abs(p1-p0) < 1e-12*math.Max(p0, p1) || p0+p1 == 0 {
		if p0 > 0 {
			t = rem / (dx * p0)
		}
	} else {
		// Positive root of 0.5*(p1-p0)*t^2 + p0*t - rem/dx = 0.
		disc := p0*p0 + 2*(p1-p0)*rem/dx
		t = (-p0 + math.Sqrt(math.Max(disc, 0))) / (p1 - p0)
	}
	t = clamp(t, 0, 1)

	return d.min + (float64(i)+t)*dx, lerp(p0, p1, t)
}

// eval returns the density at x, zero outside the support.
func (d continuousDistribution) eval(x float64) float64 {
	if x < d.min || x > d.max || len(d.pdf) < 2 {
		return 0
	}
	n := len(d.pdf)
	dx := (d.max - d.min) / float64(n-1)
	f := (x - d.min) / dx
	i := int(f)
	if i >= n-1 {
		i = n - 2
	}
	return lerp(d.pdf[i], d.pdf[i+1], f-float64(i))
}
