package sunsky

import (
	"math"
	"testing"
)

func TestDiscreteDistributionSampleReuse(t *testing.T) {
	d := newDiscreteDistribution([]float64{1, 3})

	tests := []struct {
		name    string
		u       float64
		wantIdx int
		wantRem float64
	}{
		{"FirstBucketStart", 0.0, 0, 0.0},
		{"FirstBucketMiddle", 0.1, 0, 0.4},
		{"SecondBucketStart", 0.25, 0, 1.0 - 1e-9},
		{"SecondBucketMiddle", 0.5, 1, 1.0 / 3},
		{"NearOne", 0.999999, 1, (0.999999*4 - 1) / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, rem := d.sampleReuse(tt.u)
			if idx != tt.wantIdx {
				t.Errorf("index = %d, want %d", idx, tt.wantIdx)
			}
			if math.Abs(rem-tt.wantRem) > 1e-6 {
				t.Errorf("residual = %v, want %v", rem, tt.wantRem)
			}
			if rem < 0 || rem >= 1 {
				t.Errorf("residual %v escaped [0, 1)", rem)
			}
		})
	}
}

func TestDiscreteDistributionProportions(t *testing.T) {
	weights := []float64{0.5, 0.25, 0.125, 0.125}
	d := newDiscreteDistribution(weights)

	const n = 10000
	counts := make([]int, len(weights))
	for i := 0; i < n; i++ {
		idx, _ := d.sampleReuse((float64(i) + 0.5) / n)
		counts[idx]++
	}
	for i, w := range weights {
		got := float64(counts[i]) / n
		if math.Abs(got-w) > 0.01 {
			t.Errorf("component %d frequency = %v, want %v", i, got, w)
		}
	}
}

func TestContinuousDistributionUniform(t *testing.T) {
	d, err := newContinuousDistribution(360, 720, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		x, pdf := d.sample(u)
		if want := 360 + u*360; math.Abs(x-want) > 1e-6 {
			t.Errorf("sample(%v) = %v, want %v", u, x, want)
		}
		if want := 1.0 / 360; math.Abs(pdf-want) > 1e-9 {
			t.Errorf("pdf at sample(%v) = %v, want %v", u, pdf, want)
		}
	}
}

func TestContinuousDistributionInversion(t *testing.T) {
	// Ramp plus plateau; verify sample() inverts the numeric CDF of eval().
	d, err := newContinuousDistribution(0, 3, []float64{0.2, 1.4, 0.9, 0.7})
	if err != nil {
		t.Fatal(err)
	}

	numericCDF := func(x float64) float64 {
		const steps = 20000
		sum := 0.0
		dx := x / steps
		for i := 0; i < steps; i++ {
			sum += d.eval((float64(i)+0.5)*dx) * dx
		}
		return sum
	}

	for _, u := range []float64{0.05, 0.3, 0.5, 0.7, 0.95} {
		x, pdf := d.sample(u)
		if got := numericCDF(x); math.Abs(got-u) > 1e-3 {
			t.Errorf("CDF(sample(%v)) = %v, want %v", u, got, u)
		}
		if got := d.eval(x); math.Abs(got-pdf) > 1e-9 {
			t.Errorf("eval(%v) = %v, pdf from sample = %v", x, got, pdf)
		}
	}
}

func TestContinuousDistributionRejectsDegenerate(t *testing.T) {
	if _, err := newContinuousDistribution(0, 1, []float64{0, 0}); err == nil {
		t.Error("all-zero density accepted")
	}
	if _, err := newContinuousDistribution(1, 0, []float64{1, 1}); err == nil {
		t.Error("inverted range accepted")
	}
	if _, err := newContinuousDistribution(0, 1, []float64{1}); err == nil {
		t.Error("single node accepted")
	}
	if _, err := newContinuousDistribution(0, 1, []float64{1, -2}); err == nil {
		t.Error("negative density accepted")
	}
}
