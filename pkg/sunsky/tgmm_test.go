package sunsky

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/spatial/r3"
)

// testEmitter builds an RGB emitter over the synthetic tables with the sun
// at 45 degrees elevation, azimuth pi/2.
func testEmitter(t *testing.T) *Emitter {
	t.Helper()
	cfg := DefaultConfig(ModeRGB)
	cfg.Albedo = []float64{0.3}
	cfg.SunDirection = &r3.Vec{X: 0, Y: math.Sqrt2 / 2, Z: math.Sqrt2 / 2}
	e, err := New(cfg, SyntheticDatasets(ModeRGB))
	if err != nil {
		t.Fatalf("building emitter: %v", err)
	}
	return e
}

func TestBuildTGMMNormalization(t *testing.T) {
	tbl := SyntheticDatasets(ModeRGB).TGMM

	tests := []struct {
		name      string
		turbidity float64
		elevation float64
	}{
		{"OnGridPoint", 3, 5 * math.Pi / 180},
		{"BetweenElevations", 3, 6.5 * math.Pi / 180},
		{"BetweenTurbidities", 4.3, 5 * math.Pi / 180},
		{"GeneralPosition", 6.7, 33.3 * math.Pi / 180},
		{"BelowGrid", 1, 0.5 * math.Pi / 180},
		{"AboveGrid", 10, math.Pi / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mixture, distr := buildTGMM(tbl, tt.turbidity, tt.elevation)

			if got, want := len(mixture), 4*tgmmMixtureSize; got != want {
				t.Fatalf("combined mixture has %d entries, want %d", got, want)
			}

			// Dataset weights sum to 1 per grid cell, and the four bilinear
			// factors sum to 1, so the combined weights must too.
			sum := 0.0
			for i := 0; i < 4*TGMMComponents; i++ {
				sum += mixture[i*TGMMGaussianParams+TGMMGaussianParams-1]
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("combined weights sum to %v, want 1", sum)
			}
			if math.Abs(distr.total-1) > 1e-12 {
				t.Errorf("selection distribution total = %v, want 1", distr.total)
			}
		})
	}
}

func TestBuildTGMMGridCorner(t *testing.T) {
	tbl := SyntheticDatasets(ModeRGB).TGMM

	// Exactly on a grid point only the low/low corner carries weight.
	mixture, _ := buildTGMM(tbl, 3, 8*math.Pi/180) // turbidity idx 1, elevation idx 2
	src := tbl.mixture(1, 2)
	for i := 0; i < tgmmMixtureSize; i++ {
		if mixture[i] != src[i] {
			t.Fatalf("corner mixture entry %d = %v, want %v", i, mixture[i], src[i])
		}
	}
	for m := 1; m < 4; m++ {
		for k := 0; k < TGMMComponents; k++ {
			w := mixture[m*tgmmMixtureSize+k*TGMMGaussianParams+TGMMGaussianParams-1]
			if w != 0 {
				t.Errorf("corner %d component %d weight = %v, want 0", m, k, w)
			}
		}
	}
}

func TestSkyPDFZenith(t *testing.T) {
	e := testEmitter(t)

	pdf := e.SkyPDF(r3.Vec{Z: 1})
	if !(pdf > 0) || math.IsInf(pdf, 0) || math.IsNaN(pdf) {
		t.Fatalf("zenith pdf = %v, want finite positive", pdf)
	}
}

func TestSkyPDFRejectsBelowHorizon(t *testing.T) {
	e := testEmitter(t)

	if pdf := e.SkyPDF(r3.Vec{X: 0.3, Y: 0.2, Z: -0.5}); pdf != 0 {
		t.Errorf("below-horizon pdf = %v, want 0", pdf)
	}
	if pdf := e.SkyPDF(r3.Vec{Z: -1}); pdf != 0 {
		t.Errorf("nadir pdf = %v, want 0", pdf)
	}
}

func TestSampleSkyCenterSample(t *testing.T) {
	e := testEmitter(t)

	dir := e.SampleSky(0.5, 0.5)
	if dir.Z < 0 {
		t.Errorf("sampled direction below horizon: %+v", dir)
	}
	if math.Abs(r3.Norm(dir)-1) > 1e-9 {
		t.Errorf("sampled direction not unit length: %v", r3.Norm(dir))
	}
	if pdf := e.SkyPDF(dir); !(pdf > 0) {
		t.Errorf("pdf at sampled direction = %v, want > 0", pdf)
	}
}

func TestSkyPDFIntegratesToOne(t *testing.T) {
	e := testEmitter(t)

	const order = 200
	nodes := make([]float64, order)
	weights := make([]float64, order)
	quad.Legendre{}.FixedLocations(nodes, weights, -1, 1)

	sum := 0.0
	for i, xi := range nodes {
		phi := math.Pi * (xi + 1)
		for j, xj := range nodes {
			cosTheta := 0.5 * (xj + 1)
			sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
			dir := r3.Vec{
				X: sinTheta * math.Cos(phi),
				Y: sinTheta * math.Sin(phi),
				Z: cosTheta,
			}
			sum += weights[i] * weights[j] * e.SkyPDF(dir)
		}
	}
	sum *= math.Pi / 2

	if math.Abs(sum-1) > 1e-2 {
		t.Errorf("hemisphere integral of SkyPDF = %v, want 1 +- 1e-2", sum)
	}
}

func TestSampleSkyMonteCarloConsistency(t *testing.T) {
	e := testEmitter(t)
	rng := rand.New(rand.NewSource(7))

	const n = 200000
	sum := 0.0
	for i := 0; i < n; i++ {
		dir := e.SampleSky(rng.Float64(), rng.Float64())
		pdf := e.SkyPDF(dir)
		if pdf <= 0 {
			t.Fatalf("sampled direction %+v has pdf %v", dir, pdf)
		}
		sum += 1 / pdf
	}
	estimate := sum / n

	if rel := math.Abs(estimate-2*math.Pi) / (2 * math.Pi); rel > 0.05 {
		t.Errorf("MC solid-angle estimate = %v, want %v within 5%%", estimate, 2*math.Pi)
	}
}

func TestSampleSkyAzimuthFollowsSun(t *testing.T) {
	// Two emitters differing only in sun azimuth must produce rotated
	// copies of the same sample.
	cfg1 := DefaultConfig(ModeRGB)
	cfg1.SunDirection = &r3.Vec{X: 0, Y: math.Sqrt2 / 2, Z: math.Sqrt2 / 2}
	cfg2 := DefaultConfig(ModeRGB)
	cfg2.SunDirection = &r3.Vec{X: -math.Sqrt2 / 2, Y: 0, Z: math.Sqrt2 / 2}

	ds := SyntheticDatasets(ModeRGB)
	e1, err := New(cfg1, ds)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := New(cfg2, ds)
	if err != nil {
		t.Fatal(err)
	}

	d1 := e1.SampleSky(0.3, 0.6)
	d2 := e2.SampleSky(0.3, 0.6)

	// cfg2's sun sits a quarter turn past cfg1's.
	rotated := r3.Vec{X: -d1.Y, Y: d1.X, Z: d1.Z}
	if math.Abs(d2.X-rotated.X) > 1e-9 || math.Abs(d2.Y-rotated.Y) > 1e-9 || math.Abs(d2.Z-rotated.Z) > 1e-9 {
		t.Errorf("sample did not rotate with the sun: got %+v, want %+v", d2, rotated)
	}
}
