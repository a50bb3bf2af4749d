package sunsky

import "math"

const (
	epsilon         = 1e-9
	oneMinusEpsilon = 1 - 1e-9
)

// bilinearInterp reduces the (albedo, turbidity) axes of a model table,
// returning SkyCtrlPts consecutive blocks of Channels*Params coefficients.
// Albedo is given per channel; turbidity is interpolated between its two
// bracketing tabulated levels.
func bilinearInterp(t *Table, albedo []float64, turbidity float64) []float64 {
	tIdxF := clamp(turbidity-1, 0, TurbidityLvls-1)
	tLow := int(tIdxF)
	tHigh := tLow + 1
	if tHigh > TurbidityLvls-1 {
		tHigh = TurbidityLvls - 1
	}
	tRem := tIdxF - float64(tLow)

	block := t.Channels * t.Params
	out := make([]float64, SkyCtrlPts*block)
	for c := 0; c < SkyCtrlPts; c++ {
		a0l := t.at(0, tLow, c)
		a1l := t.at(1, tLow, c)
		a0h := t.at(0, tHigh, c)
		a1h := t.at(1, tHigh, c)
		dst := out[c*block : (c+1)*block]
		for j := range dst {
			a := albedo[j/t.Params]
			low := lerp(a0l[j], a1l[j], a)
			high := lerp(a0h[j], a1h[j], a)
			dst[j] = lerp(low, high, tRem)
		}
	}
	return out
}

// Bernstein binomial weights for the degree-5 Bezier blend.
var bezierCoefs = [SkyCtrlPts]float64{1, 5, 10, 10, 5, 1}

// bezierInterp blends SkyCtrlPts coefficient blocks of the given size along
// the sun-zenith axis. Eta is the sun's angle from the zenith; eta = 0
// reproduces control point 0 exactly, eta -> pi/2 converges to the last one.
func bezierInterp(ctrlPts []float64, blockSize int, eta float64) []float64 {
	x := clamp(math.Cbrt(2/math.Pi*eta), 0, oneMinusEpsilon)

	// Power tables, accumulated so no term divides by (1 - x).
	var xPow, xInvPow [SkyCtrlPts]float64
	xPow[0] = 1
	for i := 1; i < SkyCtrlPts; i++ {
		xPow[i] = xPow[i-1] * x
	}
	xInvPow[SkyCtrlPts-1] = 1
	for i := SkyCtrlPts - 2; i >= 0; i-- {
		xInvPow[i] = xInvPow[i+1] * (1 - x)
	}

	out := make([]float64, blockSize)
	for c := 0; c < SkyCtrlPts; c++ {
		w := bezierCoefs[c] * xPow[c] * xInvPow[c]
		src := ctrlPts[c*blockSize : (c+1)*blockSize]
		for j, v := range src {
			out[j] += w * v
		}
	}
	return out
}
