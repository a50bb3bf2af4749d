package sunsky

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// The truncation rectangle of the mixture in the canonical sun frame:
// azimuth in [0, 2pi], zenith angle in [0, pi/2].
const (
	tgmmPhiMax   = 2 * math.Pi
	tgmmThetaMax = math.Pi / 2
)

// buildTGMM combines the four grid mixtures bracketing (turbidity, elevation)
// into one table of 4*TGMMComponents components. Gaussian parameters cannot be
// interpolated directly, so each corner mixture keeps its means and standard
// deviations and only has its component weights rescaled by the corner's
// bilinear factor; the four factors sum to one, preserving normalization.
// Elevation is the sun's angle above the horizon, in radians.
func buildTGMM(tbl *TGMMTable, turbidity, elevation float64) ([]float64, discreteDistribution) {
	elevDeg := elevation * 180 / math.Pi

	// Grid cells: elevations 2 + 3*i degrees, integer turbidities from 2.
	eIdxF := clamp((elevDeg-2)/3, 0, ElevationCtrlPts-1)
	tIdxF := clamp(turbidity-2, 0, (TurbidityLvls-1)-1)

	eLow, tLow := int(eIdxF), int(tIdxF)
	eHigh := min(eLow+1, ElevationCtrlPts-1)
	tHigh := min(tLow+1, (TurbidityLvls-1)-1)
	eRem := eIdxF - float64(eLow)
	tRem := tIdxF - float64(tLow)

	corners := [4]struct {
		t, e   int
		factor float64
	}{
		{tLow, eLow, (1 - tRem) * (1 - eRem)},
		{tLow, eHigh, (1 - tRem) * eRem},
		{tHigh, eLow, tRem * (1 - eRem)},
		{tHigh, eHigh, tRem * eRem},
	}

	combined := make([]float64, 4*tgmmMixtureSize)
	for m, c := range corners {
		dst := combined[m*tgmmMixtureSize : (m+1)*tgmmMixtureSize]
		copy(dst, tbl.mixture(c.t, c.e))
		for k := 0; k < TGMMComponents; k++ {
			dst[k*TGMMGaussianParams+TGMMGaussianParams-1] *= c.factor
		}
	}

	weights := make([]float64, 4*TGMMComponents)
	for i := range weights {
		weights[i] = combined[i*TGMMGaussianParams+TGMMGaussianParams-1]
	}
	return combined, newDiscreteDistribution(weights)
}

// SampleSky maps a 2D uniform sample to a direction on the sky dome,
// distributed approximately according to the sky's radiance. The returned
// direction is a unit vector in the emitter's local frame.
func (e *Emitter) SampleSky(u1, u2 float64) r3.Vec {
	idx, uPhi := e.componentDistr.sampleReuse(u1)
	g := e.mixture[idx*TGMMGaussianParams:]

	nPhi := distuv.Normal{Mu: g[0], Sigma: g[2]}
	nTheta := distuv.Normal{Mu: g[1], Sigma: g[3]}

	// Per-axis truncated inverse-CDF sampling: interpolate between the CDF
	// at the domain endpoints, then invert. Clamping keeps the quantile
	// function away from its singular endpoints.
	pPhi := clamp(lerp(nPhi.CDF(0), nPhi.CDF(tgmmPhiMax), uPhi), epsilon, oneMinusEpsilon)
	pTheta := clamp(lerp(nTheta.CDF(0), nTheta.CDF(tgmmThetaMax), u2), epsilon, oneMinusEpsilon)

	phi := nPhi.Quantile(pPhi)
	theta := nTheta.Quantile(pTheta)

	// The mixture is fitted in a frame with the sun at azimuth pi/2.
	phi += e.sunAzimuth - math.Pi/2
	// Keep the direction strictly above the horizon.
	theta = math.Min(theta, tgmmThetaMax-epsilon)

	return sphToDir(theta, phi)
}

// SkyPDF evaluates the solid-angle density of SampleSky for a local-frame
// direction. Directions below the horizon or outside the mixture's domain
// have density zero.
func (e *Emitter) SkyPDF(dir r3.Vec) float64 {
	if dir.Z < 0 {
		return 0
	}
	sinTheta := math.Hypot(dir.X, dir.Y)

	theta, phi := dirToSph(dir)
	phi = wrapTwoPi(phi - (e.sunAzimuth - math.Pi/2))
	if theta < 0 || theta > tgmmThetaMax {
		return 0
	}

	total := e.componentDistr.total
	if total <= 0 {
		return 0
	}

	pdf := 0.0
	for i := 0; i < 4*TGMMComponents; i++ {
		g := e.mixture[i*TGMMGaussianParams:]
		weight := g[TGMMGaussianParams-1]
		if weight == 0 {
			continue
		}
		nPhi := distuv.Normal{Mu: g[0], Sigma: g[2]}
		nTheta := distuv.Normal{Mu: g[1], Sigma: g[3]}

		// Normalize each axis to the truncation interval.
		volPhi := nPhi.CDF(tgmmPhiMax) - nPhi.CDF(0)
		volTheta := nTheta.CDF(tgmmThetaMax) - nTheta.CDF(0)
		if volPhi <= 0 || volTheta <= 0 {
			continue
		}
		pdf += weight * nPhi.Prob(phi) * nTheta.Prob(theta) / (volPhi * volTheta)
	}

	// Jacobian of the spherical parameterization.
	return pdf / (total * math.Max(sinTheta, epsilon))
}
