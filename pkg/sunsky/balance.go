package sunsky

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quadrature order per axis for the energy integrals.
const quadOrder = 200

// Wavelength range covered by the sampling distribution. The lowest band
// (320nm) is outside the supported range and excluded.
const (
	wavelengthRangeMin = WavelengthMin + WavelengthStep
	wavelengthRangeMax = WavelengthMin + WavelengthStep*(WavelengthCount-1)
)

// Empirical calibration of the tabulated solar spectrum against tristimulus
// luminance; matched against reference renders, not derived.
const sunRGBCalibration = 467.069280386

// updateBalance integrates sky and sun radiance over their domains by
// Gauss-Legendre quadrature and refreshes the sampling weight and the
// wavelength distribution.
func (e *Emitter) updateBalance() error {
	channels := e.cfg.Mode.Channels()

	nodes := make([]float64, quadOrder)
	weights := make([]float64, quadOrder)
	quad.Legendre{}.FixedLocations(nodes, weights, -1, 1)

	skyRadiance := e.integrateSky(nodes, weights, channels)
	sunRadiance := e.integrateSun(nodes, weights, channels)

	var skyLum, sunLum float64
	if e.cfg.Mode == ModeSpectral {
		skyLum = spectralLuminance(skyRadiance)
		sunLum = spectralLuminance(sunRadiance) * sunApertureRatio(e.cfg.HalfAperture)
	} else {
		skyLum = rgbLuminance(skyRadiance)
		sunLum = rgbLuminance(sunRadiance) * sunApertureRatio(e.cfg.HalfAperture) * sunRGBCalibration
	}
	skyLum *= e.cfg.SkyScale
	sunLum *= e.cfg.SunScale

	weight := skyLum / (skyLum + sunLum)
	if math.IsNaN(weight) {
		weight = 0
	}
	e.skyWeight = weight

	return e.updateSpectralDistr(skyRadiance, sunRadiance)
}

// integrateSky computes per-channel sky radiance over the hemisphere,
// parameterized by (phi, cos theta) with Jacobian pi/2 for the mapping from
// [-1,1]^2.
func (e *Emitter) integrateSky(nodes, weights []float64, channels int) []float64 {
	out := make([]float64, channels)
	const jacobian = math.Pi / 2

	for i, xi := range nodes {
		phi := math.Pi * (xi + 1)
		for j, xj := range nodes {
			cosTheta := 0.5 * (xj + 1)
			sinTheta := math.Sqrt(math.Max(1-cosTheta*cosTheta, 0))
			sinPhi, cosPhi := math.Sincos(phi)

			dir := r3.Vec{X: sinTheta * cosPhi, Y: sinTheta * sinPhi, Z: cosTheta}
			gamma := unitAngle(e.sunDir, dir)

			w := weights[i] * weights[j]
			for ch := 0; ch < channels; ch++ {
				params := e.skyParams[ch*SkyParamCount : (ch+1)*SkyParamCount]
				out[ch] += w * e.model.EvalSky(ch, cosTheta, gamma, params, e.skyRadiance[ch])
			}
		}
	}
	for ch := range out {
		out[ch] *= jacobian
	}
	return out
}

// integrateSun computes per-channel sun radiance over the sun's angular
// disk. Directions that fall below the horizon after rotation into the
// emitter frame contribute zero.
func (e *Emitter) integrateSun(nodes, weights []float64, channels int) []float64 {
	out := make([]float64, channels)
	cosCutoff := math.Cos(e.cfg.HalfAperture)
	jacobian := math.Pi / 2 * (1 - cosCutoff)

	for i, xi := range nodes {
		phi := math.Pi * (xi + 1)
		for j, xj := range nodes {
			// Map [-1,1] to [cos(aperture), 1].
			cosGamma := 0.5 * ((1-cosCutoff)*xj + (1 + cosCutoff))
			sinGamma := math.Sqrt(math.Max(1-cosGamma*cosGamma, 0))
			sinPhi, cosPhi := math.Sincos(phi)

			// View ray in sun-local coordinates, then in the emitter frame.
			local := r3.Vec{X: sinGamma * cosPhi, Y: sinGamma * sinPhi, Z: cosGamma}
			world := frameToWorld(e.sunDir, local)
			if world.Z < 0 {
				continue
			}

			gamma := math.Acos(clamp(cosGamma, -1, 1))
			w := weights[i] * weights[j]
			for ch := 0; ch < channels; ch++ {
				rad := e.model.EvalSun(ch, world.Z, gamma)
				if e.cfg.Mode == ModeSpectral {
					rad *= e.model.SunLimbDarkening(ch, gamma)
				}
				out[ch] += w * rad
			}
		}
	}
	for ch := range out {
		out[ch] *= jacobian
	}
	return out
}

// updateSpectralDistr rebuilds the wavelength distribution from the summed
// spectral radiance. In RGB mode it degenerates to a flat two-point
// distribution over the nominal visible range.
func (e *Emitter) updateSpectralDistr(skyRadiance, sunRadiance []float64) error {
	if e.cfg.Mode != ModeSpectral {
		distr, err := newContinuousDistribution(wavelengthRangeMin, wavelengthRangeMax, []float64{1, 1})
		if err != nil {
			return err
		}
		e.spectralDistr = distr
		return nil
	}

	// Band 0 (320nm) is unsupported downstream and skipped.
	spectrum := make([]float64, WavelengthCount-1)
	allZero := true
	for i := range spectrum {
		spectrum[i] = skyRadiance[i+1] + sunRadiance[i+1]
		if spectrum[i] != 0 {
			allZero = false
		}
	}
	if allZero {
		// Uniform fallback keeps the distribution well-formed.
		for i := range spectrum {
			spectrum[i] = 1
		}
	}

	distr, err := newContinuousDistribution(wavelengthRangeMin, wavelengthRangeMax, spectrum)
	if err != nil {
		return err
	}
	e.spectralDistr = distr
	return nil
}

// sunApertureRatio conserves total sun power when the configured aperture
// differs from the physical sun disk.
func sunApertureRatio(halfAperture float64) float64 {
	return (1 - math.Cos(DefaultHalfAperture)) / (1 - math.Cos(halfAperture))
}

// rgbLuminance applies the Rec. 709 perceptual weighting.
func rgbLuminance(rgb []float64) float64 {
	return 0.2126*rgb[0] + 0.7152*rgb[1] + 0.0722*rgb[2]
}

// cieY approximates the CIE 1931 luminous efficiency curve with a two-lobe
// piecewise-Gaussian fit; each lobe has separate spreads on either side of
// its mean.
func cieY(wavelength float64) float64 {
	return 0.821*cieLobe(wavelength, 568.8, 46.9, 40.5) +
		0.286*cieLobe(wavelength, 530.9, 16.3, 31.1)
}

func cieLobe(wavelength, mean, sigmaLo, sigmaHi float64) float64 {
	sigma := sigmaLo
	if wavelength >= mean {
		sigma = sigmaHi
	}
	g := (wavelength - mean) / sigma
	return math.Exp(-0.5 * g * g)
}

// spectralLuminance weighs band radiance by luminous efficiency at the band
// wavelengths.
func spectralLuminance(bands []float64) float64 {
	lum := 0.0
	for i, v := range bands {
		lum += cieY(WavelengthMin+WavelengthStep*float64(i)) * v
	}
	return lum
}
