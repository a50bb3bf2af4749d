package sunsky

import "math"

// RadianceModel evaluates the analytic sky and sun radiance formulas the
// emitter integrates over. Implementations must be pure functions safe for
// concurrent use.
type RadianceModel interface {
	// EvalSky returns the spectral radiance of one channel for a view
	// direction with zenith cosine cosTheta at angular distance gamma from
	// the sun, given that channel's nine shape parameters and its
	// interpolated mean radiance.
	EvalSky(channel int, cosTheta, gamma float64, params []float64, meanRadiance float64) float64

	// EvalSun returns the spectral radiance of the sun disk for a view ray
	// at angular distance gamma from the disk center, with world zenith
	// cosine cosTheta.
	EvalSun(channel int, cosTheta, gamma float64) float64

	// SunLimbDarkening returns the multiplicative limb-darkening factor at
	// angular distance gamma from the disk center, for models whose
	// EvalSun does not already include it.
	SunLimbDarkening(channel int, gamma float64) float64
}

// analyticModel is the default RadianceModel: the Perez-style expansion used
// by the precomputed tables, with a polynomial limb-darkened sun disk.
type analyticModel struct {
	mode         Mode
	halfAperture float64
}

// DefaultModel returns the built-in analytic radiance model for a mode and
// sun half-aperture (radians).
func DefaultModel(mode Mode, halfAperture float64) RadianceModel {
	return &analyticModel{mode: mode, halfAperture: halfAperture}
}

func (m *analyticModel) EvalSky(_ int, cosTheta, gamma float64, p []float64, meanRadiance float64) float64 {
	if cosTheta < 0 {
		return 0
	}
	cosGamma := math.Cos(gamma)
	cosGamma2 := cosGamma * cosGamma

	chi := (1 + cosGamma2) / math.Pow(1+p[7]*p[7]-2*p[7]*cosGamma, 1.5)
	radiance := (1 + p[0]*math.Exp(p[1]/(cosTheta+0.01))) *
		(p[2] + p[3]*math.Exp(p[4]*gamma) + p[5]*cosGamma2 + p[6]*chi + p[8]*math.Sqrt(cosTheta))

	return math.Max(radiance*meanRadiance, 0)
}

// Mean solar spectral radiance per tabulated band, W/(m^2 sr nm), roughly a
// 5778K blackbody attenuated to ground level.
var sunBandRadiance = [WavelengthCount]float64{
	9.0e3, 1.3e4, 1.9e4, 2.3e4, 2.5e4, 2.5e4, 2.4e4, 2.2e4, 2.0e4, 1.8e4, 1.6e4,
}

// Tristimulus equivalents of the band table.
var sunRGBRadiance = [3]float64{2.4e4, 2.2e4, 1.9e4}

func (m *analyticModel) EvalSun(channel int, cosTheta, gamma float64) float64 {
	if cosTheta < 0 || gamma > m.halfAperture {
		return 0
	}
	var rad float64
	if m.mode == ModeSpectral {
		rad = sunBandRadiance[channel]
	} else {
		// The tristimulus table already folds in limb darkening.
		rad = sunRGBRadiance[channel] * m.SunLimbDarkening(channel, gamma)
	}
	return rad
}

// Linear limb-darkening coefficients, interpolated over the band axis.
// Bluer bands darken more strongly toward the limb.
var limbDarkeningU = [WavelengthCount]float64{
	0.92, 0.88, 0.82, 0.75, 0.69, 0.64, 0.60, 0.57, 0.54, 0.52, 0.50,
}

func (m *analyticModel) SunLimbDarkening(channel int, gamma float64) float64 {
	if gamma >= m.halfAperture {
		return 0
	}
	sinRatio := math.Sin(gamma) / math.Sin(m.halfAperture)
	mu := math.Sqrt(math.Max(1-sinRatio*sinRatio, 0))

	u := 0.6
	if m.mode == ModeSpectral {
		u = limbDarkeningU[channel]
	}
	return 1 - u*(1-mu)
}
