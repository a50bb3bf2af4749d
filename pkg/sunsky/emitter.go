// Package sunsky evaluates a physically parameterized sun and sky-dome
// radiance model and builds the importance-sampling distributions a renderer
// needs to draw directions toward bright sky regions: a truncated
// Gaussian-mixture direction sampler with matching density, a wavelength
// sampler, and a sun-versus-sky balance weight for multiple importance
// sampling.
package sunsky

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/skyrender/sunsky/internal/log"
	"github.com/skyrender/sunsky/pkg/sunpos"
)

var (
	// ErrConflictingSun reports that both an explicit sun direction and
	// location/time fields were configured.
	ErrConflictingSun = errors.New("sun_direction cannot be combined with location/time parameters")
	// ErrNotSpectral reports a wavelength-sampling request in RGB mode.
	ErrNotSpectral = errors.New("wavelength sampling requires spectral mode")
)

// Default configuration values (Tokyo, a July afternoon).
const (
	DefaultTurbidity    = 3.0
	DefaultAlbedo       = 0.3
	DefaultLatitude     = 35.6894
	DefaultLongitude    = 139.6917
	DefaultTimezone     = 9.0
	DefaultHalfAperture = 0.5338 / 2 * math.Pi / 180
)

// Config describes an emitter. Exactly one of SunDirection and
// Location/Time may be set; when both are nil the default location and time
// are used.
type Config struct {
	Turbidity float64   // atmospheric haziness, in [1, 10]
	Albedo    []float64 // ground reflectance per channel in [0, 1]; one value broadcasts

	SunDirection *r3.Vec          // explicit sun direction (local frame)
	Location     *sunpos.Location // geographic position
	Time         *sunpos.DateTime // local civil date and time

	SunScale     float64 // sun radiance scale; zero turns the sun off
	SkyScale     float64 // sky radiance scale; zero turns the sky off
	HalfAperture float64 // sun angular half-aperture, radians; 0 means default

	Mode  Mode
	Model RadianceModel // nil selects DefaultModel
}

// DefaultConfig returns a configuration with both scales at 1 and the
// default atmosphere; the sun position defaults are applied by New.
func DefaultConfig(mode Mode) Config {
	return Config{
		Turbidity:    DefaultTurbidity,
		SunScale:     1,
		SkyScale:     1,
		HalfAperture: DefaultHalfAperture,
		Mode:         mode,
	}
}

// Emitter holds the derived state for one configuration: interpolated
// radiance coefficients, the combined sampling mixture, and the energy
// balance. All sampling and evaluation methods are read-only and safe for
// concurrent use; ParametersChanged mutates the derived state and must not
// overlap with them.
type Emitter struct {
	cfg    Config
	ds     *Datasets
	model  RadianceModel
	albedo []float64 // per channel

	// True when the sun position is derived from location/time.
	activeRecord bool

	sunDir     r3.Vec  // unit sun direction, local frame
	sunAzimuth float64 // phi of sunDir, [0, 2pi)
	sunTheta   float64 // zenith angle of sunDir

	skyParams   []float64 // [channel][SkyParamCount]
	skyRadiance []float64 // [channel]

	mixture        []float64 // 4*TGMMComponents gaussians
	componentDistr discreteDistribution

	skyWeight     float64
	spectralDistr continuousDistribution
}

// New validates cfg, derives the solar angles, and computes all tables.
// The datasets are only read and may be shared with other emitters.
func New(cfg Config, ds *Datasets) (*Emitter, error) {
	if cfg.SunDirection != nil && (cfg.Location != nil || cfg.Time != nil) {
		return nil, ErrConflictingSun
	}
	if ds == nil {
		return nil, fmt.Errorf("nil datasets")
	}
	if ds.Mode != cfg.Mode {
		return nil, fmt.Errorf("datasets are for %s mode, emitter configured for %s", ds.Mode, cfg.Mode)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	if cfg.Turbidity == 0 {
		cfg.Turbidity = DefaultTurbidity
	}
	if cfg.Turbidity < 1 || cfg.Turbidity > 10 {
		return nil, fmt.Errorf("turbidity %g outside [1, 10]", cfg.Turbidity)
	}
	if cfg.SunScale < 0 || cfg.SkyScale < 0 {
		return nil, fmt.Errorf("negative radiance scale")
	}
	if cfg.HalfAperture == 0 {
		cfg.HalfAperture = DefaultHalfAperture
	}
	if cfg.HalfAperture <= 0 || cfg.HalfAperture >= math.Pi/2 {
		return nil, fmt.Errorf("sun half-aperture %g outside (0, pi/2)", cfg.HalfAperture)
	}

	albedo, err := broadcastAlbedo(cfg.Albedo, cfg.Mode.Channels())
	if err != nil {
		return nil, err
	}

	e := &Emitter{
		cfg:          cfg,
		ds:           ds,
		albedo:       albedo,
		activeRecord: cfg.SunDirection == nil,
	}
	e.model = cfg.Model
	if e.model == nil {
		e.model = DefaultModel(cfg.Mode, cfg.HalfAperture)
	}

	if e.activeRecord {
		if e.cfg.Location == nil {
			e.cfg.Location = &sunpos.Location{
				Latitude: DefaultLatitude, Longitude: DefaultLongitude, Timezone: DefaultTimezone,
			}
		}
		if e.cfg.Time == nil {
			e.cfg.Time = &sunpos.DateTime{Year: 2010, Month: 7, Day: 10, Hour: 15}
		}
	}

	e.updateSunAngles()
	e.updateCoefficients()
	e.updateMixture()
	if err := e.updateBalance(); err != nil {
		return nil, err
	}
	return e, nil
}

func broadcastAlbedo(albedo []float64, channels int) ([]float64, error) {
	out := make([]float64, channels)
	switch len(albedo) {
	case 0:
		for i := range out {
			out[i] = DefaultAlbedo
		}
	case 1:
		for i := range out {
			out[i] = albedo[0]
		}
	case channels:
		copy(out, albedo)
	default:
		return nil, fmt.Errorf("albedo has %d entries, want 1 or %d", len(albedo), channels)
	}
	for _, a := range out {
		if a < 0 || a > 1 {
			return nil, fmt.Errorf("albedo %g outside [0, 1]", a)
		}
	}
	return out, nil
}

func (e *Emitter) updateSunAngles() {
	if e.activeRecord {
		elevation, azimuth := sunpos.Coordinates(*e.cfg.Time, *e.cfg.Location)
		e.sunTheta = math.Pi/2 - elevation
		e.sunAzimuth = wrapTwoPi(azimuth)
		e.sunDir = sphToDir(e.sunTheta, e.sunAzimuth)
	} else {
		e.sunDir = r3.Unit(*e.cfg.SunDirection)
		e.sunTheta, e.sunAzimuth = dirToSph(e.sunDir)
	}
	if e.sunDir.Z < 0 {
		log.Warn("the sun is below the horizon for this configuration")
	}
}

func (e *Emitter) updateCoefficients() {
	eta := e.sunTheta // angle from the zenith drives the Bezier blend

	params := bilinearInterp(e.ds.Params, e.albedo, e.cfg.Turbidity)
	e.skyParams = bezierInterp(params, e.cfg.Mode.Channels()*SkyParamCount, eta)

	radiance := bilinearInterp(e.ds.Radiance, e.albedo, e.cfg.Turbidity)
	e.skyRadiance = bezierInterp(radiance, e.cfg.Mode.Channels(), eta)
}

func (e *Emitter) updateMixture() {
	elevation := math.Pi/2 - e.sunTheta
	e.mixture, e.componentDistr = buildTGMM(e.ds.TGMM, e.cfg.Turbidity, elevation)
}

// SkySamplingWeight returns the probability of sampling the sky dome rather
// than the sun disk, proportional to the sky's share of total luminance.
func (e *Emitter) SkySamplingWeight() float64 {
	return e.skyWeight
}

// SunDirection returns the unit sun direction in the emitter's local frame.
func (e *Emitter) SunDirection() r3.Vec {
	return e.sunDir
}

// SampleWavelength maps a 1D uniform sample to a wavelength distributed
// according to the combined sun and sky spectral radiance, together with the
// inverse-density weight. It fails with ErrNotSpectral in RGB mode.
func (e *Emitter) SampleWavelength(u float64) (wavelength, weight float64, err error) {
	if e.cfg.Mode != ModeSpectral {
		return 0, 0, ErrNotSpectral
	}
	wl, pdf := e.spectralDistr.sample(u)
	if pdf <= 0 {
		return wl, 0, nil
	}
	return wl, 1 / pdf, nil
}

// WavelengthPDF evaluates the density of SampleWavelength.
func (e *Emitter) WavelengthPDF(wavelength float64) (float64, error) {
	if e.cfg.Mode != ModeSpectral {
		return 0, ErrNotSpectral
	}
	return e.spectralDistr.eval(wavelength), nil
}

// Param is one editable scalar exposed to the host renderer.
type Param struct {
	Name           string
	Value          float64
	Differentiable bool
}

// Params lists the editable scalars of the active sun mode plus the shared
// atmosphere and scale parameters.
func (e *Emitter) Params() []Param {
	ps := []Param{
		{Name: "turbidity", Value: e.cfg.Turbidity},
		{Name: "albedo", Value: e.albedo[0]},
		{Name: "sun_scale", Value: e.cfg.SunScale},
		{Name: "sky_scale", Value: e.cfg.SkyScale},
	}
	if e.activeRecord {
		ps = append(ps,
			Param{Name: "latitude", Value: e.cfg.Location.Latitude},
			Param{Name: "longitude", Value: e.cfg.Location.Longitude},
			Param{Name: "timezone", Value: e.cfg.Location.Timezone},
			Param{Name: "year", Value: float64(e.cfg.Time.Year)},
			Param{Name: "month", Value: float64(e.cfg.Time.Month)},
			Param{Name: "day", Value: float64(e.cfg.Time.Day)},
			Param{Name: "hour", Value: e.cfg.Time.Hour},
			Param{Name: "minute", Value: e.cfg.Time.Minute},
			Param{Name: "second", Value: e.cfg.Time.Second},
		)
	} else {
		ps = append(ps,
			Param{Name: "sun_direction_x", Value: e.sunDir.X, Differentiable: true},
			Param{Name: "sun_direction_y", Value: e.sunDir.Y, Differentiable: true},
			Param{Name: "sun_direction_z", Value: e.sunDir.Z, Differentiable: true},
		)
	}
	return ps
}

var recordKeys = map[string]bool{
	"latitude": true, "longitude": true, "timezone": true,
	"year": true, "month": true, "day": true,
	"hour": true, "minute": true, "second": true,
}

// SetParam updates one configuration scalar without recomputing derived
// state; follow a batch of SetParam calls with ParametersChanged.
func (e *Emitter) SetParam(name string, value float64) error {
	switch {
	case name == "turbidity":
		if value < 1 || value > 10 {
			return fmt.Errorf("turbidity %g outside [1, 10]", value)
		}
		e.cfg.Turbidity = value
	case name == "albedo":
		if value < 0 || value > 1 {
			return fmt.Errorf("albedo %g outside [0, 1]", value)
		}
		for i := range e.albedo {
			e.albedo[i] = value
		}
	case name == "sun_scale":
		e.cfg.SunScale = value
	case name == "sky_scale":
		e.cfg.SkyScale = value
	case recordKeys[name]:
		if !e.activeRecord {
			return fmt.Errorf("parameter %q requires location/time mode", name)
		}
		e.setRecordParam(name, value)
	case name == "sun_direction_x" || name == "sun_direction_y" || name == "sun_direction_z":
		if e.activeRecord {
			return fmt.Errorf("parameter %q requires an explicit sun direction", name)
		}
		switch name {
		case "sun_direction_x":
			e.cfg.SunDirection.X = value
		case "sun_direction_y":
			e.cfg.SunDirection.Y = value
		case "sun_direction_z":
			e.cfg.SunDirection.Z = value
		}
	default:
		return fmt.Errorf("unknown parameter %q", name)
	}
	return nil
}

func (e *Emitter) setRecordParam(name string, value float64) {
	switch name {
	case "latitude":
		e.cfg.Location.Latitude = value
	case "longitude":
		e.cfg.Location.Longitude = value
	case "timezone":
		e.cfg.Location.Timezone = value
	case "year":
		e.cfg.Time.Year = int(value)
	case "month":
		e.cfg.Time.Month = int(value)
	case "day":
		e.cfg.Time.Day = int(value)
	case "hour":
		e.cfg.Time.Hour = value
	case "minute":
		e.cfg.Time.Minute = value
	case "second":
		e.cfg.Time.Second = value
	}
}

// ParametersChanged recomputes exactly the derived quantities whose inputs
// are named in keys; an empty slice recomputes everything. Callers must
// treat it as a barrier with respect to in-flight sampling calls.
func (e *Emitter) ParametersChanged(keys []string) error {
	changed := func(name string) bool {
		for _, k := range keys {
			if k == name {
				return true
			}
		}
		return false
	}

	all := len(keys) == 0
	for _, k := range keys {
		validDirect := k == "sun_direction_x" || k == "sun_direction_y" || k == "sun_direction_z"
		validShared := k == "turbidity" || k == "albedo" || k == "sun_scale" || k == "sky_scale"
		if !validShared && !(e.activeRecord && recordKeys[k]) && !(!e.activeRecord && validDirect) {
			return fmt.Errorf("parameter %q is not editable in the active mode", k)
		}
	}

	changedRecord := all || (e.activeRecord && func() bool {
		for k := range recordKeys {
			if changed(k) {
				return true
			}
		}
		return false
	}())
	changedSunDir := changedRecord || (!e.activeRecord &&
		(changed("sun_direction_x") || changed("sun_direction_y") || changed("sun_direction_z")))
	changedAtmosphere := all || changed("albedo") || changed("turbidity")

	if changedSunDir {
		e.updateSunAngles()
	}
	if changedSunDir || changedAtmosphere {
		e.updateCoefficients()
	}
	// The mixture has no albedo dependence.
	if changedSunDir || all || changed("turbidity") {
		e.updateMixture()
	}

	// The balance weight and wavelength distribution depend on everything.
	return e.updateBalance()
}
