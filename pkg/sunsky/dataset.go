package sunsky

import (
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Dimensions of the precomputed model tables.
const (
	// Bezier control points over the sun elevation axis.
	SkyCtrlPts = 6
	// Shape parameters of the analytic sky expansion, per channel.
	SkyParamCount = 9
	// Albedo planes in the radiance tables (albedo 0 and 1).
	AlbedoLvls = 2
	// Tabulated turbidity levels (1 through 10).
	TurbidityLvls = 10

	// TGMM grid: mixtures are fitted for integer turbidities 2..10 and
	// sun elevations 2 + 3*i degrees, i in [0, ElevationCtrlPts).
	ElevationCtrlPts   = 30
	TGMMComponents     = 5
	TGMMGaussianParams = 5 // {mu_phi, mu_theta, sigma_phi, sigma_theta, weight}

	// Spectral bands of the model, 320..720nm in 40nm steps.
	WavelengthCount = 11
	WavelengthMin   = 320.0
	WavelengthStep  = 40.0
)

// Mode selects the channel layout the emitter works in.
type Mode int

const (
	// ModeRGB evaluates three tristimulus channels.
	ModeRGB Mode = iota
	// ModeSpectral evaluates all tabulated wavelength bands.
	ModeSpectral
)

// Channels returns the number of radiance channels for the mode.
func (m Mode) Channels() int {
	if m == ModeSpectral {
		return WavelengthCount
	}
	return 3
}

func (m Mode) String() string {
	if m == ModeSpectral {
		return "spectral"
	}
	return "rgb"
}

// Table is a dense radiance-model table with logical dimensions
// [AlbedoLvls][TurbidityLvls][SkyCtrlPts][Channels][Params], flattened
// row-major into Data.
type Table struct {
	Channels int
	Params   int
	Data     []float64
}

func (t *Table) validate() error {
	want := AlbedoLvls * TurbidityLvls * SkyCtrlPts * t.Channels * t.Params
	if len(t.Data) != want {
		return fmt.Errorf("table has %d entries, want %d (%d channels, %d params)",
			len(t.Data), want, t.Channels, t.Params)
	}
	return nil
}

// at returns the coefficient block for one (albedo, turbidity, control point)
// cell: Channels*Params consecutive values.
func (t *Table) at(albedo, turbidity, ctrlPt int) []float64 {
	block := t.Channels * t.Params
	off := ((albedo*TurbidityLvls+turbidity)*SkyCtrlPts + ctrlPt) * block
	return t.Data[off : off+block]
}

// TGMMTable holds the fitted truncated-Gaussian-mixture grid with logical
// dimensions [TurbidityLvls-1][ElevationCtrlPts][TGMMComponents][TGMMGaussianParams].
type TGMMTable struct {
	Data []float64
}

const tgmmMixtureSize = TGMMComponents * TGMMGaussianParams

func (t *TGMMTable) validate() error {
	want := (TurbidityLvls - 1) * ElevationCtrlPts * tgmmMixtureSize
	if len(t.Data) != want {
		return fmt.Errorf("tgmm table has %d entries, want %d", len(t.Data), want)
	}
	return nil
}

// mixture returns the TGMMComponents*TGMMGaussianParams block for one grid cell.
func (t *TGMMTable) mixture(turbidity, elevation int) []float64 {
	off := (turbidity*ElevationCtrlPts + elevation) * tgmmMixtureSize
	return t.Data[off : off+tgmmMixtureSize]
}

// Datasets bundles the immutable tables the emitter interpolates. A Datasets
// value is read-only after construction and may be shared freely across
// emitters and goroutines.
type Datasets struct {
	Mode     Mode
	Radiance *Table // mean radiance, Params == 1
	Params   *Table // analytic shape parameters, Params == SkyParamCount
	TGMM     *TGMMTable
}

// Validate checks that all table shapes are consistent with Mode.
func (d *Datasets) Validate() error {
	if d.Radiance == nil || d.Params == nil || d.TGMM == nil {
		return fmt.Errorf("datasets incomplete")
	}
	if d.Radiance.Channels != d.Mode.Channels() || d.Radiance.Params != 1 {
		return fmt.Errorf("radiance table shape mismatch for %s mode", d.Mode)
	}
	if d.Params.Channels != d.Mode.Channels() || d.Params.Params != SkyParamCount {
		return fmt.Errorf("params table shape mismatch for %s mode", d.Mode)
	}
	if err := d.Radiance.validate(); err != nil {
		return err
	}
	if err := d.Params.validate(); err != nil {
		return err
	}
	return d.TGMM.validate()
}

type tensorFile struct {
	Shape []int     `msgpack:"shape"`
	Data  []float64 `msgpack:"data"`
}

type datasetFile struct {
	Version  int        `msgpack:"version"`
	Mode     string     `msgpack:"mode"`
	Radiance tensorFile `msgpack:"radiance"`
	Params   tensorFile `msgpack:"params"`
	TGMM     tensorFile `msgpack:"tgmm"`
}

const datasetFileVersion = 1

// LoadDatasets reads a msgpack-encoded dataset file produced by SaveDatasets
// (or the offline fitting pipeline).
func LoadDatasets(path string) (*Datasets, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset file: %w", err)
	}
	defer f.Close()

	var df datasetFile
	if err := msgpack.NewDecoder(f).Decode(&df); err != nil {
		return nil, fmt.Errorf("decoding dataset file %s: %w", path, err)
	}
	if df.Version != datasetFileVersion {
		return nil, fmt.Errorf("dataset file %s: unsupported version %d", path, df.Version)
	}

	var mode Mode
	switch df.Mode {
	case "rgb":
		mode = ModeRGB
	case "spectral":
		mode = ModeSpectral
	default:
		return nil, fmt.Errorf("dataset file %s: unknown mode %q", path, df.Mode)
	}

	ds := &Datasets{
		Mode:     mode,
		Radiance: &Table{Channels: mode.Channels(), Params: 1, Data: df.Radiance.Data},
		Params:   &Table{Channels: mode.Channels(), Params: SkyParamCount, Data: df.Params.Data},
		TGMM:     &TGMMTable{Data: df.TGMM.Data},
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("dataset file %s: %w", path, err)
	}
	return ds, nil
}

// SaveDatasets writes a dataset bundle in the format LoadDatasets expects.
func SaveDatasets(path string, ds *Datasets) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dataset file: %w", err)
	}
	defer f.Close()

	df := datasetFile{
		Version:  datasetFileVersion,
		Mode:     ds.Mode.String(),
		Radiance: tensorFile{Shape: []int{AlbedoLvls, TurbidityLvls, SkyCtrlPts, ds.Mode.Channels(), 1}, Data: ds.Radiance.Data},
		Params:   tensorFile{Shape: []int{AlbedoLvls, TurbidityLvls, SkyCtrlPts, ds.Mode.Channels(), SkyParamCount}, Data: ds.Params.Data},
		TGMM:     tensorFile{Shape: []int{TurbidityLvls - 1, ElevationCtrlPts, TGMMComponents, TGMMGaussianParams}, Data: ds.TGMM.Data},
	}
	if err := msgpack.NewEncoder(f).Encode(&df); err != nil {
		return fmt.Errorf("encoding dataset file %s: %w", path, err)
	}
	return nil
}

var (
	sharedMu sync.Mutex
	shared   = make(map[string]*Datasets)
)

// SharedDatasets loads a dataset file once per process and returns the same
// immutable instance for every subsequent call with the same path.
func SharedDatasets(path string) (*Datasets, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if ds, ok := shared[path]; ok {
		return ds, nil
	}
	ds, err := LoadDatasets(path)
	if err != nil {
		return nil, err
	}
	shared[path] = ds
	return ds, nil
}

// SyntheticDatasets builds a smooth analytic stand-in for the fitted tables.
// It is intended for validation and tooling when the fitted dataset files are
// not available; the radiance values are plausible but not physical.
func SyntheticDatasets(mode Mode) *Datasets {
	channels := mode.Channels()

	rad := &Table{Channels: channels, Params: 1,
		Data: make([]float64, AlbedoLvls*TurbidityLvls*SkyCtrlPts*channels)}
	par := &Table{Channels: channels, Params: SkyParamCount,
		Data: make([]float64, AlbedoLvls*TurbidityLvls*SkyCtrlPts*channels*SkyParamCount)}

	ri, pi := 0, 0
	for a := 0; a < AlbedoLvls; a++ {
		for t := 0; t < TurbidityLvls; t++ {
			for c := 0; c < SkyCtrlPts; c++ {
				for ch := 0; ch < channels; ch++ {
					haze := float64(t) / float64(TurbidityLvls-1)
					rad.Data[ri] = 8 + 4*float64(a) + 6*haze + 0.5*float64(c) + 0.2*float64(ch)
					ri++

					// Mild variants of typical clear-sky shape parameters.
					shape := [SkyParamCount]float64{
						-1.1 - 0.2*haze,                         // A
						-0.2 - 0.1*haze,                         // B
						1.0 + 0.5*float64(a),                    // C
						1.5 * haze,                              // D
						-3.0,                                    // E
						0.2 + 0.1*float64(ch)/float64(channels), // F
						0.5,                                     // G
						0.5 + 0.3*haze,                          // H
						0.6 + 0.05*float64(c),                   // I
					}
					copy(par.Data[pi:], shape[:])
					pi += SkyParamCount
				}
			}
		}
	}

	tgmm := &TGMMTable{Data: make([]float64, (TurbidityLvls-1)*ElevationCtrlPts*tgmmMixtureSize)}
	gi := 0
	for t := 0; t < TurbidityLvls-1; t++ {
		for e := 0; e < ElevationCtrlPts; e++ {
			elev := (2 + 3*float64(e)) * math.Pi / 180
			sunTheta := math.Pi/2 - elev
			for k := 0; k < TGMMComponents; k++ {
				spread := 0.4 + 0.15*float64(k) + 0.02*float64(t)
				tgmm.Data[gi+0] = math.Pi / 2                              // mu_phi (sun azimuth frame)
				tgmm.Data[gi+1] = sunTheta * (0.6 + 0.1*float64(k))        // mu_theta
				tgmm.Data[gi+2] = spread * 2                               // sigma_phi
				tgmm.Data[gi+3] = spread                                   // sigma_theta
				tgmm.Data[gi+4] = []float64{0.3, 0.25, 0.2, 0.15, 0.1}[k]  // weight
				gi += TGMMGaussianParams
			}
		}
	}

	return &Datasets{Mode: mode, Radiance: rad, Params: par, TGMM: tgmm}
}
