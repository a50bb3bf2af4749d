// skyprobe builds a sun/sky emitter from a YAML description and validates
// its sampling distributions: the hemisphere integral of the direction PDF,
// a Monte-Carlo solid-angle estimate, and the sky/sun balance weight. It can
// also dump the PDF as a PGM image for visual inspection.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/skyrender/sunsky/internal/log"
	"github.com/skyrender/sunsky/pkg/sunpos"
	"github.com/skyrender/sunsky/pkg/sunsky"
)

// ProbeConfig is the YAML emitter description.
type ProbeConfig struct {
	Mode           string      `yaml:"mode"`
	Turbidity      float64     `yaml:"turbidity"`
	Albedo         []float64   `yaml:"albedo,omitempty"`
	SunScale       *float64    `yaml:"sun_scale,omitempty"`
	SkyScale       *float64    `yaml:"sky_scale,omitempty"`
	SunApertureDeg float64     `yaml:"sun_aperture_deg,omitempty"`
	SunDirection   []float64   `yaml:"sun_direction,omitempty"`
	Location       *LocConfig  `yaml:"location,omitempty"`
	Time           *TimeConfig `yaml:"time,omitempty"`
}

// LocConfig holds the geographic position fields.
type LocConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  float64 `yaml:"timezone"`
}

// TimeConfig holds the civil date/time fields.
type TimeConfig struct {
	Year   int     `yaml:"year"`
	Month  int     `yaml:"month"`
	Day    int     `yaml:"day"`
	Hour   float64 `yaml:"hour"`
	Minute float64 `yaml:"minute"`
	Second float64 `yaml:"second"`
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML emitter description (empty uses defaults)")
		dataPath   = flag.String("data", "", "msgpack dataset file (empty uses the synthetic tables)")
		samples    = flag.Int("samples", 100000, "Monte-Carlo sample count")
		grid       = flag.Int("grid", 128, "quadrature order per axis for the PDF integral")
		pgmPath    = flag.String("pgm", "", "optional PGM output of the sampling density")
		seed       = flag.Int64("seed", 1, "RNG seed for the Monte-Carlo estimate")
		debug      = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if err := log.Init(*debug, ""); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	var ds *sunsky.Datasets
	if *dataPath != "" {
		if ds, err = sunsky.SharedDatasets(*dataPath); err != nil {
			log.Fatalf("loading datasets: %v", err)
		}
	} else {
		log.Info("no dataset file given, using synthetic tables")
		ds = sunsky.SyntheticDatasets(cfg.Mode)
	}

	emitter, err := sunsky.New(cfg, ds)
	if err != nil {
		log.Fatalf("building emitter: %v", err)
	}

	sun := emitter.SunDirection()
	fmt.Printf("Sun/Sky Emitter Probe\n")
	fmt.Printf("=====================\n\n")
	fmt.Printf("Sun direction:       (%.4f, %.4f, %.4f)\n", sun.X, sun.Y, sun.Z)
	fmt.Printf("Sun elevation:       %.2f deg\n", math.Asin(sun.Z)*180/math.Pi)
	fmt.Printf("Sky sampling weight: %.4f\n\n", emitter.SkySamplingWeight())

	integral := pdfIntegral(emitter, *grid)
	fmt.Printf("PDF hemisphere integral (order %d): %.5f (want 1)\n", *grid, integral)

	estimate := monteCarloSolidAngle(emitter, *samples, *seed)
	fmt.Printf("MC solid-angle estimate (%d samples): %.5f (want %.5f)\n",
		*samples, estimate, 2*math.Pi)

	if cfg.Mode == sunsky.ModeSpectral {
		wl, w, err := emitter.SampleWavelength(0.5)
		if err != nil {
			log.Fatalf("sampling wavelength: %v", err)
		}
		fmt.Printf("Median wavelength:   %.1f nm (weight %.4f)\n", wl, w)
	}

	if *pgmPath != "" {
		if err := writePGM(emitter, *pgmPath, 512, 128); err != nil {
			log.Fatalf("writing PGM: %v", err)
		}
		fmt.Printf("Wrote density map to %s\n", *pgmPath)
	}
}

func loadConfig(path string) (sunsky.Config, error) {
	cfg := sunsky.DefaultConfig(sunsky.ModeRGB)
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var pc ProbeConfig
	if err := yaml.Unmarshal(raw, &pc); err != nil {
		return cfg, err
	}

	switch pc.Mode {
	case "", "rgb":
		cfg.Mode = sunsky.ModeRGB
	case "spectral":
		cfg.Mode = sunsky.ModeSpectral
	default:
		return cfg, fmt.Errorf("unknown mode %q", pc.Mode)
	}
	if pc.Turbidity != 0 {
		cfg.Turbidity = pc.Turbidity
	}
	cfg.Albedo = pc.Albedo
	if pc.SunScale != nil {
		cfg.SunScale = *pc.SunScale
	}
	if pc.SkyScale != nil {
		cfg.SkyScale = *pc.SkyScale
	}
	if pc.SunApertureDeg != 0 {
		cfg.HalfAperture = pc.SunApertureDeg / 2 * math.Pi / 180
	}
	if len(pc.SunDirection) == 3 {
		cfg.SunDirection = &r3.Vec{X: pc.SunDirection[0], Y: pc.SunDirection[1], Z: pc.SunDirection[2]}
	} else if len(pc.SunDirection) != 0 {
		return cfg, fmt.Errorf("sun_direction needs 3 components, got %d", len(pc.SunDirection))
	}
	if pc.Location != nil {
		cfg.Location = &sunpos.Location{
			Latitude:  pc.Location.Latitude,
			Longitude: pc.Location.Longitude,
			Timezone:  pc.Location.Timezone,
		}
	}
	if pc.Time != nil {
		cfg.Time = &sunpos.DateTime{
			Year: pc.Time.Year, Month: pc.Time.Month, Day: pc.Time.Day,
			Hour: pc.Time.Hour, Minute: pc.Time.Minute, Second: pc.Time.Second,
		}
	}
	return cfg, nil
}

// pdfIntegral evaluates the hemisphere integral of SkyPDF by Gauss-Legendre
// quadrature over (phi, cos theta).
func pdfIntegral(e *sunsky.Emitter, order int) float64 {
	nodes := make([]float64, order)
	weights := make([]float64, order)
	quad.Legendre{}.FixedLocations(nodes, weights, -1, 1)

	sum := 0.0
	for i, xi := range nodes {
		phi := math.Pi * (xi + 1)
		for j, xj := range nodes {
			cosTheta := 0.5 * (xj + 1)
			sinTheta := math.Sqrt(math.Max(1-cosTheta*cosTheta, 0))
			dir := r3.Vec{
				X: sinTheta * math.Cos(phi),
				Y: sinTheta * math.Sin(phi),
				Z: cosTheta,
			}
			sum += weights[i] * weights[j] * e.SkyPDF(dir)
		}
	}
	return sum * math.Pi / 2
}

// monteCarloSolidAngle estimates the hemisphere solid angle with sampler
// draws weighted by their inverse density.
func monteCarloSolidAngle(e *sunsky.Emitter, n int, seed int64) float64 {
	rng := rand.New(rand.NewSource(seed))
	sum := 0.0
	for i := 0; i < n; i++ {
		dir := e.SampleSky(rng.Float64(), rng.Float64())
		if pdf := e.SkyPDF(dir); pdf > 0 {
			sum += 1 / pdf
		}
	}
	return sum / float64(n)
}

// writePGM renders the sampling density into a lat-long grayscale map.
func writePGM(e *sunsky.Emitter, path string, width, height int) error {
	values := make([]float64, width*height)
	maxVal := 0.0
	for y := 0; y < height; y++ {
		theta := (float64(y) + 0.5) / float64(height) * math.Pi / 2
		for x := 0; x < width; x++ {
			phi := (float64(x) + 0.5) / float64(width) * 2 * math.Pi
			v := e.SkyPDF(sphDir(theta, phi))
			values[y*width+x] = v
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(f, "P2\n%d %d\n255\n", width, height)
	for i, v := range values {
		fmt.Fprintf(f, "%d", int(255*math.Sqrt(v/maxVal)))
		if (i+1)%width == 0 {
			fmt.Fprintln(f)
		} else {
			fmt.Fprint(f, " ")
		}
	}
	return nil
}

func sphDir(theta, phi float64) r3.Vec {
	sinTheta, cosTheta := math.Sincos(theta)
	sinPhi, cosPhi := math.Sincos(phi)
	return r3.Vec{X: sinTheta * cosPhi, Y: sinTheta * sinPhi, Z: cosTheta}
}
