package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/spatial/r3"

	"vaporrender/internal/models"
	"vaporrender/pkg/config"
	"vaporrender/pkg/gpu"
	"vaporrender/pkg/gpu/memgpu"
	"vaporrender/pkg/grid"
	"vaporrender/pkg/logging"
	"vaporrender/pkg/lut"
	"vaporrender/pkg/params"
	"vaporrender/pkg/preview"
	"vaporrender/pkg/render"
	"vaporrender/pkg/rendercache"
	"vaporrender/pkg/resample"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "vaporrender.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	backendName := flag.String("backend", "mem", "GPU backend: mem (headless) or gl (OpenGL 4.1 in a hidden window)")
	rendererName := flag.String("renderer", "slice", "Renderer to drive: slice, volume or both")
	frames := flag.Int("frames", 8, "Number of frames to paint")
	previewPath := flag.String("preview", "", "Write a PNG/JPEG preview of the slice cache (overrides output.previewPath)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if *previewPath != "" {
		cfg.Output.PreviewPath = *previewPath
	}
	setupLogging(cfg)

	source, err := newSource(cfg)
	if err != nil {
		log.Fatalf("Failed to build data source: %v", err)
	}

	backend, closeBackend, err := openBackend(*backendName)
	if err != nil {
		log.Fatalf("Failed to open %s backend: %v", *backendName, err)
	}
	defer closeBackend()

	deps := render.Deps{
		Backend: backend,
		Source:  source,
		Engine: resample.New(resample.Options{
			MaxTextureSize: cfg.Render.MaxTextureSize,
			MaxVolumeSize:  cfg.Render.MaxVolumeSize,
			Workers:        cfg.Render.Workers,
		}),
		Builder:          lut.NewBuilder(),
		DrawStaleOnError: cfg.Render.DrawStaleOnError,
	}

	live, err := buildParams(cfg, source, *rendererName)
	if err != nil {
		log.Fatalf("Invalid renderer selection: %v", err)
	}

	registry := render.NewRegistry()
	render.RegisterDefaults(registry)

	var renderers []render.Renderer
	for _, p := range live {
		r, err := registry.New(p, deps)
		if err != nil {
			log.Fatalf("Failed to create renderer: %v", err)
		}
		renderers = append(renderers, r)
	}

	fmt.Println("================================")
	fmt.Println("VAPORRENDER CACHED SLICE AND ISO-SURFACE DRAW PIPELINE")
	fmt.Println("================================")

	ctx := context.Background()
	lo, hi := source.Extents()
	startTime := time.Now()
	for f := 0; f < *frames; f++ {
		// advance time every other frame so both cache hits and misses occur
		ts := (f / 2) % cfg.Grid.Timesteps
		for _, p := range live {
			setTimestep(p, ts)
		}

		frame := orbitFrame(lo, hi, f, *frames)
		if c, ok := backend.(clearer); ok {
			c.Clear(0, 0, 0, 1)
		}
		for _, r := range renderers {
			if err := r.Paint(ctx, frame); err != nil {
				logging.Logger().Warn("paint failed", "renderer", r.ClassType(), "frame", f, "error", err)
			}
		}
	}
	elapsed := time.Since(startTime)

	fmt.Printf("\nPainted %d frames in %.3f seconds\n", *frames, elapsed.Seconds())
	for _, r := range renderers {
		s := r.Stats()
		c := r.Cache().Stats()
		fmt.Printf("- %s: draws=%d hits=%d misses=%d uploads=%d skipped=%d degraded=%d refreshes=%d failures=%d\n",
			r.ClassType(), s.Draws, s.Hits, s.Misses, s.Uploads, s.Skipped, s.Degraded, c.Refreshes, c.Failures)
	}

	if cfg.Output.PreviewPath != "" {
		if err := writePreview(renderers, cfg); err != nil {
			log.Printf("Warning: Failed to write preview: %v", err)
		} else {
			fmt.Printf("Preview saved to: %s\n", cfg.Output.PreviewPath)
		}
	}

	for _, r := range renderers {
		if err := r.Close(); err != nil {
			log.Printf("Warning: Failed to release %s resources: %v", r.ClassType(), err)
		}
	}
}

// clearer is implemented by backends drawing to a real framebuffer
type clearer interface {
	Clear(r, g, b, a float32)
}

func setupLogging(cfg *config.Config) {
	level, err := logging.ParseLevel(cfg.Output.LogLevel)
	if err != nil {
		log.Printf("Warning: %v, using info", err)
	}
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logging.SetLogger(logging.NewTextLogger(os.Stderr, level))
}

func newSource(cfg *config.Config) (*grid.MemorySource, error) {
	return grid.NewSyntheticSource(grid.SyntheticOptions{
		Dims:              cfg.Grid.Dims,
		Min:               toVec(cfg.Grid.ExtentsMin),
		Max:               toVec(cfg.Grid.ExtentsMax),
		Timesteps:         cfg.Grid.Timesteps,
		RefinementLevels:  cfg.Grid.RefinementLevels,
		CompressionLevels: cfg.Grid.CompressionLevels,
		MissingValue:      cfg.Grid.MissingValue,
		Variables:         cfg.Grid.Variables,
	})
}

func openBackend(name string) (gpu.Backend, func(), error) {
	switch name {
	case "mem":
		return memgpu.New(), func() {}, nil
	case "gl":
		return openGL()
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", name)
	}
}

// buildParams creates the live parameters of the selected renderers, with
// transfer function ranges taken from the data
func buildParams(cfg *config.Config, source *grid.MemorySource, which string) ([]rendercache.Params, error) {
	lo, hi := source.Extents()
	var out []rendercache.Params

	if which == "slice" || which == "both" {
		orientation, err := models.ParseOrientation(cfg.Slice.Orientation)
		if err != nil {
			return nil, err
		}
		p := params.NewSliceParams(cfg.Slice.Variable)
		p.SetExtents(lo, hi)
		p.SetSampleRate(cfg.Slice.SampleRate)
		p.SetOrientation(orientation)
		p.SetConstantOpacity(float32(cfg.Slice.Opacity))
		if err := setDataRange(p, source, cfg.Slice.Variable); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	if which == "volume" || which == "both" {
		p := params.NewVolumeIsoParams(cfg.Volume.Variable)
		p.SetExtents(lo, hi)
		p.SetSampleRate(cfg.Volume.SampleRate)
		p.SetConstantOpacity(float32(cfg.Volume.Opacity))
		p.SetIsoValues(cfg.Volume.IsoValues, cfg.Volume.IsoEnabled)
		if err := setDataRange(p, source, cfg.Volume.Variable); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("unknown renderer %q", which)
	}
	return out, nil
}

func setDataRange(p interface{ SetDefaultRange(lo, hi float64) }, source *grid.MemorySource, variable string) error {
	lo, hi, err := source.Range(variable, 0)
	if err != nil {
		return err
	}
	p.SetDefaultRange(lo, hi)
	return nil
}

func setTimestep(p rendercache.Params, ts int) {
	if s, ok := p.(interface{ SetTimestep(int) }); ok {
		s.SetTimestep(ts)
	}
}

// orbitFrame places the camera on a circle around the box centre
func orbitFrame(lo, hi r3.Vec, f, frames int) render.Frame {
	center := r3.Scale(0.5, r3.Add(lo, hi))
	radius := 1.5 * r3.Norm(r3.Sub(hi, lo))
	angle := 2 * math.Pi * float64(f) / float64(max(frames, 1))

	eye := mgl32.Vec3{
		float32(center.X + radius*math.Cos(angle)),
		float32(center.Y + radius*math.Sin(angle)),
		float32(center.Z + 0.5*radius),
	}
	target := mgl32.Vec3{float32(center.X), float32(center.Y), float32(center.Z)}

	projection := mgl32.Perspective(mgl32.DegToRad(45), 1, float32(0.01*radius), float32(4*radius))
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 0, 1})
	return render.Frame{MVP: projection.Mul4(view), CameraPos: eye}
}

func writePreview(renderers []render.Renderer, cfg *config.Config) error {
	for _, r := range renderers {
		cache := r.Cache()
		if r.ClassType() != render.SliceClass || !cache.Drawable() {
			continue
		}
		viewer, err := preview.NewViewer(cache.Field(), cache.LUT(), cache.Snapshot().ConstantOpacity)
		if err != nil {
			return err
		}
		img, err := viewer.ExtractSlice(0)
		if err != nil {
			return err
		}
		return preview.SaveSlice(preview.Scale(img, cfg.Output.PreviewSize), cfg.Output.PreviewPath)
	}
	return fmt.Errorf("no slice renderer holds data")
}

func toVec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
