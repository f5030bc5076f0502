package cmd

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nmsim/phospec/internal/config"
	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/geometry/camera"
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/physics"
	"github.com/nmsim/phospec/internal/rng"
	"github.com/nmsim/phospec/internal/source"
	"github.com/nmsim/phospec/internal/transport"
	"github.com/nmsim/phospec/internal/units"
)

var (
	bundlePath     string
	elementsPath   string
	outputPrefix   string
	views          int
	camerasPerView int
	radiusMM       float64
	angularRange   float64
	startTimeNS    float64
	stopTimeNS     float64
	poolSize       int
	particlesBatch int
	seed           int64
	logLevel       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a SPECT acquisition simulation from a run bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulation(cmd)
	},
}

func init() {
	runCmd.Flags().StringVar(&bundlePath, "config", "", "path to the run bundle YAML (required)")
	runCmd.Flags().StringVar(&elementsPath, "elements", "", "path to the element attenuation table YAML (required)")
	runCmd.Flags().StringVar(&outputPrefix, "output", "run", "filename prefix for per-head interaction-record CSV output")
	runCmd.Flags().IntVar(&views, "views", 0, "number of views (overrides the bundle)")
	runCmd.Flags().IntVar(&camerasPerView, "cameras-per-view", 0, "gamma cameras per view (overrides the bundle)")
	runCmd.Flags().Float64Var(&radiusMM, "radius", 0, "detector ring radius in mm (overrides the bundle)")
	runCmd.Flags().Float64Var(&angularRange, "angular-range", 0, "angular sweep in degrees (overrides the bundle)")
	runCmd.Flags().Float64Var(&startTimeNS, "start", 0, "start time in ns (overrides the bundle)")
	runCmd.Flags().Float64Var(&stopTimeNS, "stop", 0, "stop time in ns (overrides the bundle)")
	runCmd.Flags().IntVar(&poolSize, "pool-size", 0, "concurrent simulation workers (overrides the bundle)")
	runCmd.Flags().IntVar(&particlesBatch, "particles-per-batch", 0, "photons tracked per batch (overrides the bundle)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "master RNG seed (overrides the bundle)")
	runCmd.Flags().StringVar(&logLevel, "log", "", "log level: debug, info, warn, error (overrides the bundle)")

	_ = runCmd.MarkFlagRequired("config")
	_ = runCmd.MarkFlagRequired("elements")
}

func runSimulation(cmd *cobra.Command) error {
	bundle, err := config.Load(bundlePath)
	if err != nil {
		return fmt.Errorf("cmd: %w", err)
	}
	applyOverrides(cmd, bundle)

	if err := bundle.Validate(); err != nil {
		return fmt.Errorf("cmd: %w", err)
	}

	level, err := logrus.ParseLevel(orDefault(bundle.Run.LogLevel, "info"))
	if err != nil {
		return fmt.Errorf("cmd: invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	elements, err := config.LoadElementTables(elementsPath)
	if err != nil {
		return fmt.Errorf("cmd: %w", err)
	}

	mdb, err := config.BuildMaterialDatabase(bundle)
	if err != nil {
		return fmt.Errorf("cmd: %w", err)
	}
	adb := materials.NewAttenuationDatabase()
	if err := adb.BuildAll(mdb, elements); err != nil {
		return fmt.Errorf("cmd: %w", err)
	}

	baseScene, headNodes, err := buildScene(bundle, mdb)
	if err != nil {
		return fmt.Errorf("cmd: %w", err)
	}

	activity, err := config.ResolveActivity(bundle)
	if err != nil {
		return fmt.Errorf("cmd: %w", err)
	}

	headFiles, headSinks, err := openHeadSinks(outputPrefix, len(headNodes))
	if err != nil {
		return fmt.Errorf("cmd: %w", err)
	}
	defer func() {
		for _, f := range headFiles {
			_ = f.Close()
		}
	}()

	processes := []physics.Process{
		physics.NewPhotoelectric(adb),
		physics.NewCoherent(adb),
		physics.NewCompton(adb),
	}
	seeds := rng.NewSeedSequence(bundle.Run.Seed)
	angles := config.ViewAngles(bundle)

	// mgr is assigned after build, but build's closure only calls
	// mgr.Locks once a worker actually runs — by then NewManager below
	// has already set it.
	var mgr *transport.Manager
	build := func(item transport.WorkItem, gen *rng.Generator, idAlloc *particle.IDAllocator) (*transport.SimulationManager, error) {
		scene := baseScene
		prop := transport.NewPropagator(mdb, processes...)
		src, err := source.New(config.BuildVoxelDistribution(bundle, activity),
			config.BuildIsotope(bundle), bundle.Source.InitialActivityBq, units.Identity(), gen)
		if err != nil {
			return nil, err
		}
		sinks := make([]transport.Sink, len(headNodes))
		for i, head := range headNodes {
			volume := transport.SensitiveVolume{Node: head, Scene: scene}
			lock := mgr.Locks.Lock(fmt.Sprintf("head-%d", i))
			sinks[i] = lockedSink{mu: lock, next: sensitiveSink{volume: volume, next: headSinks[i]}}
		}
		sink := multiSink(sinks)
		return transport.NewSimulationManager(src, scene, prop, sink, bundle.Run.ParticlesPerBatch,
			bundle.Run.StopTimeNS, bundle.Run.MinEnergyMeV, gen, idAlloc), nil
	}

	mgr = transport.NewManager(seeds, build)

	items := make([]transport.WorkItem, 0, len(angles)*bundle.Run.CamerasPerView)
	for vi := range angles {
		for ci := 0; ci < bundle.Run.CamerasPerView; ci++ {
			items = append(items, transport.WorkItem{ViewID: fmt.Sprintf("view-%d-camera-%d", vi, ci), TimeSlice: 0})
		}
	}

	logrus.Infof("starting simulation: %d views, %d cameras/view, pool size %d, %d particles/batch",
		bundle.Run.Views, bundle.Run.CamerasPerView, bundle.Run.PoolSize, bundle.Run.ParticlesPerBatch)

	if err := mgr.Run(context.Background(), items); err != nil {
		return fmt.Errorf("cmd: %w", err)
	}
	logrus.Info("simulation complete")
	return nil
}

// applyOverrides copies any explicitly-set CLI flag onto bundle, leaving
// bundle's own value in place for flags the user left at their zero
// default — Cobra can't distinguish "flag omitted" from "flag set to the
// zero value" any other way.
func applyOverrides(cmd *cobra.Command, bundle *config.Bundle) {
	flags := cmd.Flags()
	if flags.Changed("views") {
		bundle.Run.Views = views
	}
	if flags.Changed("cameras-per-view") {
		bundle.Run.CamerasPerView = camerasPerView
	}
	if flags.Changed("radius") {
		bundle.Run.RadiusMM = radiusMM
	}
	if flags.Changed("angular-range") {
		bundle.Run.AngularRangeDegrees = angularRange
	}
	if flags.Changed("start") {
		bundle.Run.StartTimeNS = startTimeNS
	}
	if flags.Changed("stop") {
		bundle.Run.StopTimeNS = stopTimeNS
	}
	if flags.Changed("pool-size") {
		bundle.Run.PoolSize = poolSize
	}
	if flags.Changed("particles-per-batch") {
		bundle.Run.ParticlesPerBatch = particlesBatch
	}
	if flags.Changed("seed") {
		bundle.Run.Seed = seed
	}
	if flags.Changed("log") {
		bundle.Run.LogLevel = logLevel
	}
}

// buildScene attaches one gamma-camera head per view angle around a ring
// of bundle.Run.RadiusMM, each rotated to face the ring's center.
func buildScene(bundle *config.Bundle, mdb *materials.MaterialDatabase) (*geometry.Scene, []geometry.NodeID, error) {
	scene := geometry.NewScene()
	angles := config.ViewAngles(bundle)

	var heads []geometry.NodeID
	for vi, angle := range angles {
		spec, err := config.BuildCameraSpec(bundle, mdb, fmt.Sprintf("head-%d", vi))
		if err != nil {
			return nil, nil, err
		}
		placement := ringPlacement(bundle.Run.RadiusMM, angle)
		_, scintillator := camera.Build(scene, geometry.RootID, placement, spec)
		heads = append(heads, scintillator)
	}
	return scene, heads, nil
}

// ringPlacement positions a camera head at angle around the z-axis at the
// given radius, rotated so its detector face points back toward the
// origin.
func ringPlacement(radius, angle float64) units.AffineMatrix {
	pos := units.Vec3{radius * math.Cos(angle), radius * math.Sin(angle), 0}
	// The head's front (collimator) face is its local +z; turn that onto
	// -x, then about z by angle, so it faces (-cos angle, -sin angle, 0).
	rot := mgl64.Rotate3DZ(angle).Mul3(mgl64.Rotate3DY(-math.Pi / 2))
	return units.RotationTranslation(rot, pos)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// multiSink fans every interaction batch out to all of a run's per-head
// sinks; each sensitiveSink inside narrows it back down to the photons
// that actually struck that head.
type multiSink []transport.Sink

func (m multiSink) RecordBatch(batch *particle.InteractionBatch) error {
	for _, s := range m {
		if err := s.RecordBatch(batch); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) EndOfStream() error {
	for _, s := range m {
		if err := s.EndOfStream(); err != nil {
			return err
		}
	}
	return nil
}
