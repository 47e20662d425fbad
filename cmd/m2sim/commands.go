package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Faultbox/m2view/internal/assets"
	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/internal/engine/model"
	"github.com/Faultbox/m2view/internal/engine/particle"
	"github.com/Faultbox/m2view/internal/engine/ribbon"
	"github.com/Faultbox/m2view/internal/engine/texture"
	"github.com/Faultbox/m2view/internal/logger"
	"github.com/Faultbox/m2view/pkg/m2"
)

// simFlags are shared by the simulating commands.
type simFlags struct {
	anim     int
	seed     uint64
	textures string
	verbose  bool
}

func (f *simFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.anim, "anim", 0, "Animation id")
	fs.Uint64Var(&f.seed, "seed", 1, "Random seed")
	fs.StringVar(&f.textures, "t", "", "Comma separated texture directories")
	fs.BoolVar(&f.verbose, "v", false, "Log to stderr at debug level")
}

// open loads the model and builds an instance playing the requested animation.
func (f *simFlags) open(path string) (*model.Model, error) {
	if f.verbose {
		if err := logger.Setup(logger.Options{Level: "debug", Console: true}); err != nil {
			return nil, err
		}
	}

	desc, err := m2.Load(path)
	if err != nil {
		return nil, err
	}

	opts := model.Options{Seed: f.seed, Particles: particle.DefaultOptions()}
	if f.textures != "" {
		search, err := assets.SearchPath(path, f.textures)
		if err != nil {
			return nil, err
		}
		opts.Textures = texture.NewLoader(search)
	}
	m, err := model.New(desc, opts)
	if err != nil {
		return nil, err
	}

	if f.anim < 0 || f.anim > 0xffff {
		return nil, fmt.Errorf("animation id %d out of range", f.anim)
	}
	if ok, _ := m.UseAnimation(uint16(f.anim)); !ok {
		logger.Sugar.Warnf("animation %d not found, playing 0", f.anim)
	}
	return m, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func cmdInfo(args []string, w io.Writer) error {
	fs := newFlagSet("info")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: m2sim info <model.yaml>")
		return errUsage
	}

	desc, err := m2.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Model:     %s\n", desc.Name)
	fmt.Fprintf(w, "Bones:     %d\n", len(desc.Bones))
	fmt.Fprintf(w, "Vertices:  %d\n", len(desc.Vertices))
	fmt.Fprintf(w, "Triangles: %d\n", len(desc.Indices)/3)
	fmt.Fprintf(w, "Units:     %d\n", len(desc.TextureUnits))
	fmt.Fprintf(w, "Textures:  %d\n", len(desc.Textures))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Sequences:")
	fmt.Fprintln(tw, "  #\tid\tvariation\tduration\tfrequency\tnext\tflags")
	for i, s := range desc.Sequences {
		fmt.Fprintf(tw, "  %d\t%d\t%d\t%dms\t%d\t%d\t%#x\n",
			i, s.ID, s.VariationIndex, s.Duration, s.Frequency, s.VariationNext, uint32(s.Flags))
	}
	tw.Flush()

	if len(desc.ParticleEmitters) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(tw, "Particle emitters:")
		fmt.Fprintln(tw, "  #\tid\ttype\tbone\tblend\tflags")
		for i, p := range desc.ParticleEmitters {
			fmt.Fprintf(tw, "  %d\t%d\t%s\t%d\t%d\t%#x\n", i, p.ID, emitterType(p.EmitterType), p.Bone, p.BlendMode, uint32(p.Flags))
		}
		tw.Flush()
	}

	if len(desc.RibbonEmitters) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(tw, "Ribbon emitters:")
		fmt.Fprintln(tw, "  #\tid\tbone\tedges/s\tlifetime\tcapacity")
		for i := range desc.RibbonEmitters {
			r := &desc.RibbonEmitters[i]
			fmt.Fprintf(tw, "  %d\t%d\t%d\t%g\t%gs\t%d\n", i, r.ID, r.Bone, r.EdgesPerSecond, r.EdgeLifetime, ribbon.Capacity(r))
		}
		tw.Flush()
	}
	return nil
}

func emitterType(t m2.EmitterType) string {
	switch t {
	case m2.EmitterPlane:
		return "plane"
	case m2.EmitterSphere:
		return "sphere"
	case m2.EmitterSpline:
		return "spline"
	}
	return fmt.Sprintf("unknown(%d)", t)
}

func cmdRun(args []string, w io.Writer) error {
	fs := newFlagSet("run")
	var sf simFlags
	sf.register(fs)
	ticks := fs.Int("ticks", 100, "Number of updates")
	dt := fs.Float64("dt", 16, "Milliseconds per update")
	every := fs.Int("every", 10, "Report every N ticks (0 = only the summary)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: m2sim run [options] <model.yaml>")
		return errUsage
	}
	if *ticks < 0 || *dt < 0 {
		return fmt.Errorf("ticks and dt must not be negative")
	}

	m, err := sf.open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer m.Dispose()

	stats, err := simulate(m, *ticks, float32(*dt), *every, w)
	if err != nil {
		return err
	}
	stats.print(w)
	return nil
}

// runStats summarizes a simulation.
type runStats struct {
	ticks        int
	elapsed      float32
	peakParticle int
	peakEdges    int
	batches      int
	indices      int
	last         map[graphics.Program]int
}

// simulate advances m tick by tick, drawing every frame into a recorder.
func simulate(m *model.Model, ticks int, dt float32, every int, w io.Writer) (runStats, error) {
	var rec graphics.Recorder
	stats := runStats{last: make(map[graphics.Program]int)}

	for i := 1; i <= ticks; i++ {
		m.Update(dt)
		if err := m.Draw(&rec); err != nil {
			return stats, err
		}
		if err := rec.Flush(); err != nil {
			return stats, err
		}

		particles, edges := 0, 0
		for _, p := range m.Particles() {
			particles += p.Len()
		}
		for _, r := range m.Ribbons() {
			edges += r.Len()
		}
		stats.peakParticle = max(stats.peakParticle, particles)
		stats.peakEdges = max(stats.peakEdges, edges)
		stats.batches += len(rec.Last)
		stats.ticks = i
		stats.elapsed += dt

		if every > 0 && i%every == 0 {
			fmt.Fprintf(w, "tick %5d  t=%8.0fms  seq=%d  particles=%d  edges=%d  batches=%d\n",
				i, stats.elapsed, m.State().Current(), particles, edges, len(rec.Last))
		}
	}

	stats.indices = rec.Indices
	for _, p := range []graphics.Program{graphics.ProgramMesh, graphics.ProgramParticle, graphics.ProgramRibbon} {
		stats.last[p] = rec.Count(p)
	}
	return stats, nil
}

func (s runStats) print(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Ticks:          %d (%.0fms)\n", s.ticks, s.elapsed)
	fmt.Fprintf(w, "Peak particles: %d\n", s.peakParticle)
	fmt.Fprintf(w, "Peak edges:     %d\n", s.peakEdges)
	fmt.Fprintf(w, "Batches:        %d\n", s.batches)
	fmt.Fprintf(w, "Indices:        %d\n", s.indices)
	fmt.Fprintf(w, "Last frame:     mesh=%d particle=%d ribbon=%d\n",
		s.last[graphics.ProgramMesh], s.last[graphics.ProgramParticle], s.last[graphics.ProgramRibbon])
}

func cmdBones(args []string, w io.Writer) error {
	fs := newFlagSet("bones")
	var sf simFlags
	sf.register(fs)
	at := fs.Float64("at", 0, "Time in milliseconds")
	step := fs.Float64("dt", 16, "Update step in milliseconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: m2sim bones [options] <model.yaml>")
		return errUsage
	}
	if *step <= 0 {
		return fmt.Errorf("dt must be positive")
	}

	m, err := sf.open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer m.Dispose()

	// Stepping matches what a viewer running at this frame rate would show.
	remaining := float32(*at)
	m.Update(0)
	for remaining > 0 {
		d := min(remaining, float32(*step))
		m.Update(d)
		remaining -= d
	}

	desc := m.Description()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tparent\tkey\tx\ty\tz")
	for i, p := range m.BonePositions() {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.4f\t%.4f\t%.4f\n",
			i, desc.Bones[i].Parent, desc.Bones[i].KeyBoneID, p.X, p.Y, p.Z)
	}
	return tw.Flush()
}
