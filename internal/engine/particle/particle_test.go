package particle

import (
	"errors"
	"image"
	"testing"

	"github.com/Faultbox/m2view/internal/engine/anim"
	"github.com/Faultbox/m2view/internal/engine/rng"
	"github.com/Faultbox/m2view/internal/engine/texture"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func testEmitter(typ m2.EmitterType) *m2.ParticleEmitter {
	return &m2.ParticleEmitter{
		EmitterType:        typ,
		Textures:           [3]int16{0, -1, -1},
		EmissionSpeed:      m2.StaticTrack[float32](2),
		Lifespan:           m2.StaticTrack[float32](10),
		EmissionAreaLength: m2.StaticTrack[float32](2),
		EmissionAreaWidth:  m2.StaticTrack[float32](4),
	}
}

func testState() *anim.State {
	model := &m2.Model{
		Sequences: []m2.Sequence{{ID: 0, Duration: 100000, Frequency: 0x7fff, VariationNext: -1}},
	}
	return anim.NewState(model, rng.New(1))
}

func newSim(t *testing.T, def *m2.ParticleEmitter, opts Options) *Simulator {
	t.Helper()
	s, err := NewSimulator(def, rng.New(42), opts)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return s
}

func TestUnknownEmitterType(t *testing.T) {
	for _, typ := range []m2.EmitterType{0, m2.EmitterSpline, 9} {
		def := testEmitter(typ)
		if _, err := NewGenerator(def, rng.New(1)); !errors.Is(err, ErrUnknownEmitterType) {
			t.Errorf("NewGenerator(type %d) error = %v, want ErrUnknownEmitterType", typ, err)
		}
		if _, err := NewSimulator(def, rng.New(1), DefaultOptions()); !errors.Is(err, ErrUnknownEmitterType) {
			t.Errorf("NewSimulator(type %d) error = %v, want ErrUnknownEmitterType", typ, err)
		}
	}
}

func TestGeneratedAgeWithinLifespan(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.LifespanVary = 0.5
	gen, err := NewGenerator(def, rng.New(9))
	if err != nil {
		t.Fatal(err)
	}
	params := &Params{Lifespan: 1, EmissionSpeed: 1}

	for i := 0; i < 2000; i++ {
		p := gen.Generate(params, 5)
		life := p.Lifespan(params.Lifespan, def.LifespanVary)
		if p.Age < 0 || p.Age > life+def.LifespanVary {
			t.Fatalf("particle %d: age %f outside [0, %f]", i, p.Age, life+def.LifespanVary)
		}
		if p.State < -maxState || p.State > maxState {
			t.Fatalf("particle %d: state %d out of range", i, p.State)
		}
	}
}

func TestPlaneGenerator(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	gen, _ := NewGenerator(def, rng.New(3))
	params := &Params{EmissionSpeed: 2, Lifespan: 1, AreaLength: 2, AreaWidth: 4}

	for i := 0; i < 500; i++ {
		p := gen.Generate(params, 0.1)
		if abs(p.Position.X) > 1 || abs(p.Position.Y) > 2 || p.Position.Z != 0 {
			t.Fatalf("position %v outside the 2x4 rectangle", p.Position)
		}
		if abs(p.Velocity.X) > 1e-5 || abs(p.Velocity.Y) > 1e-5 || abs(p.Velocity.Z-2) > 1e-5 {
			t.Fatalf("velocity %v, want (0,0,2) with no cone spread", p.Velocity)
		}
	}
}

func TestPlaneGeneratorZSource(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	gen, _ := NewGenerator(def, rng.New(3))
	params := &Params{EmissionSpeed: 1, Lifespan: 1, AreaLength: 2, AreaWidth: 2, ZSource: 3}

	for i := 0; i < 100; i++ {
		p := gen.Generate(params, 0.1)
		if p.Velocity.Z >= 0 {
			t.Fatalf("velocity %v should point away from the z source above", p.Velocity)
		}
		if l := p.Velocity.Length(); abs(l-1) > 1e-4 {
			t.Fatalf("speed = %f, want 1", l)
		}
	}
}

func TestSphereGenerator(t *testing.T) {
	def := testEmitter(m2.EmitterSphere)
	gen, _ := NewGenerator(def, rng.New(5))
	params := &Params{EmissionSpeed: 1, Lifespan: 1, AreaLength: 2, AreaWidth: 3, VerticalRange: 1.5, HorizontalRange: 3.1}

	for i := 0; i < 500; i++ {
		p := gen.Generate(params, 0.1)
		r := p.Position.Length()
		if r < 2-1e-4 || r > 3+1e-4 {
			t.Fatalf("radius %f outside [2,3]", r)
		}
		if p.Velocity.Dot(p.Position) < 0 {
			t.Fatalf("velocity %v points inward", p.Velocity)
		}
	}

	def.Flags = m2.ParticleGoUp
	p := gen.Generate(params, 0.1)
	if abs(p.Velocity.X) > 1e-6 || abs(p.Velocity.Y) > 1e-6 || p.Velocity.Z <= 0 {
		t.Errorf("go-up velocity = %v, want +Z", p.Velocity)
	}
}

func TestSphereInvertExit(t *testing.T) {
	def := testEmitter(m2.EmitterSphere)
	def.Flags = m2.ParticleSphereInvert
	s := newSim(t, def, DefaultOptions())
	s.particles = []Particle{
		{Position: math.Vec3{X: 1}, Velocity: math.Vec3{X: 1}},
		{Position: math.Vec3{X: 1}, Velocity: math.Vec3{X: -1}},
	}

	s.Update(10, testState(), math.Identity())
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if s.Particles()[0].Velocity.X >= 0 {
		t.Errorf("survivor velocity = %v, want inward", s.Particles()[0].Velocity)
	}
}

func TestRetireWhenAgeExceedsLifespan(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Lifespan = m2.StaticTrack[float32](1)
	s := newSim(t, def, DefaultOptions())
	s.particles = []Particle{{Age: 0.95}}
	state := testState()

	s.Update(40, state, math.Identity())
	if s.Len() != 1 {
		t.Fatalf("Len() = %d after 40ms, want 1", s.Len())
	}
	s.Update(20, state, math.Identity())
	if s.Len() != 0 {
		t.Errorf("particle still alive at age %f", s.particles[0].Age)
	}
}

func TestEmissionAccumulator(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.EmissionRate = m2.StaticTrack[float32](10)
	s := newSim(t, def, DefaultOptions())

	s.Update(1000, testState(), math.Identity())
	if n := s.Len(); n < 8 || n > 10 {
		t.Errorf("Len() after 1s at 10/s = %d, want about 9", n)
	}
}

func TestDisabledEmitterKeepsSimulating(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.EmissionRate = m2.StaticTrack[float32](100)
	def.Enabled = m2.StaticTrack[float32](0)
	s := newSim(t, def, DefaultOptions())
	s.particles = []Particle{{Velocity: math.Vec3{X: 1}}}

	s.Update(500, testState(), math.Identity())
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want only the existing particle", s.Len())
	}
	if abs(s.particles[0].Age-0.5) > 1e-4 {
		t.Errorf("Age = %f, want 0.5", s.particles[0].Age)
	}
	if s.Params().Enabled {
		t.Error("Params().Enabled = true")
	}
}

func TestGravityAcrossSubSteps(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Gravity = m2.StaticTrack[float32](10)
	s := newSim(t, def, DefaultOptions())
	s.particles = []Particle{{}}

	s.Update(350, testState(), math.Identity())
	if got := s.particles[0].Velocity.Z; abs(got+3.5) > 1e-4 {
		t.Errorf("velocity Z = %f, want -3.5", got)
	}
}

func TestDrag(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Drag = 1
	s := newSim(t, def, DefaultOptions())
	s.particles = []Particle{{Velocity: math.Vec3{X: 10}}}

	s.Update(100, testState(), math.Identity())
	if got := s.particles[0].Velocity.X; abs(got-9) > 1e-4 {
		t.Errorf("velocity X = %f, want 9", got)
	}
}

func TestFollowScale(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.FollowSpeed1, def.FollowScale1 = 0, 0
	def.FollowSpeed2, def.FollowScale2 = 10, 1
	s := newSim(t, def, DefaultOptions())

	tests := []struct{ speed, want float32 }{{-1, 0}, {0, 0}, {5, 0.5}, {10, 1}, {20, 1}}
	for _, tt := range tests {
		if got := s.followScale(tt.speed); abs(got-tt.want) > 1e-5 {
			t.Errorf("followScale(%v) = %f, want %f", tt.speed, got, tt.want)
		}
	}
}

func TestDeterministic(t *testing.T) {
	run := func() []Particle {
		def := testEmitter(m2.EmitterSphere)
		def.EmissionRate = m2.StaticTrack[float32](50)
		s, _ := NewSimulator(def, rng.New(77), DefaultOptions())
		state := testState()
		for i := 0; i < 10; i++ {
			s.Update(33, state, math.Identity())
		}
		return append([]Particle(nil), s.Particles()...)
	}

	a, b := run(), run()
	if len(a) != len(b) || len(a) == 0 {
		t.Fatalf("population %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("particle %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBuildVertices(t *testing.T) {
	tests := []struct {
		name     string
		mode     m2.HeadOrTail
		maxQuads int
		want     int
	}{
		{"head", m2.DrawHead, 1000, 3},
		{"tail", m2.DrawTail, 1000, 3},
		{"both", m2.DrawBoth, 1000, 6},
		{"capped", m2.DrawBoth, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testEmitter(m2.EmitterPlane)
			def.HeadOrTail = tt.mode
			def.TailLength = 1
			s := newSim(t, def, Options{MaxQuads: tt.maxQuads})
			s.particles = []Particle{
				{Velocity: math.Vec3{Z: 1}, ScaleJitter: math.Vec2{X: 1, Y: 1}},
				{Position: math.Vec3{X: 2}, ScaleJitter: math.Vec2{X: 1, Y: 1}},
				{Position: math.Vec3{Y: 2}, ScaleJitter: math.Vec2{X: 1, Y: 1}},
			}
			s.refresh(testState())

			got := s.BuildVertices(math.Identity())
			if got != tt.want || s.QuadCount() != tt.want {
				t.Fatalf("BuildVertices() = %d, want %d", got, tt.want)
			}
			g := s.Geometry()
			if len(g.Vertices) != tt.want*verticesPerQuad*FloatsPerVertex {
				t.Errorf("len(Vertices) = %d", len(g.Vertices))
			}
			if len(g.Indices) != tt.want*indicesPerQuad {
				t.Errorf("len(Indices) = %d", len(g.Indices))
			}
			if g.StrideBytes() != VertexStride || VertexStride != 56 {
				t.Errorf("stride = %d bytes, want 56", g.StrideBytes())
			}
		})
	}
}

func TestHeadQuadFacesCamera(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Scale = m2.LocalTrack[math.Vec2]{Times: []float32{0}, Values: []math.Vec2{{X: 0.5, Y: 0.5}}}
	s := newSim(t, def, DefaultOptions())
	s.particles = []Particle{{Position: math.Vec3{X: 1, Y: 1, Z: 1}, ScaleJitter: math.Vec2{X: 1, Y: 1}}}
	s.refresh(testState())
	s.BuildVertices(math.Identity())

	v := s.Geometry().Vertices
	corner := func(i int) math.Vec3 {
		o := i * FloatsPerVertex
		return math.Vec3{X: v[o], Y: v[o+1], Z: v[o+2]}
	}
	if got := corner(0); got != (math.Vec3{X: 0.5, Y: 1.5, Z: 1}) {
		t.Errorf("top-left corner = %v", got)
	}
	if got := corner(2); got != (math.Vec3{X: 1.5, Y: 0.5, Z: 1}) {
		t.Errorf("bottom-right corner = %v", got)
	}
	// color defaults to white, alpha to 1
	for i := 3; i < 7; i++ {
		if abs(v[i]-1) > 1e-5 {
			t.Errorf("color/alpha = %v", v[3:7])
			break
		}
	}
}

func TestColorOverride(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Lifespan = m2.StaticTrack[float32](1)
	s := newSim(t, def, DefaultOptions())
	s.particles = []Particle{{Age: 0.25, ScaleJitter: math.Vec2{X: 1, Y: 1}}}
	s.refresh(testState())

	s.SetColorOverride(&anim.Gradient{{X: 1}, {Y: 1}, {Z: 1}})
	s.BuildVertices(math.Identity())
	v := s.Geometry().Vertices
	if abs(v[3]-0.5) > 1e-5 || abs(v[4]-0.5) > 1e-5 || v[5] != 0 {
		t.Errorf("overridden color = %v, want (0.5,0.5,0)", v[3:6])
	}

	s.SetColorOverride(nil)
	s.BuildVertices(math.Identity())
	if v := s.Geometry().Vertices; abs(v[3]-1) > 1e-5 {
		t.Errorf("color after clearing override = %v", v[3:6])
	}
}

func TestTwinkleGating(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.TwinklePercent = 0.5
	def.TwinkleSpeed = 1
	s := newSim(t, def, DefaultOptions())
	for i := 0; i < 128; i++ {
		s.particles = append(s.particles, Particle{Seed: uint16(i), ScaleJitter: math.Vec2{X: 1, Y: 1}})
	}
	s.refresh(testState())

	want := 0
	for i := 0; i < 128; i++ {
		if s.rng.Twinkle(i) <= 0.5 {
			want++
		}
	}
	if got := s.BuildVertices(math.Identity()); got != want {
		t.Errorf("visible quads = %d, want %d", got, want)
	}
}

func TestCellUV(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.TextureRows, def.TextureCols = 2, 4
	s := newSim(t, def, DefaultOptions())

	uv := s.cellUV(5) // row 1, column 1
	if uv[0] != (math.Vec2{X: 0.25, Y: 0.5}) || uv[2] != (math.Vec2{X: 0.5, Y: 1}) {
		t.Errorf("cellUV(5) = %v", uv)
	}
	if s.cellUV(13) != uv {
		t.Error("cell index should wrap around the grid")
	}

	def.TextureTileRotation = 1
	if got := s.cellUV(5); got[0] != uv[1] {
		t.Errorf("rotated cellUV(5)[0] = %v, want %v", got[0], uv[1])
	}
}

func TestMoveWithEmitter(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Flags = m2.ParticleMoveWithEmitter
	def.EmissionRate = m2.StaticTrack[float32](20)
	s := newSim(t, def, DefaultOptions())
	state := testState()

	s.Update(500, state, math.Translate(100, 0, 0))
	if s.Len() == 0 {
		t.Fatal("no particles emitted")
	}
	for _, p := range s.Particles() {
		if p.Position.X > 50 {
			t.Fatalf("particle stored in model space: %v", p.Position)
		}
	}

	s.BuildVertices(math.Identity())
	if x := s.Geometry().Vertices[0]; x < 50 {
		t.Errorf("vertex X = %f, want it moved with the emitter", x)
	}
}

func TestClampToGround(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Flags = m2.ParticleClampToGround
	def.EmissionRate = m2.StaticTrack[float32](30)
	def.EmissionSpeed = m2.StaticTrack[float32](0)
	s := newSim(t, def, Options{GroundZ: -2})

	s.Update(200, testState(), math.Translate(0, 0, 7))
	if s.Len() == 0 {
		t.Fatal("no particles emitted")
	}
	for _, p := range s.Particles() {
		if p.Position.Z != -2 {
			t.Errorf("particle Z = %f, want ground -2", p.Position.Z)
		}
	}
}

func TestResolveTextures(t *testing.T) {
	def := testEmitter(m2.EmitterPlane)
	def.Flags = m2.ParticleMultiTexture
	def.Textures = [3]int16{0, 1, -1}
	s := newSim(t, def, DefaultOptions())

	ready := texture.NewReady("a.png", image.NewRGBA(image.Rect(0, 0, 1, 1)))
	failed := texture.NewFailed("b.png", errors.New("missing"))
	if !s.ResolveTextures(func(i int) *texture.Handle {
		if i == 0 {
			return ready
		}
		return failed
	}) {
		t.Fatal("ResolveTextures() = false with finished handles")
	}

	tex := s.Textures()
	if len(tex) != 3 || tex[0] != ready || tex[1] != failed || tex[2] != nil {
		t.Errorf("Textures() = %v", tex)
	}
}
