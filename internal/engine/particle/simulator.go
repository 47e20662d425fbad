package particle

import (
	"github.com/Faultbox/m2view/internal/engine/anim"
	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/internal/engine/rng"
	"github.com/Faultbox/m2view/internal/engine/texture"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// EmitterCorrection maps generator space onto the emitter's bone space.
var EmitterCorrection = math.Mat4{
	0, 0, 1, 0,
	0, 1, 0, 0,
	-1, 0, 0, 0,
	0, 0, 0, 1,
}

// Options bound the simulation.
type Options struct {
	MaxStep  float32 // longest integration sub-step, seconds
	MaxQuads int     // quads built per emitter per frame
	GroundZ  float32 // world height particles clamp to
}

// DefaultOptions returns 100 ms sub-steps and 1000 quads per emitter.
func DefaultOptions() Options {
	return Options{MaxStep: 0.1, MaxQuads: 1000}
}

func (o Options) normalized() Options {
	if o.MaxStep <= 0 {
		o.MaxStep = 0.1
	}
	if o.MaxQuads <= 0 {
		o.MaxQuads = 1000
	}
	// 16-bit indices address at most 65536 vertices.
	if o.MaxQuads > 65536/verticesPerQuad {
		o.MaxQuads = 65536 / verticesPerQuad
	}
	return o
}

// Simulator owns the particle population of one emitter.
type Simulator struct {
	def  *m2.ParticleEmitter
	gen  Generator
	rng  *rng.Source
	opts Options

	params    Params
	particles []Particle
	counter   float32

	emitter math.Mat4
	gravity math.Vec3 // in particle space
	follow  math.Vec3 // emitter motion inherited per second
	lastPos math.Vec3
	hasLast bool

	color    anim.LocalAnimatedValue[math.Vec3]
	alpha    anim.LocalAnimatedValue[float32]
	scale    anim.LocalAnimatedValue[math.Vec2]
	headCell anim.LocalAnimatedValue[float32]
	tailCell anim.LocalAnimatedValue[float32]
	override *anim.Gradient

	textures [3]*texture.Handle
	resolved bool

	geometry graphics.Geometry
	indices  []uint16
	quads    int
}

// NewSimulator creates a simulator for an emitter definition. Unknown
// emitter types are an error.
func NewSimulator(def *m2.ParticleEmitter, src *rng.Source, opts Options) (*Simulator, error) {
	gen, err := NewGenerator(def, src)
	if err != nil {
		return nil, err
	}
	opts = opts.normalized()

	s := &Simulator{
		def:      def,
		gen:      gen,
		rng:      src,
		opts:     opts,
		emitter:  math.Identity(),
		color:    anim.NewLocal(def.Color, math.Vec3{X: 255, Y: 255, Z: 255}, anim.LerpVec3),
		alpha:    anim.NewLocal(def.Alpha, 1, anim.LerpFloat),
		scale:    anim.NewLocal(def.Scale, math.Vec2{X: 1, Y: 1}, anim.LerpVec2),
		headCell: anim.NewLocalStep(def.HeadCell, 0),
		tailCell: anim.NewLocalStep(def.TailCell, 0),
		indices:  quadIndices(opts.MaxQuads),
		geometry: graphics.Geometry{
			Stride:  FloatsPerVertex,
			Layout:  vertexLayout,
			Dynamic: true,
		},
	}
	return s, nil
}

// Definition returns the emitter definition.
func (s *Simulator) Definition() *m2.ParticleEmitter {
	return s.def
}

// Particles returns the live particles. The slice is owned by the simulator.
func (s *Simulator) Particles() []Particle {
	return s.particles
}

// Len returns the number of live particles.
func (s *Simulator) Len() int {
	return len(s.particles)
}

// Params returns the animated values sampled by the last Update.
func (s *Simulator) Params() Params {
	return s.params
}

// EmitterMatrix returns the emitter's model-space matrix from the last Update.
func (s *Simulator) EmitterMatrix() math.Mat4 {
	return s.emitter
}

// SetColorOverride replaces the color curve with a three-stop gradient in
// 0..1 RGB. Nil restores the emitter's own curve.
func (s *Simulator) SetColorOverride(g *anim.Gradient) {
	s.override = g
}

// ResolveTextures binds the emitter's texture slots through lookup until
// every bound handle has finished loading. It reports whether textures are
// final; until then draws use whatever the handles currently show.
func (s *Simulator) ResolveTextures(lookup func(index int) *texture.Handle) bool {
	if s.resolved {
		return true
	}
	ready := true
	for i, idx := range s.def.Textures {
		if idx < 0 {
			s.textures[i] = nil
			continue
		}
		h := lookup(int(idx))
		s.textures[i] = h
		if h != nil && !h.Done() {
			ready = false
		}
	}
	s.resolved = ready
	return ready
}

// ResetTextures forces the next ResolveTextures to bind again, after the
// owner swapped a texture.
func (s *Simulator) ResetTextures() {
	s.resolved = false
}

// Textures returns the bound texture slots; the extra slots are only used
// by multi-texture emitters. Nil entries draw the placeholder.
func (s *Simulator) Textures() []*texture.Handle {
	if s.def.Flags&m2.ParticleMultiTexture != 0 {
		return s.textures[:]
	}
	return s.textures[:1]
}

// Update advances the simulation by dt milliseconds. bone is the model
// matrix of the bone the emitter is attached to, already resolved this tick.
func (s *Simulator) Update(dt float32, state *anim.State, bone math.Mat4) {
	s.refresh(state)

	s.emitter = bone.Mul(math.TranslateV(s.def.Position)).Mul(EmitterCorrection)
	s.gravity = math.Vec3{Z: -s.params.Gravity}
	if s.inEmitterSpace() {
		s.gravity = s.emitter.Inverse().TransformDirection(s.gravity)
	}

	seconds := dt / 1000
	pos := s.emitter.Translation()
	s.follow = math.Vec3{}
	if s.hasLast && seconds > 0 {
		delta := pos.Sub(s.lastPos)
		if s.def.Flags&m2.ParticleClampToGround != 0 {
			delta.Z = 0
		}
		speed := delta.Length() / seconds
		s.follow = delta.Scale(s.followScale(speed) / seconds)
	}
	s.lastPos, s.hasLast = pos, true

	for seconds > 0 {
		step := min(seconds, s.opts.MaxStep)
		s.step(step)
		seconds -= step
	}
}

// refresh samples the animated emitter tracks. An emitter without an
// enabled track is always enabled.
func (s *Simulator) refresh(state *anim.State) {
	d := s.def
	s.params = Params{
		EmissionSpeed:   state.Float(&d.EmissionSpeed, 0),
		SpeedVariation:  state.Float(&d.SpeedVariation, 0),
		VerticalRange:   state.Float(&d.VerticalRange, 0),
		HorizontalRange: state.Float(&d.HorizontalRange, 0),
		Gravity:         state.Float(&d.Gravity, 0),
		Lifespan:        state.Float(&d.Lifespan, 1),
		EmissionRate:    state.Float(&d.EmissionRate, 0),
		AreaLength:      state.Float(&d.EmissionAreaLength, 0),
		AreaWidth:       state.Float(&d.EmissionAreaWidth, 0),
		ZSource:         state.Float(&d.ZSource, 0),
		Enabled:         state.Float(&d.Enabled, 1) != 0,
	}
}

// followScale maps emitter speed onto the follow curve.
func (s *Simulator) followScale(speed float32) float32 {
	d := s.def
	if d.FollowSpeed2 <= d.FollowSpeed1 {
		if speed <= d.FollowSpeed1 {
			return d.FollowScale1
		}
		return d.FollowScale2
	}
	t := math.Clamp01((speed - d.FollowSpeed1) / (d.FollowSpeed2 - d.FollowSpeed1))
	return math.Lerp(d.FollowScale1, d.FollowScale2, t)
}

func (s *Simulator) inEmitterSpace() bool {
	return s.def.Flags&m2.ParticleMoveWithEmitter != 0
}

// step integrates one sub-step of dt seconds: emission, forces, motion
// and retirement.
func (s *Simulator) step(dt float32) {
	if s.params.Enabled {
		s.emit(dt)
	}

	d := s.def
	local := s.inEmitterSpace()
	live := s.particles[:0]
	for i := range s.particles {
		p := s.particles[i]
		p.Age += dt

		accel := s.gravity
		if p.Age < d.WindTime {
			accel = accel.Add(d.WindVector)
		}
		p.Velocity = p.Velocity.Add(accel.Scale(dt))
		if d.Drag > 0 {
			p.Velocity = p.Velocity.Scale(max(0, 1-d.Drag*dt))
		}
		p.Position = p.Position.Add(p.Velocity.Scale(dt))
		if !local {
			p.Position = p.Position.Add(s.follow.Scale(dt))
		}

		p.Rotation += p.Spin * dt
		for k := range p.TexPos {
			p.TexPos[k] = wrapUV(p.TexPos[k].Add(p.TexVel[k].Scale(dt)))
		}

		if p.Age > p.Lifespan(s.params.Lifespan, d.LifespanVary) || s.gen.Exits(&p) {
			continue
		}
		live = append(live, p)
	}
	s.particles = live
}

// emit accumulates fractional emission and spawns whole particles.
// Without the don't-throttle flag the population is capped at the quad
// budget.
func (s *Simulator) emit(dt float32) {
	rate := s.params.EmissionRate
	if s.def.RateVary != 0 {
		rate = max(0, rate+s.def.RateVary*s.rng.Signed())
	}
	s.counter += dt * rate

	throttle := s.def.Flags&m2.ParticleDontThrottle == 0
	for s.counter > 1 {
		s.counter--
		if throttle && len(s.particles) >= s.opts.MaxQuads {
			continue
		}

		p := s.gen.Generate(&s.params, dt)
		if s.def.BurstMultiplier > 0 {
			p.Velocity = p.Velocity.Scale(s.def.BurstMultiplier)
		}
		if !s.inEmitterSpace() {
			p.Position = s.emitter.TransformVec3(p.Position)
			p.Velocity = s.emitter.TransformDirection(p.Velocity)
			p.Origin = s.emitter.Translation()
			if s.def.Flags&m2.ParticleClampToGround != 0 {
				p.Position.Z = s.opts.GroundZ
			}
		}
		s.particles = append(s.particles, p)
	}
}

func wrapUV(v math.Vec2) math.Vec2 {
	return math.Vec2{X: v.X - float32(int(v.X)), Y: v.Y - float32(int(v.Y))}
}
