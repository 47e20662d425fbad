// Package particle simulates particle emitters: stochastic spawning,
// force integration with fixed sub-steps, retirement and camera-facing
// quad generation.
package particle

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/m2view/internal/engine/rng"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// ErrUnknownEmitterType is returned for emitter types without a generator.
var ErrUnknownEmitterType = errors.New("unknown particle emitter type")

const maxState = 32767

// Params are the emitter's animated values for the current tick.
type Params struct {
	EmissionSpeed   float32
	SpeedVariation  float32
	VerticalRange   float32
	HorizontalRange float32
	Gravity         float32
	Lifespan        float32
	EmissionRate    float32
	AreaLength      float32
	AreaWidth       float32
	ZSource         float32
	Enabled         bool
}

// Particle is one live particle. Seed and State are drawn at birth and
// re-derive the twinkle phase and the lifespan every tick.
type Particle struct {
	Position math.Vec3
	Velocity math.Vec3
	Origin   math.Vec3 // emission center, for the sphere exit test
	Age      float32   // seconds

	Seed  uint16
	State int16

	Rotation     float32 // radians
	Spin         float32 // radians per second
	ScaleJitter  math.Vec2
	TwinkleScale float32
	CellOffset   int

	// Extra texture slots 1 and 2: UV offset and its scroll velocity.
	TexPos [2]math.Vec2
	TexVel [2]math.Vec2
}

// Lifespan returns the particle's seeded lifespan for a base lifespan and
// its variation. It is never negative.
func (p *Particle) Lifespan(base, vary float32) float32 {
	l := base + vary*float32(p.State)/maxState
	if l < 0 {
		return 0
	}
	return l
}

// Generator spawns single particles in emitter space. The set of
// generators is closed: only PlaneGenerator and SphereGenerator exist.
type Generator interface {
	Generate(p *Params, step float32) Particle
	// Exits reports whether a particle should die before its lifespan.
	Exits(p *Particle) bool
	sealed()
}

// NewGenerator returns the generator for an emitter definition.
func NewGenerator(def *m2.ParticleEmitter, src *rng.Source) (Generator, error) {
	switch def.EmitterType {
	case m2.EmitterPlane:
		return &PlaneGenerator{def: def, rng: src}, nil
	case m2.EmitterSphere:
		return &SphereGenerator{def: def, rng: src}, nil
	default:
		return nil, fmt.Errorf("%w: %d (emitter %d)", ErrUnknownEmitterType, def.EmitterType, def.ID)
	}
}

// spawn draws the parts common to every generator: seed, state, age and
// the per-particle variations.
func spawn(def *m2.ParticleEmitter, src *rng.Source, p *Params, step float32) Particle {
	state := gomath.Round(float64(maxState * src.Normalish()))
	state = gomath.Max(-maxState, gomath.Min(maxState, state))

	part := Particle{
		Seed:  src.Uint16(),
		State: int16(state),
	}

	if life := part.Lifespan(p.Lifespan, def.LifespanVary); life > 0 {
		part.Age = float32(gomath.Mod(float64(step*src.Float()), float64(life)))
	}

	part.Rotation = def.BaseSpin + def.BaseSpinVary*src.Signed()
	part.Spin = def.Spin + def.SpinVary*src.Signed()
	part.ScaleJitter = math.Vec2{
		X: 1 + def.ScaleVary.X*src.Signed(),
		Y: 1 + def.ScaleVary.Y*src.Signed(),
	}
	part.TwinkleScale = math.Lerp(def.TwinkleScale[0], def.TwinkleScale[1], src.Float())
	if def.Flags&m2.ParticleRandomCell != 0 {
		part.CellOffset = src.Intn(int(def.TextureRows) * int(def.TextureCols))
	}
	if def.Flags&m2.ParticleMultiTexture != 0 {
		for i := range part.TexPos {
			part.TexPos[i] = math.Vec2{X: src.Float(), Y: src.Float()}
			part.TexVel[i] = math.Vec2{
				X: def.MultiTextureSpeed[i].X + def.MultiTextureVary[i].X*src.Signed(),
				Y: def.MultiTextureSpeed[i].Y + def.MultiTextureVary[i].Y*src.Signed(),
			}
		}
	}
	return part
}

// speed returns the emission speed with its random variation.
func speed(src *rng.Source, p *Params) float32 {
	return p.EmissionSpeed * (1 + p.SpeedVariation*src.Signed())
}

// PlaneGenerator emits from a rectangle in the emitter's XY plane.
type PlaneGenerator struct {
	def *m2.ParticleEmitter
	rng *rng.Source
}

func (*PlaneGenerator) sealed() {}

// Generate spawns a particle somewhere on the rectangle. Without a z
// source it flies inside a cone around +Z; with one it flies away from
// the point (0,0,ZSource).
func (g *PlaneGenerator) Generate(p *Params, step float32) Particle {
	part := spawn(g.def, g.rng, p, step)

	part.Position = math.Vec3{
		X: g.rng.Signed() * p.AreaLength * 0.5,
		Y: g.rng.Signed() * p.AreaWidth * 0.5,
	}

	var dir math.Vec3
	if p.ZSource != 0 {
		dir = part.Position.Sub(math.Vec3{Z: p.ZSource}).NormalizeOr(math.Vec3{Z: 1})
	} else {
		polar := g.rng.Signed() * p.VerticalRange
		azimuth := g.rng.Signed() * p.HorizontalRange
		dir = math.RotateZ(azimuth).Mul(math.RotateX(polar)).TransformDirection(math.Vec3{Z: 1})
	}
	part.Velocity = dir.Scale(speed(g.rng, p))
	return part
}

// Exits never kills plane particles early.
func (g *PlaneGenerator) Exits(*Particle) bool {
	return false
}

// SphereGenerator emits from a spherical shell between AreaLength and
// AreaWidth.
type SphereGenerator struct {
	def *m2.ParticleEmitter
	rng *rng.Source
}

func (*SphereGenerator) sealed() {}

// Generate spawns a particle on the shell moving outward, inward when the
// sphere-invert flag is set, or straight up with the go-up flag.
func (g *SphereGenerator) Generate(p *Params, step float32) Particle {
	part := spawn(g.def, g.rng, p, step)

	radius := math.Lerp(p.AreaLength, p.AreaWidth, g.rng.Float())
	polar := float64(g.rng.Signed() * p.VerticalRange)
	azimuth := float64(g.rng.Signed() * p.HorizontalRange)
	dir := math.Vec3{
		X: float32(gomath.Cos(polar) * gomath.Cos(azimuth)),
		Y: float32(gomath.Cos(polar) * gomath.Sin(azimuth)),
		Z: float32(gomath.Sin(polar)),
	}
	part.Position = dir.Scale(radius)

	switch {
	case g.def.Flags&m2.ParticleGoUp != 0:
		dir = math.Vec3{Z: 1}
	case g.def.Flags&m2.ParticleSphereInvert != 0:
		dir = dir.Neg()
	}
	part.Velocity = dir.Scale(speed(g.rng, p))
	return part
}

// Exits kills inverted sphere particles once they move away from the
// emission center.
func (g *SphereGenerator) Exits(p *Particle) bool {
	if g.def.Flags&m2.ParticleSphereInvert == 0 {
		return false
	}
	return p.Position.Sub(p.Origin).Dot(p.Velocity) > 0
}
