package particle

import (
	gomath "math"

	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// Vertex layout: position(3) color(3) alpha(1) uv0(2) uv1(2) uv2(2) alphaCutoff(1).
const (
	FloatsPerVertex = 14
	VertexStride    = FloatsPerVertex * 4

	verticesPerQuad = 4
	indicesPerQuad  = 6
)

var vertexLayout = []graphics.Attribute{
	{Location: 0, Size: 3, Offset: 0},
	{Location: 1, Size: 3, Offset: 3},
	{Location: 2, Size: 1, Offset: 6},
	{Location: 3, Size: 2, Offset: 7},
	{Location: 4, Size: 2, Offset: 9},
	{Location: 5, Size: 2, Offset: 11},
	{Location: 6, Size: 1, Offset: 13},
}

// Corner order of every quad: top-left, top-right, bottom-right, bottom-left.
var quadUV = [4]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

func quadIndices(quads int) []uint16 {
	idx := make([]uint16, 0, quads*indicesPerQuad)
	for q := 0; q < quads; q++ {
		b := uint16(q * verticesPerQuad)
		idx = append(idx, b, b+1, b+2, b, b+2, b+3)
	}
	return idx
}

// Blend maps the emitter's blend index onto a blend mode.
func (s *Simulator) Blend() graphics.BlendMode {
	switch s.def.BlendMode {
	case 0:
		return graphics.BlendOpaque
	case 1:
		return graphics.BlendNoAlphaAdd
	case 2:
		return graphics.BlendAlpha
	case 3:
		return graphics.BlendAlphaKey
	default:
		return graphics.BlendAdd
	}
}

// Geometry returns the vertex and index buffers filled by BuildVertices.
func (s *Simulator) Geometry() *graphics.Geometry {
	return &s.geometry
}

// QuadCount returns the number of quads built by the last BuildVertices.
func (s *Simulator) QuadCount() int {
	return s.quads
}

// quadAttrs are the per-particle values shared by the corners of a quad.
type quadAttrs struct {
	color  math.Vec3
	alpha  float32
	cutoff float32
	uv     [4]math.Vec2
	tex    [2]math.Vec2 // multi-texture offsets
	multi  bool
}

// BuildVertices fills the geometry with camera-facing quads for the live
// particles, at most Options.MaxQuads of them, and returns the quad count.
func (s *Simulator) BuildVertices(view math.Mat4) int {
	inv := view.Inverse()
	right := inv.Column(0).NormalizeOr(math.Vec3{X: 1})
	up := inv.Column(1).NormalizeOr(math.Vec3{Y: 1})
	toViewer := inv.Column(2).NormalizeOr(math.Vec3{Z: 1})
	if s.def.Flags&m2.ParticleXYQuad != 0 {
		right, up = math.Vec3{X: 1}, math.Vec3{Y: 1}
	}

	d := s.def
	head := d.HeadOrTail == m2.DrawHead || d.HeadOrTail == m2.DrawBoth
	tail := d.HeadOrTail == m2.DrawTail || d.HeadOrTail == m2.DrawBoth
	multi := d.Flags&m2.ParticleMultiTexture != 0
	local := s.inEmitterSpace()

	v := s.geometry.Vertices[:0]
	quads := 0
	for i := range s.particles {
		if quads >= s.opts.MaxQuads {
			break
		}
		p := &s.particles[i]
		if !s.twinkleVisible(p) {
			continue
		}

		frac := float32(0)
		if life := p.Lifespan(s.params.Lifespan, d.LifespanVary); life > 0 {
			frac = math.Clamp01(p.Age / life)
		}

		attrs := quadAttrs{
			alpha:  s.alpha.Value(frac),
			cutoff: math.Lerp(d.AlphaCutoff[0], d.AlphaCutoff[1], frac),
		}
		if s.override != nil {
			attrs.color = s.override.At(frac, 0.5)
		} else {
			attrs.color = s.color.Value(frac).Scale(1.0 / 255)
		}
		if multi {
			attrs.tex, attrs.multi = p.TexPos, true
		}

		size := s.scale.Value(frac)
		size = math.Vec2{X: size.X * p.ScaleJitter.X, Y: size.Y * p.ScaleJitter.Y}
		if d.TwinkleScale != [2]float32{} {
			size = size.Scale(p.TwinkleScale)
		}

		pos, vel := p.Position, p.Velocity
		if local {
			pos = s.emitter.TransformVec3(pos)
			vel = s.emitter.TransformDirection(vel)
		}

		if head {
			attrs.uv = s.cellUV(int(s.headCell.Value(frac)) + p.CellOffset)
			r, u := spin(right, up, p.Rotation)
			r, u = r.Scale(size.X), u.Scale(size.Y)
			corners := [4]math.Vec3{
				pos.Sub(r).Add(u),
				pos.Add(r).Add(u),
				pos.Add(r).Sub(u),
				pos.Sub(r).Sub(u),
			}
			v = appendQuad(v, &corners, &attrs)
			quads++
		}

		if tail && quads < s.opts.MaxQuads {
			attrs.uv = s.cellUV(int(s.tailCell.Value(frac)) + p.CellOffset)
			trail := vel.Scale(d.TailLength)
			side := vel.Cross(toViewer).NormalizeOr(right).Scale(size.X)
			if trail.Length() < 1e-6 {
				trail = up.Scale(size.Y)
			}
			end := pos.Sub(trail)
			corners := [4]math.Vec3{
				pos.Sub(side),
				pos.Add(side),
				end.Add(side),
				end.Sub(side),
			}
			v = appendQuad(v, &corners, &attrs)
			quads++
		}
	}

	s.geometry.Vertices = v
	s.geometry.Indices = s.indices[:quads*indicesPerQuad]
	s.quads = quads
	return quads
}

// twinkleVisible gates a particle through the shared twinkle table. A
// percentage outside (0,1) disables twinkling.
func (s *Simulator) twinkleVisible(p *Particle) bool {
	pct := s.def.TwinklePercent
	if pct <= 0 || pct >= 1 {
		return true
	}
	idx := int(p.Age*s.def.TwinkleSpeed) + int(p.Seed)
	return s.rng.Twinkle(idx) <= pct
}

// cellUV returns the corner UVs of a texture-atlas cell, rotated by the
// emitter's tile rotation.
func (s *Simulator) cellUV(cell int) [4]math.Vec2 {
	rows := max(1, int(s.def.TextureRows))
	cols := max(1, int(s.def.TextureCols))
	n := rows * cols
	cell = ((cell % n) + n) % n

	c, r := cell%cols, cell/cols
	u0, u1 := float32(c)/float32(cols), float32(c+1)/float32(cols)
	v0, v1 := float32(r)/float32(rows), float32(r+1)/float32(rows)
	uv := [4]math.Vec2{{X: u0, Y: v0}, {X: u1, Y: v0}, {X: u1, Y: v1}, {X: u0, Y: v1}}

	k := ((int(s.def.TextureTileRotation) % 4) + 4) % 4
	if k == 0 {
		return uv
	}
	var rotated [4]math.Vec2
	for i := range uv {
		rotated[i] = uv[(i+k)%4]
	}
	return rotated
}

// spin rotates the quad axes by angle around the view direction.
func spin(right, up math.Vec3, angle float32) (math.Vec3, math.Vec3) {
	if angle == 0 {
		return right, up
	}
	sin, cos := gomath.Sincos(float64(angle))
	s, c := float32(sin), float32(cos)
	return right.Scale(c).Add(up.Scale(s)), up.Scale(c).Sub(right.Scale(s))
}

func appendQuad(v []float32, corners *[4]math.Vec3, a *quadAttrs) []float32 {
	for i, p := range corners {
		uv0 := a.uv[i]
		uv1, uv2 := uv0, uv0
		if a.multi {
			uv1 = quadUV[i].Add(a.tex[0])
			uv2 = quadUV[i].Add(a.tex[1])
		}
		v = append(v,
			p.X, p.Y, p.Z,
			a.color.X, a.color.Y, a.color.Z,
			a.alpha,
			uv0.X, uv0.Y,
			uv1.X, uv1.Y,
			uv2.X, uv2.Y,
			a.cutoff,
		)
	}
	return v
}
