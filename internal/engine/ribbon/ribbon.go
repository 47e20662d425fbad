// Package ribbon builds trailing ribbon geometry from the motion history of
// an attachment point, kept in a fixed-capacity ring of edges.
package ribbon

import (
	gomath "math"
	"math/bits"

	"github.com/Faultbox/m2view/internal/engine/anim"
	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// Vertex layout: position(3) color(4) uv(2).
const (
	FloatsPerVertex = 9
	VertexStride    = FloatsPerVertex * 4
)

// MaxEdges bounds the ring so two vertices per edge stay addressable by
// 16-bit indices.
const MaxEdges = 65536 / 2

var vertexLayout = []graphics.Attribute{
	{Location: 0, Size: 3, Offset: 0},
	{Location: 1, Size: 4, Offset: 3},
	{Location: 2, Size: 2, Offset: 7},
}

// Edge is one cross-section of the ribbon.
type Edge struct {
	Above math.Vec3
	Below math.Vec3
	Age   float32 // seconds
	U     float32 // texture coordinate along the ribbon
}

// Simulator owns the edge ring of one ribbon emitter.
type Simulator struct {
	def *m2.RibbonEmitter

	edges      []Edge
	start, end int
	startTime  float32 // fractional edges owed to the spawner

	color   math.Vec3
	alpha   float32
	above   float32
	below   float32
	slot    int
	texRect [4]float32 // u0, v0, u1, v1
	visible bool

	initialized bool
	prevPos     math.Vec3
	prevUp      math.Vec3
	prevDir     math.Vec3

	geometry graphics.Geometry
}

// New creates a ribbon simulator with a ring sized for the emitter's edge
// rate and lifetime.
func New(def *m2.RibbonEmitter) *Simulator {
	s := &Simulator{
		def:   def,
		edges: make([]Edge, Capacity(def)),
		slot:  -1,
		geometry: graphics.Geometry{
			Stride:  FloatsPerVertex,
			Layout:  vertexLayout,
			Dynamic: true,
		},
	}
	s.setSlot(0)
	return s
}

// Capacity returns the ring size for an emitter:
// ceil(lifetime * edgesPerSecond) + 2, at most MaxEdges.
func Capacity(def *m2.RibbonEmitter) int {
	n := gomath.Ceil(float64(def.EdgeLifetime) * float64(def.EdgesPerSecond))
	if n < 0 || gomath.IsNaN(n) {
		n = 0
	}
	if n > MaxEdges-2 {
		return MaxEdges
	}
	return int(n) + 2
}

// Definition returns the emitter definition.
func (s *Simulator) Definition() *m2.RibbonEmitter {
	return s.def
}

// Capacity returns the ring size.
func (s *Simulator) Capacity() int {
	return len(s.edges)
}

// Len returns the number of live edges.
func (s *Simulator) Len() int {
	return (s.end - s.start + len(s.edges)) % len(s.edges)
}

// Range returns the ring indices of the oldest live edge and one past the
// newest. The ring is empty when they are equal.
func (s *Simulator) Range() (start, end int) {
	return s.start, s.end
}

// Edge returns the i-th live edge, oldest first.
func (s *Simulator) Edge(i int) Edge {
	return s.edges[(s.start+i)%len(s.edges)]
}

// Visible reports whether the ribbon spawned edges on the last Update.
func (s *Simulator) Visible() bool {
	return s.visible
}

// TextureRect returns the atlas sub-rectangle of the current texture slot.
func (s *Simulator) TextureRect() [4]float32 {
	return s.texRect
}

// Color returns the animated color and alpha from the last Update.
func (s *Simulator) Color() (math.Vec3, float32) {
	return s.color, s.alpha
}

// Update advances the ribbon by dt milliseconds. bone is the model matrix
// of the bone the ribbon is attached to, already resolved this tick.
func (s *Simulator) Update(dt float32, state *anim.State, bone math.Mat4) {
	seconds := dt / 1000
	s.refresh(state)

	m := bone.Mul(math.TranslateV(s.def.Position))
	pos := m.Translation()
	up := m.TransformDirection(math.Vec3{Z: 1})

	s.age(seconds)
	s.retire()

	if !s.visible {
		s.initialized = false
		return
	}
	if !s.initialized {
		s.prevPos, s.prevUp, s.prevDir = pos, up, math.Vec3{}
		s.startTime = 0
		s.initialized = true
	}

	s.spawn(seconds, pos, up)
}

func (s *Simulator) refresh(state *anim.State) {
	d := s.def
	s.color = state.Vec3(&d.Color, math.Vec3{X: 1, Y: 1, Z: 1})
	s.alpha = state.Float(&d.Alpha, 1)
	s.above = state.Float(&d.HeightAbove, 0)
	s.below = state.Float(&d.HeightBelow, 0)
	s.visible = state.Float(&d.Visibility, 1) > 0
	s.setSlot(int(state.Float(&d.TextureSlot, 0)))
}

// setSlot selects an atlas cell, recomputing its rectangle on change.
// Slots address a grid whose column count is rounded up to a power of two:
// the low bits pick the column and the rest the row. Columns that fall in
// the padding fold back onto the real ones.
func (s *Simulator) setSlot(slot int) {
	if slot == s.slot {
		return
	}
	s.slot = slot

	rows := max(1, int(s.def.TextureRows))
	cols := max(1, int(s.def.TextureCols))
	colBits := bits.Len(uint(cols - 1))
	n := rows << colBits
	slot = ((slot % n) + n) % n
	c, r := (slot&(1<<colBits-1))%cols, slot>>colBits
	s.texRect = [4]float32{
		float32(c) / float32(cols),
		float32(r) / float32(rows),
		float32(c+1) / float32(cols),
		float32(r+1) / float32(rows),
	}
}

// age grows every live edge, drops it under gravity and scrolls its
// texture coordinate.
func (s *Simulator) age(seconds float32) {
	g := s.def.Gravity
	life := s.def.EdgeLifetime
	for i, n := 0, s.Len(); i < n; i++ {
		e := &s.edges[(s.start+i)%len(s.edges)]
		before := e.Age
		e.Age += seconds
		if g != 0 {
			drop := 0.5 * g * (e.Age*e.Age - before*before)
			e.Above.Z -= drop
			e.Below.Z -= drop
		}
		if life > 0 {
			e.U = e.Age / life
		}
	}
}

// retire drops edges older than the emitter's edge lifetime.
func (s *Simulator) retire() {
	for s.start != s.end && s.edges[s.start].Age > s.def.EdgeLifetime {
		s.start = (s.start + 1) % len(s.edges)
	}
}

// spawn emits the edges owed since the last tick, interpolating between
// the previous and current pose.
func (s *Simulator) spawn(seconds float32, pos, up math.Vec3) {
	s.startTime += seconds * s.def.EdgesPerSecond
	n := int(s.startTime)
	s.startTime -= float32(n)

	delta := pos.Sub(s.prevPos)
	dist := delta.Length()
	t0 := s.prevDir.Scale(dist)
	t1 := delta

	for k := 1; k <= n; k++ {
		t := float32(k) / float32(n)
		center := hermite(s.prevPos, t0, pos, t1, t)
		axis := s.prevUp.Lerp(up, t)

		s.push(Edge{
			Above: center.Add(axis.Scale(s.above)),
			Below: center.Sub(axis.Scale(s.below)),
			Age:   (1 - t) * seconds,
		})
	}

	if dist > 1e-6 {
		s.prevDir = delta.Scale(1 / dist)
	}
	s.prevPos, s.prevUp = pos, up
}

// push writes an edge at the ring's end, dropping the oldest edge when
// the ring is full.
func (s *Simulator) push(e Edge) {
	s.edges[s.end] = e
	s.end = (s.end + 1) % len(s.edges)
	if s.end == s.start {
		s.start = (s.start + 1) % len(s.edges)
	}
}

// hermite evaluates the cubic Hermite curve from p0 to p1 with tangents
// m0 and m1.
func hermite(p0, m0, p1, m1 math.Vec3, t float32) math.Vec3 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return p0.Scale(h00).Add(m0.Scale(h10)).Add(p1.Scale(h01)).Add(m1.Scale(h11))
}

// Geometry returns the buffers filled by BuildVertices.
func (s *Simulator) Geometry() *graphics.Geometry {
	return &s.geometry
}

// BuildVertices unrolls the ring oldest first into a linear vertex buffer,
// two vertices per edge, and returns the index count to draw.
func (s *Simulator) BuildVertices() int {
	n := s.Len()
	v := s.geometry.Vertices[:0]
	idx := s.geometry.Indices[:0]

	r := s.texRect
	for i := 0; i < n; i++ {
		e := s.Edge(i)
		u := r[0] + (r[2]-r[0])*e.U
		v = append(v,
			e.Above.X, e.Above.Y, e.Above.Z, s.color.X, s.color.Y, s.color.Z, s.alpha, u, r[1],
			e.Below.X, e.Below.Y, e.Below.Z, s.color.X, s.color.Y, s.color.Z, s.alpha, u, r[3],
		)
		if i > 0 {
			a0, b0 := uint16(2*i-2), uint16(2*i-1)
			a1, b1 := uint16(2*i), uint16(2*i+1)
			idx = append(idx, a0, b0, a1, b0, b1, a1)
		}
	}

	s.geometry.Vertices = v
	s.geometry.Indices = idx
	return len(idx)
}

// Blend returns the blend mode of the ribbon's first material, looked up
// in the model's materials; out-of-range references are opaque.
func (s *Simulator) Blend(materials []m2.Material) graphics.BlendMode {
	if len(s.def.Materials) == 0 || int(s.def.Materials[0]) >= len(materials) {
		return graphics.BlendOpaque
	}
	return graphics.BlendModeFromMaterial(materials[s.def.Materials[0]].BlendMode)
}
