// Package graphics is the boundary between the simulation and a GPU
// backend: geometry buffers, blend state and batch requests. Backends
// implement Submitter.
package graphics

import (
	"github.com/Faultbox/m2view/internal/engine/texture"
)

// BlendMode is the framebuffer blend state of a batch.
type BlendMode uint8

const (
	BlendOpaque BlendMode = iota
	BlendAlphaKey
	BlendAlpha
	BlendNoAlphaAdd
	BlendAdd
	BlendMod
	BlendMod2x
)

var blendNames = [...]string{"opaque", "alpha_key", "alpha", "no_alpha_add", "add", "mod", "mod2x"}

func (b BlendMode) String() string {
	if int(b) < len(blendNames) {
		return blendNames[b]
	}
	return "unknown"
}

// Transparent reports whether batches with this mode draw after opaque geometry.
func (b BlendMode) Transparent() bool {
	return b > BlendAlphaKey
}

// BlendModeFromMaterial maps a material blend index, clamping unknown
// values to opaque.
func BlendModeFromMaterial(mode uint16) BlendMode {
	if int(mode) >= len(blendNames) {
		return BlendOpaque
	}
	return BlendMode(mode)
}

// Program selects the shader a batch is drawn with.
type Program uint8

const (
	ProgramMesh Program = iota
	ProgramParticle
	ProgramRibbon
)

func (p Program) String() string {
	switch p {
	case ProgramMesh:
		return "mesh"
	case ProgramParticle:
		return "particle"
	case ProgramRibbon:
		return "ribbon"
	}
	return "unknown"
}

// Attribute describes one vertex attribute inside an interleaved buffer.
type Attribute struct {
	Location int
	Size     int // float components
	Offset   int // in floats
}

// Geometry is an interleaved float vertex buffer with a 16-bit index
// buffer. Dynamic geometry is rewritten every frame and re-uploaded by
// backends on each submission; static geometry is uploaded once.
type Geometry struct {
	Vertices []float32
	Indices  []uint16
	Stride   int // floats per vertex
	Layout   []Attribute
	Dynamic  bool
}

// StrideBytes returns the vertex stride in bytes.
func (g *Geometry) StrideBytes() int {
	return g.Stride * 4
}

// VertexCount returns the number of complete vertices in the buffer.
func (g *Geometry) VertexCount() int {
	if g.Stride == 0 {
		return 0
	}
	return len(g.Vertices) / g.Stride
}

// RenderKey orders batches: opaque before transparent, then by priority
// plane, then by submission order.
type RenderKey uint64

// MakeKey builds a sort key.
func MakeKey(blend BlendMode, priority int, order int) RenderKey {
	var layer uint64
	if blend.Transparent() {
		layer = 1
	}
	p := uint64(int64(priority)+1<<15) & 0xffff
	return RenderKey(layer<<63 | p<<32 | uint64(uint32(order)))
}

// Batch is one draw request.
type Batch struct {
	Key      RenderKey
	Program  Program
	Geometry *Geometry

	// Index range to draw.
	IndexStart int
	IndexCount int

	Blend      BlendMode
	DepthTest  bool
	DepthWrite bool
	TwoSided   bool
	Unlit      bool

	Textures []*texture.Handle
	Uniforms map[string]any
}

// Submitter draws batches. Implementations must not retain the batch
// beyond Flush; geometry may be rewritten on the next frame.
type Submitter interface {
	Submit(b *Batch) error
	Flush() error
}
