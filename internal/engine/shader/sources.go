package shader

import (
	_ "embed"

	"github.com/Faultbox/m2view/internal/engine/graphics"
)

// MaxBones is the size of the bone palette in the mesh vertex shader.
const MaxBones = 128

// Source is a vertex and fragment shader pair.
type Source struct {
	Name     string
	Vertex   string
	Fragment string
}

//go:embed glsl/mesh.vert
var meshVertex string

//go:embed glsl/mesh.frag
var meshFragment string

//go:embed glsl/particle.vert
var particleVertex string

//go:embed glsl/particle.frag
var particleFragment string

//go:embed glsl/ribbon.vert
var ribbonVertex string

//go:embed glsl/ribbon.frag
var ribbonFragment string

// SourceFor returns the shader sources for a batch program.
func SourceFor(p graphics.Program) (Source, bool) {
	switch p {
	case graphics.ProgramMesh:
		return Source{Name: "mesh", Vertex: meshVertex, Fragment: meshFragment}, true
	case graphics.ProgramParticle:
		return Source{Name: "particle", Vertex: particleVertex, Fragment: particleFragment}, true
	case graphics.ProgramRibbon:
		return Source{Name: "ribbon", Vertex: ribbonVertex, Fragment: ribbonFragment}, true
	}
	return Source{}, false
}
