package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/m2view/pkg/math"
)

// Program is a linked program with a cache of uniform locations.
type Program struct {
	ID        uint32
	name      string
	locations map[string]int32
}

// Build compiles one of the bundled sources.
func Build(src Source) (*Program, error) {
	id, err := link(src)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", src.Name, err)
	}
	return &Program{ID: id, name: src.Name, locations: make(map[string]int32)}, nil
}

// Name returns the source name the program was built from.
func (p *Program) Name() string {
	return p.name
}

// Use binds the program.
func (p *Program) Use() {
	gl.UseProgram(p.ID)
}

// Delete releases the program.
func (p *Program) Delete() {
	if p.ID != 0 {
		gl.DeleteProgram(p.ID)
		p.ID = 0
	}
}

// Location returns a cached uniform location; -1 for inactive uniforms.
func (p *Program) Location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := uniformLocation(p.ID, name)
	p.locations[name] = loc
	return loc
}

// Set assigns a uniform of the bound program. Inactive uniforms are
// ignored; unsupported value types are an error.
func (p *Program) Set(name string, value any) error {
	loc := p.Location(name)
	if loc < 0 {
		return nil
	}
	switch v := value.(type) {
	case int32:
		gl.Uniform1i(loc, v)
	case int:
		gl.Uniform1i(loc, int32(v))
	case float32:
		gl.Uniform1f(loc, v)
	case bool:
		var b int32
		if v {
			b = 1
		}
		gl.Uniform1i(loc, b)
	case [2]int32:
		gl.Uniform2i(loc, v[0], v[1])
	case math.Vec3:
		gl.Uniform3f(loc, v.X, v.Y, v.Z)
	case math.Vec4:
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	case math.Mat4:
		gl.UniformMatrix4fv(loc, 1, false, &v[0])
	case []float32:
		n := MatrixCount(len(v))
		if n > 0 {
			gl.UniformMatrix4fv(loc, int32(n), false, &v[0])
		}
	default:
		return fmt.Errorf("uniform %s: unsupported type %T", name, value)
	}
	return nil
}

// MatrixCount returns how many whole matrices of a packed float slice fit
// the bone array, at most MaxBones.
func MatrixCount(floats int) int {
	return min(floats/16, MaxBones)
}
