// Package shader compiles the GLSL programs used to draw models, particles
// and ribbons, and sets their uniforms from plain Go values.
package shader

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

type stage struct {
	kind   uint32
	label  string
	source string
}

// link compiles every stage of src and links them. Stage objects are
// released once the program holds them.
func link(src Source) (uint32, error) {
	stages := []stage{
		{gl.VERTEX_SHADER, "vertex", src.Vertex},
		{gl.FRAGMENT_SHADER, "fragment", src.Fragment},
	}

	program := gl.CreateProgram()
	for _, st := range stages {
		id, err := compile(st)
		if err != nil {
			gl.DeleteProgram(program)
			return 0, err
		}
		gl.AttachShader(program, id)
		defer gl.DeleteShader(id)
	}
	gl.LinkProgram(program)

	var ok int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &ok)
	if ok == gl.FALSE {
		msg := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", msg)
	}
	return program, nil
}

func compile(st stage) (uint32, error) {
	id := gl.CreateShader(st.kind)
	csource, free := gl.Strs(st.source + "\x00")
	gl.ShaderSource(id, 1, csource, nil)
	free()
	gl.CompileShader(id)

	var ok int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &ok)
	if ok == gl.FALSE {
		msg := infoLog(id, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(id)
		return 0, fmt.Errorf("%s shader: %s", st.label, msg)
	}
	return id, nil
}

// infoLog reads the driver log of a shader or program object.
func infoLog(id uint32, param func(uint32, uint32, *int32), read func(uint32, int32, *int32, *uint8)) string {
	var n int32
	param(id, gl.INFO_LOG_LENGTH, &n)
	buf := make([]byte, max(n, 1))
	read(id, n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00\n")
}

// uniformLocation returns -1 for names the linker dropped.
func uniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
