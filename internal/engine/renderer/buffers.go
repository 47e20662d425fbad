package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/m2view/internal/engine/graphics"
)

// buffer is the GPU copy of one geometry.
type buffer struct {
	vao, vbo, ebo uint32

	vboSize int
	eboSize int
}

// upload returns the buffer of g, creating it on first use. Dynamic
// geometry is re-uploaded once per Flush.
func (r *Renderer) upload(g *graphics.Geometry) (*buffer, error) {
	b, ok := r.buffers[g]
	if ok && (!g.Dynamic || r.uploaded[g]) {
		return b, nil
	}
	if len(g.Vertices) == 0 || len(g.Indices) == 0 {
		return nil, fmt.Errorf("upload: empty geometry")
	}

	if !ok {
		b = &buffer{}
		gl.GenVertexArrays(1, &b.vao)
		gl.GenBuffers(1, &b.vbo)
		gl.GenBuffers(1, &b.ebo)
		gl.BindVertexArray(b.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
		stride := int32(g.StrideBytes())
		for _, a := range g.Layout {
			loc := uint32(a.Location)
			gl.VertexAttribPointerWithOffset(loc, int32(a.Size), gl.FLOAT, false, stride, uintptr(a.Offset*4))
			gl.EnableVertexAttribArray(loc)
		}
		r.buffers[g] = b
	}

	usage := uint32(gl.STATIC_DRAW)
	if g.Dynamic {
		usage = gl.DYNAMIC_DRAW
	}

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	vbytes := len(g.Vertices) * 4
	if vbytes > b.vboSize {
		gl.BufferData(gl.ARRAY_BUFFER, vbytes, unsafe.Pointer(&g.Vertices[0]), usage)
		b.vboSize = vbytes
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, vbytes, unsafe.Pointer(&g.Vertices[0]))
	}

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	ibytes := len(g.Indices) * 2
	if ibytes > b.eboSize {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, ibytes, unsafe.Pointer(&g.Indices[0]), usage)
		b.eboSize = ibytes
	} else {
		gl.BufferSubData(gl.ELEMENT_ARRAY_BUFFER, 0, ibytes, unsafe.Pointer(&g.Indices[0]))
	}

	r.uploaded[g] = true
	r.stats.Uploads++
	return b, nil
}

func (b *buffer) delete() {
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteBuffers(1, &b.vbo)
	gl.DeleteBuffers(1, &b.ebo)
}
