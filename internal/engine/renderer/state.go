package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/m2view/internal/engine/graphics"
)

// drawState is the fixed-function state of one batch.
type drawState struct {
	blend      bool
	src, dst   uint32
	depthTest  bool
	depthWrite bool
	cull       bool
}

// blendFactors returns the framebuffer blend function of a mode; enabled
// is false for modes drawn without blending.
func blendFactors(mode graphics.BlendMode) (src, dst uint32, enabled bool) {
	switch mode {
	case graphics.BlendAlpha:
		return gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, true
	case graphics.BlendNoAlphaAdd:
		return gl.ONE, gl.ONE, true
	case graphics.BlendAdd:
		return gl.SRC_ALPHA, gl.ONE, true
	case graphics.BlendMod:
		return gl.DST_COLOR, gl.ZERO, true
	case graphics.BlendMod2x:
		return gl.DST_COLOR, gl.SRC_COLOR, true
	}
	return gl.ONE, gl.ZERO, false
}

// alphaRef is the alpha test threshold; alpha keyed batches cut hard.
func alphaRef(mode graphics.BlendMode) float32 {
	switch mode {
	case graphics.BlendOpaque:
		return 0
	case graphics.BlendAlphaKey:
		return 224.0 / 255.0
	}
	return 1.0 / 255.0
}

func stateFor(b *graphics.Batch) drawState {
	src, dst, enabled := blendFactors(b.Blend)
	return drawState{
		blend:      enabled,
		src:        src,
		dst:        dst,
		depthTest:  b.DepthTest,
		depthWrite: b.DepthWrite && !enabled,
		cull:       !b.TwoSided,
	}
}

func applyState(s drawState) {
	if s.blend {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(s.src, s.dst)
	} else {
		gl.Disable(gl.BLEND)
	}
	if s.depthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(s.depthWrite)
	if s.cull {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
}
