package renderer

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/m2view/internal/engine/graphics"
)

func TestBlendFactors(t *testing.T) {
	tests := []struct {
		mode     graphics.BlendMode
		src, dst uint32
		enabled  bool
	}{
		{graphics.BlendOpaque, gl.ONE, gl.ZERO, false},
		{graphics.BlendAlphaKey, gl.ONE, gl.ZERO, false},
		{graphics.BlendAlpha, gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, true},
		{graphics.BlendNoAlphaAdd, gl.ONE, gl.ONE, true},
		{graphics.BlendAdd, gl.SRC_ALPHA, gl.ONE, true},
		{graphics.BlendMod, gl.DST_COLOR, gl.ZERO, true},
		{graphics.BlendMod2x, gl.DST_COLOR, gl.SRC_COLOR, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			src, dst, enabled := blendFactors(tt.mode)
			if src != tt.src || dst != tt.dst || enabled != tt.enabled {
				t.Errorf("blendFactors = (%#x, %#x, %v), want (%#x, %#x, %v)",
					src, dst, enabled, tt.src, tt.dst, tt.enabled)
			}
		})
	}
}

func TestAlphaRef(t *testing.T) {
	if alphaRef(graphics.BlendOpaque) != 0 {
		t.Error("opaque batches should not alpha test")
	}
	if alphaRef(graphics.BlendAlphaKey) < 0.5 {
		t.Error("alpha key threshold too low")
	}
	if r := alphaRef(graphics.BlendAdd); r <= 0 || r > 0.01 {
		t.Errorf("alphaRef(add) = %v", r)
	}
}

func TestStateFor(t *testing.T) {
	opaque := stateFor(&graphics.Batch{Blend: graphics.BlendOpaque, DepthTest: true, DepthWrite: true})
	if opaque.blend || !opaque.depthWrite || !opaque.cull {
		t.Errorf("opaque state = %+v", opaque)
	}

	// Blended batches never write depth.
	add := stateFor(&graphics.Batch{Blend: graphics.BlendAdd, DepthTest: true, DepthWrite: true, TwoSided: true})
	if !add.blend || add.depthWrite || add.cull || !add.depthTest {
		t.Errorf("additive state = %+v", add)
	}
}
