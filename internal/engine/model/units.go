package model

import (
	"fmt"
	"sort"

	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/pkg/m2"
)

// Combiner is the blend operation of one texture stage in the mesh shader.
type Combiner int32

const (
	CombinerOpaque Combiner = iota
	CombinerMod
	CombinerDecal
	CombinerAdd
	CombinerMod2x
	CombinerFade
	CombinerMod2xNA
	CombinerAddNA
)

// Shader ids with the high bit set select a fixed combiner pair; the rest
// encode the first stage in bits 4-6 and the second in bits 0-2.
const (
	shaderRuntime   = 0x8000
	shaderStageMask = 0x0077
)

var runtimeCombiners = [][2]Combiner{
	{CombinerOpaque, CombinerOpaque},
	{CombinerMod, CombinerOpaque},
	{CombinerOpaque, CombinerMod},
	{CombinerOpaque, CombinerAdd},
	{CombinerMod, CombinerMod2x},
	{CombinerOpaque, CombinerMod2xNA},
}

// decodeShader returns the stage combiners of a shader id.
func decodeShader(id uint16) ([2]Combiner, error) {
	if id&shaderRuntime != 0 {
		idx := int(id &^ shaderRuntime)
		if idx >= len(runtimeCombiners) {
			return [2]Combiner{}, fmt.Errorf("%w: %#x", ErrUnknownShader, id)
		}
		return runtimeCombiners[idx], nil
	}
	if id&^shaderStageMask != 0 {
		return [2]Combiner{}, fmt.Errorf("%w: %#x", ErrUnknownShader, id)
	}
	return [2]Combiner{Combiner(id>>4&7), Combiner(id&7)}, nil
}

// unit is a texture unit with every cross reference resolved to an index
// into the model, or -1 when the reference dangles.
type unit struct {
	index    int
	submesh  int
	geoset   uint16
	priority int

	material m2.Material
	blend    graphics.BlendMode
	stages   int
	combine  [2]Combiner

	color     int
	weight    int
	transform int
	textures  [2]int
}

// buildUnits resolves the model's texture units, ordered by priority plane.
// Units on missing submeshes are skipped; unknown shaders are an error.
func buildUnits(desc *m2.Model) ([]unit, error) {
	units := make([]unit, 0, len(desc.TextureUnits))
	for i := range desc.TextureUnits {
		tu := &desc.TextureUnits[i]
		if int(tu.SubmeshIndex) >= len(desc.Submeshes) {
			continue
		}

		combine, err := decodeShader(tu.ShaderID)
		if err != nil {
			return nil, fmt.Errorf("texture unit %d: %w", i, err)
		}

		u := unit{
			index:     i,
			submesh:   int(tu.SubmeshIndex),
			geoset:    desc.Submeshes[tu.SubmeshIndex].GeosetID,
			priority:  int(tu.Priority),
			stages:    max(1, min(2, int(tu.TextureCount))),
			combine:   combine,
			color:     -1,
			weight:    -1,
			transform: -1,
			textures:  [2]int{-1, -1},
		}
		if int(tu.MaterialIndex) < len(desc.Materials) {
			u.material = desc.Materials[tu.MaterialIndex]
		}
		u.blend = graphics.BlendModeFromMaterial(u.material.BlendMode)

		if tu.ColorIndex >= 0 && int(tu.ColorIndex) < len(desc.Colors) {
			u.color = int(tu.ColorIndex)
		}
		u.weight = lookup(desc.TextureWeightLookup, int(tu.TextureWeightComboIndex), len(desc.TextureWeights))
		u.transform = lookup(desc.TextureTransformLookup, int(tu.TextureTransformComboIndex), len(desc.TextureTransforms))
		for k := 0; k < u.stages; k++ {
			u.textures[k] = lookup(desc.TextureLookup, int(tu.TextureComboIndex)+k, len(desc.Textures))
		}
		units = append(units, u)
	}

	sort.SliceStable(units, func(a, b int) bool { return units[a].priority < units[b].priority })
	return units, nil
}

// lookup follows a combo index through a lookup table into an array of n
// entries, returning -1 when either step is out of range.
func lookup(table []int16, combo, n int) int {
	if combo < 0 || combo >= len(table) {
		return -1
	}
	idx := int(table[combo])
	if idx < 0 || idx >= n {
		return -1
	}
	return idx
}
