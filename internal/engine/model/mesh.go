package model

import (
	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// Mesh vertex layout: position(3) normal(3) uv0(2) uv1(2) boneWeights(4) boneIndices(4).
const MeshFloatsPerVertex = 18

var meshLayout = []graphics.Attribute{
	{Location: 0, Size: 3, Offset: 0},
	{Location: 1, Size: 3, Offset: 3},
	{Location: 2, Size: 2, Offset: 6},
	{Location: 3, Size: 2, Offset: 8},
	{Location: 4, Size: 4, Offset: 10},
	{Location: 5, Size: 4, Offset: 14},
}

// Bounds holds the axis-aligned bounding box of the bind pose.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the middle of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Radius returns half the box diagonal.
func (b Bounds) Radius() float32 {
	return b.Max.Sub(b.Min).Length() * 0.5
}

// BuildMesh packs the model's skinned vertices into static geometry and
// returns it with the bind-pose bounds. Triangles referencing missing
// vertices collapse to a degenerate triangle so submesh ranges stay valid.
func BuildMesh(desc *m2.Model) (graphics.Geometry, Bounds) {
	g := graphics.Geometry{
		Vertices: make([]float32, 0, len(desc.Vertices)*MeshFloatsPerVertex),
		Indices:  make([]uint16, len(desc.Indices)),
		Stride:   MeshFloatsPerVertex,
		Layout:   meshLayout,
	}

	var bounds Bounds
	for i := range desc.Vertices {
		v := &desc.Vertices[i]
		if i == 0 {
			bounds = Bounds{Min: v.Position, Max: v.Position}
		} else {
			updateBounds(&bounds, v.Position)
		}

		w := normalizedWeights(v.BoneWeights)
		g.Vertices = append(g.Vertices,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.TexCoords[0].X, v.TexCoords[0].Y,
			v.TexCoords[1].X, v.TexCoords[1].Y,
			w[0], w[1], w[2], w[3],
			float32(v.BoneIndices[0]), float32(v.BoneIndices[1]), float32(v.BoneIndices[2]), float32(v.BoneIndices[3]),
		)
	}

	n := len(desc.Vertices)
	copy(g.Indices, desc.Indices)
	for t := 0; t+2 < len(g.Indices); t += 3 {
		tri := g.Indices[t : t+3]
		if int(tri[0]) >= n || int(tri[1]) >= n || int(tri[2]) >= n {
			tri[0], tri[1], tri[2] = 0, 0, 0
		}
	}
	return g, bounds
}

// normalizedWeights scales byte weights to sum to one. A vertex without
// weights is bound fully to its first bone.
func normalizedWeights(w [4]uint8) [4]float32 {
	sum := float32(w[0]) + float32(w[1]) + float32(w[2]) + float32(w[3])
	if sum == 0 {
		return [4]float32{1, 0, 0, 0}
	}
	return [4]float32{float32(w[0]) / sum, float32(w[1]) / sum, float32(w[2]) / sum, float32(w[3]) / sum}
}

func updateBounds(b *Bounds, p math.Vec3) {
	b.Min = math.Vec3{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
	b.Max = math.Vec3{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
}
