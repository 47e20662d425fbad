// Package m2 holds the decoded, immutable description of a skeletal model:
// bones, animation sequences, mesh, materials and effect emitters. The
// simulation core reads it; it never parses compressed source bytes.
package m2

import (
	"github.com/Faultbox/m2view/pkg/math"
)

// Model is a fully decoded model description.
type Model struct {
	Name string `yaml:"name"`

	GlobalSequences []uint32   `yaml:"global_sequences"`
	Sequences       []Sequence `yaml:"sequences"`
	Bones           []Bone     `yaml:"bones"`
	KeyBoneLookup   []int16    `yaml:"key_bone_lookup"`

	Vertices  []Vertex  `yaml:"vertices"`
	Indices   []uint16  `yaml:"indices"`
	Submeshes []Submesh `yaml:"submeshes"`

	Textures               []Texture          `yaml:"textures"`
	Materials              []Material         `yaml:"materials"`
	TextureUnits           []TextureUnit      `yaml:"texture_units"`
	TextureLookup          []int16            `yaml:"texture_lookup"`
	TextureWeightLookup    []int16            `yaml:"texture_weight_lookup"`
	TextureTransformLookup []int16            `yaml:"texture_transform_lookup"`
	Colors                 []Color            `yaml:"colors"`
	TextureWeights         []Track[float32]   `yaml:"texture_weights"`
	TextureTransforms      []TextureTransform `yaml:"texture_transforms"`

	Attachments      []Attachment      `yaml:"attachments"`
	AttachmentLookup []int16           `yaml:"attachment_lookup"`
	ParticleEmitters []ParticleEmitter `yaml:"particle_emitters"`
	RibbonEmitters   []RibbonEmitter   `yaml:"ribbon_emitters"`
}

// Sequence is one animation sequence. Variations of the same animation id
// are chained through VariationNext; alias sequences redirect to AliasNext.
type Sequence struct {
	ID             uint16        `yaml:"id"`
	VariationIndex uint16        `yaml:"variation_index"`
	Duration       uint32        `yaml:"duration"`
	MoveSpeed      float32       `yaml:"move_speed"`
	Flags          SequenceFlags `yaml:"flags"`
	Frequency      int16         `yaml:"frequency"`
	BlendTimeIn    uint16        `yaml:"blend_time_in"`
	BlendTimeOut   uint16        `yaml:"blend_time_out"`
	VariationNext  int16         `yaml:"variation_next"`
	AliasNext      uint16        `yaml:"alias_next"`
}

// Bone is a node of the skeleton. Parent may reference any index,
// including one after the bone itself; -1 marks a root.
type Bone struct {
	KeyBoneID   int32            `yaml:"key_bone_id"`
	Flags       BoneFlags        `yaml:"flags"`
	Parent      int16            `yaml:"parent"`
	SubmeshID   uint16           `yaml:"submesh_id"`
	Translation Track[math.Vec3] `yaml:"translation"`
	Rotation    Track[math.Quat] `yaml:"rotation"`
	Scale       Track[math.Vec3] `yaml:"scale"`
	Pivot       math.Vec3        `yaml:"pivot"`
	Offset      *math.Mat4       `yaml:"offset,omitempty"` // from the companion bone file
}

// Vertex is a skinned mesh vertex.
type Vertex struct {
	Position    math.Vec3    `yaml:"position"`
	BoneWeights [4]uint8     `yaml:"bone_weights"`
	BoneIndices [4]uint8     `yaml:"bone_indices"`
	Normal      math.Vec3    `yaml:"normal"`
	TexCoords   [2]math.Vec2 `yaml:"tex_coords"`
}

// Submesh is a contiguous index range belonging to one geoset.
type Submesh struct {
	GeosetID    uint16 `yaml:"geoset_id"`
	VertexStart uint32 `yaml:"vertex_start"`
	VertexCount uint32 `yaml:"vertex_count"`
	IndexStart  uint32 `yaml:"index_start"`
	IndexCount  uint32 `yaml:"index_count"`
}

// Texture references an image either by file name or by replaceable slot.
type Texture struct {
	Type     uint32 `yaml:"type"` // 0 = file, otherwise a replaceable slot
	Flags    uint32 `yaml:"flags"`
	Filename string `yaml:"filename"`
}

// Material carries the fixed-function render state of a texture unit.
type Material struct {
	Flags     MaterialFlags `yaml:"flags"`
	BlendMode uint16        `yaml:"blend_mode"`
}

// TextureUnit binds a submesh to a material, textures and animated
// color/weight/transform slots. Combo indices go through the lookup tables.
type TextureUnit struct {
	Flags                      uint8  `yaml:"flags"`
	Priority                   int8   `yaml:"priority"`
	ShaderID                   uint16 `yaml:"shader_id"`
	SubmeshIndex               uint16 `yaml:"submesh_index"`
	ColorIndex                 int16  `yaml:"color_index"`
	MaterialIndex              uint16 `yaml:"material_index"`
	TextureCount               uint16 `yaml:"texture_count"`
	TextureComboIndex          uint16 `yaml:"texture_combo_index"`
	TextureWeightComboIndex    uint16 `yaml:"texture_weight_combo_index"`
	TextureTransformComboIndex uint16 `yaml:"texture_transform_combo_index"`
}

// Color is an animated RGB color (0..1) with a separate alpha track.
type Color struct {
	Color Track[math.Vec3] `yaml:"color"`
	Alpha Track[float32]   `yaml:"alpha"`
}

// TextureTransform animates texture coordinates around (0.5, 0.5).
type TextureTransform struct {
	Translation Track[math.Vec3] `yaml:"translation"`
	Rotation    Track[math.Quat] `yaml:"rotation"`
	Scale       Track[math.Vec3] `yaml:"scale"`
}

// Attachment is a named mount point on a bone.
type Attachment struct {
	ID       uint32         `yaml:"id"`
	Bone     uint16         `yaml:"bone"`
	Position math.Vec3      `yaml:"position"`
	Visible  Track[float32] `yaml:"visible"`
}

// ParticleEmitter is the static definition of a particle effect.
type ParticleEmitter struct {
	ID          int32         `yaml:"id"`
	Flags       ParticleFlags `yaml:"flags"`
	Position    math.Vec3     `yaml:"position"`
	Bone        uint16        `yaml:"bone"`
	Textures    [3]int16      `yaml:"textures"`
	BlendMode   uint8         `yaml:"blend_mode"`
	EmitterType EmitterType   `yaml:"emitter_type"`
	HeadOrTail  HeadOrTail    `yaml:"head_or_tail"`

	TextureTileRotation int16  `yaml:"texture_tile_rotation"`
	TextureRows         uint16 `yaml:"texture_rows"`
	TextureCols         uint16 `yaml:"texture_cols"`

	EmissionSpeed      Track[float32] `yaml:"emission_speed"`
	SpeedVariation     Track[float32] `yaml:"speed_variation"`
	VerticalRange      Track[float32] `yaml:"vertical_range"`
	HorizontalRange    Track[float32] `yaml:"horizontal_range"`
	Gravity            Track[float32] `yaml:"gravity"`
	Lifespan           Track[float32] `yaml:"lifespan"`
	EmissionRate       Track[float32] `yaml:"emission_rate"`
	EmissionAreaLength Track[float32] `yaml:"emission_area_length"`
	EmissionAreaWidth  Track[float32] `yaml:"emission_area_width"`
	ZSource            Track[float32] `yaml:"z_source"`
	Enabled            Track[float32] `yaml:"enabled"`

	Color    LocalTrack[math.Vec3] `yaml:"color"` // 0..255
	Alpha    LocalTrack[float32]   `yaml:"alpha"` // 0..1
	Scale    LocalTrack[math.Vec2] `yaml:"scale"`
	HeadCell LocalTrack[float32]   `yaml:"head_cell"`
	TailCell LocalTrack[float32]   `yaml:"tail_cell"`

	TailLength      float32    `yaml:"tail_length"`
	TwinkleSpeed    float32    `yaml:"twinkle_speed"`
	TwinklePercent  float32    `yaml:"twinkle_percent"`
	TwinkleScale    [2]float32 `yaml:"twinkle_scale"` // min, max
	BurstMultiplier float32    `yaml:"burst_multiplier"`
	Drag            float32    `yaml:"drag"`
	BaseSpin        float32    `yaml:"base_spin"`
	BaseSpinVary    float32    `yaml:"base_spin_vary"`
	Spin            float32    `yaml:"spin"`
	SpinVary        float32    `yaml:"spin_vary"`
	WindVector      math.Vec3  `yaml:"wind_vector"`
	WindTime        float32    `yaml:"wind_time"`
	FollowSpeed1    float32    `yaml:"follow_speed1"`
	FollowScale1    float32    `yaml:"follow_scale1"`
	FollowSpeed2    float32    `yaml:"follow_speed2"`
	FollowScale2    float32    `yaml:"follow_scale2"`
	LifespanVary    float32    `yaml:"lifespan_vary"`
	RateVary        float32    `yaml:"rate_vary"`
	ScaleVary       math.Vec2  `yaml:"scale_vary"`
	AlphaCutoff     [2]float32 `yaml:"alpha_cutoff"` // at birth, at death

	// Per extra texture slot (1 and 2): base UV scroll speed and its random spread.
	MultiTextureSpeed [2]math.Vec2 `yaml:"multi_texture_speed"`
	MultiTextureVary  [2]math.Vec2 `yaml:"multi_texture_vary"`
}

// RibbonEmitter is the static definition of a ribbon trail.
type RibbonEmitter struct {
	ID        int32     `yaml:"id"`
	Bone      uint16    `yaml:"bone"`
	Position  math.Vec3 `yaml:"position"`
	Textures  []uint16  `yaml:"textures"`
	Materials []uint16  `yaml:"materials"`

	Color       Track[math.Vec3] `yaml:"color"`
	Alpha       Track[float32]   `yaml:"alpha"`
	HeightAbove Track[float32]   `yaml:"height_above"`
	HeightBelow Track[float32]   `yaml:"height_below"`
	TextureSlot Track[float32]   `yaml:"texture_slot"`
	Visibility  Track[float32]   `yaml:"visibility"`

	EdgesPerSecond float32 `yaml:"edges_per_second"`
	EdgeLifetime   float32 `yaml:"edge_lifetime"` // seconds
	Gravity        float32 `yaml:"gravity"`
	TextureRows    uint16  `yaml:"texture_rows"`
	TextureCols    uint16  `yaml:"texture_cols"`
	PriorityPlane  int16   `yaml:"priority_plane"`
}
