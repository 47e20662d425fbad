// Package model owns one animated model instance: playback state, bone
// matrices, particle and ribbon simulators, and the batches drawn from them.
package model

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/m2view/internal/engine/anim"
	"github.com/Faultbox/m2view/internal/engine/graphics"
	"github.com/Faultbox/m2view/internal/engine/particle"
	"github.com/Faultbox/m2view/internal/engine/ribbon"
	"github.com/Faultbox/m2view/internal/engine/rng"
	"github.com/Faultbox/m2view/internal/engine/skeleton"
	"github.com/Faultbox/m2view/internal/engine/texture"
	"github.com/Faultbox/m2view/internal/logger"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

var (
	// ErrDisposed is returned by methods called after Dispose.
	ErrDisposed = errors.New("model disposed")
	// ErrUnknownShader reports a texture unit shader id without a combiner.
	ErrUnknownShader = errors.New("unknown shader id")
)

// TextureSource loads textures by file name. *texture.Loader implements it.
type TextureSource interface {
	Load(name string) *texture.Handle
}

// Options configure a model instance.
type Options struct {
	Seed      uint64
	Particles particle.Options
	Textures  TextureSource // nil draws every texture as the placeholder
}

// Model is one animated instance of a decoded model description. It is not
// safe for concurrent use: call Update then Draw once per frame.
type Model struct {
	desc *m2.Model
	log  *zap.Logger

	state     *anim.State
	bones     *skeleton.Hierarchy
	particles []*particle.Simulator
	ribbons   []*ribbon.Simulator

	mesh   graphics.Geometry
	bounds Bounds
	units  []unit
	hidden map[uint16]bool

	textures    []*texture.Handle // file textures by model texture index
	replaceable map[uint32]*texture.Handle

	view       math.Mat4
	projection math.Mat4

	disposed bool
}

// New creates an instance of desc. Unknown emitter types and shader ids
// are errors; dangling indices are tolerated.
func New(desc *m2.Model, opts Options) (*Model, error) {
	units, err := buildUnits(desc)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", desc.Name, err)
	}

	src := rng.New(opts.Seed)
	m := &Model{
		desc:        desc,
		log:         logger.Named("model").With(zap.String("model", desc.Name)),
		state:       anim.NewState(desc, src),
		bones:       skeleton.New(desc),
		units:       units,
		hidden:      make(map[uint16]bool),
		textures:    make([]*texture.Handle, len(desc.Textures)),
		replaceable: make(map[uint32]*texture.Handle),
		view:        math.Identity(),
		projection:  math.Identity(),
	}
	m.mesh, m.bounds = BuildMesh(desc)

	for i := range desc.ParticleEmitters {
		s, err := particle.NewSimulator(&desc.ParticleEmitters[i], src, opts.Particles)
		if err != nil {
			return nil, fmt.Errorf("model %s: particle emitter %d: %w", desc.Name, i, err)
		}
		m.particles = append(m.particles, s)
	}
	for i := range desc.RibbonEmitters {
		m.ribbons = append(m.ribbons, ribbon.New(&desc.RibbonEmitters[i]))
	}

	if opts.Textures != nil {
		for i, t := range desc.Textures {
			if t.Type == 0 && t.Filename != "" {
				m.textures[i] = opts.Textures.Load(t.Filename)
			}
		}
	}

	m.log.Info("model loaded",
		zap.Int("bones", len(desc.Bones)),
		zap.Int("sequences", len(desc.Sequences)),
		zap.Int("units", len(units)),
		zap.Int("particles", len(m.particles)),
		zap.Int("ribbons", len(m.ribbons)))
	return m, nil
}

// Description returns the decoded model the instance was built from.
func (m *Model) Description() *m2.Model {
	return m.desc
}

// State returns the playback state.
func (m *Model) State() *anim.State {
	return m.state
}

// Bones returns the bone hierarchy.
func (m *Model) Bones() *skeleton.Hierarchy {
	return m.bones
}

// Particles returns the particle simulators, one per emitter.
func (m *Model) Particles() []*particle.Simulator {
	return m.particles
}

// Ribbons returns the ribbon simulators, one per emitter.
func (m *Model) Ribbons() []*ribbon.Simulator {
	return m.ribbons
}

// Bounds returns the bind-pose bounding box, or a zero box once disposed.
func (m *Model) Bounds() Bounds {
	if m.disposed {
		return Bounds{}
	}
	return m.bounds
}

// Disposed reports whether Dispose was called.
func (m *Model) Disposed() bool {
	return m.disposed
}

// SetCamera sets the matrices used by the next Update and Draw. Bones are
// resolved against view so billboards face the camera.
func (m *Model) SetCamera(view, projection math.Mat4) {
	if m.disposed {
		return
	}
	m.view, m.projection = view, projection
}

// Update advances the model by dt milliseconds: playback, then bones, then
// the effects attached to them.
func (m *Model) Update(dt float32) {
	if m.disposed {
		return
	}
	m.state.Update(dt)
	m.bones.Update(m.state, m.view)

	for _, p := range m.particles {
		p.ResolveTextures(m.texture)
		p.Update(dt, m.state, m.bones.Matrix(int(p.Definition().Bone)))
	}
	for _, r := range m.ribbons {
		r.Update(dt, m.state, m.bones.Matrix(int(r.Definition().Bone)))
	}
}

// Draw submits the mesh, particle and ribbon batches for the state left by
// the last Update. The caller flushes the submitter.
func (m *Model) Draw(sub graphics.Submitter) error {
	if m.disposed {
		return ErrDisposed
	}

	order := 0
	submit := func(b *graphics.Batch, priority int) error {
		b.Key = graphics.MakeKey(b.Blend, priority, order)
		order++
		return sub.Submit(b)
	}

	for i := range m.units {
		u := &m.units[i]
		if m.hidden[u.geoset] {
			continue
		}
		sm := &m.desc.Submeshes[u.submesh]
		b := &graphics.Batch{
			Program:    graphics.ProgramMesh,
			Geometry:   &m.mesh,
			IndexStart: int(sm.IndexStart),
			IndexCount: int(sm.IndexCount),
			Blend:      u.blend,
			DepthTest:  u.material.Flags&m2.MaterialNoDepthTest == 0,
			DepthWrite: u.material.Flags&m2.MaterialNoDepthWrite == 0,
			TwoSided:   u.material.Flags&m2.MaterialTwoSided != 0,
			Unlit:      u.material.Flags&m2.MaterialUnlit != 0,
			Textures:   m.unitTextures(u),
			Uniforms:   m.unitUniforms(u),
		}
		if err := submit(b, u.priority); err != nil {
			return err
		}
	}

	for _, p := range m.particles {
		quads := p.BuildVertices(m.view)
		if quads == 0 {
			continue
		}
		b := &graphics.Batch{
			Program:    graphics.ProgramParticle,
			Geometry:   p.Geometry(),
			IndexCount: len(p.Geometry().Indices),
			Blend:      p.Blend(),
			DepthTest:  true,
			Unlit:      p.Definition().Flags&m2.ParticleLit == 0,
			TwoSided:   true,
			Textures:   p.Textures(),
			Uniforms:   m.cameraUniforms(),
		}
		if err := submit(b, 0); err != nil {
			return err
		}
	}

	for _, r := range m.ribbons {
		count := r.BuildVertices()
		if count == 0 {
			continue
		}
		def := r.Definition()
		var tex *texture.Handle
		if len(def.Textures) > 0 {
			tex = m.texture(int(def.Textures[0]))
		}
		b := &graphics.Batch{
			Program:    graphics.ProgramRibbon,
			Geometry:   r.Geometry(),
			IndexCount: count,
			Blend:      r.Blend(m.desc.Materials),
			DepthTest:  true,
			Unlit:      true,
			TwoSided:   true,
			Textures:   []*texture.Handle{tex},
			Uniforms:   m.cameraUniforms(),
		}
		if err := submit(b, int(def.PriorityPlane)); err != nil {
			return err
		}
	}
	return nil
}

// Dispose releases the instance. It is idempotent; afterwards every method
// is a no-op and Draw returns ErrDisposed.
func (m *Model) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.particles = nil
	m.ribbons = nil
	m.textures = nil
	clear(m.replaceable)
	m.mesh = graphics.Geometry{}
	m.log.Debug("model disposed")
}

// UseAnimation switches to the base variant of an animation id. An unknown
// id plays animation 0 and reports false.
func (m *Model) UseAnimation(id uint16) (bool, error) {
	if m.disposed {
		return false, ErrDisposed
	}
	return m.state.UseAnimation(id), nil
}

// PauseAnimation freezes playback; effects keep simulating.
func (m *Model) PauseAnimation() {
	if m.disposed {
		return
	}
	m.state.Pause()
}

// ResumeAnimation resumes playback.
func (m *Model) ResumeAnimation() {
	if m.disposed {
		return
	}
	m.state.Resume()
}

// SetAnimationSpeed scales the playback clock. Negative speeds clamp to 0.
func (m *Model) SetAnimationSpeed(speed float32) {
	if m.disposed {
		return
	}
	m.state.SetSpeed(speed)
}

// ToggleGeoset shows or hides every submesh of a geoset.
func (m *Model) ToggleGeoset(id uint16, show bool) {
	if m.disposed {
		return
	}
	if show {
		delete(m.hidden, id)
	} else {
		m.hidden[id] = true
	}
}

// GeosetVisible reports whether a geoset is drawn.
func (m *Model) GeosetVisible(id uint16) bool {
	if m.disposed {
		return false
	}
	return !m.hidden[id]
}

// Geosets returns the distinct geoset ids of the mesh in ascending order.
func (m *Model) Geosets() []uint16 {
	if m.disposed {
		return nil
	}
	seen := make(map[uint16]bool)
	var ids []uint16
	for _, sm := range m.desc.Submeshes {
		if !seen[sm.GeosetID] {
			seen[sm.GeosetID] = true
			ids = append(ids, sm.GeosetID)
		}
	}
	slices.Sort(ids)
	return ids
}

// BonePositions returns the animated pivot of every bone in model space,
// as resolved by the last Update.
func (m *Model) BonePositions() []math.Vec3 {
	if m.disposed {
		return nil
	}
	out := make([]math.Vec3, len(m.desc.Bones))
	for i := range m.desc.Bones {
		out[i] = m.bones.Matrix(i).TransformVec3(m.desc.Bones[i].Pivot)
	}
	return out
}

// GetBone returns the model-space matrix of a key bone (head, hands, ...)
// resolved by the last Update.
func (m *Model) GetBone(id int) (math.Mat4, bool) {
	if m.disposed {
		return math.Identity(), false
	}
	idx := m.bones.KeyBone(id)
	if idx < 0 {
		return math.Identity(), false
	}
	return m.bones.Matrix(idx), true
}

// GetAttachment returns the model-space matrix of an attachment point and
// whether it exists and is currently visible.
func (m *Model) GetAttachment(id int) (math.Mat4, bool) {
	if m.disposed {
		return math.Identity(), false
	}
	mat, ok := m.bones.Attachment(id)
	if !ok {
		return mat, false
	}
	return mat, m.bones.AttachmentVisible(m.state, id)
}

// SetReplaceableTexture binds a texture to a replaceable slot (skin, hair,
// cape, ...). Nil unbinds it.
func (m *Model) SetReplaceableTexture(slot uint32, h *texture.Handle) {
	if m.disposed {
		return
	}
	if h == nil {
		delete(m.replaceable, slot)
	} else {
		m.replaceable[slot] = h
	}
	for _, p := range m.particles {
		p.ResetTextures()
	}
}

// TexturesReady reports whether every file texture finished loading. A
// disposed model has none.
func (m *Model) TexturesReady() bool {
	if m.disposed {
		return false
	}
	for _, h := range m.textures {
		if h != nil && !h.Done() {
			return false
		}
	}
	return true
}

// texture returns the handle for a model texture index, or nil.
func (m *Model) texture(i int) *texture.Handle {
	if i < 0 || i >= len(m.desc.Textures) || m.disposed {
		return nil
	}
	if t := m.desc.Textures[i]; t.Type != 0 {
		return m.replaceable[t.Type]
	}
	return m.textures[i]
}

func (m *Model) unitTextures(u *unit) []*texture.Handle {
	out := make([]*texture.Handle, u.stages)
	for k := range out {
		out[k] = m.texture(u.textures[k])
	}
	return out
}

func (m *Model) cameraUniforms() map[string]any {
	return map[string]any{
		"uView":       m.view,
		"uProjection": m.projection,
	}
}

// unitUniforms samples the unit's color, weight and texture transform.
// Dangling references fall back to white, full weight and identity.
func (m *Model) unitUniforms(u *unit) map[string]any {
	color := math.Vec4{1, 1, 1, 1}
	if u.color >= 0 {
		c := &m.desc.Colors[u.color]
		rgb := m.state.Vec3(&c.Color, math.Vec3{X: 1, Y: 1, Z: 1})
		color = math.Vec4{rgb.X, rgb.Y, rgb.Z, m.state.Float(&c.Alpha, 1)}
	}
	if u.weight >= 0 {
		color[3] *= m.state.Float(&m.desc.TextureWeights[u.weight], 1)
	}

	texMatrix := math.Identity()
	if u.transform >= 0 {
		texMatrix = m.textureMatrix(&m.desc.TextureTransforms[u.transform])
	}

	uniforms := m.cameraUniforms()
	uniforms["uColor"] = color
	uniforms["uTexMatrix"] = texMatrix
	uniforms["uBones"] = m.bones.Buffer()
	uniforms["uTexture0"] = int32(0)
	uniforms["uTexture1"] = int32(1)
	uniforms["uCombiners"] = [2]int32{int32(u.combine[0]), int32(u.combine[1])}
	uniforms["uStages"] = int32(u.stages)
	return uniforms
}

// textureMatrix composes an animated texture transform around (0.5, 0.5).
func (m *Model) textureMatrix(t *m2.TextureTransform) math.Mat4 {
	tr := m.state.Vec3(&t.Translation, math.Vec3{})
	rot := m.state.Quat(&t.Rotation, math.QuatIdentity())
	scale := m.state.Vec3(&t.Scale, math.Vec3{X: 1, Y: 1, Z: 1})

	inner := math.TranslateV(tr).Mul(rot.ToMat4()).Mul(math.ScaleV(scale))
	return math.Identity().Sandwich(math.Vec3{X: 0.5, Y: 0.5}, inner)
}
