// Package skeleton resolves per-bone model-space matrices from animation
// state, parent inheritance flags and billboard modes.
package skeleton

import (
	"github.com/Faultbox/m2view/internal/engine/anim"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// FloatsPerBone is the number of floats each bone occupies in Buffer.
const FloatsPerBone = 16

const inheritMask = m2.BoneIgnoreParentTranslate | m2.BoneIgnoreParentScale | m2.BoneIgnoreParentRotation

// Camera-facing axes in view space: the bone's X points at the viewer,
// Y to the right and Z up.
var (
	billboardX = math.Vec3{Z: 1}
	billboardY = math.Vec3{X: 1}
	billboardZ = math.Vec3{Y: 1}
	cameraDir  = math.Vec3{Z: 1}
)

// Hierarchy owns the bone matrices of one model instance. Bones live in a
// flat array and parents may point anywhere in it, so resolution recurses
// with a per-tick memo flag instead of walking in index order.
type Hierarchy struct {
	bones       []m2.Bone
	keyBones    []int16
	attachments []m2.Attachment
	attachLook  []int16

	view     math.Mat4
	invView  math.Mat4
	local    []math.Mat4 // view space, valid during Update
	matrices []math.Mat4 // model space
	resolved []bool
	buffer   []float32
}

// New creates a hierarchy for the model's bones. All matrices start as identity.
func New(model *m2.Model) *Hierarchy {
	n := len(model.Bones)
	h := &Hierarchy{
		bones:       model.Bones,
		keyBones:    model.KeyBoneLookup,
		attachments: model.Attachments,
		attachLook:  model.AttachmentLookup,
		view:        math.Identity(),
		invView:     math.Identity(),
		local:       make([]math.Mat4, n),
		matrices:    make([]math.Mat4, n),
		resolved:    make([]bool, n),
		buffer:      make([]float32, n*FloatsPerBone),
	}
	for i := range h.matrices {
		h.matrices[i] = math.Identity()
		h.local[i] = math.Identity()
	}
	h.pack()
	return h
}

// Len returns the number of bones.
func (h *Hierarchy) Len() int {
	return len(h.bones)
}

// Update resolves every bone for the current animation state, composing in
// the space of view so billboards can face the camera.
func (h *Hierarchy) Update(state *anim.State, view math.Mat4) {
	h.view = view
	h.invView = view.Inverse()
	clear(h.resolved)

	for i := range h.bones {
		h.resolve(i, state)
	}
	h.pack()
}

// Matrix returns the model-space matrix of bone i, or identity when i is
// out of range.
func (h *Hierarchy) Matrix(i int) math.Mat4 {
	if i < 0 || i >= len(h.matrices) {
		return math.Identity()
	}
	return h.matrices[i]
}

// Buffer returns all bone matrices packed column-major, FloatsPerBone
// floats per bone, ready for upload. The slice is reused across updates.
func (h *Hierarchy) Buffer() []float32 {
	return h.buffer
}

// KeyBone maps a key bone id (e.g. head, weapon hand) to a bone index, or -1.
func (h *Hierarchy) KeyBone(id int) int {
	if id < 0 || id >= len(h.keyBones) {
		return -1
	}
	idx := int(h.keyBones[id])
	if idx < 0 || idx >= len(h.bones) {
		return -1
	}
	return idx
}

// Attachment returns the model-space matrix of an attachment point by its
// lookup id, and whether the attachment exists.
func (h *Hierarchy) Attachment(id int) (math.Mat4, bool) {
	if id < 0 || id >= len(h.attachLook) {
		return math.Identity(), false
	}
	idx := int(h.attachLook[id])
	if idx < 0 || idx >= len(h.attachments) {
		return math.Identity(), false
	}
	a := &h.attachments[idx]
	return h.Matrix(int(a.Bone)).Mul(math.TranslateV(a.Position)), true
}

// AttachmentVisible samples an attachment's visibility track. Missing
// attachments are hidden; attachments without keys are visible.
func (h *Hierarchy) AttachmentVisible(state *anim.State, id int) bool {
	if id < 0 || id >= len(h.attachLook) {
		return false
	}
	idx := int(h.attachLook[id])
	if idx < 0 || idx >= len(h.attachments) {
		return false
	}
	return state.Float(&h.attachments[idx].Visible, 1) > 0
}

func (h *Hierarchy) resolve(i int, state *anim.State) {
	if h.resolved[i] {
		return
	}
	// Marked before recursing: a parent cycle sees last tick's matrix.
	h.resolved[i] = true

	bone := &h.bones[i]
	m := h.view

	if p := int(bone.Parent); p >= 0 && p < len(h.bones) && p != i {
		h.resolve(p, state)
		m = h.inherit(bone, h.local[p])
	}

	m = h.animate(bone, m, state)

	if bone.Flags&m2.BoneBillboardMask != 0 {
		m = h.billboard(bone, m, state)
	}

	h.local[i] = m
	h.matrices[i] = h.invView.Mul(m)
}

// inherit folds the view-space parent matrix into a bone according to its
// ignore-parent flags.
func (h *Hierarchy) inherit(bone *m2.Bone, parent math.Mat4) math.Mat4 {
	flags := bone.Flags & inheritMask
	if flags == 0 {
		return parent
	}

	ignoreRotation := flags&m2.BoneIgnoreParentRotation != 0
	ignoreScale := flags&m2.BoneIgnoreParentScale != 0

	m := parent
	switch {
	case ignoreRotation && ignoreScale:
		for c := 0; c < 3; c++ {
			m.SetColumn(c, h.view.Column(c))
		}
	case ignoreRotation:
		for c := 0; c < 3; c++ {
			vc := h.view.Column(c)
			vl := vc.Length()
			if vl == 0 {
				continue
			}
			m.SetColumn(c, vc.Scale(parent.Column(c).Length()/vl))
		}
	case ignoreScale:
		for c := 0; c < 3; c++ {
			vc := h.view.Column(c)
			pc := parent.Column(c).NormalizeOr(vc.Normalize())
			m.SetColumn(c, pc.Scale(vc.Length()))
		}
	}

	if flags&m2.BoneIgnoreParentTranslate != 0 {
		m.SetColumn(3, h.view.Translation())
		return m
	}
	if ignoreRotation || ignoreScale {
		// Keep the pivot where the parent puts it.
		pivot := parent.TransformVec3(bone.Pivot)
		m.SetColumn(3, pivot.Sub(m.TransformDirection(bone.Pivot)))
	}
	return m
}

// animate applies the bone's own translation, rotation and scale around its
// pivot, skipping tracks without keys, then the optional offset matrix.
func (h *Hierarchy) animate(bone *m2.Bone, m math.Mat4, state *anim.State) math.Mat4 {
	seq := state.Current()
	hasT := bone.Translation.HasKeys(seq)
	hasR := bone.Rotation.HasKeys(seq)
	hasS := bone.Scale.HasKeys(seq)

	if hasT || hasR || hasS {
		local := math.Identity()
		if hasT {
			local = local.Mul(math.TranslateV(state.Vec3(&bone.Translation, math.Vec3{})))
		}
		if hasR {
			// Stored rotations are inverted.
			local = local.Mul(state.Quat(&bone.Rotation, math.QuatIdentity()).Conjugate().ToMat4())
		}
		if hasS {
			local = local.Mul(math.ScaleV(state.Vec3(&bone.Scale, math.Vec3{X: 1, Y: 1, Z: 1})))
		}
		m = m.Sandwich(bone.Pivot, local)
	}

	if bone.Offset != nil {
		m = m.Sandwich(bone.Pivot, *bone.Offset)
	}
	return m
}

// billboard replaces the basis of a view-space bone matrix so it faces the
// camera, keeping column lengths and the pivot's position.
func (h *Hierarchy) billboard(bone *m2.Bone, m math.Mat4, state *anim.State) math.Mat4 {
	pivot := m.TransformVec3(bone.Pivot)
	sx := m.Column(0).Length()
	sy := m.Column(1).Length()
	sz := m.Column(2).Length()

	var x, y, z math.Vec3
	switch {
	case bone.Flags&m2.BoneSphericalBillboard != 0:
		x, y, z = billboardX, billboardY, billboardZ
		if bone.Rotation.Animated(state.Current()) {
			r := state.Quat(&bone.Rotation, math.QuatIdentity()).Conjugate().ToMat4()
			face := math.Mat4{
				billboardX.X, billboardX.Y, billboardX.Z, 0,
				billboardY.X, billboardY.Y, billboardY.Z, 0,
				billboardZ.X, billboardZ.Y, billboardZ.Z, 0,
				0, 0, 0, 1,
			}.Mul(r)
			x, y, z = face.Column(0), face.Column(1), face.Column(2)
		}

	case bone.Flags&m2.BoneCylindricalLockX != 0:
		x = m.Column(0).NormalizeOr(billboardX)
		y = cameraDir.Cross(x).NormalizeOr(m.Column(1).NormalizeOr(billboardY))
		z = x.Cross(y).NormalizeOr(billboardZ)

	case bone.Flags&m2.BoneCylindricalLockY != 0:
		y = m.Column(1).NormalizeOr(billboardY)
		x = y.Cross(cameraDir).NormalizeOr(m.Column(0).NormalizeOr(billboardX))
		z = x.Cross(y).NormalizeOr(billboardZ)

	default: // lock Z
		z = m.Column(2).NormalizeOr(billboardZ)
		y = z.Cross(cameraDir).NormalizeOr(m.Column(1).NormalizeOr(billboardY))
		x = y.Cross(z).NormalizeOr(billboardX)
	}

	m.SetColumn(0, x.Scale(sx))
	m.SetColumn(1, y.Scale(sy))
	m.SetColumn(2, z.Scale(sz))
	m.SetColumn(3, pivot.Sub(m.TransformDirection(bone.Pivot)))
	return m
}

func (h *Hierarchy) pack() {
	for i := range h.matrices {
		copy(h.buffer[i*FloatsPerBone:], h.matrices[i][:])
	}
}
