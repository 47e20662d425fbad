package m2

// SequenceFlags describe how a sequence is stored and chained.
type SequenceFlags uint32

const (
	SequencePrimary SequenceFlags = 0x20 // keyframes live in the model itself
	SequenceAlias   SequenceFlags = 0x40 // data is found at AliasNext
)

// BoneFlags control parent inheritance and billboarding.
type BoneFlags uint32

const (
	BoneIgnoreParentTranslate BoneFlags = 0x1
	BoneIgnoreParentScale     BoneFlags = 0x2
	BoneIgnoreParentRotation  BoneFlags = 0x4
	BoneSphericalBillboard    BoneFlags = 0x8
	BoneCylindricalLockX      BoneFlags = 0x10
	BoneCylindricalLockY      BoneFlags = 0x20
	BoneCylindricalLockZ      BoneFlags = 0x40
	BoneTransformed           BoneFlags = 0x200

	BoneBillboardMask = BoneSphericalBillboard | BoneCylindricalLockX | BoneCylindricalLockY | BoneCylindricalLockZ
)

// MaterialFlags are render-state toggles of a material.
type MaterialFlags uint16

const (
	MaterialUnlit        MaterialFlags = 0x1
	MaterialUnfogged     MaterialFlags = 0x2
	MaterialTwoSided     MaterialFlags = 0x4
	MaterialNoDepthTest  MaterialFlags = 0x8
	MaterialNoDepthWrite MaterialFlags = 0x10
)

// ParticleFlags toggle optional particle emitter behaviour.
type ParticleFlags uint32

const (
	ParticleLit             ParticleFlags = 0x1
	ParticleMoveWithEmitter ParticleFlags = 0x10 // particles live in emitter space
	ParticleDontThrottle    ParticleFlags = 0x20
	ParticleSphereInvert    ParticleFlags = 0x100 // die once moving away from the center
	ParticleXYQuad          ParticleFlags = 0x1000
	ParticleClampToGround   ParticleFlags = 0x2000
	ParticleGoUp            ParticleFlags = 0x4000 // sphere particles fly straight up
	ParticleRandomCell      ParticleFlags = 0x10000
	ParticleMultiTexture    ParticleFlags = 0x10000000
)

// EmitterType selects the particle generator.
type EmitterType uint8

const (
	EmitterPlane  EmitterType = 1
	EmitterSphere EmitterType = 2
	EmitterSpline EmitterType = 3
)

// HeadOrTail selects which quads a particle draws.
type HeadOrTail uint8

const (
	DrawHead HeadOrTail = iota
	DrawTail
	DrawBoth
)
