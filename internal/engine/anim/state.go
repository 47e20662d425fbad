package anim

import (
	"go.uber.org/zap"

	"github.com/Faultbox/m2view/internal/engine/rng"
	"github.com/Faultbox/m2view/internal/logger"
	"github.com/Faultbox/m2view/pkg/m2"
	"github.com/Faultbox/m2view/pkg/math"
)

// maxVariationProbability is the scale of the random draw compared against
// cumulative sequence frequencies.
const maxVariationProbability = 0x7fff

// State is the playback state of one model: the current and upcoming
// sequence, their clocks, the crossfade factor and the global sequence
// timers. Times are milliseconds.
type State struct {
	sequences []m2.Sequence
	globals   []uint32
	rng       *rng.Source

	current    int
	next       int
	activeTime float32
	nextTime   float32 // time into next, nonzero only inside the blend window
	blend      float32

	globalTimes []float32

	speed  float32
	paused bool
}

// NewState creates playback state for a model. Playback starts on the base
// variant of animation 0 when the model has one.
func NewState(model *m2.Model, src *rng.Source) *State {
	s := &State{
		sequences:   model.Sequences,
		globals:     model.GlobalSequences,
		rng:         src,
		current:     -1,
		next:        -1,
		blend:       1,
		globalTimes: make([]float32, len(model.GlobalSequences)),
		speed:       1,
	}
	if len(s.sequences) > 0 {
		s.UseAnimation(0)
	}
	return s
}

// UseAnimation switches to the base variant of the animation id. An unknown
// id falls back to animation 0. It returns false when the id was not found.
func (s *State) UseAnimation(id uint16) bool {
	if len(s.sequences) == 0 {
		return false
	}

	found := true
	base := s.baseIndex(id)
	if base < 0 {
		found = false
		logger.Debug("animation not found, falling back to 0", zap.Uint16("id", id))
		if base = s.baseIndex(0); base < 0 {
			base = 0
		}
	}

	s.current = s.resolveAlias(base)
	s.activeTime = 0
	s.next = s.selectNext(s.current)
	s.updateBlend()
	return found
}

// Update advances every clock by dt milliseconds, scaled by the playback
// speed. A paused state does not advance.
func (s *State) Update(dt float32) {
	if s.paused {
		dt = 0
	}
	dt *= s.speed

	for i, length := range s.globals {
		s.globalTimes[i] += dt
		if length > 0 {
			s.globalTimes[i] = mod(s.globalTimes[i], float32(length))
		}
	}

	if s.current < 0 {
		return
	}

	s.activeTime += dt
	seq := &s.sequences[s.current]
	for seq.Duration > 0 && s.activeTime > float32(seq.Duration) {
		s.activeTime -= float32(seq.Duration)
		s.current = s.next
		s.next = s.selectNext(s.current)
		seq = &s.sequences[s.current]
	}
	if seq.Duration == 0 {
		s.activeTime = 0
	}

	s.updateBlend()
}

// Pause freezes playback.
func (s *State) Pause() { s.paused = true }

// Resume continues paused playback.
func (s *State) Resume() { s.paused = false }

// Paused reports whether playback is frozen.
func (s *State) Paused() bool { return s.paused }

// SetSpeed sets the playback speed multiplier. Negative values are clamped to 0.
func (s *State) SetSpeed(speed float32) {
	if speed < 0 {
		speed = 0
	}
	s.speed = speed
}

// Speed returns the playback speed multiplier.
func (s *State) Speed() float32 { return s.speed }

// Current returns the index of the playing sequence, or -1.
func (s *State) Current() int { return s.current }

// Next returns the index of the sequence that follows the current one, or -1.
func (s *State) Next() int { return s.next }

// ActiveTime returns the time into the current sequence.
func (s *State) ActiveTime() float32 { return s.activeTime }

// NextTime returns the time into the next sequence. It runs from 0 when
// the blend window opens and is 0 outside it.
func (s *State) NextTime() float32 { return s.nextTime }

// BlendFactor returns the weight of the current sequence, in [0,1].
// It is 1 outside a crossfade window.
func (s *State) BlendFactor() float32 { return s.blend }

// Blending reports whether the next sequence contributes to sampled values.
func (s *State) Blending() bool {
	return s.blend < 1 && s.next >= 0 && s.next != s.current
}

// GlobalTime returns the clock of global sequence i, or 0 if out of range.
func (s *State) GlobalTime(i int) float32 {
	if i < 0 || i >= len(s.globalTimes) {
		return 0
	}
	return s.globalTimes[i]
}

// Sequence returns the playing sequence, if any.
func (s *State) Sequence() (m2.Sequence, bool) {
	if s.current < 0 {
		return m2.Sequence{}, false
	}
	return s.sequences[s.current], true
}

// Sample evaluates a track for the current playback state. Global tracks
// run on their own clock and never crossfade. During a crossfade the next
// sequence is sampled at NextTime and mixed in by 1 - BlendFactor.
func Sample[T any](s *State, track *m2.Track[T], def T, lerp Lerp[T]) T {
	if gs, ok := track.Global(); ok {
		times, values := track.Keys(0)
		return sampleKeys(times, values, track.Interpolation, s.GlobalTime(gs), lerp, def)
	}

	times, values := track.Keys(s.current)
	v := sampleKeys(times, values, track.Interpolation, s.activeTime, lerp, def)
	if !s.Blending() {
		return v
	}

	times, values = track.Keys(s.next)
	n := sampleKeys(times, values, track.Interpolation, s.nextTime, lerp, def)
	return lerp(n, v, s.blend)
}

// Vec3 samples a vector track.
func (s *State) Vec3(track *m2.Track[math.Vec3], def math.Vec3) math.Vec3 {
	return Sample(s, track, def, LerpVec3)
}

// Quat samples a rotation track.
func (s *State) Quat(track *m2.Track[math.Quat], def math.Quat) math.Quat {
	return Sample(s, track, def, LerpQuat)
}

// Float samples a scalar track.
func (s *State) Float(track *m2.Track[float32], def float32) float32 {
	return Sample(s, track, def, LerpFloat)
}

// HasKeys reports whether the track has keyframes for the playing sequence.
func HasKeys[T any](s *State, track *m2.Track[T]) bool {
	return track.HasKeys(s.current)
}

// updateBlend derives the blend factor and the next sequence's clock from
// the time left in the current sequence.
func (s *State) updateBlend() {
	s.blend, s.nextTime = 1, 0
	if s.current < 0 || s.next < 0 || s.next == s.current {
		return
	}
	blendIn := float32(s.sequences[s.next].BlendTimeIn)
	remaining := float32(s.sequences[s.current].Duration) - s.activeTime
	if blendIn > 0 && remaining < blendIn {
		s.blend = math.Clamp01(remaining / blendIn)
		s.nextTime = min(blendIn, blendIn-max(remaining, 0))
	}
}

// baseIndex returns the variation-0 entry for an animation id, the first
// entry with that id when no variation 0 exists, or -1.
func (s *State) baseIndex(id uint16) int {
	first := -1
	for i := range s.sequences {
		if s.sequences[i].ID != id {
			continue
		}
		if s.sequences[i].VariationIndex == 0 {
			return i
		}
		if first < 0 {
			first = i
		}
	}
	return first
}

// selectNext picks the sequence that plays after idx by walking the
// variation chain of idx's animation against a weighted random draw. An
// animation without variations falls back to the base variant of
// animation 0, or repeats when the model has none.
func (s *State) selectNext(idx int) int {
	base := s.baseIndex(s.sequences[idx].ID)
	if base < 0 {
		base = idx
	}

	if s.sequences[base].VariationNext < 0 {
		if fallback := s.baseIndex(0); fallback >= 0 {
			return s.resolveAlias(fallback)
		}
		return s.resolveAlias(base)
	}

	draw := int(s.rng.Float() * maxVariationProbability)
	total := 0
	pick := base
	for range s.sequences {
		total += int(s.sequences[pick].Frequency)
		next := int(s.sequences[pick].VariationNext)
		if total > draw || next < 0 || next >= len(s.sequences) {
			break
		}
		pick = next
	}
	return s.resolveAlias(pick)
}

// resolveAlias follows AliasNext links through sequences that are aliases
// and not primary.
func (s *State) resolveAlias(idx int) int {
	for range s.sequences {
		seq := &s.sequences[idx]
		if seq.Flags&m2.SequenceAlias == 0 || seq.Flags&m2.SequencePrimary != 0 {
			break
		}
		next := int(seq.AliasNext)
		if next >= len(s.sequences) || next == idx {
			break
		}
		idx = next
	}
	return idx
}

func mod(x, length float32) float32 {
	x -= length * float32(int64(x/length))
	if x < 0 {
		x += length
	}
	return x
}
