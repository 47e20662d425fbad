package m2

import "fmt"

// Interpolation selects how a track blends between keyframes.
type Interpolation uint8

const (
	InterpolationNone    Interpolation = iota // step: hold the earlier keyframe
	InterpolationLinear                       // linear
	InterpolationBezier                       // sampled as linear
	InterpolationHermite                      // sampled as linear
)

// Track is an animatable property with one keyframe array per animation
// sequence. Timestamps are milliseconds and strictly increasing within a
// sequence. A track bound to a global sequence stores its keys in slot 0.
type Track[T any] struct {
	Interpolation  Interpolation `yaml:"interpolation"`
	GlobalSequence *int          `yaml:"global_sequence,omitempty"`
	Timestamps     [][]uint32    `yaml:"timestamps"`
	Values         [][]T         `yaml:"values"`
}

// StaticTrack returns a track holding a single constant keyframe.
func StaticTrack[T any](v T) Track[T] {
	return Track[T]{
		Timestamps: [][]uint32{{0}},
		Values:     [][]T{{v}},
	}
}

// Global returns the global sequence the track loops on, if any.
func (t *Track[T]) Global() (int, bool) {
	if t.GlobalSequence == nil || *t.GlobalSequence < 0 {
		return 0, false
	}
	return *t.GlobalSequence, true
}

// Keys returns the keyframes for a sequence, falling back to sequence 0
// when the track has no entry for it.
func (t *Track[T]) Keys(seq int) ([]uint32, []T) {
	if _, global := t.Global(); global || seq < 0 || seq >= len(t.Timestamps) || seq >= len(t.Values) {
		seq = 0
	}
	if seq >= len(t.Timestamps) || seq >= len(t.Values) {
		return nil, nil
	}
	return t.Timestamps[seq], t.Values[seq]
}

// HasKeys reports whether the track carries keyframes for the sequence.
func (t *Track[T]) HasKeys(seq int) bool {
	times, _ := t.Keys(seq)
	return len(times) > 0
}

// Animated reports whether the track actually varies over time for the
// sequence: at least two keyframes.
func (t *Track[T]) Animated(seq int) bool {
	times, _ := t.Keys(seq)
	return len(times) > 1
}

// Empty reports whether the track has no keyframes in any sequence.
func (t *Track[T]) Empty() bool {
	for _, times := range t.Timestamps {
		if len(times) > 0 {
			return false
		}
	}
	return true
}

func (t *Track[T]) validate(name string) error {
	if len(t.Timestamps) != len(t.Values) {
		return fmt.Errorf("%s: %d timestamp arrays but %d value arrays", name, len(t.Timestamps), len(t.Values))
	}
	for seq, times := range t.Timestamps {
		if len(times) != len(t.Values[seq]) {
			return fmt.Errorf("%s: sequence %d has %d timestamps but %d values", name, seq, len(times), len(t.Values[seq]))
		}
		for i := 1; i < len(times); i++ {
			if times[i] <= times[i-1] {
				return fmt.Errorf("%s: sequence %d timestamps not increasing at key %d", name, seq, i)
			}
		}
	}
	return nil
}

// LocalTrack is a non-blended keyframe curve over a normalized [0,1] life
// fraction, used for per-particle and per-edge parameters.
type LocalTrack[T any] struct {
	Times  []float32 `yaml:"times"`
	Values []T       `yaml:"values"`
}

func (t *LocalTrack[T]) validate(name string) error {
	if len(t.Times) != len(t.Values) {
		return fmt.Errorf("%s: %d times but %d values", name, len(t.Times), len(t.Values))
	}
	for i := 1; i < len(t.Times); i++ {
		if t.Times[i] < t.Times[i-1] {
			return fmt.Errorf("%s: times not ascending at key %d", name, i)
		}
	}
	return nil
}
