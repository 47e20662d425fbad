// Package rng provides the seedable random source shared by the effect
// simulators, including the fixed twinkle table particles index into.
package rng

import "math/rand/v2"

// TwinkleTableSize is the number of entries in the twinkle table.
const TwinkleTableSize = 128

// Source is a deterministic random source. It is not safe for concurrent
// use; each model owns one and drives it from its update loop.
type Source struct {
	r       *rand.Rand
	twinkle [TwinkleTableSize]float32
}

// New returns a source seeded with seed. Equal seeds replay equal draws.
func New(seed uint64) *Source {
	s := &Source{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	for i := range s.twinkle {
		s.twinkle[i] = s.r.Float32()
	}
	return s
}

// Float returns a uniform value in [0,1).
func (s *Source) Float() float32 {
	return s.r.Float32()
}

// Signed returns a uniform value in [-1,1).
func (s *Source) Signed() float32 {
	return s.r.Float32()*2 - 1
}

// Normalish returns a bell-shaped value in [-1,1]: the mean of three
// signed uniforms.
func (s *Source) Normalish() float32 {
	return (s.Signed() + s.Signed() + s.Signed()) / 3
}

// Uint16 returns a uniform 16-bit value.
func (s *Source) Uint16() uint16 {
	return uint16(s.r.Uint32() >> 16)
}

// Intn returns a uniform int in [0,n). n <= 0 yields 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// Twinkle returns entry i of the twinkle table; i wraps modulo the table size.
func (s *Source) Twinkle(i int) float32 {
	return s.twinkle[i&(TwinkleTableSize-1)]
}
