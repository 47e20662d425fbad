package rng

import "testing"

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float(), b.Float(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
	for i := 0; i < TwinkleTableSize; i++ {
		if a.Twinkle(i) != b.Twinkle(i) {
			t.Fatalf("twinkle entry %d differs", i)
		}
	}
}

func TestRanges(t *testing.T) {
	s := New(7)
	for i := 0; i < 10000; i++ {
		if f := s.Float(); f < 0 || f >= 1 {
			t.Fatalf("Float out of range: %v", f)
		}
		if f := s.Signed(); f < -1 || f >= 1 {
			t.Fatalf("Signed out of range: %v", f)
		}
		if f := s.Normalish(); f < -1 || f > 1 {
			t.Fatalf("Normalish out of range: %v", f)
		}
		if n := s.Intn(5); n < 0 || n >= 5 {
			t.Fatalf("Intn out of range: %v", n)
		}
	}
	if s.Intn(0) != 0 {
		t.Error("Intn(0) should be 0")
	}
}

func TestTwinkleWraps(t *testing.T) {
	s := New(1)
	if s.Twinkle(3) != s.Twinkle(3+TwinkleTableSize) {
		t.Error("twinkle index should wrap at the table size")
	}
	if s.Twinkle(-1) != s.Twinkle(TwinkleTableSize-1) {
		t.Error("negative index should wrap")
	}
}
