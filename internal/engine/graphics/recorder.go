package graphics

import "sort"

// Recorder is a Submitter that keeps copies of every submitted batch. It
// backs the headless runner and tests.
type Recorder struct {
	frame   []Batch
	Frames  int
	Last    []Batch
	Indices int
}

// Submit records a batch.
func (r *Recorder) Submit(b *Batch) error {
	r.frame = append(r.frame, *b)
	r.Indices += b.IndexCount
	return nil
}

// Flush closes the current frame, sorting it by key into Last.
func (r *Recorder) Flush() error {
	sort.SliceStable(r.frame, func(i, j int) bool { return r.frame[i].Key < r.frame[j].Key })
	r.Last = append(r.Last[:0], r.frame...)
	r.frame = r.frame[:0]
	r.Frames++
	return nil
}

// Count returns how many batches of the last frame used the program.
func (r *Recorder) Count(p Program) int {
	n := 0
	for i := range r.Last {
		if r.Last[i].Program == p {
			n++
		}
	}
	return n
}
