// Package dataset supplies training examples to a network: flat feature
// vectors normalized to [0, 1] and integer class labels.
package dataset

import (
	"fmt"
	"math/rand"
)

// Dataset holds examples in parallel slices.  Inputs[i] is labelled
// Labels[i], and every label is in [0, Classes).
type Dataset struct {
	Inputs  [][]float32
	Labels  []int
	Classes int
}

func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Features is the length of every input vector, or 0 for an empty dataset.
func (d *Dataset) Features() int {
	if len(d.Inputs) == 0 {
		return 0
	}
	return len(d.Inputs[0])
}

func (d *Dataset) Example(i int) ([]float32, int) {
	return d.Inputs[i], d.Labels[i]
}

// Sample returns the index of a uniformly chosen example.
func (d *Dataset) Sample(r *rand.Rand) int {
	return r.Intn(len(d.Labels))
}

// Validate checks that inputs and labels line up.
func (d *Dataset) Validate() error {
	if len(d.Inputs) != len(d.Labels) {
		return fmt.Errorf("%d inputs but %d labels", len(d.Inputs), len(d.Labels))
	}
	features := d.Features()
	for i := range d.Inputs {
		if len(d.Inputs[i]) != features {
			return fmt.Errorf("example %d has %d features, want %d", i, len(d.Inputs[i]), features)
		}
		if d.Labels[i] < 0 || d.Labels[i] >= d.Classes {
			return fmt.Errorf("example %d has label %d outside [0, %d)", i, d.Labels[i], d.Classes)
		}
	}
	return nil
}

// Shuffle reorders the examples in place.
func (d *Dataset) Shuffle(r *rand.Rand) {
	r.Shuffle(len(d.Labels), func(i, j int) {
		d.Inputs[i], d.Inputs[j] = d.Inputs[j], d.Inputs[i]
		d.Labels[i], d.Labels[j] = d.Labels[j], d.Labels[i]
	})
}
