package toolbox

import "math/rand"

// Neuron is one unit of a hidden or output layer.  Input-layer neurons only
// ever use Output.
type Neuron struct {
	// Weights holds one entry per neuron of the previous layer.  Its length
	// is fixed when the neuron is built.
	Weights []float32
	Bias    float32

	Output float32 // set by FeedForward
	Error  float32 // set by Backpropagate
}

func makeNeuron(inputs int) Neuron {
	if inputs == 0 {
		return Neuron{}
	}
	return Neuron{Weights: make([]float32, inputs)}
}

// Randomize draws every weight and the bias uniformly from [-radius, radius].
func (n *Neuron) Randomize(r *rand.Rand, radius float32) {
	for i := range n.Weights {
		n.Weights[i] = uniform(r, radius)
	}
	n.Bias = uniform(r, radius)
}

func uniform(r *rand.Rand, radius float32) float32 {
	return (2*r.Float32() - 1) * radius
}
