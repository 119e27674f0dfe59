package toolbox

import "github.com/chewxy/math32"

// DefaultLearningRate is used by AddInputLayer and by callers that have no
// better idea.
const DefaultLearningRate = float32(0.01)

// randomWeightRadius bounds the initial weights and biases, regardless of
// layer size.
const randomWeightRadius = float32(0.5)

// Layer is one stage of a Network.  The first layer of a network is the input
// layer: its neurons have no weights and only hold the values given to
// Network.SetInputs.
//
// A layer finds its neighbors through its network, so the chain can be
// extended without touching the layers already in it.
type Layer struct {
	Neurons []Neuron

	Activation   Activation
	LearningRate float32

	// Executor runs the per-neuron loops.  Nil means Sequential.
	Executor Executor

	net   *Network
	index int

	// inputs is a contiguous copy of the previous layer's outputs, refreshed
	// at the start of every pass.
	inputs []float32
	// scratch backs the softmax pass.
	scratch []float32
}

func newLayer(net *Network, index, neuronCount int, activation Activation, learningRate float32) *Layer {
	lay := &Layer{
		Neurons:      make([]Neuron, neuronCount),
		Activation:   activation,
		LearningRate: learningRate,
		net:          net,
		index:        index,
	}

	if prev := lay.Previous(); prev != nil {
		for n := range lay.Neurons {
			lay.Neurons[n] = makeNeuron(prev.NeuronCount())
		}
		lay.inputs = make([]float32, prev.NeuronCount())
	}
	if activation == Softmax {
		lay.scratch = make([]float32, neuronCount)
	}
	return lay
}

func (lay *Layer) NeuronCount() int {
	return len(lay.Neurons)
}

// Index is the layer's position in its network, 0 being the input layer.
func (lay *Layer) Index() int {
	return lay.index
}

func (lay *Layer) IsInput() bool {
	return lay.index == 0
}

// Previous returns the layer feeding this one, or nil for the input layer.
func (lay *Layer) Previous() *Layer {
	if lay.index == 0 {
		return nil
	}
	return lay.net.layers[lay.index-1]
}

// Next returns the layer this one feeds, or nil for the output layer.
func (lay *Layer) Next() *Layer {
	if lay.index+1 >= len(lay.net.layers) {
		return nil
	}
	return lay.net.layers[lay.index+1]
}

// Outputs copies every neuron's output into dst, which must hold
// NeuronCount() values.
func (lay *Layer) Outputs(dst []float32) {
	if len(dst) != len(lay.Neurons) {
		configPanic("output buffer holds %d values, layer %d has %d neurons", len(dst), lay.index, len(lay.Neurons))
	}
	for n := range lay.Neurons {
		dst[n] = lay.Neurons[n].Output
	}
}

// Randomize forgets all prior training.
func (lay *Layer) Randomize() {
	for n := range lay.Neurons {
		lay.Neurons[n].Randomize(lay.net.rand, randomWeightRadius)
	}
}

func (lay *Layer) executor() Executor {
	if lay.Executor == nil {
		return Sequential{}
	}
	return lay.Executor
}

func (lay *Layer) gatherInputs() {
	prev := lay.Previous()
	for i := range prev.Neurons {
		lay.inputs[i] = prev.Neurons[i].Output
	}
}

// FeedForward computes every neuron's output from the previous layer's
// outputs, which must already be final.
func (lay *Layer) FeedForward() {
	if lay.IsInput() {
		return
	}
	lay.gatherInputs()

	activation := lay.Activation
	lay.executor().Run(len(lay.Neurons), func(lo, hi int) {
		for n := lo; n < hi; n++ {
			neuron := &lay.Neurons[n]
			sigma := dot(lay.inputs, neuron.Weights) + neuron.Bias
			neuron.Output = activation.Apply(sigma)
		}
	})

	if activation == Softmax {
		if len(lay.scratch) != len(lay.Neurons) {
			lay.scratch = make([]float32, len(lay.Neurons))
		}
		for n := range lay.Neurons {
			lay.scratch[n] = lay.Neurons[n].Output
		}
		softmax(lay.scratch)
		for n := range lay.Neurons {
			lay.Neurons[n].Output = lay.scratch[n]
		}
	}
}

// Backpropagate computes this layer's error and adjusts its weights.  The
// output layer compares its outputs with targets; a hidden layer ignores
// targets and pulls its error back from the next layer, whose errors must
// already be final.
func (lay *Layer) Backpropagate(targets []float32) {
	if lay.IsInput() {
		return
	}
	lay.gatherInputs()

	activation := lay.Activation
	next := lay.Next()
	exec := lay.executor()

	if next == nil {
		if len(targets) != len(lay.Neurons) {
			configPanic("%d training outputs for %d output neurons", len(targets), len(lay.Neurons))
		}
		exec.Run(len(lay.Neurons), func(lo, hi int) {
			for n := lo; n < hi; n++ {
				neuron := &lay.Neurons[n]
				neuron.Error = (targets[n] - neuron.Output) * activation.Derivative(neuron.Output)
			}
		})
	} else {
		exec.Run(len(lay.Neurons), func(lo, hi int) {
			for n := lo; n < hi; n++ {
				var sum float32
				for o := range next.Neurons {
					sum += next.Neurons[o].Error * next.Neurons[o].Weights[n]
				}
				neuron := &lay.Neurons[n]
				neuron.Error = sum * activation.Derivative(neuron.Output)
			}
		})
	}

	learningRate := lay.LearningRate
	exec.Run(len(lay.Neurons), func(lo, hi int) {
		for n := lo; n < hi; n++ {
			neuron := &lay.Neurons[n]
			step := learningRate * neuron.Error
			neuron.Bias += step
			w := neuron.Weights[:len(lay.inputs)]
			for i, x := range lay.inputs {
				w[i] += step * x
			}
		}
	})
}

// WeightL1 sums the absolute values of the layer's input weights.
func (lay *Layer) WeightL1() float32 {
	var sum float32
	for n := range lay.Neurons {
		for _, w := range lay.Neurons[n].Weights {
			sum += math32.Abs(w)
		}
	}
	return sum
}

// WeightL2 sums the squares of the layer's input weights.
func (lay *Layer) WeightL2() float32 {
	var sum float32
	for n := range lay.Neurons {
		for _, w := range lay.Neurons[n].Weights {
			sum += w * w
		}
	}
	return sum
}
